package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/farum-journey/internal/config"
	"github.com/PabloGalante/farum-journey/internal/domain"
)

func TestExportCommandWritesPDF(t *testing.T) {
	dir := t.TempDir()

	j := domain.NewJourney("j-1", "u-1", time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
	j.Goal = "Run a half marathon"
	j.LikertScores[domain.CategorySafety] = 2
	data, err := json.Marshal(j)
	require.NoError(t, err)

	in := filepath.Join(dir, "journey.json")
	out := filepath.Join(dir, "journey.pdf")
	require.NoError(t, os.WriteFile(in, data, 0o600))

	root := newRootCmd()
	root.SetArgs([]string{"export", in, "-o", out})
	require.NoError(t, root.Execute())

	pdf, err := os.ReadFile(out)
	require.NoError(t, err)
	require.True(t, len(pdf) > 4)
	require.Equal(t, "%PDF", string(pdf[:4]))
}

func TestExportCommandRejectsBadInput(t *testing.T) {
	in := filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, os.WriteFile(in, []byte("{not json"), 0o600))

	root := newRootCmd()
	root.SetArgs([]string{"export", in})
	require.Error(t, root.Execute())
}

func TestBuildStores(t *testing.T) {
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		st, err := buildStores(ctx, &config.Config{StorageBackend: "memory"})
		require.NoError(t, err)
		defer st.Close()
		require.NotNil(t, st.journeys)
		require.NotNil(t, st.journal)
	})

	t.Run("sqlite", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "journey.db")
		st, err := buildStores(ctx, &config.Config{StorageBackend: "sqlite", SQLitePath: path})
		require.NoError(t, err)
		defer st.Close()
		require.Same(t, st.journeys, st.journal)
	})
}

func TestBuildSuggestionClients(t *testing.T) {
	ctx := context.Background()

	journeys, generator, err := buildSuggestionClients(ctx, &config.Config{LLMProvider: "mock"})
	require.NoError(t, err)
	require.Same(t, journeys, generator)

	journeys, generator, err = buildSuggestionClients(ctx, &config.Config{LLMProvider: "mock", TextGenURL: "http://127.0.0.1:1/api/generate"})
	require.NoError(t, err)
	require.NotSame(t, journeys, generator)
}
