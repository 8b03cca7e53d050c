package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/PabloGalante/farum-journey/internal/adapters/export"
	httpadapter "github.com/PabloGalante/farum-journey/internal/adapters/http"
	"github.com/PabloGalante/farum-journey/internal/app/journal"
	"github.com/PabloGalante/farum-journey/internal/app/journey"
	"github.com/PabloGalante/farum-journey/internal/app/presentation"
	"github.com/PabloGalante/farum-journey/internal/app/tools"
	"github.com/PabloGalante/farum-journey/internal/config"
	"github.com/PabloGalante/farum-journey/internal/observability"
)

func newServeCmd() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("log-level") {
				observability.Configure(os.Stdout, cfg.LogLevel)
			}
			if port != "" {
				cfg.Port = port
			}
			return serve(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "listen port (overrides JOURNEY_PORT)")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := observability.Logger()
	presentation.Register()

	st, err := buildStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	journeyClient, generator, err := buildSuggestionClients(ctx, cfg)
	if err != nil {
		return err
	}

	journeys := journey.NewService(st.journeys, journeyClient, tools.NewJournalTool(st.journal), export.NewPDFExporter(), journey.Options{
		AlignmentDelay:  cfg.AlignmentDelay,
		AdjustmentDelay: cfg.AdjustmentDelay,
		FetchTimeout:    cfg.FetchTimeout,
	})
	defer journeys.Close()

	handler := httpadapter.NewServer(journeys, journal.NewService(st.journal), generator, httpadapter.Options{
		RevealTick: cfg.RevealTick,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("journey api listening", "port", cfg.Port, "mode", cfg.Mode)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
