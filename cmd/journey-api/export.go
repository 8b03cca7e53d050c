package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/PabloGalante/farum-journey/internal/adapters/export"
	"github.com/PabloGalante/farum-journey/internal/domain"
)

func newExportCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export <journey.json>",
		Short: "Render a saved journey as a PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read journey: %w", err)
			}
			var j domain.Journey
			if err := json.Unmarshal(data, &j); err != nil {
				return fmt.Errorf("decode journey %s: %w", args[0], err)
			}

			var w io.Writer = cmd.OutOrStdout()
			if out != "" && out != "-" {
				f, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("create %s: %w", out, err)
				}
				defer f.Close()
				w = f
			}

			return export.NewPDFExporter().Export(cmd.Context(), w, &j)
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "output file (default stdout)")
	return cmd
}
