package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"mp3cover/internal/audiotag"
	"mp3cover/internal/preview"
)

var (
	previewCols int
	previewRows int
)

var previewCmd = &cobra.Command{
	Use:   "preview IMAGE",
	Short: "Render the bordered cover preview in the terminal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if previewCols <= 0 || previewRows <= 0 {
			return fmt.Errorf("--cols and --rows must be positive")
		}
		p, err := preview.Load(args[0])
		if err != nil {
			slog.Error("load preview", "image", args[0], "err", err)
			return fmt.Errorf("could not load preview: %w", err)
		}

		cols, rows := preview.Fit(p.Image.Bounds().Size(), previewCols, previewRows)
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, preview.Render(p.Image, cols, rows))
		fmt.Fprintf(out, "%s  %s  %dx%d (%s)\n", args[0], audiotag.MIMEFromExt(args[0]), p.Source.X, p.Source.Y, p.Format)
		return nil
	},
}

func init() {
	previewCmd.Flags().IntVar(&previewCols, "cols", 40, "maximum width in terminal cells")
	previewCmd.Flags().IntVar(&previewRows, "rows", 20, "maximum height in terminal cells")
	rootCmd.AddCommand(previewCmd)
}
