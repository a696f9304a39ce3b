package main

import (
	"log/slog"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"mp3cover/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:         "tui [AUDIO [IMAGE]]",
	Short:       "Open the terminal UI",
	Args:        cobra.MaximumNArgs(2),
	Annotations: map[string]string{annotationUI: "true"},
	RunE:        runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, args []string) error {
	opts := tui.Options{
		TagOptions: tagOptions(),
		Log:        slog.Default(),
	}
	if len(args) > 0 {
		opts.AudioPath = args[0]
		opts.StartDir = filepath.Dir(args[0])
	}
	if len(args) > 1 {
		opts.ImagePath = args[1]
	}

	p := tea.NewProgram(tui.New(opts), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
