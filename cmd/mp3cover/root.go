package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"mp3cover/internal/audiotag"
)

var (
	logLevel string
	logFile  string

	saveVerify        bool
	saveBackup        string
	savePreserveMTime bool

	logOut io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "mp3cover [AUDIO [IMAGE]]",
	Short: "Embed cover art into MP3 files",
	Long: `mp3cover replaces the embedded cover picture of an MP3 file.

Without a subcommand it opens the terminal UI, optionally with the audio
file and image preselected.`,
	Args:          cobra.MaximumNArgs(2),
	SilenceUsage:  true,
	SilenceErrors: true,
	Annotations:   map[string]string{annotationUI: "true"},
	RunE:          runTUI,
}

// annotationUI marks commands that take over the terminal.
const annotationUI = "ui"

func init() {
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return setupLogging(cmd)
	}

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", envOr("MP3COVER_LOG_LEVEL", "info"), "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", os.Getenv("MP3COVER_LOG_FILE"), "append logs to this file")

	rootCmd.PersistentFlags().BoolVar(&saveVerify, "verify", false, "re-read the file after saving and check the embedded picture")
	rootCmd.PersistentFlags().StringVar(&saveBackup, "backup", os.Getenv("MP3COVER_BACKUP_SUFFIX"), "keep the original file as AUDIO+SUFFIX")
	rootCmd.PersistentFlags().BoolVar(&savePreserveMTime, "preserve-mtime", false, "keep the audio file's modification time")
}

// setupLogging installs a charm logger as the slog default. The terminal UI
// owns the screen, so without --log-file its logs are dropped.
func setupLogging(cmd *cobra.Command) error {
	level, err := log.ParseLevel(strings.ToLower(strings.TrimSpace(logLevel)))
	if err != nil {
		return fmt.Errorf("--log-level: %w", err)
	}

	var w io.Writer = os.Stderr
	switch {
	case logFile != "":
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		logOut = f
		w = f
	case isUICommand(cmd):
		w = io.Discard
	}

	l := log.NewWithOptions(w, log.Options{
		Level:           level,
		Prefix:          "mp3cover",
		ReportTimestamp: logFile != "",
	})
	slog.SetDefault(slog.New(l))
	return nil
}

func closeLog() {
	if logOut != nil {
		_ = logOut.Close()
		logOut = nil
	}
}

func tagOptions() []audiotag.Option {
	opts := []audiotag.Option{audiotag.WithLogger(slog.Default())}
	if saveVerify {
		opts = append(opts, audiotag.WithVerify())
	}
	if saveBackup != "" {
		opts = append(opts, audiotag.WithBackup(saveBackup))
	}
	if savePreserveMTime {
		opts = append(opts, audiotag.WithPreserveModTime())
	}
	return opts
}

// describe prefixes err with the one-line message shown to users.
func describe(err error) error {
	return fmt.Errorf("%s: %w", audiotag.Describe(err), err)
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func isUICommand(cmd *cobra.Command) bool {
	return cmd.Annotations[annotationUI] == "true"
}
