package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"mp3cover/internal/audiotag"
)

var inspectJSON bool

var inspectCmd = &cobra.Command{
	Use:   "inspect AUDIO",
	Short: "Show the tag, cover and stream details of an MP3 file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := audiotag.Inspect(args[0])
		if err != nil {
			slog.Error("inspect", "audio", args[0], "err", err)
			return describe(err)
		}
		if inspectJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(s)
		}
		printSummary(cmd.OutOrStdout(), s)
		return nil
	},
}

func init() {
	inspectCmd.Flags().BoolVar(&inspectJSON, "json", false, "print the summary as JSON")
	rootCmd.AddCommand(inspectCmd)
}

func printSummary(w io.Writer, s audiotag.Summary) {
	field := func(label, value string) {
		if value == "" {
			value = "-"
		}
		fmt.Fprintf(w, "%-12s %s\n", label+":", value)
	}

	tagVersion := s.TagVersion
	if tagVersion == "" {
		tagVersion = "none"
	}
	field("File", s.Path)
	field("Size", formatBytes(int(s.Size)))
	field("Tag", tagVersion)
	field("Title", s.Title)
	field("Artist", s.Artist)
	field("Album", s.Album)
	if s.Cover != nil {
		field("Cover", fmt.Sprintf("%s, %s, %s %q", s.Cover.MIMEType, formatBytes(s.Cover.Size), s.Cover.Type, s.Cover.Description))
	} else {
		field("Cover", "none")
	}
	field("Pictures", fmt.Sprint(s.Pictures))
	field("Duration", s.Duration.Round(time.Millisecond).String())
	field("Bitrate", fmt.Sprintf("%d kbps", s.Bitrate/1000))
	field("Sample rate", fmt.Sprintf("%d Hz", s.SampleRate))
	field("Frames", fmt.Sprint(s.Frames))
}
