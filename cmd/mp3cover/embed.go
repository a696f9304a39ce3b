package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"mp3cover/internal/audiotag"
)

var embedCmd = &cobra.Command{
	Use:   "embed AUDIO IMAGE",
	Short: "Replace the cover art of an MP3 file",
	Long: `embed removes every picture frame from AUDIO's ID3v2 tag and adds IMAGE
as the front cover. The file is rewritten through a temporary file and
renamed into place, so it is never left half written.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := audiotag.Request{AudioPath: args[0], ImagePath: args[1]}
		res, err := audiotag.New(tagOptions()...).EmbedCover(cmd.Context(), req)
		if err != nil {
			slog.Error("embed cover", "audio", req.AudioPath, "image", req.ImagePath, "err", err)
			return describe(err)
		}

		tagNote := ""
		if res.CreatedTag {
			tagNote = ", new tag"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: embedded %s (%s), replaced %d picture(s), ID3v2.%d%s\n",
			res.AudioPath, res.MIMEType, formatBytes(res.Bytes), res.Removed, res.TagVersion, tagNote)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(embedCmd)
}

func formatBytes(n int) string {
	switch {
	case n < 1024:
		return fmt.Sprintf("%d B", n)
	case n < 1024*1024:
		return fmt.Sprintf("%.1f KB", float64(n)/1024)
	default:
		return fmt.Sprintf("%.2f MB", float64(n)/(1024*1024))
	}
}
