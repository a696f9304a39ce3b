package audiotag

import (
	"fmt"
	"io"

	flac "github.com/go-flac/go-flac/v2"
)

// describeFLAC summarises a FLAC stream for the UnsupportedAudioError reason.
// FLAC pictures live in METADATA_BLOCK_PICTURE, not ID3v2 APIC frames.
func describeFLAC(r io.Reader) error {
	f, err := flac.ParseMetadata(r)
	if err != nil {
		return fmt.Errorf("FLAC stream: %w", err)
	}

	pictures := 0
	for _, m := range f.Meta {
		if m.Type == flac.Picture {
			pictures++
		}
	}
	return fmt.Errorf("FLAC stream with %d metadata blocks (%d pictures); cover art belongs in a PICTURE block", len(f.Meta), pictures)
}
