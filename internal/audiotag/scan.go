package audiotag

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dhowden/tag"
	"github.com/tcolgate/mp3"
)

const (
	id3HeaderSize   = 10
	id3FooterFlag   = 0x10
	tagFlagUnsync   = 0x80
	tagFlagExtended = 0x40
	// Longest run of non-audio bytes tolerated between the tag and the first
	// MPEG frame (padding written by other taggers, stray Xing junk).
	maxSyncSearch = 64 << 10
)

// container describes the layout of an MP3 file on disk at open time.
type container struct {
	size    int64
	mode    os.FileMode
	modTime time.Time

	// Bytes taken by the leading ID3v2 tag (header, body, padding, footer).
	// Zero when the file has no tag.
	tagSize int64
	version byte
}

func (c container) hasTag() bool { return c.tagSize > 0 }

// magic lists containers recognised by their leading bytes that this tool
// must refuse to write an ID3v2 tag into.
var magic = []struct {
	offset int
	sig    []byte
	format string
}{
	{0, []byte("fLaC"), "FLAC"},
	{0, []byte("OggS"), "OGG"},
	{0, []byte("DSD "), "DSF"},
	{8, []byte("WAVE"), "WAV"},
	{8, []byte("AIFF"), "AIFF"},
	{8, []byte("AIFC"), "AIFF"},
	{4, []byte("ftyp"), "MP4"},
}

func sniffContainer(head []byte) string {
	for _, m := range magic {
		end := m.offset + len(m.sig)
		if len(head) >= end && bytes.Equal(head[m.offset:end], m.sig) {
			return m.format
		}
	}
	return ""
}

// scanLayout classifies f and returns its layout. It never modifies f.
func scanLayout(path string, f *os.File) (container, error) {
	info, err := f.Stat()
	if err != nil {
		return container{}, &AudioOpenError{Path: path, Err: err}
	}
	if info.IsDir() {
		return container{}, &AudioOpenError{Path: path, Err: errors.New("is a directory")}
	}
	c := container{size: info.Size(), mode: info.Mode().Perm(), modTime: info.ModTime()}

	head := make([]byte, 12)
	n, err := f.ReadAt(head, 0)
	if err != nil && !errors.Is(err, io.EOF) {
		return c, &AudioOpenError{Path: path, Err: err}
	}
	head = head[:n]

	if bytes.HasPrefix(head, []byte("ID3")) {
		if err := readTagHeader(path, head, &c); err != nil {
			return c, err
		}
	} else if format := identify(f); format != "" {
		return c, unsupported(path, f, 0, format)
	}

	// An ID3v2 tag in front of another container (seen on FLAC rips) is
	// still the wrong container.
	after := make([]byte, 12)
	n, _ = f.ReadAt(after, c.tagSize)
	if format := sniffContainer(after[:n]); format != "" {
		return c, unsupported(path, f, c.tagSize, format)
	}

	if err := findAudio(f, c.tagSize); err != nil {
		return c, &AudioOpenError{Path: path, Err: err}
	}
	return c, nil
}

// identify reports a non-MP3 container type, or "" when the file is MP3 or
// unknown.
func identify(f *os.File) string {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return ""
	}
	defer f.Seek(0, io.SeekStart)

	format, fileType, err := tag.Identify(f)
	if err != nil {
		return ""
	}
	switch {
	case fileType == tag.MP3:
		return ""
	case format == tag.MP4:
		if fileType != tag.UnknownFileType {
			return string(fileType)
		}
		return "MP4"
	default:
		return string(fileType)
	}
}

func unsupported(path string, f *os.File, off int64, format string) error {
	e := &UnsupportedAudioError{Path: path, Format: format}
	if format == "FLAC" {
		e.Err = describeFLAC(io.NewSectionReader(f, off, 1<<62))
	}
	return e
}

func readTagHeader(path string, head []byte, c *container) error {
	if len(head) < id3HeaderSize {
		return &AudioOpenError{Path: path, Err: errTruncatedTag}
	}
	c.version = head[3]
	if c.version != 3 && c.version != 4 {
		return &UnsupportedAudioError{
			Path:   path,
			Format: fmt.Sprintf("ID3v2.%d", c.version),
			Err:    errUnsupportedID3v2,
		}
	}
	size, ok := decodeSynchsafe(head[6:10])
	if !ok {
		return &AudioOpenError{Path: path, Err: errors.New("ID3v2 tag size is not synchsafe")}
	}
	c.tagSize = int64(size) + id3HeaderSize
	if head[5]&id3FooterFlag != 0 {
		c.tagSize += id3HeaderSize
	}
	if c.tagSize > c.size {
		return &AudioOpenError{Path: path, Err: errTruncatedTag}
	}
	return nil
}

// decodeSynchsafe decodes a 4-byte synchsafe integer (7 bits per byte).
func decodeSynchsafe(b []byte) (uint32, bool) {
	var v uint32
	for _, x := range b {
		if x&0x80 != 0 {
			return 0, false
		}
		v = v<<7 | uint32(x)
	}
	return v, true
}

// findAudio checks that an MPEG audio frame starts near off.
func findAudio(f *os.File, off int64) error {
	dec := mp3.NewDecoder(io.NewSectionReader(f, off, maxSyncSearch+maxFrameSize))
	var (
		frame   mp3.Frame
		skipped int
	)
	if err := dec.Decode(&frame, &skipped); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return errNoMPEGStream
		}
		return fmt.Errorf("%w: %v", errNoMPEGStream, err)
	}
	if skipped > maxSyncSearch {
		return errNoMPEGStream
	}
	return nil
}

// Largest legal MPEG-1 Layer I/II/III frame is well under this.
const maxFrameSize = 4096
