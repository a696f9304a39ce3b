package audiotag

import (
	"errors"
	"fmt"
)

// AudioOpenError is returned when the audio file is missing, unreadable or
// does not contain a parsable MPEG audio stream.
type AudioOpenError struct {
	Path string
	Err  error
}

func (e *AudioOpenError) Error() string {
	return fmt.Sprintf("%s: open audio: %v", e.Path, e.Err)
}

func (e *AudioOpenError) Unwrap() error { return e.Err }

// ImageReadError is returned when the image file cannot be read.
type ImageReadError struct {
	Path string
	Err  error
}

func (e *ImageReadError) Error() string {
	return fmt.Sprintf("%s: read image: %v", e.Path, e.Err)
}

func (e *ImageReadError) Unwrap() error { return e.Err }

// UnsupportedAudioError is returned when the audio file is a container
// other than MPEG audio with an ID3v2.3/2.4 tag.
type UnsupportedAudioError struct {
	Path   string
	Format string
	Err    error
}

func (e *UnsupportedAudioError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: unsupported audio format %s: %v", e.Path, e.Format, e.Err)
	}
	return fmt.Sprintf("%s: unsupported audio format %s", e.Path, e.Format)
}

func (e *UnsupportedAudioError) Unwrap() error { return e.Err }

// TagWriteError is returned when the tagged file could not be persisted.
// The original file is left untouched unless Replaced is set, which only
// happens when post-save verification fails.
type TagWriteError struct {
	Path     string
	Op       string
	Replaced bool
	Err      error
}

func (e *TagWriteError) Error() string {
	return fmt.Sprintf("%s: save (%s): %v", e.Path, e.Op, e.Err)
}

func (e *TagWriteError) Unwrap() error { return e.Err }

var (
	errNoMPEGStream     = errors.New("no MPEG audio frames found")
	errTruncatedTag     = errors.New("ID3v2 tag extends past end of file")
	errModified         = errors.New("file was modified by another process")
	errVerifyPicture    = errors.New("embedded picture does not match source image")
	errUnsupportedID3v2 = errors.New("ID3v2 version cannot be written")
	errTagFeature       = errors.New("ID3v2 feature cannot be rewritten safely")
)

// Describe maps err to the single message shown to the user.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	var (
		openErr  *AudioOpenError
		imgErr   *ImageReadError
		fmtErr   *UnsupportedAudioError
		writeErr *TagWriteError
	)
	switch {
	case errors.As(err, &openErr):
		return "could not open audio file"
	case errors.As(err, &imgErr):
		return "could not read image file"
	case errors.As(err, &fmtErr):
		return "unsupported audio format"
	case errors.As(err, &writeErr):
		return "failed to save"
	default:
		return fmt.Sprintf("injection failed: %v", err)
	}
}
