package audiotag

import (
	"errors"
	"io"
	"os"
	"time"

	"github.com/dhowden/tag"
	"github.com/tcolgate/mp3"
)

// Summary describes the tag and audio stream of an MP3 file.
type Summary struct {
	Path       string        `json:"path"`
	Size       int64         `json:"size"`
	TagVersion string        `json:"tag_version,omitempty"`
	Title      string        `json:"title,omitempty"`
	Artist     string        `json:"artist,omitempty"`
	Album      string        `json:"album,omitempty"`
	Pictures   int           `json:"pictures"`
	Cover      *CoverInfo    `json:"cover,omitempty"`
	Frames     int           `json:"frames"`
	Duration   time.Duration `json:"duration"`
	Bitrate    int           `json:"bitrate"`
	SampleRate int           `json:"sample_rate"`
}

// CoverInfo describes the first embedded picture.
type CoverInfo struct {
	MIMEType    string `json:"mime_type"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Size        int    `json:"size"`
}

// Inspect reads the tag and walks the MPEG frames of the file at path.
// It fails the same way EmbedCover would for files it cannot tag.
func Inspect(path string) (Summary, error) {
	f, err := os.Open(path)
	if err != nil {
		return Summary{}, &AudioOpenError{Path: path, Err: err}
	}
	defer f.Close()

	c, err := scanLayout(path, f)
	if err != nil {
		return Summary{}, err
	}
	s := Summary{Path: path, Size: c.size}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return s, &AudioOpenError{Path: path, Err: err}
	}
	m, err := tag.ReadFrom(f)
	switch {
	case errors.Is(err, tag.ErrNoTagsFound):
	case err != nil:
		return s, &AudioOpenError{Path: path, Err: err}
	default:
		s.TagVersion = string(m.Format())
		s.Title, s.Artist, s.Album = m.Title(), m.Artist(), m.Album()
		s.Pictures = countPictures(m.Raw())
		if p := m.Picture(); p != nil {
			s.Cover = &CoverInfo{
				MIMEType:    p.MIMEType,
				Type:        p.Type,
				Description: p.Description,
				Size:        len(p.Data),
			}
		}
	}

	walkFrames(io.NewSectionReader(f, c.tagSize, c.size-c.tagSize), &s)
	return s, nil
}

// walkFrames decodes every MPEG frame header to total the duration. The
// bitrate reported is the average over all frames.
func walkFrames(r io.Reader, s *Summary) {
	dec := mp3.NewDecoder(r)
	var (
		frame   mp3.Frame
		skipped int
		bits    int64
	)
	for {
		if err := dec.Decode(&frame, &skipped); err != nil {
			break
		}
		h := frame.Header()
		if s.Frames == 0 {
			s.SampleRate = int(h.SampleRate())
		}
		s.Frames++
		s.Duration += frame.Duration()
		bits += int64(h.BitRate())
	}
	if s.Frames > 0 {
		s.Bitrate = int(bits / int64(s.Frames))
	}
}
