package audiotag

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/bogem/id3v2/v2"
)

// mpegFrame is a silent MPEG-1 Layer III frame: 128 kbit/s, 44.1 kHz,
// joint stereo, no CRC, 417 bytes.
var mpegFrame = func() []byte {
	b := make([]byte, 417)
	copy(b, []byte{0xFF, 0xFB, 0x90, 0x64})
	return b
}()

func mpegStream(frames int) []byte {
	return bytes.Repeat(mpegFrame, frames)
}

type fixtureTag struct {
	version  byte
	encoding id3v2.Encoding
	title    string
	artist   string
	album    string
	track    string
	pictures []id3v2.PictureFrame
}

func (ft fixtureTag) bytes(t *testing.T) []byte {
	t.Helper()
	tag := id3v2.NewEmptyTag()
	tag.SetVersion(ft.version)
	add := func(id, text string) {
		if text != "" {
			tag.AddTextFrame(id, ft.encoding, text)
		}
	}
	add("TIT2", ft.title)
	add("TPE1", ft.artist)
	add("TALB", ft.album)
	add("TRCK", ft.track)
	for _, p := range ft.pictures {
		tag.AddAttachedPicture(p)
	}

	var buf bytes.Buffer
	if _, err := tag.WriteTo(&buf); err != nil {
		t.Fatalf("write fixture tag: %v", err)
	}
	return buf.Bytes()
}

func writeFile(t *testing.T, dir, name string, parts ...[]byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, bytes.Join(parts, nil), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func readFile(t *testing.T, path string) []byte {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return b
}

// openTag parses the saved file with id3v2 for assertions.
func openTag(t *testing.T, path string) *id3v2.Tag {
	t.Helper()
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		t.Fatalf("id3v2.Open(%s): %v", path, err)
	}
	t.Cleanup(func() { tag.Close() })
	return tag
}

func pictureFrames(t *testing.T, tag *id3v2.Tag) []id3v2.PictureFrame {
	t.Helper()
	var pics []id3v2.PictureFrame
	for _, f := range tag.GetFrames(tag.CommonID("Attached picture")) {
		pf, ok := f.(id3v2.PictureFrame)
		if !ok {
			t.Fatalf("APIC frame has type %T", f)
		}
		pics = append(pics, pf)
	}
	return pics
}

// audioPayload returns the bytes following the ID3v2 tag of data.
func audioPayload(t *testing.T, data []byte) []byte {
	t.Helper()
	if !bytes.HasPrefix(data, []byte("ID3")) {
		return data
	}
	size, ok := decodeSynchsafe(data[6:10])
	if !ok {
		t.Fatalf("tag size is not synchsafe: % x", data[6:10])
	}
	end := int(size) + id3HeaderSize
	if data[5]&id3FooterFlag != 0 {
		end += id3HeaderSize
	}
	return data[end:]
}

// assertNoTempFiles fails if a save left a temp file behind in dir.
func assertNoTempFiles(t *testing.T, dir string) {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, ".mp3cover-*"))
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) > 0 {
		t.Errorf("temp files left behind: %v", matches)
	}
}
