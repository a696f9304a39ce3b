package audiotag

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/bogem/id3v2/v2"
)

func TestDecodeSynchsafe(t *testing.T) {
	tests := []struct {
		in     []byte
		want   uint32
		wantOK bool
	}{
		{[]byte{0, 0, 0, 0}, 0, true},
		{[]byte{0, 0, 0, 0x7F}, 127, true},
		{[]byte{0, 0, 1, 0}, 128, true},
		{[]byte{0, 0, 0x02, 0x01}, 257, true},
		{[]byte{0x7F, 0x7F, 0x7F, 0x7F}, 1<<28 - 1, true},
		{[]byte{0, 0, 0, 0x80}, 0, false},
	}

	for _, tt := range tests {
		got, ok := decodeSynchsafe(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("decodeSynchsafe(% x) = %d, %v; want %d, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestSniffContainer(t *testing.T) {
	tests := []struct {
		name string
		head string
		want string
	}{
		{"flac", "fLaC\x00\x00\x00\x22", "FLAC"},
		{"ogg", "OggS\x00\x02", "OGG"},
		{"dsf", "DSD \x1c\x00\x00\x00", "DSF"},
		{"wav", "RIFF\x00\x00\x00\x00WAVE", "WAV"},
		{"aiff", "FORM\x00\x00\x00\x00AIFF", "AIFF"},
		{"aifc", "FORM\x00\x00\x00\x00AIFC", "AIFF"},
		{"mp4", "\x00\x00\x00\x18ftypisom", "MP4"},
		{"mpeg", "\xff\xfb\x90\x64\x00\x00\x00\x00", ""},
		{"riff avi", "RIFF\x00\x00\x00\x00AVI ", ""},
		{"short", "RIF", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sniffContainer([]byte(tt.head)); got != tt.want {
				t.Errorf("sniffContainer(%q) = %q, want %q", tt.head, got, tt.want)
			}
		})
	}
}

func TestScanLayout_Layout(t *testing.T) {
	dir := t.TempDir()
	tagBytes := fixtureTag{version: 3, encoding: id3v2.EncodingISO, title: "Song"}.bytes(t)

	tests := []struct {
		name        string
		parts       [][]byte
		wantTagSize int64
		wantVersion byte
	}{
		{"bare stream", [][]byte{mpegStream(2)}, 0, 0},
		{"tagged", [][]byte{tagBytes, mpegStream(2)}, int64(len(tagBytes)), 3},
		{"junk before first frame", [][]byte{tagBytes, make([]byte, 1000), mpegStream(2)}, int64(len(tagBytes)), 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, dir, "layout.mp3", tt.parts...)
			f, err := os.Open(path)
			if err != nil {
				t.Fatal(err)
			}
			defer f.Close()

			c, err := scanLayout(path, f)
			if err != nil {
				t.Fatalf("scanLayout() error = %v", err)
			}
			if c.tagSize != tt.wantTagSize || c.version != tt.wantVersion {
				t.Errorf("scanLayout() = tagSize %d version %d, want %d %d", c.tagSize, c.version, tt.wantTagSize, tt.wantVersion)
			}
			if c.hasTag() != (tt.wantTagSize > 0) {
				t.Errorf("hasTag() = %v", c.hasTag())
			}
		})
	}
}

func TestScanLayout_FooterCounted(t *testing.T) {
	dir := t.TempDir()
	header := []byte{'I', 'D', '3', 4, 0, id3FooterFlag, 0, 0, 0, 0}
	footer := []byte{'3', 'D', 'I', 4, 0, id3FooterFlag, 0, 0, 0, 0}
	path := writeFile(t, dir, "footer.mp3", header, footer, mpegStream(1))

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	c, err := scanLayout(path, f)
	if err != nil {
		t.Fatalf("scanLayout() error = %v", err)
	}
	if c.tagSize != 20 {
		t.Errorf("tagSize = %d, want 20", c.tagSize)
	}
}

func TestScanLayout_RejectsBadSynchsafeSize(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "bad.mp3", []byte{'I', 'D', '3', 4, 0, 0, 0, 0, 0x80, 0}, mpegStream(1))

	err := EmbedCover(context.Background(), path, filepath.Join(dir, "cover.png"))
	var openErr *AudioOpenError
	if !errors.As(err, &openErr) {
		t.Fatalf("error = %v, want *AudioOpenError", err)
	}
}

func TestPathLocks_KeyNormalisation(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.mp3", mpegStream(1))
	link := filepath.Join(dir, "link.mp3")
	if err := os.Symlink(path, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	for _, alias := range []string{filepath.Join(dir, ".", "a.mp3"), link} {
		if lockKey(alias) != lockKey(path) {
			t.Errorf("lockKey(%q) = %q, want %q", alias, lockKey(alias), lockKey(path))
		}
	}
}

func TestPathLocks_Release(t *testing.T) {
	locks := newPathLocks()
	ctx := context.Background()

	releaseA, err := locks.acquire(ctx, "a.mp3")
	if err != nil {
		t.Fatal(err)
	}
	releaseB, err := locks.acquire(ctx, "b.mp3")
	if err != nil {
		t.Fatalf("different paths must not block each other: %v", err)
	}
	if n := locks.size(); n != 2 {
		t.Errorf("size() = %d, want 2", n)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := locks.acquire(cancelled, "a.mp3"); !errors.Is(err, context.Canceled) {
		t.Errorf("acquire on held lock with cancelled ctx: error = %v", err)
	}

	releaseA()
	releaseB()
	if n := locks.size(); n != 0 {
		t.Errorf("size() = %d after release, want 0", n)
	}
}
