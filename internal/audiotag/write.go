package audiotag

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dhowden/tag"
)

// save writes the mutated tag followed by the untouched audio stream to a
// temp file next to path, then renames it over path.
func (t *Tagger) save(path string, af *audioFile) error {
	fail := func(op string, err error) error {
		return &TagWriteError{Path: path, Op: op, Err: err}
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".mp3cover-*.tmp")
	if err != nil {
		return fail("create temp file", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	bw := bufio.NewWriter(tmp)
	if _, err := af.tag.WriteTo(bw); err != nil {
		return fail("write tag", err)
	}
	audio := af.audio()
	n, err := io.Copy(bw, audio)
	if err != nil {
		return fail("copy audio", err)
	}
	if n != audio.Size() {
		return fail("copy audio", fmt.Errorf("copied %d of %d bytes", n, audio.Size()))
	}
	if err := bw.Flush(); err != nil {
		return fail("write", err)
	}
	if err := tmp.Chmod(af.layout.mode); err != nil {
		return fail("chmod", err)
	}
	if err := tmp.Sync(); err != nil {
		return fail("sync", err)
	}
	if err := tmp.Close(); err != nil {
		return fail("close temp file", err)
	}
	// Some platforms refuse to rename over a file that is still open.
	_ = af.Close()

	if err := checkUnchanged(path, af.layout); err != nil {
		return fail("check original", err)
	}

	if t.opts.backupSuffix != "" {
		if err := os.Rename(path, path+t.opts.backupSuffix); err != nil {
			return fail("backup", err)
		}
	}
	if err := os.Rename(tmpPath, path); err != nil {
		if t.opts.backupSuffix != "" {
			_ = os.Rename(path+t.opts.backupSuffix, path)
		}
		return fail("rename", err)
	}
	success = true

	if err := syncDir(filepath.Dir(path)); err != nil {
		t.opts.log.Warn("could not sync directory", "audio", path, "err", err)
	}
	if t.opts.preserveModTime {
		if err := os.Chtimes(path, af.layout.modTime, af.layout.modTime); err != nil {
			t.opts.log.Warn("could not restore modification time", "audio", path, "err", err)
		}
	}
	return nil
}

// syncDir flushes the directory entry so the rename survives a crash.
func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	if err := d.Sync(); err != nil {
		d.Close()
		return err
	}
	return d.Close()
}

// checkUnchanged fails when the original was modified since it was opened,
// or can no longer be written by this process.
func checkUnchanged(path string, c container) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.Size() != c.size || !info.ModTime().Equal(c.modTime) {
		return errModified
	}
	w, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return err
	}
	return w.Close()
}

// verify re-reads path and checks it carries img as its only picture.
func verify(path string, img Image) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		return fmt.Errorf("read back: %w", err)
	}
	if n := countPictures(m.Raw()); n != 1 {
		return fmt.Errorf("%w: found %d pictures", errVerifyPicture, n)
	}
	p := m.Picture()
	if p == nil {
		return errors.New("read back: no picture")
	}
	if p.MIMEType != img.MIMEType || !bytes.Equal(p.Data, img.Data) {
		return errVerifyPicture
	}
	return nil
}

// countPictures counts APIC/PIC entries in a dhowden/tag raw map, where
// repeated frames are keyed NAME, NAME_0, NAME_1, ...
func countPictures(raw map[string]interface{}) int {
	n := 0
	for k := range raw {
		name, _, _ := strings.Cut(k, "_")
		if name == "APIC" || name == "PIC" {
			n++
		}
	}
	return n
}
