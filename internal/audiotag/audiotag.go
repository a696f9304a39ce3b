// Package audiotag embeds cover art into the ID3v2 tag of MP3 files.
//
// An embed replaces every attached picture (APIC) frame with a single
// front-cover frame holding the raw bytes of an image file. The file on disk
// is replaced atomically: a failed embed leaves it byte-for-byte unchanged.
package audiotag

import (
	"context"
	"os"
	"path/filepath"
	"strings"
)

const coverDescription = "Cover"

// Request names the two files an embed works on.
type Request struct {
	AudioPath string
	ImagePath string
}

// Image is a cover image read from disk.
type Image struct {
	Path     string
	MIMEType string
	Data     []byte
}

// Result summarises a successful embed.
type Result struct {
	AudioPath  string
	MIMEType   string
	Bytes      int
	Removed    int  // APIC frames removed before the new one was added
	TagVersion byte // always 4 after a save
	CreatedTag bool // the file had no ID3v2 tag before
	Upgraded   bool // an ID3v2.3 tag was rewritten as ID3v2.4
}

// MIMEFromExt derives the image MIME type from the file extension,
// case-insensitively. Unknown extensions map to image/jpeg.
func MIMEFromExt(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".bmp":
		return "image/bmp"
	default:
		return "image/jpeg"
	}
}

// ReadImage loads the image at path. The bytes are not decoded.
func ReadImage(path string) (Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Image{}, &ImageReadError{Path: path, Err: err}
	}
	return Image{Path: path, MIMEType: MIMEFromExt(path), Data: data}, nil
}

// fileLocks is shared by every Tagger in the process.
var fileLocks = newPathLocks()

// Tagger runs cover embeds. It is safe for concurrent use; embeds on the
// same audio file are queued.
type Tagger struct {
	opts  *options
	locks *pathLocks
}

// New returns a Tagger configured by opts.
func New(opts ...Option) *Tagger {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return &Tagger{opts: o, locks: fileLocks}
}

// EmbedCover replaces all attached pictures of req.AudioPath with the image
// at req.ImagePath.
//
// ctx is honoured while waiting for another embed on the same file and
// between steps. Once saving has started the embed runs to completion.
func (t *Tagger) EmbedCover(ctx context.Context, req Request) (Result, error) {
	log := t.opts.log.With("audio", req.AudioPath, "image", req.ImagePath)

	release, err := t.locks.acquire(ctx, req.AudioPath)
	if err != nil {
		return Result{}, err
	}
	defer release()

	t.stage(StageOpen)
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	af, err := openAudio(req.AudioPath)
	if err != nil {
		log.Debug("open audio failed", "err", err)
		return Result{}, err
	}
	defer af.Close()

	t.stage(StageReadImage)
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	img, err := ReadImage(req.ImagePath)
	if err != nil {
		log.Debug("read image failed", "err", err)
		return Result{}, err
	}

	t.stage(StageMutate)
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	upgraded := af.layout.hasTag() && af.tag.Version() != 4
	removed := replaceCover(af.tag, img)

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	t.stage(StageSave)
	if err := t.save(req.AudioPath, af); err != nil {
		log.Debug("save failed", "err", err)
		return Result{}, err
	}
	if t.opts.verify {
		if err := verify(req.AudioPath, img); err != nil {
			return Result{}, &TagWriteError{Path: req.AudioPath, Op: "verify", Replaced: true, Err: err}
		}
	}
	t.stage(StageDone)

	res := Result{
		AudioPath:  req.AudioPath,
		MIMEType:   img.MIMEType,
		Bytes:      len(img.Data),
		Removed:    removed,
		TagVersion: af.tag.Version(),
		CreatedTag: !af.layout.hasTag(),
		Upgraded:   upgraded,
	}
	log.Info("cover embedded", "mime", res.MIMEType, "bytes", res.Bytes, "removed", res.Removed)
	return res, nil
}

func (t *Tagger) stage(s Stage) {
	t.opts.log.Debug("stage", "stage", s.String())
	if t.opts.progress != nil {
		t.opts.progress(s)
	}
}

// EmbedCover is a convenience wrapper around New(opts...).EmbedCover.
func EmbedCover(ctx context.Context, audioPath, imagePath string, opts ...Option) error {
	_, err := New(opts...).EmbedCover(ctx, Request{AudioPath: audioPath, ImagePath: imagePath})
	return err
}
