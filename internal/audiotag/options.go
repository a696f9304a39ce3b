package audiotag

import (
	"io"
	"log/slog"
)

// Stage identifies a step of an embed, reported through WithProgress.
type Stage int

const (
	StageOpen Stage = iota
	StageReadImage
	StageMutate
	StageSave
	StageDone
)

// StageCount is the number of stages an embed reports, including StageDone.
const StageCount = int(StageDone) + 1

func (s Stage) String() string {
	switch s {
	case StageOpen:
		return "open"
	case StageReadImage:
		return "read image"
	case StageMutate:
		return "mutate"
	case StageSave:
		return "save"
	case StageDone:
		return "done"
	default:
		return "unknown"
	}
}

// Option configures a Tagger.
//
//	t := audiotag.New(
//	    audiotag.WithBackup(".bak"),
//	    audiotag.WithVerify(),
//	)
type Option func(*options)

type options struct {
	backupSuffix    string
	verify          bool
	preserveModTime bool
	progress        func(Stage)
	log             *slog.Logger
}

func defaultOptions() *options {
	return &options{
		log: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// WithBackup keeps the original file as path+suffix after a successful save.
// An existing backup is overwritten.
func WithBackup(suffix string) Option {
	return func(o *options) {
		o.backupSuffix = suffix
	}
}

// WithVerify re-reads the saved file and checks that exactly one picture is
// embedded and that it matches the source image.
func WithVerify() Option {
	return func(o *options) {
		o.verify = true
	}
}

// WithPreserveModTime restores the audio file's modification time after save.
func WithPreserveModTime() Option {
	return func(o *options) {
		o.preserveModTime = true
	}
}

// WithProgress registers fn to be called as each stage starts. fn runs on
// the goroutine calling EmbedCover.
func WithProgress(fn func(Stage)) Option {
	return func(o *options) {
		o.progress = fn
	}
}

// WithLogger sets the logger used for stage and save messages. A nil l is
// ignored.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}
