package audiotag

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/bogem/id3v2/v2"
)

// audioFile is an MP3 opened for an embed. The file handle stays open until
// the save has copied the audio stream.
type audioFile struct {
	f      *os.File
	layout container
	tag    *id3v2.Tag
}

func (a *audioFile) Close() error { return a.f.Close() }

// audio returns a reader over everything after the original tag, including
// any trailing ID3v1 tag.
func (a *audioFile) audio() *io.SectionReader {
	return io.NewSectionReader(a.f, a.layout.tagSize, a.layout.size-a.layout.tagSize)
}

func openAudio(path string) (*audioFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &AudioOpenError{Path: path, Err: err}
	}
	c, err := scanLayout(path, f)
	if err != nil {
		f.Close()
		return nil, err
	}
	tag, err := readTag(path, f, c)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &audioFile{f: f, layout: c, tag: tag}, nil
}

// readTag parses the tag region, or returns an empty ID3v2.4 tag when the
// file has none.
func readTag(path string, f *os.File, c container) (*id3v2.Tag, error) {
	if !c.hasTag() {
		return id3v2.NewEmptyTag(), nil
	}
	raw := make([]byte, c.tagSize)
	if _, err := f.ReadAt(raw, 0); err != nil {
		return nil, &AudioOpenError{Path: path, Err: fmt.Errorf("read ID3v2 tag: %w", err)}
	}
	plain, err := plainTag(path, raw)
	if err != nil {
		return nil, err
	}
	tag, err := id3v2.ParseReader(bytes.NewReader(plain), id3v2.Options{Parse: true})
	if err != nil {
		return nil, &AudioOpenError{Path: path, Err: fmt.Errorf("parse ID3v2 tag: %w", err)}
	}
	return tag, nil
}

// plainTag rewrites raw, a complete ID3v2.3/2.4 tag, into the subset the
// id3v2 parser reads correctly: no extended header and no footer. Tags whose
// frames cannot be read without decoding them first (unsynchronisation,
// compression, encryption, grouping, data length indicators) are refused,
// as rewriting them would drop or corrupt frames.
func plainTag(path string, raw []byte) ([]byte, error) {
	version, flags := raw[3], raw[5]
	refuse := func(feature string) error {
		return &UnsupportedAudioError{
			Path:   path,
			Format: fmt.Sprintf("ID3v2.%d", version),
			Err:    fmt.Errorf("%w: %s", errTagFeature, feature),
		}
	}
	corrupt := func(what string) error {
		return &AudioOpenError{Path: path, Err: fmt.Errorf("corrupt ID3v2 tag: %s", what)}
	}

	if flags&tagFlagUnsync != 0 {
		return nil, refuse("unsynchronisation")
	}
	size, _ := decodeSynchsafe(raw[6:10])
	body := raw[id3HeaderSize : id3HeaderSize+int(size)]

	if flags&tagFlagExtended != 0 {
		if len(body) < 4 {
			return nil, corrupt("extended header")
		}
		var n int
		if version == 4 {
			v, ok := decodeSynchsafe(body[:4])
			if !ok {
				return nil, corrupt("extended header size")
			}
			n = int(v)
		} else {
			n = 4 + int(binary.BigEndian.Uint32(body[:4]))
		}
		if n < 6 || n > len(body) {
			return nil, corrupt("extended header size")
		}
		body = body[n:]
	}

	feature, err := frameFeature(version, body)
	if err != nil {
		return nil, corrupt(err.Error())
	}
	if feature != "" {
		return nil, refuse(feature)
	}

	out := make([]byte, id3HeaderSize, id3HeaderSize+len(body))
	copy(out, raw[:5])
	out[5] = flags &^ (tagFlagExtended | id3FooterFlag)
	putSynchsafe(out[6:10], uint32(len(body)))
	return append(out, body...), nil
}

// frameFeature names the first frame format flag in body that the parser
// cannot handle, or returns "" when every frame is plain.
func frameFeature(version byte, body []byte) (string, error) {
	for off := 0; off+id3HeaderSize <= len(body); {
		h := body[off : off+id3HeaderSize]
		if h[0] == 0 {
			break // padding
		}
		var size uint32
		if version == 4 {
			v, ok := decodeSynchsafe(h[4:8])
			if !ok {
				return "", fmt.Errorf("frame %q size is not synchsafe", h[:4])
			}
			size = v
		} else {
			size = binary.BigEndian.Uint32(h[4:8])
		}

		format := h[9]
		if version == 4 {
			switch {
			case format&0x08 != 0:
				return "compressed frame", nil
			case format&0x04 != 0:
				return "encrypted frame", nil
			case format&0x02 != 0:
				return "unsynchronised frame", nil
			case format&0x40 != 0:
				return "grouped frame", nil
			case format&0x01 != 0:
				return "data length indicator", nil
			}
		} else {
			switch {
			case format&0x80 != 0:
				return "compressed frame", nil
			case format&0x40 != 0:
				return "encrypted frame", nil
			case format&0x20 != 0:
				return "grouped frame", nil
			}
		}

		if uint64(size) > uint64(len(body)-off-id3HeaderSize) {
			return "", fmt.Errorf("frame %q extends past end of tag", h[:4])
		}
		off += id3HeaderSize + int(size)
	}
	return "", nil
}

func putSynchsafe(b []byte, v uint32) {
	for i := 3; i >= 0; i-- {
		b[i] = byte(v & 0x7F)
		v >>= 7
	}
}

// replaceCover drops every APIC frame and adds img as the front cover. It
// returns the number of frames removed. ID3v2.3 tags are written back as
// ID3v2.4: v2.3 has no UTF-8 text encoding, and the UTF-16 picture frames
// id3v2 writes for it are rejected by other readers. Existing frames keep
// their values and encodings.
func replaceCover(tag *id3v2.Tag, img Image) int {
	if tag.Version() != 4 {
		tag.SetVersion(4)
	}
	id := tag.CommonID("Attached picture")
	removed := len(tag.GetFrames(id))
	tag.DeleteFrames(id)
	tag.AddAttachedPicture(id3v2.PictureFrame{
		Encoding:    id3v2.EncodingUTF8,
		MimeType:    img.MIMEType,
		PictureType: id3v2.PTFrontCover,
		Description: coverDescription,
		Picture:     img.Data,
	})
	return removed
}
