package mediastore_test

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/simple-media/pkg/mediastore"
)

func makePNG(t *testing.T, width, height int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, width, height))))
	return buf.Bytes()
}

// mp4Box wraps a payload in an ISO base media box header.
func mp4Box(typ string, payload []byte) []byte {
	box := make([]byte, 8+len(payload))
	binary.BigEndian.PutUint32(box[0:4], uint32(len(box)))
	copy(box[4:8], typ)
	copy(box[8:], payload)
	return box
}

// makeMP4 synthesizes a minimal container: an ftyp box and a moov box whose
// mvhd carries the duration and whose single tkhd carries the dimensions.
func makeMP4(durationMS int64, width, height int) []byte {
	timescale := uint32(1000)

	mvhd := make([]byte, 20) // version 0
	binary.BigEndian.PutUint32(mvhd[12:16], timescale)
	binary.BigEndian.PutUint32(mvhd[16:20], uint32(durationMS))

	tkhd := make([]byte, 84) // version 0
	binary.BigEndian.PutUint32(tkhd[76:80], uint32(width)<<16)
	binary.BigEndian.PutUint32(tkhd[80:84], uint32(height)<<16)

	trak := mp4Box("trak", mp4Box("tkhd", tkhd))
	moov := mp4Box("moov", append(mp4Box("mvhd", mvhd), trak...))
	ftyp := mp4Box("ftyp", []byte("isom\x00\x00\x00\x00"))
	return append(ftyp, moov...)
}

// makeAVI synthesizes a RIFF AVI with only the avih main header.
func makeAVI(microSecPerFrame, totalFrames, width, height uint32) []byte {
	avih := make([]byte, 56)
	binary.LittleEndian.PutUint32(avih[0:4], microSecPerFrame)
	binary.LittleEndian.PutUint32(avih[16:20], totalFrames)
	binary.LittleEndian.PutUint32(avih[32:36], width)
	binary.LittleEndian.PutUint32(avih[36:40], height)

	var hdrl bytes.Buffer
	hdrl.WriteString("hdrl")
	hdrl.WriteString("avih")
	binary.Write(&hdrl, binary.LittleEndian, uint32(len(avih)))
	hdrl.Write(avih)

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(4+8+hdrl.Len()))
	buf.WriteString("AVI ")
	buf.WriteString("LIST")
	binary.Write(&buf, binary.LittleEndian, uint32(hdrl.Len()))
	buf.Write(hdrl.Bytes())
	return buf.Bytes()
}

// makeWAV synthesizes a PCM WAV header with the given byte rate and a silent
// data chunk of dataSize bytes.
func makeWAV(byteRate uint32, dataSize int) []byte {
	fmtChunk := make([]byte, 16)
	binary.LittleEndian.PutUint16(fmtChunk[0:2], 1) // PCM
	binary.LittleEndian.PutUint16(fmtChunk[2:4], 1)
	binary.LittleEndian.PutUint32(fmtChunk[4:8], byteRate/2)
	binary.LittleEndian.PutUint32(fmtChunk[8:12], byteRate)
	binary.LittleEndian.PutUint16(fmtChunk[12:14], 2)
	binary.LittleEndian.PutUint16(fmtChunk[14:16], 16)

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(4+8+len(fmtChunk)+8+dataSize))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(len(fmtChunk)))
	buf.Write(fmtChunk)
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(dataSize))
	buf.Write(make([]byte, dataSize))
	return buf.Bytes()
}

func TestKindForExtension(t *testing.T) {
	tests := []struct {
		ext  string
		kind mediastore.MediaKind
	}{
		{"jpg", mediastore.KindImage},
		{"JPEG", mediastore.KindImage},
		{"png", mediastore.KindImage},
		{"webp", mediastore.KindImage},
		{"mp4", mediastore.KindVideo},
		{"avi", mediastore.KindVideo},
		{"mov", mediastore.KindVideo},
		{"wav", mediastore.KindAudio},
		{"mp3", mediastore.KindAudio},
		{"txt", mediastore.KindOther},
		{"", mediastore.KindOther},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.kind, mediastore.KindForExtension(tt.ext), "ext %q", tt.ext)
	}
}

func TestFileExtension(t *testing.T) {
	assert.Equal(t, "jpg", mediastore.FileExtension("photo.jpg"))
	assert.Equal(t, "png", mediastore.FileExtension("archive.tar.PNG"))
	assert.Equal(t, "", mediastore.FileExtension("README"))
}

func TestProbe(t *testing.T) {
	t.Run("png image dimensions", func(t *testing.T) {
		data := makePNG(t, 120, 80)
		info, err := mediastore.Probe(data, "pic.png")
		require.NoError(t, err)
		assert.Equal(t, mediastore.KindImage, info.Kind)
		assert.Equal(t, "image/png", info.MimeType)
		assert.Equal(t, 120, info.Width)
		assert.Equal(t, 80, info.Height)
		assert.Equal(t, int64(len(data)), info.Size)
		assert.Len(t, info.ShaChecksum, 40)
	})

	t.Run("jpeg image dimensions", func(t *testing.T) {
		info, err := mediastore.Probe(makeJPEG(t, 800, 600), "testimage.jpg")
		require.NoError(t, err)
		assert.Equal(t, mediastore.KindImage, info.Kind)
		assert.Equal(t, "image/jpeg", info.MimeType)
		assert.Equal(t, 800, info.Width)
		assert.Equal(t, 600, info.Height)
	})

	t.Run("mp4 duration and dimensions", func(t *testing.T) {
		info, err := mediastore.Probe(makeMP4(12000, 640, 360), "clip.mp4")
		require.NoError(t, err)
		assert.Equal(t, mediastore.KindVideo, info.Kind)
		assert.Equal(t, "video/mp4", info.MimeType)
		assert.Equal(t, int64(12000), info.Length)
		assert.Equal(t, 640, info.Width)
		assert.Equal(t, 360, info.Height)
	})

	t.Run("avi duration and dimensions", func(t *testing.T) {
		// 40ms per frame over 250 frames is ten seconds.
		info, err := mediastore.Probe(makeAVI(40000, 250, 320, 240), "clip.avi")
		require.NoError(t, err)
		assert.Equal(t, mediastore.KindVideo, info.Kind)
		assert.Equal(t, int64(10000), info.Length)
		assert.Equal(t, 320, info.Width)
		assert.Equal(t, 240, info.Height)
	})

	t.Run("wav duration", func(t *testing.T) {
		// 16000 bytes at 8000 bytes per second is two seconds.
		info, err := mediastore.Probe(makeWAV(8000, 16000), "sound.wav")
		require.NoError(t, err)
		assert.Equal(t, mediastore.KindAudio, info.Kind)
		assert.Equal(t, int64(2000), info.Length)
	})

	t.Run("compressed audio has kind but no duration", func(t *testing.T) {
		info, err := mediastore.Probe([]byte("not parsed"), "track.mp3")
		require.NoError(t, err)
		assert.Equal(t, mediastore.KindAudio, info.Kind)
		assert.Zero(t, info.Length)
	})

	t.Run("plain file carries no typed attributes", func(t *testing.T) {
		data := []byte("just some text")
		info, err := mediastore.Probe(data, "notes.txt")
		require.NoError(t, err)
		assert.Equal(t, mediastore.KindOther, info.Kind)
		assert.Equal(t, "text/plain", info.MimeType)
		assert.Zero(t, info.Width)
		assert.Zero(t, info.Height)
		assert.Zero(t, info.Length)
		assert.Equal(t, int64(len(data)), info.Size)
	})

	t.Run("unknown extension falls back to octet-stream", func(t *testing.T) {
		info, err := mediastore.Probe([]byte{0x00, 0x01}, "blob.xyzzy")
		require.NoError(t, err)
		assert.Equal(t, mediastore.KindOther, info.Kind)
		assert.Equal(t, "application/octet-stream", info.MimeType)
	})

	t.Run("corrupt image is rejected", func(t *testing.T) {
		_, err := mediastore.Probe([]byte("not an image"), "broken.png")
		assert.ErrorIs(t, err, mediastore.ErrCorruptMedia)
	})

	t.Run("corrupt mp4 is rejected", func(t *testing.T) {
		_, err := mediastore.Probe([]byte("ftypisom garbage"), "broken.mp4")
		assert.ErrorIs(t, err, mediastore.ErrCorruptMedia)
	})

	t.Run("corrupt wav is rejected", func(t *testing.T) {
		_, err := mediastore.Probe([]byte("RIFFxxxxNOPE"), "broken.wav")
		assert.ErrorIs(t, err, mediastore.ErrCorruptMedia)
	})

	t.Run("checksum is the hex sha1 of the bytes", func(t *testing.T) {
		data := []byte("checksum me")
		info, err := mediastore.Probe(data, "file.bin")
		require.NoError(t, err)
		assert.Equal(t, sha1Hex(data), info.ShaChecksum)
	})
}
