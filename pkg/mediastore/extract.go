package mediastore

import (
	"bytes"
	"crypto/sha1"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"image"
	"mime"
	"path"
	"strings"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// MediaInfo holds the attributes derived from an uploaded file: the resolved
// media kind, MIME type, content checksum, and the type-specific fields
// (dimensions for images and videos, duration for videos and audio).
type MediaInfo struct {
	MimeType    string
	Kind        MediaKind
	Width       int
	Height      int
	Length      int64 // duration in milliseconds
	Size        int64
	ShaChecksum string
}

var kindByExtension = map[string]MediaKind{
	"jpg":  KindImage,
	"jpeg": KindImage,
	"png":  KindImage,
	"gif":  KindImage,
	"bmp":  KindImage,
	"webp": KindImage,
	"tif":  KindImage,
	"tiff": KindImage,

	"mp4": KindVideo,
	"m4v": KindVideo,
	"mov": KindVideo,
	"avi": KindVideo,

	"wav":  KindAudio,
	"mp3":  KindAudio,
	"ogg":  KindAudio,
	"flac": KindAudio,
}

// mimeByExtension is consulted before the host's mime database so resolved
// types do not vary across deployments.
var mimeByExtension = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"bmp":  "image/bmp",
	"webp": "image/webp",
	"tif":  "image/tiff",
	"tiff": "image/tiff",

	"mp4": "video/mp4",
	"m4v": "video/x-m4v",
	"mov": "video/quicktime",
	"avi": "video/x-msvideo",

	"wav":  "audio/wav",
	"mp3":  "audio/mpeg",
	"ogg":  "audio/ogg",
	"flac": "audio/flac",

	"txt":  "text/plain",
	"pdf":  "application/pdf",
	"json": "application/json",
}

// FileExtension returns the lower-cased extension of fileName without the
// leading dot, or "" when there is none.
func FileExtension(fileName string) string {
	ext := strings.TrimPrefix(path.Ext(fileName), ".")
	return strings.ToLower(ext)
}

// KindForExtension resolves the closed media-kind variant for a file
// extension (without dot). Unknown extensions are KindOther.
func KindForExtension(ext string) MediaKind {
	if kind, ok := kindByExtension[strings.ToLower(ext)]; ok {
		return kind
	}
	return KindOther
}

// Probe derives MediaInfo from the uploaded bytes and the declared file
// name. It is deterministic and side-effect free.
//
// For images the pixel dimensions come from the decoded image header; for
// videos the container metadata is parsed for duration and frame dimensions
// (MP4/MOV and AVI); for audio the WAV header yields the duration. Plain
// files are legal and simply carry no type-specific attributes. A decode
// failure for a typed kind returns ErrCorruptMedia.
func Probe(data []byte, fileName string) (*MediaInfo, error) {
	ext := FileExtension(fileName)
	sum := sha1.Sum(data)

	info := &MediaInfo{
		Kind:        KindForExtension(ext),
		MimeType:    mimeTypeForExtension(ext),
		Size:        int64(len(data)),
		ShaChecksum: hex.EncodeToString(sum[:]),
	}

	switch info.Kind {
	case KindImage:
		cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("%w: decode %s image: %v", ErrCorruptMedia, ext, err)
		}
		info.Width = cfg.Width
		info.Height = cfg.Height

	case KindVideo:
		if err := probeVideo(data, ext, info); err != nil {
			return nil, err
		}

	case KindAudio:
		if err := probeAudio(data, ext, info); err != nil {
			return nil, err
		}
	}

	return info, nil
}

func mimeTypeForExtension(ext string) string {
	if ext != "" {
		if mt, ok := mimeByExtension[ext]; ok {
			return mt
		}
		if mt := mime.TypeByExtension("." + ext); mt != "" {
			// Strip parameters such as "; charset=utf-8"
			if i := strings.IndexByte(mt, ';'); i >= 0 {
				mt = strings.TrimSpace(mt[:i])
			}
			return mt
		}
	}
	return "application/octet-stream"
}

func probeVideo(data []byte, ext string, info *MediaInfo) error {
	var err error
	switch ext {
	case "mp4", "m4v", "mov":
		err = probeMP4(data, info)
	case "avi":
		err = probeAVI(data, info)
	}
	if err != nil {
		return fmt.Errorf("%w: probe %s container: %v", ErrCorruptMedia, ext, err)
	}
	return nil
}

func probeAudio(data []byte, ext string, info *MediaInfo) error {
	// Only WAV carries its duration in a header we parse; compressed
	// formats would need a codec library to measure reliably.
	if ext != "wav" {
		return nil
	}
	if err := probeWAV(data, info); err != nil {
		return fmt.Errorf("%w: probe wav header: %v", ErrCorruptMedia, err)
	}
	return nil
}

// probeMP4 walks the ISO base media box tree for the mvhd duration and the
// largest tkhd track dimensions.
func probeMP4(data []byte, info *MediaInfo) error {
	moov, err := findMP4Box(data, "moov")
	if err != nil {
		return err
	}

	mvhd, err := findMP4Box(moov, "mvhd")
	if err != nil {
		return err
	}
	if err := parseMVHD(mvhd, info); err != nil {
		return err
	}

	// Track boxes are optional for dimensions; a pure-audio mp4 carries no
	// track with a nonzero size.
	return walkMP4Boxes(moov, func(typ string, payload []byte) error {
		if typ != "trak" {
			return nil
		}
		tkhd, err := findMP4Box(payload, "tkhd")
		if err != nil {
			return nil
		}
		w, h, err := parseTKHD(tkhd)
		if err != nil {
			return err
		}
		if w > info.Width {
			info.Width = w
		}
		if h > info.Height {
			info.Height = h
		}
		return nil
	})
}

// walkMP4Boxes calls fn for every box at the top level of data.
func walkMP4Boxes(data []byte, fn func(typ string, payload []byte) error) error {
	for off := 0; off+8 <= len(data); {
		size := int(binary.BigEndian.Uint32(data[off : off+4]))
		typ := string(data[off+4 : off+8])
		if size < 8 || off+size > len(data) {
			return fmt.Errorf("malformed box %q at offset %d", typ, off)
		}
		if err := fn(typ, data[off+8:off+size]); err != nil {
			return err
		}
		off += size
	}
	return nil
}

// findMP4Box returns the payload of the first box with the given type at the
// top level of data.
func findMP4Box(data []byte, boxType string) ([]byte, error) {
	var found []byte
	err := walkMP4Boxes(data, func(typ string, payload []byte) error {
		if found == nil && typ == boxType {
			found = payload
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, fmt.Errorf("box %q not found", boxType)
	}
	return found, nil
}

func parseMVHD(payload []byte, info *MediaInfo) error {
	if len(payload) < 4 {
		return fmt.Errorf("short mvhd box")
	}
	version := payload[0]

	var timescale uint32
	var duration uint64
	switch version {
	case 0:
		if len(payload) < 20 {
			return fmt.Errorf("short mvhd v0 box")
		}
		timescale = binary.BigEndian.Uint32(payload[12:16])
		duration = uint64(binary.BigEndian.Uint32(payload[16:20]))
	case 1:
		if len(payload) < 32 {
			return fmt.Errorf("short mvhd v1 box")
		}
		timescale = binary.BigEndian.Uint32(payload[20:24])
		duration = binary.BigEndian.Uint64(payload[24:32])
	default:
		return fmt.Errorf("unsupported mvhd version %d", version)
	}

	if timescale == 0 {
		return fmt.Errorf("mvhd timescale is zero")
	}
	info.Length = int64(duration * 1000 / uint64(timescale))
	return nil
}

func parseTKHD(payload []byte) (width, height int, err error) {
	if len(payload) < 4 {
		return 0, 0, fmt.Errorf("short tkhd box")
	}

	// Width and height are 16.16 fixed point at the end of the box; their
	// offset depends on the box version.
	var dimOff int
	switch payload[0] {
	case 0:
		dimOff = 76
	case 1:
		dimOff = 88
	default:
		return 0, 0, fmt.Errorf("unsupported tkhd version %d", payload[0])
	}
	if len(payload) < dimOff+8 {
		return 0, 0, fmt.Errorf("short tkhd box")
	}

	width = int(binary.BigEndian.Uint32(payload[dimOff:dimOff+4]) >> 16)
	height = int(binary.BigEndian.Uint32(payload[dimOff+4:dimOff+8]) >> 16)
	return width, height, nil
}

// probeAVI reads the avih main header inside the hdrl LIST for frame timing
// and dimensions.
func probeAVI(data []byte, info *MediaInfo) error {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "AVI " {
		return fmt.Errorf("not a RIFF AVI file")
	}

	for off := 12; off+8 <= len(data); {
		chunkID := string(data[off : off+4])
		chunkSize := int(binary.LittleEndian.Uint32(data[off+4 : off+8]))
		if chunkSize < 0 || off+8+chunkSize > len(data) {
			return fmt.Errorf("malformed chunk %q at offset %d", chunkID, off)
		}

		if chunkID == "LIST" && chunkSize >= 4 && string(data[off+8:off+12]) == "hdrl" {
			return parseAVIH(data[off+12 : off+8+chunkSize], info)
		}

		off += 8 + chunkSize
		if chunkSize%2 == 1 {
			off++ // chunks are word-aligned
		}
	}

	return fmt.Errorf("hdrl list not found")
}

func parseAVIH(hdrl []byte, info *MediaInfo) error {
	if len(hdrl) < 8 || string(hdrl[0:4]) != "avih" {
		return fmt.Errorf("avih header not found")
	}
	size := int(binary.LittleEndian.Uint32(hdrl[4:8]))
	if size < 40 || len(hdrl) < 8+size {
		return fmt.Errorf("short avih header")
	}

	payload := hdrl[8 : 8+size]
	microSecPerFrame := binary.LittleEndian.Uint32(payload[0:4])
	totalFrames := binary.LittleEndian.Uint32(payload[16:20])
	info.Width = int(binary.LittleEndian.Uint32(payload[32:36]))
	info.Height = int(binary.LittleEndian.Uint32(payload[36:40]))
	info.Length = int64(microSecPerFrame) * int64(totalFrames) / 1000
	return nil
}

// probeWAV derives the duration from the fmt chunk's byte rate and the data
// chunk's size.
func probeWAV(data []byte, info *MediaInfo) error {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return fmt.Errorf("not a RIFF WAVE file")
	}

	var byteRate uint32
	var dataSize int64

	for off := 12; off+8 <= len(data); {
		chunkID := string(data[off : off+4])
		chunkSize := int(binary.LittleEndian.Uint32(data[off+4 : off+8]))
		if chunkSize < 0 || off+8+chunkSize > len(data) {
			return fmt.Errorf("malformed chunk %q at offset %d", chunkID, off)
		}

		switch chunkID {
		case "fmt ":
			if chunkSize < 16 {
				return fmt.Errorf("short fmt chunk")
			}
			byteRate = binary.LittleEndian.Uint32(data[off+16 : off+20])
		case "data":
			dataSize = int64(chunkSize)
		}

		off += 8 + chunkSize
		if chunkSize%2 == 1 {
			off++
		}
	}

	if byteRate == 0 {
		return fmt.Errorf("fmt chunk missing or byte rate is zero")
	}
	info.Length = dataSize * 1000 / int64(byteRate)
	return nil
}
