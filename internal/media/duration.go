package media

import (
	"encoding/binary"
	"io"
	"os"
)

// ProbeDuration reads the duration of an MP4 file in whole seconds from
// its movie header. Any parse problem yields 0; the pipeline treats the
// duration as best-effort metadata.
func ProbeDuration(path string) int {
	f, err := os.Open(path)
	if err != nil {
		return 0
	}
	defer f.Close()

	moov, err := findBox(f, "moov")
	if err != nil {
		return 0
	}

	mvhd, err := findBox(io.LimitReader(f, moov), "mvhd")
	if err != nil {
		return 0
	}

	return readMvhdDuration(io.LimitReader(f, mvhd))
}

// findBox walks top-level boxes in r until it reaches one with the
// given type, returning the size of its payload. The reader is left
// positioned at the start of that payload.
func findBox(r io.Reader, boxType string) (int64, error) {
	header := make([]byte, 8)
	for {
		if _, err := io.ReadFull(r, header); err != nil {
			return 0, err
		}

		size := int64(binary.BigEndian.Uint32(header[:4]))
		payload := size - 8

		if size == 1 {
			// 64-bit largesize follows the type field
			ext := make([]byte, 8)
			if _, err := io.ReadFull(r, ext); err != nil {
				return 0, err
			}
			payload = int64(binary.BigEndian.Uint64(ext)) - 16
		}
		if payload < 0 {
			return 0, io.ErrUnexpectedEOF
		}

		if string(header[4:8]) == boxType {
			return payload, nil
		}
		if _, err := io.CopyN(io.Discard, r, payload); err != nil {
			return 0, err
		}
	}
}

// readMvhdDuration decodes timescale and duration from an mvhd payload.
// Version 0 uses 32-bit fields, version 1 uses 64-bit.
func readMvhdDuration(r io.Reader) int {
	buf := make([]byte, 32)
	if _, err := io.ReadFull(r, buf); err != nil {
		return 0
	}

	version := buf[0]
	var timescale, duration uint64
	switch version {
	case 0:
		// 1 version + 3 flags + 4 created + 4 modified
		timescale = uint64(binary.BigEndian.Uint32(buf[12:16]))
		duration = uint64(binary.BigEndian.Uint32(buf[16:20]))
	case 1:
		// 1 version + 3 flags + 8 created + 8 modified
		timescale = uint64(binary.BigEndian.Uint32(buf[20:24]))
		duration = binary.BigEndian.Uint64(buf[24:32])
	default:
		return 0
	}

	if timescale == 0 {
		return 0
	}
	return int(duration / timescale)
}
