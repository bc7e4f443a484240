package exporter

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"
)

var pngSignature = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

// ihdrEnd is the offset just past the IHDR chunk, which is always first.
const ihdrEnd = 8 + 4 + 4 + 13 + 4

// withPhysicalDPI inserts a pHYs chunk after IHDR so viewers report the
// intended print resolution. image/png never writes one.
func withPhysicalDPI(data []byte, dpi float64) ([]byte, error) {
	if len(data) < ihdrEnd || !bytes.Equal(data[:8], pngSignature) || string(data[12:16]) != "IHDR" {
		return nil, errors.New("not a png stream")
	}

	ppm := uint32(dpi/0.0254 + 0.5)
	payload := make([]byte, 9)
	binary.BigEndian.PutUint32(payload[0:4], ppm)
	binary.BigEndian.PutUint32(payload[4:8], ppm)
	payload[8] = 1 // unit: metre

	chunk := make([]byte, 0, 4+4+len(payload)+4)
	chunk = binary.BigEndian.AppendUint32(chunk, uint32(len(payload)))
	chunk = append(chunk, "pHYs"...)
	chunk = append(chunk, payload...)
	chunk = binary.BigEndian.AppendUint32(chunk, crc32.ChecksumIEEE(chunk[4:]))

	out := make([]byte, 0, len(data)+len(chunk))
	out = append(out, data[:ihdrEnd]...)
	out = append(out, chunk...)
	out = append(out, data[ihdrEnd:]...)
	return out, nil
}
