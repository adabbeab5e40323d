package recording

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/banshee-data/depthdust/internal/depth"
)

// EncodeFrame compresses the frame's samples as gzip over little-endian
// uint16 values in row-major order. The frame size is stored alongside the
// blob, not in it.
func EncodeFrame(f *depth.Frame) ([]byte, error) {
	samples := make([]uint16, f.Len())
	f.ReadSamples(samples)

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if err := binary.Write(gz, binary.LittleEndian, samples); err != nil {
		return nil, fmt.Errorf("failed to encode frame: %w", err)
	}
	if err := gz.Close(); err != nil {
		return nil, fmt.Errorf("failed to close gzip writer: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeFrameInto decompresses blob into dst. The blob must hold exactly
// dst.Len() samples.
func DecodeFrameInto(dst *depth.Frame, blob []byte) error {
	gz, err := gzip.NewReader(bytes.NewReader(blob))
	if err != nil {
		return fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gz.Close()

	samples := make([]uint16, dst.Len())
	if err := binary.Read(gz, binary.LittleEndian, samples); err != nil {
		return fmt.Errorf("failed to decode frame: %w", err)
	}
	var extra [1]byte
	if n, err := gz.Read(extra[:]); n > 0 || !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to decode frame: trailing data")
	}
	return dst.WriteSamples(samples)
}
