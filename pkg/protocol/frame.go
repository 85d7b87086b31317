package protocol

import (
	"bytes"
	"fmt"

	"github.com/klauspost/compress/zstd"
)

const (
	frameRaw  byte = 0
	frameZstd byte = 1
)

// EncodePacket returns p with the length-prefixed packet framing.
func EncodePacket(p Packet) ([]byte, error) {
	var buf bytes.Buffer
	if err := WritePacket(&buf, p); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodePacket splits one framed packet into its id and payload.
func DecodePacket(frame []byte) (int32, []byte, error) {
	r := bytes.NewReader(frame)
	id, data, err := ReadRawPacket(r)
	if err != nil {
		return 0, nil, err
	}
	if r.Len() != 0 {
		return 0, nil, fmt.Errorf("packet 0x%02X: %d trailing bytes: %w", id, r.Len(), ErrBadShape)
	}
	return id, data, nil
}

// Compressor wraps framed packets in a one-byte envelope for transport. Frames of
// at least threshold bytes are zstd-compressed; a negative threshold disables compression.
// It is safe for concurrent use.
type Compressor struct {
	threshold int
	enc       *zstd.Encoder
	dec       *zstd.Decoder
}

func NewCompressor(threshold int) (*Compressor, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(4*MaxPacketSize))
	if err != nil {
		enc.Close()
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	return &Compressor{threshold: threshold, enc: enc, dec: dec}, nil
}

// Seal returns the envelope for frame.
func (c *Compressor) Seal(frame []byte) []byte {
	if c.threshold < 0 || len(frame) < c.threshold {
		out := make([]byte, 0, len(frame)+1)
		out = append(out, frameRaw)
		return append(out, frame...)
	}
	out := make([]byte, 1, len(frame)/2+1)
	out[0] = frameZstd
	return c.enc.EncodeAll(frame, out)
}

// Open reverses Seal.
func (c *Compressor) Open(msg []byte) ([]byte, error) {
	if len(msg) == 0 {
		return nil, fmt.Errorf("empty envelope: %w", ErrBadShape)
	}
	switch msg[0] {
	case frameRaw:
		return msg[1:], nil
	case frameZstd:
		frame, err := c.dec.DecodeAll(msg[1:], nil)
		if err != nil {
			return nil, fmt.Errorf("decompress frame: %w", err)
		}
		return frame, nil
	default:
		return nil, fmt.Errorf("envelope flag %d: %w", msg[0], ErrBadShape)
	}
}

func (c *Compressor) Close() {
	c.enc.Close()
	c.dec.Close()
}
