package protocol

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/OCharnyshevich/voxel-server/pkg/world/chunk"
)

// MaxPacketSize bounds the length prefix of a single packet.
const MaxPacketSize = 1 << 21

type Packet interface {
	PacketID() int32
}

func ReadRawPacket(r io.Reader) (packetID int32, data []byte, err error) {
	length, _, err := ReadVarInt(r)
	if err != nil {
		return 0, nil, fmt.Errorf("read packet length: %w", err)
	}
	if length < 1 {
		return 0, nil, fmt.Errorf("packet length too small: %d", length)
	}
	if length > MaxPacketSize {
		return 0, nil, fmt.Errorf("packet too large: %d bytes", length)
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return 0, nil, fmt.Errorf("read packet payload: %w", err)
	}

	buf := bytes.NewReader(payload)
	packetID, n, err := ReadVarInt(buf)
	if err != nil {
		return 0, nil, fmt.Errorf("read packet ID: %w", err)
	}
	return packetID, payload[n:], nil
}

func WriteRawPacket(w io.Writer, packetID int32, data []byte) error {
	idSize := VarIntSize(packetID)
	totalLen := idSize + len(data)
	if totalLen > MaxPacketSize {
		return fmt.Errorf("packet 0x%02X too large: %d bytes", packetID, totalLen)
	}

	var buf bytes.Buffer
	buf.Grow(VarIntSize(int32(totalLen)) + totalLen)

	if _, err := WriteVarInt(&buf, int32(totalLen)); err != nil {
		return fmt.Errorf("write packet length: %w", err)
	}
	if _, err := WriteVarInt(&buf, packetID); err != nil {
		return fmt.Errorf("write packet ID: %w", err)
	}
	if _, err := buf.Write(data); err != nil {
		return fmt.Errorf("write packet data: %w", err)
	}

	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("flush packet: %w", err)
	}
	return nil
}

func WritePacket(w io.Writer, p Packet) error {
	data, err := Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal packet 0x%02X: %w", p.PacketID(), err)
	}
	return WriteRawPacket(w, p.PacketID(), data)
}

func ReadPacket(r io.Reader, p Packet) error {
	packetID, data, err := ReadRawPacket(r)
	if err != nil {
		return err
	}
	if packetID != p.PacketID() {
		return fmt.Errorf("expected packet 0x%02X, got 0x%02X", p.PacketID(), packetID)
	}
	return Unmarshal(data, p)
}

func WriteField(w io.Writer, tag string, val any) error {
	switch tag {
	case "varint":
		_, err := WriteVarInt(w, val.(int32))
		return err
	case "i8":
		return binary.Write(w, binary.BigEndian, val.(int8))
	case "u32":
		return binary.Write(w, binary.BigEndian, val.(uint32))
	case "i64":
		return binary.Write(w, binary.BigEndian, val.(int64))
	case "f32":
		return binary.Write(w, binary.BigEndian, val.(float32))
	case "bytearray":
		_, err := WriteByteArray(w, val.([]byte))
		return err
	case "runs":
		return writeRuns(w, val.([]chunk.Run))
	default:
		return fmt.Errorf("unknown field tag: %q", tag)
	}
}

func ReadField(r io.Reader, tag string) (any, error) {
	switch tag {
	case "varint":
		v, _, err := ReadVarInt(r)
		return v, err
	case "i8":
		return ReadI8(r)
	case "u32":
		return ReadU32(r)
	case "i64":
		return ReadI64(r)
	case "f32":
		return ReadF32(r)
	case "bytearray":
		return ReadByteArray(r)
	case "runs":
		return readRuns(r)
	default:
		return nil, fmt.Errorf("unknown field tag: %q", tag)
	}
}

// writeRuns writes a varint run count followed by (u16 length, u16 block) pairs.
func writeRuns(w io.Writer, runs []chunk.Run) error {
	if _, err := WriteVarInt(w, int32(len(runs))); err != nil {
		return err
	}
	buf := make([]byte, 4*len(runs))
	for i, run := range runs {
		binary.BigEndian.PutUint16(buf[4*i:], run.Length)
		binary.BigEndian.PutUint16(buf[4*i+2:], run.Block)
	}
	_, err := w.Write(buf)
	return err
}

func readRuns(r io.Reader) ([]chunk.Run, error) {
	n, _, err := ReadVarInt(r)
	if err != nil {
		return nil, fmt.Errorf("read run count: %w", err)
	}
	// A well-formed chunk never needs more runs than it has cells.
	if n < 0 || n > chunk.Volume {
		return nil, fmt.Errorf("run count out of range: %d: %w", n, chunk.ErrCorruptChunkData)
	}
	buf := make([]byte, 4*int(n))
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("read runs: %w", err)
	}
	runs := make([]chunk.Run, n)
	for i := range runs {
		runs[i] = chunk.Run{
			Length: binary.BigEndian.Uint16(buf[4*i:]),
			Block:  binary.BigEndian.Uint16(buf[4*i+2:]),
		}
	}
	return runs, nil
}
