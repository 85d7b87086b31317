package protocol

import (
	"errors"
	"fmt"
	"math"

	"github.com/OCharnyshevich/voxel-server/pkg/player"
	"github.com/OCharnyshevich/voxel-server/pkg/world/chunk"
)

var (
	// ErrUnknownPacket is returned for a packet id with no registered message.
	ErrUnknownPacket = errors.New("unknown packet")
	// ErrBadShape is returned for a message whose fields are out of range.
	ErrBadShape = errors.New("malformed message")
)

// MaxRenderDistance is the largest render distance a client may request, in chunks.
const MaxRenderDistance = 32

// Clientbound packet ids.
const (
	GameDataID      int32 = 0x00
	CurrentIDID     int32 = 0x01
	UpdatePhysicsID int32 = 0x02
	ChunkDataID     int32 = 0x03
)

// Serverbound packet ids.
const (
	UpdateInputID       int32 = 0x00
	SetRenderDistanceID int32 = 0x01
)

// GameData carries the encoded block registry, sent once on connect.
type GameData struct {
	Data []byte `mc:"bytearray"`
}

func (GameData) PacketID() int32 { return GameDataID }

// CurrentID tells a client which player it controls.
type CurrentID struct {
	ID uint32 `mc:"u32"`
}

func (CurrentID) PacketID() int32 { return CurrentIDID }

// UpdatePhysics carries the encoded authoritative physics state.
type UpdatePhysics struct {
	State []byte `mc:"bytearray"`
}

func (UpdatePhysics) PacketID() int32 { return UpdatePhysicsID }

type ChunkData struct {
	X    int64       `mc:"i64"`
	Y    int64       `mc:"i64"`
	Z    int64       `mc:"i64"`
	Runs []chunk.Run `mc:"runs"`
}

func (ChunkData) PacketID() int32 { return ChunkDataID }

func NewChunkData(cc *chunk.Compressed) *ChunkData {
	return &ChunkData{X: cc.Pos.X, Y: cc.Pos.Y, Z: cc.Pos.Z, Runs: cc.Runs}
}

// Compressed returns the run-length chunk carried by the packet.
func (p *ChunkData) Compressed() *chunk.Compressed {
	return &chunk.Compressed{Pos: chunk.Pos{X: p.X, Y: p.Y, Z: p.Z}, Runs: p.Runs}
}

// UpdateInput is the client's current control state. Axis values are -1, 0 or 1.
type UpdateInput struct {
	Forward int8    `mc:"i8"`
	Right   int8    `mc:"i8"`
	Up      int8    `mc:"i8"`
	Yaw     float32 `mc:"f32"`
	Pitch   float32 `mc:"f32"`
}

func (UpdateInput) PacketID() int32 { return UpdateInputID }

func NewUpdateInput(in player.Input) *UpdateInput {
	return &UpdateInput{Forward: in.Forward, Right: in.Right, Up: in.Up, Yaw: in.Yaw, Pitch: in.Pitch}
}

func (p *UpdateInput) Input() player.Input {
	return player.Input{Forward: p.Forward, Right: p.Right, Up: p.Up, Yaw: p.Yaw, Pitch: p.Pitch}
}

func (p *UpdateInput) validate() error {
	for _, axis := range []int8{p.Forward, p.Right, p.Up} {
		if axis < -1 || axis > 1 {
			return fmt.Errorf("input axis %d: %w", axis, ErrBadShape)
		}
	}
	for _, a := range []float32{p.Yaw, p.Pitch} {
		f := float64(a)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("input angle %v: %w", a, ErrBadShape)
		}
	}
	return nil
}

type SetRenderDistance struct {
	Horizontal int32 `mc:"varint"`
	Vertical   int32 `mc:"varint"`
}

func (SetRenderDistance) PacketID() int32 { return SetRenderDistanceID }

func NewSetRenderDistance(rd player.RenderDistance) *SetRenderDistance {
	return &SetRenderDistance{Horizontal: int32(rd.Horizontal), Vertical: int32(rd.Vertical)}
}

func (p *SetRenderDistance) RenderDistance() player.RenderDistance {
	return player.RenderDistance{Horizontal: int64(p.Horizontal), Vertical: int64(p.Vertical)}
}

func (p *SetRenderDistance) validate() error {
	for _, r := range []int32{p.Horizontal, p.Vertical} {
		if r < 0 || r > MaxRenderDistance {
			return fmt.Errorf("render distance %d: %w", r, ErrBadShape)
		}
	}
	return nil
}

// DecodeServerbound decodes a packet sent by a client and applies shape checks.
func DecodeServerbound(id int32, data []byte) (Packet, error) {
	switch id {
	case UpdateInputID:
		p := &UpdateInput{}
		if err := Unmarshal(data, p); err != nil {
			return nil, err
		}
		if err := p.validate(); err != nil {
			return nil, err
		}
		return p, nil
	case SetRenderDistanceID:
		p := &SetRenderDistance{}
		if err := Unmarshal(data, p); err != nil {
			return nil, err
		}
		if err := p.validate(); err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("serverbound 0x%02X: %w", id, ErrUnknownPacket)
	}
}

// DecodeClientbound decodes a packet sent by the server.
func DecodeClientbound(id int32, data []byte) (Packet, error) {
	var p Packet
	switch id {
	case GameDataID:
		p = &GameData{}
	case CurrentIDID:
		p = &CurrentID{}
	case UpdatePhysicsID:
		p = &UpdatePhysics{}
	case ChunkDataID:
		p = &ChunkData{}
	default:
		return nil, fmt.Errorf("clientbound 0x%02X: %w", id, ErrUnknownPacket)
	}
	if err := Unmarshal(data, p); err != nil {
		return nil, err
	}
	return p, nil
}
