// Package protocol implements the binary frames exchanged between the host
// hook and the overlay renderer.
package protocol

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Type tags a frame.
type Type uint32

// Frame types.
const (
	TypeStatus  Type = 1
	TypePaint   Type = 2
	TypeMouse   Type = 3
	TypeKey     Type = 4
	TypeHotKey  Type = 5
	TypeSurface Type = 6
)

func (t Type) String() string {
	switch t {
	case TypeStatus:
		return "status"
	case TypePaint:
		return "paint"
	case TypeMouse:
		return "mouse"
	case TypeKey:
		return "key"
	case TypeHotKey:
		return "hotkey"
	case TypeSurface:
		return "surface"
	}
	return fmt.Sprintf("type(%d)", uint32(t))
}

// Header: [type(4)] [length(4)] = 8 bytes, little-endian.
const HeaderSize = 8

// MaxPayload bounds the payload a peer may announce.
const MaxPayload = 64 << 20

// Payload sizes per type.
//
//	Status (1): show(u8) + shield(u8)                                     = 2 bytes
//	Paint  (2): left(u32) + top(u32) + width(u32) + height(u32) + pixels = 16 + h*w*4 bytes
//	Mouse  (3): msg(u32) + wparam(u32) + x(i32) + y(i32) + time(u32)      = 20 bytes
//	Key    (4): msg(u32) + wparam(u32) + lparam(u32) + time(u32)          = 16 bytes
//	HotKey (5): empty
//	Surface(6): width(u32) + height(u32)                                  = 8 bytes
const (
	statusSize    = 2
	paintRectSize = 16
	mouseSize     = 20
	keySize       = 16
	surfaceSize   = 8
	bytesPerPixel = 4
)

// Frame is one decoded message. Payload aliases the buffer it was read into.
type Frame struct {
	Type    Type
	Payload []byte
}

// Status reports whether the overlay is shown and whether it owns input.
type Status struct {
	Show   bool
	Shield bool
}

// Paint is a dirty rectangle of 32bpp pixels, packed row by row.
type Paint struct {
	Left, Top     uint32
	Width, Height uint32
	Pixels        []byte
}

// Surface is the renderer's surface size, sent once when a session opens.
type Surface struct {
	Width, Height uint32
}

// Mouse is a forwarded mouse message in overlay coordinates.
type Mouse struct {
	Message uint32
	WParam  uint32
	X, Y    int32
	Time    uint32
}

// Key is a forwarded keyboard message.
type Key struct {
	Message uint32
	WParam  uint32
	LParam  uint32
	Time    uint32
}

// ReadFrame reads one frame from r. The returned payload is freshly allocated.
func ReadFrame(r io.Reader) (Frame, error) {
	var hdr [HeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return Frame{}, err
	}

	f := Frame{Type: Type(binary.LittleEndian.Uint32(hdr[0:4]))}
	size := binary.LittleEndian.Uint32(hdr[4:8])
	if size > MaxPayload {
		return Frame{}, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, size)
	}
	if err := checkSize(f.Type, size); err != nil {
		return Frame{}, err
	}

	f.Payload = make([]byte, size)
	if _, err := io.ReadFull(r, f.Payload); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return Frame{}, err
	}
	return f, nil
}

// Decode parses one frame from the front of data and returns the number of
// bytes it consumed.
func Decode(data []byte) (Frame, int, error) {
	if len(data) < HeaderSize {
		return Frame{}, 0, ErrShortFrame
	}
	f := Frame{Type: Type(binary.LittleEndian.Uint32(data[0:4]))}
	size := binary.LittleEndian.Uint32(data[4:8])
	if size > MaxPayload {
		return Frame{}, 0, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, size)
	}
	if err := checkSize(f.Type, size); err != nil {
		return Frame{}, 0, err
	}
	end := HeaderSize + int(size)
	if len(data) < end {
		return Frame{}, 0, ErrShortFrame
	}
	f.Payload = data[HeaderSize:end]
	return f, end, nil
}

func checkSize(t Type, size uint32) error {
	var want uint32
	switch t {
	case TypeStatus:
		want = statusSize
	case TypeMouse:
		want = mouseSize
	case TypeKey:
		want = keySize
	case TypeHotKey:
		want = 0
	case TypeSurface:
		want = surfaceSize
	case TypePaint:
		if size < paintRectSize {
			return fmt.Errorf("%w: paint payload %d bytes", ErrShortFrame, size)
		}
		return nil
	default:
		return fmt.Errorf("%w: %d", ErrUnknownType, uint32(t))
	}
	if size != want {
		return fmt.Errorf("%w: %s payload %d bytes, want %d", ErrShortFrame, t, size, want)
	}
	return nil
}

func (f Frame) expect(t Type, size int) error {
	if f.Type != t {
		return fmt.Errorf("%w: have %s, want %s", ErrWrongType, f.Type, t)
	}
	if len(f.Payload) < size {
		return fmt.Errorf("%w: %s payload %d bytes", ErrShortFrame, t, len(f.Payload))
	}
	return nil
}

// Status decodes a status frame.
func (f Frame) Status() (Status, error) {
	if err := f.expect(TypeStatus, statusSize); err != nil {
		return Status{}, err
	}
	return Status{Show: f.Payload[0] != 0, Shield: f.Payload[1] != 0}, nil
}

// Paint decodes a paint frame. Pixels aliases the frame payload.
func (f Frame) Paint() (Paint, error) {
	if err := f.expect(TypePaint, paintRectSize); err != nil {
		return Paint{}, err
	}
	p := f.Payload
	out := Paint{
		Left:   binary.LittleEndian.Uint32(p[0:4]),
		Top:    binary.LittleEndian.Uint32(p[4:8]),
		Width:  binary.LittleEndian.Uint32(p[8:12]),
		Height: binary.LittleEndian.Uint32(p[12:16]),
		Pixels: p[paintRectSize:],
	}
	if uint64(len(out.Pixels)) != uint64(out.Width)*uint64(out.Height)*bytesPerPixel {
		return Paint{}, fmt.Errorf("%w: %dx%d paint carries %d pixel bytes",
			ErrShortFrame, out.Width, out.Height, len(out.Pixels))
	}
	return out, nil
}

// Mouse decodes a mouse frame.
func (f Frame) Mouse() (Mouse, error) {
	if err := f.expect(TypeMouse, mouseSize); err != nil {
		return Mouse{}, err
	}
	p := f.Payload
	return Mouse{
		Message: binary.LittleEndian.Uint32(p[0:4]),
		WParam:  binary.LittleEndian.Uint32(p[4:8]),
		X:       int32(binary.LittleEndian.Uint32(p[8:12])),
		Y:       int32(binary.LittleEndian.Uint32(p[12:16])),
		Time:    binary.LittleEndian.Uint32(p[16:20]),
	}, nil
}

// Key decodes a key frame.
func (f Frame) Key() (Key, error) {
	if err := f.expect(TypeKey, keySize); err != nil {
		return Key{}, err
	}
	p := f.Payload
	return Key{
		Message: binary.LittleEndian.Uint32(p[0:4]),
		WParam:  binary.LittleEndian.Uint32(p[4:8]),
		LParam:  binary.LittleEndian.Uint32(p[8:12]),
		Time:    binary.LittleEndian.Uint32(p[12:16]),
	}, nil
}

// Surface decodes a surface frame.
func (f Frame) Surface() (Surface, error) {
	if err := f.expect(TypeSurface, surfaceSize); err != nil {
		return Surface{}, err
	}
	return Surface{
		Width:  binary.LittleEndian.Uint32(f.Payload[0:4]),
		Height: binary.LittleEndian.Uint32(f.Payload[4:8]),
	}, nil
}
