package protocol

import (
	"encoding/binary"
	"fmt"
)

// RedrawEvent describes a dirty sub-rectangle of a 32bpp framebuffer.
type RedrawEvent struct {
	// Bits is the whole framebuffer, Width*Height*4 bytes, rows top to bottom.
	Bits   []byte
	Width  uint32
	Height uint32

	SubsetLeft   uint32
	SubsetTop    uint32
	SubsetWidth  uint32
	SubsetHeight uint32
}

// Encoder builds frames into a reusable buffer. The buffer only ever grows,
// so steady-state encoding does not allocate. Slices returned by the Encode
// methods are valid until the next call. An Encoder is not safe for
// concurrent use.
type Encoder struct {
	buf []byte
}

// NewEncoder returns an encoder with an empty buffer.
func NewEncoder() *Encoder {
	return &Encoder{}
}

// Cap reports the current buffer capacity.
func (e *Encoder) Cap() int {
	return cap(e.buf)
}

// frame sizes the buffer for a payload of n bytes, writes the header and
// returns the payload region.
func (e *Encoder) frame(t Type, n int) []byte {
	size := HeaderSize + n
	if cap(e.buf) < size {
		e.buf = make([]byte, size)
	}
	e.buf = e.buf[:size]
	binary.LittleEndian.PutUint32(e.buf[0:4], uint32(t))
	binary.LittleEndian.PutUint32(e.buf[4:8], uint32(n))
	return e.buf[HeaderSize:]
}

// EncodeStatus encodes a status change.
func (e *Encoder) EncodeStatus(s Status) []byte {
	p := e.frame(TypeStatus, statusSize)
	p[0], p[1] = boolByte(s.Show), boolByte(s.Shield)
	return e.buf
}

// EncodePaint copies the event's sub-rectangle row by row into a paint frame.
func (e *Encoder) EncodePaint(ev RedrawEvent) ([]byte, error) {
	if err := ev.validate(); err != nil {
		return nil, err
	}

	rowBytes := int(ev.SubsetWidth) * bytesPerPixel
	p := e.frame(TypePaint, paintRectSize+rowBytes*int(ev.SubsetHeight))
	binary.LittleEndian.PutUint32(p[0:4], ev.SubsetLeft)
	binary.LittleEndian.PutUint32(p[4:8], ev.SubsetTop)
	binary.LittleEndian.PutUint32(p[8:12], ev.SubsetWidth)
	binary.LittleEndian.PutUint32(p[12:16], ev.SubsetHeight)

	stride := int(ev.Width) * bytesPerPixel
	dst := p[paintRectSize:]
	src := int(ev.SubsetTop)*stride + int(ev.SubsetLeft)*bytesPerPixel
	for row := 0; row < int(ev.SubsetHeight); row++ {
		copy(dst[row*rowBytes:(row+1)*rowBytes], ev.Bits[src:src+rowBytes])
		src += stride
	}
	return e.buf, nil
}

func (ev RedrawEvent) validate() error {
	right := uint64(ev.SubsetLeft) + uint64(ev.SubsetWidth)
	bottom := uint64(ev.SubsetTop) + uint64(ev.SubsetHeight)
	if right > uint64(ev.Width) || bottom > uint64(ev.Height) {
		return fmt.Errorf("%w: %dx%d+%d+%d in %dx%d", ErrRectOutOfBounds,
			ev.SubsetWidth, ev.SubsetHeight, ev.SubsetLeft, ev.SubsetTop, ev.Width, ev.Height)
	}
	if need := uint64(ev.Width) * uint64(ev.Height) * bytesPerPixel; uint64(len(ev.Bits)) < need {
		return fmt.Errorf("%w: framebuffer has %d bytes, need %d", ErrRectOutOfBounds, len(ev.Bits), need)
	}
	if paintRectSize+uint64(ev.SubsetWidth)*uint64(ev.SubsetHeight)*bytesPerPixel > MaxPayload {
		return fmt.Errorf("%w: %dx%d paint", ErrFrameTooLarge, ev.SubsetWidth, ev.SubsetHeight)
	}
	return nil
}

// EncodeMouse encodes a forwarded mouse message.
func (e *Encoder) EncodeMouse(m Mouse) []byte {
	p := e.frame(TypeMouse, mouseSize)
	binary.LittleEndian.PutUint32(p[0:4], m.Message)
	binary.LittleEndian.PutUint32(p[4:8], m.WParam)
	binary.LittleEndian.PutUint32(p[8:12], uint32(m.X))
	binary.LittleEndian.PutUint32(p[12:16], uint32(m.Y))
	binary.LittleEndian.PutUint32(p[16:20], m.Time)
	return e.buf
}

// EncodeKey encodes a forwarded keyboard message.
func (e *Encoder) EncodeKey(k Key) []byte {
	p := e.frame(TypeKey, keySize)
	binary.LittleEndian.PutUint32(p[0:4], k.Message)
	binary.LittleEndian.PutUint32(p[4:8], k.WParam)
	binary.LittleEndian.PutUint32(p[8:12], k.LParam)
	binary.LittleEndian.PutUint32(p[12:16], k.Time)
	return e.buf
}

// EncodeHotKey encodes a hotkey notification.
func (e *Encoder) EncodeHotKey() []byte {
	e.frame(TypeHotKey, 0)
	return e.buf
}

// EncodeSurface encodes the renderer's surface size.
func (e *Encoder) EncodeSurface(sf Surface) []byte {
	p := e.frame(TypeSurface, surfaceSize)
	binary.LittleEndian.PutUint32(p[0:4], sf.Width)
	binary.LittleEndian.PutUint32(p[4:8], sf.Height)
	return e.buf
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
