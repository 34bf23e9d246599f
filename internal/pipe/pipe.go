// Package pipe carries protocol frames over one local duplex channel: a
// named pipe on Windows and a unix socket elsewhere.
package pipe

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"go.uber.org/zap"

	"overlay/internal/protocol"
)

// DefaultQueueSize is the number of decoded inbound frames buffered ahead of Pull.
const DefaultQueueSize = 256

// Conn is one end of the overlay channel. Push writes a frame synchronously;
// Pull returns the next decoded inbound frame without blocking.
type Conn struct {
	conn net.Conn
	log  *zap.Logger

	writeMu sync.Mutex

	frames  chan protocol.Frame
	closing chan struct{}
	done    chan struct{}

	errMu   sync.Mutex
	readErr error

	closeOnce sync.Once
}

// NewConn wraps c and starts its background reader. queueSize <= 0 selects
// DefaultQueueSize.
func NewConn(c net.Conn, queueSize int, logger *zap.Logger) *Conn {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	pc := &Conn{
		conn:    c,
		log:     logger.Named("pipe"),
		frames:  make(chan protocol.Frame, queueSize),
		closing: make(chan struct{}),
		done:    make(chan struct{}),
	}
	go pc.readLoop()
	return pc
}

func (c *Conn) readLoop() {
	defer close(c.done)
	r := bufio.NewReader(c.conn)
	for {
		f, err := protocol.ReadFrame(r)
		if err != nil {
			c.setErr(err)
			return
		}
		select {
		case c.frames <- f:
		case <-c.closing:
			c.setErr(ErrClosed)
			return
		}
	}
}

func (c *Conn) setErr(err error) {
	select {
	case <-c.closing:
		err = ErrClosed
	default:
		if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
			err = fmt.Errorf("pipe: peer disconnected: %w", err)
		}
		c.log.Debug("Reader stopped", zap.Error(err))
	}
	c.errMu.Lock()
	c.readErr = err
	c.errMu.Unlock()
}

// Push writes one encoded frame. The call returns once the frame has been
// handed to the OS.
func (c *Conn) Push(frame []byte) error {
	select {
	case <-c.closing:
		return ErrClosed
	default:
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if _, err := c.conn.Write(frame); err != nil {
		return fmt.Errorf("pipe: write: %w", err)
	}
	return nil
}

// Pull returns the next inbound frame, ErrEmpty when none is queued, or the
// error that stopped the reader once every queued frame has been consumed.
func (c *Conn) Pull() (protocol.Frame, error) {
	select {
	case f := <-c.frames:
		return f, nil
	default:
	}

	select {
	case <-c.done:
	default:
		return protocol.Frame{}, ErrEmpty
	}

	// The reader may have queued a last frame just before it stopped.
	select {
	case f := <-c.frames:
		return f, nil
	default:
	}
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return protocol.Frame{}, c.readErr
}

// Close closes the channel and waits for the reader to exit.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closing)
		err = c.conn.Close()
		<-c.done
	})
	return err
}
