package wire

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/go-errors/errors"

	"github.com/privacybydesign/ffs/internal/common"
)

// DefaultTimeout is the time a Conn waits for a single message to be sent or received.
const DefaultTimeout = 30 * time.Second

// Option configures a Conn.
type Option func(*Conn)

// WithTimeout sets the per-message timeout. Non-positive durations select DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Conn) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithCodec selects the encoding of the stream; the default is JSON.
func WithCodec(codec Codec) Option {
	return func(c *Conn) {
		if codec != nil {
			c.codec = codec
		}
	}
}

// Conn sends and receives messages over a pair of byte streams. Every Send and Recv gives up
// after the configured timeout or when its context is done, in which case the Conn is broken
// and all further calls fail with common.ErrTransport.
type Conn struct {
	codec   Codec
	timeout time.Duration
	enc     Encoder
	dec     Decoder
	closer  io.Closer

	sendMu  sync.Mutex
	sendErr error

	recvMu   sync.Mutex
	recvErr  error
	pumpOnce sync.Once
	incoming chan received

	closeOnce sync.Once
	closed    chan struct{}
	closeErr  error
}

type received struct {
	msg Message
	err error
}

// NewConn returns a Conn reading from r and writing to w. If closer is not nil it is closed
// by Close.
func NewConn(r io.Reader, w io.Writer, closer io.Closer, opts ...Option) *Conn {
	c := &Conn{
		codec:    JSON,
		timeout:  DefaultTimeout,
		closer:   closer,
		incoming: make(chan received),
		closed:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.enc = c.codec.NewEncoder(w)
	c.dec = c.codec.NewDecoder(r)
	return c
}

func (c *Conn) Codec() Codec {
	return c.codec
}

func (c *Conn) Timeout() time.Duration {
	return c.timeout
}

// Send writes msg to the stream. A message that cannot be encoded is a common.ErrProtocol and
// leaves the Conn usable; any other failure breaks it.
func (c *Conn) Send(ctx context.Context, msg Message) error {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.sendErr != nil {
		return c.sendErr
	}

	errc := make(chan error, 1)
	go func() {
		errc <- c.enc.Encode(msg)
	}()

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case err := <-errc:
		if err == nil {
			return nil
		}
		if errors.Is(err, common.ErrProtocol) {
			return err
		}
		c.sendErr = errors.WrapPrefix(common.ErrTransport, "send "+msg.Type()+": "+err.Error(), 0)
	case <-timer.C:
		c.sendErr = errors.WrapPrefix(common.ErrTransport, "timeout sending "+msg.Type(), 0)
	case <-ctx.Done():
		c.sendErr = errors.WrapPrefix(common.ErrTransport, "send "+msg.Type()+": "+ctx.Err().Error(), 0)
	case <-c.closed:
		c.sendErr = errors.WrapPrefix(common.ErrTransport, "connection closed", 0)
	}
	return c.sendErr
}

// Recv returns the next message. Malformed input is a common.ErrProtocol; a closed stream,
// a read error, a timeout or a done context is a common.ErrTransport. Either breaks the Conn.
func (c *Conn) Recv(ctx context.Context) (Message, error) {
	c.recvMu.Lock()
	defer c.recvMu.Unlock()
	if c.recvErr != nil {
		return nil, c.recvErr
	}
	c.pumpOnce.Do(func() { go c.pump() })

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case r := <-c.incoming:
		if r.err == nil {
			return r.msg, nil
		}
		switch {
		case errors.Is(r.err, common.ErrProtocol):
			c.recvErr = r.err
		case r.err == io.EOF || r.err == io.ErrUnexpectedEOF:
			c.recvErr = errors.WrapPrefix(common.ErrTransport, "stream closed by peer", 0)
		default:
			c.recvErr = errors.WrapPrefix(common.ErrTransport, "receive: "+r.err.Error(), 0)
		}
	case <-timer.C:
		c.recvErr = errors.WrapPrefix(common.ErrTransport, "timeout waiting for message", 0)
	case <-ctx.Done():
		c.recvErr = errors.WrapPrefix(common.ErrTransport, "receive: "+ctx.Err().Error(), 0)
	case <-c.closed:
		c.recvErr = errors.WrapPrefix(common.ErrTransport, "connection closed", 0)
	}
	return nil, c.recvErr
}

// pump decodes messages one at a time, each handed over to a waiting Recv, until the
// first error or until the Conn is closed.
func (c *Conn) pump() {
	for {
		msg, err := c.dec.Decode()
		select {
		case c.incoming <- received{msg: msg, err: err}:
		case <-c.closed:
			return
		}
		if err != nil {
			return
		}
	}
}

// Close releases the Conn and closes the underlying closer, if any. Pending Send and Recv
// calls return with common.ErrTransport.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		close(c.closed)
		if c.closer != nil {
			c.closeErr = c.closer.Close()
		}
	})
	return c.closeErr
}
