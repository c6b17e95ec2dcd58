// Package wayland implements just enough of the core Wayland wire protocol
// and the zwlr_data_control_v1 protocol extension to observe and receive
// clipboard selections, modelled on the request/event framing used by
// wayland-client and grounded in this repository's own hand-rolled
// line-JSON wire format for its other transport (see internal/ipc). No
// Wayland client library exists anywhere in the reachable ecosystem
// reference set, so the wire format itself is implemented directly on the
// standard library plus golang.org/x/sys/unix for SCM_RIGHTS fd passing.
package wayland

import (
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sys/unix"
)

// ErrNoDisplay is returned by dial when WAYLAND_DISPLAY is not an absolute
// path and XDG_RUNTIME_DIR is unset, so no compositor socket path can be formed.
var ErrNoDisplay = errors.New("wayland: no display socket found")

const displayObjectID uint32 = 1

// event is one decoded Wayland wire message: a sender object, an opcode,
// its argument bytes, and any file descriptors carried alongside it via
// ancillary data.
type event struct {
	Sender uint32
	Opcode uint16
	Args   []byte
	Fds    []int
}

// conn is a raw Wayland protocol connection: object ID allocation plus
// framed request/event read-write over a Unix domain socket.
type conn struct {
	uc *net.UnixConn

	mu     sync.Mutex
	nextID uint32
}

// dial connects to the compositor's Wayland socket, resolved the same way
// libwayland resolves it: WAYLAND_DISPLAY as an absolute path, or relative
// to XDG_RUNTIME_DIR, defaulting to "wayland-0".
func dial() (*conn, error) {
	path, err := displaySocketPath()
	if err != nil {
		return nil, err
	}
	addr, err := net.ResolveUnixAddr("unix", path)
	if err != nil {
		return nil, fmt.Errorf("wayland: resolve socket %s: %w", path, err)
	}
	uc, err := net.DialUnix("unix", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("wayland: dial %s: %w", path, err)
	}
	return &conn{uc: uc, nextID: 2}, nil
}

func displaySocketPath() (string, error) {
	name := os.Getenv("WAYLAND_DISPLAY")
	if name == "" {
		name = "wayland-0"
	}
	if filepath.IsAbs(name) {
		return name, nil
	}
	runtimeDir := os.Getenv("XDG_RUNTIME_DIR")
	if runtimeDir == "" {
		return "", ErrNoDisplay
	}
	return filepath.Join(runtimeDir, name), nil
}

func (c *conn) allocID() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	return id
}

func (c *conn) Close() error {
	return c.uc.Close()
}

// sendRequest writes one framed request: an 8-byte header (sender id,
// opcode, message length) followed by the pre-encoded argument words, with
// any fd arguments passed out-of-band via SCM_RIGHTS.
func (c *conn) sendRequest(sender uint32, opcode uint16, args []byte, fds []int) error {
	size := 8 + len(args)
	if size > 0xffff {
		return fmt.Errorf("wayland: request too large (%d bytes)", size)
	}
	header := make([]byte, 8)
	binary.LittleEndian.PutUint32(header[0:4], sender)
	binary.LittleEndian.PutUint32(header[4:8], uint32(opcode)|uint32(size)<<16)

	msg := append(header, args...)

	var oob []byte
	if len(fds) > 0 {
		oob = unix.UnixRights(fds...)
	}

	_, _, err := c.uc.WriteMsgUnix(msg, oob, nil)
	if err != nil {
		return fmt.Errorf("wayland: write request: %w", err)
	}
	return nil
}

// readEvent blocks for the next complete event, decoding its header and
// argument bytes and collecting any fds delivered via ancillary data.
func (c *conn) readEvent() (event, error) {
	header := make([]byte, 8)
	oobBuf := make([]byte, unix.CmsgSpace(4*4)) // headroom for a handful of fds
	var oob []byte

	if err := c.readFull(header, oobBuf, &oob); err != nil {
		return event{}, err
	}

	sender := binary.LittleEndian.Uint32(header[0:4])
	word := binary.LittleEndian.Uint32(header[4:8])
	opcode := uint16(word & 0xffff)
	size := int(word >> 16)
	if size < 8 {
		return event{}, fmt.Errorf("wayland: malformed event header (size=%d)", size)
	}

	args := make([]byte, size-8)
	var bodyOOB []byte
	if len(args) > 0 {
		if err := c.readFull(args, nil, &bodyOOB); err != nil {
			return event{}, err
		}
	}

	fds, err := parseFds(oob)
	if err != nil {
		return event{}, err
	}
	moreFds, err := parseFds(bodyOOB)
	if err != nil {
		return event{}, err
	}
	fds = append(fds, moreFds...)

	return event{Sender: sender, Opcode: opcode, Args: args, Fds: fds}, nil
}

// readFull reads exactly len(buf) bytes, appending the out-of-band data
// received with each read to *gotOOB. oobBuf is the scratch buffer for the
// first read (nil lets readFull allocate one); later reads allocate their own.
func (c *conn) readFull(buf []byte, oobBuf []byte, gotOOB *[]byte) error {
	read := 0
	for read < len(buf) {
		if oobBuf == nil {
			oobBuf = make([]byte, unix.CmsgSpace(4*4))
		}
		n, oobn, _, _, err := c.uc.ReadMsgUnix(buf[read:], oobBuf)
		if err != nil {
			return fmt.Errorf("wayland: read event: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("wayland: connection closed by compositor")
		}
		if oobn > 0 && gotOOB != nil {
			*gotOOB = append(*gotOOB, oobBuf[:oobn]...)
		}
		read += n
		oobBuf = nil
	}
	return nil
}

func parseFds(oob []byte) ([]int, error) {
	if len(oob) == 0 {
		return nil, nil
	}
	msgs, err := unix.ParseSocketControlMessage(oob)
	if err != nil {
		return nil, fmt.Errorf("wayland: parse control message: %w", err)
	}
	var fds []int
	for _, m := range msgs {
		f, err := unix.ParseUnixRights(&m)
		if err != nil {
			continue
		}
		fds = append(fds, f...)
	}
	return fds, nil
}

// requestBuilder accumulates word-aligned Wayland argument bytes.
type requestBuilder struct {
	buf []byte
}

func (b *requestBuilder) Uint32(v uint32) *requestBuilder {
	word := make([]byte, 4)
	binary.LittleEndian.PutUint32(word, v)
	b.buf = append(b.buf, word...)
	return b
}

func (b *requestBuilder) String(s string) *requestBuilder {
	raw := append([]byte(s), 0)
	b.Uint32(uint32(len(raw)))
	b.buf = append(b.buf, raw...)
	pad := (4 - len(raw)%4) % 4
	b.buf = append(b.buf, make([]byte, pad)...)
	return b
}

func (b *requestBuilder) Bytes() []byte { return b.buf }

// argReader walks the argument words of a decoded event.
type argReader struct {
	b   []byte
	off int
}

func newArgReader(b []byte) *argReader { return &argReader{b: b} }

func (r *argReader) Uint32() uint32 {
	if r.off+4 > len(r.b) {
		return 0
	}
	v := binary.LittleEndian.Uint32(r.b[r.off : r.off+4])
	r.off += 4
	return v
}

func (r *argReader) String() string {
	n := int(r.Uint32())
	if n <= 0 || r.off+n > len(r.b) {
		return ""
	}
	s := string(r.b[r.off : r.off+n-1]) // drop the trailing NUL
	r.off += n
	r.off += (4 - n%4) % 4
	return s
}
