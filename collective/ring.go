package collective

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"time"

	gbdterrors "github.com/ezoic/gbdtcore/pkg/errors"
	"github.com/ezoic/gbdtcore/pkg/log"
)

// Conn is the point-to-point transport Ring needs between two ranks: a
// reliable ordered byte stream, exactly what net.Conn provides. Tests
// inject net.Pipe() pairs instead of real sockets.
type Conn interface {
	io.Reader
	io.Writer
}

// Ring holds one rank's established connection to every other rank in
// a fixed world, and implements the collective operations on top.
type Ring struct {
	rank  int
	world int
	conns map[int]Conn
}

// NewRing wraps an already-connected full mesh (conns keyed by peer
// rank, no entry for self) for rank within a world of the given size.
func NewRing(rank, world int, conns map[int]Conn) *Ring {
	return &Ring{rank: rank, world: world, conns: conns}
}

// DialConfig configures Dial's connect retry behavior, matching
// spec.md §7: 20 attempts at a 10s delay before a connect failure
// becomes fatal.
type DialConfig struct {
	Attempts int
	Delay    time.Duration
	Timeout  time.Duration
}

// DefaultDialConfig is spec.md's connect retry policy.
var DefaultDialConfig = DialConfig{Attempts: 20, Delay: 10 * time.Second, Timeout: 0}

// Dial builds a full-mesh Ring over TCP: it listens on localPort for
// inbound connections from lower-ranked peers, and dials out to every
// higher-ranked peer, retrying each dial per cfg before giving up.
func Dial(rank int, machines []Machine, localPort int, cfg DialConfig, logger log.Logger) (*Ring, error) {
	if logger == nil {
		logger = log.GetLoggerWithName("collective.ring")
	}
	world := len(machines)
	conns := make(map[int]Conn, world-1)

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", localPort))
	if err != nil {
		return nil, gbdterrors.NewNetworkError("listen", fmt.Sprintf(":%d", localPort), err)
	}
	defer ln.Close()

	accepted := make(chan net.Conn, world)
	go func() {
		for i := 0; i < rank; i++ {
			c, acceptErr := ln.Accept()
			if acceptErr != nil {
				return
			}
			accepted <- c
		}
	}()

	for peer := rank + 1; peer < world; peer++ {
		addr := fmt.Sprintf("%s:%d", machines[peer].IP, machines[peer].Port)
		conn, dialErr := dialWithRetry(addr, rank, cfg, logger)
		if dialErr != nil {
			return nil, dialErr
		}
		conns[peer] = conn
	}

	for i := 0; i < rank; i++ {
		c := <-accepted
		peer, idErr := readRank(c)
		if idErr != nil {
			return nil, gbdterrors.NewNetworkError("handshake", c.RemoteAddr().String(), idErr)
		}
		conns[peer] = c
	}

	return NewRing(rank, world, conns), nil
}

func dialWithRetry(addr string, rank int, cfg DialConfig, logger log.Logger) (net.Conn, error) {
	var lastErr error
	for attempt := 1; attempt <= cfg.Attempts; attempt++ {
		conn, err := net.DialTimeout("tcp", addr, cfg.Timeout)
		if err == nil {
			if writeErr := writeRank(conn, rank); writeErr != nil {
				conn.Close()
				return nil, gbdterrors.NewNetworkError("handshake", addr, writeErr)
			}
			return conn, nil
		}
		lastErr = err
		logger.Warn("connect attempt failed, retrying", "address", addr, "attempt", attempt, "error", err.Error())
		if attempt < cfg.Attempts {
			time.Sleep(cfg.Delay)
		}
	}
	return nil, gbdterrors.NewNetworkError("dial", addr, lastErr)
}

func readRank(c net.Conn) (int, error) {
	var buf [4]byte
	if _, err := io.ReadFull(c, buf[:]); err != nil {
		return 0, err
	}
	return int(binary.LittleEndian.Uint32(buf[:])), nil
}

func writeRank(c net.Conn, rank int) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(rank))
	_, err := c.Write(buf[:])
	return err
}

func writeLenPrefixed(c Conn, data []byte) error {
	var header [4]byte
	binary.LittleEndian.PutUint32(header[:], uint32(len(data)))
	if _, err := c.Write(header[:]); err != nil {
		return err
	}
	_, err := c.Write(data)
	return err
}

func readLenPrefixed(c Conn) ([]byte, error) {
	var header [4]byte
	if _, err := io.ReadFull(c, header[:]); err != nil {
		return nil, err
	}
	n := binary.LittleEndian.Uint32(header[:])
	buf := make([]byte, n)
	if _, err := io.ReadFull(c, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// sendRecv writes payload to sendTo while concurrently reading a reply
// from recvFrom (possibly a different peer, as in the Bruck schedule),
// avoiding the deadlock that would result from both sides blocking on
// a synchronous write first.
func (r *Ring) sendRecv(sendTo int, payload []byte, recvFrom int) ([]byte, error) {
	errCh := make(chan error, 1)
	go func() { errCh <- writeLenPrefixed(r.conns[sendTo], payload) }()

	recv, readErr := readLenPrefixed(r.conns[recvFrom])
	writeErr := <-errCh

	if readErr != nil {
		return nil, readErr
	}
	if writeErr != nil {
		return nil, writeErr
	}
	return recv, nil
}
