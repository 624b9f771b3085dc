// Package ingest owns the UDP control socket. The contract toward the loop
// is drain-to-latest: block at most one wait interval for the first
// datagram, then consume everything already queued and hand back only the
// freshest payload. Widget state is declarative, so skipped packets are
// superseded, not lost.
package ingest

import (
	"errors"
	"fmt"
	"log"
	"net"
	"time"

	"github.com/zeebo/xxh3"

	"waybeam/internal/ratelimit"
	"waybeam/wire"
)

// UDP is the control socket reader. Owned by the loop goroutine.
type UDP struct {
	conn *net.UDPConn
	buf  [wire.MaxPayload]byte

	lastHash  uint64
	haveHash  bool
	discarded uint64
	dupes     uint64

	readErrs ratelimit.Counter
}

// Listen binds the control socket on the given port (all interfaces).
func Listen(port int) (*UDP, error) {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{Port: port})
	if err != nil {
		return nil, fmt.Errorf("ingest: listen udp :%d: %w", port, err)
	}
	return &UDP{
		conn:     conn,
		readErrs: ratelimit.NewCounter(10 * time.Second),
	}, nil
}

// Addr returns the bound local address.
func (u *UDP) Addr() net.Addr { return u.conn.LocalAddr() }

// Discarded counts datagrams superseded inside a single drain.
func (u *UDP) Discarded() uint64 { return u.discarded }

// Duplicates counts consecutive byte-identical payloads that were skipped.
func (u *UDP) Duplicates() uint64 { return u.dupes }

// Purpose: Block up to wait for a datagram, then drain the socket and return
// the freshest payload.
// Key aspects: The returned slice aliases the internal buffer and is valid
// until the next call. ok is false on a quiet interval or when every received
// payload was a consecutive duplicate (xxh3); err is non-nil only when the
// socket is dead and the loop should stop.
// Upstream: the reconciliation loop, once per iteration.
// Downstream: net.UDPConn deadline reads.
func (u *UDP) WaitAndDrain(wait time.Duration) (payload []byte, ok bool, err error) {
	if wait < 0 {
		wait = 0
	}
	if err := u.conn.SetReadDeadline(time.Now().Add(wait)); err != nil {
		return nil, false, fmt.Errorf("ingest: set deadline: %w", err)
	}

	n, got := 0, false
	for {
		r, _, rerr := u.conn.ReadFromUDP(u.buf[:])
		if rerr != nil {
			var nerr net.Error
			if errors.As(rerr, &nerr) && nerr.Timeout() {
				break
			}
			if errors.Is(rerr, net.ErrClosed) {
				return nil, false, fmt.Errorf("ingest: socket closed: %w", rerr)
			}
			// Transient receive errors (ICMP backpressure and the like)
			// drop the datagram, not the socket.
			if total, emit := u.readErrs.Inc(); emit {
				log.Printf("Ingest: receive error (%d total): %v", total, rerr)
			}
			continue
		}
		if got {
			u.discarded++
		}
		n, got = r, true
		// After the first datagram, only sweep what is already queued.
		if err := u.conn.SetReadDeadline(time.Now()); err != nil {
			return nil, false, fmt.Errorf("ingest: set deadline: %w", err)
		}
	}
	if !got {
		return nil, false, nil
	}

	h := xxh3.Hash(u.buf[:n])
	if u.haveHash && h == u.lastHash {
		u.dupes++
		return nil, false, nil
	}
	u.lastHash, u.haveHash = h, true
	return u.buf[:n], true, nil
}

// Close releases the socket. A blocked WaitAndDrain returns with an error.
func (u *UDP) Close() error {
	return u.conn.Close()
}
