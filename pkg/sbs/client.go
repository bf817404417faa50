package sbs

import (
	"bufio"
	"context"
	"log"
	"net"
	"time"
)

// Client connects to a dump1090 SBS feed and decodes position reports.
type Client struct {
	addr string

	// ReconnectDelay is the wait between connection attempts (default 3s)
	ReconnectDelay time.Duration

	connected func(bool)
}

// NewClient creates a client for the given host:port.
func NewClient(addr string) *Client {
	return &Client{
		addr:           addr,
		ReconnectDelay: 3 * time.Second,
	}
}

// OnConnectionChange registers a callback invoked with the connection state
// whenever the feed connects or drops. Used by the status API.
func (c *Client) OnConnectionChange(fn func(bool)) {
	c.connected = fn
}

// Run connects to the feed and sends decoded reports to the channel,
// reconnecting forever until the context is cancelled. Lines that fail
// to parse are silently skipped; the feed interleaves many message
// types we have no use for.
func (c *Client) Run(ctx context.Context, reports chan<- PositionReport) {
	for {
		if ctx.Err() != nil {
			return
		}

		var d net.Dialer
		conn, err := d.DialContext(ctx, "tcp", c.addr)
		if err != nil {
			log.Printf("[SBS] Connect fail (%v); retry %v", err, c.ReconnectDelay)
			if !sleepCtx(ctx, c.ReconnectDelay) {
				return
			}
			continue
		}

		log.Printf("[SBS] Connected to %s", c.addr)
		c.setConnected(true)

		// Close the socket when the context ends so the scanner unblocks.
		done := make(chan struct{})
		go func() {
			select {
			case <-ctx.Done():
				conn.Close()
			case <-done:
			}
		}()

		scanner := bufio.NewScanner(conn)
		for scanner.Scan() {
			if r, ok := Parse(scanner.Text()); ok {
				select {
				case reports <- r:
				case <-ctx.Done():
					close(done)
					conn.Close()
					return
				}
			}
		}

		if err := scanner.Err(); err != nil && ctx.Err() == nil {
			log.Printf("[SBS] Read error: %v", err)
		}

		close(done)
		conn.Close()
		c.setConnected(false)

		if ctx.Err() != nil {
			return
		}
		log.Printf("[SBS] Lost connection; reconnecting in %v", c.ReconnectDelay)
		if !sleepCtx(ctx, c.ReconnectDelay) {
			return
		}
	}
}

func (c *Client) setConnected(up bool) {
	if c.connected != nil {
		c.connected(up)
	}
}

// sleepCtx waits for d, returning false if the context ended first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
