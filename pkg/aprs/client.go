package aprs

import (
	"context"
	"fmt"
	"log"
	"net"
	"sync"
	"time"
)

// Version is reported in the APRS-IS login line.
const Version = "3.0"

// ClientConfig holds APRS-IS connection settings.
type ClientConfig struct {
	Addr     string
	Callsign string
	Passcode int
	Filter   string

	// ReconnectDelay is the wait between connection attempts (default 3s)
	ReconnectDelay time.Duration
}

// Client maintains a connection to an APRS-IS server and sends object
// packets. Sends that fail drop the connection; the next send redials.
type Client struct {
	cfg ClientConfig

	mu   sync.Mutex
	conn net.Conn

	connected func(bool)
}

// NewClient creates an APRS-IS client. No connection is made until the
// first send (or an explicit Connect).
func NewClient(cfg ClientConfig) *Client {
	if cfg.ReconnectDelay == 0 {
		cfg.ReconnectDelay = 3 * time.Second
	}
	return &Client{cfg: cfg}
}

// OnConnectionChange registers a callback invoked with the connection
// state on connect and disconnect. Used by the status API.
func (c *Client) OnConnectionChange(fn func(bool)) {
	c.connected = fn
}

// Connect dials the server and sends the login line, retrying until it
// succeeds or the context ends.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectLocked(ctx)
}

func (c *Client) connectLocked(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		var d net.Dialer
		conn, err := d.DialContext(ctx, "tcp", c.cfg.Addr)
		if err == nil {
			login := fmt.Sprintf("user %s pass %d vers ADSB2APRS %s filter %s\n",
				c.cfg.Callsign, c.cfg.Passcode, Version, c.cfg.Filter)
			if _, err = conn.Write([]byte(login)); err == nil {
				log.Printf("[APRS] Connected as %s (v%s)", c.cfg.Callsign, Version)
				c.conn = conn
				c.setConnected(true)
				return nil
			}
			conn.Close()
		}

		log.Printf("[APRS] Connect fail (%v); retry %v", err, c.cfg.ReconnectDelay)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.cfg.ReconnectDelay):
		}
	}
}

// SendObject encodes and uploads one object report. The packet is
// framed as CALLSIGN>APRS,TCPIP*:<body>. On a write error the
// connection is dropped and re-established once before giving up.
func (c *Client) SendObject(ctx context.Context, o Object) error {
	body := o.Encode(time.Now())
	line := fmt.Sprintf("%s>APRS,TCPIP*:%s\n", c.cfg.Callsign, body)

	c.mu.Lock()
	defer c.mu.Unlock()

	for attempt := 0; attempt < 2; attempt++ {
		if c.conn == nil {
			if err := c.connectLocked(ctx); err != nil {
				return err
			}
		}

		_, err := c.conn.Write([]byte(line))
		if err == nil {
			return nil
		}

		log.Printf("[APRS] Send fail (%v); reconnecting", err)
		c.conn.Close()
		c.conn = nil
		c.setConnected(false)
	}

	return fmt.Errorf("send failed after reconnect: %s", c.cfg.Addr)
}

// Close drops the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		c.setConnected(false)
		return err
	}
	return nil
}

func (c *Client) setConnected(up bool) {
	if c.connected != nil {
		c.connected(up)
	}
}
