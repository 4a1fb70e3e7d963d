package statsd

import (
	"fmt"
	"math/rand"
	"net"
	"strconv"
	"time"
)

// Client is a minimal StatsD client over UDP. Metrics are
// fire-and-forget: a lost packet or a dead collector never surfaces to
// the caller, which is the contract the rest of the service relies on.
//
// Wire format: "bucket:1|c" for counters, "bucket:123|ms" for timings,
// with an optional "|@rate" suffix when sampling.
type Client struct {
	conn net.Conn
}

// New resolves the collector address and opens the UDP socket. UDP
// "connect" only records the destination, so this succeeds even when
// no collector is listening.
func New(host string, port int) (*Client, error) {
	conn, err := net.Dial("udp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return nil, fmt.Errorf("failed to dial statsd: %w", err)
	}
	return &Client{conn: conn}, nil
}

// Increment sends a counter increment of 1 for the bucket.
func (c *Client) Increment(bucket string) {
	c.send(fmt.Sprintf("%s:1|c", bucket), 1.0)
}

// IncrementSampled sends a counter increment, transmitted only for the
// given fraction of calls.
func (c *Client) IncrementSampled(bucket string, rate float64) {
	c.send(fmt.Sprintf("%s:1|c", bucket), rate)
}

// Timing sends an elapsed-time measurement for the bucket.
func (c *Client) Timing(bucket string, d time.Duration) {
	c.send(fmt.Sprintf("%s:%d|ms", bucket, d.Milliseconds()), 1.0)
}

// Close releases the UDP socket.
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) send(stat string, rate float64) {
	if rate < 1.0 {
		if rate < rand.Float64() {
			return
		}
		stat = fmt.Sprintf("%s|@%f", stat, rate)
	}

	// Errors are swallowed: metrics must never affect request handling.
	_, _ = c.conn.Write([]byte(stat))
}

// Discard is a no-op sink used when StatsD is disabled. It satisfies
// the consumer-side sink interfaces declared at each point of use.
type Discard struct{}

func (Discard) Increment(string) {}

func (Discard) IncrementSampled(string, float64) {}

func (Discard) Timing(string, time.Duration) {}
