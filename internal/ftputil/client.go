// Package ftputil retrieves files from the Bureau's anonymous FTP service.
package ftputil

import (
	"context"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/lox/bomweather/internal/bomerr"
	"github.com/lox/bomweather/internal/metrics"
)

const (
	DefaultHost    = "ftp.bom.gov.au:21"
	DefaultTimeout = 10 * time.Second
)

// Client opens a fresh anonymous session per retrieval. Every read and write
// on the control and data connections must make progress within the timeout.
type Client struct {
	host    string
	timeout time.Duration
}

func NewClient(host string, timeout time.Duration) *Client {
	if host == "" {
		host = DefaultHost
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{host: host, timeout: timeout}
}

// Retrieve downloads the file at path.
func (c *Client) Retrieve(ctx context.Context, path string) ([]byte, error) {
	start := time.Now()
	body, err := c.retrieve(ctx, path)
	metrics.FetchLatency.WithLabelValues("ftp").Observe(time.Since(start).Seconds())

	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.FetchesTotal.WithLabelValues("ftp", status).Inc()
	return body, err
}

func (c *Client) retrieve(ctx context.Context, path string) ([]byte, error) {
	s := &session{timeout: c.timeout}
	stop := context.AfterFunc(ctx, s.abort)
	defer stop()

	fail := func(op, target string, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = fmt.Errorf("%w: %w", ctxErr, err)
		}
		return &bomerr.TransportError{Op: op, Target: target, Err: err}
	}

	dialer := &net.Dialer{Timeout: c.timeout}
	conn, err := ftp.Dial(c.host,
		ftp.DialWithShutTimeout(c.timeout),
		ftp.DialWithDialFunc(func(network, address string) (net.Conn, error) {
			nc, err := dialer.DialContext(ctx, network, address)
			if err != nil {
				return nil, err
			}
			return s.track(nc), nil
		}),
	)
	if err != nil {
		return nil, fail("ftp dial", c.host, err)
	}
	defer conn.Quit()

	if err := conn.Login("anonymous", "anonymous"); err != nil {
		return nil, fail("ftp login", c.host, err)
	}

	resp, err := conn.Retr(path)
	if err != nil {
		return nil, fail("ftp retr", path, err)
	}
	defer resp.Close()

	body, err := io.ReadAll(resp)
	if err != nil {
		return nil, fail("ftp read", path, err)
	}
	return body, nil
}

// session tracks the connections of one retrieval so they can be aborted
// together when the context ends.
type session struct {
	timeout time.Duration

	mu      sync.Mutex
	aborted bool
	conns   []*deadlineConn
}

func (s *session) track(nc net.Conn) net.Conn {
	dc := &deadlineConn{Conn: nc, s: s}
	s.mu.Lock()
	s.conns = append(s.conns, dc)
	if s.aborted {
		nc.SetDeadline(time.Unix(1, 0))
	}
	s.mu.Unlock()
	return dc
}

func (s *session) abort() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.aborted = true
	for _, dc := range s.conns {
		dc.Conn.SetDeadline(time.Unix(1, 0))
	}
}

// extend pushes the deadline of nc out by one timeout unless the session has
// been aborted.
func (s *session) extend(nc net.Conn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.aborted {
		return net.ErrClosed
	}
	return nc.SetDeadline(time.Now().Add(s.timeout))
}

// deadlineConn refreshes its deadline before every read and write.
type deadlineConn struct {
	net.Conn
	s *session
}

func (c *deadlineConn) Read(p []byte) (int, error) {
	if err := c.s.extend(c.Conn); err != nil {
		return 0, err
	}
	return c.Conn.Read(p)
}

func (c *deadlineConn) Write(p []byte) (int, error) {
	if err := c.s.extend(c.Conn); err != nil {
		return 0, err
	}
	return c.Conn.Write(p)
}
