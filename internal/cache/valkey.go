package cache

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/esk1llz/ML-log-analysis/internal/config"
)

// ValkeyProvider talks RESP to a single Valkey instance. One connection
// guarded by a mutex is plenty for this workload: the pipeline issues at
// most one cache call at a time per analysis run.
type ValkeyProvider struct {
	cfg config.CacheConfig

	mu   sync.Mutex
	conn *valkeyConn
}

// NewValkeyProvider connects to the configured Valkey instance and
// verifies the connection with a PING.
func NewValkeyProvider(cfg config.CacheConfig) (*ValkeyProvider, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("valkey: addr is required")
	}
	p := &ValkeyProvider{cfg: cfg}

	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout(cfg))
	defer cancel()
	if _, err := p.do(ctx, "PING"); err != nil {
		return nil, fmt.Errorf("valkey: ping %s: %w", cfg.Addr, err)
	}
	return p, nil
}

// Get fetches a key. A nil bulk reply maps to ErrCacheMiss.
func (p *ValkeyProvider) Get(ctx context.Context, key string) ([]byte, error) {
	reply, err := p.do(ctx, "GET", key)
	if err != nil {
		return nil, err
	}
	if reply == nil {
		return nil, ErrCacheMiss
	}
	return reply, nil
}

// Set stores a value, with PX expiry when ttl is positive.
func (p *ValkeyProvider) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	args := []string{"SET", key, string(value)}
	if ttl > 0 {
		args = append(args, "PX", strconv.FormatInt(ttl.Milliseconds(), 10))
	}
	_, err := p.do(ctx, args...)
	return err
}

// Del removes a key.
func (p *ValkeyProvider) Del(ctx context.Context, key string) error {
	_, err := p.do(ctx, "DEL", key)
	return err
}

// Close tears down the connection.
func (p *ValkeyProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn != nil {
		err := p.conn.close()
		p.conn = nil
		return err
	}
	return nil
}

// do runs one command, reconnecting once if the cached connection has
// gone stale.
func (p *ValkeyProvider) do(ctx context.Context, args ...string) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for attempt := 0; attempt < 2; attempt++ {
		if p.conn == nil {
			conn, err := p.dial(ctx)
			if err != nil {
				return nil, err
			}
			p.conn = conn
		}
		reply, err := p.conn.roundTrip(ctx, p.cfg, args)
		if err == nil {
			return reply, nil
		}
		p.conn.close()
		p.conn = nil
		if !retryable(err) || attempt == 1 {
			return nil, err
		}
	}
	return nil, fmt.Errorf("valkey: unreachable")
}

func (p *ValkeyProvider) dial(ctx context.Context) (*valkeyConn, error) {
	d := net.Dialer{Timeout: dialTimeout(p.cfg)}
	var (
		nc  net.Conn
		err error
	)
	if p.cfg.TLS {
		td := tls.Dialer{NetDialer: &d, Config: &tls.Config{ServerName: hostOnly(p.cfg.Addr)}}
		nc, err = td.DialContext(ctx, "tcp", p.cfg.Addr)
	} else {
		nc, err = d.DialContext(ctx, "tcp", p.cfg.Addr)
	}
	if err != nil {
		return nil, fmt.Errorf("valkey: dial %s: %w", p.cfg.Addr, err)
	}

	c := &valkeyConn{raw: nc, r: bufio.NewReader(nc)}
	if err := c.bootstrap(ctx, p.cfg); err != nil {
		c.close()
		return nil, err
	}
	return c, nil
}

func retryable(err error) bool {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return false
	}
	var serverErr *valkeyServerError
	return !errors.As(err, &serverErr)
}

func dialTimeout(cfg config.CacheConfig) time.Duration {
	if cfg.DialTimeout > 0 {
		return cfg.DialTimeout
	}
	return 2 * time.Second
}

func hostOnly(addr string) string {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}

// valkeyServerError is an error reply (-ERR ...) from the server.
type valkeyServerError struct{ msg string }

func (e *valkeyServerError) Error() string { return "valkey: " + e.msg }

// valkeyConn frames RESP commands over one TCP connection.
type valkeyConn struct {
	raw net.Conn
	r   *bufio.Reader
}

func (c *valkeyConn) close() error { return c.raw.Close() }

// bootstrap authenticates and selects the configured database.
func (c *valkeyConn) bootstrap(ctx context.Context, cfg config.CacheConfig) error {
	if cfg.Password != "" {
		auth := []string{"AUTH", cfg.Password}
		if cfg.Username != "" {
			auth = []string{"AUTH", cfg.Username, cfg.Password}
		}
		if _, err := c.roundTrip(ctx, cfg, auth); err != nil {
			return fmt.Errorf("valkey: auth: %w", err)
		}
	}
	if cfg.DB != 0 {
		if _, err := c.roundTrip(ctx, cfg, []string{"SELECT", strconv.Itoa(cfg.DB)}); err != nil {
			return fmt.Errorf("valkey: select db %d: %w", cfg.DB, err)
		}
	}
	return nil
}

func (c *valkeyConn) roundTrip(ctx context.Context, cfg config.CacheConfig, args []string) ([]byte, error) {
	if err := c.writeCommand(ctx, cfg, args); err != nil {
		return nil, err
	}
	if deadline, ok := readDeadline(ctx, cfg); ok {
		if err := c.raw.SetReadDeadline(deadline); err != nil {
			return nil, err
		}
	}
	return c.readReply()
}

func (c *valkeyConn) writeCommand(ctx context.Context, cfg config.CacheConfig, args []string) error {
	if deadline, ok := writeDeadline(ctx, cfg); ok {
		if err := c.raw.SetWriteDeadline(deadline); err != nil {
			return err
		}
	}
	var b strings.Builder
	fmt.Fprintf(&b, "*%d\r\n", len(args))
	for _, a := range args {
		fmt.Fprintf(&b, "$%d\r\n%s\r\n", len(a), a)
	}
	_, err := io.WriteString(c.raw, b.String())
	return err
}

// readReply parses one RESP reply. Bulk and simple strings return their
// payload, nil bulk returns (nil, nil), errors surface as
// *valkeyServerError.
func (c *valkeyConn) readReply() ([]byte, error) {
	line, err := c.readLine()
	if err != nil {
		return nil, err
	}
	if len(line) == 0 {
		return nil, fmt.Errorf("valkey: empty reply line")
	}
	switch line[0] {
	case '+':
		return []byte(line[1:]), nil
	case ':':
		return []byte(line[1:]), nil
	case '-':
		return nil, &valkeyServerError{msg: line[1:]}
	case '_':
		return nil, nil
	case '$':
		size, err := strconv.Atoi(line[1:])
		if err != nil {
			return nil, fmt.Errorf("valkey: bad bulk length %q", line[1:])
		}
		if size < 0 {
			return nil, nil
		}
		buf := make([]byte, size+2)
		if _, err := io.ReadFull(c.r, buf); err != nil {
			return nil, err
		}
		if buf[size] != '\r' || buf[size+1] != '\n' {
			return nil, fmt.Errorf("valkey: bulk reply missing terminator")
		}
		return buf[:size], nil
	default:
		return nil, fmt.Errorf("valkey: unexpected reply prefix %q", line[0])
	}
}

func (c *valkeyConn) readLine() (string, error) {
	line, err := c.r.ReadString('\n')
	if err != nil {
		return "", err
	}
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")
	return line, nil
}

func readDeadline(ctx context.Context, cfg config.CacheConfig) (time.Time, bool) {
	return earliestDeadline(ctx, cfg.ReadTimeout)
}

func writeDeadline(ctx context.Context, cfg config.CacheConfig) (time.Time, bool) {
	return earliestDeadline(ctx, cfg.WriteTimeout)
}

func earliestDeadline(ctx context.Context, timeout time.Duration) (time.Time, bool) {
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	if cd, ok := ctx.Deadline(); ok && (deadline.IsZero() || cd.Before(deadline)) {
		deadline = cd
	}
	return deadline, !deadline.IsZero()
}
