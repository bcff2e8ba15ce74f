package as400

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/phrazzld/as400-api/internal/config"
	"github.com/phrazzld/as400-api/internal/domain"
	"github.com/phrazzld/as400-api/internal/redact"
)

const (
	// idleCheckAfter is how long the connection may sit unused before it is
	// probed with a keepalive request prior to reuse.
	idleCheckAfter = 30 * time.Second

	// DefaultMaxOutputBytes caps stdout kept per operation when the
	// configuration leaves it unset.
	DefaultMaxOutputBytes = 16 << 20

	maxStderrBytes   = 64 << 10
	keepaliveRequest = "keepalive@openssh.org"
)

// ErrClientClosed is returned by operations on a closed SSHClient.
var ErrClientClosed = fmt.Errorf("%w: client closed", domain.ErrHostUnavailable)

// Option configures an SSHClient.
type Option func(*SSHClient)

// WithSessionObserver registers fn to be called with the number of sessions
// in use every time that number changes.
func WithSessionObserver(fn func(inUse int)) Option {
	return func(c *SSHClient) {
		c.observeSessions = fn
	}
}

// SSHClient implements Client over a single shared SSH connection.
// Every operation opens its own session; the number of concurrent sessions
// is bounded by max_sessions and their start rate by a token bucket.
// Every network round trip is bounded by the caller's context; a connection
// that does not answer in time is dropped and dialled again on next use.
type SSHClient struct {
	cfg          config.HostConfig
	addr         string
	clientConfig *ssh.ClientConfig
	sem          *semaphore.Weighted
	limiter      *rate.Limiter
	maxOutput    int
	dials        singleflight.Group
	logger       *slog.Logger

	observeSessions func(inUse int)
	sessionsMu      sync.Mutex
	sessions        int

	mu       sync.Mutex
	conn     *ssh.Client
	lastUsed time.Time
	closed   bool
}

var _ Client = (*SSHClient)(nil)

// NewSSHClient prepares a client for the configured host. It does not dial;
// the connection is established on first use.
func NewSSHClient(cfg config.HostConfig, logger *slog.Logger, opts ...Option) (*SSHClient, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "as400_client"))

	auth, err := authMethods(cfg)
	if err != nil {
		return nil, err
	}

	hostKeyCallback := ssh.InsecureIgnoreHostKey()
	if cfg.KnownHostsPath != "" {
		hostKeyCallback, err = knownhosts.New(cfg.KnownHostsPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load known hosts: %w", err)
		}
	} else {
		logger.Warn("host key verification disabled, set host.known_hosts_path to enable it")
	}

	c := &SSHClient{
		cfg:  cfg,
		addr: net.JoinHostPort(cfg.Address, strconv.Itoa(cfg.Port)),
		clientConfig: &ssh.ClientConfig{
			User:            cfg.User,
			Auth:            auth,
			HostKeyCallback: hostKeyCallback,
			Timeout:         cfg.DialTimeout(),
		},
		sem:       semaphore.NewWeighted(int64(cfg.MaxSessions)),
		limiter:   rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		maxOutput: cfg.MaxOutputBytes,
		logger:    logger,
	}
	if c.maxOutput <= 0 {
		c.maxOutput = DefaultMaxOutputBytes
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func authMethods(cfg config.HostConfig) ([]ssh.AuthMethod, error) {
	var methods []ssh.AuthMethod
	if cfg.PrivateKeyPath != "" {
		pem, err := os.ReadFile(cfg.PrivateKeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read private key: %w", err)
		}
		signer, err := ssh.ParsePrivateKey(pem)
		if err != nil {
			return nil, fmt.Errorf("failed to parse private key: %w", err)
		}
		methods = append(methods, ssh.PublicKeys(signer))
	}
	if cfg.Password != "" {
		password := cfg.Password
		methods = append(methods,
			ssh.Password(password),
			// IBM i sshd commonly offers keyboard-interactive instead of password
			ssh.KeyboardInteractive(func(_, _ string, questions []string, _ []bool) ([]string, error) {
				answers := make([]string, len(questions))
				for i := range answers {
					answers[i] = password
				}
				return answers, nil
			}),
		)
	}
	if len(methods) == 0 {
		return nil, errors.New("no SSH credentials configured")
	}
	return methods, nil
}

// RunCommand executes cmd through the PASE system utility.
func (c *SSHClient) RunCommand(ctx context.Context, cmd string) (*domain.CommandResult, error) {
	start := time.Now()
	out, err := c.run(ctx, BuildSystemCommand(c.cfg.SystemPath, cmd))
	if err != nil {
		return nil, err
	}

	result := &domain.CommandResult{
		Command:   cmd,
		Succeeded: out.exitCode == 0,
		ExitCode:  out.exitCode,
		Output:    string(out.stdout),
		Messages:  ParseMessages(string(out.stdout), string(out.stderr)),
		Duration:  time.Since(start),
	}
	if out.overflow {
		result.Succeeded = false
		return result, fmt.Errorf("%w: command output exceeds %d bytes", domain.ErrHostProtocol, c.maxOutput)
	}
	if !result.Succeeded {
		return result, CommandError(result)
	}
	return result, nil
}

// Query executes statement through db2util.
func (c *SSHClient) Query(ctx context.Context, statement string, params []string, maxRows int) (*domain.QueryResult, error) {
	out, err := c.run(ctx, BuildDB2UtilCommand(c.cfg.DB2UtilPath, statement, params))
	if err != nil {
		return nil, err
	}
	if out.overflow {
		// enough rows may have arrived before the cap to fill the page
		if result, err := ParseQueryOutput(out.stdout, maxRows); err == nil && result.Truncated {
			return result, nil
		}
		return nil, fmt.Errorf("%w: query output exceeds %d bytes", domain.ErrHostProtocol, c.maxOutput)
	}
	combined := string(out.stdout) + "\n" + string(out.stderr)
	if out.exitCode != 0 {
		return nil, SQLError(combined, out.exitCode)
	}

	result, err := ParseQueryOutput(out.stdout, maxRows)
	if err != nil {
		// db2util may report a statement error on stdout with a zero exit status
		if _, ok := ParseSQLDiagnostic(combined); ok {
			return nil, SQLError(combined, out.exitCode)
		}
		return nil, err
	}
	return result, nil
}

// Ping checks that the connection is established and answering requests.
func (c *SSHClient) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.CommandTimeout())
	defer cancel()

	conn, err := c.connection(ctx)
	if err != nil {
		return err
	}
	if err := keepalive(ctx, conn); err != nil {
		c.discard(conn)
		if ctx.Err() != nil {
			return timeoutError(ctx, err)
		}
		return fmt.Errorf("%w: keepalive failed: %v", domain.ErrHostUnavailable, err)
	}
	return nil
}

// Close closes the SSH connection. Further operations return ErrClientClosed.
func (c *SSHClient) Close() error {
	c.mu.Lock()
	c.closed = true
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn == nil {
		return nil
	}
	return conn.Close()
}

type runOutput struct {
	stdout   []byte
	stderr   []byte
	exitCode int
	overflow bool
}

// run executes a shell line on the host within the session and rate limits.
// When stdout exceeds the output cap the remote process is killed and the
// output read so far is returned with overflow set.
func (c *SSHClient) run(ctx context.Context, line string) (*runOutput, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.CommandTimeout())
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, timeoutError(ctx, err)
	}
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return nil, timeoutError(ctx, err)
	}
	defer c.sem.Release(1)
	c.trackSession(1)
	defer c.trackSession(-1)

	session, err := c.newSession(ctx)
	if err != nil {
		return nil, err
	}

	stdout := newCappedBuffer(c.maxOutput)
	stderr := newCappedBuffer(maxStderrBytes)
	session.Stdout = stdout
	session.Stderr = stderr

	done := make(chan error, 1)
	go func() { done <- session.Run(line) }()

	select {
	case err = <-done:
		_ = session.Close()
	case <-stdout.Overflowed():
		killSession(session)
		return &runOutput{stdout: stdout.Bytes(), stderr: stderr.Bytes(), overflow: true}, nil
	case <-ctx.Done():
		killSession(session)
		return nil, timeoutError(ctx, ctx.Err())
	}

	out := &runOutput{stdout: stdout.Bytes(), stderr: stderr.Bytes(), overflow: stdout.Full()}
	var exitErr *ssh.ExitError
	var missingErr *ssh.ExitMissingError
	switch {
	case err == nil:
	case errors.As(err, &exitErr):
		out.exitCode = exitErr.ExitStatus()
	case errors.As(err, &missingErr):
		return nil, fmt.Errorf("%w: session ended without exit status", domain.ErrHostProtocol)
	default:
		c.logger.Warn("host session failed, dropping connection",
			slog.String("error", redact.Error(err)))
		c.dropConnection()
		return nil, fmt.Errorf("%w: %v", domain.ErrHostUnavailable, err)
	}
	return out, nil
}

// killSession stops the remote process without waiting on a host that may
// no longer answer.
func killSession(session *ssh.Session) {
	go func() {
		_ = session.Signal(ssh.SIGKILL)
		_ = session.Close()
	}()
}

// newSession opens a session, re-dialling once if the shared connection broke.
func (c *SSHClient) newSession(ctx context.Context) (*ssh.Session, error) {
	conn, err := c.connection(ctx)
	if err != nil {
		return nil, err
	}
	session, err := c.openSession(ctx, conn)
	if err == nil || ctx.Err() != nil {
		return session, err
	}

	c.logger.Info("reconnecting to host after session failure",
		slog.String("error", redact.Error(err)))
	c.discard(conn)
	conn, err = c.connection(ctx)
	if err != nil {
		return nil, err
	}
	session, err = c.openSession(ctx, conn)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		c.discard(conn)
		return nil, fmt.Errorf("%w: failed to open session: %v", domain.ErrHostUnavailable, err)
	}
	return session, nil
}

// openSession opens a session on conn, giving up when ctx is done. A
// connection that cannot open a session before the deadline is dropped.
func (c *SSHClient) openSession(ctx context.Context, conn *ssh.Client) (*ssh.Session, error) {
	type opened struct {
		session *ssh.Session
		err     error
	}
	ch := make(chan opened, 1)
	go func() {
		session, err := conn.NewSession()
		ch <- opened{session, err}
	}()

	select {
	case res := <-ch:
		return res.session, res.err
	case <-ctx.Done():
		c.logger.Warn("host did not open a session in time, dropping connection")
		c.discard(conn)
		go func() {
			if res := <-ch; res.session != nil {
				_ = res.session.Close()
			}
		}()
		return nil, timeoutError(ctx, ctx.Err())
	}
}

// connection returns the shared connection, dialling when there is none or
// when an idle connection no longer answers keepalives. c.mu is never held
// during network I/O.
func (c *SSHClient) connection(ctx context.Context) (*ssh.Client, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClientClosed
	}
	conn, lastUsed := c.conn, c.lastUsed
	c.mu.Unlock()

	if conn != nil {
		if time.Since(lastUsed) < idleCheckAfter {
			c.touch(conn)
			return conn, nil
		}
		err := keepalive(ctx, conn)
		if err == nil {
			c.touch(conn)
			return conn, nil
		}
		c.discard(conn)
		if ctx.Err() != nil {
			return nil, timeoutError(ctx, err)
		}
		c.logger.Info("idle host connection is dead, reconnecting")
	}

	// concurrent callers share one dial; each waits only as long as its ctx allows
	ch := c.dials.DoChan("dial", func() (any, error) {
		return c.redial()
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*ssh.Client), nil
	case <-ctx.Done():
		return nil, timeoutError(ctx, ctx.Err())
	}
}

// redial installs a new shared connection unless another caller already did.
// It is bounded by the dial timeout rather than by any single caller.
func (c *SSHClient) redial() (*ssh.Client, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClientClosed
	}
	if c.conn != nil {
		conn := c.conn
		c.mu.Unlock()
		return conn, nil
	}
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.DialTimeout())
	defer cancel()
	conn, err := c.dial(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		_ = conn.Close()
		return nil, ErrClientClosed
	}
	c.conn = conn
	c.lastUsed = time.Now()
	c.logger.Info("connected to host", slog.String("user", c.cfg.User))
	return conn, nil
}

func (c *SSHClient) dial(ctx context.Context) (*ssh.Client, error) {
	dialer := net.Dialer{Timeout: c.cfg.DialTimeout()}
	netConn, err := dialer.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		if ctx.Err() != nil {
			return nil, timeoutError(ctx, err)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrHostUnavailable, err)
	}

	// bound the handshake by the dial timeout as well
	_ = netConn.SetDeadline(time.Now().Add(c.cfg.DialTimeout()))
	sshConn, chans, reqs, err := ssh.NewClientConn(netConn, c.addr, c.clientConfig)
	if err != nil {
		_ = netConn.Close()
		return nil, fmt.Errorf("%w: handshake failed: %v", domain.ErrHostUnavailable, err)
	}
	_ = netConn.SetDeadline(time.Time{})
	return ssh.NewClient(sshConn, chans, reqs), nil
}

func (c *SSHClient) touch(conn *ssh.Client) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == conn {
		c.lastUsed = time.Now()
	}
}

// discard closes conn and forgets it if it is still the shared connection.
func (c *SSHClient) discard(conn *ssh.Client) {
	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	c.mu.Unlock()
	_ = conn.Close()
}

func (c *SSHClient) dropConnection() {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
}

func (c *SSHClient) trackSession(delta int) {
	c.sessionsMu.Lock()
	c.sessions += delta
	n := c.sessions
	c.sessionsMu.Unlock()
	if c.observeSessions != nil {
		c.observeSessions(n)
	}
}

// keepalive sends a keepalive request and waits for the reply until ctx is
// done. A reply of any kind means the host is answering.
func keepalive(ctx context.Context, conn *ssh.Client) error {
	done := make(chan error, 1)
	go func() {
		_, _, err := conn.SendRequest(keepaliveRequest, true, nil)
		done <- err
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func timeoutError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w: %w", domain.ErrHostTimeout, ctxErr)
	}
	return fmt.Errorf("%w: %v", domain.ErrHostTimeout, err)
}

// cappedBuffer keeps the first limit bytes written to it and discards the
// rest. Overflowed is closed once the limit is exceeded.
type cappedBuffer struct {
	mu       sync.Mutex
	buf      bytes.Buffer
	limit    int
	full     bool
	overflow chan struct{}
}

func newCappedBuffer(limit int) *cappedBuffer {
	return &cappedBuffer{limit: limit, overflow: make(chan struct{})}
}

// Write never fails so the session keeps draining until it is killed.
func (b *cappedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.full {
		return len(p), nil
	}
	if room := b.limit - b.buf.Len(); len(p) > room {
		b.buf.Write(p[:room])
		b.full = true
		close(b.overflow)
		return len(p), nil
	}
	return b.buf.Write(p)
}

func (b *cappedBuffer) Overflowed() <-chan struct{} {
	return b.overflow
}

func (b *cappedBuffer) Full() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.full
}

func (b *cappedBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return bytes.Clone(b.buf.Bytes())
}
