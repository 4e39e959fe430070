// Package sshtest provides in-memory ssh.Session fakes for middleware and
// handler tests.
package sshtest

import (
	"bytes"
	"context"
	"io"
	"net"
	"strings"
	"sync"

	"github.com/charmbracelet/ssh"
)

// Context is an ssh.Context backed by a plain context.Context.
type Context struct {
	context.Context
	mu     sync.Mutex
	values map[any]any
	user   string
	remote net.Addr
	local  net.Addr
}

func NewContext(ctx context.Context, user string, remote net.Addr) *Context {
	return &Context{
		Context: ctx,
		values:  map[any]any{},
		user:    user,
		remote:  remote,
		local:   &net.TCPAddr{IP: net.ParseIP("127.0.0.1"), Port: 2222},
	}
}

func (c *Context) Lock()                         { c.mu.Lock() }
func (c *Context) Unlock()                       { c.mu.Unlock() }
func (c *Context) User() string                  { return c.user }
func (c *Context) SessionID() string             { return "test-session" }
func (c *Context) ClientVersion() string         { return "ssh-test-client" }
func (c *Context) ServerVersion() string         { return "ssh-test-server" }
func (c *Context) RemoteAddr() net.Addr          { return c.remote }
func (c *Context) LocalAddr() net.Addr           { return c.local }
func (c *Context) Permissions() *ssh.Permissions { return &ssh.Permissions{} }
func (c *Context) SetValue(key, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = value
}
func (c *Context) Value(key interface{}) interface{} {
	c.mu.Lock()
	v, ok := c.values[key]
	c.mu.Unlock()
	if ok {
		return v
	}
	return c.Context.Value(key)
}

// Session records everything written to it. Reads return io.EOF.
type Session struct {
	ctx    *Context
	user   string
	remote net.Addr
	pty    *ssh.Pty

	mu       sync.Mutex
	writes   []string
	closed   bool
	exitCode *int
}

// NewSession builds a session for user connecting from remote. A nil remote
// is allowed.
func NewSession(ctx context.Context, user string, remote net.Addr) *Session {
	return &Session{ctx: NewContext(ctx, user, remote), user: user, remote: remote}
}

// Addr is a shorthand for a TCP address on port 22.
func Addr(ip string) net.Addr {
	return &net.TCPAddr{IP: net.ParseIP(ip), Port: 22}
}

// WithPty marks the session as interactive with the given terminal.
func (s *Session) WithPty(term string, width, height int) *Session {
	s.pty = &ssh.Pty{Term: term, Window: ssh.Window{Width: width, Height: height}}
	return s
}

// Writes returns a copy of every Write call.
func (s *Session) Writes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.writes))
	copy(out, s.writes)
	return out
}

// Output joins all writes.
func (s *Session) Output() string {
	return strings.Join(s.Writes(), "")
}

// ExitCode returns the status passed to Exit, if any.
func (s *Session) ExitCode() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.exitCode == nil {
		return 0, false
	}
	return *s.exitCode, true
}

func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Session) Read(_ []byte) (int, error) { return 0, io.EOF }
func (s *Session) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes = append(s.writes, string(p))
	return len(p), nil
}
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
func (s *Session) Exit(code int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exitCode = &code
	return nil
}
func (s *Session) CloseWrite() error                              { return nil }
func (s *Session) SendRequest(string, bool, []byte) (bool, error) { return false, nil }
func (s *Session) Stderr() io.ReadWriter                          { return &bytes.Buffer{} }
func (s *Session) User() string                                   { return s.user }
func (s *Session) RemoteAddr() net.Addr                           { return s.remote }
func (s *Session) LocalAddr() net.Addr                            { return s.ctx.local }
func (s *Session) Environ() []string                              { return nil }
func (s *Session) Command() []string                              { return nil }
func (s *Session) RawCommand() string                             { return "" }
func (s *Session) Subsystem() string                              { return "" }
func (s *Session) PublicKey() ssh.PublicKey                       { return nil }
func (s *Session) Context() ssh.Context                           { return s.ctx }
func (s *Session) Permissions() ssh.Permissions                   { return ssh.Permissions{} }
func (s *Session) EmulatedPty() bool                              { return false }
func (s *Session) Pty() (ssh.Pty, <-chan ssh.Window, bool) {
	if s.pty == nil {
		return ssh.Pty{}, nil, false
	}
	return *s.pty, make(chan ssh.Window), true
}
func (s *Session) Signals(chan<- ssh.Signal) {}
func (s *Session) Break(chan<- bool)         {}
