// Package sshui serves the terminal console to SSH sessions. Every session
// gets its own model over the shared Console; the session's LANG picks the
// message catalog.
package sshui

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gliderlabs/ssh"
	"golang.org/x/text/language"

	"grimm.is/iwaf/internal/console"
	"grimm.is/iwaf/internal/i18n"
	"grimm.is/iwaf/internal/logging"
	"grimm.is/iwaf/internal/metrics"
	"grimm.is/iwaf/internal/tui"
)

// Options configures the SSH console.
type Options struct {
	Addr string
	// HostKeyFile is a PEM private key. Empty generates a key per start.
	HostKeyFile string
	// Password, when set, is required from every client.
	Password string

	Console *console.Console
	Logger  *logging.Logger
	Metrics *metrics.Registry
}

// Server is an SSH server running the TUI.
type Server struct {
	console  *console.Console
	logger   *logging.Logger
	metrics  *metrics.Registry
	srv      *ssh.Server
	sessions atomic.Int64
}

// New creates the server. It does not listen until ListenAndServe or Serve.
func New(opts Options) (*Server, error) {
	if opts.Console == nil {
		return nil, errors.New("sshui: console is required")
	}
	s := &Server{
		console: opts.Console,
		logger:  opts.Logger,
		metrics: opts.Metrics,
	}
	if s.logger == nil {
		s.logger = logging.WithComponent("ssh")
	}

	s.srv = &ssh.Server{
		Addr:    opts.Addr,
		Handler: s.handle,
	}
	if opts.HostKeyFile != "" {
		if err := s.srv.SetOption(ssh.HostKeyFile(opts.HostKeyFile)); err != nil {
			return nil, fmt.Errorf("failed to load host key: %w", err)
		}
	}
	if opts.Password != "" {
		want := []byte(opts.Password)
		s.srv.PasswordHandler = func(ctx ssh.Context, password string) bool {
			ok := subtle.ConstantTimeCompare([]byte(password), want) == 1
			if !ok {
				s.logger.Warn("ssh login rejected", "user", ctx.User(), "remote", ctx.RemoteAddr().String())
			}
			return ok
		}
	}
	return s, nil
}

// ListenAndServe listens on the configured address. It returns nil after
// Shutdown or Close.
func (s *Server) ListenAndServe() error {
	s.logger.Info("SSH console listening", "addr", s.srv.Addr)
	return ignoreClosed(s.srv.ListenAndServe())
}

// Serve accepts sessions on l.
func (s *Server) Serve(l net.Listener) error {
	return ignoreClosed(s.srv.Serve(l))
}

// Shutdown stops accepting sessions and waits for open ones until ctx ends.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// Close drops every session.
func (s *Server) Close() error {
	return s.srv.Close()
}

// Sessions returns the number of open sessions.
func (s *Server) Sessions() int {
	return int(s.sessions.Load())
}

func ignoreClosed(err error) error {
	if errors.Is(err, ssh.ErrServerClosed) || errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

func (s *Server) handle(sess ssh.Session) {
	_, winCh, isPty := sess.Pty()
	if !isPty {
		fmt.Fprintln(sess, "Error: PTY required. Reconnect with -t option.")
		_ = sess.Exit(1)
		return
	}

	remote := sess.RemoteAddr().String()
	if host, _, err := net.SplitHostPort(remote); err == nil {
		remote = host
	}
	lang := SessionLanguage(sess.Environ())
	s.track(1)
	defer s.track(-1)
	s.logger.Info("ssh session opened", "user", sess.User(), "remote", remote, "lang", lang.String())

	p := i18n.NewPrinter(lang)
	m := tui.NewModel(tui.NewLocalBackend(s.console, p), p)
	defer m.Close()

	prog := tea.NewProgram(m,
		tea.WithInput(sess),
		tea.WithOutput(sess),
		tea.WithAltScreen(),
		tea.WithContext(sess.Context()),
	)
	go func() {
		for win := range winCh {
			prog.Send(tea.WindowSizeMsg{Width: win.Width, Height: win.Height})
		}
	}()

	if _, err := prog.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		s.logger.Warn("ssh session ended with error", "remote", remote, "error", err)
	}
	s.logger.Info("ssh session closed", "user", sess.User(), "remote", remote)
	_ = sess.Exit(0)
}

func (s *Server) track(delta int64) {
	n := s.sessions.Add(delta)
	if s.metrics != nil {
		s.metrics.SSHSessions.Set(float64(n))
	}
}

// SessionLanguage picks the catalog from LC_ALL, LC_MESSAGES or LANG in env
// (in that order). "zh_CN.UTF-8" selects Chinese; anything unknown is
// English.
func SessionLanguage(env []string) language.Tag {
	vars := map[string]string{}
	for _, kv := range env {
		if k, v, ok := strings.Cut(kv, "="); ok {
			vars[k] = v
		}
	}
	for _, k := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		v := vars[k]
		if v == "" || v == "C" || v == "POSIX" {
			continue
		}
		v, _, _ = strings.Cut(v, ".")
		v, _, _ = strings.Cut(v, "@")
		return i18n.MatchLanguage(strings.ReplaceAll(v, "_", "-"))
	}
	return i18n.DefaultLang
}
