package uds

import (
	"bufio"
	"context"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"music-box/pkg/logger"
)

const (
	ReplyOK      = "ok"
	ReplyError   = "error: "
	maxLineBytes = 64 * 1024
)

type ServerConfig struct {
	SocketPath     string
	CommandTimeout int // seconds
}

type Server struct {
	cfg      *ServerConfig
	log      *logger.Zerolog
	listener net.Listener
	wg       sync.WaitGroup
	mu       sync.Mutex
	conns    map[net.Conn]struct{}
	closed   bool
}

func NewUDSServer(cfg *ServerConfig, log *logger.Zerolog) (*Server, error) {
	if cfg.SocketPath == "" {
		return nil, errors.New("socket path is empty")
	}

	if err := os.Remove(cfg.SocketPath); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(err, "remove stale socket")
	}

	l, err := net.Listen("unix", cfg.SocketPath)
	if err != nil {
		return nil, errors.Wrap(err, "listen")
	}

	s := &Server{
		cfg:      cfg,
		log:      log,
		listener: l,
		conns:    make(map[net.Conn]struct{}),
	}

	s.wg.Add(1)
	go s.accept()

	log.Info().Msgf("listening on %s", cfg.SocketPath)

	return s, nil
}

func (s *Server) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	for c := range s.conns {
		_ = c.Close()
	}
	s.mu.Unlock()

	if err := s.listener.Close(); err != nil {
		s.log.Error().Msgf("failed to close listener: %v", err)
	}
	s.wg.Wait()
}

func (s *Server) accept() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.mu.Lock()
			closed := s.closed
			s.mu.Unlock()
			if closed {
				return
			}
			s.log.Error().Msgf("failed to accept connection: %v", err)
			continue
		}

		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			_ = conn.Close()
			return
		}
		s.conns[conn] = struct{}{}
		s.mu.Unlock()

		s.wg.Add(1)
		go s.serve(conn)
	}
}

func (s *Server) serve(conn net.Conn) {
	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		_ = conn.Close()
		s.wg.Done()
	}()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 4096), maxLineBytes)
	w := bufio.NewWriter(conn)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		s.log.Debug().Msgf("command: %s", line)

		if _, err := w.WriteString(s.execute(line) + "\n"); err != nil {
			s.log.Error().Msgf("failed to write reply: %v", err)
			return
		}
		if err := w.Flush(); err != nil {
			s.log.Error().Msgf("failed to write reply: %v", err)
			return
		}
	}

	if err := scanner.Err(); err != nil {
		s.log.Debug().Msgf("connection closed: %v", err)
	}
}

func (s *Server) execute(line string) string {
	if commandUseCase == nil {
		return ReplyError + "server is not ready"
	}

	ctx := context.Background()
	if s.cfg.CommandTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(s.cfg.CommandTimeout)*time.Second)
		defer cancel()
	}

	data, err := commandUseCase.Execute(ctx, line)
	if err != nil {
		return ReplyError + strings.ReplaceAll(err.Error(), "\n", " ")
	}
	if data == nil {
		return ReplyOK
	}
	return string(data)
}
