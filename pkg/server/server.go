// Package server is the single-threaded reactor that owns every connection:
// it accepts sockets, feeds their bytes to the parser, dispatches completed
// requests, writes responses and expires idle connections.
package server

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/joeydtaylor/luarest/pkg/app"
	"github.com/joeydtaylor/luarest/pkg/manifest"
	"github.com/joeydtaylor/luarest/pkg/middleware/logger"
	"github.com/joeydtaylor/luarest/pkg/middleware/metrics"
	"go.uber.org/zap"
)

const readBufferSize = 4096

// Config tunes the reactor. Zero values fall back to the defaults.
type Config struct {
	KeepAliveBudget time.Duration
	SweepPeriod     time.Duration
	WriteTimeout    time.Duration
	MaxRequestBytes int
}

// ConfigFrom maps the [server] section of luarest.toml.
func ConfigFrom(s manifest.Server) Config {
	return Config{
		KeepAliveBudget: s.KeepAliveBudget(),
		SweepPeriod:     s.SweepPeriod(),
		WriteTimeout:    s.WriteTimeout(),
		MaxRequestBytes: s.MaxRequestBytes,
	}
}

func (c Config) withDefaults() Config {
	if c.KeepAliveBudget <= 0 {
		c.KeepAliveBudget = DefaultKeepAliveBudget
	}
	if c.SweepPeriod <= 0 {
		c.SweepPeriod = DefaultSweepPeriod
	}
	return c
}

type event struct {
	c    *Conn
	nc   net.Conn
	data []byte
	at   time.Time // when data was read off the socket
	err  error
	fn   func()
}

// Server runs the reactor. Every Conn and the open set are touched only by
// the goroutine running Serve; acceptor and reader goroutines hand their
// results over through events.
type Server struct {
	cfg        Config
	log        *zap.Logger
	access     logger.AccessLogger
	dispatcher *Dispatcher
	sweeper    Sweeper
	now        func() time.Time

	conns  ConnSet
	nextID uint64
	events chan event

	mu       sync.Mutex
	ln       net.Listener
	quit     chan struct{}
	done     chan struct{}
	quitOnce sync.Once
}

func New(cfg Config, apps *app.Registry, log *zap.Logger, access logger.AccessLogger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	cfg = cfg.withDefaults()
	return &Server{
		cfg:        cfg,
		log:        log,
		access:     access,
		dispatcher: NewDispatcher(apps, log),
		sweeper:    Sweeper{Budget: cfg.KeepAliveBudget, Period: cfg.SweepPeriod},
		now:        time.Now,
		conns:      make(ConnSet),
		events:     make(chan event, 64),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Serve runs the reactor on ln until Shutdown is called or accepting fails.
// It always returns a non-nil error; after Shutdown it is ErrServerClosed.
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	select {
	case <-s.quit:
		s.mu.Unlock()
		return ErrServerClosed
	default:
	}
	if s.ln != nil {
		s.mu.Unlock()
		return errors.New("server: already serving")
	}
	s.ln = ln
	s.mu.Unlock()

	defer close(s.done)

	go s.acceptLoop(ln)

	ticker := time.NewTicker(s.cfg.SweepPeriod)
	defer ticker.Stop()

	s.log.Info("reactor started",
		zap.String("addr", ln.Addr().String()),
		zap.Duration("keepAliveBudget", s.cfg.KeepAliveBudget),
		zap.Duration("sweepPeriod", s.cfg.SweepPeriod),
	)

	for {
		select {
		case ev := <-s.events:
			if err := s.handle(ev); err != nil {
				s.closeAll(metrics.ReasonShutdown)
				return err
			}
		case <-ticker.C:
			if err := s.drain(); err != nil {
				s.closeAll(metrics.ReasonShutdown)
				return err
			}
			s.sweep(s.now())
		case <-s.quit:
			s.closeAll(metrics.ReasonShutdown)
			return ErrServerClosed
		}
	}
}

// Shutdown stops accepting, force-closes every open connection and waits for
// the reactor to exit or ctx to expire.
func (s *Server) Shutdown(ctx context.Context) error {
	s.quitOnce.Do(func() { close(s.quit) })

	s.mu.Lock()
	ln := s.ln
	s.mu.Unlock()
	if ln == nil {
		return nil
	}
	_ = ln.Close()

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// OpenConnections reports the size of the open set, read on the reactor.
func (s *Server) OpenConnections() int {
	n := -1
	s.exec(func() { n = s.conns.Len() })
	return n
}

// exec runs fn on the reactor goroutine and waits for it.
func (s *Server) exec(fn func()) bool {
	ran := make(chan struct{})
	if !s.post(event{fn: func() { fn(); close(ran) }}) {
		return false
	}
	select {
	case <-ran:
		return true
	case <-s.done:
		return false
	}
}

func (s *Server) post(ev event) bool {
	select {
	case s.events <- ev:
		return true
	case <-s.done:
		return false
	}
}

// drain handles the events already queued so that bytes which arrived before
// a sweep are credited to their connection first.
func (s *Server) drain() error {
	for i := cap(s.events); i > 0; i-- {
		select {
		case ev := <-s.events:
			if err := s.handle(ev); err != nil {
				return err
			}
		default:
			return nil
		}
	}
	return nil
}

func (s *Server) acceptLoop(ln net.Listener) {
	var tempDelay time.Duration
	for {
		nc, err := ln.Accept()
		if err != nil {
			select {
			case <-s.quit:
				return
			default:
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				if tempDelay == 0 {
					tempDelay = 5 * time.Millisecond
				} else {
					tempDelay *= 2
				}
				if tempDelay > time.Second {
					tempDelay = time.Second
				}
				s.log.Warn("accept error, retrying", zap.Error(err), zap.Duration("delay", tempDelay))
				time.Sleep(tempDelay)
				continue
			}
			s.post(event{err: err})
			return
		}
		tempDelay = 0
		if !s.post(event{nc: nc}) {
			_ = nc.Close()
			return
		}
	}
}

func (s *Server) readLoop(c *Conn) {
	for {
		buf := make([]byte, readBufferSize)
		n, err := c.nc.Read(buf)
		if n > 0 {
			if !s.post(event{c: c, data: buf[:n], at: s.now()}) {
				return
			}
		}
		if err != nil {
			s.post(event{c: c, err: err})
			return
		}
	}
}

// handle processes one event on the reactor. A returned error stops Serve.
func (s *Server) handle(ev event) error {
	switch {
	case ev.fn != nil:
		ev.fn()
	case ev.nc != nil:
		s.accept(ev.nc)
	case ev.c != nil:
		if ev.c.state == StateClosed {
			return nil
		}
		if len(ev.data) > 0 {
			s.onData(ev.c, ev.data, ev.at)
		}
		if ev.err != nil && ev.c.state != StateClosed {
			if errors.Is(ev.err, io.EOF) {
				s.closeConn(ev.c, metrics.ReasonEOF, nil)
			} else {
				s.closeConn(ev.c, metrics.ReasonError, ev.err)
			}
		}
	case ev.err != nil:
		s.log.Error("accept failed", zap.Error(ev.err))
		return ev.err
	}
	return nil
}

func (s *Server) accept(nc net.Conn) {
	s.nextID++
	c := newConn(s.nextID, nc, s.cfg.MaxRequestBytes, s.now())
	s.conns.Add(c)
	metrics.ConnectionOpened()
	s.log.Debug("new connection", zap.Uint64("conn", c.id), zap.String("remoteAddr", nc.RemoteAddr().String()))
	go s.readLoop(c)
}

// onData feeds one chunk to the parser. Each completed message is answered
// before the parser sees the bytes that follow it.
func (s *Server) onData(c *Conn, data []byte, at time.Time) {
	c.touch(at)
	if c.state == StateAccepted {
		c.state = StateReading
	}
	for len(data) > 0 {
		n, err := c.parser.Execute(data)
		if err != nil {
			s.closeConn(c, metrics.ReasonParseError, err)
			return
		}
		data = data[n:]
		if c.req == nil || !c.req.complete {
			return
		}
		if !s.respond(c) {
			return
		}
	}
}

// respond dispatches the completed request on c and writes the response.
// It reports whether the connection stays open.
func (s *Server) respond(c *Conn) bool {
	req := c.req
	start := s.now()

	c.state = StateDispatching
	resp, appName, derr := s.dispatcher.Dispatch(context.Background(), req)

	c.state = StateResponding
	c.out = resp.AppendTo(c.out[:0])
	if s.cfg.WriteTimeout > 0 {
		_ = c.nc.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
	}
	_, werr := c.nc.Write(c.out)

	s.access.Log(logger.Access{
		Conn:       c.id,
		RemoteAddr: c.nc.RemoteAddr().String(),
		Proto:      req.proto(),
		Method:     req.rawMeth.String(),
		App:        appName,
		URI:        string(req.url),
		Status:     resp.Status.Code(),
		Size:       len(c.out),
		Start:      start,
		Latency:    s.now().Sub(start),
		KeepAlive:  req.shouldKeepAlive,
		Err:        derr,
	})

	if werr != nil {
		s.closeConn(c, metrics.ReasonError, werr)
		return false
	}
	c.touch(s.now())
	c.release()
	if !req.shouldKeepAlive {
		s.closeConn(c, metrics.ReasonDone, nil)
		return false
	}
	c.state = StateReading
	return true
}

func (s *Server) sweep(now time.Time) {
	n := s.sweeper.Sweep(now, s.conns, func(c *Conn) {
		s.closeConn(c, metrics.ReasonIdleTimeout, nil)
	})
	if n > 0 {
		s.log.Debug("idle connections closed", zap.Int("count", n), zap.Int("open", s.conns.Len()))
	}
}

// closeConn is the single teardown path: it closes the socket, drops the
// request in flight and removes c from the open set.
func (s *Server) closeConn(c *Conn, reason string, err error) {
	if c.state == StateClosed {
		return
	}
	c.state = StateClosing
	_ = c.nc.Close()
	c.release()
	c.out = nil
	s.conns.Remove(c)
	c.state = StateClosed
	metrics.ConnectionClosed(reason)

	fields := []zap.Field{zap.Uint64("conn", c.id), zap.String("reason", reason)}
	switch reason {
	case metrics.ReasonError:
		s.log.Warn("connection closed", append(fields, zap.Error(err))...)
	case metrics.ReasonParseError:
		s.log.Info("connection closed", append(fields, zap.Error(err))...)
	default:
		s.log.Debug("connection closed", fields...)
	}
}

func (s *Server) closeAll(reason string) {
	for c := range s.conns {
		s.closeConn(c, reason, nil)
	}
}
