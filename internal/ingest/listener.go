// Package ingest accepts newline-delimited JSON frames from producers over
// TCP, one listener per stream. A listener serves one producer at a time and
// returns to accepting when the connection drops.
package ingest

import (
	"context"
	"io"
	"net"
	"sync"

	"codeberg.org/halcyon/robomon/internal/errors"
	"codeberg.org/halcyon/robomon/internal/frame"
	"codeberg.org/halcyon/robomon/internal/logger"
	"codeberg.org/halcyon/robomon/internal/metric"
)

type Listener struct {
	stream  frame.Stream
	addr    string
	process func(context.Context, []byte)
	metrics *metric.Metrics

	mu   sync.Mutex
	ln   net.Listener
	conn net.Conn
}

func NewListener(stream frame.Stream, addr string, pipeline *Pipeline) *Listener {
	l := &Listener{
		stream:  stream,
		addr:    addr,
		metrics: pipeline.Metrics,
	}

	switch stream {
	case frame.StreamTorque:
		l.process = pipeline.processTorque
	default:
		l.process = pipeline.processThermal
	}

	return l
}

// Addr reports the bound address, useful when listening on port 0.
func (l *Listener) Addr() net.Addr {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.ln == nil {
		return nil
	}
	return l.ln.Addr()
}

// Start binds the listen socket and launches the accept loop. The loop runs
// until Stop is called or ctx is cancelled.
func (l *Listener) Start(ctx context.Context) error {
	errFactory := errors.New()

	l.mu.Lock()
	if l.ln != nil {
		l.mu.Unlock()
		return errFactory.New(ErrAlreadyActive)
	}

	ln, err := net.Listen("tcp", l.addr)
	if err != nil {
		l.mu.Unlock()
		return errFactory.Wrap(ErrListen, err)
	}
	l.ln = ln
	l.mu.Unlock()

	logger.Info().
		Str("stream", string(l.stream)).
		Str("addr", ln.Addr().String()).
		Msg("Ingest listener started")

	go l.acceptLoop(ctx)

	return nil
}

// Stop closes the listen socket and any active producer connection.
func (l *Listener) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.ln != nil {
		l.ln.Close()
	}
	if l.conn != nil {
		l.conn.Close()
	}
}

func (l *Listener) acceptLoop(ctx context.Context) {
	for {
		conn, err := l.ln.Accept()
		if err != nil {
			if ctx.Err() != nil || isClosed(err) {
				logger.Debug().Str("stream", string(l.stream)).Msg("Ingest listener stopped")
				return
			}
			logger.Error().Err(err).Str("stream", string(l.stream)).Msg("Accept failed")
			continue
		}

		l.mu.Lock()
		l.conn = conn
		l.mu.Unlock()

		l.serve(ctx, conn)

		l.mu.Lock()
		l.conn = nil
		l.mu.Unlock()
	}
}

// serve consumes one producer connection line by line. A malformed line is
// dropped inside the pipeline; only connection errors end the session.
func (l *Listener) serve(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	logger.Info().
		Str("stream", string(l.stream)).
		Str("remote", conn.RemoteAddr().String()).
		Msg("Producer connected")
	l.metrics.SetProducerConnected(string(l.stream), true)
	defer l.metrics.SetProducerConnected(string(l.stream), false)

	reader := frame.NewLineReader(conn)
	for {
		line, err := reader.Next()
		if err != nil {
			if err != io.EOF && ctx.Err() == nil && !isClosed(err) {
				logger.Warn().Err(err).Str("stream", string(l.stream)).Msg("Producer read failed")
			}
			logger.Info().Str("stream", string(l.stream)).Msg("Producer disconnected")
			return
		}

		l.process(ctx, line)
	}
}

func isClosed(err error) bool {
	return errors.Is(err, net.ErrClosed)
}
