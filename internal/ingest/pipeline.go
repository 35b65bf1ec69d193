// Package ingest reads newline-framed scans from a serial port on a single
// background worker and hands them, in arrival order, to one consumer.
//
// Cancellation is cooperative: the worker polls the port with a short read
// timeout and checks its stop flag between reads, so Stop returns within
// roughly one poll timeout and the port is always closed by the goroutine
// that owns it.
package ingest

import (
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

var (
	ErrPortOpen       = errors.New("serial port open failed")
	ErrRead           = errors.New("serial read failed")
	ErrAlreadyRunning = errors.New("pipeline already running")
)

// Consumer receives each decoded line. It is never called concurrently.
type Consumer func(line string)

// ErrorHandler receives a read failure after the worker has released the
// port. The pipeline is stopped by then.
type ErrorHandler func(err error)

type Config struct {
	PollTimeout time.Duration // default 100ms
	QueueSize   int           // default 64
	Logger      *log.Logger
}

type Pipeline struct {
	opener   Opener
	cfg      Config
	consumer Consumer
	onError  ErrorHandler

	mu  sync.Mutex
	run *run
}

// run is the state of one Start..exit cycle.
type run struct {
	port     string
	stop     chan struct{}
	stopOnce sync.Once
	stopped  atomic.Bool
	done     chan struct{}
}

func (r *run) signal() {
	r.stopOnce.Do(func() {
		r.stopped.Store(true)
		close(r.stop)
	})
}

func (r *run) finished() bool {
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}

func New(opener Opener, cfg Config, consumer Consumer, onError ErrorHandler) *Pipeline {
	if opener == nil {
		opener = SerialOpener{}
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = 100 * time.Millisecond
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(io.Discard, "", 0)
	}
	if consumer == nil {
		consumer = func(string) {}
	}
	return &Pipeline{
		opener:   opener,
		cfg:      cfg,
		consumer: consumer,
		onError:  onError,
	}
}

// Start opens port and spawns the worker. It returns ErrAlreadyRunning,
// without touching the running worker, if one is active. A worker that was
// halted but is still finishing its last read is waited for (at most one
// poll timeout) rather than reported as running. A failed open is not
// retried.
func (p *Pipeline) Start(port string, baudRate int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if r := p.run; r != nil && !r.finished() {
		if !r.stopped.Load() {
			return fmt.Errorf("%w on %s", ErrAlreadyRunning, r.port)
		}
		<-r.done
	}
	if baudRate <= 0 {
		baudRate = DefaultBaudRate
	}

	h, err := p.opener.Open(port, PortConfig{BaudRate: baudRate, PollTimeout: p.cfg.PollTimeout})
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrPortOpen, port, err)
	}

	r := &run{
		port: port,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	lines := make(chan string, p.cfg.QueueSize)
	p.run = r

	go p.worker(r, h, lines)
	go p.dispatch(r, lines)

	p.cfg.Logger.Printf("ingest: listening on %s (baud=%d poll=%s)", port, baudRate, p.cfg.PollTimeout)
	return nil
}

// Halt asks the worker to stop and returns immediately. Lines still queued
// are dropped. Safe to call from the consumer.
func (p *Pipeline) Halt() {
	p.mu.Lock()
	r := p.run
	p.mu.Unlock()
	if r != nil {
		r.signal()
	}
}

// Stop halts the worker and waits until it has closed the port. Calling it
// on a stopped pipeline is a no-op.
func (p *Pipeline) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	r := p.run
	if r == nil {
		return
	}
	r.signal()
	<-r.done
	p.run = nil
	p.cfg.Logger.Printf("ingest: stopped listening on %s", r.port)
}

func (p *Pipeline) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.run != nil && !p.run.finished()
}

// Port returns the port of the active worker, or "".
func (p *Pipeline) Port() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.run == nil || p.run.finished() {
		return ""
	}
	return p.run.port
}

// Done is closed when the current worker exits. It is already closed when
// nothing is running.
func (p *Pipeline) Done() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.run == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return p.run.done
}

func (p *Pipeline) worker(r *run, h Port, lines chan<- string) {
	err := p.readLoop(r, h, lines)

	if cerr := h.Close(); cerr != nil {
		p.cfg.Logger.Printf("ingest: close %s: %v", r.port, cerr)
	}
	close(lines)
	close(r.done)

	if err != nil {
		p.cfg.Logger.Printf("ingest: %v", err)
		if p.onError != nil {
			p.onError(err)
		}
	}
}

func (p *Pipeline) readLoop(r *run, h Port, lines chan<- string) error {
	buf := make([]byte, 256)
	var frame []byte

	for !r.stopped.Load() {
		n, err := h.Read(buf)
		if err != nil {
			if r.stopped.Load() {
				return nil
			}
			return fmt.Errorf("%w: %s: %v", ErrRead, r.port, err)
		}

		for _, b := range buf[:n] {
			if b != '\n' {
				frame = append(frame, b)
				continue
			}
			line := printable(frame)
			frame = frame[:0]

			select {
			case lines <- line:
			case <-r.stop:
				return nil
			}
		}
	}
	return nil
}

// dispatch is the single consumer of lines.
func (p *Pipeline) dispatch(r *run, lines <-chan string) {
	for line := range lines {
		if r.stopped.Load() {
			continue
		}
		p.consumer(line)
	}
}
