package serial

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"go.bug.st/serial"
)

// MaxLineBytes bounds an unterminated line. Longer fragments are dropped up
// to the next newline.
const MaxLineBytes = 64 << 10

// ErrOpen is returned by Run when the port cannot be opened.
var ErrOpen = errors.New("open serial port")

// Port is the subset of serial.Port the source reads from.
type Port interface {
	io.ReadCloser
	SetReadTimeout(t time.Duration) error
}

// Opener opens a named port at the given baud rate.
type Opener func(name string, baud int) (Port, error)

// OpenPort opens name as 8N1 at baud.
func OpenPort(name string, baud int) (Port, error) {
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(name, mode)
	if err != nil {
		return nil, err
	}
	return port, nil
}

type Options struct {
	PortName string
	Baud     int
	// PollInterval bounds every read, so cancellation is noticed within it.
	PollInterval time.Duration
	// SettleDelay is waited after opening; boards commonly reset on open.
	SettleDelay time.Duration
	// Open defaults to OpenPort.
	Open Opener
}

// Source yields trimmed, non-empty lines read from a serial port.
type Source struct {
	opts    Options
	logger  *slog.Logger
	maxLine int
}

func NewSource(opts Options, logger *slog.Logger) *Source {
	if opts.Open == nil {
		opts.Open = OpenPort
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 100 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{opts: opts, logger: logger, maxLine: MaxLineBytes}
}

// Run reads lines until ctx is cancelled, the port reports EOF or a read
// fails. The port is closed on every return path after a successful open.
func (s *Source) Run(ctx context.Context, handle func(line string)) error {
	port, err := s.opts.Open(s.opts.PortName, s.opts.Baud)
	if err != nil {
		return fmt.Errorf("%w %s: %v", ErrOpen, s.opts.PortName, err)
	}
	s.logger.Info("serial port opened", "port", s.opts.PortName, "baud", s.opts.Baud)

	defer func() {
		if err := port.Close(); err != nil {
			s.logger.Warn("serial close failed", "port", s.opts.PortName, "error", err)
		}
		s.logger.Info("serial connection closed", "port", s.opts.PortName)
	}()

	if err := port.SetReadTimeout(s.opts.PollInterval); err != nil {
		return fmt.Errorf("set read timeout on %s: %w", s.opts.PortName, err)
	}

	if s.opts.SettleDelay > 0 {
		timer := time.NewTimer(s.opts.SettleDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}

	buf := make([]byte, 256)
	var pending []byte
	discarding := false
	for {
		if ctx.Err() != nil {
			return nil
		}

		n, err := port.Read(buf)
		if n > 0 {
			chunk := buf[:n]
			if discarding {
				i := bytes.IndexByte(chunk, '\n')
				if i < 0 {
					chunk = nil
				} else {
					chunk = chunk[i+1:]
					discarding = false
				}
			}
			pending = append(pending, chunk...)
			pending = s.emitLines(pending, handle)
			if len(pending) > s.maxLine {
				s.logger.Warn("serial line too long, dropping it",
					"port", s.opts.PortName, "bytes", len(pending), "limit", s.maxLine)
				pending = pending[:0]
				discarding = true
			}
		}
		if errors.Is(err, io.EOF) {
			s.emit(pending, handle)
			return nil
		}
		if err != nil {
			return fmt.Errorf("read %s: %w", s.opts.PortName, err)
		}
	}
}

// emitLines hands every complete line in pending to handle and returns the
// unterminated remainder.
func (s *Source) emitLines(pending []byte, handle func(string)) []byte {
	for {
		i := bytes.IndexByte(pending, '\n')
		if i < 0 {
			return pending
		}
		s.emit(pending[:i], handle)
		pending = pending[i+1:]
	}
}

func (s *Source) emit(raw []byte, handle func(string)) {
	if !utf8.Valid(raw) {
		s.logger.Debug("serial line is not valid utf-8", "raw", hex.EncodeToString(raw))
	}
	line := strings.TrimSpace(strings.ToValidUTF8(string(raw), "\uFFFD"))
	if line == "" {
		return
	}
	s.logger.Debug("serial line received", "line", line)
	handle(line)
}
