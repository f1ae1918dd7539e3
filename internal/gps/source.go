// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import (
	"bytes"
	"fmt"
	"io"
	"time"

	serial "github.com/jacobsa/go-serial/serial"
)

// DefaultLineBuffer is the number of bytes held while waiting for a line
// terminator.
const DefaultLineBuffer = 256

// LineSource yields complete text lines from a GPS receiver.
//
// ReadLine makes a single read attempt and returns ok=false when no complete
// line is available yet. It never blocks longer than one device read.
type LineSource interface {
	ReadLine() (line []byte, ok bool)
}

// ReaderSource splits an io.Reader into '\n' terminated lines. Bytes beyond
// the buffer capacity without a terminator are discarded.
type ReaderSource struct {
	r        io.Reader
	buf      []byte
	chunk    []byte
	capacity int

	dropped int
	lastErr error
}

// NewReaderSource wraps r. capacity <= 0 selects DefaultLineBuffer.
func NewReaderSource(r io.Reader, capacity int) *ReaderSource {
	if capacity <= 0 {
		capacity = DefaultLineBuffer
	}
	return &ReaderSource{
		r:        r,
		buf:      make([]byte, 0, capacity),
		chunk:    make([]byte, capacity),
		capacity: capacity,
	}
}

// ReadLine returns the next buffered line (terminator included), reading
// from the underlying reader at most once.
func (s *ReaderSource) ReadLine() ([]byte, bool) {
	if line, ok := s.take(); ok {
		return line, true
	}

	n, err := s.r.Read(s.chunk)
	if n > 0 {
		s.buf = append(s.buf, s.chunk[:n]...)
	}
	// Serial reads time out with io.EOF; treat every error as "no data".
	s.lastErr = err

	line, ok := s.take()
	if !ok && len(s.buf) >= s.capacity {
		s.dropped += len(s.buf)
		s.buf = s.buf[:0]
	}
	return line, ok
}

func (s *ReaderSource) take() ([]byte, bool) {
	i := bytes.IndexByte(s.buf, '\n')
	if i < 0 {
		return nil, false
	}
	line := make([]byte, i+1)
	copy(line, s.buf[:i+1])
	s.buf = append(s.buf[:0], s.buf[i+1:]...)
	return line, true
}

// Dropped returns how many bytes were discarded because no terminator
// arrived within the buffer capacity.
func (s *ReaderSource) Dropped() int {
	return s.dropped
}

// Err returns the error of the last read, if any.
func (s *ReaderSource) Err() error {
	return s.lastErr
}

// Close clears the buffer and closes the reader when it is an io.Closer.
func (s *ReaderSource) Close() error {
	s.buf = s.buf[:0]
	if c, ok := s.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

type absentSource struct{}

func (absentSource) ReadLine() ([]byte, bool) { return nil, false }

// Absent returns a LineSource for a missing or unconfigured device: every
// read reports no data.
func Absent() LineSource {
	return absentSource{}
}

// SerialOptions configures OpenSerial.
type SerialOptions struct {
	PortName    string
	BaudRate    int
	PollTimeout time.Duration
	LineBuffer  int
}

// OpenSerial opens the receiver's serial port (8N1). When the port cannot be
// opened the error is returned together with Absent(), so callers can keep
// running and let the liveness policy report the missing device.
func OpenSerial(opts SerialOptions) (LineSource, io.Closer, error) {
	timeout := opts.PollTimeout
	if timeout < 100*time.Millisecond {
		// go-serial rounds the inter-character timeout to 100 ms units.
		timeout = 100 * time.Millisecond
	}
	serialOpts := serial.OpenOptions{
		PortName:              opts.PortName,
		BaudRate:              uint(opts.BaudRate),
		DataBits:              8,
		StopBits:              1,
		ParityMode:            serial.PARITY_NONE,
		MinimumReadSize:       0,
		InterCharacterTimeout: uint(timeout / time.Millisecond),
	}

	port, err := serial.Open(serialOpts)
	if err != nil {
		return Absent(), io.NopCloser(nil), fmt.Errorf("open GPS serial port %s: %w", opts.PortName, err)
	}
	src := NewReaderSource(port, opts.LineBuffer)
	return src, src, nil
}
