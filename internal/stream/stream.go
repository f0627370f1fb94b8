// Package stream pulls records out of an io.Reader, reading fixed-size
// chunks only when the decoder needs more input.
package stream

import (
	"errors"
	"fmt"
	"io"
	"iter"

	"github.com/rs/zerolog"

	"openfms/fitstream/internal/decoder"
	"openfms/fitstream/internal/protocol"
)

// DefaultChunkSize is the read size used when none is configured.
const DefaultChunkSize = 512

// consecutive empty reads tolerated before giving up on a source
const maxEmptyReads = 100

var (
	// ErrSourceRead wraps errors returned by the underlying reader.
	ErrSourceRead = errors.New("stream: source read failed")
	// ErrChunkSize is returned by New for chunk sizes below 1.
	ErrChunkSize = errors.New("stream: chunk size must be at least 1")
)

// Observer is notified of stream progress
type Observer interface {
	ChunkRead(n int)
	RecordDecoded(kind protocol.MesgNum)
	DecodeFailed(err error)
}

type nopObserver struct{}

func (nopObserver) ChunkRead(int)                  {}
func (nopObserver) RecordDecoded(protocol.MesgNum) {}
func (nopObserver) DecodeFailed(error)             {}

type options struct {
	chunkSize int
	observer  Observer
	logger    zerolog.Logger
}

// Option configures a Stream
type Option func(*options)

// WithChunkSize sets the number of bytes requested per read.
func WithChunkSize(n int) Option {
	return func(o *options) {
		o.chunkSize = n
	}
}

// WithObserver registers an observer for reads, records and failures.
func WithObserver(obs Observer) Option {
	return func(o *options) {
		if obs != nil {
			o.observer = obs
		}
	}
}

// WithLogger sets the stream logger. The decoder logs through it as well.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// Stream is a pull-based sequence of records. Once finished, every call to
// Next returns io.EOF.
type Stream struct {
	src      io.Reader
	dec      *decoder.Decoder
	chunk    []byte
	observer Observer
	logger   zerolog.Logger

	// error returned together with the last non-empty read
	pending error
	read    int64
	done    bool
}

// New creates a new stream reading from r and decoding with parser
func New(r io.Reader, parser protocol.Parser, opts ...Option) (*Stream, error) {
	o := options{
		chunkSize: DefaultChunkSize,
		observer:  nopObserver{},
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.chunkSize < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrChunkSize, o.chunkSize)
	}

	return &Stream{
		src:      r,
		dec:      decoder.New(parser, decoder.WithLogger(o.logger)),
		chunk:    make([]byte, o.chunkSize),
		observer: o.observer,
		logger:   o.logger,
	}, nil
}

// Next returns the next record, io.EOF when the stream is finished, or an
// error. Structural and read errors finish the stream; a field decode error
// only skips the affected record.
func (s *Stream) Next() (*protocol.Record, error) {
	for !s.done {
		res, err := s.dec.Poll()
		if err != nil {
			s.observer.DecodeFailed(err)
			if !errors.Is(err, protocol.ErrFieldDecode) {
				s.done = true
			}
			return nil, err
		}

		switch res.State {
		case decoder.RecordReady:
			s.observer.RecordDecoded(res.Record.Kind())
			return res.Record, nil
		case decoder.NeedsMoreInput, decoder.EndOfStream:
			// At end of stream a further read tells chained files apart
			// from the end of the source.
			if err := s.fill(); err != nil {
				s.done = true
				if errors.Is(err, io.EOF) {
					s.finish()
					return nil, io.EOF
				}
				err = fmt.Errorf("%w: %w", ErrSourceRead, err)
				s.observer.DecodeFailed(err)
				return nil, err
			}
		}
	}
	return nil, io.EOF
}

// All returns the remaining records as a range-over-func sequence. It stops
// at io.EOF, which is never yielded.
func (s *Stream) All() iter.Seq2[*protocol.Record, error] {
	return func(yield func(*protocol.Record, error) bool) {
		for {
			rec, err := s.Next()
			if err == io.EOF {
				return
			}
			if !yield(rec, err) {
				return
			}
		}
	}
}

// BytesRead returns the number of bytes read from the source.
func (s *Stream) BytesRead() int64 {
	return s.read
}

// fill reads one chunk into the decoder. It returns an error only when no
// bytes were read.
func (s *Stream) fill() error {
	if s.pending != nil {
		return s.pending
	}

	for range maxEmptyReads {
		n, err := s.src.Read(s.chunk)
		if n > 0 {
			s.read += int64(n)
			s.observer.ChunkRead(n)
			s.dec.AddChunk(s.chunk[:n])
			s.pending = err
			return nil
		}
		if err != nil {
			return err
		}
	}
	return io.ErrNoProgress
}

func (s *Stream) finish() {
	if n := s.dec.Buffered(); n > 0 {
		s.logger.Warn().
			Int("bytes", n).
			Int64("offset", s.dec.Offset()).
			Msg("Input ended inside an object, trailing bytes ignored")
		return
	}
	s.logger.Debug().Int64("bytes", s.read).Msg("Stream finished")
}
