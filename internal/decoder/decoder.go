// Package decoder turns chunks of bytes into records one poll at a time.
package decoder

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"openfms/fitstream/internal/protocol"
)

// State is the control outcome of a Poll
type State uint8

const (
	// NeedsMoreInput: the buffered bytes end inside an object.
	NeedsMoreInput State = iota + 1
	// EndOfStream: the parser sits at a file boundary with nothing buffered.
	EndOfStream
	// RecordReady: Result.Record holds the next record.
	RecordReady
)

func (s State) String() string {
	switch s {
	case NeedsMoreInput:
		return "needs_more_input"
	case EndOfStream:
		return "end_of_stream"
	case RecordReady:
		return "record_ready"
	}
	return "unknown"
}

// Result is the outcome of a successful Poll
type Result struct {
	State  State
	Record *protocol.Record
}

// ErrFailed is returned by every Poll after a structural error.
var ErrFailed = errors.New("decoder: failed after structural error")

// Decoder buffers input and drives a protocol.Parser over it. It does no
// I/O and is not safe for concurrent use.
type Decoder struct {
	parser protocol.Parser
	buf    buffer

	// stream offset of the first unconsumed byte
	offset int64
	failed error

	logger zerolog.Logger
}

// Option configures a Decoder
type Option func(*Decoder)

// WithLogger sets the logger used for trace output.
func WithLogger(logger zerolog.Logger) Option {
	return func(d *Decoder) {
		d.logger = logger
	}
}

// New creates a new decoder driving parser
func New(parser protocol.Parser, opts ...Option) *Decoder {
	d := &Decoder{
		parser: parser,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// AddChunk appends p to the internal buffer. No parsing happens here.
func (d *Decoder) AddChunk(p []byte) {
	d.buf.append(p)
}

// Buffered returns the number of fed bytes not yet consumed by the parser.
func (d *Decoder) Buffered() int {
	return d.buf.len()
}

// Offset returns the number of bytes consumed so far.
func (d *Decoder) Offset() int64 {
	return d.offset
}

// Poll advances until a record is ready or input runs out. Structural
// errors are sticky; a field decode error only loses the current record.
func (d *Decoder) Poll() (Result, error) {
	if d.failed != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrFailed, d.failed)
	}

	for {
		buf := d.buf.unread()
		out, err := d.parser.Parse(buf)
		if err != nil {
			return Result{}, d.fail(protocol.NewDecodeError("parse", d.offset, buf, err))
		}

		switch out.Status {
		case protocol.StatusIncomplete:
			return Result{State: NeedsMoreInput}, nil
		case protocol.StatusEndOfStream:
			return Result{State: EndOfStream}, nil
		case protocol.StatusParsed:
		default:
			return Result{}, d.fail(protocol.NewDecodeError("parse", d.offset, buf,
				fmt.Errorf("%w: parser returned unknown status %d", protocol.ErrStructural, out.Status)))
		}

		if out.Consumed <= 0 || out.Consumed > len(buf) || out.Object == nil {
			return Result{}, d.fail(protocol.NewDecodeError("parse", d.offset, buf,
				fmt.Errorf("%w: parser consumed %d of %d bytes", protocol.ErrStructural, out.Consumed, len(buf))))
		}

		start := d.offset
		raw := buf[:out.Consumed]
		d.buf.consume(out.Consumed)
		d.offset += int64(out.Consumed)

		switch out.Object.Kind() {
		case protocol.ObjectDataMessage:
			msg, ok := out.Object.(*protocol.DataMessage)
			if !ok {
				return Result{}, d.fail(protocol.NewDecodeError("parse", start, raw,
					fmt.Errorf("%w: data message of type %T", protocol.ErrStructural, out.Object)))
			}
			rec, err := d.parser.Decode(msg.Definition, msg)
			if err != nil {
				return Result{}, protocol.NewDecodeError("decode", start, raw, err)
			}
			return Result{State: RecordReady, Record: rec}, nil
		case protocol.ObjectFileHeader, protocol.ObjectDefinition, protocol.ObjectChecksum:
			d.logger.Trace().
				Stringer("object", out.Object.Kind()).
				Int64("offset", start).
				Int("size", out.Consumed).
				Msg("Skipped object")
		default:
			return Result{}, d.fail(protocol.NewDecodeError("parse", start, raw,
				fmt.Errorf("%w: unknown object kind %d", protocol.ErrStructural, out.Object.Kind())))
		}
	}
}

func (d *Decoder) fail(err error) error {
	d.failed = err
	return err
}
