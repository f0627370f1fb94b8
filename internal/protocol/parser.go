package protocol

// Status classifies the outcome of a Parse call
type Status uint8

const (
	// StatusParsed: Consumed leading bytes produced Object.
	StatusParsed Status = iota + 1
	// StatusIncomplete: the buffer is a valid but truncated prefix; nothing
	// was consumed and the whole buffer must be offered again once extended.
	StatusIncomplete
	// StatusEndOfStream: the parser sits at a file boundary and the buffer
	// holds nothing more.
	StatusEndOfStream
)

func (s Status) String() string {
	switch s {
	case StatusParsed:
		return "parsed"
	case StatusIncomplete:
		return "incomplete"
	case StatusEndOfStream:
		return "end_of_stream"
	}
	return "unknown"
}

// Outcome is the result of a Parse call
type Outcome struct {
	Status   Status
	Object   Object
	Consumed int
}

// Parsed reports that n leading bytes produced obj.
func Parsed(obj Object, n int) Outcome {
	return Outcome{Status: StatusParsed, Object: obj, Consumed: n}
}

var (
	Incomplete  = Outcome{Status: StatusIncomplete}
	EndOfStream = Outcome{Status: StatusEndOfStream}
)

// Parser is the byte-level grammar of the container format. Implementations
// keep their own context (registered definitions, running checksum) between
// calls and are not safe for concurrent use.
type Parser interface {
	// Parse attempts to parse the next object at the start of buf.
	// A non-nil error wraps ErrStructural and is fatal for the stream.
	Parse(buf []byte) (Outcome, error)

	// Decode converts a data message into a Record using def.
	// A non-nil error wraps ErrFieldDecode.
	Decode(def *Definition, msg *DataMessage) (*Record, error)
}
