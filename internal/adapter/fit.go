package adapter

import (
	"encoding/binary"
	"fmt"

	"openfms/fitstream/internal/protocol"
)

const (
	// FIT protocol constants
	headerSizeLegacy = 12
	headerSizeFull   = 14
	fileCRCSize      = 2

	definitionFixedSize = 6

	headerCompressedMask = 0x80
	headerDefinitionMask = 0x40
	headerDeveloperMask  = 0x20
	headerLocalTypeMask  = 0x0F

	compressedLocalTypeShift = 5
	compressedLocalTypeMask  = 0x03
	compressedTimeMask       = 0x1F

	archLittleEndian = 0
	archBigEndian    = 1

	localTypes = 16

	invalidUint32 = 0xFFFFFFFF
)

var fitSignature = [4]byte{'.', 'F', 'I', 'T'}

// parseState is the position of the parser inside a FIT file
type parseState uint8

const (
	stateHeader parseState = iota
	stateRecords
	stateCRC
)

// FITParser implements protocol.Parser for FIT files, including files
// chained back to back in one stream.
type FITParser struct {
	verifyCRC bool

	state     parseState
	files     int
	remaining uint32
	crc       uint16
	defs      [localTypes]*protocol.Definition

	// last full timestamp, base for compressed timestamp headers
	lastTimestamp uint32
}

// Option configures a FITParser
type Option func(*FITParser)

// WithCRCCheck toggles header and file checksum verification (on by default).
func WithCRCCheck(enabled bool) Option {
	return func(p *FITParser) {
		p.verifyCRC = enabled
	}
}

// NewFITParser creates a new FIT parser
func NewFITParser(opts ...Option) *FITParser {
	p := &FITParser{verifyCRC: true}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse implements protocol.Parser
func (p *FITParser) Parse(buf []byte) (protocol.Outcome, error) {
	switch p.state {
	case stateHeader:
		return p.parseHeader(buf)
	case stateRecords:
		return p.parseRecord(buf)
	case stateCRC:
		return p.parseCRC(buf)
	}
	return protocol.Outcome{}, fmt.Errorf("%w: parser in unknown state %d", protocol.ErrStructural, p.state)
}

func (p *FITParser) parseHeader(buf []byte) (protocol.Outcome, error) {
	if len(buf) == 0 {
		if p.files > 0 {
			return protocol.EndOfStream, nil
		}
		return protocol.Incomplete, nil
	}

	size := int(buf[0])
	if size != headerSizeLegacy && size != headerSizeFull {
		return protocol.Outcome{}, fmt.Errorf("%w: invalid header size %d", protocol.ErrStructural, size)
	}
	if len(buf) < size {
		return protocol.Incomplete, nil
	}
	if [4]byte(buf[8:12]) != fitSignature {
		return protocol.Outcome{}, fmt.Errorf("%w: missing .FIT signature", protocol.ErrStructural)
	}

	header := &protocol.FileHeader{
		Size:            uint8(size),
		ProtocolVersion: buf[1],
		ProfileVersion:  binary.LittleEndian.Uint16(buf[2:4]),
		DataSize:        binary.LittleEndian.Uint32(buf[4:8]),
	}
	if size == headerSizeFull {
		header.CRC = binary.LittleEndian.Uint16(buf[12:14])
		if p.verifyCRC && header.CRC != 0 {
			if computed := crc16(0, buf[:headerSizeLegacy]); computed != header.CRC {
				return protocol.Outcome{}, fmt.Errorf("%w: header crc mismatch: stored 0x%04X, computed 0x%04X",
					protocol.ErrStructural, header.CRC, computed)
			}
		}
	}

	// New file: forget everything learned from the previous one
	p.defs = [localTypes]*protocol.Definition{}
	p.lastTimestamp = 0
	p.crc = crc16(0, buf[:size])
	p.remaining = header.DataSize
	if p.remaining == 0 {
		p.state = stateCRC
	} else {
		p.state = stateRecords
	}

	return protocol.Parsed(header, size), nil
}

func (p *FITParser) parseRecord(buf []byte) (protocol.Outcome, error) {
	if len(buf) == 0 {
		return protocol.Incomplete, nil
	}

	var (
		obj  protocol.Object
		size int
		err  error
	)
	header := buf[0]
	switch {
	case header&headerCompressedMask != 0:
		obj, size, err = p.parseCompressed(buf)
	case header&headerDefinitionMask != 0:
		obj, size, err = p.parseDefinition(buf)
	default:
		obj, size, err = p.parseData(buf)
	}
	if err != nil {
		return protocol.Outcome{}, err
	}
	if obj == nil {
		return protocol.Incomplete, nil
	}

	if uint32(size) > p.remaining {
		return protocol.Outcome{}, fmt.Errorf("%w: %s of %d bytes overruns data section (%d bytes left)",
			protocol.ErrStructural, obj.Kind(), size, p.remaining)
	}
	p.remaining -= uint32(size)
	p.crc = crc16(p.crc, buf[:size])
	if p.remaining == 0 {
		p.state = stateCRC
	}

	return protocol.Parsed(obj, size), nil
}

// parseDefinition returns a nil object when buf is too short.
func (p *FITParser) parseDefinition(buf []byte) (protocol.Object, int, error) {
	if len(buf) < definitionFixedSize {
		return nil, 0, nil
	}

	header := buf[0]
	def := &protocol.Definition{LocalType: header & headerLocalTypeMask}
	switch buf[2] {
	case archLittleEndian:
	case archBigEndian:
		def.BigEndian = true
	default:
		return nil, 0, fmt.Errorf("%w: invalid architecture %d", protocol.ErrStructural, buf[2])
	}
	order := byteOrder(def.BigEndian)
	def.Global = protocol.MesgNum(order.Uint16(buf[3:5]))

	numFields := int(buf[5])
	size := definitionFixedSize + 3*numFields
	if len(buf) < size {
		return nil, 0, nil
	}
	def.Fields = make([]protocol.FieldDefinition, numFields)
	for i := range def.Fields {
		raw := buf[definitionFixedSize+3*i:]
		baseType, ok := protocol.BaseType(raw[2]).Normalize()
		if !ok {
			return nil, 0, fmt.Errorf("%w: field %d of %s has invalid base type 0x%02X",
				protocol.ErrStructural, raw[0], def.Global, raw[2])
		}
		def.Fields[i] = protocol.FieldDefinition{Number: raw[0], Size: raw[1], BaseType: baseType}
	}

	if header&headerDeveloperMask != 0 {
		if len(buf) < size+1 {
			return nil, 0, nil
		}
		numDev := int(buf[size])
		devStart := size + 1
		size = devStart + 3*numDev
		if len(buf) < size {
			return nil, 0, nil
		}
		def.DeveloperFields = make([]protocol.DeveloperFieldDefinition, numDev)
		for i := range def.DeveloperFields {
			raw := buf[devStart+3*i:]
			def.DeveloperFields[i] = protocol.DeveloperFieldDefinition{
				Number:         raw[0],
				Size:           raw[1],
				DeveloperIndex: raw[2],
			}
		}
	}

	p.defs[def.LocalType] = def
	return def, size, nil
}

func (p *FITParser) parseData(buf []byte) (protocol.Object, int, error) {
	local := buf[0] & headerLocalTypeMask
	def := p.defs[local]
	if def == nil {
		return nil, 0, fmt.Errorf("%w: data message for undefined local type %d", protocol.ErrStructural, local)
	}
	size := 1 + def.DataSize()
	if len(buf) < size {
		return nil, 0, nil
	}

	msg := &protocol.DataMessage{
		LocalType:  local,
		Definition: def,
		Data:       append([]byte(nil), buf[1:size]...),
	}
	if ts, ok := rawTimestamp(def, msg.Data); ok {
		p.lastTimestamp = ts
	}
	return msg, size, nil
}

func (p *FITParser) parseCompressed(buf []byte) (protocol.Object, int, error) {
	local := (buf[0] >> compressedLocalTypeShift) & compressedLocalTypeMask
	def := p.defs[local]
	if def == nil {
		return nil, 0, fmt.Errorf("%w: compressed timestamp message for undefined local type %d",
			protocol.ErrStructural, local)
	}
	size := 1 + def.DataSize()
	if len(buf) < size {
		return nil, 0, nil
	}

	offset := uint32(buf[0] & compressedTimeMask)
	ts := p.lastTimestamp&^compressedTimeMask + offset
	if offset < p.lastTimestamp&compressedTimeMask {
		ts += compressedTimeMask + 1
	}
	p.lastTimestamp = ts

	return &protocol.DataMessage{
		LocalType:  local,
		Definition: def,
		Data:       append([]byte(nil), buf[1:size]...),
		Compressed: true,
		Timestamp:  ts,
	}, size, nil
}

func (p *FITParser) parseCRC(buf []byte) (protocol.Outcome, error) {
	if len(buf) < fileCRCSize {
		return protocol.Incomplete, nil
	}
	stored := binary.LittleEndian.Uint16(buf[:fileCRCSize])
	if p.verifyCRC && stored != p.crc {
		return protocol.Outcome{}, fmt.Errorf("%w: file crc mismatch: stored 0x%04X, computed 0x%04X",
			protocol.ErrStructural, stored, p.crc)
	}
	p.state = stateHeader
	p.files++
	return protocol.Parsed(&protocol.Checksum{CRC: stored}, fileCRCSize), nil
}

// rawTimestamp extracts the timestamp field of a data payload, if the
// definition carries a well-formed one.
func rawTimestamp(def *protocol.Definition, data []byte) (uint32, bool) {
	pos := 0
	for _, f := range def.Fields {
		if f.Number == fieldTimestamp && f.Size == 4 {
			ts := byteOrder(def.BigEndian).Uint32(data[pos : pos+4])
			return ts, ts != invalidUint32
		}
		pos += int(f.Size)
	}
	return 0, false
}

// byteOrderer reads and appends fixed-size integers in one byte order.
type byteOrderer interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

func byteOrder(bigEndian bool) byteOrderer {
	if bigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}
