package adapter

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"openfms/fitstream/internal/protocol"
)

const (
	protocolVersion = 0x20
	profileVersion  = 2132
)

// Encoder builds a single FIT file. It is a fixture builder for tests
// (internal/testutil and the parser tests); no command writes FIT output.
// It lives beside the parser to share its header constants and CRC. Errors
// are sticky and reported by Bytes.
type Encoder struct {
	legacyHeader bool
	headerCRC    bool

	defs [localTypes]*protocol.Definition
	body bytes.Buffer
	err  error
}

// EncoderOption configures an Encoder
type EncoderOption func(*Encoder)

// WithLegacyHeader writes the 12-byte header without a header CRC.
func WithLegacyHeader() EncoderOption {
	return func(e *Encoder) {
		e.legacyHeader = true
	}
}

// WithoutHeaderCRC writes a 14-byte header whose CRC field is zero.
func WithoutHeaderCRC() EncoderOption {
	return func(e *Encoder) {
		e.headerCRC = false
	}
}

// NewEncoder creates a new FIT file encoder
func NewEncoder(opts ...EncoderOption) *Encoder {
	e := &Encoder{headerCRC: true}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// FieldDef is shorthand for a field definition. A zero size means one
// element of the base type.
func FieldDef(num uint8, bt protocol.BaseType, size uint8) protocol.FieldDefinition {
	if size == 0 {
		size = uint8(bt.Size())
	}
	return protocol.FieldDefinition{Number: num, Size: size, BaseType: bt}
}

// Define writes a little endian definition message for local type local.
func (e *Encoder) Define(local uint8, global protocol.MesgNum, fields ...protocol.FieldDefinition) *Encoder {
	return e.define(&protocol.Definition{LocalType: local, Global: global, Fields: fields})
}

// DefineBigEndian writes a big endian definition message.
func (e *Encoder) DefineBigEndian(local uint8, global protocol.MesgNum, fields ...protocol.FieldDefinition) *Encoder {
	return e.define(&protocol.Definition{LocalType: local, BigEndian: true, Global: global, Fields: fields})
}

// DefineDeveloper writes a definition message carrying developer fields.
func (e *Encoder) DefineDeveloper(local uint8, global protocol.MesgNum, fields []protocol.FieldDefinition,
	devFields []protocol.DeveloperFieldDefinition) *Encoder {
	return e.define(&protocol.Definition{
		LocalType:       local,
		Global:          global,
		Fields:          fields,
		DeveloperFields: devFields,
	})
}

func (e *Encoder) define(def *protocol.Definition) *Encoder {
	if e.err != nil {
		return e
	}
	if def.LocalType >= localTypes {
		e.err = fmt.Errorf("local type %d out of range", def.LocalType)
		return e
	}

	header := headerDefinitionMask | def.LocalType
	if len(def.DeveloperFields) > 0 {
		header |= headerDeveloperMask
	}
	arch := byte(archLittleEndian)
	if def.BigEndian {
		arch = archBigEndian
	}
	e.body.WriteByte(header)
	e.body.WriteByte(0)
	e.body.WriteByte(arch)
	e.body.Write(byteOrder(def.BigEndian).AppendUint16(nil, uint16(def.Global)))
	e.body.WriteByte(byte(len(def.Fields)))
	for _, f := range def.Fields {
		e.body.Write([]byte{f.Number, f.Size, byte(f.BaseType)})
	}
	if len(def.DeveloperFields) > 0 {
		e.body.WriteByte(byte(len(def.DeveloperFields)))
		for _, f := range def.DeveloperFields {
			e.body.Write([]byte{f.Number, f.Size, f.DeveloperIndex})
		}
	}

	e.defs[def.LocalType] = def
	return e
}

// Data writes a data message with one value per defined field, followed by
// raw developer field bytes if the definition has developer fields. A nil
// value writes the invalid sentinel of the field's base type.
func (e *Encoder) Data(local uint8, values ...any) *Encoder {
	if e.err != nil {
		return e
	}
	if local >= localTypes {
		e.err = fmt.Errorf("local type %d out of range", local)
		return e
	}
	return e.data(local&headerLocalTypeMask, local, values)
}

// Compressed writes a data message with a compressed timestamp header.
// Only local types 0-3 and offsets 0-31 are representable.
func (e *Encoder) Compressed(local, offset uint8, values ...any) *Encoder {
	if e.err != nil {
		return e
	}
	if local > compressedLocalTypeMask || offset > compressedTimeMask {
		e.err = fmt.Errorf("compressed header cannot hold local type %d offset %d", local, offset)
		return e
	}
	header := headerCompressedMask | local<<compressedLocalTypeShift | offset
	return e.data(header, local, values)
}

// Raw appends bytes to the data section unchanged.
func (e *Encoder) Raw(b []byte) *Encoder {
	if e.err == nil {
		e.body.Write(b)
	}
	return e
}

func (e *Encoder) data(header, local uint8, values []any) *Encoder {
	def := e.defs[local]
	if def == nil {
		e.err = fmt.Errorf("local type %d is not defined", local)
		return e
	}
	want := len(def.Fields)
	if len(def.DeveloperFields) > 0 {
		want++
	}
	if len(values) != want {
		e.err = fmt.Errorf("%s: got %d values for %d fields", def.Global, len(values), want)
		return e
	}

	order := byteOrder(def.BigEndian)
	e.body.WriteByte(header)
	for i, f := range def.Fields {
		raw, err := encodeValue(values[i], f, order)
		if err != nil {
			e.err = fmt.Errorf("%s field %d: %w", def.Global, f.Number, err)
			return e
		}
		e.body.Write(raw)
	}
	if len(def.DeveloperFields) > 0 {
		dev, ok := values[len(values)-1].([]byte)
		size := 0
		for _, f := range def.DeveloperFields {
			size += int(f.Size)
		}
		if !ok || len(dev) != size {
			e.err = fmt.Errorf("%s: developer payload must be %d bytes", def.Global, size)
			return e
		}
		e.body.Write(dev)
	}
	return e
}

// Bytes returns the complete file: header, data section and file CRC.
func (e *Encoder) Bytes() ([]byte, error) {
	if e.err != nil {
		return nil, e.err
	}

	size := headerSizeFull
	if e.legacyHeader {
		size = headerSizeLegacy
	}
	out := make([]byte, 0, size+e.body.Len()+fileCRCSize)
	out = append(out, byte(size), protocolVersion)
	out = binary.LittleEndian.AppendUint16(out, profileVersion)
	out = binary.LittleEndian.AppendUint32(out, uint32(e.body.Len()))
	out = append(out, fitSignature[:]...)
	if !e.legacyHeader {
		var hcrc uint16
		if e.headerCRC {
			hcrc = crc16(0, out)
		}
		out = binary.LittleEndian.AppendUint16(out, hcrc)
	}
	out = append(out, e.body.Bytes()...)
	return binary.LittleEndian.AppendUint16(out, crc16(0, out)), nil
}

func encodeValue(v any, f protocol.FieldDefinition, order byteOrderer) ([]byte, error) {
	size := int(f.Size)
	elem := f.BaseType.Size()
	if elem == 0 {
		return nil, fmt.Errorf("unknown base type %s", f.BaseType)
	}

	switch x := v.(type) {
	case nil:
		return invalidBytes(f.BaseType, size, order), nil
	case string:
		if len(x) > size {
			return nil, fmt.Errorf("string of %d bytes exceeds field size %d", len(x), size)
		}
		out := make([]byte, size)
		copy(out, x)
		return out, nil
	case []byte:
		if len(x) != size {
			return nil, fmt.Errorf("got %d bytes for field size %d", len(x), size)
		}
		return append([]byte(nil), x...), nil
	case []uint64:
		if len(x)*elem != size {
			return nil, fmt.Errorf("got %d elements for field size %d", len(x), size)
		}
		out := make([]byte, 0, size)
		for _, n := range x {
			out = appendScalar(out, f.BaseType, n, order)
		}
		return out, nil
	}

	if size != elem {
		return nil, fmt.Errorf("scalar value for field of %d bytes", size)
	}
	bits, err := scalarBits(v, f.BaseType)
	if err != nil {
		return nil, err
	}
	return appendScalar(nil, f.BaseType, bits, order), nil
}

// scalarBits converts a Go number into the bit pattern of base type bt.
func scalarBits(v any, bt protocol.BaseType) (uint64, error) {
	switch bt {
	case protocol.BaseFloat32:
		switch x := v.(type) {
		case float32:
			return uint64(math.Float32bits(x)), nil
		case float64:
			return uint64(math.Float32bits(float32(x))), nil
		}
		return 0, fmt.Errorf("cannot encode %T as %s", v, bt)
	case protocol.BaseFloat64:
		switch x := v.(type) {
		case float32:
			return math.Float64bits(float64(x)), nil
		case float64:
			return math.Float64bits(x), nil
		}
		return 0, fmt.Errorf("cannot encode %T as %s", v, bt)
	}

	switch x := v.(type) {
	case int:
		return uint64(x), nil
	case int8:
		return uint64(x), nil
	case int16:
		return uint64(x), nil
	case int32:
		return uint64(x), nil
	case int64:
		return uint64(x), nil
	case uint:
		return uint64(x), nil
	case uint8:
		return uint64(x), nil
	case uint16:
		return uint64(x), nil
	case uint32:
		return uint64(x), nil
	case uint64:
		return x, nil
	}
	return 0, fmt.Errorf("cannot encode %T as %s", v, bt)
}

func appendScalar(out []byte, bt protocol.BaseType, bits uint64, order byteOrderer) []byte {
	switch bt.Size() {
	case 1:
		return append(out, byte(bits))
	case 2:
		return order.AppendUint16(out, uint16(bits))
	case 4:
		return order.AppendUint32(out, uint32(bits))
	default:
		return order.AppendUint64(out, bits)
	}
}

func invalidBytes(bt protocol.BaseType, size int, order byteOrderer) []byte {
	var bits uint64
	switch bt {
	case protocol.BaseUInt8z, protocol.BaseUInt16z, protocol.BaseUInt32z, protocol.BaseUInt64z, protocol.BaseString:
		return make([]byte, size)
	case protocol.BaseSInt8:
		bits = math.MaxInt8
	case protocol.BaseSInt16:
		bits = math.MaxInt16
	case protocol.BaseSInt32:
		bits = math.MaxInt32
	case protocol.BaseSInt64:
		bits = math.MaxInt64
	default:
		bits = math.MaxUint64
	}
	out := make([]byte, 0, size)
	for len(out) < size {
		out = appendScalar(out, bt, bits, order)
	}
	return out[:size]
}
