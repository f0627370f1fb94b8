package adapter

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"time"
	"unicode/utf8"

	"openfms/fitstream/internal/protocol"
)

// fitEpoch is the zero point of FIT date_time values
var fitEpoch = time.Date(1989, time.December, 31, 0, 0, 0, 0, time.UTC)

// FITTime converts FIT seconds to a UTC time.
func FITTime(secs uint32) time.Time {
	return fitEpoch.Add(time.Duration(secs) * time.Second)
}

// Decode implements protocol.Parser. Fields holding their invalid sentinel
// are dropped; developer fields are skipped.
func (p *FITParser) Decode(def *protocol.Definition, msg *protocol.DataMessage) (*protocol.Record, error) {
	if def == nil {
		return nil, fmt.Errorf("%w: data message without definition", protocol.ErrFieldDecode)
	}
	if len(msg.Data) != def.DataSize() {
		return nil, fmt.Errorf("%w: %s payload has %d bytes, definition declares %d",
			protocol.ErrFieldDecode, def.Global, len(msg.Data), def.DataSize())
	}

	order := byteOrder(def.BigEndian)
	fields := make([]protocol.Field, 0, len(def.Fields)+1)
	if msg.Compressed {
		fields = append(fields, protocol.Field{
			Name:   "timestamp",
			Number: fieldTimestamp,
			Value:  protocol.Timestamp(FITTime(msg.Timestamp)),
			Units:  "s",
		})
	}

	pos := 0
	for _, fd := range def.Fields {
		raw := msg.Data[pos : pos+int(fd.Size)]
		pos += int(fd.Size)
		if len(raw) == 0 {
			continue
		}

		value, err := decodeValue(raw, fd.BaseType, order)
		if err != nil {
			return nil, fmt.Errorf("%w: %s field %d: %v", protocol.ErrFieldDecode, def.Global, fd.Number, err)
		}
		if value.IsUnset() {
			continue
		}

		fp := lookupField(def.Global, fd.Number)
		value, err = fp.apply(value)
		if err != nil {
			return nil, fmt.Errorf("%w: %s field %s: %v", protocol.ErrFieldDecode, def.Global, fp.name, err)
		}
		fields = append(fields, protocol.Field{
			Name:   fp.name,
			Number: fd.Number,
			Value:  value,
			Units:  fp.units,
		})
	}

	return protocol.NewRecord(def.Global, fields...), nil
}

// decodeValue decodes raw bytes of one field. A size that is a multiple of
// the element size yields an array; any other size yields raw bytes.
func decodeValue(raw []byte, bt protocol.BaseType, order binary.ByteOrder) (protocol.Value, error) {
	switch bt {
	case protocol.BaseString:
		if i := bytes.IndexByte(raw, 0); i >= 0 {
			raw = raw[:i]
		}
		if !utf8.Valid(raw) {
			return protocol.Value{}, fmt.Errorf("invalid utf-8 in string %q", raw)
		}
		return protocol.String(string(raw)), nil
	case protocol.BaseByte:
		return protocol.Bytes(raw), nil
	}

	size := bt.Size()
	if size == 0 {
		return protocol.Value{}, fmt.Errorf("unknown base type %s", bt)
	}
	if len(raw)%size != 0 {
		return protocol.Bytes(raw), nil
	}
	if len(raw) == size {
		return decodeScalar(raw, bt, order), nil
	}

	elems := make([]protocol.Value, 0, len(raw)/size)
	for i := 0; i < len(raw); i += size {
		elems = append(elems, decodeScalar(raw[i:i+size], bt, order))
	}
	return protocol.Array(elems...), nil
}

func decodeScalar(raw []byte, bt protocol.BaseType, order binary.ByteOrder) protocol.Value {
	switch bt {
	case protocol.BaseEnum:
		return protocol.Enum(raw[0])
	case protocol.BaseSInt8:
		return protocol.SInt8(int8(raw[0]))
	case protocol.BaseUInt8:
		return protocol.UInt8(raw[0])
	case protocol.BaseUInt8z:
		return protocol.UInt8z(raw[0])
	case protocol.BaseSInt16:
		return protocol.SInt16(int16(order.Uint16(raw)))
	case protocol.BaseUInt16:
		return protocol.UInt16(order.Uint16(raw))
	case protocol.BaseUInt16z:
		return protocol.UInt16z(order.Uint16(raw))
	case protocol.BaseSInt32:
		return protocol.SInt32(int32(order.Uint32(raw)))
	case protocol.BaseUInt32:
		return protocol.UInt32(order.Uint32(raw))
	case protocol.BaseUInt32z:
		return protocol.UInt32z(order.Uint32(raw))
	case protocol.BaseFloat32:
		return protocol.Float32(math.Float32frombits(order.Uint32(raw)))
	case protocol.BaseFloat64:
		return protocol.Float64(math.Float64frombits(order.Uint64(raw)))
	case protocol.BaseSInt64:
		return protocol.SInt64(int64(order.Uint64(raw)))
	case protocol.BaseUInt64:
		return protocol.UInt64(order.Uint64(raw))
	case protocol.BaseUInt64z:
		return protocol.UInt64z(order.Uint64(raw))
	}
	return protocol.Bytes(raw)
}

// apply converts a base value into its profile representation: date_time
// fields become timestamps, enum values with a known name become strings,
// scaled fields become float64.
func (fp fieldProfile) apply(v protocol.Value) (protocol.Value, error) {
	switch fp.typ {
	case typeDateTime, typeLocalDateTime:
		if v.Kind() != protocol.KindUInt32 {
			return protocol.Value{}, fmt.Errorf("date_time must be uint32, got %s", v.Kind())
		}
		secs, _ := v.Uint()
		return protocol.Timestamp(FITTime(uint32(secs))), nil
	}

	if fp.enum != nil {
		if n, ok := v.Uint(); ok && v.Kind() != protocol.KindArray {
			if name, ok := fp.enum[n]; ok {
				return protocol.String(name), nil
			}
		}
		return v, nil
	}

	if fp.scale == 0 || (fp.scale == 1 && fp.offset == 0) {
		return v, nil
	}
	return fp.scaled(v), nil
}

func (fp fieldProfile) scaled(v protocol.Value) protocol.Value {
	if v.Kind() == protocol.KindArray {
		elems := make([]protocol.Value, len(v.Elems()))
		for i, e := range v.Elems() {
			elems[i] = fp.scaled(e)
		}
		return protocol.Array(elems...)
	}
	x, ok := v.Float()
	if !ok {
		return v
	}
	return protocol.Float64(x/fp.scale - fp.offset)
}
