package protocol

import "fmt"

// BaseType is the FIT base type byte of a field definition
type BaseType uint8

const (
	BaseEnum    BaseType = 0x00
	BaseSInt8   BaseType = 0x01
	BaseUInt8   BaseType = 0x02
	BaseSInt16  BaseType = 0x83
	BaseUInt16  BaseType = 0x84
	BaseSInt32  BaseType = 0x85
	BaseUInt32  BaseType = 0x86
	BaseString  BaseType = 0x07
	BaseFloat32 BaseType = 0x88
	BaseFloat64 BaseType = 0x89
	BaseUInt8z  BaseType = 0x0A
	BaseUInt16z BaseType = 0x8B
	BaseUInt32z BaseType = 0x8C
	BaseByte    BaseType = 0x0D
	BaseSInt64  BaseType = 0x8E
	BaseUInt64  BaseType = 0x8F
	BaseUInt64z BaseType = 0x90
)

// base type number (low five bits) -> element size
var baseSizes = [...]int{
	0x00: 1, 0x01: 1, 0x02: 1, 0x03: 2, 0x04: 2, 0x05: 4, 0x06: 4, 0x07: 1,
	0x08: 4, 0x09: 8, 0x0A: 1, 0x0B: 2, 0x0C: 4, 0x0D: 1, 0x0E: 8, 0x0F: 8, 0x10: 8,
}

var baseTypes = [...]BaseType{
	BaseEnum, BaseSInt8, BaseUInt8, BaseSInt16, BaseUInt16, BaseSInt32, BaseUInt32, BaseString,
	BaseFloat32, BaseFloat64, BaseUInt8z, BaseUInt16z, BaseUInt32z, BaseByte, BaseSInt64, BaseUInt64, BaseUInt64z,
}

// Normalize maps the base type number to its canonical byte, ignoring the
// endian-ability bit. ok is false for unknown base types.
func (b BaseType) Normalize() (BaseType, bool) {
	n := int(b & 0x1F)
	if n >= len(baseTypes) {
		return b, false
	}
	return baseTypes[n], true
}

// Size returns the size in bytes of one element, or 0 if b is unknown.
func (b BaseType) Size() int {
	n := int(b & 0x1F)
	if n >= len(baseSizes) {
		return 0
	}
	return baseSizes[n]
}

func (b BaseType) String() string {
	switch canonical, _ := b.Normalize(); canonical {
	case BaseEnum:
		return "enum"
	case BaseSInt8:
		return "sint8"
	case BaseUInt8:
		return "uint8"
	case BaseSInt16:
		return "sint16"
	case BaseUInt16:
		return "uint16"
	case BaseSInt32:
		return "sint32"
	case BaseUInt32:
		return "uint32"
	case BaseString:
		return "string"
	case BaseFloat32:
		return "float32"
	case BaseFloat64:
		return "float64"
	case BaseUInt8z:
		return "uint8z"
	case BaseUInt16z:
		return "uint16z"
	case BaseUInt32z:
		return "uint32z"
	case BaseByte:
		return "byte"
	case BaseSInt64:
		return "sint64"
	case BaseUInt64:
		return "uint64"
	case BaseUInt64z:
		return "uint64z"
	}
	return fmt.Sprintf("base(0x%02X)", uint8(b))
}
