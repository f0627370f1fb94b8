package protocol

import "fmt"

// ObjectKind tags the structural units of a FIT stream
type ObjectKind uint8

const (
	ObjectFileHeader ObjectKind = iota + 1
	ObjectDefinition
	ObjectDataMessage
	ObjectChecksum
)

func (k ObjectKind) String() string {
	switch k {
	case ObjectFileHeader:
		return "file_header"
	case ObjectDefinition:
		return "definition"
	case ObjectDataMessage:
		return "data_message"
	case ObjectChecksum:
		return "checksum"
	}
	return fmt.Sprintf("object(%d)", uint8(k))
}

// Object is one structural unit produced by a Parser
type Object interface {
	Kind() ObjectKind
}

// FileHeader opens a FIT file
type FileHeader struct {
	Size            uint8
	ProtocolVersion uint8
	ProfileVersion  uint16
	DataSize        uint32
	CRC             uint16
}

func (*FileHeader) Kind() ObjectKind { return ObjectFileHeader }

// FieldDefinition describes one field of a data message layout
type FieldDefinition struct {
	Number   uint8
	Size     uint8
	BaseType BaseType
}

// DeveloperFieldDefinition describes a developer data field layout
type DeveloperFieldDefinition struct {
	Number         uint8
	Size           uint8
	DeveloperIndex uint8
}

// Definition registers the layout of a local message type
type Definition struct {
	LocalType       uint8
	BigEndian       bool
	Global          MesgNum
	Fields          []FieldDefinition
	DeveloperFields []DeveloperFieldDefinition
}

func (*Definition) Kind() ObjectKind { return ObjectDefinition }

// DataSize is the number of payload bytes of a data message using d.
func (d *Definition) DataSize() int {
	n := 0
	for _, f := range d.Fields {
		n += int(f.Size)
	}
	for _, f := range d.DeveloperFields {
		n += int(f.Size)
	}
	return n
}

// DataMessage carries the raw payload of a data message together with the
// definition that was registered for its local type when it was parsed.
type DataMessage struct {
	LocalType  uint8
	Definition *Definition
	Data       []byte

	// Compressed is set for compressed-timestamp headers; Timestamp is
	// then the reconstructed FIT timestamp.
	Compressed bool
	Timestamp  uint32
}

func (*DataMessage) Kind() ObjectKind { return ObjectDataMessage }

// Checksum closes a FIT file
type Checksum struct {
	CRC uint16
}

func (*Checksum) Kind() ObjectKind { return ObjectChecksum }
