package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/elliotchance/orderedmap/v3"
)

// MesgNum is the global message number of a FIT data message
type MesgNum uint16

// Message kinds
const (
	MesgNumFileID           MesgNum = 0
	MesgNumCapabilities     MesgNum = 1
	MesgNumDeviceSettings   MesgNum = 2
	MesgNumUserProfile      MesgNum = 3
	MesgNumSession          MesgNum = 18
	MesgNumLap              MesgNum = 19
	MesgNumRecord           MesgNum = 20
	MesgNumEvent            MesgNum = 21
	MesgNumDeviceInfo       MesgNum = 23
	MesgNumActivity         MesgNum = 34
	MesgNumFileCreator      MesgNum = 49
	MesgNumFieldDescription MesgNum = 206
	MesgNumDeveloperDataID  MesgNum = 207
)

var mesgNames = map[MesgNum]string{
	MesgNumFileID:           "file_id",
	MesgNumCapabilities:     "capabilities",
	MesgNumDeviceSettings:   "device_settings",
	MesgNumUserProfile:      "user_profile",
	MesgNumSession:          "session",
	MesgNumLap:              "lap",
	MesgNumRecord:           "record",
	MesgNumEvent:            "event",
	MesgNumDeviceInfo:       "device_info",
	MesgNumActivity:         "activity",
	MesgNumFileCreator:      "file_creator",
	MesgNumFieldDescription: "field_description",
	MesgNumDeveloperDataID:  "developer_data_id",
}

func (m MesgNum) String() string {
	if name, ok := mesgNames[m]; ok {
		return name
	}
	return fmt.Sprintf("unknown_%d", uint16(m))
}

// Field is a single named value of a Record
type Field struct {
	Name   string
	Number uint8
	Value  Value
	Units  string
}

// Record is a decoded data message: its kind plus fields in wire order.
// Records are not modified after construction.
type Record struct {
	kind   MesgNum
	fields *orderedmap.OrderedMap[string, Field]
}

// NewRecord builds a record. A later field with an already used name
// replaces the earlier value but keeps its position.
func NewRecord(kind MesgNum, fields ...Field) *Record {
	m := orderedmap.NewOrderedMapWithCapacity[string, Field](len(fields))
	for _, f := range fields {
		m.Set(f.Name, f)
	}
	return &Record{kind: kind, fields: m}
}

func (r *Record) Kind() MesgNum { return r.kind }

func (r *Record) Len() int { return r.fields.Len() }

func (r *Record) Field(name string) (Field, bool) {
	return r.fields.Get(name)
}

// Value returns the value of the named field.
func (r *Record) Value(name string) (Value, bool) {
	f, ok := r.fields.Get(name)
	return f.Value, ok
}

// Fields returns the fields in order.
func (r *Record) Fields() []Field {
	out := make([]Field, 0, r.fields.Len())
	for el := r.fields.Front(); el != nil; el = el.Next() {
		out = append(out, el.Value)
	}
	return out
}

// With returns a copy of r with the given fields added or replaced.
func (r *Record) With(fields ...Field) *Record {
	return NewRecord(r.kind, append(r.Fields(), fields...)...)
}

// FieldView is the serializable form of a Field
type FieldView struct {
	Name   string `json:"name" yaml:"name"`
	Number uint8  `json:"number" yaml:"number"`
	Value  any    `json:"value" yaml:"value"`
	Units  string `json:"units,omitempty" yaml:"units,omitempty"`
}

// RecordView is the serializable form of a Record
type RecordView struct {
	Kind   string      `json:"kind" yaml:"kind"`
	Fields []FieldView `json:"fields" yaml:"fields"`
}

func (r *Record) View() RecordView {
	view := RecordView{Kind: r.kind.String(), Fields: make([]FieldView, 0, r.fields.Len())}
	for el := r.fields.Front(); el != nil; el = el.Next() {
		f := el.Value
		view.Fields = append(view.Fields, FieldView{
			Name:   f.Name,
			Number: f.Number,
			Value:  f.Value.Interface(),
			Units:  f.Units,
		})
	}
	return view
}

func (r *Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.View())
}

func (r *Record) String() string {
	return fmt.Sprintf("%s%v", r.kind, r.Fields())
}
