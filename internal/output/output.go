// Package output renders records and resolved devices as JSON lines, CBOR
// items or YAML documents.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"gopkg.in/yaml.v3"

	"openfms/fitstream/internal/devices"
	"openfms/fitstream/internal/protocol"
)

// Format selects the output encoding
type Format string

const (
	FormatJSON Format = "json"
	FormatCBOR Format = "cbor"
	FormatYAML Format = "yaml"
)

// ParseFormat parses a format name, case-insensitively.
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(name)); f {
	case FormatJSON, FormatCBOR, FormatYAML:
		return f, nil
	}
	return "", fmt.Errorf("output: unknown format %q", name)
}

// cborMode encodes with Core Deterministic Encoding: sorted map keys and
// smallest integer forms, so equal values give identical bytes.
var cborMode cbor.EncMode

func init() {
	opts := cbor.CoreDetEncOptions()
	opts.Time = cbor.TimeRFC3339Nano
	var err error
	cborMode, err = opts.EncMode()
	if err != nil {
		panic("output: CBOR encoder initialization failed: " + err.Error())
	}
}

type valueEncoder interface {
	Encode(v any) error
}

// Encoder writes one item per Encode call
type Encoder struct {
	format Format
	enc    valueEncoder
	yaml   *yaml.Encoder
}

// NewEncoder creates a new encoder writing format to w
func NewEncoder(w io.Writer, format Format) (*Encoder, error) {
	e := &Encoder{format: format}
	switch format {
	case FormatJSON:
		e.enc = json.NewEncoder(w)
	case FormatCBOR:
		e.enc = cborMode.NewEncoder(w)
	case FormatYAML:
		y := yaml.NewEncoder(w)
		y.SetIndent(2)
		e.enc, e.yaml = y, y
	default:
		return nil, fmt.Errorf("output: unknown format %q", format)
	}
	return e, nil
}

// Encode writes v. Records, devices and resolver results are written in
// their serializable view form.
func (e *Encoder) Encode(v any) error {
	switch x := v.(type) {
	case *protocol.Record:
		v = x.View()
	case *devices.Device:
		v = x.View()
	case devices.Result:
		v = x.View()
	}
	if err := e.enc.Encode(v); err != nil {
		return fmt.Errorf("output: %s: %w", e.format, err)
	}
	return nil
}

// Close flushes buffered YAML output. It does not close the writer.
func (e *Encoder) Close() error {
	if e.yaml != nil {
		return e.yaml.Close()
	}
	return nil
}
