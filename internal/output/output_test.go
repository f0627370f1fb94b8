package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"openfms/fitstream/internal/devices"
	"openfms/fitstream/internal/protocol"
)

var created = time.Date(2021, time.September, 8, 1, 46, 40, 0, time.UTC)

func fileID() *protocol.Record {
	return protocol.NewRecord(protocol.MesgNumFileID,
		protocol.Field{Name: "type", Number: 0, Value: protocol.String("activity")},
		protocol.Field{Name: "serial_number", Number: 3, Value: protocol.UInt32z(3960285)},
		protocol.Field{Name: "time_created", Number: 4, Value: protocol.Timestamp(created), Units: "s"},
	)
}

func resolved() devices.Result {
	r := devices.NewResolver()
	r.Add(protocol.NewRecord(protocol.MesgNumDeviceInfo,
		protocol.Field{Name: "device_index", Value: protocol.String("creator")},
		protocol.Field{Name: "product", Value: protocol.UInt16(3121)},
	))
	r.Add(protocol.NewRecord(protocol.MesgNumDeviceInfo,
		protocol.Field{Name: "ant_device_number", Value: protocol.UInt16z(51234)},
		protocol.Field{Name: "descriptor", Value: protocol.Array(protocol.UInt8(1), protocol.UInt8(2))},
	))
	return r.Result()
}

func TestParseFormat(t *testing.T) {
	for name, want := range map[string]Format{"json": FormatJSON, "CBOR": FormatCBOR, "Yaml": FormatYAML} {
		got, err := ParseFormat(name)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseFormat("xml")
	assert.ErrorContains(t, err, "unknown format")

	_, err = NewEncoder(&bytes.Buffer{}, "xml")
	assert.Error(t, err)
}

func TestJSONLines(t *testing.T) {
	var buf bytes.Buffer
	enc, err := NewEncoder(&buf, FormatJSON)
	require.NoError(t, err)

	require.NoError(t, enc.Encode(fileID()))
	require.NoError(t, enc.Encode(resolved()))
	require.NoError(t, enc.Close())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.JSONEq(t, `{"kind": "file_id", "fields": [
		{"name": "type", "number": 0, "value": "activity"},
		{"name": "serial_number", "number": 3, "value": 3960285},
		{"name": "time_created", "number": 4, "value": "2021-09-08T01:46:40Z", "units": "s"}
	]}`, lines[0])
	assert.JSONEq(t, `{
		"creator": {"device_index": "creator", "product": 3121},
		"devices": [{"ant_device_number": 51234, "descriptor": [1, 2]}]
	}`, lines[1])
}

func TestCBORIsDeterministic(t *testing.T) {
	encode := func() []byte {
		var buf bytes.Buffer
		enc, err := NewEncoder(&buf, FormatCBOR)
		require.NoError(t, err)
		require.NoError(t, enc.Encode(resolved()))
		return buf.Bytes()
	}

	first := encode()
	assert.Equal(t, first, encode())

	var decoded struct {
		Creator map[string]any   `cbor:"creator"`
		Devices []map[string]any `cbor:"devices"`
	}
	require.NoError(t, cbor.Unmarshal(first, &decoded))
	assert.Equal(t, "creator", decoded.Creator["device_index"])
	assert.EqualValues(t, 3121, decoded.Creator["product"])
	require.Len(t, decoded.Devices, 1)
	assert.EqualValues(t, 51234, decoded.Devices[0]["ant_device_number"])
}

func TestCBORRecord(t *testing.T) {
	var buf bytes.Buffer
	enc, err := NewEncoder(&buf, FormatCBOR)
	require.NoError(t, err)
	require.NoError(t, enc.Encode(fileID()))

	var view struct {
		Kind   string `cbor:"kind"`
		Fields []struct {
			Name  string `cbor:"name"`
			Value any    `cbor:"value"`
		} `cbor:"fields"`
	}
	require.NoError(t, cbor.Unmarshal(buf.Bytes(), &view))
	assert.Equal(t, "file_id", view.Kind)
	require.Len(t, view.Fields, 3)
	assert.Equal(t, "2021-09-08T01:46:40Z", view.Fields[2].Value)
}

func TestYAMLDocuments(t *testing.T) {
	var buf bytes.Buffer
	enc, err := NewEncoder(&buf, FormatYAML)
	require.NoError(t, err)

	require.NoError(t, enc.Encode(fileID()))
	require.NoError(t, enc.Encode(resolved().Devices[0]))
	require.NoError(t, enc.Close())

	dec := yaml.NewDecoder(&buf)
	var rec map[string]any
	require.NoError(t, dec.Decode(&rec))
	assert.Equal(t, "file_id", rec["kind"])

	var device map[string]any
	require.NoError(t, dec.Decode(&device))
	assert.Equal(t, 51234, device["ant_device_number"])
	assert.Equal(t, []any{1, 2}, device["descriptor"])
}

func TestEncodePlainValues(t *testing.T) {
	var buf bytes.Buffer
	enc, err := NewEncoder(&buf, FormatJSON)
	require.NoError(t, err)
	require.NoError(t, enc.Encode(map[string]int{"records": 3}))

	var got map[string]int
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, 3, got["records"])
}
