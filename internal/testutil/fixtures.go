// Package testutil builds FIT fixtures for tests.
package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"

	"openfms/fitstream/internal/adapter"
	"openfms/fitstream/internal/protocol"
)

// Local message types used by the fixtures
const (
	LocalFileID     = 0
	LocalDeviceInfo = 1
	LocalRecord     = 2
	LocalEvent      = 3
)

// Timestamps of the activity fixture, in FIT seconds
const (
	Start uint32 = 1000000000
	End   uint32 = Start + 60
)

// Build runs fn on a fresh encoder and returns the encoded file.
func Build(t testing.TB, fn func(e *adapter.Encoder), opts ...adapter.EncoderOption) []byte {
	t.Helper()

	e := adapter.NewEncoder(opts...)
	fn(e)
	data, err := e.Bytes()
	require.NoError(t, err)
	return data
}

// Chain concatenates files into one stream.
func Chain(files ...[]byte) []byte {
	var out []byte
	for _, f := range files {
		out = append(out, f...)
	}
	return out
}

// DefineFileID defines file_id as: type, manufacturer, product, serial_number, time_created.
func DefineFileID(e *adapter.Encoder) *adapter.Encoder {
	return e.Define(LocalFileID, protocol.MesgNumFileID,
		adapter.FieldDef(0, protocol.BaseEnum, 0),
		adapter.FieldDef(1, protocol.BaseUInt16, 0),
		adapter.FieldDef(2, protocol.BaseUInt16, 0),
		adapter.FieldDef(3, protocol.BaseUInt32z, 0),
		adapter.FieldDef(4, protocol.BaseUInt32, 0),
	)
}

// DefineDeviceInfo defines device_info as: timestamp, device_index,
// device_type, manufacturer, serial_number, product, software_version,
// ant_device_number, battery_status.
func DefineDeviceInfo(e *adapter.Encoder) *adapter.Encoder {
	return e.Define(LocalDeviceInfo, protocol.MesgNumDeviceInfo,
		adapter.FieldDef(253, protocol.BaseUInt32, 0),
		adapter.FieldDef(0, protocol.BaseUInt8, 0),
		adapter.FieldDef(1, protocol.BaseUInt8, 0),
		adapter.FieldDef(2, protocol.BaseUInt16, 0),
		adapter.FieldDef(3, protocol.BaseUInt32z, 0),
		adapter.FieldDef(4, protocol.BaseUInt16, 0),
		adapter.FieldDef(5, protocol.BaseUInt16, 0),
		adapter.FieldDef(21, protocol.BaseUInt16z, 0),
		adapter.FieldDef(11, protocol.BaseUInt8, 0),
	)
}

// DefineRecord defines record as: timestamp, position_lat, position_long,
// heart_rate, power, battery_soc.
func DefineRecord(e *adapter.Encoder) *adapter.Encoder {
	return e.Define(LocalRecord, protocol.MesgNumRecord,
		adapter.FieldDef(253, protocol.BaseUInt32, 0),
		adapter.FieldDef(0, protocol.BaseSInt32, 0),
		adapter.FieldDef(1, protocol.BaseSInt32, 0),
		adapter.FieldDef(3, protocol.BaseUInt8, 0),
		adapter.FieldDef(7, protocol.BaseUInt16, 0),
		adapter.FieldDef(81, protocol.BaseUInt8, 0),
	)
}

// DefineEvent defines event as: timestamp, event, event_type.
func DefineEvent(e *adapter.Encoder) *adapter.Encoder {
	return e.Define(LocalEvent, protocol.MesgNumEvent,
		adapter.FieldDef(253, protocol.BaseUInt32, 0),
		adapter.FieldDef(0, protocol.BaseEnum, 0),
		adapter.FieldDef(1, protocol.BaseEnum, 0),
	)
}

// ActivityRecords is the number of records in ActivityFile.
const ActivityRecords = 11

// ActivityFile builds a short ride: a creator, a heart rate strap known by
// its ANT device number, a power meter known by its serial number, and
// records carrying battery_soc.
func ActivityFile(t testing.TB, opts ...adapter.EncoderOption) []byte {
	t.Helper()

	return Build(t, func(e *adapter.Encoder) {
		DefineFileID(e).Data(LocalFileID, 4, 1, 3121, 3960285, Start)
		DefineEvent(e).Data(LocalEvent, Start, 0, 0)

		DefineDeviceInfo(e)
		e.Data(LocalDeviceInfo, Start, 0, nil, 1, 3960285, 3121, 920, nil, 2)
		e.Data(LocalDeviceInfo, Start, 1, 120, 1, nil, 2991, 450, 51234, 3)
		e.Data(LocalDeviceInfo, Start, 2, 11, 69, 778899, nil, nil, nil, nil)

		DefineRecord(e)
		e.Data(LocalRecord, Start+1, 497132011, -1063038220, 95, 180, 200)
		e.Data(LocalRecord, Start+2, 497132055, -1063038101, 97, 185, nil)
		e.Data(LocalRecord, Start+3, nil, nil, 99, 190, 196)

		// later device_info snapshots replace the earlier ones
		e.Data(LocalDeviceInfo, End, 0, nil, 1, 3960285, 3121, 920, nil, 3)
		e.Data(LocalDeviceInfo, End, 1, 120, 1, nil, 2991, 450, 51234, 4)

		e.Data(LocalEvent, End, 0, 4)
	})
}
