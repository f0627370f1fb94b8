package devices

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"openfms/fitstream/internal/adapter"
	"openfms/fitstream/internal/protocol"
	"openfms/fitstream/internal/stream"
	"openfms/fitstream/internal/testutil"
)

func TestExtractFromActivityFile(t *testing.T) {
	s, err := stream.New(bytes.NewReader(testutil.ActivityFile(t)), adapter.NewFITParser(), stream.WithChunkSize(5))
	require.NoError(t, err)

	r := NewResolver()
	for rec, err := range s.All() {
		require.NoError(t, err)
		r.Add(rec)
	}
	res := r.Result()

	assert.False(t, res.Overlap)
	assert.Zero(t, res.Dropped)

	soc, ok := res.Creator.Value("battery_soc")
	require.True(t, ok)
	assert.InDelta(t, 98.0, soc.Interface(), 1e-9)

	status, _ := res.Creator.Value("battery_status")
	assert.Equal(t, "ok", status.Interface())
	ts, ok := res.Creator.Timestamp()
	require.True(t, ok)
	assert.Equal(t, adapter.FITTime(testutil.End), ts)

	require.Len(t, res.Devices, 2)
	hrm, power := res.Devices[0], res.Devices[1]

	assert.Equal(t, SchemeANT, hrm.Scheme)
	assert.Equal(t, uint64(51234), hrm.Key)
	hrmStatus, _ := hrm.Value("battery_status")
	assert.Equal(t, "low", hrmStatus.Interface())
	devType, _ := hrm.Value("device_type")
	assert.Equal(t, "heart_rate", devType.Interface())

	assert.Equal(t, SchemeSerial, power.Scheme)
	assert.Equal(t, uint64(778899), power.Key)
	_, hasProduct := power.Value("product")
	assert.False(t, hasProduct)
}

func TestExtractSeq(t *testing.T) {
	records := []*protocol.Record{
		deviceInfo(ts(0), creator()),
		deviceInfo(ts(0), ant(1)),
	}
	res := Extract(func(yield func(*protocol.Record) bool) {
		for _, rec := range records {
			if !yield(rec) {
				return
			}
		}
	})
	assert.Len(t, res.Devices, 1)
	assert.Equal(t, 2, res.Creator.Len())
}
