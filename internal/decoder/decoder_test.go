package decoder

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"openfms/fitstream/internal/adapter"
	"openfms/fitstream/internal/protocol"
	"openfms/fitstream/internal/testutil"
)

// scriptedParser replays a fixed list of outcomes and records every buffer
// it was offered.
type scriptedParser struct {
	steps []step
	seen  [][]byte
}

type step struct {
	out protocol.Outcome
	err error
}

func (p *scriptedParser) Parse(buf []byte) (protocol.Outcome, error) {
	p.seen = append(p.seen, append([]byte(nil), buf...))
	if len(p.steps) == 0 {
		return protocol.Incomplete, nil
	}
	s := p.steps[0]
	p.steps = p.steps[1:]
	return s.out, s.err
}

func (p *scriptedParser) Decode(_ *protocol.Definition, msg *protocol.DataMessage) (*protocol.Record, error) {
	if msg.Data[0] == 0xEE {
		return nil, protocol.ErrFieldDecode
	}
	return protocol.NewRecord(protocol.MesgNumRecord,
		protocol.Field{Name: "heart_rate", Number: 3, Value: protocol.UInt8(msg.Data[0])}), nil
}

func pollAll(t *testing.T, d *Decoder) []*protocol.Record {
	t.Helper()

	var records []*protocol.Record
	for {
		res, err := d.Poll()
		require.NoError(t, err)
		if res.State != RecordReady {
			return records
		}
		records = append(records, res.Record)
	}
}

func TestPollEmptyInput(t *testing.T) {
	d := New(adapter.NewFITParser())

	res, err := d.Poll()
	require.NoError(t, err)
	assert.Equal(t, NeedsMoreInput, res.State)
	assert.Nil(t, res.Record)
	assert.Zero(t, d.Buffered())
}

func TestPollWholeFile(t *testing.T) {
	data := testutil.ActivityFile(t)
	d := New(adapter.NewFITParser())
	d.AddChunk(data)

	records := pollAll(t, d)
	require.Len(t, records, testutil.ActivityRecords)
	assert.Equal(t, protocol.MesgNumFileID, records[0].Kind())
	assert.Equal(t, protocol.MesgNumEvent, records[len(records)-1].Kind())

	res, err := d.Poll()
	require.NoError(t, err)
	assert.Equal(t, EndOfStream, res.State)
	assert.Zero(t, d.Buffered())
	assert.Equal(t, int64(len(data)), d.Offset())
}

func TestPollByteAtATimeKeepsBufferBounded(t *testing.T) {
	data := testutil.Chain(testutil.ActivityFile(t), testutil.ActivityFile(t))

	// longest single object of the input
	longest := 0
	p := adapter.NewFITParser()
	for pos := 0; pos < len(data); {
		out, err := p.Parse(data[pos:])
		require.NoError(t, err)
		require.Equal(t, protocol.StatusParsed, out.Status)
		longest = max(longest, out.Consumed)
		pos += out.Consumed
	}

	d := New(adapter.NewFITParser())
	var records int
	for i := range data {
		d.AddChunk(data[i : i+1])
		for {
			res, err := d.Poll()
			require.NoError(t, err)
			assert.LessOrEqual(t, d.Buffered(), longest)
			assert.LessOrEqual(t, len(d.buf.data), 2*longest+1)
			if res.State != RecordReady {
				break
			}
			records++
		}
	}
	assert.Equal(t, 2*testutil.ActivityRecords, records)
}

func TestPollStructuralErrorIsSticky(t *testing.T) {
	data := testutil.ActivityFile(t)
	data[9] = 'X'

	d := New(adapter.NewFITParser())
	d.AddChunk(data)

	_, err := d.Poll()
	require.ErrorIs(t, err, protocol.ErrStructural)

	var derr *protocol.DecodeError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, "parse", derr.Op)
	assert.Zero(t, derr.Offset)
	assert.Len(t, derr.Raw, protocol.MaxRawLen)

	for range 2 {
		_, err = d.Poll()
		require.ErrorIs(t, err, ErrFailed)
		assert.ErrorIs(t, err, protocol.ErrStructural)
	}
}

func TestPollFieldDecodeErrorContinues(t *testing.T) {
	data := testutil.Build(t, func(e *adapter.Encoder) {
		e.Define(0, protocol.MesgNumDeviceInfo, adapter.FieldDef(27, protocol.BaseString, 2))
		e.Data(0, []byte{0xFF, 0xFE})
		e.Data(0, "ok")
	})

	d := New(adapter.NewFITParser())
	d.AddChunk(data)

	_, err := d.Poll()
	require.ErrorIs(t, err, protocol.ErrFieldDecode)
	var derr *protocol.DecodeError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, "decode", derr.Op)
	assert.Equal(t, int64(14+6+3), derr.Offset)
	assert.Equal(t, []byte{0x00, 0xFF, 0xFE}, derr.Raw)

	res, err := d.Poll()
	require.NoError(t, err)
	require.Equal(t, RecordReady, res.State)
	name, _ := res.Record.Value("product_name")
	assert.Equal(t, "ok", name.Interface())
}

func TestPollSkipsStructuralObjects(t *testing.T) {
	p := &scriptedParser{steps: []step{
		{out: protocol.Parsed(&protocol.FileHeader{Size: 2}, 2)},
		{out: protocol.Parsed(&protocol.Definition{}, 1)},
		{out: protocol.Parsed(&protocol.DataMessage{Data: []byte{60}}, 1)},
		{out: protocol.Parsed(&protocol.Checksum{}, 1)},
		{out: protocol.EndOfStream},
	}}
	d := New(p)
	d.AddChunk([]byte{1, 2, 3, 4, 5})

	res, err := d.Poll()
	require.NoError(t, err)
	require.Equal(t, RecordReady, res.State)
	hr, _ := res.Record.Value("heart_rate")
	assert.Equal(t, uint8(60), hr.Interface())

	// each call saw exactly the unconsumed suffix
	assert.Equal(t, [][]byte{{1, 2, 3, 4, 5}, {3, 4, 5}, {4, 5}}, p.seen)

	res, err = d.Poll()
	require.NoError(t, err)
	assert.Equal(t, EndOfStream, res.State)
	assert.Equal(t, []byte{5}, p.seen[3])
	assert.Zero(t, d.Buffered())
}

func TestPollIncompleteLeavesBufferUntouched(t *testing.T) {
	p := &scriptedParser{steps: []step{
		{out: protocol.Incomplete},
		{out: protocol.Incomplete},
		{out: protocol.Parsed(&protocol.DataMessage{Data: []byte{1}}, 3)},
	}}
	d := New(p)
	d.AddChunk([]byte{1})

	res, err := d.Poll()
	require.NoError(t, err)
	assert.Equal(t, NeedsMoreInput, res.State)
	assert.Equal(t, 1, d.Buffered())

	d.AddChunk([]byte{2})
	res, err = d.Poll()
	require.NoError(t, err)
	assert.Equal(t, NeedsMoreInput, res.State)

	d.AddChunk([]byte{3})
	res, err = d.Poll()
	require.NoError(t, err)
	assert.Equal(t, RecordReady, res.State)
	assert.Equal(t, [][]byte{{1}, {1, 2}, {1, 2, 3}}, p.seen)
}

func TestPollRejectsContractViolations(t *testing.T) {
	tests := []struct {
		name string
		out  protocol.Outcome
	}{
		{name: "zero consumed", out: protocol.Parsed(&protocol.Checksum{}, 0)},
		{name: "consumed beyond buffer", out: protocol.Parsed(&protocol.Checksum{}, 9)},
		{name: "no object", out: protocol.Parsed(nil, 1)},
		{name: "unknown status", out: protocol.Outcome{Status: 42}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := New(&scriptedParser{steps: []step{{out: tt.out}}})
			d.AddChunk([]byte{1, 2})

			_, err := d.Poll()
			require.ErrorIs(t, err, protocol.ErrStructural)

			_, err = d.Poll()
			assert.ErrorIs(t, err, ErrFailed)
		})
	}
}

func TestPollParserErrorIsWrapped(t *testing.T) {
	cause := errors.New("boom")
	d := New(&scriptedParser{steps: []step{{err: cause}}})
	d.AddChunk([]byte{7})

	_, err := d.Poll()
	require.ErrorIs(t, err, cause)
	var derr *protocol.DecodeError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, []byte{7}, derr.Raw)
}

func TestPollDecodeErrorFromParser(t *testing.T) {
	d := New(&scriptedParser{steps: []step{
		{out: protocol.Parsed(&protocol.DataMessage{Data: []byte{0xEE}}, 1)},
		{out: protocol.Parsed(&protocol.DataMessage{Data: []byte{61}}, 1)},
	}})
	d.AddChunk([]byte{0xEE, 61})

	_, err := d.Poll()
	require.ErrorIs(t, err, protocol.ErrFieldDecode)

	res, err := d.Poll()
	require.NoError(t, err)
	assert.Equal(t, RecordReady, res.State)
}

func TestBufferCompaction(t *testing.T) {
	var b buffer
	b.append([]byte{1, 2, 3, 4})
	b.consume(1)
	b.append([]byte{5})
	// consumed prefix shorter than the remainder: no move
	assert.Equal(t, 1, b.off)
	assert.Equal(t, []byte{2, 3, 4, 5}, b.unread())

	b.consume(2)
	b.append([]byte{6})
	assert.Zero(t, b.off)
	assert.Equal(t, []byte{4, 5, 6}, b.unread())

	b.consume(3)
	assert.Zero(t, b.len())
	assert.Empty(t, b.data)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "needs_more_input", NeedsMoreInput.String())
	assert.Equal(t, "end_of_stream", EndOfStream.String())
	assert.Equal(t, "record_ready", RecordReady.String())
	assert.Equal(t, "unknown", State(0).String())
}
