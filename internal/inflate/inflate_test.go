package inflate

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"testing/iotest"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"openfms/fitstream/internal/testutil"
)

func compress(t *testing.T, codec Codec, data []byte) []byte {
	t.Helper()

	var buf bytes.Buffer
	var w io.WriteCloser
	switch codec {
	case CodecGzip:
		w = gzip.NewWriter(&buf)
	case CodecZstd:
		enc, err := zstd.NewWriter(&buf)
		require.NoError(t, err)
		w = enc
	case CodecLZ4:
		w = lz4.NewWriter(&buf)
	default:
		return data
	}
	_, err := w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestNewReader(t *testing.T) {
	data := testutil.ActivityFile(t)

	for _, codec := range []Codec{CodecNone, CodecGzip, CodecZstd, CodecLZ4} {
		t.Run(codec.String(), func(t *testing.T) {
			input := compress(t, codec, data)
			if codec != CodecNone {
				require.NotEqual(t, data, input)
			}

			rc, got, err := NewReader(iotest.HalfReader(bytes.NewReader(input)))
			require.NoError(t, err)
			defer rc.Close()
			assert.Equal(t, codec, got)

			out, err := io.ReadAll(rc)
			require.NoError(t, err)
			assert.Equal(t, data, out)
		})
	}
}

func TestNewReaderShortInput(t *testing.T) {
	for _, input := range [][]byte{nil, {0x0e}, {0x1f}} {
		rc, codec, err := NewReader(bytes.NewReader(input))
		require.NoError(t, err)
		assert.Equal(t, CodecNone, codec)

		out, err := io.ReadAll(rc)
		require.NoError(t, err)
		assert.Equal(t, len(input), len(out))
	}
}

func TestNewReaderErrors(t *testing.T) {
	cause := errors.New("unplugged")
	_, _, err := NewReader(iotest.ErrReader(cause))
	assert.ErrorIs(t, err, cause)

	// gzip magic followed by a broken header
	_, codec, err := NewReader(bytes.NewReader([]byte{0x1f, 0x8b, 0x00, 0x00}))
	assert.Error(t, err)
	assert.Equal(t, CodecGzip, codec)
}

func TestCodecString(t *testing.T) {
	assert.Equal(t, "zstd", CodecZstd.String())
	assert.Equal(t, "unknown(9)", Codec(9).String())
}
