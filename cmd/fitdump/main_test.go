package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"openfms/fitstream/internal/protocol"
	"openfms/fitstream/internal/testutil"
)

func TestRunDumpsRecords(t *testing.T) {
	var stdout bytes.Buffer
	err := run(context.Background(), []string{"--log-level", "error"},
		bytes.NewReader(testutil.ActivityFile(t)), &stdout)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	require.Len(t, lines, testutil.ActivityRecords)
	assert.Contains(t, lines[0], `"kind":"file_id"`)
	assert.NotContains(t, stdout.String(), "wgs84")
}

func TestRunWGS84YAML(t *testing.T) {
	var stdout bytes.Buffer
	err := run(context.Background(), []string{"--log-level", "error", "--wgs84", "--format", "yaml"},
		bytes.NewReader(testutil.ActivityFile(t)), &stdout)
	require.NoError(t, err)

	dec := yaml.NewDecoder(&stdout)
	var annotated int
	for {
		var view protocol.RecordView
		if err := dec.Decode(&view); err != nil {
			break
		}
		for _, f := range view.Fields {
			if f.Name == "position_lat_wgs84" {
				assert.Equal(t, "wgs84", f.Units)
				annotated++
			}
		}
	}
	// the third record has no position
	assert.Equal(t, 2, annotated)
}

func TestRunAbortsOnCorruptInput(t *testing.T) {
	data := testutil.ActivityFile(t)
	data[len(data)-1] ^= 0xFF

	err := run(context.Background(), []string{"--log-level", "error"}, bytes.NewReader(data), &bytes.Buffer{})
	require.ErrorIs(t, err, protocol.ErrStructural)

	err = run(context.Background(), []string{"--log-level", "error", "--skip-undecodable"},
		bytes.NewReader(data), &bytes.Buffer{})
	assert.NoError(t, err)
}

func TestRunFormatIsCaseInsensitive(t *testing.T) {
	var stdout bytes.Buffer
	err := run(context.Background(), []string{"--log-level", "error", "--format", "JSON"},
		bytes.NewReader(testutil.ActivityFile(t)), &stdout)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stdout.String(), `{"kind":"file_id"`))
}

func TestRunWritesMetricsOnFailure(t *testing.T) {
	data := testutil.ActivityFile(t)
	data[len(data)-1] ^= 0xFF
	metricsFile := filepath.Join(t.TempDir(), "fit.prom")

	err := run(context.Background(), []string{"--log-level", "error", "--metrics-file", metricsFile},
		bytes.NewReader(data), &bytes.Buffer{})
	require.ErrorIs(t, err, protocol.ErrStructural)

	prom, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(prom), `fitstream_decoder_errors_total{class="structural"} 1`)
}
