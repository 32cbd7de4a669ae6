package cli

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glorpus-work/spm/pkg/update"
)

func TestParseValue(t *testing.T) {
	assert.Equal(t, map[string]any{"n": float64(1)}, parseValue(`{"n":1}`))
	assert.Equal(t, []any{"a", "b"}, parseValue(`["a","b"]`))
	assert.Equal(t, "plain text", parseValue("plain text"))
	assert.Equal(t, "quoted", parseValue(`"quoted"`))
}

func TestPrintValue(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printValue(&buf, map[string]any{"n": float64(1)}))
	require.NoError(t, printValue(&buf, "raw"))
	assert.Equal(t, "{\"n\":1}\nraw\n", buf.String())
}

func TestPrintVersions(t *testing.T) {
	var buf bytes.Buffer
	versions := map[string]string{"latest": "2.1.0", "dev-latest": "2.2.0-rc.1", "2.0.0": "2.0.0"}
	require.NoError(t, printVersions(&buf, []string{"2.2.0-rc.1", "2.1.0", "2.0.0"}, []string{"2.0.0", "dev-latest", "latest"}, versions))

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 4)
	assert.Contains(t, string(lines[1]), "2.2.0-rc.1")
	assert.Contains(t, string(lines[1]), "dev-latest")
	assert.Contains(t, string(lines[2]), "latest")
	assert.NotContains(t, string(lines[3]), "latest")
}

func TestPrintStatus(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printStatus(&buf, &update.Status{Running: "1.0.0", Latest: "1.0.0", Channel: "stable"}))
	assert.Contains(t, buf.String(), "up to date")

	buf.Reset()
	require.NoError(t, printStatus(&buf, &update.Status{Available: true, Running: "1.2.0", Latest: "1.1.0", Channel: "stable", Downgrade: true}))
	assert.Contains(t, buf.String(), "1.2.0 -> 1.1.0 (downgrade, stable channel)")
}

func TestPrintPending(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printPending(&buf, nil))
	assert.Equal(t, "No update staged\n", buf.String())

	buf.Reset()
	staged := &update.Pending{Version: "0.3.0-beta", Channel: "dev", StagedAt: time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)}
	require.NoError(t, printPending(&buf, staged))
	assert.Equal(t, "spm 0.3.0-beta staged (update, dev channel) at 2024-06-01T08:00:00Z\n", buf.String())
}
