package adapters

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagewatch/pagewatch/core"
)

func sampleChange() *core.Change {
	return &core.Change{
		RequestURL: "https://example.com/",
		URL:        "https://example.com/",
		Lines: []core.Line{
			{Kind: core.Common, Text: "context"},
			{Kind: core.Removed, Text: "old line"},
			{Kind: core.Added, Text: "new line"},
		},
	}
}

func TestConsoleReporter(t *testing.T) {
	t.Run("plain", func(t *testing.T) {
		buf := bytes.NewBuffer(nil)
		ConsoleReporter(buf, false)(sampleChange())
		assert.Equal(t, " context\n-old line\n+new line\n", buf.String())
	})

	t.Run("colored", func(t *testing.T) {
		buf := bytes.NewBuffer(nil)
		ConsoleReporter(buf, true)(sampleChange())
		out := buf.String()
		assert.Contains(t, out, " context\n")
		assert.Contains(t, out, "\x1b[91m-old line\x1b[0m")
		assert.Contains(t, out, "\x1b[92m+new line\x1b[0m")
	})
}

func TestFileChangeLogger(t *testing.T) {
	name := filepath.Join(t.TempDir(), "logs", "changes.log")
	logger := FileChangeLogger(name)
	logger(sampleChange())
	logger(sampleChange())

	data, err := os.ReadFile(name)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, "=== https://example.com/ ")
	assert.Contains(t, out, " context\n-old line\n+new line\n")
	// Appended, not truncated.
	assert.Equal(t, 2, bytes.Count(data, []byte("===")))
}

func TestRenderPrinter(t *testing.T) {
	buf := bytes.NewBuffer(nil)
	RenderPrinter(buf)(&core.Rendering{Text: "# Title\n\nbody\n"})
	assert.Equal(t, "# Title\n\nbody\n", buf.String())
}
