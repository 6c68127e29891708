package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) string {
	t.Helper()
	out := new(bytes.Buffer)
	rootCmd.SetOut(out)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute())
	return out.String()
}

func TestInfo(t *testing.T) {
	out := run(t, "info", "testdata/pipeline.yaml")
	assert.Contains(t, out, "net pipeline: 3 places, 3 transitions")
	assert.Contains(t, out, "query EF c == 2")
	assert.Contains(t, out, "initially enabled renew, token counts after firing [2 0 0]")
	assert.NotContains(t, out, "initially enabled move")
}

func TestVerify(t *testing.T) {
	out := run(t, "verify", "testdata/pipeline.yaml", "--dev")
	assert.Contains(t, out, "EF c == 2: satisfied")
	assert.Contains(t, out, "AG a + b + c == 2: satisfied")
	assert.NotContains(t, out, "PF")
}

func TestSMC(t *testing.T) {
	out := run(t, "smc", "testdata/pipeline.yaml", "-q", "PF[<=0] c == 2", "--runs", "20", "--seed", "3")
	assert.Contains(t, out, "P(PF[<=0] c == 2) in [0.0000, 0.0500]")
}

func TestViz(t *testing.T) {
	dir := t.TempDir()
	run(t, "viz", "testdata/pipeline.yaml", "-o", dir, "-f", "dot")
	info, err := os.Stat(filepath.Join(dir, "pipeline.dot"))
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}
