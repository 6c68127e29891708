package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jt05610/tapn/config"
	"github.com/jt05610/tapn/pwlist"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDefault(t *testing.T) {
	o := config.Default()
	require.NoError(t, o.Validate())
	assert.Equal(t, 5, o.KBound)
	assert.Equal(t, uint32(5), o.Precision)
	assert.Equal(t, pwlist.BFS, o.Strategy)
	assert.Equal(t, pwlist.Hash, o.Store)
	assert.True(t, o.TimeDarts)
	assert.Len(t, o.Discrete(zap.NewNop()), 6)
	assert.Len(t, o.SMC(zap.NewNop(), 0), 6)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(file, []byte("TAPN_STRATEGY=dfs\nTAPN_RUNS=40\n"), 0o600))
	t.Setenv("TAPN_K_BOUND", "8")
	t.Setenv("TAPN_SEED", "42")
	t.Setenv("TAPN_TIME_DARTS", "false")
	t.Setenv("TAPN_CONFIDENCE", "0.99")
	t.Setenv("TAPN_TIMEOUT", "90s")
	t.Cleanup(func() {
		os.Unsetenv("TAPN_STRATEGY")
		os.Unsetenv("TAPN_RUNS")
	})

	o, err := config.Load(file)
	require.NoError(t, err)
	assert.Equal(t, 8, o.KBound)
	assert.Equal(t, uint64(42), o.Seed)
	assert.False(t, o.TimeDarts)
	assert.Equal(t, 0.99, o.Confidence)
	assert.Equal(t, pwlist.DFS, o.Strategy)
	assert.Equal(t, 40, o.Runs)
	assert.Equal(t, 90*time.Second, o.Timeout)
	assert.Len(t, o.SMC(zap.NewNop(), 0), 7)
}

func TestLoadErrors(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)

	file := filepath.Join(t.TempDir(), "empty.env")
	require.NoError(t, os.WriteFile(file, nil, 0o600))
	_, err = config.Load(file)
	require.NoError(t, err)

	t.Setenv("TAPN_K_BOUND", "many")
	_, err = config.Load(file)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*config.Options){
		"k-bound":    func(o *config.Options) { o.KBound = 0 },
		"precision":  func(o *config.Options) { o.Precision = 11 },
		"confidence": func(o *config.Options) { o.Confidence = 1 },
		"width":      func(o *config.Options) { o.Width = 0 },
		"strategy":   func(o *config.Options) { o.Strategy = "best" },
		"store":      func(o *config.Options) { o.Store = "sql" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			o := config.Default()
			mutate(o)
			assert.ErrorIs(t, o.Validate(), config.ErrInvalid)
		})
	}
}
