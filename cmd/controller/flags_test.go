package main

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lume-glove/controller/internal/sensor"
)

func TestFlagDefaults(t *testing.T) {
	assert.Equal(t, ":8888", *listen)
	assert.Equal(t, "127.0.0.1:8081", *debugListen)
	assert.Equal(t, 15*time.Millisecond, *tick)
	assert.Equal(t, 1700, *flexThreshold)
	assert.False(t, *devMode)
	assert.False(t, *disableSensor)
}

func TestLoadConfig_NoFileUsesDefaults(t *testing.T) {
	cfg, err := loadConfig("", nil)
	require.NoError(t, err)
	assert.Equal(t, ":8888", cfg.GetListenAddress())
	assert.Equal(t, 15*time.Millisecond, cfg.GetTickInterval())
	assert.Equal(t, int32(1700), cfg.GetFlexThreshold())
}

func TestLoadConfig_FlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "controller.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen_address: \":9000\"\ntick_interval: 20ms\nflex_threshold: 1500\n"), 0o600))

	cfg, err := loadConfig(path, nil)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.GetListenAddress())
	assert.Equal(t, 20*time.Millisecond, cfg.GetTickInterval())

	require.NoError(t, flag.Set("tick", "30ms"))
	require.NoError(t, flag.Set("flex-threshold", "1800"))
	t.Cleanup(func() {
		_ = flag.Set("tick", "15ms")
		_ = flag.Set("flex-threshold", "1700")
	})

	cfg, err = loadConfig(path, map[string]bool{"tick": true, "flex-threshold": true})
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.GetListenAddress(), "unset flag must not override the file")
	assert.Equal(t, 30*time.Millisecond, cfg.GetTickInterval())
	assert.Equal(t, int32(1800), cfg.GetFlexThreshold())
}

func TestLoadConfig_InvalidOverride(t *testing.T) {
	require.NoError(t, flag.Set("tick", "0s"))
	t.Cleanup(func() { _ = flag.Set("tick", "15ms") })

	_, err := loadConfig("", map[string]bool{"tick": true})
	assert.Error(t, err)
}

func TestLoadConfig_FlexThresholdOutOfRange(t *testing.T) {
	t.Cleanup(func() { _ = flag.Set("flex-threshold", "1700") })

	for _, v := range []string{"4294967296", "-1"} {
		require.NoError(t, flag.Set("flex-threshold", v))
		_, err := loadConfig("", map[string]bool{"flex-threshold": true})
		require.Error(t, err, v)
		assert.Contains(t, err.Error(), "flex-threshold")
	}
}

func TestSyntheticGlove_LinesParse(t *testing.T) {
	start := time.Unix(1_700_000_000, 0)
	g := newSyntheticGlove(start)
	now := start
	g.now = func() time.Time { return now }

	for i := 0; i < 4; i++ {
		r, err := sensor.ParseLine(g.Line())
		require.NoError(t, err)

		bent := 0
		for _, f := range r.Flex {
			if f <= 1700 {
				bent++
			}
		}
		assert.LessOrEqual(t, bent, 1)
		now = now.Add(2 * time.Second)
	}
}
