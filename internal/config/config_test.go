package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{envTickHz, envMaxThreads, envHeapLimit, envHeapMmap, envDebug} {
		t.Setenv(k, "")
	}
	require.Equal(t, Default(), Load())
	require.NoError(t, Default().Validate())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv(envTickHz, "250")
	t.Setenv(envMaxThreads, "8")
	t.Setenv(envHeapLimit, "65536")
	t.Setenv(envHeapMmap, "1")
	t.Setenv(envDebug, "true")

	c := Load()
	require.Equal(t, Config{
		TickHz:     250,
		MaxThreads: 8,
		HeapLimit:  65536,
		HeapMmap:   true,
		Debug:      true,
	}, c)
	require.NoError(t, c.Validate())
}

func TestValidate(t *testing.T) {
	for _, c := range []Config{
		{TickHz: 0, MaxThreads: 1},
		{TickHz: 2_000_000, MaxThreads: 1},
		{TickHz: 100, MaxThreads: 0},
		{TickHz: 100, MaxThreads: 1, HeapLimit: -1},
	} {
		require.Error(t, c.Validate(), "%+v", c)
	}
}

func TestLoadSeesEnvChanges(t *testing.T) {
	t.Setenv(envTickHz, "100")
	require.Equal(t, 100, Load().TickHz)

	t.Setenv(envTickHz, "400")
	t.Setenv(envDebug, "1")
	c := Load()
	require.Equal(t, 400, c.TickHz)
	require.True(t, c.Debug)
}
