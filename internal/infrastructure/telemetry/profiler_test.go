package telemetry_test

import (
	"sync"
	"testing"

	"github.com/propfolio/backend/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// newDisabledProfiler builds a profiler that never contacts a Pyroscope
// server, letting tests exercise config plumbing and lifecycle alone.
func newDisabledProfiler(t *testing.T, cfg telemetry.ProfilerConfig) *telemetry.Profiler {
	t.Helper()

	cfg.Enabled = false
	profiler, err := telemetry.NewProfiler(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NotNil(t, profiler)
	return profiler
}

func TestProfiler_Disabled(t *testing.T) {
	profiler := newDisabledProfiler(t, telemetry.ProfilerConfig{
		ServerAddress:   "http://localhost:4040",
		ApplicationName: "propfolio-test",
	})

	assert.False(t, profiler.IsEnabled())

	cfg := profiler.GetConfig()
	assert.Equal(t, "propfolio-test", cfg.ApplicationName)
	assert.False(t, cfg.Enabled)

	assert.NoError(t, profiler.Stop())
}

func TestProfiler_Validation(t *testing.T) {
	t.Run("missing server address", func(t *testing.T) {
		profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
			Enabled:         true,
			ApplicationName: "propfolio-test",
		}, zaptest.NewLogger(t))

		require.Error(t, err)
		assert.Nil(t, profiler)
		assert.Contains(t, err.Error(), "server address is required")
	})

	t.Run("missing application name", func(t *testing.T) {
		profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
			Enabled:       true,
			ServerAddress: "http://localhost:4040",
		}, zaptest.NewLogger(t))

		require.Error(t, err)
		assert.Nil(t, profiler)
		assert.Contains(t, err.Error(), "application name is required")
	})
}

func TestProfiler_EnabledIntegration(t *testing.T) {
	// Needs a Pyroscope server listening on 4040.
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:             true,
		ServerAddress:       "http://localhost:4040",
		ApplicationName:     "propfolio-test",
		ProfileCPU:          true,
		ProfileAllocObjects: true,
		ProfileAllocSpace:   true,
		ProfileInuseObjects: true,
		ProfileInuseSpace:   true,
		ProfileGoroutines:   true,
	}, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.True(t, profiler.IsEnabled())
	assert.NoError(t, profiler.Stop())
}

func TestProfiler_StopIdempotent(t *testing.T) {
	profiler := newDisabledProfiler(t, telemetry.ProfilerConfig{})

	for i := 0; i < 3; i++ {
		assert.NoError(t, profiler.Stop())
	}
}

func TestProfiler_StopConcurrent(t *testing.T) {
	profiler := newDisabledProfiler(t, telemetry.ProfilerConfig{})

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = profiler.Stop()
		}()
	}
	wg.Wait()
}

func TestProfiler_GetConfigStable(t *testing.T) {
	profiler := newDisabledProfiler(t, telemetry.ProfilerConfig{
		ServerAddress:   "http://localhost:4040",
		ApplicationName: "propfolio-test",
	})

	first := profiler.GetConfig()
	second := profiler.GetConfig()
	assert.Equal(t, first.ApplicationName, second.ApplicationName)
	assert.Equal(t, "propfolio-test", second.ApplicationName)
}

func TestProfiler_ProfileTypeCombinations(t *testing.T) {
	// Each combination must construct cleanly; actual uploads stay off.
	cases := []struct {
		name   string
		config telemetry.ProfilerConfig
	}{
		{"none", telemetry.ProfilerConfig{}},
		{"cpu_only", telemetry.ProfilerConfig{ProfileCPU: true}},
		{"memory_only", telemetry.ProfilerConfig{
			ProfileAllocObjects: true,
			ProfileAllocSpace:   true,
		}},
		{"mutex", telemetry.ProfilerConfig{
			ProfileMutexCount:    true,
			ProfileMutexDuration: true,
			MutexProfileFraction: 10,
		}},
		{"block", telemetry.ProfilerConfig{
			ProfileBlockCount:    true,
			ProfileBlockDuration: true,
			BlockProfileRate:     10,
		}},
		{"everything", telemetry.ProfilerConfig{
			ProfileCPU:           true,
			ProfileAllocObjects:  true,
			ProfileAllocSpace:    true,
			ProfileInuseObjects:  true,
			ProfileInuseSpace:    true,
			ProfileGoroutines:    true,
			ProfileMutexCount:    true,
			ProfileMutexDuration: true,
			ProfileBlockCount:    true,
			ProfileBlockDuration: true,
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.config.ServerAddress = "http://localhost:4040"
			tc.config.ApplicationName = "propfolio-test"

			profiler := newDisabledProfiler(t, tc.config)
			assert.False(t, profiler.IsEnabled())
			assert.NoError(t, profiler.Stop())
		})
	}
}

func TestProfiler_ConfigPassthrough(t *testing.T) {
	t.Run("disable gc runs", func(t *testing.T) {
		profiler := newDisabledProfiler(t, telemetry.ProfilerConfig{
			ServerAddress:   "http://localhost:4040",
			ApplicationName: "propfolio-test",
			DisableGCRuns:   true,
		})

		assert.True(t, profiler.GetConfig().DisableGCRuns)
		assert.NoError(t, profiler.Stop())
	})

	t.Run("basic auth", func(t *testing.T) {
		profiler := newDisabledProfiler(t, telemetry.ProfilerConfig{
			ServerAddress:     "http://localhost:4040",
			ApplicationName:   "propfolio-test",
			BasicAuthUser:     "user",
			BasicAuthPassword: "password",
		})

		cfg := profiler.GetConfig()
		assert.Equal(t, "user", cfg.BasicAuthUser)
		assert.Equal(t, "password", cfg.BasicAuthPassword)
		assert.NoError(t, profiler.Stop())
	})

	t.Run("mutex profiling settings", func(t *testing.T) {
		profiler := newDisabledProfiler(t, telemetry.ProfilerConfig{
			ServerAddress:        "http://localhost:4040",
			ApplicationName:      "propfolio-test",
			ProfileMutexCount:    true,
			ProfileMutexDuration: true,
			MutexProfileFraction: 10,
		})

		cfg := profiler.GetConfig()
		assert.True(t, cfg.ProfileMutexCount)
		assert.True(t, cfg.ProfileMutexDuration)
		assert.Equal(t, 10, cfg.MutexProfileFraction)
		assert.NoError(t, profiler.Stop())
	})

	t.Run("block profiling settings", func(t *testing.T) {
		profiler := newDisabledProfiler(t, telemetry.ProfilerConfig{
			ServerAddress:        "http://localhost:4040",
			ApplicationName:      "propfolio-test",
			ProfileBlockCount:    true,
			ProfileBlockDuration: true,
			BlockProfileRate:     10,
		})

		cfg := profiler.GetConfig()
		assert.True(t, cfg.ProfileBlockCount)
		assert.True(t, cfg.ProfileBlockDuration)
		assert.Equal(t, 10, cfg.BlockProfileRate)
		assert.NoError(t, profiler.Stop())
	})
}
