package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComponent_Init(t *testing.T) {
	dir := t.TempDir()
	content := []byte("cache:\n  stale_after: 30\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), content, 0o644))

	c := NewComponent(WithConfigPath(dir))
	require.NoError(t, c.Init(context.Background(), nil))

	assert.Equal(t, 30, c.GetInt("cache.stale_after"))
	assert.True(t, c.IsSet("cache.stale_after"))
	assert.False(t, c.IsSet("cache.missing"))
}

func TestComponent_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	content := []byte("push:\n  stream:\n    url: http://file.example/events/stream\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), content, 0o644))
	t.Setenv("DASHTEST_PUSH_STREAM_URL", "http://env.example/events/stream")

	c := NewComponent(WithConfigPath(dir), WithEnvPrefix("DASHTEST"))
	require.NoError(t, c.Init(context.Background(), nil))

	assert.Equal(t, "http://env.example/events/stream", c.GetString("push.stream.url"))
}

func TestComponent_Unmarshal(t *testing.T) {
	c := NewComponent(WithSource(&mapSource{name: "mem", priority: 10, data: map[string]any{
		"poller.enabled":  true,
		"poller.interval": 15,
	}}))
	require.NoError(t, c.Init(context.Background(), nil))

	var cfg struct {
		Enabled  bool `mapstructure:"enabled"`
		Interval int  `mapstructure:"interval"`
	}
	require.NoError(t, c.Unmarshal("poller", &cfg))
	assert.True(t, cfg.Enabled)
	assert.Equal(t, 15, cfg.Interval)
}

// streamConfig 测试用可校验配置
type streamConfig struct {
	URL string
}

func (c streamConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.URL, validation.Required),
	)
}

func TestValidateAll(t *testing.T) {
	require.NoError(t, ValidateAll(streamConfig{URL: "http://localhost:8000/events/stream"}))

	err := ValidateAll(streamConfig{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)
}
