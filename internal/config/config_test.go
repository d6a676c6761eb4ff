package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_WithValidConfigFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	cfg := `{
		"logLevel": "debug",
		"gesture": { "url": "ws://hud.local:9001", "maxRetries": 5 }
	}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "hudlink.cfg.json"), []byte(cfg), 0644))

	err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "debug", viper.GetString("logLevel"))
	assert.Equal(t, "ws://hud.local:9001", viper.GetString("gesture.url"))
	assert.Equal(t, 5, viper.GetInt("gesture.maxRetries"))
	// Unset keys keep their defaults.
	assert.Equal(t, 3000, viper.GetInt("gesture.reconnectDelayMs"))
}

func TestLoad_DefaultValues(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "hudlink.cfg.json"), []byte(`{}`), 0644))

	err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "info", viper.GetString("logLevel"))
	assert.Equal(t, "./hudlinklogs", viper.GetString("logsDir"))
	assert.Equal(t, "ws://localhost:8765", viper.GetString("gesture.url"))
	assert.Equal(t, 3000, viper.GetInt("gesture.reconnectDelayMs"))
	assert.Equal(t, 10, viper.GetInt("gesture.maxRetries"))
	assert.Equal(t, 30000, viper.GetInt("gesture.maxBackoffMs"))
	assert.Equal(t, false, viper.GetBool("gesture.optimisticMarkers"))
	assert.Equal(t, 280.0, viper.GetFloat64("projector.radius"))
	assert.Equal(t, 0.45, viper.GetFloat64("projector.squash"))
	assert.Equal(t, false, viper.GetBool("journal.enabled"))
	assert.Equal(t, "sqlite", viper.GetString("journal.driver"))
	assert.Equal(t, false, viper.GetBool("influx.enabled"))
	assert.Equal(t, "8086", viper.GetString("influx.port"))
	assert.Equal(t, false, viper.GetBool("graylog.enabled"))
	assert.Equal(t, "localhost:12201", viper.GetString("graylog.address"))
	assert.Equal(t, false, viper.GetBool("otel.enabled"))
	assert.Equal(t, true, viper.GetBool("otel.insecure"))
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Cleanup(viper.Reset)

	require.NoError(t, Load(t.TempDir()))
	assert.Equal(t, "ws://localhost:8765", viper.GetString("gesture.url"))
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Cleanup(viper.Reset)
	t.Setenv("HUDLINK_GESTURE_URL", "ws://ops.aegis.int:8765")

	require.NoError(t, Load(t.TempDir()))
	assert.Equal(t, "ws://ops.aegis.int:8765", viper.GetString("gesture.url"))
}

func TestGetString(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("testKey", "testValue")
	assert.Equal(t, "testValue", GetString("testKey"))
}

func TestGetInt(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("testInt", 42)
	assert.Equal(t, 42, GetInt("testInt"))
}

func TestGetBool(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("testBool", true)
	assert.Equal(t, true, GetBool("testBool"))
}

func TestGesture_Defaults(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(t.TempDir()))

	gc := Gesture()
	assert.Equal(t, "ws://localhost:8765", gc.URL)
	assert.Equal(t, 3*time.Second, gc.ReconnectDelay())
	assert.Equal(t, 30*time.Second, gc.MaxBackoff())
	assert.Equal(t, 3*time.Second, gc.ToolTTL())
	assert.Equal(t, 10, gc.MaxRetries)
}

func TestJournal_Override(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	cfg := `{
		"journal": { "enabled": true, "driver": "postgres", "dsn": "host=db user=hud dbname=hudlink" }
	}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "hudlink.cfg.json"), []byte(cfg), 0644))
	require.NoError(t, Load(dir))

	jc := Journal()
	assert.True(t, jc.Enabled)
	assert.Equal(t, "postgres", jc.Driver)
	assert.Equal(t, "host=db user=hud dbname=hudlink", jc.DSN)
}

func TestOTel_Override(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	cfg := `{
		"otel": { "enabled": true, "endpoint": "localhost:4318", "insecure": false, "batchTimeoutMs": 30000 }
	}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "hudlink.cfg.json"), []byte(cfg), 0644))
	require.NoError(t, Load(dir))

	oc := OTel()
	assert.True(t, oc.Enabled)
	assert.Equal(t, "localhost:4318", oc.Endpoint)
	assert.False(t, oc.Insecure)
	assert.Equal(t, 30000, oc.BatchTimeoutMs)
}
