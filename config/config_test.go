package config

import (
	"os"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)
	require.Equal(t, 8080, cfg.HTTPPort)
	require.Equal(t, 5*time.Minute, cfg.MaxInactivityTime)
}

func TestLoadEnvOverride(t *testing.T) {
	os.Setenv("LIGHTWEB_HTTP_PORT", "9090")
	defer os.Unsetenv("LIGHTWEB_HTTP_PORT")

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)
	require.Equal(t, 9090, cfg.HTTPPort)
}

func TestLoadConfigFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/lightweb.yaml"
	require.NoError(t, os.WriteFile(path, []byte("upload_dir: /tmp/custom-uploads\nlog_level: debug\n"), 0o644))

	cfg, err := Load(viper.New(), path)
	require.NoError(t, err)
	require.Equal(t, "/tmp/custom-uploads", cfg.UploadDir)
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, 8080, cfg.HTTPPort, "unset fields should keep their default")
}
