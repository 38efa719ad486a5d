package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEnvConfig_Defaults(t *testing.T) {
	t.Setenv("EXPORT_SHEET_NAME", "")
	t.Setenv("IMPORT_START_ROW", "")

	require.NoError(t, LoadEnvConfig(filepath.Join(t.TempDir(), "missing.env")))
	assert.Equal(t, "employees", DefaultEnvConfig.EXPORT_SHEET_NAME)
	assert.Equal(t, 1, DefaultEnvConfig.IMPORT_START_ROW)
	assert.True(t, DefaultEnvConfig.EXPORT_AUTOSIZE)
}

func TestLoadEnvConfig_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("EXCEL_AUTHOR=payroll\nIMPORT_BATCH_SIZE=50\n"), 0o600))
	t.Setenv("EXCEL_AUTHOR", "")
	t.Setenv("IMPORT_BATCH_SIZE", "")
	os.Unsetenv("EXCEL_AUTHOR")
	os.Unsetenv("IMPORT_BATCH_SIZE")

	require.NoError(t, LoadEnvConfig(path))
	assert.Equal(t, "payroll", DefaultEnvConfig.EXCEL_AUTHOR)
	assert.Equal(t, 50, DefaultEnvConfig.IMPORT_BATCH_SIZE)
}

func TestGetters(t *testing.T) {
	t.Setenv("CFG_INT", "x")
	t.Setenv("CFG_BOOL", "false")
	t.Setenv("CFG_DURATION", "30")

	assert.Equal(t, 7, getEnvInt("CFG_INT", 7))
	assert.False(t, getEnvBool("CFG_BOOL", true))
	assert.Equal(t, 30*time.Second, getEnvDuration("CFG_DURATION", time.Minute))
	assert.Equal(t, "fallback", getEnvString("CFG_UNSET", "fallback"))
}
