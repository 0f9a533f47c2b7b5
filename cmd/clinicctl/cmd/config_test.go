package cmd

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := loadConfig()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8080", cfg.APIURL)
	assert.Equal(t, "Asia/Aden", cfg.Timezone)
	assert.Equal(t, []string{"aplay", "-q", "-"}, cfg.AudioCommand)
	assert.Equal(t, 15*time.Second, cfg.Timeout)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.Mail.Enabled)
}

func TestLoadConfig_FromEnvironment(t *testing.T) {
	t.Setenv("CLINIC_API_URL", "https://clinic.example")
	t.Setenv("CLINIC_STRICT_SCHEDULE", "true")
	t.Setenv("CLINIC_MAIL_ENABLED", "true")
	t.Setenv("CLINIC_MAIL_HOST", "smtp.example")
	t.Setenv("CLINIC_MAIL_TO", "a@clinic.example,b@clinic.example")
	t.Setenv("CLINIC_LOG_FILE", "/tmp/clinicctl.log")

	cfg, err := loadConfig()
	require.NoError(t, err)

	assert.Equal(t, "https://clinic.example", cfg.APIURL)
	assert.True(t, cfg.StrictSchedule)
	assert.Equal(t, []string{"a@clinic.example", "b@clinic.example"}, cfg.Mail.To)
	assert.Equal(t, 587, cfg.Mail.Port)
	assert.Equal(t, "/tmp/clinicctl.log", cfg.Log.File)
}

func TestLoadConfig_Invalid(t *testing.T) {
	t.Run("timezone", func(t *testing.T) {
		t.Setenv("CLINIC_TIMEZONE", "Mars/Olympus")
		_, err := loadConfig()
		assert.Error(t, err)
	})
	t.Run("mail without recipients", func(t *testing.T) {
		t.Setenv("CLINIC_MAIL_ENABLED", "true")
		t.Setenv("CLINIC_MAIL_HOST", "smtp.example")
		_, err := loadConfig()
		assert.Error(t, err)
	})
}
