package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 10*time.Second, cfg.HTTPRequestTimeout)
	assert.Equal(t, []string{"http://localhost:5173", "http://localhost:3000"}, cfg.CORSOrigins)
	assert.Equal(t, ":50051", cfg.GRPCAddr)
	assert.Equal(t, DriverPostgres, cfg.StorageDriver)
	assert.True(t, cfg.DBMigrate)
	assert.Equal(t, 30*time.Minute, cfg.DBConnMaxLifetime)
	assert.Equal(t, "America/Argentina/Buenos_Aires", cfg.Location.String())
	assert.Equal(t, 52, cfg.MaxOccurrences)
	assert.Equal(t, 20, cfg.OverlapScanWindow)
	assert.Equal(t, 30*time.Minute, cfg.SeriesMatchTolerance)
	assert.Equal(t, "+54", cfg.PhoneCountryCode)
	assert.True(t, cfg.PhoneAddMobileNine)
	assert.True(t, cfg.RemindersEnabled)
	assert.Equal(t, 10, cfg.RemindersHour)
	assert.False(t, cfg.TwilioEnabled)
	assert.Equal(t, "whatsapp:+14155238886", cfg.TwilioWhatsAppFrom)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("TURNERO_STORAGE_DRIVER", "Memory")
	t.Setenv("TURNERO_BOOKING_OVERLAP_SCAN_WINDOW", "0")
	t.Setenv("TURNERO_REMINDERS_SCHEDULE", "30 9 * * *")
	t.Setenv("TURNERO_HTTP_CORS_ORIGINS", " https://a.example , ,https://b.example")
	t.Setenv("DATABASE_URL", "postgres://x@db/y")
	t.Setenv("TWILIO_ACCOUNT_SID", "AC123")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DriverMemory, cfg.StorageDriver)
	assert.Equal(t, 0, cfg.OverlapScanWindow)
	assert.Equal(t, "30 9 * * *", cfg.RemindersSchedule)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, "postgres://x@db/y", cfg.DatabaseURL)
	assert.Equal(t, "AC123", cfg.TwilioAccountSID)
}

func TestLoad_PortAlias(t *testing.T) {
	t.Setenv("PORT", "9090")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.HTTPAddr)

	t.Setenv("TURNERO_HTTP_ADDR", "127.0.0.1:7000")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:7000", cfg.HTTPAddr)
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string][2]string{
		"duration": {"TURNERO_SHUTDOWN_TIMEOUT", "soon"},
		"timezone": {"TURNERO_BUSINESS_TIMEZONE", "Mars/Olympus"},
		"hour":     {"TURNERO_REMINDERS_HOUR", "24"},
		"driver":   {"TURNERO_STORAGE_DRIVER", "mongo"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv(env[0], env[1])
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
