package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEnv_Variables(t *testing.T) {
	t.Setenv("SECURELINK_HTTP_ADDR", ":9999")
	t.Setenv("SECURELINK_DATABASE_DRIVER", "postgres")
	t.Setenv("SECURELINK_LINK_TTL", "45m")
	t.Setenv("SECURELINK_MAX_UPLOAD_SIZE", "1024")
	t.Setenv("SECURELINK_PURGE_AFTER_DOWNLOAD", "false")
	t.Setenv("SECURELINK_ALLOWED_EXTENSIONS", ".PDF, txt ,")
	t.Setenv("SECURELINK_SMTP_PORT", "465")
	t.Setenv("ENCRYPTION_KEY", "0123456789abcdef")

	c := defaults()
	require.NoError(t, parseEnv(c, ""))

	assert.Equal(t, ":9999", c.EndpointAddrHTTP)
	assert.Equal(t, DriverPostgres, c.DatabaseDriver)
	assert.Equal(t, 45*time.Minute, c.LinkTTL)
	assert.Equal(t, int64(1024), c.MaxUploadSize)
	assert.False(t, c.PurgeAfterDownload)
	assert.Equal(t, []string{"pdf", "txt"}, c.AllowedExtensions)
	assert.Equal(t, 465, c.SMTPPort)
	assert.Equal(t, "0123456789abcdef", c.EncryptionKey)
}

func TestParseEnv_PrefixedKeyWins(t *testing.T) {
	t.Setenv("ENCRYPTION_KEY", "plain-env-key-16")
	t.Setenv("SECURELINK_ENCRYPTION_KEY", "prefixed-key-16b")

	c := defaults()
	require.NoError(t, parseEnv(c, ""))
	assert.Equal(t, "prefixed-key-16b", c.EncryptionKey)
}

func TestParseEnv_DotEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("SECURELINK_S3_BUCKET=from-dotenv\n"), 0o600))
	// godotenv writes into the process env; make sure it is cleared afterwards.
	t.Setenv("SECURELINK_S3_BUCKET", "")
	require.NoError(t, os.Unsetenv("SECURELINK_S3_BUCKET"))

	c := defaults()
	require.NoError(t, parseEnv(c, path))
	assert.Equal(t, "from-dotenv", c.S3Bucket)
}

func TestParseEnv_MissingDotEnvIgnored(t *testing.T) {
	c := defaults()
	require.NoError(t, parseEnv(c, filepath.Join(t.TempDir(), "absent.env")))
	assert.Equal(t, defaults(), c)
}

func TestParseEnv_BadValues(t *testing.T) {
	for name, val := range map[string]string{
		"SECURELINK_OTP_TTL":              "five",
		"SECURELINK_SMTP_PORT":            "x",
		"SECURELINK_MAX_UPLOAD_SIZE":      "big",
		"SECURELINK_PURGE_AFTER_DOWNLOAD": "maybe",
		"SECURELINK_ENCRYPTION_KEY_LEN":   "sixteen",
	} {
		t.Run(name, func(t *testing.T) {
			t.Setenv(name, val)
			assert.Error(t, parseEnv(defaults(), ""))
		})
	}
}
