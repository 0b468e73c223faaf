package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const envPrefix = "SECURELINK_"

// parseEnv loads envFile (if present) into the process environment without
// overriding variables that are already set, then overlays SECURELINK_*
// variables. ENCRYPTION_KEY is honored without the prefix.
func parseEnv(c *Config, envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	strs := map[string]*string{
		"HTTP_ADDR":             &c.EndpointAddrHTTP,
		"GRPC_ADDR":             &c.EndpointAddrGRPC,
		"DATABASE_DRIVER":       &c.DatabaseDriver,
		"DATABASE_DSN":          &c.DatabaseDSN,
		"SECRET_KEY":            &c.SecretKey,
		"ENCRYPTION_KEY_SOURCE": &c.EncryptionKeySource,
		"ENCRYPTION_KEY":        &c.EncryptionKey,
		"ENCRYPTION_SALT":       &c.EncryptionSalt,
		"STORAGE_BACKEND":       &c.StorageBackend,
		"DATA_DIR":              &c.DataDir,
		"S3_ACCESS_KEY":         &c.S3AccessKey,
		"S3_SECRET_KEY":         &c.S3SecretKey,
		"S3_BUCKET":             &c.S3Bucket,
		"S3_REGION":             &c.S3Region,
		"S3_BASE_ENDPOINT":      &c.S3BaseEndpoint,
		"PUBLIC_BASE_URL":       &c.PublicBaseURL,
		"SMTP_HOST":             &c.SMTPHost,
		"SMTP_USERNAME":         &c.SMTPUsername,
		"SMTP_PASSWORD":         &c.SMTPPassword,
		"SMTP_FROM":             &c.SMTPFrom,
		"OTP_DELIVERY_POLICY":   &c.OTPDeliveryPolicy,
		"JANITOR_SCHEDULE":      &c.JanitorSchedule,
		"LOG_LEVEL":             &c.LogLevel,
	}

	if v, ok := os.LookupEnv("ENCRYPTION_KEY"); ok && v != "" {
		c.EncryptionKey = v
	}
	for name, dst := range strs {
		if v, ok := lookup(name); ok {
			*dst = v
		}
	}

	durations := map[string]*time.Duration{
		"LINK_TTL":        &c.LinkTTL,
		"OTP_TTL":         &c.OTPTTL,
		"SCRATCH_MAX_AGE": &c.ScratchMaxAge,
	}
	for name, dst := range durations {
		if v, ok := lookup(name); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%s%s: %w", envPrefix, name, err)
			}
			*dst = d
		}
	}

	if v, ok := lookup("ENCRYPTION_KEY_LEN"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sENCRYPTION_KEY_LEN: %w", envPrefix, err)
		}
		c.EncryptionKeyLen = n
	}
	if v, ok := lookup("SMTP_PORT"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sSMTP_PORT: %w", envPrefix, err)
		}
		c.SMTPPort = n
	}
	if v, ok := lookup("MAX_UPLOAD_SIZE"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%sMAX_UPLOAD_SIZE: %w", envPrefix, err)
		}
		c.MaxUploadSize = n
	}
	if v, ok := lookup("PURGE_AFTER_DOWNLOAD"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sPURGE_AFTER_DOWNLOAD: %w", envPrefix, err)
		}
		c.PurgeAfterDownload = b
	}
	if v, ok := lookup("ALLOWED_EXTENSIONS"); ok {
		c.AllowedExtensions = splitList(v)
	}

	return nil
}

func lookup(name string) (string, bool) {
	v, ok := os.LookupEnv(envPrefix + name)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func splitList(s string) []string {
	out := []string{}
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, strings.ToLower(strings.TrimPrefix(p, ".")))
		}
	}
	return out
}
