// Package config assembles the server configuration from defaults, an
// optional JSON or YAML file, the environment and command-line flags, in
// that order of precedence (later wins).
package config

import (
	"errors"
	"fmt"
	"os"
	"time"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	StorageLocal = "local"
	StorageS3    = "s3"

	KeySourceStatic     = "static"
	KeySourcePassphrase = "passphrase"
	KeySourcePrompt     = "prompt"

	DeliveryBestEffort = "best-effort"
	DeliveryStrict     = "strict"
)

// Config holds runtime settings for the securelink server.
type Config struct {
	EndpointAddrHTTP string
	EndpointAddrGRPC string

	DatabaseDriver string
	DatabaseDSN    string

	// SecretKey verifies owner JWTs (HS256).
	SecretKey string

	// EncryptionKeySource selects how the container key is obtained:
	// static (EncryptionKey as raw or hex), passphrase (argon2id over
	// EncryptionKey with EncryptionSalt) or prompt (terminal).
	EncryptionKeySource string
	EncryptionKey       string
	EncryptionSalt      string
	EncryptionKeyLen    int

	StorageBackend string
	DataDir        string
	S3AccessKey    string
	S3SecretKey    string
	S3Bucket       string
	S3Region       string
	S3BaseEndpoint string

	PublicBaseURL     string
	LinkTTL           time.Duration
	OTPTTL            time.Duration
	MaxUploadSize     int64
	AllowedExtensions []string

	SMTPHost          string
	SMTPPort          int
	SMTPUsername      string
	SMTPPassword      string
	SMTPFrom          string
	OTPDeliveryPolicy string

	PurgeAfterDownload bool
	ScratchMaxAge      time.Duration
	JanitorSchedule    string

	LogLevel string
}

// LoadDefaults populates Config with development defaults. The encryption
// key and JWT secret must be overridden outside development.
func (c *Config) LoadDefaults() {
	c.EndpointAddrHTTP = ":8080"
	c.EndpointAddrGRPC = ":50051"
	c.DatabaseDriver = DriverSQLite
	c.DatabaseDSN = "file:securelink.db?_pragma=busy_timeout(5000)"
	c.SecretKey = "secretKey"
	c.EncryptionKeySource = KeySourceStatic
	c.EncryptionKey = "Sixteen byte key"
	c.EncryptionSalt = "securelink"
	c.EncryptionKeyLen = 16
	c.StorageBackend = StorageLocal
	c.DataDir = "data"
	c.S3AccessKey = "admin"
	c.S3SecretKey = "secretpassword"
	c.S3Bucket = "securelink"
	c.S3Region = "us-east-1"
	c.S3BaseEndpoint = "http://127.0.0.1:9000/"
	c.PublicBaseURL = "http://localhost:8080"
	c.LinkTTL = 15 * time.Minute
	c.OTPTTL = 5 * time.Minute
	c.MaxUploadSize = 32 << 20
	c.AllowedExtensions = []string{"txt", "pdf", "png", "jpg", "jpeg", "docx"}
	c.SMTPPort = 587
	c.SMTPFrom = "no-reply@securelink.local"
	c.OTPDeliveryPolicy = DeliveryBestEffort
	c.PurgeAfterDownload = true
	c.ScratchMaxAge = time.Hour
	c.JanitorSchedule = "@every 10m"
	c.LogLevel = "info"
}

// LoadConfig builds a Config from defaults, then the config file named by
// -c/-config, then the environment (including .env) and finally the flags.
// Unreadable or malformed sources panic.
func LoadConfig() *Config {
	return load(os.Args[1:], ".env")
}

func load(args []string, envFile string) *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseFile(cfg, args)
	if err := parseEnv(cfg, envFile); err != nil {
		panic(err)
	}
	parseFlags(cfg, args)
	return cfg
}

// Validate reports the first inconsistent setting.
func (c *Config) Validate() error {
	switch c.DatabaseDriver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("unsupported database driver %q", c.DatabaseDriver)
	}
	switch c.StorageBackend {
	case StorageLocal, StorageS3:
	default:
		return fmt.Errorf("unsupported storage backend %q", c.StorageBackend)
	}
	switch c.EncryptionKeySource {
	case KeySourceStatic, KeySourcePassphrase, KeySourcePrompt:
	default:
		return fmt.Errorf("unsupported encryption key source %q", c.EncryptionKeySource)
	}
	switch c.OTPDeliveryPolicy {
	case DeliveryBestEffort, DeliveryStrict:
	default:
		return fmt.Errorf("unsupported OTP delivery policy %q", c.OTPDeliveryPolicy)
	}
	switch c.EncryptionKeyLen {
	case 16, 24, 32:
	default:
		return fmt.Errorf("encryption key length must be 16, 24 or 32, got %d", c.EncryptionKeyLen)
	}
	if c.LinkTTL <= 0 || c.OTPTTL <= 0 {
		return errors.New("link and OTP TTL must be positive")
	}
	if c.MaxUploadSize <= 0 {
		return errors.New("max upload size must be positive")
	}
	if c.DataDir == "" {
		return errors.New("data dir must be set")
	}
	return nil
}
