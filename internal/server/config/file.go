package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/securelink/internal/flagx"
	"github.com/dmitrijs2005/securelink/internal/timex"
	"gopkg.in/yaml.v2"
)

// FileConfig mirrors Config for decoding JSON and YAML files. Pointer and
// zero-valued fields that are absent from the file leave Config untouched.
type FileConfig struct {
	EndpointAddrHTTP    string         `json:"endpoint_addr_http" yaml:"endpoint_addr_http"`
	EndpointAddrGRPC    string         `json:"endpoint_addr_grpc" yaml:"endpoint_addr_grpc"`
	DatabaseDriver      string         `json:"database_driver" yaml:"database_driver"`
	DatabaseDSN         string         `json:"database_dsn" yaml:"database_dsn"`
	SecretKey           string         `json:"secret_key" yaml:"secret_key"`
	EncryptionKeySource string         `json:"encryption_key_source" yaml:"encryption_key_source"`
	EncryptionKey       string         `json:"encryption_key" yaml:"encryption_key"`
	EncryptionSalt      string         `json:"encryption_salt" yaml:"encryption_salt"`
	EncryptionKeyLen    int            `json:"encryption_key_len" yaml:"encryption_key_len"`
	StorageBackend      string         `json:"storage_backend" yaml:"storage_backend"`
	DataDir             string         `json:"data_dir" yaml:"data_dir"`
	S3AccessKey         string         `json:"s3_access_key" yaml:"s3_access_key"`
	S3SecretKey         string         `json:"s3_secret_key" yaml:"s3_secret_key"`
	S3Bucket            string         `json:"s3_bucket" yaml:"s3_bucket"`
	S3Region            string         `json:"s3_region" yaml:"s3_region"`
	S3BaseEndpoint      string         `json:"s3_base_endpoint" yaml:"s3_base_endpoint"`
	PublicBaseURL       string         `json:"public_base_url" yaml:"public_base_url"`
	LinkTTL             timex.Duration `json:"link_ttl" yaml:"link_ttl"`
	OTPTTL              timex.Duration `json:"otp_ttl" yaml:"otp_ttl"`
	MaxUploadSize       int64          `json:"max_upload_size" yaml:"max_upload_size"`
	AllowedExtensions   []string       `json:"allowed_extensions" yaml:"allowed_extensions"`
	SMTPHost            string         `json:"smtp_host" yaml:"smtp_host"`
	SMTPPort            int            `json:"smtp_port" yaml:"smtp_port"`
	SMTPUsername        string         `json:"smtp_username" yaml:"smtp_username"`
	SMTPPassword        string         `json:"smtp_password" yaml:"smtp_password"`
	SMTPFrom            string         `json:"smtp_from" yaml:"smtp_from"`
	OTPDeliveryPolicy   string         `json:"otp_delivery_policy" yaml:"otp_delivery_policy"`
	PurgeAfterDownload  *bool          `json:"purge_after_download" yaml:"purge_after_download"`
	ScratchMaxAge       timex.Duration `json:"scratch_max_age" yaml:"scratch_max_age"`
	JanitorSchedule     string         `json:"janitor_schedule" yaml:"janitor_schedule"`
	LogLevel            string         `json:"log_level" yaml:"log_level"`
}

// parseFile overlays values from the file named by -c/-config. Files ending
// in .yaml or .yml are decoded as YAML, everything else as JSON. A missing
// flag means no file; an unreadable or malformed file panics.
func parseFile(config *Config, args []string) {
	path := flagx.ConfigFileFlag(args)
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	fc := &FileConfig{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, fc)
	default:
		err = json.Unmarshal(data, fc)
	}
	if err != nil {
		panic(err)
	}

	fc.apply(config)
}

func (fc *FileConfig) apply(c *Config) {
	setString(&c.EndpointAddrHTTP, fc.EndpointAddrHTTP)
	setString(&c.EndpointAddrGRPC, fc.EndpointAddrGRPC)
	setString(&c.DatabaseDriver, fc.DatabaseDriver)
	setString(&c.DatabaseDSN, fc.DatabaseDSN)
	setString(&c.SecretKey, fc.SecretKey)
	setString(&c.EncryptionKeySource, fc.EncryptionKeySource)
	setString(&c.EncryptionKey, fc.EncryptionKey)
	setString(&c.EncryptionSalt, fc.EncryptionSalt)
	setString(&c.StorageBackend, fc.StorageBackend)
	setString(&c.DataDir, fc.DataDir)
	setString(&c.S3AccessKey, fc.S3AccessKey)
	setString(&c.S3SecretKey, fc.S3SecretKey)
	setString(&c.S3Bucket, fc.S3Bucket)
	setString(&c.S3Region, fc.S3Region)
	setString(&c.S3BaseEndpoint, fc.S3BaseEndpoint)
	setString(&c.PublicBaseURL, fc.PublicBaseURL)
	setString(&c.SMTPHost, fc.SMTPHost)
	setString(&c.SMTPUsername, fc.SMTPUsername)
	setString(&c.SMTPPassword, fc.SMTPPassword)
	setString(&c.SMTPFrom, fc.SMTPFrom)
	setString(&c.OTPDeliveryPolicy, fc.OTPDeliveryPolicy)
	setString(&c.JanitorSchedule, fc.JanitorSchedule)
	setString(&c.LogLevel, fc.LogLevel)

	if fc.EncryptionKeyLen != 0 {
		c.EncryptionKeyLen = fc.EncryptionKeyLen
	}
	if fc.SMTPPort != 0 {
		c.SMTPPort = fc.SMTPPort
	}
	if fc.MaxUploadSize != 0 {
		c.MaxUploadSize = fc.MaxUploadSize
	}
	if fc.LinkTTL.Duration != 0 {
		c.LinkTTL = fc.LinkTTL.Duration
	}
	if fc.OTPTTL.Duration != 0 {
		c.OTPTTL = fc.OTPTTL.Duration
	}
	if fc.ScratchMaxAge.Duration != 0 {
		c.ScratchMaxAge = fc.ScratchMaxAge.Duration
	}
	if fc.AllowedExtensions != nil {
		c.AllowedExtensions = fc.AllowedExtensions
	}
	if fc.PurgeAfterDownload != nil {
		c.PurgeAfterDownload = *fc.PurgeAfterDownload
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
