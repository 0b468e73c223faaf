package config

import (
	"flag"
	"io"
	"strings"

	"github.com/dmitrijs2005/securelink/internal/flagx"
)

var knownFlags = []string{
	"-a", "-g", "-driver", "-d", "-s", "-data", "-storage", "-base-url",
	"-link-ttl", "-otp-ttl", "-delivery", "-key-source", "-log-level", "-ext",
}

// parseFlags overlays command-line flags on config:
//
//	-a          HTTP bind address
//	-g          gRPC bind address
//	-driver     database driver (postgres|sqlite)
//	-d          database DSN
//	-s          JWT secret
//	-data       data directory (incoming, scratch)
//	-storage    container backend (local|s3)
//	-base-url   public base URL used in share links
//	-link-ttl   share link lifetime, e.g. 15m
//	-otp-ttl    OTP lifetime, e.g. 5m
//	-delivery   OTP delivery policy (best-effort|strict)
//	-key-source encryption key source (static|passphrase|prompt)
//	-log-level  debug|info|warn|error
//	-ext        comma separated extension allow-list
//
// Unknown flags are filtered out first; a malformed value panics.
func parseFlags(config *Config, args []string) {
	args = flagx.FilterArgs(args, knownFlags)

	fs := flag.NewFlagSet("securelink", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "HTTP address")
	fs.StringVar(&config.EndpointAddrGRPC, "g", config.EndpointAddrGRPC, "gRPC address")
	fs.StringVar(&config.DatabaseDriver, "driver", config.DatabaseDriver, "database driver")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "JWT secret")
	fs.StringVar(&config.DataDir, "data", config.DataDir, "data directory")
	fs.StringVar(&config.StorageBackend, "storage", config.StorageBackend, "container backend")
	fs.StringVar(&config.PublicBaseURL, "base-url", config.PublicBaseURL, "public base URL")
	fs.DurationVar(&config.LinkTTL, "link-ttl", config.LinkTTL, "share link lifetime")
	fs.DurationVar(&config.OTPTTL, "otp-ttl", config.OTPTTL, "OTP lifetime")
	fs.StringVar(&config.OTPDeliveryPolicy, "delivery", config.OTPDeliveryPolicy, "OTP delivery policy")
	fs.StringVar(&config.EncryptionKeySource, "key-source", config.EncryptionKeySource, "encryption key source")
	fs.StringVar(&config.LogLevel, "log-level", config.LogLevel, "log level")
	ext := fs.String("ext", strings.Join(config.AllowedExtensions, ","), "allowed extensions")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.AllowedExtensions = splitList(*ext)
}
