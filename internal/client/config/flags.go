package config

import (
	"flag"

	"github.com/dmitrijs2005/securelink/internal/flagx"
)

// parseFlags overlays -a (server address), -t (access token) and -timeout.
// Unknown arguments are filtered out with flagx.FilterArgs first.
func parseFlags(cfg *Config, args []string) {
	args = flagx.FilterArgs(args, []string{"-a", "-t", "-timeout"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerEndpointAddr, "a", cfg.ServerEndpointAddr, "address and port of the server gRPC endpoint")
	fs.StringVar(&cfg.AccessToken, "t", cfg.AccessToken, "owner access token")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "timeout of a single remote call")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
