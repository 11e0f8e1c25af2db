package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/clouddrive/internal/flagx"
)

// Flags lists every flag the client understands, -c/-config included, so the
// CLI can strip them and keep only the command and its arguments.
var Flags = []string{"-a", "-t", "-r", "-p", "-c", "-config"}

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   address and port of the backend server (default from Config)
//	-t string   access token
//	-r int      request timeout in seconds (default from Config)
//	-p int      parallel part uploads (default from Config)
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-t", "-r", "-p"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerEndpointAddr, "a", cfg.ServerEndpointAddr, "address and port to access server")
	fs.StringVar(&cfg.AccessToken, "t", cfg.AccessToken, "access token")
	timeout := fs.Int("r", int(cfg.RequestTimeout.Seconds()), "request timeout (in seconds)")
	fs.IntVar(&cfg.PartConcurrency, "p", cfg.PartConcurrency, "parallel part uploads")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.RequestTimeout = time.Duration(*timeout) * time.Second
}
