// Package cli implements the clouddrive command-line client: one command per
// invocation, results printed as tab-aligned text.
package cli

import (
	"context"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/dmitrijs2005/clouddrive/internal/client/client"
	"github.com/dmitrijs2005/clouddrive/internal/client/config"
	"github.com/dmitrijs2005/clouddrive/internal/client/services"
)

type App struct {
	config *config.Config
	drive  *services.DriveService
	out    io.Writer
	closer io.Closer
}

// NewApp connects to the server, prompting for a token when none is configured.
func NewApp(c *config.Config) (*App, error) {
	if c.AccessToken == "" {
		token, err := GetToken(os.Stderr)
		if err != nil {
			return nil, err
		}
		c.AccessToken = token
	}

	apiClient, err := client.NewGRPCClient(c.ServerEndpointAddr, c.AccessToken)
	if err != nil {
		return nil, err
	}

	ds := services.NewDriveService(apiClient, &http.Client{Timeout: c.RequestTimeout}, c.PartConcurrency)

	return &App{config: c, drive: ds, out: os.Stdout, closer: apiClient}, nil
}

// Run executes one command and closes the connection.
func (a *App) Run(ctx context.Context, args []string) error {
	if a.closer != nil {
		defer a.closer.Close()
	}

	if a.config.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.config.RequestTimeout)
		defer cancel()
	}

	return a.dispatch(ctx, args)
}

func formatDuration(d time.Duration) string {
	return d.Round(time.Millisecond).String()
}
