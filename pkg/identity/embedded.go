package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/nao1215/tornago"
)

// cookieFileName is where tor writes its control cookie inside the data dir
const cookieFileName = "control_auth_cookie"

// EmbeddedTor runs a private Tor daemon for the lifetime of the crawl.
// Bootstrapping takes one to three minutes.
type EmbeddedTor struct {
	process        *tornago.TorProcess
	client         *tornago.Client
	startupTimeout time.Duration
}

// NewEmbeddedTor creates the manager; call Start to launch the daemon
func NewEmbeddedTor(startupTimeout time.Duration) *EmbeddedTor {
	if startupTimeout <= 0 {
		startupTimeout = 3 * time.Minute
	}
	return &EmbeddedTor{startupTimeout: startupTimeout}
}

// Start launches the daemon on OS-assigned ports and waits for bootstrap
func (e *EmbeddedTor) Start(ctx context.Context) error {
	launchCfg, err := tornago.NewTorLaunchConfig(
		tornago.WithTorSocksAddr(":0"),
		tornago.WithTorControlAddr(":0"),
		tornago.WithTorStartupTimeout(e.startupTimeout),
	)
	if err != nil {
		return fmt.Errorf("failed to create Tor launch config: %w", err)
	}

	process, err := tornago.StartTorDaemon(launchCfg)
	if err != nil {
		return fmt.Errorf("failed to start embedded Tor daemon: %w", err)
	}

	if err := ctx.Err(); err != nil {
		_ = process.Stop()
		return err
	}

	e.process = process
	return nil
}

// HTTPClient returns an HTTP client routed through the daemon's SOCKS port
func (e *EmbeddedTor) HTTPClient() (*http.Client, error) {
	if e.process == nil {
		return nil, errors.New("embedded Tor daemon is not running")
	}
	if e.client == nil {
		clientCfg, err := tornago.NewClientConfig(
			tornago.WithClientSocksAddr(e.process.SocksAddr()),
			tornago.WithClientRequestTimeout(e.startupTimeout),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create Tor client config: %w", err)
		}
		client, err := tornago.NewClient(clientCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create Tor client: %w", err)
		}
		e.client = client
	}
	return e.client.HTTP(), nil
}

// ControlAuth returns cookie authentication for the daemon's control port
func (e *EmbeddedTor) ControlAuth() ControlAuth {
	if e.process == nil {
		return ControlAuth{}
	}
	return ControlAuth{CookieFile: filepath.Join(e.process.DataDir(), cookieFileName)}
}

// SocksAddr returns the SOCKS5 address, empty when not running
func (e *EmbeddedTor) SocksAddr() string {
	if e.process == nil {
		return ""
	}
	return e.process.SocksAddr()
}

// ControlAddr returns the control port address, empty when not running
func (e *EmbeddedTor) ControlAddr() string {
	if e.process == nil {
		return ""
	}
	return e.process.ControlAddr()
}

// Stop shuts the daemon down. Safe to call more than once.
func (e *EmbeddedTor) Stop() error {
	if e.client != nil {
		e.client.Close()
		e.client = nil
	}
	if e.process == nil {
		return nil
	}
	err := e.process.Stop()
	e.process = nil
	return err
}
