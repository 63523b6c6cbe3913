package identity

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/nao1215/tornago"
	"golang.org/x/net/proxy"

	errs "tmscraper/pkg/errors"
	"tmscraper/pkg/logger"
)

const controlTimeout = 30 * time.Second

// ControlAuth holds Tor control port credentials. The cookie file wins
// when both are set; neither means the port accepts null authentication.
type ControlAuth struct {
	Password   string
	CookieFile string
}

func (a ControlAuth) toTornago() tornago.ControlAuth {
	switch {
	case a.CookieFile != "":
		return tornago.ControlAuthFromCookie(a.CookieFile)
	case a.Password != "":
		return tornago.ControlAuthFromPassword(a.Password)
	}
	return tornago.ControlAuth{}
}

// TorRotator requests a new Tor circuit through the control port
type TorRotator struct {
	controlAddr string
	auth        ControlAuth
	client      *http.Client
	logger      logger.Logger
}

// NewTorRotator creates a rotator. client, when set, has its idle
// connections dropped after each rotation so new requests use the new circuit.
func NewTorRotator(controlAddr string, auth ControlAuth, client *http.Client, log logger.Logger) *TorRotator {
	if log == nil {
		log = logger.GetLogger()
	}
	return &TorRotator{
		controlAddr: controlAddr,
		auth:        auth,
		client:      client,
		logger:      log,
	}
}

func (r *TorRotator) Name() string { return ProviderTor }

// Rotate sends SIGNAL NEWNYM
func (r *TorRotator) Rotate(ctx context.Context) error {
	if err := r.newnym(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return errs.New(errs.ErrorTypeRotationUnavailable, "tor circuit rotation failed", 0, err)
	}
	if r.client != nil {
		r.client.CloseIdleConnections()
	}
	r.logger.Debug("Tor circuit rotated")
	return nil
}

func (r *TorRotator) newnym(ctx context.Context) error {
	cc, err := tornago.NewControlClient(r.controlAddr, r.auth.toTornago(), controlTimeout)
	if err != nil {
		return err
	}
	defer cc.Close()
	return cc.NewIdentity(ctx)
}

// NewTorHTTPClient returns an HTTP client routed through a Tor SOCKS5 proxy
func NewTorHTTPClient(proxyAddress string) (*http.Client, error) {
	if _, _, err := net.SplitHostPort(proxyAddress); err != nil {
		return nil, fmt.Errorf("invalid tor proxy address %q: %w", proxyAddress, err)
	}

	dialer, err := proxy.SOCKS5("tcp", proxyAddress, nil, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
	}

	transport := &http.Transport{
		Proxy:               nil,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 100,
		IdleConnTimeout:     30 * time.Second,
	}
	if cd, ok := dialer.(proxy.ContextDialer); ok {
		transport.DialContext = cd.DialContext
	} else {
		transport.DialContext = func(_ context.Context, network, addr string) (net.Conn, error) {
			return dialer.Dial(network, addr)
		}
	}

	return &http.Client{Transport: transport}, nil
}
