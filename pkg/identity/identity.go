package identity

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"tmscraper/pkg/config"
	errs "tmscraper/pkg/errors"
	"tmscraper/pkg/logger"
)

// Provider names accepted in identity.provider
const (
	ProviderNone    = "none"
	ProviderNordVPN = "nordvpn"
	ProviderTor     = "tor"
)

// Rotator changes the apparent network origin of subsequent requests
type Rotator interface {
	// Rotate performs one rotation. It returns an error matching
	// errs.ErrRotationUnavailable when no rotation could be made.
	Rotate(ctx context.Context) error
	Name() string
}

// Nop is the rotator used when no provider is configured. Rotation always
// succeeds so the crawl falls back to a plain delayed retry.
type Nop struct{}

func (Nop) Rotate(ctx context.Context) error { return ctx.Err() }

func (Nop) Name() string { return ProviderNone }

// Setup is what a provider contributes to the crawl: the rotator, the HTTP
// client requests must use to benefit from it, and a cleanup hook.
type Setup struct {
	Rotator Rotator
	// HTTPClient is nil when the provider does not change transport
	HTTPClient *http.Client
	Close      func() error
}

// New builds the provider selected in cfg
func New(ctx context.Context, cfg *config.IdentityConfig, log logger.Logger) (*Setup, error) {
	if log == nil {
		log = logger.GetLogger()
	}
	log = log.WithField("component", "identity")

	switch strings.ToLower(cfg.Provider) {
	case "", ProviderNone:
		return &Setup{Rotator: Nop{}, Close: func() error { return nil }}, nil

	case ProviderNordVPN:
		return &Setup{
			Rotator: NewCommandRotator(cfg.Countries, WithLogger(log)),
			Close:   func() error { return nil },
		}, nil

	case ProviderTor:
		return newTorSetup(ctx, &cfg.Tor, log)

	default:
		return nil, errs.New(errs.ErrorTypeRotationUnavailable,
			fmt.Sprintf("unknown identity provider %q", cfg.Provider), 0, nil)
	}
}

func newTorSetup(ctx context.Context, cfg *config.TorConfig, log logger.Logger) (*Setup, error) {
	if cfg.Embedded {
		embedded := NewEmbeddedTor(cfg.StartupTimeout)
		log.Info("Starting embedded Tor daemon, this can take a few minutes")
		if err := embedded.Start(ctx); err != nil {
			return nil, err
		}
		log.WithFields(map[string]interface{}{
			"socks":   embedded.SocksAddr(),
			"control": embedded.ControlAddr(),
		}).Info("Embedded Tor daemon started")

		client, err := embedded.HTTPClient()
		if err != nil {
			_ = embedded.Stop()
			return nil, err
		}
		rotator := NewTorRotator(embedded.ControlAddr(), embedded.ControlAuth(), client, log)
		return &Setup{Rotator: rotator, HTTPClient: client, Close: embedded.Stop}, nil
	}

	client, err := NewTorHTTPClient(cfg.ProxyAddress)
	if err != nil {
		return nil, err
	}
	auth := ControlAuth{Password: cfg.ControlPassword, CookieFile: cfg.CookieFile}
	rotator := NewTorRotator(cfg.ControlAddress, auth, client, log)
	return &Setup{Rotator: rotator, HTTPClient: client, Close: func() error { return nil }}, nil
}
