package identity

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os/exec"
	"strings"

	errs "tmscraper/pkg/errors"
	"tmscraper/pkg/logger"
)

// RunFunc executes an external command and returns its combined output
type RunFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRun(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// CommandRotator reconnects a VPN client to a randomly chosen country
type CommandRotator struct {
	binary    string
	countries []string
	run       RunFunc
	pick      func(n int) int
	logger    logger.Logger
}

// CommandOption configures a CommandRotator
type CommandOption func(*CommandRotator)

// WithBinary overrides the VPN client executable
func WithBinary(name string) CommandOption {
	return func(r *CommandRotator) {
		r.binary = name
	}
}

// WithRunner replaces command execution
func WithRunner(run RunFunc) CommandOption {
	return func(r *CommandRotator) {
		r.run = run
	}
}

// WithPicker replaces the random country choice
func WithPicker(pick func(n int) int) CommandOption {
	return func(r *CommandRotator) {
		r.pick = pick
	}
}

// WithLogger sets the logger
func WithLogger(l logger.Logger) CommandOption {
	return func(r *CommandRotator) {
		r.logger = l
	}
}

// NewCommandRotator creates a rotator driving the nordvpn CLI
func NewCommandRotator(countries []string, opts ...CommandOption) *CommandRotator {
	r := &CommandRotator{
		binary:    "nordvpn",
		countries: countries,
		run:       execRun,
		pick:      rand.IntN,
		logger:    logger.GetLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *CommandRotator) Name() string { return ProviderNordVPN }

// Rotate disconnects and reconnects to a random country
func (r *CommandRotator) Rotate(ctx context.Context) error {
	if len(r.countries) == 0 {
		return errs.New(errs.ErrorTypeRotationUnavailable, "no countries configured", 0, nil)
	}

	// A failed disconnect usually means we were not connected
	if out, err := r.run(ctx, r.binary, "disconnect"); err != nil {
		r.logger.WithError(err).WithField("output", strings.TrimSpace(string(out))).Debug("VPN disconnect failed")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	country := strings.ReplaceAll(r.countries[r.pick(len(r.countries))], " ", "_")
	out, err := r.run(ctx, r.binary, "connect", country)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return errs.New(errs.ErrorTypeRotationUnavailable,
			fmt.Sprintf("connect to %s failed: %s", country, strings.TrimSpace(string(out))), 0, err)
	}

	r.logger.WithField("country", country).Info("VPN reconnected")
	return nil
}
