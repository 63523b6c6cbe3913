package main

import (
	"context"
	"errors"
	"fmt"

	"tmscraper/pkg/checkpoint"
	"tmscraper/pkg/config"
	"tmscraper/pkg/index"
	"tmscraper/pkg/logger"
	"tmscraper/pkg/metadata"
	"tmscraper/pkg/queryspace"
	"tmscraper/pkg/storage"
)

// loadConfig resolves configuration with the global flags folded in
func loadConfig(flags map[string]interface{}) (*config.Config, error) {
	if flags == nil {
		flags = make(map[string]interface{})
	}
	if logLevel != "" {
		flags["log-level"] = logLevel
	}
	return config.Load(configFile, flags)
}

// buildQueries enumerates the configured query space
func buildQueries(cfg *config.Config) []queryspace.Query {
	base := queryspace.Base{
		PageSize: cfg.API.PageSize,
		Criteria: cfg.Query.Criteria,
		Offices:  cfg.Query.Offices,
		Fields:   cfg.Query.Fields,
	}
	return queryspace.Enumerate(base, cfg.Query.Statuses, cfg.Query.NiceClasses, cfg.Query.Types)
}

// stores bundles the image directory and the two durable state stores
type stores struct {
	images  *storage.Manager
	index   *index.Index
	cursors *checkpoint.Manager
}

func openStores(cfg *config.Config) (*stores, error) {
	images, err := storage.NewManager(cfg.Output.BaseDirectory)
	if err != nil {
		return nil, fmt.Errorf("failed to open image store: %w", err)
	}

	idx, err := index.Open(cfg.StateDir())
	if err != nil {
		return nil, err
	}

	cursors, err := checkpoint.NewManager(cfg.StateDir())
	if err != nil {
		return nil, errors.Join(err, idx.Close())
	}

	return &stores{images: images, index: idx, cursors: cursors}, nil
}

func (s *stores) Close() error {
	return s.index.Close()
}

// reconcile clears interrupted writes and brings the index in line with the
// image directory. It returns the number of entries added.
func (s *stores) reconcile(ctx context.Context, log logger.Logger) (int, error) {
	if n, err := s.images.CleanTemp(); err != nil {
		log.WithError(err).Warn("Failed to clean temporary files")
	} else if n > 0 {
		log.WithField("count", n).Info("Removed interrupted downloads")
	}

	if n, err := metadata.CleanOrphaned(s.images.GetOutputDir()); err != nil {
		log.WithError(err).Warn("Failed to clean orphaned metadata")
	} else if n > 0 {
		log.WithField("count", n).Info("Removed orphaned metadata files")
	}

	names, err := s.images.ListImageFilenames()
	if err != nil {
		return 0, fmt.Errorf("failed to list images: %w", err)
	}

	inserted, err := s.index.Reconcile(ctx, names)
	if err != nil {
		return 0, fmt.Errorf("failed to reconcile index: %w", err)
	}

	log.WithFields(map[string]interface{}{
		"files":    len(names),
		"inserted": inserted,
	}).Info("Index reconciled with image directory")

	return inserted, nil
}
