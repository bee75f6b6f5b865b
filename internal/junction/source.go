package junction

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// Logger defines the logging interface used by Resolve.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

// Source says where Resolve found the catalogue.
type Source string

const (
	SourceFile    Source = "file"
	SourceStore   Source = "store"
	SourceBuiltin Source = "builtin"
)

// Resolve picks the catalogue to run with:
//  1. the YAML file at path, if it exists; it is saved to repo
//  2. otherwise the catalogue stored in repo
//  3. otherwise DefaultCatalogue, which is also saved to repo
//
// repo may be nil, in which case only the file and the built-in catalogue
// are considered.
func Resolve(ctx context.Context, path string, repo Repository, logger Logger) (*Table, Source, error) {
	cat, src, err := resolveCatalogue(ctx, path, repo)
	if err != nil {
		return nil, "", err
	}

	if repo != nil && src != SourceStore {
		if err := repo.Save(ctx, cat); err != nil {
			return nil, "", fmt.Errorf("storing catalogue: %w", err)
		}
	}

	table, err := NewTable(cat)
	if err != nil {
		return nil, "", err
	}
	if logger != nil {
		logger.Info("junction catalogue loaded",
			"source", string(src),
			"junctions", len(cat.Junctions),
			"corridors", len(cat.Corridors),
			"vehicle_types", len(cat.VehicleTypes),
		)
		if src == SourceBuiltin {
			logger.Warn("no junction catalogue configured, using built-in network", "path", path)
		}
	}
	return table, src, nil
}

func resolveCatalogue(ctx context.Context, path string, repo Repository) (*Catalogue, Source, error) {
	if path != "" {
		cat, err := LoadCatalogue(path)
		switch {
		case err == nil:
			return cat, SourceFile, nil
		case !errors.Is(err, os.ErrNotExist):
			return nil, "", err
		}
	}

	if repo != nil {
		cat, err := repo.Load(ctx)
		switch {
		case err == nil:
			return cat, SourceStore, nil
		case !errors.Is(err, ErrEmptyStore):
			return nil, "", fmt.Errorf("loading stored catalogue: %w", err)
		}
	}

	return DefaultCatalogue(), SourceBuiltin, nil
}
