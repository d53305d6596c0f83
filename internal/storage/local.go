package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"podflow/internal/fileutil"
	"podflow/internal/services"
	"podflow/internal/stage"
)

// Local stores objects as files below a root directory.
type Local struct {
	root string
}

// NewLocal returns a local backend rooted at root, creating it if needed.
func NewLocal(root string) (*Local, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, services.Wrap(services.ErrConfiguration, "storage", "open local", "storage.local_root is empty", nil)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "storage", "open local", "resolve root", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "storage", "open local", "create root", err)
	}
	return &Local{root: abs}, nil
}

// Root returns the absolute root directory.
func (l *Local) Root() string { return l.root }

// Put writes data atomically and returns a file:// URI.
func (l *Local) Put(_ context.Context, objectPath string, data []byte, _ string) (string, error) {
	full, err := l.resolve(objectPath)
	if err != nil {
		return "", err
	}
	if err := fileutil.WriteFileAtomic(full, data, 0o644); err != nil {
		return "", services.Wrap(services.ErrProviderFatal, "storage", "put", objectPath, err)
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(full)}).String(), nil
}

// Get reads the file stored at objectPath.
func (l *Local) Get(_ context.Context, objectPath string) ([]byte, error) {
	full, err := l.resolve(objectPath)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, services.Wrap(services.ErrNotFound, "storage", "get", objectPath, err)
		}
		return nil, services.Wrap(services.ErrProviderFatal, "storage", "get", objectPath, err)
	}
	return data, nil
}

// Latest walks the folder named by prefix and returns the newest file by
// modification time.
func (l *Local) Latest(_ context.Context, prefix, suffix string) (string, bool, error) {
	dir, err := l.resolve(strings.TrimRight(prefix, "/"))
	if err != nil {
		return "", false, err
	}
	var (
		bestPath string
		bestTime time.Time
	)
	walkErr := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".") || !matchesSuffix(d.Name(), suffix) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		mod := info.ModTime()
		if bestPath == "" || mod.After(bestTime) || (mod.Equal(bestTime) && p > bestPath) {
			bestPath, bestTime = p, mod
		}
		return nil
	})
	if walkErr != nil {
		if errors.Is(walkErr, fs.ErrNotExist) {
			return "", false, nil
		}
		return "", false, services.Wrap(services.ErrProviderFatal, "storage", "latest", prefix, walkErr)
	}
	if bestPath == "" {
		return "", false, nil
	}
	rel, err := filepath.Rel(l.root, bestPath)
	if err != nil {
		return "", false, services.Wrap(services.ErrProviderFatal, "storage", "latest", prefix, err)
	}
	return filepath.ToSlash(rel), true, nil
}

// HealthCheck verifies the root directory is writable.
func (l *Local) HealthCheck(context.Context) stage.Health {
	probe, err := os.CreateTemp(l.root, ".health-*")
	if err != nil {
		return stage.Unhealthy("storage", fmt.Sprintf("root %s not writable: %v", l.root, err))
	}
	name := probe.Name()
	_ = probe.Close()
	_ = os.Remove(name)
	return stage.Healthy("storage")
}

func (l *Local) resolve(objectPath string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(strings.TrimLeft(objectPath, "/")))
	if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", services.Wrap(services.ErrValidation, "storage", "resolve",
			fmt.Sprintf("object path %q escapes storage root", objectPath), nil)
	}
	if cleaned == "." {
		return l.root, nil
	}
	return filepath.Join(l.root, cleaned), nil
}
