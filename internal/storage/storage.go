package storage

import (
	"context"
	"fmt"
	"path"
	"strings"

	"podflow/internal/config"
	"podflow/internal/services"
	"podflow/internal/stage"
	"podflow/internal/textnorm"
)

// Content types recorded with uploaded objects.
const (
	ContentTypeText  = "text/plain; charset=utf-8"
	ContentTypeAudio = "audio/mpeg"
)

// ObjectStore reads and writes step artifacts.
type ObjectStore interface {
	// Put stores data at path and returns the object's URI.
	Put(ctx context.Context, path string, data []byte, contentType string) (string, error)
	// Get returns the object stored at path.
	Get(ctx context.Context, path string) ([]byte, error)
	// Latest returns the most recently created object under prefix whose
	// name ends with suffix. An empty suffix matches every object.
	Latest(ctx context.Context, prefix, suffix string) (string, bool, error)
	HealthCheck(ctx context.Context) stage.Health
}

// Open returns the backend selected by cfg.Storage.Backend.
func Open(ctx context.Context, cfg *config.Config) (ObjectStore, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "storage", "open", "configuration unavailable", nil)
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Storage.Backend)) {
	case config.StorageLocal:
		return NewLocal(cfg.Storage.LocalRoot)
	case config.StorageGCS:
		return NewGCS(ctx, cfg.Storage.Bucket, cfg.Storage.CredentialsFile)
	default:
		return nil, services.Wrap(services.ErrConfiguration, "storage", "open",
			fmt.Sprintf("unknown storage backend %q", cfg.Storage.Backend), nil)
	}
}

// Join builds an object path from a location prefix and a file name.
func Join(prefix, name string) string {
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	name = strings.TrimLeft(name, "/")
	if prefix == "" {
		return name
	}
	return path.Join(prefix, name)
}

// PutText normalizes text and stores it as a UTF-8 text object.
func PutText(ctx context.Context, store ObjectStore, objectPath, text string) (string, error) {
	return store.Put(ctx, objectPath, []byte(textnorm.Normalize(text)), ContentTypeText)
}

// GetText reads a text object and normalizes it.
func GetText(ctx context.Context, store ObjectStore, objectPath string) (string, error) {
	data, err := store.Get(ctx, objectPath)
	if err != nil {
		return "", err
	}
	return textnorm.Normalize(string(data)), nil
}

// LatestPrefix turns a location path into a listing prefix that only matches
// objects inside the folder.
func LatestPrefix(locationPath string) string {
	trimmed := strings.Trim(strings.TrimSpace(locationPath), "/")
	if trimmed == "" {
		return ""
	}
	return trimmed + "/"
}

func isPlaceholder(name string) bool {
	return name == "" || strings.HasSuffix(name, "/")
}

func matchesSuffix(name, suffix string) bool {
	if suffix == "" {
		return true
	}
	return strings.HasSuffix(strings.ToLower(name), strings.ToLower(suffix))
}
