package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	storagev1 "google.golang.org/api/storage/v1"

	"podflow/internal/services"
	"podflow/internal/stage"
)

const publicObjectBase = "https://storage.googleapis.com"

// GCS stores objects in a Google Cloud Storage bucket.
type GCS struct {
	bucket string
	svc    *storagev1.Service
}

// NewGCS connects to bucket. credentialsFile may be empty to use application
// default credentials. Extra client options are appended, which lets tests
// point the client at a local server.
func NewGCS(ctx context.Context, bucket, credentialsFile string, opts ...option.ClientOption) (*GCS, error) {
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return nil, services.Wrap(services.ErrConfiguration, "storage", "open gcs", "storage.bucket is empty", nil)
	}
	clientOpts := make([]option.ClientOption, 0, len(opts)+1)
	if file := strings.TrimSpace(credentialsFile); file != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(file))
	}
	clientOpts = append(clientOpts, opts...)
	svc, err := storagev1.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "storage", "open gcs", "create storage client", err)
	}
	return &GCS{bucket: bucket, svc: svc}, nil
}

// Put uploads data and returns the object's public URL.
func (g *GCS) Put(ctx context.Context, objectPath string, data []byte, contentType string) (string, error) {
	name := strings.TrimLeft(objectPath, "/")
	obj := &storagev1.Object{Name: name, ContentType: contentType}
	_, err := g.svc.Objects.Insert(g.bucket, obj).
		Media(bytes.NewReader(data), googleapi.ContentType(contentType)).
		Context(ctx).
		Do()
	if err != nil {
		return "", classifyGCSError("put", name, err)
	}
	return publicURL(g.bucket, name), nil
}

// Get downloads the object's content.
func (g *GCS) Get(ctx context.Context, objectPath string) ([]byte, error) {
	name := strings.TrimLeft(objectPath, "/")
	resp, err := g.svc.Objects.Get(g.bucket, name).Context(ctx).Download()
	if err != nil {
		return nil, classifyGCSError("get", name, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "storage", "get", name, err)
	}
	return data, nil
}

// Latest lists objects under prefix and picks the newest by creation time.
func (g *GCS) Latest(ctx context.Context, prefix, suffix string) (string, bool, error) {
	var (
		best     string
		bestTime time.Time
	)
	call := g.svc.Objects.List(g.bucket).Prefix(prefix).Fields("nextPageToken", "items(name,timeCreated)")
	err := call.Pages(ctx, func(page *storagev1.Objects) error {
		for _, item := range page.Items {
			if item == nil || isPlaceholder(item.Name) || !matchesSuffix(item.Name, suffix) {
				continue
			}
			created, err := time.Parse(time.RFC3339Nano, item.TimeCreated)
			if err != nil {
				continue
			}
			if best == "" || created.After(bestTime) {
				best, bestTime = item.Name, created
			}
		}
		return nil
	})
	if err != nil {
		return "", false, classifyGCSError("latest", prefix, err)
	}
	return best, best != "", nil
}

// HealthCheck confirms the bucket is reachable.
func (g *GCS) HealthCheck(ctx context.Context) stage.Health {
	if _, err := g.svc.Buckets.Get(g.bucket).Context(ctx).Do(); err != nil {
		return stage.Unhealthy("storage", fmt.Sprintf("bucket %s unavailable: %v", g.bucket, err))
	}
	return stage.Healthy("storage")
}

func publicURL(bucket, name string) string {
	return publicObjectBase + "/" + bucket + "/" + (&url.URL{Path: name}).EscapedPath()
}

func classifyGCSError(operation, name string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusNotFound:
			return services.Wrap(services.ErrNotFound, "storage", operation, name, err)
		case apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= 500:
			return services.Wrap(services.ErrTransient, "storage", operation, name, err)
		}
	}
	return services.Wrap(services.ErrProviderFatal, "storage", operation, name, err)
}
