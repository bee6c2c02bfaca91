//go:build integration

package s3

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/sqlpeek/sqlpeek/internal/storage"
)

func TestExportUploadAgainstMinIO(t *testing.T) {
	endpoint := envOr("SQLPEEK_TEST_S3_ENDPOINT", "")
	if endpoint == "" {
		t.Skip("SQLPEEK_TEST_S3_ENDPOINT is not set")
	}

	cfg := Config{
		Endpoint:         endpoint,
		Region:           envOr("SQLPEEK_TEST_S3_REGION", "us-east-1"),
		Bucket:           envOr("SQLPEEK_TEST_S3_BUCKET", "sqlpeek-it"),
		AccessKeyID:      envOr("SQLPEEK_TEST_S3_ACCESS_KEY", "minio"),
		SecretAccessKey:  envOr("SQLPEEK_TEST_S3_SECRET_KEY", "miniostorage"),
		Prefix:           "integration-tests",
		AutoCreateBucket: true,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	store, err := New(ctx, cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := store.Ping(ctx); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}

	key, err := storage.BuildExportPath("it", "query_results_2026-02-19.csv", time.Now())
	if err != nil {
		t.Fatalf("BuildExportPath() error = %v", err)
	}
	payload := []byte("id,name\n1,a\n")
	if _, err := store.Put(ctx, key, bytes.NewReader(payload), int64(len(payload)), storage.PutOptions{ContentType: "text/csv"}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	stat, err := store.Stat(ctx, key)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if stat.Size != int64(len(payload)) {
		t.Fatalf("Stat().Size = %d, want %d", stat.Size, len(payload))
	}

	if _, err := store.Stat(ctx, "exports/never-written.csv"); !errors.Is(err, storage.ErrObjectNotFound) {
		t.Fatalf("Stat() missing error = %v, want ErrObjectNotFound", err)
	}
}

func envOr(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}
