// Package testutil starts PostgreSQL and MinIO containers for integration tests.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/testcontainers/testcontainers-go"
	tcminio "github.com/testcontainers/testcontainers-go/modules/minio"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/ConfabulousDev/chat-insights/internal/sessionstore"
	"github.com/ConfabulousDev/chat-insights/internal/storage"
)

const (
	minioUser   = "minioadmin"
	minioPass   = "minioadmin"
	TestBucket  = "chat-insights-test"
	startupWait = 60 * time.Second
)

// SkipIfShort skips integration tests under `go test -short`.
func SkipIfShort(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
}

// SetupPostgres starts PostgreSQL, applies the schema and returns an open
// store. The container is terminated when the test finishes.
func SetupPostgres(t *testing.T) *sessionstore.SQLStore {
	t.Helper()
	SkipIfShort(t)
	ctx := context.Background()

	t.Log("Starting PostgreSQL container...")
	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("chat_insights_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(startupWait)),
	)
	if err != nil {
		t.Fatalf("Failed to start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("Warning: failed to terminate postgres container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("Failed to get postgres connection string: %v", err)
	}
	if err := sessionstore.Migrate(sessionstore.DriverPostgres, dsn); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	store, err := sessionstore.Open(ctx, sessionstore.DriverPostgres, dsn)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

// SetupMinio starts MinIO, creates TestBucket and returns a client for it.
func SetupMinio(t *testing.T) *storage.S3Storage {
	t.Helper()
	SkipIfShort(t)
	ctx := context.Background()

	t.Log("Starting MinIO container...")
	container, err := tcminio.Run(ctx,
		"minio/minio:latest",
		tcminio.WithUsername(minioUser),
		tcminio.WithPassword(minioPass),
	)
	if err != nil {
		t.Fatalf("Failed to start minio container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("Warning: failed to terminate minio container: %v", err)
		}
	})

	endpoint, err := container.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("Failed to get minio endpoint: %v", err)
	}

	admin, err := minio.New(endpoint, &minio.Options{Creds: credentials.NewStaticV4(minioUser, minioPass, "")})
	if err != nil {
		t.Fatalf("Failed to create minio client: %v", err)
	}

	// MinIO needs a moment after the container reports ready.
	const maxRetries = 10
	for i := range maxRetries {
		err = admin.MakeBucket(ctx, TestBucket, minio.MakeBucketOptions{})
		if err == nil {
			break
		}
		if i == maxRetries-1 {
			t.Fatalf("Failed to create bucket after %d retries: %v", maxRetries, err)
		}
		time.Sleep(500 * time.Millisecond)
	}

	s3, err := storage.NewS3Storage(ctx, storage.S3Config{
		Endpoint:        endpoint,
		AccessKeyID:     minioUser,
		SecretAccessKey: minioPass,
		BucketName:      TestBucket,
	})
	if err != nil {
		t.Fatalf("Failed to create S3 storage: %v", err)
	}
	return s3
}
