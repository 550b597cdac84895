package sessionstore

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/ConfabulousDev/chat-insights/internal/logger"
	"github.com/ConfabulousDev/chat-insights/internal/models"
	"github.com/ConfabulousDev/chat-insights/internal/storage"
)

// maxConcurrentDownloads bounds parallel object fetches.
const maxConcurrentDownloads = 8

// ObjectReader is the subset of storage.S3Storage the S3 source needs.
type ObjectReader interface {
	List(ctx context.Context, prefix string) ([]storage.ObjectInfo, error)
	Download(ctx context.Context, key string) ([]byte, error)
}

// S3Source reads session exports (.json, .yaml, optionally .zst) under a
// prefix in object storage.
type S3Source struct {
	Store  ObjectReader
	Prefix string
}

// ListSessions downloads every export under the prefix and filters the
// combined set. Objects with other extensions are skipped.
func (s *S3Source) ListSessions(ctx context.Context, q Query) ([]models.ChatSession, error) {
	objects, err := s.Store.List(ctx, s.Prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list session exports: %w", err)
	}

	var keys []string
	for _, obj := range objects {
		if _, ok := FormatForPath(obj.Key); ok {
			keys = append(keys, obj.Key)
		} else {
			logger.Ctx(ctx).Debug("skipping non-export object", "key", obj.Key)
		}
	}

	var (
		mu      sync.Mutex
		byKey   = make(map[string][]models.ChatSession, len(keys))
		g, gctx = errgroup.WithContext(ctx)
	)
	g.SetLimit(maxConcurrentDownloads)
	for _, key := range keys {
		g.Go(func() error {
			data, err := s.Store.Download(gctx, key)
			if err != nil {
				return fmt.Errorf("failed to download %s: %w", key, err)
			}
			sessions, err := decodeExport(key, data)
			if err != nil {
				return err
			}
			mu.Lock()
			byKey[key] = sessions
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Key order keeps duplicate resolution deterministic: first key wins.
	seen := map[string]bool{}
	var all []models.ChatSession
	for _, key := range keys {
		for _, cs := range byKey[key] {
			if seen[cs.ID] {
				continue
			}
			seen[cs.ID] = true
			all = append(all, cs)
		}
	}
	return filterSessions(all, q), nil
}
