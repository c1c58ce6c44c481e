package storage

import (
	"context"
	"fmt"
	"io"

	"yanfarm/config"
	"yanfarm/logger"

	"go.uber.org/zap"
)

// ProofStore keeps uploaded screenshots and returns the name under which
// an object was stored.
type ProofStore interface {
	Save(ctx context.Context, name string, r io.Reader, size int64, contentType string) (string, error)
	URL(ctx context.Context, name string) (string, error)
	Delete(ctx context.Context, name string) error
}

// Proofs is the store used by the HTTP handlers.
var Proofs ProofStore

func Init(c config.StorageConfig) error {
	switch c.Driver {
	case "r2":
		s, err := NewR2Store(c)
		if err != nil {
			return err
		}
		Proofs = s
	case "", "local":
		s, err := NewLocalStore(c.Dir)
		if err != nil {
			return err
		}
		Proofs = s
	default:
		return fmt.Errorf("unknown storage driver %q", c.Driver)
	}
	return nil
}

// Discard removes objects that were stored for a request which then failed.
// Errors are logged, the caller has already decided the outcome.
func Discard(ctx context.Context, store ProofStore, names []string) {
	if store == nil {
		return
	}
	for _, name := range names {
		if name == "" {
			continue
		}
		if err := store.Delete(context.WithoutCancel(ctx), name); err != nil {
			logger.Warn("failed to remove orphaned upload", zap.String("name", name), zap.Error(err))
		}
	}
}
