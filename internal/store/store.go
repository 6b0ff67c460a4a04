// Package store persists registrants. The backend is chosen from the
// connection string scheme.
package store

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/irrelevantclub/toolkit-backend/internal/models"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate key")
)

// UserStore is what the registration flow needs from persistence.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	// Insert stores u and returns the store-assigned identifier. A second
	// record with the same email fails with ErrDuplicate.
	Insert(ctx context.Context, u *models.User) (string, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// LogSink is implemented by stores that can keep system logs.
type LogSink interface {
	WriteLogs(ctx context.Context, entries []models.SystemLog) error
	PruneLogs(ctx context.Context, before time.Time) (int64, error)
}

// Open connects to the store addressed by rawURL.
func Open(ctx context.Context, rawURL string) (UserStore, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid database url: %w", err)
	}

	switch u.Scheme {
	case "mongodb", "mongodb+srv":
		return OpenMongo(ctx, rawURL)
	case "postgres", "postgresql":
		return OpenPostgres(rawURL)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported database scheme %q", u.Scheme)
	}
}

// copyExtra returns a shallow copy so stored documents never alias caller maps.
func copyExtra(m map[string]any) map[string]any {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
