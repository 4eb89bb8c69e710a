package repository

import (
	"context"

	"github.com/keshsri/tinylinker/internal/domain"
)

// LinkRepository defines the contract for short link data access.
// Backend failures are reported wrapped in domain.ErrStorageUnavailable.
type LinkRepository interface {
	// Get returns the link for code, or domain.ErrURLNotFound
	Get(ctx context.Context, code string) (*domain.ShortLink, error)

	// Create stores link only if its code is unused.
	// A conflict returns domain.ErrAliasTaken and leaves the stored record untouched.
	Create(ctx context.Context, link *domain.ShortLink) error

	// IncrementClicks atomically adds delta to the click counter, stamps
	// LastClickedAt with at and returns the new counter value.
	// Returns domain.ErrURLNotFound when no record exists.
	IncrementClicks(ctx context.Context, code string, delta int64, at int64) (int64, error)
}

// ClickRepository stores click events. Events are never updated.
type ClickRepository interface {
	// Put inserts a click event
	Put(ctx context.Context, event *domain.ClickEvent) error

	// QueryByCode returns the events of code with Timestamp >= since,
	// oldest first. since <= 0 returns every stored event.
	QueryByCode(ctx context.Context, code string, since int64) ([]domain.ClickEvent, error)
}

// Store bundles the repositories of one backend
type Store struct {
	Links  LinkRepository
	Clicks ClickRepository
	Close  func() error
}
