// Package memory is an in-process store for development and tests.
// Data is lost when the process exits.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/keshsri/tinylinker/internal/domain"
	"github.com/keshsri/tinylinker/internal/repository"
)

type linkRepository struct {
	mu    sync.RWMutex
	links map[string]domain.ShortLink
}

// NewLinkRepository creates an empty in-memory link repository
func NewLinkRepository() repository.LinkRepository {
	return &linkRepository{links: make(map[string]domain.ShortLink)}
}

func (r *linkRepository) Get(_ context.Context, code string) (*domain.ShortLink, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	link, ok := r.links[code]
	if !ok {
		return nil, domain.ErrURLNotFound
	}
	return cloneLink(link), nil
}

func (r *linkRepository) Create(_ context.Context, link *domain.ShortLink) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.links[link.Code]; exists {
		return domain.ErrAliasTaken
	}
	r.links[link.Code] = *cloneLink(*link)
	return nil
}

func (r *linkRepository) IncrementClicks(_ context.Context, code string, delta int64, at int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	link, ok := r.links[code]
	if !ok {
		return 0, domain.ErrURLNotFound
	}
	link.ClickCount += delta
	link.LastClickedAt = &at
	r.links[code] = link
	return link.ClickCount, nil
}

// cloneLink copies the pointer fields so callers never share state with the map
func cloneLink(link domain.ShortLink) *domain.ShortLink {
	if link.ExpiresAt != nil {
		v := *link.ExpiresAt
		link.ExpiresAt = &v
	}
	if link.LastClickedAt != nil {
		v := *link.LastClickedAt
		link.LastClickedAt = &v
	}
	return &link
}

type clickRepository struct {
	mu     sync.RWMutex
	events map[string][]domain.ClickEvent
}

// NewClickRepository creates an empty in-memory click repository
func NewClickRepository() repository.ClickRepository {
	return &clickRepository{events: make(map[string][]domain.ClickEvent)}
}

func (r *clickRepository) Put(_ context.Context, event *domain.ClickEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events[event.Code] = append(r.events[event.Code], *event)
	return nil
}

func (r *clickRepository) QueryByCode(_ context.Context, code string, since int64) ([]domain.ClickEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.ClickEvent, 0, len(r.events[code]))
	for _, e := range r.events[code] {
		if since > 0 && e.Timestamp < since {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	return out, nil
}

// NewStore returns an empty in-memory store
func NewStore() *repository.Store {
	return &repository.Store{
		Links:  NewLinkRepository(),
		Clicks: NewClickRepository(),
		Close:  func() error { return nil },
	}
}
