package detector

import (
	"sync"
	"time"

	"github.com/roadpulse/roadpulse-backend-go/internal/models"
)

// CachedPositionProvider holds the last fix pushed by the platform location
// stream. Reads never block; a stale or absent fix simply reports no position.
type CachedPositionProvider struct {
	mu     sync.RWMutex
	pos    models.Position
	hasFix bool
	maxAge time.Duration
	now    func() time.Time
}

// NewCachedPositionProvider creates a provider that considers fixes older
// than maxAge unusable. maxAge <= 0 disables the staleness check.
func NewCachedPositionProvider(maxAge time.Duration) *CachedPositionProvider {
	return &CachedPositionProvider{maxAge: maxAge, now: time.Now}
}

// Update stores a new fix from the location stream.
func (p *CachedPositionProvider) Update(pos models.Position) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pos = pos
	p.hasFix = true
}

// Clear drops the cached fix, e.g. when location permission is revoked.
func (p *CachedPositionProvider) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hasFix = false
}

// Current returns the cached fix, if fresh enough.
func (p *CachedPositionProvider) Current() (models.Position, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.hasFix {
		return models.Position{}, false
	}
	if p.maxAge > 0 && p.now().Sub(p.pos.Timestamp) > p.maxAge {
		return models.Position{}, false
	}
	return p.pos, true
}
