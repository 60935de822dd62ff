package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/khiwniti/geofleet/internal/core/domain"
	"github.com/khiwniti/geofleet/internal/core/ports"
)

// GeofenceService handles fence administration on top of the registry, with
// read-through caching for list and get queries. Mutations invalidate the
// affected keys so multi-instance deployments converge quickly.
type GeofenceService struct {
	registry ports.GeofenceRegistry
	cache    ports.CacheService
}

// NewGeofenceService creates a new GeofenceService. cache may be nil.
func NewGeofenceService(registry ports.GeofenceRegistry, cache ports.CacheService) *GeofenceService {
	return &GeofenceService{registry: registry, cache: cache}
}

// Create validates and stores a new fence, assigning an id when none is
// given.
func (s *GeofenceService) Create(ctx context.Context, fence domain.Geofence) (domain.Geofence, error) {
	if fence.ID == "" {
		fence.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	fence.CreatedAt = now
	fence.UpdatedAt = now

	if err := s.registry.Upsert(fence); err != nil {
		return domain.Geofence{}, err
	}
	s.invalidate(ctx, fence.ID)
	return fence, nil
}

// Update replaces an existing fence, keeping its creation time.
func (s *GeofenceService) Update(ctx context.Context, fence domain.Geofence) (domain.Geofence, error) {
	prev, ok := s.registry.Get(fence.ID)
	if !ok {
		return domain.Geofence{}, fmt.Errorf("update geofence %q: %w", fence.ID, domain.ErrFenceNotFound)
	}
	fence.CreatedAt = prev.CreatedAt
	fence.UpdatedAt = time.Now().UTC()

	if err := s.registry.Upsert(fence); err != nil {
		return domain.Geofence{}, err
	}
	s.invalidate(ctx, fence.ID)
	return fence, nil
}

// Delete removes a fence. Vehicles currently inside drop their membership
// silently on their next report.
func (s *GeofenceService) Delete(ctx context.Context, id string) error {
	if !s.registry.Remove(id) {
		return fmt.Errorf("delete geofence %q: %w", id, domain.ErrFenceNotFound)
	}
	s.invalidate(ctx, id)
	return nil
}

// Get returns a single fence.
func (s *GeofenceService) Get(ctx context.Context, id string) (domain.Geofence, error) {
	cacheKey := "fences:id:" + id
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var fence domain.Geofence
			if err := json.Unmarshal(data, &fence); err == nil {
				return fence, nil
			}
		}
	}

	fence, ok := s.registry.Get(id)
	if !ok {
		return domain.Geofence{}, fmt.Errorf("get geofence %q: %w", id, domain.ErrFenceNotFound)
	}

	if s.cache != nil {
		if data, err := json.Marshal(fence); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, time.Minute)
		}
	}
	return fence, nil
}

// List returns fences sorted by id, active ones only unless includeInactive
// is set.
func (s *GeofenceService) List(ctx context.Context, includeInactive bool) ([]domain.Geofence, error) {
	cacheKey := fmt.Sprintf("fences:list:%t", includeInactive)
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var fences []domain.Geofence
			if err := json.Unmarshal(data, &fences); err == nil {
				return fences, nil
			}
		}
	}

	var fences []domain.Geofence
	if includeInactive {
		fences = s.registry.List()
	} else {
		fences = s.registry.Snapshot()
	}

	// Fence sets are small and mutate rarely; a short TTL keeps admin
	// reads cheap without delaying visibility much.
	if s.cache != nil {
		if data, err := json.Marshal(fences); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, 30*time.Second)
		}
	}
	return fences, nil
}

func (s *GeofenceService) invalidate(ctx context.Context, id string) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Delete(ctx, "fences:id:"+id)
	_ = s.cache.Delete(ctx, "fences:list:true")
	_ = s.cache.Delete(ctx, "fences:list:false")
}
