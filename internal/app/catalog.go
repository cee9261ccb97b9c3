package app

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"tourguide/internal/domain"
)

// CatalogService is the read side over the session's catalog: filtering,
// itinerary stop resolution, and the distinct-value sets that feed the
// district/category dropdowns. The catalog is immutable after construction,
// so every read is a pure function of (catalog, criteria).
type CatalogService struct {
	catalog  domain.Catalog
	cache    domain.Cache
	cacheTTL time.Duration
	byID     map[int64]int // place id -> first index in catalog.Places
}

func NewCatalogService(c domain.Catalog, cache domain.Cache, ttl time.Duration) *CatalogService {
	idx := make(map[int64]int, len(c.Places))
	for i, p := range c.Places {
		if _, seen := idx[p.ID]; !seen {
			idx[p.ID] = i
		}
	}
	return &CatalogService{catalog: c, cache: cache, cacheTTL: ttl, byID: idx}
}

func (s *CatalogService) Places() []domain.Place { return s.catalog.Places }

func (s *CatalogService) Itineraries() []domain.Itinerary { return s.catalog.Itineraries }

func (s *CatalogService) Itinerary(id int64) (domain.Itinerary, error) {
	for _, it := range s.catalog.Itineraries {
		if it.ID == id {
			return it, nil
		}
	}
	return domain.Itinerary{}, domain.ErrNotFound
}

// matches is the three-part filter predicate. District and category compare by
// exact string equality against the literal data; only the free-text query is
// case-folded, and it searches name plus tips, never the description.
func matches(p domain.Place, c domain.FilterCriteria) bool {
	if c.District != "" && c.District != domain.FilterAll && p.District != c.District {
		return false
	}
	if c.Category != "" && c.Category != domain.FilterAll && p.Category != c.Category {
		return false
	}
	if c.Query != "" {
		hay := strings.ToLower(p.Name + " " + p.Tips)
		if !strings.Contains(hay, strings.ToLower(c.Query)) {
			return false
		}
	}
	return true
}

// FilterPlaces returns the order-preserving subsequence of the catalog
// matching the criteria. Results are cached per criteria key; the cached copy
// is detached from the live slice so later callers can't mutate it.
func (s *CatalogService) FilterPlaces(ctx context.Context, c domain.FilterCriteria) []domain.Place {
	key := criteriaKey(c)
	if s.cache != nil {
		var cached []domain.Place
		if ok, _ := s.cache.Get(ctx, key, &cached); ok {
			return cached
		}
	}

	out := make([]domain.Place, 0, len(s.catalog.Places))
	for _, p := range s.catalog.Places {
		if matches(p, c) {
			out = append(out, p)
		}
	}

	if s.cache != nil {
		cp := make([]domain.Place, len(out))
		copy(cp, out)
		_ = s.cache.Set(ctx, key, cp, int(s.cacheTTL.Seconds()))
	}
	return out
}

// ResolveStops maps each stop id, in stored order, to its place. A stop id
// with no matching place is dropped; a duplicate id resolves once per
// occurrence.
func (s *CatalogService) ResolveStops(it domain.Itinerary) []domain.Place {
	out := make([]domain.Place, 0, len(it.Stops))
	for _, id := range it.Stops {
		if i, ok := s.byID[id]; ok {
			out = append(out, s.catalog.Places[i])
		}
	}
	return out
}

// Districts returns the sentinel followed by every distinct literal district
// value, sorted. No casing normalization: "Kathmandu" and "kathmandu" are two
// entries if the data says so.
func (s *CatalogService) Districts() []string {
	return distinct(s.catalog.Places, func(p domain.Place) string { return p.District })
}

func (s *CatalogService) Categories() []string {
	return distinct(s.catalog.Places, func(p domain.Place) string { return p.Category })
}

func distinct(places []domain.Place, field func(domain.Place) string) []string {
	seen := map[string]struct{}{}
	var vals []string
	for _, p := range places {
		v := field(p)
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		vals = append(vals, v)
	}
	sort.Strings(vals)
	return append([]string{domain.FilterAll}, vals...)
}

func criteriaKey(c domain.FilterCriteria) string {
	d, cat := c.District, c.Category
	if d == "" {
		d = domain.FilterAll
	}
	if cat == "" {
		cat = domain.FilterAll
	}
	return fmt.Sprintf("places:%s|%s|%s", d, cat, strings.ToLower(c.Query))
}
