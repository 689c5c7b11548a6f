// internal/discovery/filter.go
// Candidate Filter: turns a seeker's stored preferences plus per-request
// overrides into a CandidateQuery the proximity ranker can evaluate.

package discovery

import (
	"fmt"
	"time"
)

// FilterConfig carries the engine-level bounds the filter enforces
type FilterConfig struct {
	DefaultRadiusKM float64
	MaxRadiusKM     float64
	SkipCooldown    time.Duration
	OnlineWindow    time.Duration
	MinAge          int
	MaxAge          int
	DefaultPageSize int
	MaxPageSize     int
}

// CandidateQuery is the composed predicate evaluated against the profile
// store. Exclusion of self, liked, disliked and fresh temp-skips is keyed off
// SeekerID and SkipCutoff; the store owns the membership checks.
type CandidateQuery struct {
	SeekerID int64

	// Gender filter; empty means no gender predicate
	Gender string

	// Candidates must be born within [BirthEarliest, BirthLatest]
	BirthEarliest time.Time
	BirthLatest   time.Time

	// Temp-skip entries at or before SkipCutoff are expired and not excluded
	SkipCutoff time.Time

	// Online-only predicate
	OnlineOnly  bool
	OnlineAfter time.Time

	// Reference point and radius, filled in by the ranker
	Origin   Point
	RadiusKM float64

	Limit  int
	Offset int

	// Now anchors boost-tier evaluation so one query uses one clock reading
	Now time.Time
}

// BuildCandidateQuery validates overrides against the seeker's preferences and
// produces the predicate. Malformed bounds fail with ErrInvalidFilter; they
// are never swapped or clamped silently.
func BuildCandidateQuery(seeker *Profile, f *DiscoverFilters, now time.Time, cfg FilterConfig) (*CandidateQuery, error) {
	if f == nil {
		f = &DiscoverFilters{}
	}

	minAge := seeker.PreferredMinAge
	if f.MinAge > 0 {
		minAge = f.MinAge
	}
	maxAge := seeker.PreferredMaxAge
	if f.MaxAge > 0 {
		maxAge = f.MaxAge
	}
	if minAge == 0 {
		minAge = cfg.MinAge
	}
	if maxAge == 0 {
		maxAge = cfg.MaxAge
	}

	if minAge > maxAge {
		return nil, fmt.Errorf("%w: min age %d exceeds max age %d", ErrInvalidFilter, minAge, maxAge)
	}
	if minAge < cfg.MinAge {
		return nil, fmt.Errorf("%w: min age %d below allowed minimum %d", ErrInvalidFilter, minAge, cfg.MinAge)
	}
	if maxAge > cfg.MaxAge {
		return nil, fmt.Errorf("%w: max age %d above allowed maximum %d", ErrInvalidFilter, maxAge, cfg.MaxAge)
	}

	radius := seeker.PreferredRadiusKM
	if f.MaxDistanceKM != 0 {
		radius = f.MaxDistanceKM
	}
	if radius == 0 {
		radius = cfg.DefaultRadiusKM
	}
	if radius < 0 {
		return nil, fmt.Errorf("%w: negative search radius", ErrInvalidFilter)
	}
	if radius > cfg.MaxRadiusKM {
		return nil, fmt.Errorf("%w: radius %.1fkm exceeds ceiling %.1fkm", ErrInvalidFilter, radius, cfg.MaxRadiusKM)
	}

	// Explicit override wins; otherwise fall back to the stored preference.
	// "both" in either place means no gender predicate at all.
	gender := ""
	switch {
	case f.Gender != "" && f.Gender != PrefGenderBoth:
		gender = f.Gender
	case f.Gender == "":
		if seeker.PreferredGender != "" && seeker.PreferredGender != PrefGenderBoth {
			gender = seeker.PreferredGender
		}
	}

	limit := f.Limit
	if limit <= 0 {
		limit = cfg.DefaultPageSize
	}
	if limit > cfg.MaxPageSize {
		return nil, fmt.Errorf("%w: page size %d exceeds maximum %d", ErrInvalidFilter, limit, cfg.MaxPageSize)
	}
	offset := f.Offset
	if offset < 0 {
		return nil, fmt.Errorf("%w: negative page offset", ErrInvalidFilter)
	}

	earliest, latest := BirthDateWindow(now, minAge, maxAge)

	return &CandidateQuery{
		SeekerID:      seeker.ID,
		Gender:        gender,
		BirthEarliest: earliest,
		BirthLatest:   latest,
		SkipCutoff:    now.Add(-cfg.SkipCooldown),
		OnlineOnly:    f.OnlineOnly,
		OnlineAfter:   now.Add(-cfg.OnlineWindow),
		RadiusKM:      radius,
		Limit:         limit,
		Offset:        offset,
		Now:           now,
	}, nil
}

// ResolveReferencePoint picks the search origin: an explicit override wins
// over the seeker's stored position. The second return is false when neither
// exists, which is the distinct needs-location outcome.
func ResolveReferencePoint(seeker *Profile, f *DiscoverFilters) (Point, bool) {
	if f != nil && f.Latitude != nil && f.Longitude != nil {
		return Point{Latitude: *f.Latitude, Longitude: *f.Longitude}, true
	}
	if seeker.HasLocation() {
		return Point{Latitude: *seeker.Latitude, Longitude: *seeker.Longitude}, true
	}
	return Point{}, false
}

// BirthDateWindow converts an inclusive [minAge, maxAge] range into the
// birth-date interval that makes calendar-aware age land inside it: someone
// born one day short of minAge years ago is still too young, someone born
// exactly maxAge+1 years ago is already too old.
func BirthDateWindow(now time.Time, minAge, maxAge int) (earliest, latest time.Time) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	earliest = today.AddDate(-(maxAge+1), 0, 0).AddDate(0, 0, 1)
	latest = today.AddDate(-minAge, 0, 0)
	return earliest, latest
}

// AgeAt computes age with calendar awareness: the year difference drops by one
// when the birthday hasn't occurred yet this year.
func AgeAt(birthDate, now time.Time) int {
	years := now.Year() - birthDate.Year()
	anniversary := birthDate.AddDate(years, 0, 0)
	if anniversary.After(now) {
		years--
	}
	return years
}

// OnlineAt derives the "online" flag from a last-active timestamp
func OnlineAt(lastActive, now time.Time, window time.Duration) bool {
	return !lastActive.Before(now.Add(-window))
}
