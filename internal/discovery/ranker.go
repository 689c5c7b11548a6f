// internal/discovery/ranker.go
// Proximity Ranker: evaluates a CandidateQuery against the store and shapes
// the ordered result page. Boosted profiles sort before everything else;
// ascending distance breaks ties within each tier.

package discovery

import (
	"context"
	"sort"
	"time"
)

// ProximityIndex is the nearest-within-radius capability the ranker needs
// from the profile store. The Postgres repository implements it server-side;
// tests swap in an in-memory index. Implementations must return only
// candidates inside q.RadiusKM of q.Origin, already ordered (boost tier, then
// distance) with q.Offset/q.Limit applied after ordering.
type ProximityIndex interface {
	FindCandidates(ctx context.Context, q *CandidateQuery) ([]*CandidateRow, error)
}

// CandidateRow is the raw store row the ranker decorates
type CandidateRow struct {
	ID           int64      `db:"id"`
	Username     string     `db:"username"`
	DisplayName  string     `db:"display_name"`
	Gender       string     `db:"gender"`
	BirthDate    time.Time  `db:"birth_date"`
	BoostedUntil *time.Time `db:"boosted_until"`
	LastActive   time.Time  `db:"last_active"`
	DistanceKM   float64    `db:"distance_km"`
}

type ranker struct {
	index ProximityIndex
	cfg   FilterConfig
}

func newRanker(index ProximityIndex, cfg FilterConfig) *ranker {
	return &ranker{index: index, cfg: cfg}
}

// Rank runs the query and produces the decorated, ordered candidate page.
// The needs-location case is decided before this point; q.Origin is valid.
func (r *ranker) Rank(ctx context.Context, q *CandidateQuery) ([]*Candidate, error) {
	rows, err := r.index.FindCandidates(ctx, q)
	if err != nil {
		return nil, err
	}

	// The index contract already orders rows, but the ordering invariant is
	// the ranker's to guarantee, so it is re-asserted here. Stable to keep
	// the store's ordering for equal keys.
	sort.SliceStable(rows, func(i, j int) bool {
		bi := boostActiveAt(rows[i].BoostedUntil, q.Now)
		bj := boostActiveAt(rows[j].BoostedUntil, q.Now)
		if bi != bj {
			return bi
		}
		return rows[i].DistanceKM < rows[j].DistanceKM
	})

	candidates := make([]*Candidate, 0, len(rows))
	for _, row := range rows {
		candidates = append(candidates, &Candidate{
			ID:          row.ID,
			Username:    row.Username,
			DisplayName: row.DisplayName,
			Gender:      row.Gender,
			Age:         AgeAt(row.BirthDate, q.Now),
			DistanceKM:  RoundKM(row.DistanceKM),
			Boosted:     boostActiveAt(row.BoostedUntil, q.Now),
			IsOnline:    OnlineAt(row.LastActive, q.Now, r.cfg.OnlineWindow),
		})
	}

	return candidates, nil
}

func boostActiveAt(until *time.Time, now time.Time) bool {
	return until != nil && until.After(now)
}
