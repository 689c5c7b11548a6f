package discovery

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// Repository is the engine's narrow view of the profile store. It reads
// profiles and candidate sets, appends interactions, and upserts matches;
// everything else about a user document belongs to other systems.
type Repository interface {
	ProximityIndex

	GetProfile(ctx context.Context, id int64) (*Profile, error)

	// InsertSwipe atomically records the (seeker, target) decision. It fails
	// with ErrAlreadyInteracted when the pair already holds a decision, which
	// is the whole state machine: Unset -> Liked|Disliked, nothing after.
	InsertSwipe(ctx context.Context, seekerID, targetID int64, action SwipeAction, at time.Time) error
	HasLiked(ctx context.Context, seekerID, targetID int64) (bool, error)

	// CreateMatchIfAbsent upserts on the normalized pair key. The loser of a
	// concurrent reciprocal-like race receives the winner's row.
	CreateMatchIfAbsent(ctx context.Context, user1ID, user2ID int64) (*Match, error)
	GetMatch(ctx context.Context, id int64) (*Match, error)
	GetUserMatches(ctx context.Context, userID int64, active bool) ([]*Match, error)
	DeactivateMatch(ctx context.Context, matchID, userID int64, at time.Time) error

	InsertTempSkip(ctx context.Context, seekerID, targetID int64, at time.Time) error
	PruneTempSkips(ctx context.Context, before time.Time) (int64, error)

	SetBoostWindow(ctx context.Context, profileID int64, until time.Time) error
	ClearStaleBoosts(ctx context.Context, before time.Time) (int64, error)

	TouchLastActive(ctx context.Context, userID int64, at time.Time) error
}

type postgresRepository struct {
	db *sqlx.DB
}

func NewPostgresRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

// storeErr wraps infrastructure failures so callers see a retryable
// ErrStoreUnavailable instead of driver internals
func storeErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrStoreUnavailable, op, err)
}

func (r *postgresRepository) GetProfile(ctx context.Context, id int64) (*Profile, error) {
	var p Profile
	query := `
        SELECT id, username, display_name, gender, birth_date,
               latitude, longitude,
               preferred_gender, preferred_min_age, preferred_max_age, preferred_radius_km,
               is_banned, role, onboarding_complete,
               boosted_until, last_active, created_at, updated_at
        FROM users
        WHERE id = $1
    `

	err := r.db.GetContext(ctx, &p, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storeErr("get profile", err)
	}

	return &p, nil
}

// FindCandidates evaluates the whole predicate server-side: eligibility,
// exclusion sets, gender, birth-date window, optional online cutoff, then the
// haversine distance and radius bound. Ordering (boost tier, then distance)
// and pagination happen in the query, after the sort.
func (r *postgresRepository) FindCandidates(ctx context.Context, q *CandidateQuery) ([]*CandidateRow, error) {
	query := `
        SELECT c.id, c.username, c.display_name, c.gender, c.birth_date,
               c.boosted_until, c.last_active, c.distance_km
        FROM (
            SELECT u.id, u.username, u.display_name, u.gender, u.birth_date,
                   u.boosted_until, u.last_active,
                   -- least() keeps rounding from pushing the asin operand past 1
                   6371 * 2 * asin(sqrt(least(1.0,
                       power(sin(radians(u.latitude - $1) / 2), 2) +
                       cos(radians($1)) * cos(radians(u.latitude)) *
                       power(sin(radians(u.longitude - $2) / 2), 2)
                   ))) AS distance_km,
                   (u.boosted_until IS NOT NULL AND u.boosted_until > $3) AS boosted
            FROM users u
            WHERE u.id <> $4
              AND u.is_banned = FALSE
              AND u.role <> 'admin'
              AND u.onboarding_complete = TRUE
              AND u.latitude IS NOT NULL
              AND u.longitude IS NOT NULL
              AND u.birth_date BETWEEN $5 AND $6
              AND ($7::text = '' OR u.gender = $7)
              AND (NOT $8::boolean OR u.last_active >= $9)
              AND NOT EXISTS (
                  SELECT 1 FROM swipes s
                  WHERE s.seeker_id = $4 AND s.target_id = u.id
              )
              AND NOT EXISTS (
                  SELECT 1 FROM temp_skips t
                  WHERE t.seeker_id = $4 AND t.target_id = u.id AND t.skipped_at > $10
              )
        ) c
        WHERE c.distance_km <= $11
        ORDER BY c.boosted DESC, c.distance_km ASC
        LIMIT $12 OFFSET $13
    `

	rows, err := r.db.QueryxContext(
		ctx, query,
		q.Origin.Latitude, q.Origin.Longitude, q.Now,
		q.SeekerID,
		q.BirthEarliest, q.BirthLatest,
		q.Gender,
		q.OnlineOnly, q.OnlineAfter,
		q.SkipCutoff,
		q.RadiusKM,
		q.Limit, q.Offset,
	)
	if err != nil {
		return nil, storeErr("find candidates", err)
	}
	defer rows.Close()

	var candidates []*CandidateRow
	for rows.Next() {
		var c CandidateRow
		if err := rows.StructScan(&c); err != nil {
			return nil, storeErr("scan candidate", err)
		}
		candidates = append(candidates, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate candidates", err)
	}

	return candidates, nil
}

func (r *postgresRepository) InsertSwipe(ctx context.Context, seekerID, targetID int64, action SwipeAction, at time.Time) error {
	// The primary key on (seeker_id, target_id) makes this a single atomic
	// check-and-append: a pair that already holds a decision conflicts, and
	// the decision it holds is never rewritten.
	query := `
        INSERT INTO swipes (seeker_id, target_id, action, created_at)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (seeker_id, target_id) DO NOTHING
    `

	res, err := r.db.ExecContext(ctx, query, seekerID, targetID, action, at)
	if err != nil {
		return storeErr("insert swipe", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return storeErr("insert swipe", err)
	}
	if affected == 0 {
		return ErrAlreadyInteracted
	}

	return nil
}

func (r *postgresRepository) HasLiked(ctx context.Context, seekerID, targetID int64) (bool, error) {
	var exists bool
	query := `
        SELECT EXISTS(
            SELECT 1 FROM swipes
            WHERE seeker_id = $1 AND target_id = $2 AND action = 'like'
        )
    `

	err := r.db.GetContext(ctx, &exists, query, seekerID, targetID)
	if err != nil {
		return false, storeErr("check reciprocity", err)
	}
	return exists, nil
}

func (r *postgresRepository) CreateMatchIfAbsent(ctx context.Context, user1ID, user2ID int64) (*Match, error) {
	// Ensure user1_id < user2_id so {a,b} and {b,a} hit the same unique key
	user1ID, user2ID = NormalizePair(user1ID, user2ID)

	// The no-op DO UPDATE makes RETURNING yield the row whether this call
	// created it or lost the race to the other side's like.
	query := `
        INSERT INTO matches (user1_id, user2_id)
        VALUES ($1, $2)
        ON CONFLICT (user1_id, user2_id)
        DO UPDATE SET user1_id = matches.user1_id
        RETURNING id, user1_id, user2_id, matched_at, last_message_at,
                  is_active, unmatched_by, unmatched_at
    `

	var match Match
	err := r.db.QueryRowxContext(ctx, query, user1ID, user2ID).StructScan(&match)
	if err != nil {
		return nil, storeErr("create match", err)
	}

	return &match, nil
}

func (r *postgresRepository) GetMatch(ctx context.Context, id int64) (*Match, error) {
	var match Match
	query := `
        SELECT id, user1_id, user2_id, matched_at, last_message_at,
               is_active, unmatched_by, unmatched_at
        FROM matches
        WHERE id = $1
    `

	err := r.db.GetContext(ctx, &match, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMatchNotFound
	}
	if err != nil {
		return nil, storeErr("get match", err)
	}

	return &match, nil
}

func (r *postgresRepository) GetUserMatches(ctx context.Context, userID int64, active bool) ([]*Match, error) {
	query := `
        SELECT m.id, m.user1_id, m.user2_id, m.matched_at, m.last_message_at,
               m.is_active, m.unmatched_by, m.unmatched_at,
               CASE WHEN m.user1_id = $1 THEN u2.id ELSE u1.id END AS other_id,
               CASE WHEN m.user1_id = $1 THEN u2.username ELSE u1.username END AS other_username,
               CASE WHEN m.user1_id = $1 THEN u2.display_name ELSE u1.display_name END AS other_display_name,
               CASE WHEN m.user1_id = $1
                    THEN DATE_PART('year', AGE(u2.birth_date))::int
                    ELSE DATE_PART('year', AGE(u1.birth_date))::int
               END AS other_age
        FROM matches m
        JOIN users u1 ON m.user1_id = u1.id
        JOIN users u2 ON m.user2_id = u2.id
        WHERE (m.user1_id = $1 OR m.user2_id = $1) AND m.is_active = $2
        ORDER BY m.matched_at DESC
    `

	rows, err := r.db.QueryxContext(ctx, query, userID, active)
	if err != nil {
		return nil, storeErr("list matches", err)
	}
	defer rows.Close()

	var matches []*Match
	for rows.Next() {
		var match Match
		var other UserInfo

		err := rows.Scan(
			&match.ID, &match.User1ID, &match.User2ID, &match.MatchedAt,
			&match.LastMessageAt, &match.IsActive,
			&match.UnmatchedBy, &match.UnmatchedAt,
			&other.ID, &other.Username, &other.DisplayName, &other.Age,
		)
		if err != nil {
			return nil, storeErr("scan match", err)
		}

		match.MatchedUser = &other
		matches = append(matches, &match)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate matches", err)
	}

	return matches, nil
}

func (r *postgresRepository) DeactivateMatch(ctx context.Context, matchID, userID int64, at time.Time) error {
	query := `
        UPDATE matches
        SET is_active = FALSE, unmatched_by = $2, unmatched_at = $3
        WHERE id = $1
    `

	_, err := r.db.ExecContext(ctx, query, matchID, userID, at)
	if err != nil {
		return storeErr("deactivate match", err)
	}
	return nil
}

func (r *postgresRepository) InsertTempSkip(ctx context.Context, seekerID, targetID int64, at time.Time) error {
	query := `
        INSERT INTO temp_skips (seeker_id, target_id, skipped_at)
        VALUES ($1, $2, $3)
    `

	_, err := r.db.ExecContext(ctx, query, seekerID, targetID, at)
	if err != nil {
		return storeErr("insert temp skip", err)
	}
	return nil
}

// PruneTempSkips removes entries whose cooldown elapsed long ago. Storage
// hygiene only: the candidate filter already ignores expired entries, so
// correctness never depends on this having run.
func (r *postgresRepository) PruneTempSkips(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM temp_skips WHERE skipped_at < $1`, before)
	if err != nil {
		return 0, storeErr("prune temp skips", err)
	}

	pruned, err := res.RowsAffected()
	if err != nil {
		return 0, storeErr("prune temp skips", err)
	}
	return pruned, nil
}

func (r *postgresRepository) SetBoostWindow(ctx context.Context, profileID int64, until time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET boosted_until = $2, updated_at = CURRENT_TIMESTAMP WHERE id = $1`,
		profileID, until,
	)
	if err != nil {
		return storeErr("set boost window", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return storeErr("set boost window", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *postgresRepository) ClearStaleBoosts(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET boosted_until = NULL WHERE boosted_until IS NOT NULL AND boosted_until < $1`,
		before,
	)
	if err != nil {
		return 0, storeErr("clear stale boosts", err)
	}

	cleared, err := res.RowsAffected()
	if err != nil {
		return 0, storeErr("clear stale boosts", err)
	}
	return cleared, nil
}

func (r *postgresRepository) TouchLastActive(ctx context.Context, userID int64, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET last_active = $2 WHERE id = $1`, userID, at)
	if err != nil {
		return storeErr("touch last active", err)
	}
	return nil
}
