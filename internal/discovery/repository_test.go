package discovery

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Store-backed tests run against a throwaway Postgres database named by
// TESTDB_URL. They are skipped when the variable is unset or the database is
// unreachable, same as the in-memory suites stay runnable everywhere.

var testSchema = []string{
	`DROP TABLE IF EXISTS temp_skips, swipes, matches, users CASCADE`,
	`CREATE TABLE users (
        id SERIAL PRIMARY KEY,
        username VARCHAR(100) UNIQUE NOT NULL,
        display_name VARCHAR(100) NOT NULL DEFAULT '',
        gender VARCHAR(20) NOT NULL DEFAULT 'other',
        birth_date DATE NOT NULL,
        latitude DOUBLE PRECISION,
        longitude DOUBLE PRECISION,
        preferred_gender VARCHAR(20) NOT NULL DEFAULT 'both',
        preferred_min_age INTEGER NOT NULL DEFAULT 18,
        preferred_max_age INTEGER NOT NULL DEFAULT 100,
        preferred_radius_km DOUBLE PRECISION NOT NULL DEFAULT 50,
        is_banned BOOLEAN NOT NULL DEFAULT FALSE,
        role VARCHAR(20) NOT NULL DEFAULT 'user',
        onboarding_complete BOOLEAN NOT NULL DEFAULT FALSE,
        boosted_until TIMESTAMP WITH TIME ZONE,
        last_active TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP,
        created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP,
        updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP
    )`,
	`CREATE TABLE swipes (
        seeker_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
        target_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
        action VARCHAR(10) NOT NULL CHECK (action IN ('like', 'dislike')),
        created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP,
        PRIMARY KEY (seeker_id, target_id)
    )`,
	`CREATE TABLE temp_skips (
        id SERIAL PRIMARY KEY,
        seeker_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
        target_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
        skipped_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP
    )`,
	`CREATE TABLE matches (
        id SERIAL PRIMARY KEY,
        user1_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
        user2_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
        matched_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP,
        last_message_at TIMESTAMP WITH TIME ZONE,
        is_active BOOLEAN NOT NULL DEFAULT TRUE,
        unmatched_by INTEGER REFERENCES users(id),
        unmatched_at TIMESTAMP WITH TIME ZONE,
        CONSTRAINT unique_match_pair UNIQUE (user1_id, user2_id),
        CONSTRAINT ordered_match_pair CHECK (user1_id < user2_id)
    )`,
}

func setupTestRepo(t *testing.T) (Repository, *sqlx.DB) {
	t.Helper()

	dsn := os.Getenv("TESTDB_URL")
	if dsn == "" {
		t.Skip("skipping: TESTDB_URL not set")
	}

	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		t.Skipf("skipping: postgres not available: %v", err)
	}

	for _, stmt := range testSchema {
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}

	t.Cleanup(func() {
		db.Exec(`DROP TABLE IF EXISTS temp_skips, swipes, matches, users CASCADE`)
		db.Close()
	})

	return NewPostgresRepository(db), db
}

type seedUser struct {
	username   string
	lat, lng   *float64
	banned     bool
	role       string
	complete   bool
	boosted    *time.Time
	lastActive time.Time
}

func seedProfile(t *testing.T, db *sqlx.DB, u seedUser) int64 {
	t.Helper()

	if u.role == "" {
		u.role = RoleUser
	}
	if u.lastActive.IsZero() {
		u.lastActive = time.Now()
	}

	var id int64
	err := db.QueryRow(`
        INSERT INTO users (username, display_name, gender, birth_date,
                           latitude, longitude, is_banned, role,
                           onboarding_complete, boosted_until, last_active)
        VALUES ($1, $1, 'female', '1995-06-15', $2, $3, $4, $5, $6, $7, $8)
        RETURNING id`,
		u.username, u.lat, u.lng, u.banned, u.role, u.complete, u.boosted, u.lastActive,
	).Scan(&id)
	require.NoError(t, err)

	return id
}

func fptr(v float64) *float64 { return &v }

func kathmanduQuery(seekerID int64, now time.Time) *CandidateQuery {
	earliest, latest := BirthDateWindow(now, 18, 100)
	return &CandidateQuery{
		SeekerID:      seekerID,
		BirthEarliest: earliest,
		BirthLatest:   latest,
		SkipCutoff:    now.Add(-3 * time.Hour),
		OnlineAfter:   now.Add(-5 * time.Minute),
		Origin:        Point{Latitude: 27.7172, Longitude: 85.3240},
		RadiusKM:      10,
		Limit:         50,
		Now:           now,
	}
}

func TestFindCandidates_ExclusionsAndOrdering(t *testing.T) {
	repo, db := setupTestRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	seeker := seedProfile(t, db, seedUser{username: "seeker", lat: fptr(27.7172), lng: fptr(85.3240), complete: true})

	boost := now.Add(30 * time.Minute)
	nearby := seedProfile(t, db, seedUser{username: "nearby", lat: fptr(27.7272), lng: fptr(85.3240), complete: true})
	boosted := seedProfile(t, db, seedUser{username: "boosted", lat: fptr(27.757), lng: fptr(85.38), complete: true, boosted: &boost})
	oldSkipped := seedProfile(t, db, seedUser{username: "old_skipped", lat: fptr(27.74), lng: fptr(85.34), complete: true})

	liked := seedProfile(t, db, seedUser{username: "liked", lat: fptr(27.72), lng: fptr(85.32), complete: true})
	disliked := seedProfile(t, db, seedUser{username: "disliked", lat: fptr(27.72), lng: fptr(85.31), complete: true})
	freshSkipped := seedProfile(t, db, seedUser{username: "fresh_skipped", lat: fptr(27.73), lng: fptr(85.33), complete: true})
	seedProfile(t, db, seedUser{username: "banned", lat: fptr(27.72), lng: fptr(85.33), banned: true, complete: true})
	seedProfile(t, db, seedUser{username: "moderator", lat: fptr(27.72), lng: fptr(85.33), role: RoleAdmin, complete: true})
	seedProfile(t, db, seedUser{username: "incomplete", lat: fptr(27.72), lng: fptr(85.33)})
	seedProfile(t, db, seedUser{username: "no_location", complete: true})
	seedProfile(t, db, seedUser{username: "pokhara", lat: fptr(28.2096), lng: fptr(83.9856), complete: true})

	require.NoError(t, repo.InsertSwipe(ctx, seeker, liked, ActionLike, now.Add(-30*24*time.Hour)))
	require.NoError(t, repo.InsertSwipe(ctx, seeker, disliked, ActionDislike, now.Add(-time.Hour)))
	require.NoError(t, repo.InsertTempSkip(ctx, seeker, freshSkipped, now.Add(-time.Hour)))
	require.NoError(t, repo.InsertTempSkip(ctx, seeker, oldSkipped, now.Add(-4*time.Hour)))

	rows, err := repo.FindCandidates(ctx, kathmanduQuery(seeker, now))
	require.NoError(t, err)

	ids := make([]int64, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}

	// Liked and disliked never come back regardless of age; the fresh skip is
	// still inside its cooldown; the 4h-old skip has expired out of the
	// exclusion set. Banned, admin, incomplete, unlocated and out-of-radius
	// profiles never surface. Boosted sorts first despite being farthest.
	assert.Equal(t, []int64{boosted, nearby, oldSkipped}, ids)

	require.Len(t, rows, 3)
	// 0.01 degrees of latitude is ~1.11 km
	assert.InDelta(t, 1.11, rows[1].DistanceKM, 0.05)
	require.NotNil(t, rows[0].BoostedUntil)
}

func TestFindCandidates_SkipExpiryBoundary(t *testing.T) {
	repo, db := setupTestRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	seeker := seedProfile(t, db, seedUser{username: "seeker", lat: fptr(27.7172), lng: fptr(85.3240), complete: true})
	target := seedProfile(t, db, seedUser{username: "target", lat: fptr(27.72), lng: fptr(85.33), complete: true})

	// Skipped exactly cooldown ago: the entry has expired, the target is back
	require.NoError(t, repo.InsertTempSkip(ctx, seeker, target, now.Add(-3*time.Hour)))

	rows, err := repo.FindCandidates(ctx, kathmanduQuery(seeker, now))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, target, rows[0].ID)

	// A second, fresh skip hides the target again
	require.NoError(t, repo.InsertTempSkip(ctx, seeker, target, now))

	rows, err = repo.FindCandidates(ctx, kathmanduQuery(seeker, now))
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestFindCandidates_AntipodalPointDoesNotError(t *testing.T) {
	repo, db := setupTestRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	seeker := seedProfile(t, db, seedUser{username: "seeker", lat: fptr(27.7172), lng: fptr(85.3240), complete: true})
	seedProfile(t, db, seedUser{username: "antipode", lat: fptr(-27.7172), lng: fptr(-94.676), complete: true})

	q := kathmanduQuery(seeker, now)
	q.RadiusKM = 21000

	// Rounding can push the asin operand past 1 for near-antipodal pairs;
	// the query must clamp rather than fail
	rows, err := repo.FindCandidates(ctx, q)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.InDelta(t, 20015, rows[0].DistanceKM, 10)
}

func TestInsertSwipe_SecondDecisionConflicts(t *testing.T) {
	repo, db := setupTestRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	seeker := seedProfile(t, db, seedUser{username: "seeker", complete: true, lat: fptr(27.7), lng: fptr(85.3)})
	target := seedProfile(t, db, seedUser{username: "target", complete: true, lat: fptr(27.7), lng: fptr(85.3)})

	require.NoError(t, repo.InsertSwipe(ctx, seeker, target, ActionDislike, now))

	err := repo.InsertSwipe(ctx, seeker, target, ActionLike, now)
	assert.ErrorIs(t, err, ErrAlreadyInteracted)

	var action string
	require.NoError(t, db.Get(&action, `SELECT action FROM swipes WHERE seeker_id=$1 AND target_id=$2`, seeker, target))
	assert.Equal(t, string(ActionDislike), action)
}

func TestCreateMatchIfAbsent_BothOrdersSameRow(t *testing.T) {
	repo, db := setupTestRepo(t)
	ctx := context.Background()

	a := seedProfile(t, db, seedUser{username: "a", complete: true, lat: fptr(27.7), lng: fptr(85.3)})
	b := seedProfile(t, db, seedUser{username: "b", complete: true, lat: fptr(27.7), lng: fptr(85.3)})

	first, err := repo.CreateMatchIfAbsent(ctx, a, b)
	require.NoError(t, err)
	second, err := repo.CreateMatchIfAbsent(ctx, b, a)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)

	var count int
	require.NoError(t, db.Get(&count, `SELECT COUNT(*) FROM matches`))
	assert.Equal(t, 1, count)
}
