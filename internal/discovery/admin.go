// internal/discovery/admin.go

package discovery

import (
	"context"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/bhaskarphuyal82-star/nearmatch-sub000/internal/auth"
	"github.com/bhaskarphuyal82-star/nearmatch-sub000/internal/common/utils"
)

// EngineStats is an operational snapshot of the matching engine
type EngineStats struct {
	TotalProfiles        int64     `json:"total_profiles" db:"total_profiles"`
	DiscoverableProfiles int64     `json:"discoverable_profiles" db:"discoverable_profiles"`
	TotalSwipes          int64     `json:"total_swipes" db:"total_swipes"`
	Likes                int64     `json:"likes" db:"likes"`
	Dislikes             int64     `json:"dislikes" db:"dislikes"`
	TotalMatches         int64     `json:"total_matches" db:"total_matches"`
	ActiveMatches        int64     `json:"active_matches" db:"active_matches"`
	ActiveBoosts         int64     `json:"active_boosts" db:"active_boosts"`
	SkipsLastDay         int64     `json:"skips_last_day" db:"skips_last_day"`
	LastUpdated          time.Time `json:"last_updated"`
}

type AdminService struct {
	db   *sqlx.DB
	repo Repository
}

func NewAdminService(db *sqlx.DB, repo Repository) *AdminService {
	return &AdminService{db: db, repo: repo}
}

func (a *AdminService) GetEngineStats(ctx context.Context) (*EngineStats, error) {
	stats := &EngineStats{LastUpdated: time.Now()}

	query := `
        SELECT
            (SELECT COUNT(*) FROM users) AS total_profiles,
            (SELECT COUNT(*) FROM users
             WHERE is_banned = FALSE AND role <> 'admin'
               AND onboarding_complete = TRUE
               AND latitude IS NOT NULL) AS discoverable_profiles,
            (SELECT COUNT(*) FROM swipes) AS total_swipes,
            (SELECT COUNT(*) FROM swipes WHERE action = 'like') AS likes,
            (SELECT COUNT(*) FROM swipes WHERE action = 'dislike') AS dislikes,
            (SELECT COUNT(*) FROM matches) AS total_matches,
            (SELECT COUNT(*) FROM matches WHERE is_active = TRUE) AS active_matches,
            (SELECT COUNT(*) FROM users WHERE boosted_until > NOW()) AS active_boosts,
            (SELECT COUNT(*) FROM temp_skips
             WHERE skipped_at > NOW() - INTERVAL '1 day') AS skips_last_day
    `

	if err := a.db.GetContext(ctx, stats, query); err != nil {
		return nil, storeErr("collect engine stats", err)
	}

	return stats, nil
}

// StatsHandler serves the snapshot to admins only
func (a *AdminService) StatsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Missing authentication")
		return
	}

	caller, err := a.repo.GetProfile(r.Context(), userID)
	if err != nil {
		respondEngineError(w, err)
		return
	}
	if caller.Role != RoleAdmin {
		utils.RespondWithError(w, http.StatusForbidden, "admin access required")
		return
	}

	stats, err := a.GetEngineStats(r.Context())
	if err != nil {
		respondEngineError(w, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, stats)
}
