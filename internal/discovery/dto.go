// internal/discovery/dto.go
package discovery

import "time"

// DTOs for API requests/responses

// DiscoverFilters carries the optional per-request overrides for a discovery
// query. Zero values fall back to the seeker's stored preferences.
type DiscoverFilters struct {
	Gender        string   `json:"gender" validate:"omitempty,oneof=male female both"`
	MinAge        int      `json:"min_age" validate:"omitempty,gte=0"`
	MaxAge        int      `json:"max_age" validate:"omitempty,gte=0"`
	MaxDistanceKM float64  `json:"max_distance_km" validate:"omitempty,gte=0"`
	OnlineOnly    bool     `json:"online_only"`
	Latitude      *float64 `json:"latitude,omitempty" validate:"omitempty,latitude"`
	Longitude     *float64 `json:"longitude,omitempty" validate:"omitempty,longitude"`
	Limit         int      `json:"limit" validate:"omitempty,gte=0"`
	Offset        int      `json:"offset" validate:"omitempty,gte=0"`
}

// SwipeRequest records a durable like/dislike on a target
type SwipeRequest struct {
	TargetID int64  `json:"target_id" validate:"required"`
	Action   string `json:"action" validate:"required,oneof=like dislike"`
}

// TempSkipRequest records a "pass for now" on a target
type TempSkipRequest struct {
	TargetID int64 `json:"target_id" validate:"required"`
}

// BoostRequest activates a visibility-priority window for the caller
type BoostRequest struct {
	DurationMinutes int `json:"duration_minutes" validate:"required,min=1,max=1440"`
}

// Discovery outcome statuses
const (
	StatusOK            = "ok"
	StatusNeedsLocation = "needs_location"
)

// Candidate is one ranked discovery result
type Candidate struct {
	ID          int64   `json:"id"`
	Username    string  `json:"username"`
	DisplayName string  `json:"display_name"`
	Gender      string  `json:"gender"`
	Age         int     `json:"age"`
	DistanceKM  float64 `json:"distance_km"`
	Boosted     bool    `json:"boosted"`
	IsOnline    bool    `json:"is_online"`
}

// DiscoveryResult distinguishes "no location on file" from "no candidates":
// the former asks the client to prompt for location, the latter is a plain
// empty list.
type DiscoveryResult struct {
	Status     string       `json:"status"`
	Candidates []*Candidate `json:"candidates,omitempty"`
}

// SwipeResult reports whether the swipe closed a mutual match
type SwipeResult struct {
	IsMatch bool   `json:"is_match"`
	Match   *Match `json:"match,omitempty"`
}

// BoostResult reports the new end of the boost window
type BoostResult struct {
	BoostedUntil time.Time `json:"boosted_until"`
}

// UserInfo is the joined counterpart summary on a listed match
type UserInfo struct {
	ID          int64  `json:"id" db:"id"`
	Username    string `json:"username" db:"username"`
	DisplayName string `json:"display_name" db:"display_name"`
	Age         *int   `json:"age,omitempty" db:"age"`
}
