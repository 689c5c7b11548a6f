package discovery

import "time"

// Gender values stored on a profile
const (
	GenderMale      = "male"
	GenderFemale    = "female"
	GenderNonBinary = "non-binary"
	GenderOther     = "other"
)

// Preference gender values; "both" disables the gender filter
const (
	PrefGenderMale   = "male"
	PrefGenderFemale = "female"
	PrefGenderBoth   = "both"
)

// Roles
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// SwipeAction is the durable directional decision a seeker records on a target
type SwipeAction string

const (
	ActionLike    SwipeAction = "like"
	ActionDislike SwipeAction = "dislike"
)

// Valid reports whether the action is one the resolver accepts
func (a SwipeAction) Valid() bool {
	return a == ActionLike || a == ActionDislike
}

// Profile is the engine's view of a user document. Registration and edits
// happen elsewhere; this engine only appends interactions and reads the rest.
type Profile struct {
	ID          int64     `json:"id" db:"id"`
	Username    string    `json:"username" db:"username"`
	DisplayName string    `json:"display_name" db:"display_name"`
	Gender      string    `json:"gender" db:"gender"`
	BirthDate   time.Time `json:"birth_date" db:"birth_date"`

	// Position is absent until the user grants location
	Latitude  *float64 `json:"latitude,omitempty" db:"latitude"`
	Longitude *float64 `json:"longitude,omitempty" db:"longitude"`

	// Preferences
	PreferredGender   string  `json:"preferred_gender" db:"preferred_gender"`
	PreferredMinAge   int     `json:"preferred_min_age" db:"preferred_min_age"`
	PreferredMaxAge   int     `json:"preferred_max_age" db:"preferred_max_age"`
	PreferredRadiusKM float64 `json:"preferred_radius_km" db:"preferred_radius_km"`

	// Moderation & completeness
	IsBanned           bool   `json:"is_banned" db:"is_banned"`
	Role               string `json:"role" db:"role"`
	OnboardingComplete bool   `json:"onboarding_complete" db:"onboarding_complete"`

	// Boost window; while now < BoostedUntil the profile ranks top-tier
	BoostedUntil *time.Time `json:"boosted_until,omitempty" db:"boosted_until"`

	LastActive time.Time `json:"last_active" db:"last_active"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// HasLocation reports whether the profile has a stored position
func (p *Profile) HasLocation() bool {
	return p.Latitude != nil && p.Longitude != nil
}

// BoostActive reports whether the profile's boost window covers now
func (p *Profile) BoostActive(now time.Time) bool {
	return p.BoostedUntil != nil && p.BoostedUntil.After(now)
}

// Swipe is one recorded directional interaction. The (seeker, target) pair is
// unique in storage, which is what makes the state machine single-shot.
type Swipe struct {
	SeekerID  int64       `json:"seeker_id" db:"seeker_id"`
	TargetID  int64       `json:"target_id" db:"target_id"`
	Action    SwipeAction `json:"action" db:"action"`
	CreatedAt time.Time   `json:"created_at" db:"created_at"`
}

// TempSkip is a light-weight "pass for now"; it expires out of the exclusion
// set after the cooldown window rather than being deleted.
type TempSkip struct {
	SeekerID  int64     `json:"seeker_id" db:"seeker_id"`
	TargetID  int64     `json:"target_id" db:"target_id"`
	SkippedAt time.Time `json:"skipped_at" db:"skipped_at"`
}

// Match joins an unordered pair of profiles. User1ID < User2ID always.
type Match struct {
	ID            int64      `json:"id" db:"id"`
	User1ID       int64      `json:"user1_id" db:"user1_id"`
	User2ID       int64      `json:"user2_id" db:"user2_id"`
	MatchedAt     time.Time  `json:"matched_at" db:"matched_at"`
	LastMessageAt *time.Time `json:"last_message_at,omitempty" db:"last_message_at"`
	IsActive      bool       `json:"is_active" db:"is_active"`
	UnmatchedBy   *int64     `json:"unmatched_by,omitempty" db:"unmatched_by"`
	UnmatchedAt   *time.Time `json:"unmatched_at,omitempty" db:"unmatched_at"`

	// Joined field for listing
	MatchedUser *UserInfo `json:"matched_user,omitempty"`
}

// HasUser reports whether the given user participates in the match
func (m *Match) HasUser(userID int64) bool {
	return m.User1ID == userID || m.User2ID == userID
}

// OtherUserID returns the counterpart of userID in the match
func (m *Match) OtherUserID(userID int64) (int64, bool) {
	if m.User1ID == userID {
		return m.User2ID, true
	}
	if m.User2ID == userID {
		return m.User1ID, true
	}
	return 0, false
}

// NormalizePair orders a pair of ids so {a,b} and {b,a} key the same match
func NormalizePair(a, b int64) (int64, int64) {
	if a > b {
		return b, a
	}
	return a, b
}
