// internal/discovery/service.go

package discovery

import (
	"context"
	"fmt"
	"time"
)

// MatchNotifier receives the match the moment reciprocity is resolved.
// The websocket hub implements it; a nil notifier disables delivery.
type MatchNotifier interface {
	NotifyMatch(user1ID, user2ID int64, match *Match)
}

type Service interface {
	// Discovery
	Discover(ctx context.Context, seekerID int64, filters *DiscoverFilters) (*DiscoveryResult, error)

	// Swipes & matches
	RecordSwipe(ctx context.Context, seekerID, targetID int64, action SwipeAction) (*SwipeResult, error)
	GetMatches(ctx context.Context, userID int64, active bool) ([]*Match, error)
	Unmatch(ctx context.Context, matchID, userID int64) error

	// Browsing skip
	RecordTempSkip(ctx context.Context, seekerID, targetID int64) error

	// Boost
	ActivateBoost(ctx context.Context, profileID int64, duration time.Duration) (*BoostResult, error)

	// Background maintenance
	PruneExpiredSkips(ctx context.Context) error
	SweepStaleBoosts(ctx context.Context) error
}

type service struct {
	repo     Repository
	ranker   *ranker
	notifier MatchNotifier
	cfg      Config
	now      func() time.Time
}

// Config carries the engine's tunable bounds
type Config struct {
	Filter           FilterConfig
	BoostMinDuration time.Duration
	BoostMaxDuration time.Duration
}

func NewService(repo Repository, notifier MatchNotifier, cfg Config) Service {
	return &service{
		repo:     repo,
		ranker:   newRanker(repo, cfg.Filter),
		notifier: notifier,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Discover builds the candidate predicate for the seeker, resolves the
// reference point, and returns the ranked page. A seeker with no usable
// location gets the distinct needs-location outcome, never an empty list.
func (s *service) Discover(ctx context.Context, seekerID int64, filters *DiscoverFilters) (*DiscoveryResult, error) {
	seeker, err := s.repo.GetProfile(ctx, seekerID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	query, err := BuildCandidateQuery(seeker, filters, now, s.cfg.Filter)
	if err != nil {
		return nil, err
	}

	origin, ok := ResolveReferencePoint(seeker, filters)
	if !ok {
		ObserveDiscovery(StatusNeedsLocation)
		return &DiscoveryResult{Status: StatusNeedsLocation}, nil
	}
	query.Origin = origin

	candidates, err := s.ranker.Rank(ctx, query)
	if err != nil {
		return nil, err
	}

	ObserveDiscovery(StatusOK)
	return &DiscoveryResult{
		Status:     StatusOK,
		Candidates: candidates,
	}, nil
}

// RecordSwipe records the directional decision and resolves mutual interest.
// The interaction is immutable: a second decision on the same pair fails with
// ErrAlreadyInteracted and leaves the stored one untouched, which also makes
// client retries after a timeout safe.
func (s *service) RecordSwipe(ctx context.Context, seekerID, targetID int64, action SwipeAction) (*SwipeResult, error) {
	if !action.Valid() {
		return nil, fmt.Errorf("%w: unknown swipe action %q", ErrInvalidFilter, action)
	}
	if seekerID == targetID {
		return nil, fmt.Errorf("%w: cannot swipe on yourself", ErrInvalidFilter)
	}

	target, err := s.repo.GetProfile(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if target.IsBanned {
		return nil, ErrTargetUnavailable
	}

	if err := s.repo.InsertSwipe(ctx, seekerID, targetID, action, s.now()); err != nil {
		return nil, err
	}
	RecordSwipe(string(action))

	if action == ActionDislike {
		return &SwipeResult{IsMatch: false}, nil
	}

	// Reciprocity is checked, never written, on the target side
	liked, err := s.repo.HasLiked(ctx, targetID, seekerID)
	if err != nil {
		return nil, err
	}
	if !liked {
		return &SwipeResult{IsMatch: false}, nil
	}

	match, err := s.repo.CreateMatchIfAbsent(ctx, seekerID, targetID)
	if err != nil {
		return nil, err
	}
	RecordMatch()

	if s.notifier != nil {
		s.notifier.NotifyMatch(match.User1ID, match.User2ID, match)
	}

	return &SwipeResult{IsMatch: true, Match: match}, nil
}

func (s *service) GetMatches(ctx context.Context, userID int64, active bool) ([]*Match, error) {
	return s.repo.GetUserMatches(ctx, userID, active)
}

// Unmatch deactivates a match without deleting history. The pair stays in
// each side's interaction exclusion set regardless: once liked, a profile
// never reappears in discovery.
func (s *service) Unmatch(ctx context.Context, matchID, userID int64) error {
	match, err := s.repo.GetMatch(ctx, matchID)
	if err != nil {
		return err
	}

	if !match.HasUser(userID) {
		return ErrUnauthorized
	}

	return s.repo.DeactivateMatch(ctx, matchID, userID, s.now())
}

// RecordTempSkip appends a "pass for now" entry. No reciprocity logic, no
// match possibility; the entry stops excluding the target once the cooldown
// window elapses.
func (s *service) RecordTempSkip(ctx context.Context, seekerID, targetID int64) error {
	if seekerID == targetID {
		return fmt.Errorf("%w: cannot skip yourself", ErrInvalidFilter)
	}

	if _, err := s.repo.GetProfile(ctx, targetID); err != nil {
		return err
	}

	if err := s.repo.InsertTempSkip(ctx, seekerID, targetID, s.now()); err != nil {
		return err
	}
	RecordTempSkip()
	return nil
}

// ActivateBoost stamps a fresh visibility window. Re-activating while boosted
// overwrites the window: last call wins, no stacking.
func (s *service) ActivateBoost(ctx context.Context, profileID int64, duration time.Duration) (*BoostResult, error) {
	if duration < s.cfg.BoostMinDuration || duration > s.cfg.BoostMaxDuration {
		return nil, fmt.Errorf("%w: boost duration %s outside [%s, %s]",
			ErrInvalidFilter, duration, s.cfg.BoostMinDuration, s.cfg.BoostMaxDuration)
	}

	until := s.now().Add(duration)
	if err := s.repo.SetBoostWindow(ctx, profileID, until); err != nil {
		return nil, err
	}
	RecordBoost()

	return &BoostResult{BoostedUntil: until}, nil
}

func (s *service) PruneExpiredSkips(ctx context.Context) error {
	cutoff := s.now().Add(-s.cfg.Filter.SkipCooldown)
	_, err := s.repo.PruneTempSkips(ctx, cutoff)
	return err
}

func (s *service) SweepStaleBoosts(ctx context.Context) error {
	// Only windows expired for at least a day are nulled; an expired value
	// is already invisible to ranking either way.
	_, err := s.repo.ClearStaleBoosts(ctx, s.now().Add(-24*time.Hour))
	return err
}
