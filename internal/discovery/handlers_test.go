package discovery

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubService returns canned results so handler tests exercise only the HTTP
// mapping layer.
type stubService struct {
	discoverResult *DiscoveryResult
	swipeResult    *SwipeResult
	err            error
}

func (s *stubService) Discover(ctx context.Context, seekerID int64, filters *DiscoverFilters) (*DiscoveryResult, error) {
	return s.discoverResult, s.err
}

func (s *stubService) RecordSwipe(ctx context.Context, seekerID, targetID int64, action SwipeAction) (*SwipeResult, error) {
	return s.swipeResult, s.err
}

func (s *stubService) GetMatches(ctx context.Context, userID int64, active bool) ([]*Match, error) {
	return nil, s.err
}

func (s *stubService) Unmatch(ctx context.Context, matchID, userID int64) error {
	return s.err
}

func (s *stubService) RecordTempSkip(ctx context.Context, seekerID, targetID int64) error {
	return s.err
}

func (s *stubService) ActivateBoost(ctx context.Context, profileID int64, duration time.Duration) (*BoostResult, error) {
	return nil, s.err
}

func (s *stubService) PruneExpiredSkips(ctx context.Context) error { return s.err }
func (s *stubService) SweepStaleBoosts(ctx context.Context) error  { return s.err }

func authedRequest(method, target, body string) *http.Request {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	ctx := context.WithValue(req.Context(), "userID", int64(1))
	return req.WithContext(ctx)
}

func TestHandlers_RejectUnauthenticatedContext(t *testing.T) {
	h := NewHandler(&stubService{})

	handlers := map[string]http.HandlerFunc{
		"discover": h.Discover,
		"swipe":    h.Swipe,
		"skip":     h.TempSkip,
		"boost":    h.Boost,
		"matches":  h.GetMatches,
		"unmatch":  h.Unmatch,
	}

	for name, handler := range handlers {
		rec := httptest.NewRecorder()
		// No userID in context: the middleware never ran
		handler(rec, httptest.NewRequest("GET", "/api/v1/discovery", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, name)
	}
}

func TestDiscoverHandler_EngineErrorMapping(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		wantCode int
		wantKind string
	}{
		{"invalid filter", ErrInvalidFilter, http.StatusBadRequest, "invalid_filter"},
		{"profile not found", ErrNotFound, http.StatusNotFound, "not_found"},
		{"match not found", ErrMatchNotFound, http.StatusNotFound, "match_not_found"},
		{"target unavailable", ErrTargetUnavailable, http.StatusUnprocessableEntity, "target_unavailable"},
		{"already interacted", ErrAlreadyInteracted, http.StatusConflict, "already_interacted"},
		{"unauthorized", ErrUnauthorized, http.StatusForbidden, "forbidden"},
		{"store unavailable", ErrStoreUnavailable, http.StatusServiceUnavailable, "store_unavailable"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewHandler(&stubService{err: tc.err})
			rec := httptest.NewRecorder()

			h.Discover(rec, authedRequest("GET", "/api/v1/discovery", ""))

			assert.Equal(t, tc.wantCode, rec.Code)

			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tc.wantKind, body["kind"])
		})
	}
}

func TestDiscoverHandler_NeedsLocation(t *testing.T) {
	h := NewHandler(&stubService{discoverResult: &DiscoveryResult{Status: StatusNeedsLocation}})
	rec := httptest.NewRecorder()

	h.Discover(rec, authedRequest("GET", "/api/v1/discovery", ""))

	// Needs-location is a successful outcome, not an error
	assert.Equal(t, http.StatusOK, rec.Code)

	var result DiscoveryResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, StatusNeedsLocation, result.Status)
	assert.Empty(t, result.Candidates)
}

func TestDiscoverHandler_BadQueryParams(t *testing.T) {
	h := NewHandler(&stubService{discoverResult: &DiscoveryResult{Status: StatusOK}})

	targets := []string{
		"/api/v1/discovery?min_age=abc",
		"/api/v1/discovery?max_distance_km=far",
		"/api/v1/discovery?lat=27.7",
		"/api/v1/discovery?gender=unknown",
	}

	for _, target := range targets {
		rec := httptest.NewRecorder()
		h.Discover(rec, authedRequest("GET", target, ""))
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}

func TestSwipeHandler(t *testing.T) {
	match := &Match{ID: 5, User1ID: 1, User2ID: 2, IsActive: true}
	h := NewHandler(&stubService{swipeResult: &SwipeResult{IsMatch: true, Match: match}})
	rec := httptest.NewRecorder()

	h.Swipe(rec, authedRequest("POST", "/api/v1/discovery/swipe", `{"target_id":2,"action":"like"}`))

	require.Equal(t, http.StatusOK, rec.Code)

	var result SwipeResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.IsMatch)
	require.NotNil(t, result.Match)
	assert.Equal(t, int64(5), result.Match.ID)
}

func TestSwipeHandler_RejectsBadPayload(t *testing.T) {
	h := NewHandler(&stubService{})

	bodies := []string{
		`not json`,
		`{"target_id":2,"action":"superlike"}`,
		`{"action":"like"}`,
	}

	for _, body := range bodies {
		rec := httptest.NewRecorder()
		h.Swipe(rec, authedRequest("POST", "/api/v1/discovery/swipe", body))
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}

func TestBoostHandler_RejectsOutOfRangeDuration(t *testing.T) {
	h := NewHandler(&stubService{})

	for _, body := range []string{
		`{"duration_minutes":0}`,
		`{"duration_minutes":2000}`,
	} {
		rec := httptest.NewRecorder()
		h.Boost(rec, authedRequest("POST", "/api/v1/discovery/boost", body))
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}

func TestParseDiscoverFilters(t *testing.T) {
	req := httptest.NewRequest("GET",
		"/api/v1/discovery?gender=female&min_age=25&max_age=30&max_distance_km=12.5&online_only=true&lat=27.7&lng=85.3&limit=10&offset=20", nil)

	f, err := parseDiscoverFilters(req)
	require.NoError(t, err)

	assert.Equal(t, "female", f.Gender)
	assert.Equal(t, 25, f.MinAge)
	assert.Equal(t, 30, f.MaxAge)
	assert.Equal(t, 12.5, f.MaxDistanceKM)
	assert.True(t, f.OnlineOnly)
	require.NotNil(t, f.Latitude)
	require.NotNil(t, f.Longitude)
	assert.Equal(t, 27.7, *f.Latitude)
	assert.Equal(t, 85.3, *f.Longitude)
	assert.Equal(t, 10, f.Limit)
	assert.Equal(t, 20, f.Offset)
}
