package discovery

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/bhaskarphuyal82-star/nearmatch-sub000/internal/auth"
	"github.com/bhaskarphuyal82-star/nearmatch-sub000/internal/common/utils"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Discover(w http.ResponseWriter, r *http.Request) {
	defer observe("discover", time.Now())
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Missing authentication")
		return
	}

	filters, err := parseDiscoverFilters(r)
	if err != nil {
		utils.RespondWithErrorKind(w, http.StatusBadRequest, "invalid_filter", err.Error())
		return
	}

	if err := utils.ValidateStruct(filters); err != nil {
		utils.RespondWithErrorKind(w, http.StatusBadRequest, "invalid_filter", err.Error())
		return
	}

	result, err := h.service.Discover(r.Context(), userID, filters)
	if err != nil {
		respondEngineError(w, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, result)
}

func (h *Handler) Swipe(w http.ResponseWriter, r *http.Request) {
	defer observe("swipe", time.Now())
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Missing authentication")
		return
	}

	var req SwipeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if err := utils.ValidateStruct(&req); err != nil {
		utils.RespondWithErrorKind(w, http.StatusBadRequest, "invalid_filter", err.Error())
		return
	}

	result, err := h.service.RecordSwipe(r.Context(), userID, req.TargetID, SwipeAction(req.Action))
	if err != nil {
		respondEngineError(w, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, result)
}

func (h *Handler) TempSkip(w http.ResponseWriter, r *http.Request) {
	defer observe("temp_skip", time.Now())
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Missing authentication")
		return
	}

	var req TempSkipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if err := utils.ValidateStruct(&req); err != nil {
		utils.RespondWithErrorKind(w, http.StatusBadRequest, "invalid_filter", err.Error())
		return
	}

	if err := h.service.RecordTempSkip(r.Context(), userID, req.TargetID); err != nil {
		respondEngineError(w, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) Boost(w http.ResponseWriter, r *http.Request) {
	defer observe("boost", time.Now())
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Missing authentication")
		return
	}

	var req BoostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if err := utils.ValidateStruct(&req); err != nil {
		utils.RespondWithErrorKind(w, http.StatusBadRequest, "invalid_filter", err.Error())
		return
	}

	result, err := h.service.ActivateBoost(r.Context(), userID, time.Duration(req.DurationMinutes)*time.Minute)
	if err != nil {
		respondEngineError(w, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, result)
}

func (h *Handler) GetMatches(w http.ResponseWriter, r *http.Request) {
	defer observe("matches", time.Now())
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Missing authentication")
		return
	}

	active := true
	if activeStr := r.URL.Query().Get("active"); activeStr == "false" {
		active = false
	}

	matches, err := h.service.GetMatches(r.Context(), userID, active)
	if err != nil {
		respondEngineError(w, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, matches)
}

func (h *Handler) Unmatch(w http.ResponseWriter, r *http.Request) {
	defer observe("unmatch", time.Now())
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Missing authentication")
		return
	}

	vars := mux.Vars(r)
	matchID, err := strconv.ParseInt(vars["id"], 10, 64)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid match ID")
		return
	}

	if err := h.service.Unmatch(r.Context(), matchID, userID); err != nil {
		respondEngineError(w, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// parseDiscoverFilters reads the optional overrides off the query string
func parseDiscoverFilters(r *http.Request) (*DiscoverFilters, error) {
	q := r.URL.Query()
	f := &DiscoverFilters{
		Gender:     q.Get("gender"),
		OnlineOnly: q.Get("online_only") == "true",
	}

	var err error
	if f.MinAge, err = intParam(q.Get("min_age")); err != nil {
		return nil, errors.New("min_age must be an integer")
	}
	if f.MaxAge, err = intParam(q.Get("max_age")); err != nil {
		return nil, errors.New("max_age must be an integer")
	}
	if f.Limit, err = intParam(q.Get("limit")); err != nil {
		return nil, errors.New("limit must be an integer")
	}
	if f.Offset, err = intParam(q.Get("offset")); err != nil {
		return nil, errors.New("offset must be an integer")
	}

	if v := q.Get("max_distance_km"); v != "" {
		if f.MaxDistanceKM, err = strconv.ParseFloat(v, 64); err != nil {
			return nil, errors.New("max_distance_km must be a number")
		}
	}

	lat, lng := q.Get("lat"), q.Get("lng")
	if lat != "" || lng != "" {
		if lat == "" || lng == "" {
			return nil, errors.New("lat and lng must be provided together")
		}
		latVal, err := strconv.ParseFloat(lat, 64)
		if err != nil {
			return nil, errors.New("lat must be a number")
		}
		lngVal, err := strconv.ParseFloat(lng, 64)
		if err != nil {
			return nil, errors.New("lng must be a number")
		}
		f.Latitude = &latVal
		f.Longitude = &lngVal
	}

	return f, nil
}

func intParam(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}

// respondEngineError maps the engine taxonomy onto HTTP statuses.
// AlreadyInteracted is a conflict clients treat as a benign no-op, and
// StoreUnavailable signals a retryable condition.
func respondEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidFilter):
		utils.RespondWithErrorKind(w, http.StatusBadRequest, "invalid_filter", err.Error())
	case errors.Is(err, ErrNotFound):
		utils.RespondWithErrorKind(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, ErrMatchNotFound):
		utils.RespondWithErrorKind(w, http.StatusNotFound, "match_not_found", err.Error())
	case errors.Is(err, ErrTargetUnavailable):
		utils.RespondWithErrorKind(w, http.StatusUnprocessableEntity, "target_unavailable", err.Error())
	case errors.Is(err, ErrAlreadyInteracted):
		utils.RespondWithErrorKind(w, http.StatusConflict, "already_interacted", err.Error())
	case errors.Is(err, ErrUnauthorized):
		utils.RespondWithErrorKind(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, ErrStoreUnavailable):
		utils.RespondWithErrorKind(w, http.StatusServiceUnavailable, "store_unavailable", "profile store unavailable, retry later")
	default:
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func observe(endpoint string, start time.Time) {
	ObserveRequestDuration(endpoint, time.Since(start).Seconds())
}
