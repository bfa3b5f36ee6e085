package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/erazemk/turtlealbum/internal/store"
)

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

// decodeJSON decodes a JSON request body into the given target.
func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(target)
}

// decodePatch decodes a partial update, rejecting unknown keys.
func decodePatch(r *http.Request, target any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(target)
}

// storeError maps store sentinel errors to HTTP statuses. Anything else is
// logged and reported as msg with a 500.
func storeError(w http.ResponseWriter, logger *zap.Logger, err error, msg string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		jsonError(w, http.StatusNotFound, msg+": not found")
	case errors.Is(err, store.ErrUsernameTaken):
		jsonError(w, http.StatusConflict, err.Error())
	case errors.Is(err, store.ErrValidation),
		errors.Is(err, store.ErrCodeExists),
		errors.Is(err, store.ErrSeriesNameExists),
		errors.Is(err, store.ErrSeriesInUse):
		jsonError(w, http.StatusBadRequest, err.Error())
	default:
		logger.Error(msg, zap.Error(err))
		jsonError(w, http.StatusInternalServerError, msg)
	}
}

// queryInt reads an integer query parameter. A missing parameter yields def;
// a malformed one or one outside [lo, hi] is an error.
func queryInt(r *http.Request, name string, def, lo, hi int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", name)
	}
	if n < lo || n > hi {
		return 0, fmt.Errorf("%s must be between %d and %d", name, lo, hi)
	}
	return n, nil
}

// queryBool reads a boolean query parameter, defaulting to def.
func queryBool(r *http.Request, name string, def bool) (bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s", name)
	}
	return v, nil
}
