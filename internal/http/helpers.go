package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"cashplet/internal/core"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// readJSON decodes the request body, rejecting unknown fields.
func readJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(h, prefix) {
		return ""
	}
	return strings.TrimSpace(h[len(prefix):])
}

// parseDateRange reads start/end query parameters in YYYY-MM-DD form,
// defaulting to the last 30 days when absent.
func parseDateRange(r *http.Request, now time.Time) (core.DateRange, error) {
	dr := core.LastDays(now, 30)

	if v := strings.TrimSpace(r.URL.Query().Get("start")); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return core.DateRange{}, err
		}
		dr.Start = core.DateOf(t)
	}
	if v := strings.TrimSpace(r.URL.Query().Get("end")); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return core.DateRange{}, err
		}
		dr.End = core.DateOf(t)
	}
	return dr, nil
}

// sanitizeInput trims whitespace and strips control characters.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
