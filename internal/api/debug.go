package api

import (
	"encoding/json"
	"net/http"
	"os"
	"time"

	"courierplan/internal/buildinfo"
	"courierplan/internal/params"
)

func (s *Server) DebugJSON(w http.ResponseWriter, r *http.Request) {
	info := map[string]any{
		"build":      buildinfo.Info(),
		"time":       time.Now().UTC().Format(time.RFC3339),
		"modelTypes": params.ModeNames(),
		"config": map[string]any{
			"PORT":                 os.Getenv("PORT"),
			"RATE_RPS":             os.Getenv("RATE_RPS"),
			"RATE_BURST":           os.Getenv("RATE_BURST"),
			"WEBHOOK_MAX_ATTEMPTS": os.Getenv("WEBHOOK_MAX_ATTEMPTS"),
			"SOLVE_TIME_LIMIT_S":   os.Getenv("SOLVE_TIME_LIMIT_S"),
			"HAS_DATABASE_URL":     os.Getenv("DATABASE_URL") != "",
			"HAS_SQLITE_PATH":      os.Getenv("SQLITE_PATH") != "",
			"HAS_REDIS_URL":        os.Getenv("REDIS_URL") != "",
		},
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(info)
}
