package api

import (
	"errors"
	"net/http"
	"time"

	"sbomd/pkg/db"
)

// Stats summarizes service state for dashboards.
type Stats struct {
	Version   string         `json:"version"`
	UptimeSec int64          `json:"uptimeSeconds"`
	Resources StatsResources `json:"resources"`
}

type StatsResources struct {
	Sboms    StatsSboms    `json:"sboms"`
	Requests StatsRequests `json:"generationRequests"`
}

type StatsSboms struct {
	Total int64 `json:"total"`
}

type StatsRequests struct {
	Total      int64 `json:"total"`
	InProgress int64 `json:"inProgress"`
}

func (a *API) handleStats(w http.ResponseWriter, r *http.Request) {
	if a.store.DB == nil {
		respondJSON(w, http.StatusFailedDependency, map[string]any{
			"error":   errors.New("stats database not configured").Error(),
			"errorId": "",
		})
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	stats := Stats{
		Version:   serviceVersion,
		UptimeSec: int64(time.Since(a.started) / time.Second),
	}

	if err := db.Get(ctx, a.store.DB, &stats.Resources.Sboms.Total,
		`SELECT count(*) FROM sboms`); err != nil {
		respondError(w, err)
		return
	}
	if err := db.Get(ctx, a.store.DB, &stats.Resources.Requests.Total,
		`SELECT count(*) FROM generation_requests`); err != nil {
		respondError(w, err)
		return
	}
	if err := db.Get(ctx, a.store.DB, &stats.Resources.Requests.InProgress,
		`SELECT count(*) FROM generation_requests WHERE status = 'IN_PROGRESS'`); err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, stats)
}
