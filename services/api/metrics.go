package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsAccepted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sbomd_api_generation_requests_accepted_total",
		Help: "Generation requests accepted through the REST intake, by type.",
	}, []string{"type"})

	requestsRejectedDryRun = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sbomd_api_generation_requests_rejected_dry_run_total",
		Help: "Generation requests rejected because the service runs in dry-run mode.",
	})
)
