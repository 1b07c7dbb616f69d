package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MalformedBackupKeys counts object keys skipped by the catalog because
	// they do not follow the capture naming layout.
	MalformedBackupKeys = promauto.NewCounter(prometheus.CounterOpts{
		Name: "portal_backup_malformed_keys_total",
		Help: "Object keys skipped while building the backup catalog",
	})

	ExternalRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_backup_external_retries_total",
		Help: "Retried calls to the object store or hosting API",
	}, []string{"operation"})

	Restores = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_backup_restores_total",
		Help: "Finished restore orchestrations by status and final stage",
	}, []string{"status", "stage"})

	RestoreDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "portal_backup_restore_duration_seconds",
		Help:    "Wall time of restore orchestrations",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
	}, []string{"status"})

	LinksIssued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "portal_backup_links_issued_total",
		Help: "Signed download links issued",
	})
)
