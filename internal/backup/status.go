package backup

import (
	"time"

	"github.com/edvin/opsportal/internal/model"
)

// StaleAfter is how old a repository's newest capture may get before the
// repository is reported as stale.
const StaleAfter = 48 * time.Hour

type HealthState string

const (
	HealthHealthy HealthState = "Healthy"
	HealthStale   HealthState = "Stale"
)

type RepositoryStatus struct {
	Name       string      `json:"name"`
	Org        string      `json:"org"`
	Project    string      `json:"project"`
	Status     HealthState `json:"status"`
	LastBackup time.Time   `json:"last_backup"`
	Backups    int         `json:"backup_count"`
}

type StatusSummary struct {
	RepositoriesMonitored int        `json:"repositories_monitored"`
	Healthy               int        `json:"healthy"`
	Failing               int        `json:"failing"`
	LastRun               *time.Time `json:"last_run"`
}

type StatusReport struct {
	Summary      StatusSummary      `json:"summary"`
	Repositories []RepositoryStatus `json:"repositories"`
}

// BuildStatus reports per-repository capture freshness at now.
func BuildStatus(summaries []model.RepositorySummary, now time.Time) StatusReport {
	report := StatusReport{Repositories: make([]RepositoryStatus, 0, len(summaries))}
	for _, s := range summaries {
		state := HealthHealthy
		if now.Sub(s.MostRecentCaptureAt) > StaleAfter {
			state = HealthStale
			report.Summary.Failing++
		} else {
			report.Summary.Healthy++
		}
		if report.Summary.LastRun == nil || s.MostRecentCaptureAt.After(*report.Summary.LastRun) {
			last := s.MostRecentCaptureAt
			report.Summary.LastRun = &last
		}
		report.Repositories = append(report.Repositories, RepositoryStatus{
			Name:       s.Repository,
			Org:        s.Organization,
			Project:    s.Project,
			Status:     state,
			LastBackup: s.MostRecentCaptureAt,
			Backups:    s.CaptureCount,
		})
	}
	report.Summary.RepositoriesMonitored = len(summaries)
	return report
}
