package model

import (
	"math"
	"time"
)

// DefaultRetention is the window after which a capture counts as expired for display.
const DefaultRetention = 90 * 24 * time.Hour

// CaptureStampLayout is the time layout of a capture archive's file name stem.
const CaptureStampLayout = "2006-01-02-1504"

// RepositoryIdentity is the natural key that groups captures of one repository.
type RepositoryIdentity struct {
	Organization string `json:"org"`
	Project      string `json:"project"`
	Repository   string `json:"repo"`
}

func (id RepositoryIdentity) String() string {
	return id.Organization + "/" + id.Project + "/" + id.Repository
}

// Less orders identities lexicographically by organization, project, repository.
func (id RepositoryIdentity) Less(other RepositoryIdentity) bool {
	if id.Organization != other.Organization {
		return id.Organization < other.Organization
	}
	if id.Project != other.Project {
		return id.Project < other.Project
	}
	return id.Repository < other.Repository
}

type BackupCapture struct {
	RepositoryIdentity
	ID                 string    `json:"id"`
	CapturedAt         time.Time `json:"captured_at"`
	SizeBytes          int64     `json:"size_bytes"`
	SizeMB             float64   `json:"size_mb"`
	ObjectKey          string    `json:"object_key"`
	RetentionExpiresAt time.Time `json:"retention_expires_at"`
}

// Expired reports whether the capture's retention window has passed at now.
func (c BackupCapture) Expired(now time.Time) bool {
	return c.RetentionExpiresAt.Before(now)
}

type RepositorySummary struct {
	RepositoryIdentity
	ID                  string    `json:"id"`
	CaptureCount        int       `json:"backup_count"`
	MostRecentCaptureAt time.Time `json:"last_backup"`
}

// CaptureRef names one capture of a repository by its stamp, e.g. "2025-01-10-0930".
type CaptureRef struct {
	RepositoryIdentity
	BackupID string `json:"backup_id"`
}

type DownloadLink struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// BytesToMB converts a byte count to MiB rounded to two decimals.
func BytesToMB(n int64) float64 {
	return math.Round(float64(n)/1048576*100) / 100
}
