package request

// CaptureSelection names one capture of the repository in the URL.
type CaptureSelection struct {
	BackupID string `json:"backup_id" validate:"required,backupid"`
}

// Restore selects a capture and the target coordinates. Target names are
// checked in depth by the restore orchestrator so that rejections carry a
// restore outcome.
type Restore struct {
	BackupID       string `json:"backup_id" validate:"required,backupid"`
	TargetOrg      string `json:"target_org" validate:"required"`
	TargetProject  string `json:"target_project" validate:"required"`
	TargetRepoName string `json:"target_repo_name" validate:"required"`
	Visibility     string `json:"visibility" validate:"omitempty,oneof=private public"`
}
