package model

import "time"

type Visibility string

const (
	VisibilityPrivate Visibility = "private"
	VisibilityPublic  Visibility = "public"
)

// RestoreStage is a step of the restore state machine.
type RestoreStage string

const (
	StageValidating     RestoreStage = "validating"
	StageFetchingSource RestoreStage = "fetching_source"
	StageCreatingTarget RestoreStage = "creating_target"
	StageImporting      RestoreStage = "importing"
	StageSucceeded      RestoreStage = "succeeded"
	StageFailed         RestoreStage = "failed"
)

type RestoreStatus string

const (
	RestoreSucceeded RestoreStatus = "succeeded"
	RestoreFailed    RestoreStatus = "failed"
)

// ErrorKind names a failure class surfaced to callers.
type ErrorKind string

const (
	KindMalformedKey        ErrorKind = "malformed_key"
	KindStorageUnavailable  ErrorKind = "storage_unavailable"
	KindObjectNotFound      ErrorKind = "object_not_found"
	KindSigningUnavailable  ErrorKind = "signing_unavailable"
	KindInvalidTarget       ErrorKind = "invalid_target"
	KindTargetAlreadyExists ErrorKind = "target_already_exists"
	KindHostingAPIRejected  ErrorKind = "hosting_api_rejected"
	KindHostingUnavailable  ErrorKind = "hosting_unavailable"
	KindImportTimedOut      ErrorKind = "import_timed_out"
	KindImportFailed        ErrorKind = "import_failed"
	KindInternal            ErrorKind = "internal"
)

type RestoreRequest struct {
	Source               CaptureRef
	TargetOrganization   string     `validate:"required,orgname"`
	TargetProject        string     `validate:"required,projectname"`
	TargetRepositoryName string     `validate:"required,reponame"`
	Visibility           Visibility `validate:"oneof=private public"`

	// RequestedBy is the authorized principal, recorded in the audit log only.
	RequestedBy string
}

// FailureDetail explains where a restore stopped. TargetCreated is the one
// persistent side effect an operator has to know about.
type FailureDetail struct {
	Stage               RestoreStage `json:"stage"`
	Kind                ErrorKind    `json:"kind"`
	Retryable           bool         `json:"retryable"`
	TargetCreated       bool         `json:"target_created"`
	TargetRepositoryURL string       `json:"target_repository_url,omitempty"`
}

type RestoreOutcome struct {
	RestoreID            string         `json:"restore_id"`
	Status               RestoreStatus  `json:"status"`
	Message              string         `json:"message"`
	CreatedRepositoryURL string         `json:"created_repository_url,omitempty"`
	FallbackDownloadURL  string         `json:"fallback_download_url,omitempty"`
	Failure              *FailureDetail `json:"failure,omitempty"`
}

func (o RestoreOutcome) Succeeded() bool {
	return o.Status == RestoreSucceeded
}

type RestorePreview struct {
	SourceOrganization            string    `json:"source_org"`
	SourceProject                 string    `json:"source_project"`
	SourceRepository              string    `json:"source_repo"`
	BackupID                      string    `json:"backup_id"`
	CapturedAt                    time.Time `json:"backup_timestamp"`
	SizeBytes                     int64     `json:"backup_size_bytes"`
	SizeMB                        float64   `json:"backup_size_mb"`
	SuggestedTargetRepositoryName string    `json:"suggested_target_repo_name"`
}
