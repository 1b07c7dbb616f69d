package hosting

import "github.com/edvin/opsportal/internal/model"

type Project struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	State      string `json:"state"`
	Visibility string `json:"visibility"`
}

type Repository struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	URL       string  `json:"url"`
	RemoteURL string  `json:"remoteUrl"`
	WebURL    string  `json:"webUrl"`
	Project   Project `json:"project"`
}

// CreateRepositoryParams names the repository to create. Visibility is
// checked against the owning project, since repositories inherit it.
type CreateRepositoryParams struct {
	Organization string
	Project      string
	Name         string
	Visibility   model.Visibility
}

type ImportStatus string

const (
	ImportQueued     ImportStatus = "queued"
	ImportInProgress ImportStatus = "inProgress"
	ImportCompleted  ImportStatus = "completed"
	ImportFailed     ImportStatus = "failed"
	ImportAbandoned  ImportStatus = "abandoned"
)

// Done reports whether the import job has reached a final state.
func (s ImportStatus) Done() bool {
	switch s {
	case ImportCompleted, ImportFailed, ImportAbandoned:
		return true
	}
	return false
}

type ImportDetailedStatus struct {
	CurrentStep  int      `json:"currentStep"`
	AllSteps     []string `json:"allSteps"`
	ErrorMessage string   `json:"errorMessage"`
}

type ImportRequest struct {
	ID             int                   `json:"importRequestId"`
	Status         ImportStatus          `json:"status"`
	DetailedStatus *ImportDetailedStatus `json:"detailedStatus"`
}

// ErrorMessage returns the hosting service's failure reason, if any.
func (r *ImportRequest) ErrorMessage() string {
	if r.DetailedStatus == nil {
		return ""
	}
	return r.DetailedStatus.ErrorMessage
}

type importRequestBody struct {
	Parameters importParameters `json:"parameters"`
}

type importParameters struct {
	GitSource gitSource `json:"gitSource"`
}

type gitSource struct {
	URL string `json:"url"`
}

type createRepositoryBody struct {
	Name    string           `json:"name"`
	Project projectReference `json:"project"`
}

type projectReference struct {
	ID string `json:"id"`
}
