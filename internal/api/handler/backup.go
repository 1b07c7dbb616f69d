package handler

import (
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	mw "github.com/edvin/opsportal/internal/api/middleware"
	"github.com/edvin/opsportal/internal/api/request"
	"github.com/edvin/opsportal/internal/api/response"
	"github.com/edvin/opsportal/internal/backup"
	"github.com/edvin/opsportal/internal/model"
)

type Backup struct {
	provider backup.Provider
	now      func() time.Time
}

func NewBackup(provider backup.Provider) *Backup {
	return &Backup{provider: provider, now: time.Now}
}

// ListRepositories godoc
//
//	@Summary		List backed-up repositories
//	@Tags			Backups
//	@Success		200 {object} response.ListResponse[model.RepositorySummary]
//	@Failure		503 {object} response.ErrorBody
//	@Router			/backups/repositories [get]
func (h *Backup) ListRepositories(w http.ResponseWriter, r *http.Request) {
	repos, err := h.provider.ListRepositories(r.Context())
	if err != nil {
		writeBackupError(w, r, err)
		return
	}
	response.WriteList(w, http.StatusOK, repos)
}

// ListVersions godoc
//
//	@Summary		List captures of a repository, newest first
//	@Tags			Backups
//	@Param			org path string true "Organization"
//	@Param			project path string true "Project"
//	@Param			repo path string true "Repository"
//	@Success		200 {object} response.ListResponse[model.BackupCapture]
//	@Failure		503 {object} response.ErrorBody
//	@Router			/backups/repositories/{org}/{project}/{repo}/versions [get]
func (h *Backup) ListVersions(w http.ResponseWriter, r *http.Request) {
	id, ok := repositoryFromPath(w, r)
	if !ok {
		return
	}
	versions, err := h.provider.ListVersions(r.Context(), id)
	if err != nil {
		writeBackupError(w, r, err)
		return
	}
	response.WriteList(w, http.StatusOK, versions)
}

// PreviewRestore godoc
//
//	@Summary		Describe a capture before restoring it
//	@Tags			Backups
//	@Param			body body request.CaptureSelection true "Capture"
//	@Success		200 {object} model.RestorePreview
//	@Failure		404 {object} response.ErrorBody
//	@Router			/backups/repositories/{org}/{project}/{repo}/restore-preview [post]
func (h *Backup) PreviewRestore(w http.ResponseWriter, r *http.Request) {
	ref, ok := captureFromRequest(w, r)
	if !ok {
		return
	}
	preview, err := h.provider.PreviewRestore(r.Context(), ref)
	if err != nil {
		writeBackupError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, preview)
}

// DownloadLink godoc
//
//	@Summary		Issue a time-limited read-only link to a capture archive
//	@Tags			Backups
//	@Param			body body request.CaptureSelection true "Capture"
//	@Success		200 {object} model.DownloadLink
//	@Failure		404 {object} response.ErrorBody
//	@Failure		503 {object} response.ErrorBody
//	@Router			/backups/repositories/{org}/{project}/{repo}/download-link [post]
func (h *Backup) DownloadLink(w http.ResponseWriter, r *http.Request) {
	ref, ok := captureFromRequest(w, r)
	if !ok {
		return
	}
	link, err := h.provider.IssueDownloadLink(r.Context(), ref)
	if err != nil {
		writeBackupError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, link)
}

// Restore godoc
//
//	@Summary		Restore a capture into a new repository
//	@Description	Blocks until the import finishes, fails or times out.
//	@Tags			Backups
//	@Param			body body request.Restore true "Capture and target"
//	@Success		200 {object} model.RestoreOutcome
//	@Failure		400 {object} model.RestoreOutcome
//	@Failure		409 {object} model.RestoreOutcome
//	@Failure		422 {object} model.RestoreOutcome
//	@Failure		504 {object} model.RestoreOutcome
//	@Router			/backups/repositories/{org}/{project}/{repo}/restore [post]
func (h *Backup) Restore(w http.ResponseWriter, r *http.Request) {
	id, ok := repositoryFromPath(w, r)
	if !ok {
		return
	}
	var req request.Restore
	if err := request.Decode(r, &req); err != nil {
		response.WriteKindError(w, http.StatusBadRequest, err.Error(), string(model.KindInvalidTarget), false)
		return
	}

	restore := model.RestoreRequest{
		Source:               model.CaptureRef{RepositoryIdentity: id, BackupID: req.BackupID},
		TargetOrganization:   req.TargetOrg,
		TargetProject:        req.TargetProject,
		TargetRepositoryName: req.TargetRepoName,
		Visibility:           model.Visibility(req.Visibility),
	}
	if p, ok := mw.GetPrincipal(r.Context()); ok {
		restore.RequestedBy = p.Name
	}

	outcome := h.provider.Restore(r.Context(), restore)
	status := http.StatusOK
	if !outcome.Succeeded() {
		status = http.StatusInternalServerError
		if outcome.Failure != nil {
			status = statusForKind(outcome.Failure.Kind)
		}
	}
	response.WriteJSON(w, status, outcome)
}

// Status godoc
//
//	@Summary		Capture freshness per repository
//	@Tags			Backups
//	@Success		200 {object} backup.StatusReport
//	@Router			/backups/status [get]
func (h *Backup) Status(w http.ResponseWriter, r *http.Request) {
	repos, err := h.provider.ListRepositories(r.Context())
	if err != nil {
		writeBackupError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, backup.BuildStatus(repos, h.now()))
}

func repositoryFromPath(w http.ResponseWriter, r *http.Request) (model.RepositoryIdentity, bool) {
	var id model.RepositoryIdentity
	for _, p := range []struct {
		key  string
		dest *string
	}{
		{"org", &id.Organization},
		{"project", &id.Project},
		{"repo", &id.Repository},
	} {
		v, err := pathParam(r, p.key)
		if err != nil || v == "" {
			response.WriteError(w, http.StatusBadRequest, "invalid path parameter "+p.key)
			return id, false
		}
		*p.dest = v
	}
	return id, true
}

func captureFromRequest(w http.ResponseWriter, r *http.Request) (model.CaptureRef, bool) {
	id, ok := repositoryFromPath(w, r)
	if !ok {
		return model.CaptureRef{}, false
	}
	var req request.CaptureSelection
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return model.CaptureRef{}, false
	}
	return model.CaptureRef{RepositoryIdentity: id, BackupID: req.BackupID}, true
}

// pathParam returns the decoded chi URL parameter. chi matches on the raw
// path when the request path has escaped slashes, leaving the value encoded.
func pathParam(r *http.Request, key string) (string, error) {
	v := chi.URLParam(r, key)
	if r.URL.RawPath == "" {
		return v, nil
	}
	return url.PathUnescape(v)
}

func statusForKind(kind model.ErrorKind) int {
	switch kind {
	case model.KindInvalidTarget, model.KindMalformedKey:
		return http.StatusBadRequest
	case model.KindObjectNotFound:
		return http.StatusNotFound
	case model.KindTargetAlreadyExists:
		return http.StatusConflict
	case model.KindHostingAPIRejected, model.KindImportFailed:
		return http.StatusUnprocessableEntity
	case model.KindStorageUnavailable, model.KindSigningUnavailable, model.KindHostingUnavailable:
		return http.StatusServiceUnavailable
	case model.KindImportTimedOut:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeBackupError(w http.ResponseWriter, r *http.Request, err error) {
	kind := backup.KindOf(err)
	status := statusForKind(kind)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("backup request failed")
		if errors.Is(err, r.Context().Err()) {
			msg = "request cancelled"
		} else {
			msg = "internal error"
		}
	}
	response.WriteKindError(w, status, msg, string(kind), backup.IsRetryable(err))
}
