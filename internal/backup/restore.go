package backup

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/edvin/opsportal/internal/hosting"
	"github.com/edvin/opsportal/internal/metrics"
	"github.com/edvin/opsportal/internal/model"
)

const (
	DefaultPollInterval  = 5 * time.Second
	DefaultImportTimeout = 10 * time.Minute

	// defaultRestoreSlack is the time allowed for the stages before importing
	// when no overall restore timeout is configured.
	defaultRestoreSlack = 5 * time.Minute
)

// HostingClient is the part of the hosting API a restore needs: create an
// empty repository, submit an import job into it and poll that job.
type HostingClient interface {
	CreateRepository(ctx context.Context, params hosting.CreateRepositoryParams) (*hosting.Repository, error)
	SubmitImport(ctx context.Context, org, project, repositoryID, sourceURL string) (*hosting.ImportRequest, error)
	GetImport(ctx context.Context, org, project, repositoryID string, importID int) (*hosting.ImportRequest, error)
	CheckCredentials(ctx context.Context) error
}

// Orchestrator runs restores as a strict sequence of stages. It never deletes
// a target repository it created, even when a later stage fails.
type Orchestrator struct {
	catalog       *Catalog
	links         *LinkIssuer
	hosting       HostingClient
	retry         RetryPolicy
	pollInterval  time.Duration
	importTimeout time.Duration
	// restoreTimeout bounds a whole restore so its outcome can still be
	// delivered to a caller with a write deadline.
	restoreTimeout time.Duration
	logger         zerolog.Logger
	now            func() time.Time
}

func NewOrchestrator(catalog *Catalog, links *LinkIssuer, hc HostingClient, retry RetryPolicy,
	pollInterval, importTimeout, restoreTimeout time.Duration, logger zerolog.Logger) *Orchestrator {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	if importTimeout <= 0 {
		importTimeout = DefaultImportTimeout
	}
	if restoreTimeout <= 0 {
		restoreTimeout = importTimeout + defaultRestoreSlack
	}
	return &Orchestrator{
		catalog:        catalog,
		links:          links,
		hosting:        hc,
		retry:          retry,
		pollInterval:   pollInterval,
		importTimeout:  importTimeout,
		restoreTimeout: restoreTimeout,
		logger:         logger.With().Str("component", "restore-orchestrator").Logger(),
		now:            time.Now,
	}
}

// restoreRun is the state of one orchestration.
type restoreRun struct {
	id      string
	req     model.RestoreRequest
	stage   model.RestoreStage
	capture model.BackupCapture
	link    *model.DownloadLink
	repo    *hosting.Repository
	logger  zerolog.Logger
}

// Preview resolves a capture and suggests a target name without side effects.
func (o *Orchestrator) Preview(ctx context.Context, ref model.CaptureRef) (*model.RestorePreview, error) {
	capture, err := o.catalog.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	return &model.RestorePreview{
		SourceOrganization:            capture.Organization,
		SourceProject:                 capture.Project,
		SourceRepository:              capture.Repository,
		BackupID:                      capture.ID,
		CapturedAt:                    capture.CapturedAt,
		SizeBytes:                     capture.SizeBytes,
		SizeMB:                        capture.SizeMB,
		SuggestedTargetRepositoryName: SuggestTargetName(capture),
	}, nil
}

// SuggestTargetName derives a restore target name that does not collide with
// the source repository, e.g. "ledger-svc-restore-20250110". The result always
// passes target validation, whatever characters the source name contains.
func SuggestTargetName(capture model.BackupCapture) string {
	suffix := "-restore-" + capture.CapturedAt.Format("20060102")
	base := sanitizeRepositoryName(capture.Repository)
	if limit := MaxRepositoryNameLength - len(suffix); len(base) > limit {
		base = strings.TrimRight(base[:limit], ".-")
	}
	return base + suffix
}

// sanitizeRepositoryName maps name onto [A-Za-z0-9._-]. Other runes become
// '-', runs of '-' and '.' collapse and the result starts alphanumeric. The
// output is ASCII, so byte offsets are rune boundaries.
func sanitizeRepositoryName(name string) string {
	var b strings.Builder
	var last rune
	for _, r := range name {
		switch {
		case r < utf8.RuneSelf && (unicode.IsLetter(r) || unicode.IsDigit(r)):
		case r == '.' || r == '_' || r == '-':
			if b.Len() == 0 {
				continue
			}
		default:
			r = '-'
		}
		if (r == '-' || r == '.') && (last == '-' || last == '.' || b.Len() == 0) {
			continue
		}
		b.WriteRune(r)
		last = r
	}
	out := strings.TrimRight(b.String(), ".-")
	if out == "" {
		return "repository"
	}
	return out
}

// Restore drives validating, fetching_source, creating_target and importing
// in order and reports the outcome. It always returns an outcome; failures
// are described in it rather than returned as errors.
func (o *Orchestrator) Restore(ctx context.Context, req model.RestoreRequest) model.RestoreOutcome {
	start := o.now()
	run := &restoreRun{
		id:  uuid.NewString(),
		req: req,
	}
	run.logger = o.logger.With().Str("restore_id", run.id).Logger()

	ctx, cancel := context.WithTimeout(ctx, o.restoreTimeout)
	defer cancel()
	err := o.execute(ctx, run)
	outcome := o.outcome(run, err)

	metrics.Restores.WithLabelValues(string(outcome.Status), string(run.stage)).Inc()
	metrics.RestoreDuration.WithLabelValues(string(outcome.Status)).Observe(o.now().Sub(start).Seconds())

	evt := run.logger.Info()
	if err != nil {
		evt = run.logger.Warn().Err(err).Str("failed_stage", string(run.stage))
	}
	evt.Str("source", run.req.Source.RepositoryIdentity.String()).
		Str("backup_id", run.req.Source.BackupID).
		Str("target", run.req.TargetOrganization+"/"+run.req.TargetProject+"/"+run.req.TargetRepositoryName).
		Str("requested_by", run.req.RequestedBy).
		Str("status", string(outcome.Status)).
		Bool("target_created", run.repo != nil).
		Dur("duration", o.now().Sub(start)).
		Msg("restore finished")

	return outcome
}

func (o *Orchestrator) execute(ctx context.Context, run *restoreRun) error {
	steps := []struct {
		stage model.RestoreStage
		fn    func(context.Context, *restoreRun) error
	}{
		{model.StageValidating, o.validating},
		{model.StageFetchingSource, o.fetchingSource},
		{model.StageCreatingTarget, o.creatingTarget},
		{model.StageImporting, o.importing},
	}
	for _, step := range steps {
		run.stage = step.stage
		run.logger.Debug().Str("stage", string(step.stage)).Msg("restore stage")
		if err := step.fn(ctx, run); err != nil {
			return err
		}
	}
	run.stage = model.StageSucceeded
	return nil
}

func (o *Orchestrator) validating(ctx context.Context, run *restoreRun) error {
	if err := validateTarget(&run.req); err != nil {
		return err
	}
	capture, err := o.catalog.Resolve(ctx, run.req.Source)
	if err != nil {
		return err
	}
	run.capture = capture
	return nil
}

func (o *Orchestrator) fetchingSource(ctx context.Context, run *restoreRun) error {
	link, err := o.links.sign(ctx, run.capture)
	if err != nil {
		return err
	}
	run.link = link
	return nil
}

func (o *Orchestrator) creatingTarget(ctx context.Context, run *restoreRun) error {
	params := hosting.CreateRepositoryParams{
		Organization: run.req.TargetOrganization,
		Project:      run.req.TargetProject,
		Name:         run.req.TargetRepositoryName,
		Visibility:   run.req.Visibility,
	}
	target := params.Organization + "/" + params.Project + "/" + params.Name

	// A transient failure may hide a create the hosting API did perform.
	sawTransient := false
	repo, err := withRetry(ctx, o.retry, run.logger, "create_repository",
		func(err error) bool { return !hosting.IsTransient(err) },
		func(ctx context.Context) (*hosting.Repository, error) {
			repo, err := o.hosting.CreateRepository(ctx, params)
			if hosting.IsTransient(err) {
				sawTransient = true
			}
			return repo, err
		})
	if err == nil {
		run.repo = repo
		return nil
	}

	switch {
	case errors.Is(err, hosting.ErrAlreadyExists):
		if sawTransient {
			return fmt.Errorf("%w: %s (an earlier attempt that failed transiently may have created it): %w",
				ErrTargetAlreadyExists, target, err)
		}
		return fmt.Errorf("%w: %s: %w", ErrTargetAlreadyExists, target, err)
	case ctx.Err() != nil:
		return fmt.Errorf("%w: creating %s was interrupted and may have completed: %w", ErrHostingUnavailable, target, ctx.Err())
	case hosting.IsTransient(err):
		return fmt.Errorf("%w: creating %s: %w", ErrHostingUnavailable, target, err)
	default:
		return fmt.Errorf("%w: creating %s: %w", ErrHostingAPIRejected, target, err)
	}
}

// importing submits the import once and polls it on a fixed interval until
// it finishes or the import budget runs out.
func (o *Orchestrator) importing(ctx context.Context, run *restoreRun) error {
	org, project := run.req.TargetOrganization, run.req.TargetProject

	job, err := o.hosting.SubmitImport(ctx, org, project, run.repo.ID, run.link.URL)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: import submission was interrupted and may have been accepted: %w", ErrImportTimedOut, ctx.Err())
		}
		return fmt.Errorf("%w: import submission rejected: %w", ErrImportFailed, err)
	}

	pollCtx, cancel := context.WithTimeout(ctx, o.importTimeout)
	defer cancel()
	ticker := time.NewTicker(o.pollInterval)
	defer ticker.Stop()

	for !job.Status.Done() {
		select {
		case <-pollCtx.Done():
			switch {
			case errors.Is(ctx.Err(), context.Canceled):
				return fmt.Errorf("%w: restore cancelled while import %d was %s; it may still complete", ErrImportTimedOut, job.ID, job.Status)
			case ctx.Err() != nil:
				return fmt.Errorf("%w: import %d still %s when the restore deadline of %s passed; it may still complete", ErrImportTimedOut, job.ID, job.Status, o.restoreTimeout)
			}
			return fmt.Errorf("%w: import %d still %s after %s; it may still complete", ErrImportTimedOut, job.ID, job.Status, o.importTimeout)
		case <-ticker.C:
		}

		next, err := o.hosting.GetImport(pollCtx, org, project, run.repo.ID, job.ID)
		switch {
		case err == nil:
			job = next
		case pollCtx.Err() != nil:
			// Reported by the Done case on the next iteration.
		case hosting.IsTransient(err):
			run.logger.Warn().Err(err).Int("import_id", job.ID).Msg("import status poll failed, polling again")
		default:
			return fmt.Errorf("%w: import %d status unknown, it may still complete: %w", ErrImportTimedOut, job.ID, err)
		}
	}

	if job.Status == hosting.ImportCompleted {
		return nil
	}
	msg := job.ErrorMessage()
	if msg == "" {
		msg = "no reason given"
	}
	return fmt.Errorf("%w: import %d %s: %s", ErrImportFailed, job.ID, job.Status, msg)
}

func repositoryURL(repo *hosting.Repository) string {
	if repo.WebURL != "" {
		return repo.WebURL
	}
	return repo.RemoteURL
}

func (o *Orchestrator) outcome(run *restoreRun, err error) model.RestoreOutcome {
	target := run.req.TargetOrganization + "/" + run.req.TargetProject + "/" + run.req.TargetRepositoryName
	if err == nil {
		return model.RestoreOutcome{
			RestoreID:            run.id,
			Status:               model.RestoreSucceeded,
			Message:              fmt.Sprintf("Restored %s backup %s to %s", run.capture.RepositoryIdentity, run.capture.ID, target),
			CreatedRepositoryURL: repositoryURL(run.repo),
		}
	}

	out := model.RestoreOutcome{
		RestoreID: run.id,
		Status:    model.RestoreFailed,
		Message:   fmt.Sprintf("Restore failed while %s: %v", stageVerb(run.stage), err),
		Failure: &model.FailureDetail{
			Stage:     run.stage,
			Kind:      KindOf(err),
			Retryable: IsRetryable(err),
		},
	}
	if run.repo != nil {
		u := repositoryURL(run.repo)
		out.CreatedRepositoryURL = u
		out.Failure.TargetCreated = true
		out.Failure.TargetRepositoryURL = u
		out.Message += fmt.Sprintf(". Target repository %s was created at %s but the import did not complete; inspect or delete it manually.", target, u)
	}
	if run.link != nil && run.stage == model.StageImporting {
		out.FallbackDownloadURL = run.link.URL
	}
	return out
}

func stageVerb(stage model.RestoreStage) string {
	switch stage {
	case model.StageValidating:
		return "validating the request"
	case model.StageFetchingSource:
		return "fetching the backup"
	case model.StageCreatingTarget:
		return "creating the target repository"
	case model.StageImporting:
		return "importing the backup"
	}
	return string(stage)
}
