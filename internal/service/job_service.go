package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"avplan/internal/artifact"
	"avplan/internal/config"
	"avplan/internal/domain"
	"avplan/internal/logger"
	"avplan/internal/port"
)

const (
	defaultJobBudget = 10 * time.Minute
	rollbackTimeout  = 30 * time.Second
)

// AnalyzeInput is the DTO for a plan upload.
type AnalyzeInput struct {
	Filename    string
	ContentType string
	Content     []byte
}

// InterpretTextInput is the DTO for interpreting pasted OCR text.
type InterpretTextInput struct {
	Text             string
	// Taxonomy is merged over the configured device vocabulary for this call.
	Taxonomy         map[string]string
	RequestPullSheet bool
	RequestBOM       bool
}

// InterpretTextOutput carries the interpretation and any requested tables.
type InterpretTextOutput struct {
	Result    *domain.InterpretationResult
	PullSheet string
	BOM       string
}

// JobService defines the Job Orchestrator contract.
type JobService interface {
	// Analyze runs one upload through extraction, interpretation, rendering
	// and publishing. It returns either a complete JobResult or a *domain.JobError.
	Analyze(ctx context.Context, input AnalyzeInput) (*domain.JobResult, error)
	InterpretText(ctx context.Context, input InterpretTextInput) (*InterpretTextOutput, error)
}

type jobService struct {
	extractor   port.ContentExtractor
	interpreter port.InterpretationEngine
	builder     port.ArtifactBuilder
	storage     port.ObjectStorage
	jobCfg      config.JobConfig
	storageCfg  config.StorageConfig
	now         func() time.Time
	log         zerolog.Logger
}

// NewJobService creates a JobService. The stages are shared across jobs; every
// job gets its own budget, scratch directory and storage prefix.
func NewJobService(
	extractor port.ContentExtractor,
	interpreter port.InterpretationEngine,
	builder port.ArtifactBuilder,
	storage port.ObjectStorage,
	jobCfg *config.JobConfig,
	storageCfg *config.StorageConfig,
) JobService {
	jc := *jobCfg
	if jc.Budget <= 0 {
		jc.Budget = defaultJobBudget
	}
	return &jobService{
		extractor:   extractor,
		interpreter: interpreter,
		builder:     builder,
		storage:     storage,
		jobCfg:      jc,
		storageCfg:  *storageCfg,
		now:         time.Now,
		log:         logger.WithComponent("job"),
	}
}

func (s *jobService) Analyze(ctx context.Context, input AnalyzeInput) (*domain.JobResult, error) {
	job := domain.NewJob(input.Filename, s.now(), s.jobCfg.Budget)
	log := s.log.With().Str("job_id", job.ID.String()).Str("file", input.Filename).Logger()
	log.Info().Int("size", len(input.Content)).Dur("budget", s.jobCfg.Budget).Msg("job received")

	doc, err := domain.NewUploadedDocument(input.Filename, input.ContentType, input.Content, s.jobCfg.MaxFileSizeBytes())
	if err != nil {
		return nil, s.fail(ctx, ctx, job, log, err)
	}

	jobCtx, cancel := context.WithDeadline(ctx, job.Deadline)
	defer cancel()

	workDir, err := os.MkdirTemp(s.jobCfg.WorkDir, "avplan-job-*")
	if err != nil {
		return nil, s.fail(ctx, jobCtx, job, log, fmt.Errorf("creating work dir: %w", err))
	}
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			log.Warn().Err(err).Str("work_dir", workDir).Msg("removing work dir")
		}
	}()

	// Extracting
	if err := s.advance(jobCtx, job, domain.JobExtracting, log); err != nil {
		return nil, s.fail(ctx, jobCtx, job, log, err)
	}
	content, err := s.extractor.Extract(jobCtx, doc, workDir)
	if err != nil {
		return nil, s.fail(ctx, jobCtx, job, log, err)
	}
	log.Info().Int("pages", content.PageCount).Int("segments", len(content.Segments)).Msg("extraction complete")

	// Interpreting
	if err := s.advance(jobCtx, job, domain.JobInterpreting, log); err != nil {
		return nil, s.fail(ctx, jobCtx, job, log, err)
	}
	if err := doc.Verify(); err != nil {
		return nil, s.fail(ctx, jobCtx, job, log, err)
	}
	result, err := s.interpreter.Interpret(jobCtx, content)
	if err != nil {
		return nil, s.fail(ctx, jobCtx, job, log, err)
	}

	// Building
	if err := s.advance(jobCtx, job, domain.JobBuilding, log); err != nil {
		return nil, s.fail(ctx, jobCtx, job, log, err)
	}
	if err := result.Validate(); err != nil {
		return nil, s.fail(ctx, jobCtx, job, log, fmt.Errorf("%w: %v", domain.ErrInvalidStageInput, err))
	}
	artifacts, err := s.builder.Build(result, artifact.BaseName(doc.Filename))
	if err != nil {
		return nil, s.fail(ctx, jobCtx, job, log, err)
	}
	refs, err := s.publish(jobCtx, job.ID, artifacts, log)
	if err != nil {
		return nil, s.fail(ctx, jobCtx, job, log, err)
	}

	if err := s.advance(jobCtx, job, domain.JobCompleted, log); err != nil {
		s.rollback(ctx, refs, log)
		return nil, s.fail(ctx, jobCtx, job, log, err)
	}

	res := &domain.JobResult{
		JobID: job.ID,
		State: job.State,
		Document: domain.DocumentInfo{
			Filename:    doc.Filename,
			ContentType: doc.ContentType,
			ContentHash: doc.ContentHash,
			Size:        doc.Size,
			PageCount:   content.PageCount,
		},
		Summary:           result.Summary,
		Notes:             result.Notes,
		Devices:           result.Devices,
		Paths:             result.Paths,
		SuggestedTaxonomy: result.SuggestedTaxonomy,
		Artifacts:         refs,
		Transitions:       job.Transitions,
	}
	for _, a := range artifacts {
		switch a.Kind {
		case domain.ArtifactPullSheet:
			res.CablePullSheet = a.Text
		case domain.ArtifactBOM:
			res.ReflectedBOM = a.Text
		}
	}

	log.Info().
		Int("devices", len(result.Devices)).
		Int("paths", len(result.Paths)).
		Int("artifacts", len(refs)).
		Dur("elapsed", s.now().Sub(job.CreatedAt)).
		Msg("job completed")
	return res, nil
}

func (s *jobService) InterpretText(ctx context.Context, input InterpretTextInput) (*InterpretTextOutput, error) {
	if strings.TrimSpace(input.Text) == "" {
		return nil, fmt.Errorf("%w: no text to interpret", domain.ErrEmptyDocument)
	}
	jobCtx, cancel := context.WithTimeout(ctx, s.jobCfg.Budget)
	defer cancel()

	result, err := s.interpreter.InterpretText(jobCtx, input.Text, input.Taxonomy)
	if err != nil {
		return nil, classify(ctx, jobCtx, err)
	}
	out := &InterpretTextOutput{Result: result}
	if input.RequestPullSheet || input.RequestBOM {
		pull, bom, err := s.builder.Tables(result)
		if err != nil {
			return nil, err
		}
		if input.RequestPullSheet {
			out.PullSheet = pull
		}
		if input.RequestBOM {
			out.BOM = bom
		}
	}
	return out, nil
}

// advance moves the job forward at a stage boundary, refusing once the
// budget is spent or the caller has gone away.
func (s *jobService) advance(ctx context.Context, job *domain.Job, to domain.JobState, log zerolog.Logger) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := job.Advance(to, s.now()); err != nil {
		return err
	}
	log.Debug().Str("state", string(to)).Msg("job state")
	return nil
}

// fail records the terminal failure and builds the JobError for the stage the
// job was in.
func (s *jobService) fail(parent, jobCtx context.Context, job *domain.Job, log zerolog.Logger, err error) error {
	stage := job.State
	err = classify(parent, jobCtx, err)
	jobErr := domain.NewJobError(job.ID, stage, err)
	if ferr := job.Fail(jobErr.Reason, s.now()); ferr != nil {
		log.Error().Err(ferr).Msg("recording job failure")
	}

	ev := log.Warn()
	if jobErr.Reason == domain.ReasonInternal || jobErr.Reason == domain.ReasonRender {
		ev = log.Error()
	}
	ev.Err(err).Str("stage", string(stage)).Str("reason", string(jobErr.Reason)).Msg("job failed")
	return jobErr
}

// classify turns context expiry into the job-level timeout or cancellation.
// The caller's context going away is a cancellation; the job's own deadline
// is the budget running out.
func classify(parent, jobCtx context.Context, err error) error {
	switch {
	case parent.Err() != nil:
		return fmt.Errorf("%w: %w", domain.ErrJobCanceled, err)
	case errors.Is(jobCtx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", domain.ErrJobTimeout, err)
	default:
		return err
	}
}

// publish uploads the published renderings under {prefix}/{job_id}/ and signs
// a URL for each. Any failure removes what was already uploaded.
func (s *jobService) publish(ctx context.Context, jobID uuid.UUID, artifacts []domain.Artifact, log zerolog.Logger) ([]domain.ArtifactRef, error) {
	var refs []domain.ArtifactRef
	for _, a := range artifacts {
		for _, f := range domain.PublishedFormats[a.Kind] {
			r, ok := a.Rendering(f)
			if !ok {
				s.rollback(ctx, refs, log)
				return nil, fmt.Errorf("%w: %s has no %s rendering", domain.ErrRender, a.Kind, f)
			}
			ref, err := s.upload(ctx, jobID, a.Kind, r)
			if ref != nil {
				refs = append(refs, *ref)
			}
			if err != nil {
				s.rollback(ctx, refs, log)
				return nil, fmt.Errorf("%w: %s: %w", domain.ErrPublishFailed, r.Name, err)
			}
		}
	}
	return refs, nil
}

// upload returns the ref whenever the object was written, even if signing
// its URL failed, so rollback can remove it.
func (s *jobService) upload(ctx context.Context, jobID uuid.UUID, kind domain.ArtifactKind, r domain.Rendering) (*domain.ArtifactRef, error) {
	sum := sha256.Sum256(r.Content)
	digest := hex.EncodeToString(sum[:])
	key := path.Join(s.storageCfg.Prefix, jobID.String(), r.Name)

	if _, err := s.storage.Upload(ctx, port.UploadInput{
		Bucket:      s.storageCfg.Bucket,
		Key:         key,
		Body:        bytes.NewReader(r.Content),
		ContentType: r.ContentType,
		Size:        int64(len(r.Content)),
		Metadata:    map[string]string{"job-id": jobID.String(), "sha256": digest},
	}); err != nil {
		return nil, err
	}
	ref := &domain.ArtifactRef{
		Kind:   kind,
		Format: r.Format,
		Name:   r.Name,
		Key:    key,
		Size:   int64(len(r.Content)),
		SHA256: digest,
	}
	url, err := s.storage.GetPresignedURL(ctx, s.storageCfg.Bucket, key, s.storageCfg.PresignExpiry)
	if err != nil {
		return ref, err
	}
	ref.URL = url
	return ref, nil
}

// rollback deletes published objects on a context detached from the job so
// cleanup still runs after the budget is spent.
func (s *jobService) rollback(ctx context.Context, refs []domain.ArtifactRef, log zerolog.Logger) {
	if len(refs) == 0 {
		return
	}
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), rollbackTimeout)
	defer cancel()
	for _, ref := range refs {
		if err := s.storage.Delete(cleanupCtx, s.storageCfg.Bucket, ref.Key); err != nil {
			log.Error().Err(err).Str("key", ref.Key).Msg("rolling back published artifact")
		}
	}
}
