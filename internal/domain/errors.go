package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrUnsupportedFileType   = errors.New("unsupported file type")
	ErrFileTooLarge          = errors.New("file exceeds maximum allowed size")
	ErrUnreadableDocument    = errors.New("document is corrupt, encrypted, or not in a supported format")
	ErrEmptyDocument         = errors.New("no page yielded usable content")
	ErrLowConfidenceDocument = errors.New("every extracted segment is below the confidence threshold")
	ErrExtractionFailed      = errors.New("extraction backend failed")
	ErrInterpretationTimeout = errors.New("interpretation call exceeded its deadline")
	ErrMalformedResponse     = errors.New("interpretation response does not match the schema")
	ErrInterpretationFailed  = errors.New("interpretation backend failed")
	ErrRender                = errors.New("artifact render failed")
	ErrPublishFailed         = errors.New("artifact upload to storage failed")
	ErrJobTimeout            = errors.New("job time budget exhausted")
	ErrJobCanceled           = errors.New("job canceled")
	ErrInvalidStageInput     = errors.New("stage input failed validation")
)

// FailureReason is the stable code reported for a failed job.
type FailureReason string

const (
	ReasonUnsupportedFileType   FailureReason = "UNSUPPORTED_FILE_TYPE"
	ReasonFileTooLarge          FailureReason = "FILE_TOO_LARGE"
	ReasonUnreadableDocument    FailureReason = "UNREADABLE_DOCUMENT"
	ReasonEmptyDocument         FailureReason = "EMPTY_DOCUMENT"
	ReasonLowConfidenceDocument FailureReason = "LOW_CONFIDENCE_DOCUMENT"
	ReasonExtractionFailed      FailureReason = "EXTRACTION_FAILED"
	ReasonInterpretationTimeout FailureReason = "INTERPRETATION_TIMEOUT"
	ReasonMalformedResponse     FailureReason = "MALFORMED_RESPONSE"
	ReasonInterpretationFailed  FailureReason = "INTERPRETATION_FAILED"
	ReasonRender                FailureReason = "RENDER_ERROR"
	ReasonPublishFailed         FailureReason = "PUBLISH_FAILED"
	ReasonTimeout               FailureReason = "TIMEOUT"
	ReasonCanceled              FailureReason = "CANCELED"
	ReasonInvalidStageInput     FailureReason = "INVALID_STAGE_INPUT"
	ReasonInternal              FailureReason = "INTERNAL_ERROR"
)

var reasonBySentinel = []struct {
	err    error
	reason FailureReason
}{
	{ErrJobTimeout, ReasonTimeout},
	{ErrJobCanceled, ReasonCanceled},
	{ErrUnsupportedFileType, ReasonUnsupportedFileType},
	{ErrFileTooLarge, ReasonFileTooLarge},
	{ErrUnreadableDocument, ReasonUnreadableDocument},
	{ErrEmptyDocument, ReasonEmptyDocument},
	{ErrLowConfidenceDocument, ReasonLowConfidenceDocument},
	{ErrExtractionFailed, ReasonExtractionFailed},
	{ErrInterpretationTimeout, ReasonInterpretationTimeout},
	{ErrMalformedResponse, ReasonMalformedResponse},
	{ErrInterpretationFailed, ReasonInterpretationFailed},
	{ErrRender, ReasonRender},
	{ErrPublishFailed, ReasonPublishFailed},
	{ErrInvalidStageInput, ReasonInvalidStageInput},
}

// ReasonFor classifies an error into its failure reason code.
func ReasonFor(err error) FailureReason {
	for _, s := range reasonBySentinel {
		if errors.Is(err, s.err) {
			return s.reason
		}
	}
	return ReasonInternal
}

// JobError is the single terminal failure reported for a job.
type JobError struct {
	JobID  uuid.UUID
	Stage  JobState
	Reason FailureReason
	Err    error
}

// NewJobError builds a JobError, deriving the reason from err.
func NewJobError(jobID uuid.UUID, stage JobState, err error) *JobError {
	return &JobError{JobID: jobID, Stage: stage, Reason: ReasonFor(err), Err: err}
}

func (e *JobError) Error() string {
	return fmt.Sprintf("job %s failed during %s (%s): %v", e.JobID, e.Stage, e.Reason, e.Err)
}

func (e *JobError) Unwrap() error {
	return e.Err
}
