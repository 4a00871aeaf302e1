package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/johnquangdev/qa-review/errors"
	dto "github.com/johnquangdev/qa-review/internal/adapter/dto/criteria"
	transcriptDTO "github.com/johnquangdev/qa-review/internal/adapter/dto/transcript"
	"github.com/johnquangdev/qa-review/internal/adapter/presenter"
	"github.com/johnquangdev/qa-review/internal/usecase/importer"
	"github.com/johnquangdev/qa-review/internal/usecase/recording"
	"github.com/johnquangdev/qa-review/internal/usecase/scoring"
	"github.com/johnquangdev/qa-review/internal/usecase/transcription"
)

// Recording handles recording-scoped HTTP requests: audio links,
// transcript import and evaluations
type Recording struct {
	recordings     recording.Service
	transcriptions transcription.Service
	importer       importer.Service
	scoring        scoring.Service
	logger         *zap.Logger
}

// NewRecordingHandler creates a new recording handler
func NewRecordingHandler(
	recordings recording.Service,
	transcriptions transcription.Service,
	importSvc importer.Service,
	scoringSvc scoring.Service,
	logger *zap.Logger,
) *Recording {
	return &Recording{
		recordings:     recordings,
		transcriptions: transcriptions,
		importer:       importSvc,
		scoring:        scoringSvc,
		logger:         logger,
	}
}

// GetRecording handles GET /recordings/:id
// @Summary      Get a recording
// @Tags         Recordings
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Recording ID (UUID)"
// @Success      200  {object}  entities.Recording
// @Failure      404  {object}  common.ErrorResponse  "Recording not found"
// @Router       /recordings/{id} [get]
func (h *Recording) GetRecording(c echo.Context) error {
	subject, err := subjectFrom(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	id, err := pathUUID(c, "id")
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	rec, err := h.recordings.Get(c.Request().Context(), subject, id)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, rec)
}

// GetAudioURL handles GET /recordings/:id/audio-url
// @Summary      Get a time-limited link to the recording audio
// @Tags         Recordings
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Recording ID (UUID)"
// @Success      200  {object}  recording.AudioURL
// @Failure      404  {object}  common.ErrorResponse  "Recording or audio not found"
// @Router       /recordings/{id}/audio-url [get]
func (h *Recording) GetAudioURL(c echo.Context) error {
	subject, err := subjectFrom(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	id, err := pathUUID(c, "id")
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	link, err := h.recordings.AudioURL(c.Request().Context(), subject, id)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, link)
}

// GetTranscription handles GET /recordings/:id/transcription
// @Summary      Get the transcript of a recording
// @Tags         Recordings
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Recording ID (UUID)"
// @Success      200  {object}  transcript.TranscriptionResponse
// @Router       /recordings/{id}/transcription [get]
func (h *Recording) GetTranscription(c echo.Context) error {
	subject, err := subjectFrom(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	id, err := pathUUID(c, "id")
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	view, err := h.transcriptions.GetByRecording(c.Request().Context(), subject, id)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, presenter.ToTranscriptionResponse(view))
}

// ImportTranscription handles POST /recordings/:id/transcription/import
// @Summary      Import an AssemblyAI transcript
// @Description  Completed transcripts are stored right away; others are linked and completed by the webhook
// @Tags         Recordings
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                   true  "Recording ID (UUID)"
// @Param        request  body      transcript.ImportRequest  true  "Provider transcript"
// @Success      201      {object}  entities.Transcription
// @Failure      502      {object}  common.ErrorResponse  "Provider unavailable"
// @Router       /recordings/{id}/transcription/import [post]
func (h *Recording) ImportTranscription(c echo.Context) error {
	subject, err := subjectFrom(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	id, err := pathUUID(c, "id")
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	if h.importer == nil {
		return HandleError(h.logger, c, errors.FromCode(errors.ErrorCode_INTEGRATION_EXTERNAL_API_FAILED, http.StatusNotImplemented, "transcript import is not configured"))
	}
	var req transcriptDTO.ImportRequest
	if err := bindAndValidate(c, &req); err != nil {
		return HandleError(h.logger, c, err)
	}

	imported, err := h.importer.Import(c.Request().Context(), subject, id, req.ExternalID)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleCreated(h.logger, c, imported)
}

// SubmitEvaluation handles POST /recordings/:id/evaluations
// @Summary      Score a recording and store the evaluation
// @Tags         Scoring
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                            true  "Recording ID (UUID)"
// @Param        request  body      criteria.SubmitEvaluationRequest  true  "Evaluation"
// @Success      201      {object}  criteria.EvaluationResponse
// @Router       /recordings/{id}/evaluations [post]
func (h *Recording) SubmitEvaluation(c echo.Context) error {
	subject, err := subjectFrom(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	id, err := pathUUID(c, "id")
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	var req dto.SubmitEvaluationRequest
	if err := bindAndValidate(c, &req); err != nil {
		return HandleError(h.logger, c, err)
	}
	in, err := toScoringInput(req.ScoreRequest)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	evaluation, err := h.scoring.SubmitEvaluation(c.Request().Context(), subject, id, scoring.SubmitInput{
		CriteriaID: req.CriteriaID,
		Input:      in,
		Comment:    req.Comment,
	})
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleCreated(h.logger, c, presenter.ToEvaluationResponse(evaluation))
}

// ListEvaluations handles GET /recordings/:id/evaluations
// @Summary      List the evaluations of a recording
// @Tags         Scoring
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Recording ID (UUID)"
// @Success      200  {array}   criteria.EvaluationResponse
// @Router       /recordings/{id}/evaluations [get]
func (h *Recording) ListEvaluations(c echo.Context) error {
	subject, err := subjectFrom(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	id, err := pathUUID(c, "id")
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	list, err := h.scoring.ListEvaluations(c.Request().Context(), subject, id)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	out := make([]*dto.EvaluationResponse, 0, len(list))
	for _, e := range list {
		out = append(out, presenter.ToEvaluationResponse(e))
	}
	return HandleSuccess(h.logger, c, out)
}

