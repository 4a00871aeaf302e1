package handler

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	dto "github.com/johnquangdev/qa-review/internal/adapter/dto/transcript"
	"github.com/johnquangdev/qa-review/internal/adapter/presenter"
	"github.com/johnquangdev/qa-review/internal/domain/entities"
	"github.com/johnquangdev/qa-review/internal/domain/transcript"
	"github.com/johnquangdev/qa-review/internal/usecase/transcription"
)

// Transcription handles transcript editing HTTP requests
type Transcription struct {
	service transcription.Service
	logger  *zap.Logger
}

// NewTranscriptionHandler creates a new transcription handler
func NewTranscriptionHandler(service transcription.Service, logger *zap.Logger) *Transcription {
	return &Transcription{service: service, logger: logger}
}

// GetTranscription handles GET /transcriptions/:id
// @Summary      Get a transcript
// @Description  Returns the transcript with its segments, registries and any overlap or dangling-reference warnings
// @Tags         Transcriptions
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Transcription ID (UUID)"
// @Success      200  {object}  transcript.TranscriptionResponse
// @Failure      404  {object}  common.ErrorResponse  "Transcription not found"
// @Router       /transcriptions/{id} [get]
func (h *Transcription) GetTranscription(c echo.Context) error {
	subject, err := subjectFrom(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	id, err := pathUUID(c, "id")
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	view, err := h.service.Get(c.Request().Context(), subject, id)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, presenter.ToTranscriptionResponse(view))
}

// UpdateTranscription handles PATCH /transcriptions/:id
// @Summary      Update transcript notes
// @Tags         Transcriptions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                                true  "Transcription ID (UUID)"
// @Param        request  body      transcript.UpdateTranscriptionRequest  true  "Changes"
// @Success      200      {object}  entities.Transcription
// @Router       /transcriptions/{id} [patch]
func (h *Transcription) UpdateTranscription(c echo.Context) error {
	subject, err := subjectFrom(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	id, err := pathUUID(c, "id")
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	var req dto.UpdateTranscriptionRequest
	if err := bindAndValidate(c, &req); err != nil {
		return HandleError(h.logger, c, err)
	}

	updated, err := h.service.UpdateTranscription(c.Request().Context(), subject, id, transcription.UpdateInput{
		ContextNotes: req.ContextNotes,
	})
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, updated)
}

// CreateSegment handles POST /transcriptions/:id/segments
// @Summary      Add a segment
// @Tags         Transcriptions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                           true  "Transcription ID (UUID)"
// @Param        request  body      transcript.CreateSegmentRequest  true  "Segment"
// @Success      201      {object}  entities.Segment
// @Failure      400      {object}  common.ErrorResponse  "Invalid timing, overlap or unknown reference"
// @Router       /transcriptions/{id}/segments [post]
func (h *Transcription) CreateSegment(c echo.Context) error {
	subject, err := subjectFrom(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	id, err := pathUUID(c, "id")
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	var req dto.CreateSegmentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return HandleError(h.logger, c, err)
	}

	segment, err := h.service.CreateSegment(c.Request().Context(), subject, id, transcript.SegmentInput{
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Text:        req.Text,
		SpeakerID:   req.SpeakerID,
		SectionType: req.SectionType,
		Confidence:  req.Confidence,
	})
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleCreated(h.logger, c, segment)
}

// UpdateSegment handles PUT /transcriptions/:id/segments/:segmentId
// @Summary      Edit a segment
// @Description  Only the fields present in the body change; a null speaker_id or section_type clears the reference
// @Tags         Transcriptions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id         path      string                     true  "Transcription ID (UUID)"
// @Param        segmentId  path      string                     true  "Segment ID (UUID)"
// @Param        request    body      transcript.SegmentChanges  true  "Changes"
// @Success      200        {object}  entities.Segment
// @Router       /transcriptions/{id}/segments/{segmentId} [put]
func (h *Transcription) UpdateSegment(c echo.Context) error {
	subject, err := subjectFrom(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	id, err := pathUUID(c, "id")
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	segmentID, err := pathUUID(c, "segmentId")
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	var changes transcript.SegmentChanges
	if err := c.Bind(&changes); err != nil {
		return HandleError(h.logger, c, errInvalidBody(err))
	}

	segment, err := h.service.UpdateSegment(c.Request().Context(), subject, id, segmentID, changes)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, segment)
}

// DeleteSegment handles DELETE /transcriptions/:id/segments/:segmentId
// @Summary      Delete a segment
// @Tags         Transcriptions
// @Security     BearerAuth
// @Param        id         path      string  true  "Transcription ID (UUID)"
// @Param        segmentId  path      string  true  "Segment ID (UUID)"
// @Success      200        {object}  map[string]interface{}
// @Router       /transcriptions/{id}/segments/{segmentId} [delete]
func (h *Transcription) DeleteSegment(c echo.Context) error {
	subject, err := subjectFrom(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	id, err := pathUUID(c, "id")
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	segmentID, err := pathUUID(c, "segmentId")
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	if err := h.service.DeleteSegment(c.Request().Context(), subject, id, segmentID); err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, map[string]interface{}{"deleted": segmentID.String()})
}

// UpsertSpeaker handles PUT /transcriptions/:id/speakers/:speakerId
// @Summary      Add or rename a speaker
// @Tags         Transcriptions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id         path      string                     true  "Transcription ID (UUID)"
// @Param        speakerId  path      string                     true  "Speaker ID"
// @Param        request    body      transcript.SpeakerRequest  true  "Speaker"
// @Success      200        {object}  entities.Speaker
// @Router       /transcriptions/{id}/speakers/{speakerId} [put]
func (h *Transcription) UpsertSpeaker(c echo.Context) error {
	subject, err := subjectFrom(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	id, err := pathUUID(c, "id")
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	var req dto.SpeakerRequest
	if err := bindAndValidate(c, &req); err != nil {
		return HandleError(h.logger, c, err)
	}

	speaker := entities.Speaker{ID: c.Param("speakerId"), Name: req.Name, Role: req.Role}
	if err := h.service.UpsertSpeaker(c.Request().Context(), subject, id, speaker); err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, speaker)
}

// RemoveSpeaker handles DELETE /transcriptions/:id/speakers/:speakerId
// @Summary      Remove a speaker
// @Description  Segments attributed to the speaker keep their text and lose the attribution
// @Tags         Transcriptions
// @Produce      json
// @Security     BearerAuth
// @Param        id         path      string  true  "Transcription ID (UUID)"
// @Param        speakerId  path      string  true  "Speaker ID"
// @Success      200        {object}  transcript.RemovedResponse
// @Router       /transcriptions/{id}/speakers/{speakerId} [delete]
func (h *Transcription) RemoveSpeaker(c echo.Context) error {
	subject, err := subjectFrom(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	id, err := pathUUID(c, "id")
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	cleared, err := h.service.RemoveSpeaker(c.Request().Context(), subject, id, c.Param("speakerId"))
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, presenter.ToRemovedResponse(cleared))
}

// UpsertSection handles PUT /transcriptions/:id/sections/:sectionId
// @Summary      Add or rename a section
// @Tags         Transcriptions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id         path      string                     true  "Transcription ID (UUID)"
// @Param        sectionId  path      string                     true  "Section ID"
// @Param        request    body      transcript.SectionRequest  true  "Section"
// @Success      200        {object}  entities.Section
// @Router       /transcriptions/{id}/sections/{sectionId} [put]
func (h *Transcription) UpsertSection(c echo.Context) error {
	subject, err := subjectFrom(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	id, err := pathUUID(c, "id")
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	var req dto.SectionRequest
	if err := bindAndValidate(c, &req); err != nil {
		return HandleError(h.logger, c, err)
	}

	section := entities.Section{ID: c.Param("sectionId"), Name: req.Name, Color: req.Color}
	if err := h.service.UpsertSection(c.Request().Context(), subject, id, section); err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, section)
}

// RemoveSection handles DELETE /transcriptions/:id/sections/:sectionId
// @Summary      Remove a section
// @Tags         Transcriptions
// @Produce      json
// @Security     BearerAuth
// @Param        id         path      string  true  "Transcription ID (UUID)"
// @Param        sectionId  path      string  true  "Section ID"
// @Success      200        {object}  transcript.RemovedResponse
// @Router       /transcriptions/{id}/sections/{sectionId} [delete]
func (h *Transcription) RemoveSection(c echo.Context) error {
	subject, err := subjectFrom(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	id, err := pathUUID(c, "id")
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	cleared, err := h.service.RemoveSection(c.Request().Context(), subject, id, c.Param("sectionId"))
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, presenter.ToRemovedResponse(cleared))
}
