package presenter

import (
	"github.com/google/uuid"

	dto "github.com/johnquangdev/qa-review/internal/adapter/dto/transcript"
	"github.com/johnquangdev/qa-review/internal/domain/transcript"
	"github.com/johnquangdev/qa-review/internal/usecase/transcription"
)

// ToTranscriptionResponse converts a transcript view
func ToTranscriptionResponse(v *transcription.View) *dto.TranscriptionResponse {
	if v == nil {
		return nil
	}
	warnings := v.Warnings
	if warnings == nil {
		warnings = []transcript.Warning{}
	}
	return &dto.TranscriptionResponse{
		Transcription: v.Transcription,
		Warnings:      warnings,
	}
}

// ToRemovedResponse lists the segments a registry removal touched
func ToRemovedResponse(ids []uuid.UUID) *dto.RemovedResponse {
	out := &dto.RemovedResponse{ClearedSegments: make([]string, 0, len(ids))}
	for _, id := range ids {
		out.ClearedSegments = append(out.ClearedSegments, id.String())
	}
	return out
}
