package transcript

import (
	"github.com/johnquangdev/qa-review/internal/domain/entities"
	"github.com/johnquangdev/qa-review/internal/domain/transcript"
)

// TranscriptionResponse is a transcription with the rules it currently breaks
type TranscriptionResponse struct {
	Transcription *entities.Transcription `json:"transcription"`
	Warnings      []transcript.Warning    `json:"warnings"`
}

// RemovedResponse lists the segments whose reference was cleared
type RemovedResponse struct {
	ClearedSegments []string `json:"cleared_segments"`
}
