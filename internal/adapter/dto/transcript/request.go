package transcript

// UpdateTranscriptionRequest represents the editable transcription metadata
type UpdateTranscriptionRequest struct {
	ContextNotes *string `json:"context_notes,omitempty" validate:"omitempty,max=10000"`
}

// CreateSegmentRequest represents the request to add a segment
type CreateSegmentRequest struct {
	StartTime   float64  `json:"start_time" validate:"finite"`
	EndTime     float64  `json:"end_time" validate:"finite"`
	Text        string   `json:"text" validate:"max=20000"`
	SpeakerID   *string  `json:"speaker_id,omitempty" validate:"omitempty,min=1,max=64"`
	SectionType *string  `json:"section_type,omitempty" validate:"omitempty,min=1,max=64"`
	Confidence  *float64 `json:"confidence,omitempty" validate:"omitempty,gte=0,lte=1"`
}

// SpeakerRequest represents the request to add or rename a speaker
type SpeakerRequest struct {
	Name string `json:"name" validate:"required,min=1,max=255"`
	Role string `json:"role,omitempty" validate:"max=64"`
}

// SectionRequest represents the request to add or rename a section
type SectionRequest struct {
	Name  string `json:"name" validate:"required,min=1,max=255"`
	Color string `json:"color,omitempty" validate:"omitempty,max=32"`
}

// ImportRequest represents the request to import a provider transcript
type ImportRequest struct {
	ExternalID string `json:"external_id" validate:"required,max=255"`
}
