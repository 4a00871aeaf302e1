package transcript

import (
	"encoding/json"
)

// SegmentInput carries the fields of a new segment
type SegmentInput struct {
	StartTime   float64  `json:"start_time"`
	EndTime     float64  `json:"end_time"`
	Text        string   `json:"text"`
	SpeakerID   *string  `json:"speaker_id,omitempty"`
	SectionType *string  `json:"section_type,omitempty"`
	Confidence  *float64 `json:"confidence,omitempty"`
}

// RefChange describes an edit of a weak registry reference.
// Set=false keeps the current value; Set=true with a nil ID clears it.
type RefChange struct {
	Set bool
	ID  *string
}

// Keep leaves a reference untouched
func Keep() RefChange { return RefChange{} }

// To points a reference at a registry id
func To(id string) RefChange { return RefChange{Set: true, ID: &id} }

// Clear removes a reference
func Clear() RefChange { return RefChange{Set: true} }

// UnmarshalJSON marks the change as set; JSON null clears the reference
func (r *RefChange) UnmarshalJSON(b []byte) error {
	r.Set = true
	if string(b) == "null" {
		r.ID = nil
		return nil
	}
	var id string
	if err := json.Unmarshal(b, &id); err != nil {
		return err
	}
	r.ID = &id
	return nil
}

// SegmentChanges is a partial update of a segment; nil pointers are left as is
type SegmentChanges struct {
	Text        *string   `json:"text,omitempty"`
	StartTime   *float64  `json:"start_time,omitempty"`
	EndTime     *float64  `json:"end_time,omitempty"`
	SpeakerID   RefChange `json:"speaker_id"`
	SectionType RefChange `json:"section_type"`
}

// IsEmpty reports whether the changes touch nothing
func (c SegmentChanges) IsEmpty() bool {
	return c.Text == nil && c.StartTime == nil && c.EndTime == nil && !c.SpeakerID.Set && !c.SectionType.Set
}

// MarshalJSON emits only the fields that are part of the change
func (c SegmentChanges) MarshalJSON() ([]byte, error) {
	out := make(map[string]any)
	if c.Text != nil {
		out["text"] = *c.Text
	}
	if c.StartTime != nil {
		out["start_time"] = *c.StartTime
	}
	if c.EndTime != nil {
		out["end_time"] = *c.EndTime
	}
	if c.SpeakerID.Set {
		out["speaker_id"] = c.SpeakerID.ID
	}
	if c.SectionType.Set {
		out["section_type"] = c.SectionType.ID
	}
	return json.Marshal(out)
}
