package transcript

import (
	"fmt"
	"math"
)

// WarningCode classifies a problem found in a loaded document
type WarningCode string

const (
	WarningOverlap        WarningCode = "SEGMENT_OVERLAP"
	WarningInvalidTiming  WarningCode = "INVALID_SEGMENT_TIMING"
	WarningUnknownSpeaker WarningCode = "UNKNOWN_SPEAKER"
	WarningUnknownSection WarningCode = "UNKNOWN_SECTION"
)

// Warning describes a problem with persisted data that writes would reject
type Warning struct {
	Code      WarningCode `json:"code"`
	SegmentID string      `json:"segment_id"`
	OtherID   string      `json:"other_id,omitempty"`
	Message   string      `json:"message"`
}

// Validate reports every rule the current document breaks
func (d *Document) Validate() []Warning {
	var warnings []Warning
	for _, seg := range d.segments {
		if err := ValidateTiming(seg.StartTime, seg.EndTime); err != nil {
			warnings = append(warnings, Warning{
				Code:      WarningInvalidTiming,
				SegmentID: seg.ID.String(),
				Message:   fmt.Sprintf("invalid range [%g, %g)", seg.StartTime, seg.EndTime),
			})
		}
		if seg.SpeakerID != nil {
			if _, ok := d.speakers[*seg.SpeakerID]; !ok {
				warnings = append(warnings, Warning{
					Code:      WarningUnknownSpeaker,
					SegmentID: seg.ID.String(),
					Message:   fmt.Sprintf("speaker %q is not registered", *seg.SpeakerID),
				})
			}
		}
		if seg.SectionType != nil {
			if _, ok := d.sections[*seg.SectionType]; !ok {
				warnings = append(warnings, Warning{
					Code:      WarningUnknownSection,
					SegmentID: seg.ID.String(),
					Message:   fmt.Sprintf("section %q is not registered", *seg.SectionType),
				})
			}
		}
	}

	// segments are sorted, so each one only needs checking against those
	// after it until a start at or past its end
	for i := range d.segments {
		a := d.segments[i]
		if math.IsNaN(a.EndTime) {
			continue
		}
		for j := i + 1; j < len(d.segments); j++ {
			b := d.segments[j]
			if b.StartTime >= a.EndTime {
				break
			}
			if Overlaps(a, b) {
				warnings = append(warnings, Warning{
					Code:      WarningOverlap,
					SegmentID: a.ID.String(),
					OtherID:   b.ID.String(),
					Message:   fmt.Sprintf("[%g, %g) overlaps [%g, %g)", a.StartTime, a.EndTime, b.StartTime, b.EndTime),
				})
			}
		}
	}
	return warnings
}
