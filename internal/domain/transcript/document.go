// Package transcript holds the in-memory model of one transcription: the
// ordered segment list and the speaker and section registries it references.
//
// Segments are kept sorted by start time, ties broken by id. Segments of one
// transcription are disjoint half-open ranges [start, end). Writes that would
// break that rule are rejected; documents loaded from the transcription
// pipeline are accepted as they are and Validate reports what is wrong.
package transcript

import (
	"math"
	"sort"

	"github.com/google/uuid"

	apperrors "github.com/johnquangdev/qa-review/errors"
	"github.com/johnquangdev/qa-review/internal/domain/entities"
)

// Document is a mutable transcript model driven by named commands.
// It is not safe for concurrent use.
type Document struct {
	transcriptionID uuid.UUID
	segments        []entities.Segment
	speakers        map[string]entities.Speaker
	sections        map[string]entities.Section
}

// Snapshot is an immutable copy of a document used for rollback
type Snapshot struct {
	segments []entities.Segment
	speakers map[string]entities.Speaker
	sections map[string]entities.Section
}

// NewDocument builds a document from persisted state without validating it
func NewDocument(transcriptionID uuid.UUID, segments []entities.Segment, speakers map[string]entities.Speaker, sections map[string]entities.Section) *Document {
	d := &Document{
		transcriptionID: transcriptionID,
		segments:        append([]entities.Segment(nil), segments...),
		speakers:        copySpeakers(speakers),
		sections:        copySections(sections),
	}
	sortSegments(d.segments)
	return d
}

// FromTranscription builds a document from a loaded transcription
func FromTranscription(t *entities.Transcription) *Document {
	return NewDocument(t.ID, t.Segments, t.SpeakerMap, t.Sections)
}

// TranscriptionID returns the owning transcription
func (d *Document) TranscriptionID() uuid.UUID {
	return d.transcriptionID
}

// Segments returns a copy of the sorted segment list
func (d *Document) Segments() []entities.Segment {
	return append([]entities.Segment(nil), d.segments...)
}

// Segment looks a segment up by id
func (d *Document) Segment(id uuid.UUID) (entities.Segment, bool) {
	if i := d.indexOf(id); i >= 0 {
		return d.segments[i], true
	}
	return entities.Segment{}, false
}

// Speakers returns a copy of the speaker registry
func (d *Document) Speakers() map[string]entities.Speaker {
	return copySpeakers(d.speakers)
}

// Sections returns a copy of the section registry
func (d *Document) Sections() map[string]entities.Section {
	return copySections(d.sections)
}

// AddSegment inserts a new segment. A nil id is replaced by a fresh one.
func (d *Document) AddSegment(id uuid.UUID, in SegmentInput) ([]entities.Segment, error) {
	if id == uuid.Nil {
		id = uuid.New()
	}
	if d.indexOf(id) >= 0 {
		return nil, apperrors.ErrAlreadyExists("segment").WithDetail("segment_id", id.String())
	}
	seg := entities.Segment{
		ID:              id,
		TranscriptionID: d.transcriptionID,
		StartTime:       in.StartTime,
		EndTime:         in.EndTime,
		Text:            in.Text,
		SpeakerID:       cloneString(in.SpeakerID),
		SectionType:     cloneString(in.SectionType),
		Confidence:      in.Confidence,
	}
	if err := d.checkSegment(seg); err != nil {
		return nil, err
	}
	d.segments = append(d.segments, seg)
	sortSegments(d.segments)
	return d.Segments(), nil
}

// UpdateSegment applies a partial change to a segment
func (d *Document) UpdateSegment(id uuid.UUID, changes SegmentChanges) ([]entities.Segment, error) {
	i := d.indexOf(id)
	if i < 0 {
		return nil, apperrors.ErrNotFound("segment").WithDetail("segment_id", id.String())
	}
	next, err := ApplyChanges(d.segments[i], changes)
	if err != nil {
		return nil, err
	}
	if err := d.checkUpdate(d.segments[i], next); err != nil {
		return nil, err
	}
	d.segments[i] = next
	sortSegments(d.segments)
	return d.Segments(), nil
}

// Put stores a segment confirmed by the backend as is, replacing any segment
// with the same id
func (d *Document) Put(seg entities.Segment) []entities.Segment {
	if i := d.indexOf(seg.ID); i >= 0 {
		d.segments[i] = seg
	} else {
		d.segments = append(d.segments, seg)
	}
	sortSegments(d.segments)
	return d.Segments()
}

// RemoveSegment deletes a segment
func (d *Document) RemoveSegment(id uuid.UUID) ([]entities.Segment, error) {
	i := d.indexOf(id)
	if i < 0 {
		return nil, apperrors.ErrNotFound("segment").WithDetail("segment_id", id.String())
	}
	d.segments = append(d.segments[:i], d.segments[i+1:]...)
	return d.Segments(), nil
}

// UpsertSpeaker inserts or replaces a speaker by id
func (d *Document) UpsertSpeaker(sp entities.Speaker) error {
	if sp.ID == "" {
		return apperrors.ErrInvalidArgument("speaker id is required")
	}
	if sp.Name == "" {
		return apperrors.ErrInvalidArgument("speaker name is required")
	}
	d.speakers[sp.ID] = sp
	return nil
}

// RemoveSpeaker deletes a speaker and clears it on every segment that
// referenced it. The ids of the changed segments are returned.
func (d *Document) RemoveSpeaker(id string) ([]uuid.UUID, error) {
	if _, ok := d.speakers[id]; !ok {
		return nil, apperrors.ErrNotFound("speaker").WithDetail("speaker_id", id)
	}
	delete(d.speakers, id)
	var cleared []uuid.UUID
	for i := range d.segments {
		if d.segments[i].SpeakerID != nil && *d.segments[i].SpeakerID == id {
			d.segments[i].SpeakerID = nil
			cleared = append(cleared, d.segments[i].ID)
		}
	}
	return cleared, nil
}

// UpsertSection inserts or replaces a section by id
func (d *Document) UpsertSection(sec entities.Section) error {
	if sec.ID == "" {
		return apperrors.ErrInvalidArgument("section id is required")
	}
	if sec.Name == "" {
		return apperrors.ErrInvalidArgument("section name is required")
	}
	d.sections[sec.ID] = sec
	return nil
}

// RemoveSection deletes a section and clears it on every segment that
// referenced it. The ids of the changed segments are returned.
func (d *Document) RemoveSection(id string) ([]uuid.UUID, error) {
	if _, ok := d.sections[id]; !ok {
		return nil, apperrors.ErrNotFound("section").WithDetail("section_id", id)
	}
	delete(d.sections, id)
	var cleared []uuid.UUID
	for i := range d.segments {
		if d.segments[i].SectionType != nil && *d.segments[i].SectionType == id {
			d.segments[i].SectionType = nil
			cleared = append(cleared, d.segments[i].ID)
		}
	}
	return cleared, nil
}

// Snapshot captures the current state
func (d *Document) Snapshot() Snapshot {
	segs := make([]entities.Segment, len(d.segments))
	for i, s := range d.segments {
		segs[i] = cloneSegment(s)
	}
	return Snapshot{
		segments: segs,
		speakers: copySpeakers(d.speakers),
		sections: copySections(d.sections),
	}
}

// Restore replaces the current state with a snapshot
func (d *Document) Restore(s Snapshot) {
	d.segments = make([]entities.Segment, len(s.segments))
	for i, seg := range s.segments {
		d.segments[i] = cloneSegment(seg)
	}
	d.speakers = copySpeakers(s.speakers)
	d.sections = copySections(s.sections)
}

// ApplyChanges returns seg with changes applied. The edited flag is raised
// only when text or timing differ from seg, and is never lowered.
func ApplyChanges(seg entities.Segment, changes SegmentChanges) (entities.Segment, error) {
	next := cloneSegment(seg)
	if changes.Text != nil {
		next.Text = *changes.Text
	}
	if changes.StartTime != nil {
		next.StartTime = *changes.StartTime
	}
	if changes.EndTime != nil {
		next.EndTime = *changes.EndTime
	}
	if changes.SpeakerID.Set {
		next.SpeakerID = cloneString(changes.SpeakerID.ID)
	}
	if changes.SectionType.Set {
		next.SectionType = cloneString(changes.SectionType.ID)
	}
	timingChanged := next.StartTime != seg.StartTime || next.EndTime != seg.EndTime
	if timingChanged {
		if err := ValidateTiming(next.StartTime, next.EndTime); err != nil {
			return entities.Segment{}, err
		}
	}
	if next.Text != seg.Text || timingChanged {
		next.Edited = true
	}
	return next, nil
}

// ValidateTiming checks 0 <= start < end with finite values
func ValidateTiming(start, end float64) error {
	if math.IsNaN(start) || math.IsInf(start, 0) || math.IsNaN(end) || math.IsInf(end, 0) {
		return apperrors.ErrInvalidSegmentTiming("start_time and end_time must be finite")
	}
	if start < 0 {
		return apperrors.ErrInvalidSegmentTiming("start_time must not be negative")
	}
	if end <= start {
		return apperrors.ErrInvalidSegmentTiming("end_time must be greater than start_time")
	}
	return nil
}

// Overlaps reports whether two half-open ranges intersect
func Overlaps(a, b entities.Segment) bool {
	return a.StartTime < b.EndTime && b.StartTime < a.EndTime
}

func (d *Document) checkSegment(seg entities.Segment) error {
	if err := ValidateTiming(seg.StartTime, seg.EndTime); err != nil {
		return err
	}
	if seg.SpeakerID != nil {
		if _, ok := d.speakers[*seg.SpeakerID]; !ok {
			return apperrors.ErrUnknownReference("speaker", *seg.SpeakerID)
		}
	}
	if seg.SectionType != nil {
		if _, ok := d.sections[*seg.SectionType]; !ok {
			return apperrors.ErrUnknownReference("section", *seg.SectionType)
		}
	}
	for _, other := range d.segments {
		if other.ID != seg.ID && Overlaps(seg, other) {
			return apperrors.ErrSegmentOverlap(seg.ID.String(), other.ID.String())
		}
	}
	return nil
}

// checkUpdate only rejects what the update introduces. Problems a loaded
// segment already had stay with Validate, so the segment remains editable.
func (d *Document) checkUpdate(prev, next entities.Segment) error {
	if next.SpeakerID != nil && !sameRef(prev.SpeakerID, next.SpeakerID) {
		if _, ok := d.speakers[*next.SpeakerID]; !ok {
			return apperrors.ErrUnknownReference("speaker", *next.SpeakerID)
		}
	}
	if next.SectionType != nil && !sameRef(prev.SectionType, next.SectionType) {
		if _, ok := d.sections[*next.SectionType]; !ok {
			return apperrors.ErrUnknownReference("section", *next.SectionType)
		}
	}
	for _, other := range d.segments {
		if other.ID == next.ID {
			continue
		}
		if Overlaps(next, other) && !Overlaps(prev, other) {
			return apperrors.ErrSegmentOverlap(next.ID.String(), other.ID.String())
		}
	}
	return nil
}

func sameRef(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func (d *Document) indexOf(id uuid.UUID) int {
	for i := range d.segments {
		if d.segments[i].ID == id {
			return i
		}
	}
	return -1
}

// SortSegments orders segments by start time, ties by id
func SortSegments(segs []entities.Segment) {
	sortSegments(segs)
}

func sortSegments(segs []entities.Segment) {
	sort.SliceStable(segs, func(i, j int) bool {
		if segs[i].StartTime != segs[j].StartTime {
			return segs[i].StartTime < segs[j].StartTime
		}
		return segs[i].ID.String() < segs[j].ID.String()
	})
}

func cloneSegment(s entities.Segment) entities.Segment {
	s.SpeakerID = cloneString(s.SpeakerID)
	s.SectionType = cloneString(s.SectionType)
	if s.Confidence != nil {
		c := *s.Confidence
		s.Confidence = &c
	}
	return s
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func copySpeakers(m map[string]entities.Speaker) map[string]entities.Speaker {
	out := make(map[string]entities.Speaker, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copySections(m map[string]entities.Section) map[string]entities.Section {
	out := make(map[string]entities.Section, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
