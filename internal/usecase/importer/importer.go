// Package importer pulls finished transcripts from AssemblyAI and stores them
// as segments with a speaker registry.
package importer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	aai "github.com/AssemblyAI/assemblyai-go-sdk"
	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/johnquangdev/qa-review/errors"
	"github.com/johnquangdev/qa-review/internal/domain/entities"
	"github.com/johnquangdev/qa-review/internal/domain/repositories"
	"github.com/johnquangdev/qa-review/internal/domain/transcript"
	"github.com/johnquangdev/qa-review/internal/usecase/access"
	"github.com/johnquangdev/qa-review/internal/usecase/audit"
	"github.com/johnquangdev/qa-review/pkg/metrics"
)

// Import sources, used as metric labels
const (
	SourceAPI     = "api"
	SourceWebhook = "webhook"
)

// TranscriptGetter fetches a transcript by its AssemblyAI id.
// *aai.TranscriptService satisfies it.
type TranscriptGetter interface {
	Get(ctx context.Context, transcriptID string) (aai.Transcript, error)
}

// WebhookPayload is the body AssemblyAI posts when a transcript changes status
type WebhookPayload struct {
	TranscriptID string `json:"transcript_id"`
	Status       string `json:"status"`
}

// Options tune the fetch retry
type Options struct {
	RetryInitialInterval time.Duration
	RetryMaxElapsedTime  time.Duration
}

// Service imports transcripts
type Service interface {
	// Import fetches externalID and stores it as the transcript of recordingID.
	// A transcript that is still processing is linked and completed later by
	// the webhook.
	Import(ctx context.Context, subject entities.Subject, recordingID uuid.UUID, externalID string) (*entities.Transcription, error)

	// HandleWebhook completes or fails the transcription linked to the payload's transcript
	HandleWebhook(ctx context.Context, payload WebhookPayload) error
}

type importService struct {
	getter  TranscriptGetter
	repos   repositories.Repositories
	uow     repositories.UnitOfWork
	auditor audit.Sink
	metrics *metrics.Metrics
	logger  *zap.Logger
	opts    Options
}

// NewService constructs an import service
func NewService(
	getter TranscriptGetter,
	repos repositories.Repositories,
	uow repositories.UnitOfWork,
	auditor audit.Sink,
	m *metrics.Metrics,
	logger *zap.Logger,
	opts Options,
) Service {
	if auditor == nil {
		auditor = audit.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.RetryInitialInterval <= 0 {
		opts.RetryInitialInterval = 2 * time.Second
	}
	if opts.RetryMaxElapsedTime <= 0 {
		opts.RetryMaxElapsedTime = 30 * time.Second
	}
	return &importService{
		getter:  getter,
		repos:   repos,
		uow:     uow,
		auditor: auditor,
		metrics: m,
		logger:  logger,
		opts:    opts,
	}
}

func (s *importService) Import(ctx context.Context, subject entities.Subject, recordingID uuid.UUID, externalID string) (*entities.Transcription, error) {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return nil, apperrors.ErrInvalidArgument("external transcript id is required")
	}

	recording, err := s.repos.Recordings.FindByID(ctx, recordingID)
	if err != nil {
		return nil, apperrors.ErrInternal(fmt.Errorf("failed to get recording: %w", err))
	}
	if recording == nil {
		return nil, apperrors.ErrNotFound("Recording")
	}
	if !access.CanEdit(subject, recording) {
		return nil, apperrors.ErrUnauthorized("import transcript")
	}

	t, err := s.importTranscript(ctx, recording, externalID)
	s.metrics.RecordImport(SourceAPI, err)
	if err != nil {
		return nil, err
	}
	s.auditor.Record(ctx, audit.Entry{
		UserID:     subject.UserID,
		Action:     audit.ActionImport,
		Resource:   "transcription",
		ResourceID: t.ID.String(),
		Details: map[string]interface{}{
			"recording_id": recordingID.String(),
			"external_id":  externalID,
			"status":       string(t.Status),
			"segments":     len(t.Segments),
		},
	})
	return t, nil
}

func (s *importService) HandleWebhook(ctx context.Context, payload WebhookPayload) error {
	if payload.TranscriptID == "" {
		return apperrors.ErrInvalidPayload()
	}

	t, err := s.repos.Transcriptions.FindByExternalID(ctx, payload.TranscriptID)
	if err != nil {
		return apperrors.ErrInternal(fmt.Errorf("failed to find transcription: %w", err))
	}
	if t == nil {
		s.logger.Warn("webhook for unknown transcript", zap.String("transcript_id", payload.TranscriptID))
		return apperrors.ErrNotFound("Transcription")
	}
	recording, err := s.repos.Recordings.FindByID(ctx, t.RecordingID)
	if err != nil {
		return apperrors.ErrInternal(fmt.Errorf("failed to get recording: %w", err))
	}
	if recording == nil {
		return apperrors.ErrNotFound("Recording")
	}

	imported, err := s.importTranscript(ctx, recording, payload.TranscriptID)
	s.metrics.RecordImport(SourceWebhook, err)
	if err != nil {
		return err
	}
	s.auditor.Record(ctx, audit.Entry{
		Action:     audit.ActionImport,
		Resource:   "transcription",
		ResourceID: imported.ID.String(),
		Details: map[string]interface{}{
			"source":      SourceWebhook,
			"external_id": payload.TranscriptID,
			"status":      string(imported.Status),
		},
	})
	return nil
}

// importTranscript fetches the transcript and stores whatever state it is in
func (s *importService) importTranscript(ctx context.Context, recording *entities.Recording, externalID string) (*entities.Transcription, error) {
	remote, err := s.fetch(ctx, externalID)
	if err != nil {
		s.logger.Error("failed to fetch transcript from AssemblyAI",
			zap.String("transcript_id", externalID),
			zap.Error(err))
		return nil, apperrors.ErrExternalAPIFailed("assemblyai", err)
	}

	s.logger.Info("received transcript from AssemblyAI",
		zap.String("transcript_id", externalID),
		zap.String("status", string(remote.Status)),
		zap.Int("utterances", len(remote.Utterances)))

	var stored *entities.Transcription
	err = s.uow.Do(ctx, func(ctx context.Context, repos repositories.Repositories) error {
		t, err := repos.Transcriptions.FindByRecordingID(ctx, recording.ID)
		if err != nil {
			return err
		}
		created := t == nil
		if created {
			t = entities.NewTranscription(recording.ID)
		}
		t.ExternalID = &externalID

		switch remote.Status {
		case aai.TranscriptStatusCompleted:
			segments, speakers := Convert(remote, t.SpeakerMap)
			applyCompleted(t, remote, speakers)
			recording.MarkAsTranscribed()
			if remote.AudioDuration != nil {
				d := float64(*remote.AudioDuration)
				recording.Duration = &d
			}
			if err := save(ctx, repos, t, created); err != nil {
				return err
			}
			if err := repos.Transcriptions.ReplaceSegments(ctx, t.ID, segments); err != nil {
				return err
			}
			t.Segments = segments

		case aai.TranscriptStatusError:
			msg := "transcription failed"
			if remote.Error != nil {
				msg = *remote.Error
			}
			t.Status = entities.TranscriptionStatusFailed
			recording.MarkAsFailed(msg)
			if err := save(ctx, repos, t, created); err != nil {
				return err
			}

		default:
			t.Status = entities.TranscriptionStatusPending
			recording.Status = entities.RecordingStatusTranscribing
			if err := save(ctx, repos, t, created); err != nil {
				return err
			}
		}

		stored = t
		return repos.Recordings.Update(ctx, recording)
	})
	if err != nil {
		return nil, apperrors.ErrImportFailed(err)
	}
	return stored, nil
}

// fetch retries transient failures with exponential backoff
func (s *importService) fetch(ctx context.Context, externalID string) (aai.Transcript, error) {
	var remote aai.Transcript
	op := func() error {
		var err error
		remote, err = s.getter.Get(ctx, externalID)
		if err != nil && !transient(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = s.opts.RetryInitialInterval
	bo.MaxInterval = 4 * s.opts.RetryInitialInterval
	bo.MaxElapsedTime = s.opts.RetryMaxElapsedTime

	notify := func(err error, wait time.Duration) {
		s.logger.Warn("AssemblyAI fetch failed, retrying",
			zap.String("transcript_id", externalID),
			zap.Duration("wait", wait),
			zap.Error(err))
	}
	if err := backoff.RetryNotify(op, backoff.WithContext(bo, ctx), notify); err != nil {
		return aai.Transcript{}, err
	}
	return remote, nil
}

// transient reports whether a fetch error is worth retrying. AssemblyAI
// client errors such as an unknown transcript or a bad key are not, except
// timeouts and rate limiting.
func transient(err error) bool {
	var apiErr aai.APIError
	if !errors.As(err, &apiErr) {
		var ptr *aai.APIError
		if !errors.As(err, &ptr) || ptr == nil {
			return true
		}
		apiErr = *ptr
	}
	switch {
	case apiErr.Status == http.StatusRequestTimeout, apiErr.Status == http.StatusTooManyRequests:
		return true
	case apiErr.Status >= 400 && apiErr.Status < 500:
		return false
	}
	return true
}

func save(ctx context.Context, repos repositories.Repositories, t *entities.Transcription, created bool) error {
	if created {
		segments := t.Segments
		t.Segments = nil
		err := repos.Transcriptions.Create(ctx, t)
		t.Segments = segments
		return err
	}
	return repos.Transcriptions.Update(ctx, t)
}

func applyCompleted(t *entities.Transcription, remote aai.Transcript, speakers map[string]entities.Speaker) {
	t.Status = entities.TranscriptionStatusCompleted
	if remote.Text != nil {
		t.Text = *remote.Text
	}
	if remote.LanguageCode != "" {
		t.Language = string(remote.LanguageCode)
	}
	t.Confidence = remote.Confidence
	t.SpeakerMap = speakers
	if t.Sections == nil {
		t.Sections = map[string]entities.Section{}
	}
}

// Convert maps AssemblyAI utterances onto segments sorted by start time.
// Times arrive in milliseconds. Speakers keep any name already registered
// under the same label.
func Convert(remote aai.Transcript, existing map[string]entities.Speaker) ([]entities.Segment, map[string]entities.Speaker) {
	speakers := make(map[string]entities.Speaker, len(existing))
	for id, sp := range existing {
		speakers[id] = sp
	}

	segments := make([]entities.Segment, 0, len(remote.Utterances))
	for _, utt := range remote.Utterances {
		seg := entities.Segment{ID: uuid.New()}
		if utt.Text != nil {
			seg.Text = *utt.Text
		}
		if utt.Start != nil {
			seg.StartTime = float64(*utt.Start) / 1000.0
		}
		if utt.End != nil {
			seg.EndTime = float64(*utt.End) / 1000.0
		}
		if utt.Confidence != nil {
			c := *utt.Confidence
			seg.Confidence = &c
		}
		if utt.Speaker != nil && *utt.Speaker != "" {
			label := *utt.Speaker
			seg.SpeakerID = &label
			if _, ok := speakers[label]; !ok {
				speakers[label] = entities.Speaker{ID: label, Name: "Speaker " + label}
			}
		}
		segments = append(segments, seg)
	}
	transcript.SortSegments(segments)
	return segments, speakers
}
