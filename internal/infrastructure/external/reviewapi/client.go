// Package reviewapi is an HTTP client for the transcript endpoints of the
// review API. It lets an editor session run against a remote server.
package reviewapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/johnquangdev/qa-review/errors"
	"github.com/johnquangdev/qa-review/internal/adapter/dto/common"
	"github.com/johnquangdev/qa-review/internal/domain/entities"
	"github.com/johnquangdev/qa-review/internal/domain/transcript"
	"github.com/johnquangdev/qa-review/internal/usecase/editor"
)

// Client calls the review API with a bearer token
type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

var _ editor.Backend = (*Client)(nil)

// NewClient creates a client for baseURL. A nil httpClient gets a 30s timeout.
func NewClient(baseURL, token string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  httpClient,
	}
}

type envelope struct {
	Data json.RawMessage `json:"data"`
}

func (c *Client) CreateSegment(ctx context.Context, transcriptionID uuid.UUID, in transcript.SegmentInput) (*entities.Segment, error) {
	var seg entities.Segment
	if err := c.do(ctx, http.MethodPost, c.path(transcriptionID, "segments"), in, &seg); err != nil {
		return nil, err
	}
	return &seg, nil
}

func (c *Client) UpdateSegment(ctx context.Context, transcriptionID, segmentID uuid.UUID, changes transcript.SegmentChanges) (*entities.Segment, error) {
	var seg entities.Segment
	if err := c.do(ctx, http.MethodPut, c.path(transcriptionID, "segments", segmentID.String()), changes, &seg); err != nil {
		return nil, err
	}
	return &seg, nil
}

func (c *Client) DeleteSegment(ctx context.Context, transcriptionID, segmentID uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, c.path(transcriptionID, "segments", segmentID.String()), nil, nil)
}

func (c *Client) UpsertSpeaker(ctx context.Context, transcriptionID uuid.UUID, speaker entities.Speaker) error {
	return c.do(ctx, http.MethodPut, c.path(transcriptionID, "speakers", speaker.ID), speaker, nil)
}

func (c *Client) RemoveSpeaker(ctx context.Context, transcriptionID uuid.UUID, speakerID string) error {
	return c.do(ctx, http.MethodDelete, c.path(transcriptionID, "speakers", speakerID), nil, nil)
}

func (c *Client) UpsertSection(ctx context.Context, transcriptionID uuid.UUID, section entities.Section) error {
	return c.do(ctx, http.MethodPut, c.path(transcriptionID, "sections", section.ID), section, nil)
}

func (c *Client) RemoveSection(ctx context.Context, transcriptionID uuid.UUID, sectionID string) error {
	return c.do(ctx, http.MethodDelete, c.path(transcriptionID, "sections", sectionID), nil, nil)
}

// GetTranscription fetches a transcription with its segments
func (c *Client) GetTranscription(ctx context.Context, transcriptionID uuid.UUID) (*entities.Transcription, error) {
	var out struct {
		Transcription *entities.Transcription `json:"transcription"`
	}
	if err := c.do(ctx, http.MethodGet, c.path(transcriptionID), nil, &out); err != nil {
		return nil, err
	}
	if out.Transcription == nil {
		return nil, fmt.Errorf("review api returned no transcription")
	}
	return out.Transcription, nil
}

func (c *Client) path(transcriptionID uuid.UUID, parts ...string) string {
	p := c.baseURL + "/v1/transcriptions/" + transcriptionID.String()
	for _, part := range parts {
		p += "/" + url.PathEscape(part)
	}
	return p
}

func (c *Client) do(ctx context.Context, method, endpoint string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("review api %s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return decodeError(resp.StatusCode, raw)
	}
	if out == nil {
		return nil
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("failed to decode response data: %w", err)
	}
	return nil
}

// decodeError turns an error body back into the AppError the server raised
func decodeError(status int, raw []byte) error {
	var body common.ErrorResponse
	if err := json.Unmarshal(raw, &body); err != nil || body.Code == apperrors.ErrorCode_UNSPECIFIED {
		return apperrors.ErrExternalAPIFailed("review api", fmt.Errorf("status %d: %s", status, strings.TrimSpace(string(raw))))
	}
	appErr := apperrors.FromCode(body.Code, status, body.Message)
	for k, v := range body.Details {
		appErr = appErr.WithDetail(k, v)
	}
	return appErr
}
