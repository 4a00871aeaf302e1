package reviewapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/johnquangdev/qa-review/errors"
	"github.com/johnquangdev/qa-review/internal/domain/entities"
	"github.com/johnquangdev/qa-review/internal/domain/transcript"
	"github.com/johnquangdev/qa-review/internal/usecase/editor"
)

const baseURL = "https://review.example.com"

func setupClient(t *testing.T) (*Client, *httpmock.MockTransport) {
	t.Helper()
	transport := httpmock.NewMockTransport()
	return NewClient(baseURL+"/", "tok", &http.Client{Transport: transport}), transport
}

func readBody(t *testing.T, req *http.Request) map[string]any {
	t.Helper()
	raw, err := io.ReadAll(req.Body)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestClient_CreateSegment(t *testing.T) {
	client, transport := setupClient(t)
	trID := uuid.New()
	segID := uuid.New()
	speaker := "agent"

	transport.RegisterResponder(http.MethodPost, baseURL+"/v1/transcriptions/"+trID.String()+"/segments",
		func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "Bearer tok", req.Header.Get("Authorization"))
			body := readBody(t, req)
			assert.Equal(t, 1.5, body["start_time"])
			assert.Equal(t, "agent", body["speaker_id"])
			return httpmock.NewJsonResponse(http.StatusOK, map[string]any{
				"code":    200,
				"message": "success",
				"data": map[string]any{
					"id":               segID,
					"transcription_id": trID,
					"start_time":       1.5,
					"end_time":         3,
					"text":             "hello",
					"speaker_id":       "agent",
					"edited":           true,
				},
			})
		})

	seg, err := client.CreateSegment(context.Background(), trID, transcript.SegmentInput{
		StartTime: 1.5, EndTime: 3, Text: "hello", SpeakerID: &speaker,
	})
	require.NoError(t, err)
	assert.Equal(t, segID, seg.ID)
	assert.True(t, seg.Edited)
	assert.Equal(t, 1, transport.GetTotalCallCount())
}

func TestClient_UpdateSegmentSendsOnlyChangedFields(t *testing.T) {
	client, transport := setupClient(t)
	trID, segID := uuid.New(), uuid.New()

	transport.RegisterResponder(http.MethodPut, baseURL+"/v1/transcriptions/"+trID.String()+"/segments/"+segID.String(),
		func(req *http.Request) (*http.Response, error) {
			body := readBody(t, req)
			assert.Len(t, body, 2)
			assert.Equal(t, "fixed", body["text"])
			v, ok := body["section_type"]
			assert.True(t, ok)
			assert.Nil(t, v)
			return httpmock.NewJsonResponse(http.StatusOK, map[string]any{
				"data": map[string]any{"id": segID, "text": "fixed", "start_time": 0, "end_time": 1},
			})
		})

	text := "fixed"
	seg, err := client.UpdateSegment(context.Background(), trID, segID, transcript.SegmentChanges{
		Text:        &text,
		SectionType: transcript.Clear(),
	})
	require.NoError(t, err)
	assert.Equal(t, "fixed", seg.Text)
}

func TestClient_DecodesAppErrors(t *testing.T) {
	client, transport := setupClient(t)
	trID := uuid.New()

	transport.RegisterResponder(http.MethodPost, baseURL+"/v1/transcriptions/"+trID.String()+"/segments",
		httpmock.NewStringResponder(http.StatusConflict,
			`{"code":"SEGMENT_OVERLAP","message":"Segment overlaps another segment","details":{"other_id":"x"}}`))

	_, err := client.CreateSegment(context.Background(), trID, transcript.SegmentInput{EndTime: 1})
	require.Error(t, err)
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrorCode_SEGMENT_OVERLAP, appErr.Code)
	assert.Equal(t, http.StatusConflict, appErr.HTTPCode)
	assert.Equal(t, "x", appErr.Details["other_id"])
}

func TestClient_UnstructuredErrors(t *testing.T) {
	client, transport := setupClient(t)
	trID := uuid.New()

	transport.RegisterResponder(http.MethodDelete, `=~^`+baseURL+`/v1/transcriptions/.+/speakers/agent$`,
		httpmock.NewStringResponder(http.StatusBadGateway, "upstream down"))

	err := client.RemoveSpeaker(context.Background(), trID, "agent")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrorCode_INTEGRATION_EXTERNAL_API_FAILED))
}

func TestClient_RegistryCalls(t *testing.T) {
	client, transport := setupClient(t)
	trID := uuid.New()
	prefix := baseURL + "/v1/transcriptions/" + trID.String()
	ok := httpmock.NewStringResponder(http.StatusOK, `{"code":200,"message":"success"}`)

	transport.RegisterResponder(http.MethodPut, prefix+"/speakers/agent", ok)
	transport.RegisterResponder(http.MethodPut, prefix+"/sections/wrap_up", ok)
	transport.RegisterResponder(http.MethodDelete, prefix+"/sections/wrap_up", ok)

	ctx := context.Background()
	require.NoError(t, client.UpsertSpeaker(ctx, trID, entities.Speaker{ID: "agent", Name: "Agent"}))
	require.NoError(t, client.UpsertSection(ctx, trID, entities.Section{ID: "wrap_up", Name: "Wrap up"}))
	require.NoError(t, client.RemoveSection(ctx, trID, "wrap_up"))

	info := transport.GetCallCountInfo()
	assert.Equal(t, 1, info["PUT "+prefix+"/speakers/agent"])
	assert.Equal(t, 3, transport.GetTotalCallCount())
}

func TestClient_DrivesEditor(t *testing.T) {
	client, transport := setupClient(t)
	trID := uuid.New()
	existing := entities.Segment{ID: uuid.New(), TranscriptionID: trID, StartTime: 0, EndTime: 2, Text: "hi"}

	transport.RegisterResponder(http.MethodDelete, baseURL+"/v1/transcriptions/"+trID.String()+"/segments/"+existing.ID.String(),
		httpmock.NewStringResponder(http.StatusOK, `{"code":200,"message":"success"}`))

	doc := transcript.NewDocument(trID, []entities.Segment{existing}, nil, nil)
	ed := editor.NewEditor(doc, client, nil)

	require.NoError(t, ed.Delete(context.Background(), existing.ID, true))
	assert.Empty(t, ed.Segments())
}
