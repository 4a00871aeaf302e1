package errors

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorCode_KindMapping(t *testing.T) {
	cases := map[ErrorCode]Kind{
		ErrorCode_INVALID_WEIGHTS:        KindValidation,
		ErrorCode_DUPLICATE_NAME:         KindValidation,
		ErrorCode_SEGMENT_OVERLAP:        KindValidation,
		ErrorCode_UNAUTHORIZED:           KindAuthorization,
		ErrorCode_NOT_FOUND:              KindNotFound,
		ErrorCode_IN_USE:                 KindConflict,
		ErrorCode_DB_TRANSACTION_FAILED:  KindInternal,
		ErrorCode_INVALID_SEGMENT_TIMING: KindValidation,
	}
	for code, want := range cases {
		assert.Equal(t, want, code.Kind(), code.String())
	}
}

func TestErrorCode_TextRoundTrip(t *testing.T) {
	b, err := json.Marshal(struct {
		Code ErrorCode `json:"code"`
	}{ErrorCode_IN_USE})
	require.NoError(t, err)
	assert.JSONEq(t, `{"code":"IN_USE"}`, string(b))

	var decoded struct {
		Code ErrorCode `json:"code"`
	}
	require.NoError(t, json.Unmarshal(b, &decoded))
	assert.Equal(t, ErrorCode_IN_USE, decoded.Code)
	assert.Equal(t, ErrorCode_UNSPECIFIED, ParseErrorCode("NOPE"))
}

func TestAppError_WrappedLookup(t *testing.T) {
	base := ErrDuplicateName("category", "Intro")
	wrapped := fmt.Errorf("create category: %w", base)

	assert.True(t, HasCode(wrapped, ErrorCode_DUPLICATE_NAME))
	assert.Equal(t, KindValidation, KindOf(wrapped))
	assert.Equal(t, KindInternal, KindOf(fmt.Errorf("plain")))

	appErr, ok := As(wrapped)
	require.True(t, ok)
	assert.Equal(t, "Intro", appErr.Details["name"])
}

func TestAppError_WithDetailDoesNotShareMap(t *testing.T) {
	a := ErrNotFound("criteria").WithDetail("id", "1")
	b := a.WithDetail("id", "2")
	assert.Equal(t, "1", a.Details["id"])
	assert.Equal(t, "2", b.Details["id"])
}

func TestErrUnauthorized_IsGeneric(t *testing.T) {
	err := ErrUnauthorized("delete criteria")
	assert.Equal(t, "Permission denied", err.Message)
	assert.Equal(t, "delete criteria", err.Details["action"])
}
