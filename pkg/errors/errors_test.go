package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_Message(t *testing.T) {
	err := New(ErrCodeNotFound, "account not found")
	assert.Equal(t, "[NOT_FOUND] account not found", err.Error())

	cause := stderrors.New("connection reset")
	wrapped := Wrap(cause, ErrCodePersistenceFailure, "failed to insert account")
	assert.Equal(t, "[PERSISTENCE_FAILURE] failed to insert account: connection reset", wrapped.Error())
	assert.ErrorIs(t, wrapped, cause)
}

func TestWrap_Nil(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrCodeInternal, "nothing"))
}

func TestIsCode(t *testing.T) {
	err := fmt.Errorf("outer: %w", DuplicateEntity("account", "alice"))
	assert.True(t, IsCode(err, ErrCodeDuplicateEntity))
	assert.False(t, IsCode(err, ErrCodeNotFound))
	assert.False(t, IsCode(stderrors.New("plain"), ErrCodeDuplicateEntity))
}

func TestGetCode(t *testing.T) {
	assert.Equal(t, ErrCodeInvalidParam, GetCode(InvalidParam("username", "must not be empty")))
	assert.Equal(t, ErrCodeInternal, GetCode(stderrors.New("plain")))
}

func TestInvalidParam_Detail(t *testing.T) {
	err := InvalidParam("password", "must not be empty")
	require.NotNil(t, err.Details)
	assert.Equal(t, "password", err.Details["field"])
	assert.Equal(t, "invalid password: must not be empty", err.Message)
}

func TestPersistenceFailure_WithoutCause(t *testing.T) {
	err := PersistenceFailure(nil, "store rejected write")
	assert.Equal(t, ErrCodePersistenceFailure, err.Code)
	assert.Nil(t, err.Err)
}

func TestMapErrorCodeToHTTPStatus(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want int
	}{
		{ErrCodeInvalidParam, http.StatusBadRequest},
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodeDuplicateEntity, http.StatusConflict},
		{ErrCodePersistenceFailure, http.StatusInternalServerError},
		{ErrCodeInternal, http.StatusInternalServerError},
		{ErrorCode("SOMETHING_ELSE"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, MapErrorCodeToHTTPStatus(tt.code))
			assert.Equal(t, tt.want, New(tt.code, "x").HTTPStatusCode())
		})
	}
}
