package errors

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetCode(t *testing.T) {
	tests := []struct {
		name       string
		code       int
		wantStatus int
	}{
		{"decode", ErrDecode, http.StatusUnprocessableEntity},
		{"payload shape", ErrPayloadShape, http.StatusUnprocessableEntity},
		{"connection", ErrConnection, http.StatusBadGateway},
		{"session not found", ErrSessionNotFound, http.StatusNotFound},
		{"unauthorized", ErrUnauthorized, http.StatusUnauthorized},
		{"unknown falls back to internal", 424242, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantStatus, GetHTTPStatus(tt.code))
		})
	}
}

func TestIsConnectionCode(t *testing.T) {
	assert.True(t, IsConnectionCode(ErrConnection))
	assert.True(t, IsConnectionCode(ErrStreamClosed))
	assert.True(t, IsConnectionCode(ErrHealthCheck))
	assert.False(t, IsConnectionCode(ErrReconnectFailed))
	assert.False(t, IsConnectionCode(ErrDecode))
	assert.False(t, IsConnectionCode(ErrSession))
}

func TestWrap(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrConnection))

	base := io.ErrUnexpectedEOF
	wrapped := Wrap(base, ErrConnection, "reading event stream")
	require.NotNil(t, wrapped)
	assert.Equal(t, ErrConnection, wrapped.Code)
	assert.True(t, errors.Is(wrapped, io.ErrUnexpectedEOF))
	assert.Equal(t, "reading event stream", GetDetails(wrapped))

	// an already coded error keeps its code
	again := Wrap(fmt.Errorf("outer: %w", New(ErrSessionNotFound)), ErrConnection)
	assert.Equal(t, ErrSessionNotFound, again.Code)

	// new details do not mutate the original
	orig := New(ErrSession, "first")
	_ = Wrap(orig, ErrSession, "second")
	assert.Equal(t, "first", orig.Details)
}

func TestIsAndExtractCode(t *testing.T) {
	err := fmt.Errorf("bootstrap: %w", Newf(ErrProjectNotFound, "Project '%s' not found on server", "demo"))

	assert.True(t, Is(err, ErrProjectNotFound))
	assert.False(t, Is(err, ErrConnection))
	assert.Equal(t, ErrProjectNotFound, ExtractCode(err))
	assert.Equal(t, ErrInternalServer, ExtractCode(errors.New("plain")))
	assert.Equal(t, "Project 'demo' not found on server", GetDetails(err))
}

func TestAppErrorFormatting(t *testing.T) {
	assert.Equal(t, "[6000] Malformed event payload", NewDecodeError().Error())
	assert.Equal(t, "[6001] Event payload has unexpected shape: message.updated: properties.info missing",
		NewShapeError("message.updated", "properties.info missing").Error())
	assert.Equal(t, "Connection lost", New(ErrConnection).Reason())
	assert.Equal(t, "boom", New(ErrSession, "boom").Reason())
	assert.Equal(t, "Malformed event payload: bad json", FormatError(ErrDecode, "bad json"))
}

func TestNewConnectionError(t *testing.T) {
	assert.Equal(t, ErrConnection, NewConnectionError(nil).Code)

	err := NewConnectionError(io.EOF, "stream")
	assert.True(t, errors.Is(err, io.EOF))
	assert.Equal(t, http.StatusBadGateway, err.HTTPStatus())
}
