package domain

import (
	"net/http"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"too long", ErrIDTooLong, http.StatusBadRequest},
		{"invalid chars", ErrIDInvalidChars, http.StatusBadRequest},
		{"not found", ErrPasteNotFound, http.StatusNotFound},
		{"unauthorized", ErrUnauthorized, http.StatusUnauthorized},
		{"method", ErrMethodNotAllowed, http.StatusMethodNotAllowed},
		{"exhausted", ErrStorageExhausted, http.StatusInternalServerError},
		{"wrapped", errors.Wrap(ErrPasteNotFound, "db get"), http.StatusNotFound},
		{"unknown", errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Status(tt.err))
		})
	}
}

func TestToRespHidesInternalDetail(t *testing.T) {
	resp := ToResp(errors.Wrap(ErrStorageFault, "open upload/abc: permission denied"))
	assert.Equal(t, "INTERNAL_ERROR", resp.Error.Code)

	resp = ToResp(ErrIDInvalidChars)
	assert.Equal(t, "ID_INVALID_CHARS", resp.Error.Code)
}

func TestWrappedSentinelMatches(t *testing.T) {
	err := errors.Wrap(ErrSlotTaken, "link")
	assert.True(t, errors.Is(err, ErrSlotTaken))
	assert.False(t, errors.Is(err, ErrPasteNotFound))
}
