package domain

import (
	"net/http"

	"github.com/pkg/errors"
)

var (
	ErrIDTooLong        = NewErr("ID_TOO_LONG", "id length too long", http.StatusBadRequest)
	ErrIDInvalidChars   = NewErr("ID_INVALID_CHARS", "id contains invalid characters", http.StatusBadRequest)
	ErrInvalidRequest   = NewErr("INVALID_REQUEST", "invalid request", http.StatusBadRequest)
	ErrPasteNotFound    = NewErr("PASTE_NOT_FOUND", "paste not found", http.StatusNotFound)
	ErrUnauthorized     = NewErr("UNAUTHORIZED", "unauthorized", http.StatusUnauthorized)
	ErrMethodNotAllowed = NewErr("METHOD_NOT_ALLOWED", "method not allowed", http.StatusMethodNotAllowed)
	ErrStorageExhausted = NewErr("STORAGE_EXHAUSTED", "no free id after retries", http.StatusInternalServerError)
	ErrStorageFault     = NewErr("STORAGE_FAULT", "storage fault", http.StatusInternalServerError)
	ErrInternalServer   = NewErr("INTERNAL_ERROR", "internal error", http.StatusInternalServerError)

	// ErrSlotTaken is returned by backends when an id is already bound.
	// The store retries on it; it is never shown to clients.
	ErrSlotTaken = NewErr("SLOT_TAKEN", "slot already taken", http.StatusInternalServerError)
)

type Err struct {
	Code   string `json:"code"`
	Msg    string `json:"message"`
	Status int    `json:"-"`
}

func (e *Err) Error() string { return e.Msg }

func NewErr(code, msg string, status int) *Err {
	return &Err{Code: code, Msg: msg, Status: status}
}

type ErrResp struct {
	Error ErrDetail `json:"error"`
}
type ErrDetail struct {
	Code string `json:"code"`
	Msg  string `json:"message"`
}

func ToResp(err error) ErrResp {
	if e := asErr(err); e != nil && e.Status < http.StatusInternalServerError {
		return ErrResp{Error: ErrDetail{Code: e.Code, Msg: e.Msg}}
	}
	return ErrResp{Error: ErrDetail{Code: ErrInternalServer.Code, Msg: ErrInternalServer.Msg}}
}

func Status(err error) int {
	if e := asErr(err); e != nil {
		return e.Status
	}
	return http.StatusInternalServerError
}

func asErr(err error) *Err {
	var e *Err
	if errors.As(err, &e) {
		return e
	}
	return nil
}
