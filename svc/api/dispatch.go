package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"pastabin/pkg/domain"
	"pastabin/svc/util"

	"github.com/pkg/errors"
)

// Store is what the dispatcher needs from the paste service.
type Store interface {
	Create(ctx context.Context, content []byte) (domain.PasteID, domain.Secret, error)
	Read(ctx context.Context, id domain.PasteID) ([]byte, error)
	Delete(ctx context.Context, id domain.PasteID, supplied *domain.Secret) error
}

// Request is a parsed inbound request. Target is the request-target as
// sent: escaped path plus optional query.
type Request struct {
	Method string
	Target string
	Body   io.Reader
}

type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

type CreateResp struct {
	URL  string `json:"url"`
	Pass string `json:"pass"`
}

type Dispatcher struct {
	store     Store
	version   string
	publicURL string
}

// NewDispatcher builds a dispatcher. Without publicURL the create reply
// carries a relative /<id> URL; the Host header is never trusted.
func NewDispatcher(s Store, version, publicURL string) *Dispatcher {
	if version == "" {
		version = "unknown"
	}
	return &Dispatcher{store: s, version: version, publicURL: strings.TrimRight(publicURL, "/")}
}

func (d *Dispatcher) Dispatch(ctx context.Context, req Request) Response {
	switch req.Method {
	case http.MethodGet:
		return d.get(ctx, req)
	case http.MethodPost:
		return d.post(ctx, req)
	case http.MethodDelete:
		return d.delete(ctx, req)
	}
	resp := errResp(ctx, domain.ErrMethodNotAllowed)
	resp.Header.Set("Allow", "GET, POST, DELETE")
	return resp
}

func (d *Dispatcher) get(ctx context.Context, req Request) Response {
	path, _, _ := strings.Cut(req.Target, "?")
	switch path {
	case "/":
		return text(http.StatusOK, []byte(usage(d.publicURL)))
	case "/favicon.ico":
		return errResp(ctx, domain.ErrPasteNotFound)
	case "/version":
		return text(http.StatusOK, []byte(d.version))
	}
	id, err := util.ParseID(strings.TrimLeft(path, "/"))
	if err != nil {
		return errResp(ctx, err)
	}
	content, err := d.store.Read(ctx, id)
	if err != nil {
		return errResp(ctx, err)
	}
	resp := text(http.StatusOK, content)
	resp.Header.Set("Content-Length", strconv.Itoa(len(content)))
	return resp
}

func (d *Dispatcher) post(ctx context.Context, req Request) Response {
	path, _, _ := strings.Cut(req.Target, "?")
	if path != "/" {
		return errResp(ctx, domain.ErrInvalidRequest)
	}
	var content []byte
	if req.Body != nil {
		var err error
		if content, err = io.ReadAll(req.Body); err != nil {
			return errResp(ctx, errors.Wrap(err, "read body"))
		}
	}
	id, secret, err := d.store.Create(ctx, content)
	if err != nil {
		return errResp(ctx, err)
	}
	body, err := json.Marshal(CreateResp{
		URL:  d.publicURL + "/" + id.String(),
		Pass: secret.String(),
	})
	if err != nil {
		return errResp(ctx, errors.Wrap(err, "encode create response"))
	}
	resp := Response{Status: http.StatusCreated, Header: http.Header{}, Body: body}
	resp.Header.Set("Content-Type", "application/json")
	resp.Header.Set("Location", "/"+id.String())
	return resp
}

func (d *Dispatcher) delete(ctx context.Context, req Request) Response {
	u, err := url.ParseRequestURI(req.Target)
	if err != nil {
		return errResp(ctx, domain.ErrInvalidRequest)
	}
	q, err := url.ParseQuery(u.RawQuery)
	if err != nil {
		return errResp(ctx, domain.ErrInvalidRequest)
	}
	var supplied *domain.Secret
	if vals, ok := q["password"]; ok {
		s := domain.Secret(vals[0])
		supplied = &s
	}
	id, err := util.ParseID(strings.TrimLeft(u.EscapedPath(), "/"))
	if err != nil {
		return errResp(ctx, err)
	}
	if err := d.store.Delete(ctx, id, supplied); err != nil {
		return errResp(ctx, err)
	}
	return Response{Status: http.StatusNoContent, Header: http.Header{}}
}

func text(status int, body []byte) Response {
	h := http.Header{}
	h.Set("Content-Type", "text/plain; charset=utf-8")
	return Response{Status: status, Header: h, Body: body}
}

func errResp(ctx context.Context, err error) Response {
	status := domain.Status(err)
	if status >= http.StatusInternalServerError {
		util.Error().
			Err(err).
			Str("request_id", util.GetRequestID(ctx)).
			Msg("request failed")
	}
	h := http.Header{}
	h.Set("X-Error-Code", domain.ToResp(err).Error.Code)
	return Response{Status: status, Header: h}
}
