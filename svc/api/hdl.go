package api

import (
	"net/http"
)

// Hdl adapts net/http requests to the Dispatcher.
type Hdl struct {
	d *Dispatcher
}

func NewHdl(d *Dispatcher) *Hdl {
	return &Hdl{d: d}
}

func (h *Hdl) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp := h.d.Dispatch(r.Context(), Request{
		Method: r.Method,
		Target: r.URL.RequestURI(),
		Body:   r.Body,
	})
	for k, v := range resp.Header {
		w.Header()[k] = v
	}
	w.WriteHeader(resp.Status)
	if len(resp.Body) > 0 && r.Method != http.MethodHead {
		w.Write(resp.Body)
	}
}
