package harness

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/go-coldbrew/log"
)

// ServeHTTP dispatches a net/http request to the worker.
func (h *Harness) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	resp, err := h.Dispatch(r.Context(), &Request{
		Method: r.Method,
		URL:    r.URL.RequestURI(),
		Header: r.Header.Clone(),
		Body:   body,
	})
	if err != nil {
		log.Error(r.Context(), "msg", "dispatch failed", "method", r.Method, "path", r.URL.Path, "err", err)
		http.Error(w, err.Error(), dispatchStatus(err))
		return
	}
	defer func() { _ = resp.Body.Close() }()

	for name, values := range resp.Header {
		for _, v := range values {
			w.Header().Add(name, v)
		}
	}
	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil {
		log.Warn(r.Context(), "msg", "write response failed", "path", r.URL.Path, "err", err)
		return
	}

	log.Debug(r.Context(), "msg", "dispatched", "method", r.Method, "path", r.URL.Path, "status", resp.StatusCode)
}

// dispatchStatus maps a Dispatch error onto the status returned to the client.
func dispatchStatus(err error) int {
	switch {
	case errors.Is(err, ErrInvalidMethod):
		return http.StatusMethodNotAllowed
	case errors.Is(err, ErrInvalidURL):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}
