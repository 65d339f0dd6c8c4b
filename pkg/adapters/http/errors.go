package http

import (
	"errors"
	"net/http"

	"github.com/aretw0/waypoint/pkg/domain"
)

// errorBody is the JSON shape of every failed response.
type errorBody struct {
	Detail string `json:"detail"`
}

// StatusFor maps an engine error to an HTTP status code.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrNodeNotInWorkflow):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrDuplicateID):
		return http.StatusConflict
	case errors.Is(err, domain.ErrNoStartNode),
		errors.Is(err, domain.ErrNoEndNode),
		errors.Is(err, domain.ErrNoPathFound),
		errors.Is(err, domain.ErrMissingConditionContext),
		errors.Is(err, domain.ErrInvalidExpression),
		errors.Is(err, domain.ErrEvaluation):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// respondError writes err with the mapped status. Server errors are logged and hidden from
// the client.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	detail := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		detail = http.StatusText(status)
	}
	respondJSON(w, status, errorBody{Detail: detail})
}

func (s *Server) badRequest(w http.ResponseWriter, detail string) {
	respondJSON(w, http.StatusBadRequest, errorBody{Detail: detail})
}
