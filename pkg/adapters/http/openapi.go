package http

import (
	_ "embed"
	"net/http"
	"strings"
	"sync"

	"github.com/aretw0/waypoint"
	"github.com/getkin/kin-openapi/openapi3"
)

//go:embed openapi.yaml
var openapiSpec []byte

var loadSpec = sync.OnceValues(func() (*openapi3.T, error) {
	return openapi3.NewLoader().LoadFromData(openapiSpec)
})

// Spec returns the parsed OpenAPI document served at /openapi.yaml.
func Spec() (*openapi3.T, error) {
	return loadSpec()
}

func (s *Server) handleOpenAPI(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	_, _ = w.Write(openapiSpec)
}

func (s *Server) handleInfo(w http.ResponseWriter, _ *http.Request) {
	apiVersion := "unknown"
	if doc, err := Spec(); err == nil && doc.Info != nil {
		apiVersion = doc.Info.Version
	} else if err != nil {
		s.logger.Error("failed to load OpenAPI document", "err", err)
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"app":         "waypoint-http",
		"version":     strings.TrimSpace(waypoint.Version),
		"api_version": apiVersion,
	})
}
