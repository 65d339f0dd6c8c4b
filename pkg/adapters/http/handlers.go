package http

import (
	"net/http"
	"time"

	"github.com/aretw0/waypoint/pkg/domain"
	"github.com/go-chi/chi/v5"
)

type workflowRequest struct {
	Name string `json:"name"`
}

type nodeRequest struct {
	ID                  string            `json:"id,omitempty"`
	Type                domain.NodeType   `json:"type"`
	Status              domain.NodeStatus `json:"status,omitempty"`
	Message             string            `json:"message,omitempty"`
	ConditionText       string            `json:"condition_text,omitempty"`
	ConditionExpression string            `json:"condition_expression,omitempty"`
}

func (n nodeRequest) node() domain.Node {
	return domain.Node{
		ID:                  n.ID,
		Type:                n.Type,
		Status:              n.Status,
		Message:             n.Message,
		ConditionText:       n.ConditionText,
		ConditionExpression: n.ConditionExpression,
	}
}

type edgeRequest struct {
	ID          string            `json:"id,omitempty"`
	StartNodeID string            `json:"start_node_id"`
	EndNodeID   string            `json:"end_node_id"`
	Status      domain.EdgeStatus `json:"status,omitempty"`
}

func (e edgeRequest) edge() domain.Edge {
	return domain.Edge{ID: e.ID, StartNodeID: e.StartNodeID, EndNodeID: e.EndNodeID, Status: e.Status}
}

// pathResponse is returned by run and path. It keeps the {"path": [...]} shape of the
// original API.
type pathResponse struct {
	Path domain.Trace `json:"path"`
}

type validationResponse struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleListWorkflows(w http.ResponseWriter, r *http.Request) {
	skip, limit, err := page(r)
	if err != nil {
		s.badRequest(w, err.Error())
		return
	}
	wfs, err := s.svc.ListWorkflows(r.Context(), skip, limit)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if wfs == nil {
		wfs = []*domain.Workflow{}
	}
	respondJSON(w, http.StatusOK, wfs)
}

func (s *Server) handleCreateWorkflow(w http.ResponseWriter, r *http.Request) {
	var req workflowRequest
	if err := decodeJSON(r, &req); err != nil {
		s.badRequest(w, "invalid request body: "+err.Error())
		return
	}
	wf, err := s.svc.CreateWorkflow(r.Context(), req.Name)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, wf)
}

func (s *Server) handleGetWorkflow(w http.ResponseWriter, r *http.Request) {
	wf, err := s.svc.GetWorkflow(r.Context(), chi.URLParam(r, "workflowID"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, wf)
}

func (s *Server) handleDeleteWorkflow(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteWorkflow(r.Context(), chi.URLParam(r, "workflowID")); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCreateNode(w http.ResponseWriter, r *http.Request) {
	var req nodeRequest
	if err := decodeJSON(r, &req); err != nil {
		s.badRequest(w, "invalid request body: "+err.Error())
		return
	}
	n, err := s.svc.CreateNode(r.Context(), chi.URLParam(r, "workflowID"), req.node())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, n)
}

func (s *Server) handleCreateEdge(w http.ResponseWriter, r *http.Request) {
	var req edgeRequest
	if err := decodeJSON(r, &req); err != nil {
		s.badRequest(w, "invalid request body: "+err.Error())
		return
	}
	e, err := s.svc.CreateEdge(r.Context(), chi.URLParam(r, "workflowID"), req.edge())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, e)
}

func (s *Server) handleRunWorkflow(w http.ResponseWriter, r *http.Request) {
	trace, err := s.svc.RunWorkflow(r.Context(), chi.URLParam(r, "workflowID"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, pathResponse{Path: trace})
}

func (s *Server) handleShortestPath(w http.ResponseWriter, r *http.Request) {
	trace, err := s.svc.ShortestPath(r.Context(), chi.URLParam(r, "workflowID"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, pathResponse{Path: trace})
}

func (s *Server) handleValidateWorkflow(w http.ResponseWriter, r *http.Request) {
	err := s.svc.ValidateWorkflow(r.Context(), chi.URLParam(r, "workflowID"))
	resp := validationResponse{Valid: err == nil, Errors: []string{}}
	if err != nil {
		violations := domain.ValidationErrors(err)
		if violations == nil {
			s.respondError(w, r, err)
			return
		}
		for _, v := range violations {
			resp.Errors = append(resp.Errors, v.Error())
		}
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListNodes(w http.ResponseWriter, r *http.Request) {
	skip, limit, err := page(r)
	if err != nil {
		s.badRequest(w, err.Error())
		return
	}
	nodes, err := s.svc.ListNodes(r.Context(), skip, limit)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if nodes == nil {
		nodes = []domain.Node{}
	}
	respondJSON(w, http.StatusOK, nodes)
}

func (s *Server) handleGetNode(w http.ResponseWriter, r *http.Request) {
	n, err := s.svc.GetNode(r.Context(), chi.URLParam(r, "nodeID"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, n)
}

func (s *Server) handleUpdateNode(w http.ResponseWriter, r *http.Request) {
	var req nodeRequest
	if err := decodeJSON(r, &req); err != nil {
		s.badRequest(w, "invalid request body: "+err.Error())
		return
	}
	n, err := s.svc.UpdateNode(r.Context(), chi.URLParam(r, "nodeID"), req.node())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, n)
}

func (s *Server) handleDeleteNode(w http.ResponseWriter, r *http.Request) {
	n, err := s.svc.DeleteNode(r.Context(), chi.URLParam(r, "nodeID"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, n)
}

func (s *Server) handleListEdges(w http.ResponseWriter, r *http.Request) {
	skip, limit, err := page(r)
	if err != nil {
		s.badRequest(w, err.Error())
		return
	}
	edges, err := s.svc.ListEdges(r.Context(), skip, limit)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if edges == nil {
		edges = []domain.Edge{}
	}
	respondJSON(w, http.StatusOK, edges)
}

func (s *Server) handleGetEdge(w http.ResponseWriter, r *http.Request) {
	e, err := s.svc.GetEdge(r.Context(), chi.URLParam(r, "edgeID"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, e)
}

func (s *Server) handleUpdateEdge(w http.ResponseWriter, r *http.Request) {
	var req edgeRequest
	if err := decodeJSON(r, &req); err != nil {
		s.badRequest(w, "invalid request body: "+err.Error())
		return
	}
	e, err := s.svc.UpdateEdge(r.Context(), chi.URLParam(r, "edgeID"), req.edge())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, e)
}

// handleDeleteEdge responds with the removed edge, as the original API did.
func (s *Server) handleDeleteEdge(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "edgeID")
	e, err := s.svc.GetEdge(r.Context(), id)
	if err == nil {
		err = s.svc.DeleteEdge(r.Context(), id)
	}
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, e)
}
