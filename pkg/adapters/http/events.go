package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/aretw0/waypoint/internal/logging"
	"github.com/aretw0/waypoint/pkg/domain"
)

// StreamManager fans lifecycle events out to Server-Sent Events subscribers.
// Subscribers pick one workflow or, with an empty id, every workflow.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan<- []byte]struct{} // workflow id -> set of channels
	logger      *slog.Logger
}

// NewStreamManager creates an empty manager. A nil logger discards output.
func NewStreamManager(logger *slog.Logger) *StreamManager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &StreamManager{
		subscribers: make(map[string]map[chan<- []byte]struct{}),
		logger:      logger,
	}
}

// Subscribe registers a listener and returns its channel with a cancel func.
func (sm *StreamManager) Subscribe(workflowID string) (<-chan []byte, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan []byte, 16)
	if _, ok := sm.subscribers[workflowID]; !ok {
		sm.subscribers[workflowID] = make(map[chan<- []byte]struct{})
	}
	sm.subscribers[workflowID][ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			sm.mu.Lock()
			defer sm.mu.Unlock()
			if subs, ok := sm.subscribers[workflowID]; ok {
				delete(subs, ch)
				close(ch)
				if len(subs) == 0 {
					delete(sm.subscribers, workflowID)
				}
			}
		})
	}
}

// Subscribers counts active listeners across all workflows.
func (sm *StreamManager) Subscribers() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	n := 0
	for _, subs := range sm.subscribers {
		n += len(subs)
	}
	return n
}

// Broadcast delivers msg to the workflow's listeners and to the catch-all listeners.
// Slow listeners lose the message instead of blocking the engine.
func (sm *StreamManager) Broadcast(workflowID string, msg []byte) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for _, key := range []string{workflowID, ""} {
		for ch := range sm.subscribers[key] {
			select {
			case ch <- msg:
			default:
				sm.logger.Warn("sse: client buffer full, dropping event", "workflow_id", workflowID)
			}
		}
		if workflowID == "" {
			break
		}
	}
}

// streamEvent is the SSE payload.
type streamEvent struct {
	Type       domain.EventType `json:"type"`
	WorkflowID string           `json:"workflow_id"`
	Edge       *domain.Edge     `json:"edge,omitempty"`
	Path       []string         `json:"path,omitempty"`
	DurationMS int64            `json:"duration_ms,omitempty"`
	Error      string           `json:"error,omitempty"`
}

// Hooks publishes edge and run events. Per-node traversal events are not streamed.
func (sm *StreamManager) Hooks() domain.LifecycleHooks {
	edge := func(_ context.Context, e *domain.EdgeEvent) {
		ev := streamEvent{Type: e.Type, WorkflowID: e.WorkflowID, Edge: &e.Edge}
		if e.Err != nil {
			ev.Error = e.Err.Error()
		}
		sm.publish(ev)
	}
	return domain.LifecycleHooks{
		OnEdgeCreated:  edge,
		OnEdgeRejected: edge,
		OnRunComplete: func(_ context.Context, e *domain.RunEvent) {
			ev := streamEvent{Type: e.Type, WorkflowID: e.WorkflowID, Path: e.Path, DurationMS: e.Duration.Milliseconds()}
			if e.Err != nil {
				ev.Error = e.Err.Error()
			}
			sm.publish(ev)
		},
	}
}

func (sm *StreamManager) publish(ev streamEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		sm.logger.Error("sse: encode event", "err", err)
		return
	}
	sm.Broadcast(ev.WorkflowID, data)
}

// handleEvents streams events as text/event-stream until the client disconnects.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondJSON(w, http.StatusInternalServerError, errorBody{Detail: "streaming not supported"})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	workflowID := r.URL.Query().Get("workflow_id")
	ch, cancel := s.events.Subscribe(workflowID)
	defer cancel()
	s.logger.Debug("sse: client subscribed", "workflow_id", workflowID)

	fmt.Fprint(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Debug("sse: client disconnected", "workflow_id", workflowID)
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}
