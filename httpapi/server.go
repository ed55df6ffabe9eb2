// Package httpapi implements the HTTP control surface: a small JSON API
// over the Streams Table, backed by chi, that posts TableChange to the
// Dispatcher after every successful mutation.
package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pipeless-ai/pipeless/models"
	"github.com/pipeless-ai/pipeless/streams"
)

// Server wires the Streams Table and the Dispatcher's event channel to an
// http.Handler implementing the streams control surface.
type Server struct {
	table            *streams.Table
	dispatcherEvents chan<- models.DispatcherEvent
	log              zerolog.Logger
}

func New(table *streams.Table, dispatcherEvents chan<- models.DispatcherEvent, log zerolog.Logger) *Server {
	return &Server{table: table, dispatcherEvents: dispatcherEvents, log: log}
}

// Handler builds the chi router. Plain HTTP, JSON in and out, no auth —
// the control surface is meant to run on localhost.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	r.Get("/streams", s.handleList)
	r.Post("/streams", s.handleCreate)
	r.Put("/streams/{id}", s.handleUpdate)
	r.Delete("/streams/{id}", s.handleDelete)

	return r
}

// streamRequest is the shared POST/PUT request body. Fields are pointers
// on PUT so "absent" is distinguishable from "empty string"; POST treats
// absent InputURI/FramePath as a 400.
type streamRequest struct {
	InputURI      *string  `json:"input_uri,omitempty"`
	OutputURI     *string  `json:"output_uri,omitempty"`
	FramePath     []string `json:"frame_path,omitempty"`
	RestartPolicy *string  `json:"restart_policy,omitempty"`
}

type streamResponse struct {
	ID            string   `json:"id"`
	InputURI      string   `json:"input_uri"`
	OutputURI     string   `json:"output_uri,omitempty"`
	FramePath     []string `json:"frame_path"`
	RestartPolicy string   `json:"restart_policy"`
	PipelineID    string   `json:"pipeline_id,omitempty"`
	TargetState   string   `json:"target_state"`
}

func toResponse(e *streams.Entry) streamResponse {
	resp := streamResponse{
		ID:            e.ID.String(),
		InputURI:      e.InputURI,
		OutputURI:     e.OutputURI,
		FramePath:     e.FramePath,
		RestartPolicy: e.RestartPolicy.String(),
		TargetState:   e.TargetState.String(),
	}
	if e.PipelineID != nil {
		resp.PipelineID = e.PipelineID.String()
	}
	return resp
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	s.table.RLock()
	entries := s.table.All()
	s.table.RUnlock()

	out := make([]streamResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toResponse(e))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req streamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.InputURI == nil || *req.InputURI == "" {
		writeError(w, http.StatusBadRequest, "input_uri is required")
		return
	}
	if len(req.FramePath) == 0 {
		writeError(w, http.StatusBadRequest, "frame_path is required")
		return
	}

	policy := streams.RestartNever
	if req.RestartPolicy != nil {
		parsed, err := streams.ParseRestartPolicy(*req.RestartPolicy)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		policy = parsed
	}

	outputURI := ""
	if req.OutputURI != nil {
		outputURI = *req.OutputURI
	}

	entry := streams.NewEntry(*req.InputURI, outputURI, req.FramePath, policy, s.log)

	s.table.Lock()
	err := s.table.Add(entry)
	s.table.Unlock()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.notifyTableChange()
	writeJSON(w, http.StatusOK, toResponse(entry))
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "invalid stream id")
		return
	}

	var req streamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	var policy *streams.RestartPolicy
	if req.RestartPolicy != nil {
		parsed, err := streams.ParseRestartPolicy(*req.RestartPolicy)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		policy = &parsed
	}

	inputURI, outputURI := "", ""
	if req.InputURI != nil {
		inputURI = *req.InputURI
	}
	if req.OutputURI != nil {
		outputURI = *req.OutputURI
	}

	s.table.Lock()
	entry, err := s.table.UpdateByID(id, inputURI, outputURI, req.FramePath, policy)
	s.table.Unlock()
	if err == streams.ErrNotFound {
		writeError(w, http.StatusNotFound, "stream not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.notifyTableChange()
	writeJSON(w, http.StatusOK, toResponse(entry))
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "invalid stream id")
		return
	}

	s.table.Lock()
	entry, err := s.table.Remove(id)
	s.table.Unlock()
	if err == streams.ErrNotFound {
		writeError(w, http.StatusNotFound, "stream not found")
		return
	}

	s.notifyTableChange()
	writeJSON(w, http.StatusOK, toResponse(entry))
}

func (s *Server) notifyTableChange() {
	select {
	case s.dispatcherEvents <- models.NewTableChangeEvent():
	default:
		s.log.Warn().Msg("dispatcher event channel full, table change dropped by HTTP handler")
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
