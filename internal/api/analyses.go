package api

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/uxray-ai/uxray/internal/core"
	"github.com/uxray-ai/uxray/internal/service"
)

// analyzeRequest is the wire form of an analysis request.
type analyzeRequest struct {
	ImageRef               string   `json:"image_ref,omitempty"`
	ImageBase64            string   `json:"image_base64,omitempty"`
	ImageType              string   `json:"image_type,omitempty"`
	UserText               string   `json:"user_text,omitempty"`
	ClarificationResponses []string `json:"clarification_responses,omitempty"`
	AcceptLowConfidence    bool     `json:"accept_low_confidence,omitempty"`
}

// handleAnalyze runs one analysis to completion. Clarification requests
// come back as 202 with the questions; results as 200.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var body analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if body.ImageRef == "" && body.ImageBase64 == "" {
		respondError(w, http.StatusBadRequest, "image_ref or image_base64 is required")
		return
	}

	req := &service.AnalyzeRequest{
		ImageRef:               body.ImageRef,
		ImageType:              body.ImageType,
		UserText:               body.UserText,
		ClarificationResponses: body.ClarificationResponses,
		AcceptLowConfidence:    body.AcceptLowConfidence,
	}
	if body.ImageBase64 != "" {
		data, err := base64.StdEncoding.DecodeString(body.ImageBase64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "image_base64 is not valid base64")
			return
		}
		req.Image = data
	}

	out, err := s.orchestrator.Analyze(r.Context(), req)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}

	if out.NeedsClarification {
		respondJSON(w, http.StatusAccepted, out)
		return
	}
	respondJSON(w, http.StatusOK, out)
}

// handleGetResult retrieves a stored analysis by request key.
func (s *Server) handleGetResult(w http.ResponseWriter, r *http.Request) {
	requestKey := chi.URLParam(r, "requestKey")
	result, err := s.store.LoadResult(r.Context(), requestKey)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if result == nil {
		respondError(w, http.StatusNotFound, "no result for request key")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// handleBreakers returns diagnostic snapshots of all provider breakers.
func (s *Server) handleBreakers(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"breakers": s.breakers.Snapshots(),
	})
}

// respondDomainError maps the error taxonomy onto HTTP status codes.
func (s *Server) respondDomainError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch core.GetCategory(err) {
	case core.ErrCatConfig, core.ErrCatValidation:
		status = http.StatusBadRequest
	case core.ErrCatAuth:
		status = http.StatusBadGateway
	case core.ErrCatTimeout:
		status = http.StatusGatewayTimeout
	case core.ErrCatCircuit, core.ErrCatStage, core.ErrCatProvider, core.ErrCatRecovery:
		status = http.StatusServiceUnavailable
	}
	respondError(w, status, err.Error())
}
