package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/jonathan/skill-roadmap/internal/roadmap"
	"github.com/jonathan/skill-roadmap/internal/server/middleware"
	"github.com/jonathan/skill-roadmap/internal/types"
)

// handleGenerate creates a roadmap for the caller
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}

	var req types.GenerateRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	result, err := s.roadmaps.Generate(r.Context(), userID, req)
	if err != nil {
		s.engineError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, result)
}

// handleListRoadmaps lists the caller's roadmaps, newest first
func (s *Server) handleListRoadmaps(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}

	roadmaps, err := s.roadmaps.List(r.Context(), userID)
	if err != nil {
		s.engineError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"roadmaps": roadmaps,
		"count":    len(roadmaps),
	})
}

// handleGetRoadmap returns one of the caller's roadmaps
func (s *Server) handleGetRoadmap(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	id, ok := s.pathUUID(w, r, "id")
	if !ok {
		return
	}

	rm, err := s.roadmaps.Get(r.Context(), id, userID)
	if err != nil {
		s.engineError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, rm)
}

// handleGetRoadmapBySkill returns the caller's latest roadmap for a skill
func (s *Server) handleGetRoadmapBySkill(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	skillID, ok := s.pathUUID(w, r, "skill_id")
	if !ok {
		return
	}

	rm, err := s.roadmaps.GetBySkill(r.Context(), skillID, userID)
	if err != nil {
		s.engineError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, rm)
}

// handleFeedback revises a roadmap from learner feedback
func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	id, ok := s.pathUUID(w, r, "id")
	if !ok {
		return
	}

	var req types.FeedbackRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	rm, err := s.roadmaps.ReviseWithFeedback(r.Context(), id, userID, req.Feedback, req.Progress)
	if err != nil {
		s.engineError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, rm)
}

// handleUpdateStep patches one step, addressed by index or by step ID
func (s *Server) handleUpdateStep(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	id, ok := s.pathUUID(w, r, "id")
	if !ok {
		return
	}

	ref, err := roadmap.ParseStepRef(r.PathValue("step"))
	if err != nil {
		s.engineError(w, r, err)
		return
	}

	var req types.UpdateStepRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	rm, err := s.roadmaps.UpdateStep(r.Context(), id, userID, ref, req.StepPatch, req.OverallProgress)
	if err != nil {
		s.engineError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, rm)
}

// handleReorder rearranges the steps of a roadmap
func (s *Server) handleReorder(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	id, ok := s.pathUUID(w, r, "id")
	if !ok {
		return
	}

	var req types.ReorderRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	rm, err := s.roadmaps.Reorder(r.Context(), id, userID, req.Order)
	if err != nil {
		s.engineError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, rm)
}

// handleDeleteRoadmap removes one of the caller's roadmaps
func (s *Server) handleDeleteRoadmap(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	id, ok := s.pathUUID(w, r, "id")
	if !ok {
		return
	}

	if err := s.roadmaps.Delete(r.Context(), id, userID); err != nil {
		s.engineError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) userID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return uuid.Nil, false
	}
	return userID, true
}

func (s *Server) pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.errorResponse(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return false
		}
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}
