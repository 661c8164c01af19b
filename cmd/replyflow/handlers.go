package main

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"replyflow/internal/constants"
	apperrors "replyflow/internal/errors"
	"replyflow/internal/models"
	"replyflow/internal/service"

	"github.com/gorilla/mux"
)

// apiError is the error payload of a failed response envelope
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type apiResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *apiError   `json:"error,omitempty"`
}

func (s *Server) writeData(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(apiResponse{Success: true, Data: data}); err != nil {
		s.logger.WithError(err).Error("Failed to encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, code apperrors.ErrorCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	response := apiResponse{
		Success: false,
		Error:   &apiError{Code: string(code), Message: message},
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		s.logger.WithError(err).Error("Failed to encode error response")
	}
}

// writeServiceError maps an error from the service layer to a response
func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case apperrors.IsNotFound(err):
		s.writeError(w, http.StatusNotFound, apperrors.ErrCodeNotFound, "rule not found")
	case apperrors.IsValidation(err):
		s.writeError(w, http.StatusBadRequest, apperrors.ErrCodeValidationFailed, err.Error())
	case apperrors.IsNotConnected(err):
		s.writeError(w, http.StatusConflict, apperrors.ErrCodeNotConnected, "not connected")
	default:
		s.logger.WithError(err).Error("Request failed")
		s.writeError(w, http.StatusInternalServerError, apperrors.ErrCodeInternalError, "internal error")
	}
}

func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.pipeline.IsRunning() {
			s.writeError(w, http.StatusServiceUnavailable, apperrors.ErrCodeInternalError, "pipeline not running")
			return
		}
		s.writeData(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func (s *Server) handleStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.writeData(w, http.StatusOK, s.lifecycle.Status())
	}
}

func (s *Server) handleQR() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		qr := s.lifecycle.GetQRCode()
		var payload *string
		if qr != "" {
			payload = &qr
		}
		s.writeData(w, http.StatusOK, map[string]*string{"qr": payload})
	}
}

func (s *Server) handleStats() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.writeData(w, http.StatusOK, s.pipeline.Stats(s.lifecycle.GetConnectionState()))
	}
}

// ruleRequest is the JSON body for rule create and update calls.
// Pointers distinguish absent fields from zero values.
type ruleRequest struct {
	Pattern       *string `json:"pattern"`
	Response      *string `json:"response"`
	Enabled       *bool   `json:"enabled"`
	CaseSensitive *bool   `json:"caseSensitive"`
	ChatType      *string `json:"chatType"`
	DelaySec      *int    `json:"delay"`
}

// normalizeChatType validates the chat type, accepting "all" as an
// alias for "any" for compatibility with older rule files.
func normalizeChatType(raw string) (models.ChatType, bool) {
	value := models.ChatType(strings.ToLower(strings.TrimSpace(raw)))
	if value == "all" {
		value = models.ChatTypeAny
	}
	if !models.ValidChatType(value) {
		return "", false
	}
	return value, true
}

// validateRuleRequest trims and checks the provided fields. Only fields
// that are present are validated; required presence is checked by the
// caller.
func (s *Server) validateRuleRequest(w http.ResponseWriter, req *ruleRequest) (input service.RuleUpdate, ok bool) {
	if req.Pattern != nil {
		trimmed := strings.TrimSpace(*req.Pattern)
		if trimmed == "" {
			s.writeError(w, http.StatusBadRequest, apperrors.ErrCodeValidationFailed, "pattern must not be empty")
			return input, false
		}
		input.Pattern = &trimmed
	}
	if req.Response != nil {
		trimmed := strings.TrimSpace(*req.Response)
		if trimmed == "" {
			s.writeError(w, http.StatusBadRequest, apperrors.ErrCodeValidationFailed, "response must not be empty")
			return input, false
		}
		input.Response = &trimmed
	}
	if req.ChatType != nil {
		chatType, valid := normalizeChatType(*req.ChatType)
		if !valid {
			s.writeError(w, http.StatusBadRequest, apperrors.ErrCodeValidationFailed, "chatType must be one of any, direct, group")
			return input, false
		}
		input.ChatType = &chatType
	}
	if req.DelaySec != nil {
		if *req.DelaySec < 0 || *req.DelaySec > constants.MaxReplyDelaySec {
			s.writeError(w, http.StatusBadRequest, apperrors.ErrCodeValidationFailed,
				"delay must be between 0 and "+strconv.Itoa(constants.MaxReplyDelaySec)+" seconds")
			return input, false
		}
		input.DelaySec = req.DelaySec
	}
	input.Enabled = req.Enabled
	input.CaseSensitive = req.CaseSensitive
	return input, true
}

func (s *Server) decodeRuleRequest(w http.ResponseWriter, r *http.Request) (*ruleRequest, bool) {
	var req ruleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, apperrors.ErrCodeValidationFailed, "invalid JSON body")
		return nil, false
	}
	return &req, true
}

func (s *Server) handleListRules() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.writeData(w, http.StatusOK, s.engine.Rules())
	}
}

func (s *Server) handleCreateRule() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := s.decodeRuleRequest(w, r)
		if !ok {
			return
		}
		if req.Pattern == nil || req.Response == nil {
			s.writeError(w, http.StatusBadRequest, apperrors.ErrCodeValidationFailed, "pattern and response are required")
			return
		}

		validated, ok := s.validateRuleRequest(w, req)
		if !ok {
			return
		}

		rule, err := s.engine.AddRule(r.Context(), service.RuleInput{
			Pattern:       *validated.Pattern,
			Response:      *validated.Response,
			Enabled:       validated.Enabled,
			CaseSensitive: validated.CaseSensitive,
			ChatType:      validated.ChatType,
			DelaySec:      validated.DelaySec,
		})
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		s.writeData(w, http.StatusCreated, rule)
	}
}

func (s *Server) handleUpdateRule() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		req, ok := s.decodeRuleRequest(w, r)
		if !ok {
			return
		}

		validated, ok := s.validateRuleRequest(w, req)
		if !ok {
			return
		}

		rule, err := s.engine.UpdateRule(r.Context(), id, validated)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		s.writeData(w, http.StatusOK, rule)
	}
}

func (s *Server) handleDeleteRule() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		if err := s.engine.DeleteRule(r.Context(), id); err != nil {
			s.writeServiceError(w, err)
			return
		}
		s.writeData(w, http.StatusOK, map[string]string{"id": id})
	}
}

func (s *Server) handleToggleRule() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		rule, err := s.engine.ToggleRule(r.Context(), id)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		s.writeData(w, http.StatusOK, rule)
	}
}

func (s *Server) handleGetLogs() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 0
		if raw := r.URL.Query().Get("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 0 {
				s.writeError(w, http.StatusBadRequest, apperrors.ErrCodeValidationFailed, "limit must be a non-negative integer")
				return
			}
			limit = parsed
		}

		logs, err := s.store.GetLogs(r.Context(), limit)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		s.writeData(w, http.StatusOK, logs)
	}
}

func (s *Server) handleClearLogs() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.store.ClearLogs(r.Context()); err != nil {
			s.writeServiceError(w, err)
			return
		}
		s.writeData(w, http.StatusOK, map[string]bool{"cleared": true})
	}
}
