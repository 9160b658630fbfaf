package handler

import (
	"encoding/json"
	"net/http"

	"buggfix/internal/domain"
	"buggfix/internal/service"
	"buggfix/pkg/response"

	"github.com/go-playground/validator/v10"
)

type AIFixHandler struct {
	aifixService *service.AIFixService
	validator    *validator.Validate
}

func NewAIFixHandler(aifixService *service.AIFixService) *AIFixHandler {
	return &AIFixHandler{
		aifixService: aifixService,
		validator:    validator.New(),
	}
}

// FixCode proxies the snippet to the completion API and returns the raw
// suggestion text; the client is responsible for parsing out the code.
func (h *AIFixHandler) FixCode(w http.ResponseWriter, r *http.Request) {
	var req domain.FixCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	if !domain.ValidLanguage(req.Language) {
		response.BadRequest(w, "unsupported language")
		return
	}

	suggestions, err := h.aifixService.FixCode(r.Context(), &req)
	if err != nil {
		response.ErrorWithDetails(w, http.StatusInternalServerError,
			"AI completion request failed", err.Error())
		return
	}

	response.Success(w, domain.FixCodeResponse{Suggestions: suggestions})
}
