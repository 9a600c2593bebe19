package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Yates-Labs/verbatim/internal/orchestrator"
	"github.com/Yates-Labs/verbatim/internal/rag"
)

// Error codes returned in the body of non-200 responses.
const (
	CodeInvalidRequest        = "INVALID_REQUEST"
	CodeRetrievalUnavailable  = "RETRIEVAL_UNAVAILABLE"
	CodeGenerationUnavailable = "GENERATION_UNAVAILABLE"
	CodeInternal              = "INTERNAL_ERROR"
)

// Answerer is the pipeline as seen by the HTTP layer.
type Answerer interface {
	Answer(ctx context.Context, question string) (*orchestrator.Outcome, error)
}

type askReq struct {
	Question string `json:"question"`
}

// ErrorResponse is the body for requests that could not be answered or refused.
type ErrorResponse struct {
	Code      string `json:"code"`
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// AnswerHandler serves questions. Refusals are 200 responses; only bad
// input and collaborator outages produce error statuses.
type AnswerHandler struct {
	answerer Answerer
	timeout  time.Duration
}

func NewAnswerHandler(answerer Answerer, timeout time.Duration) *AnswerHandler {
	return &AnswerHandler{answerer: answerer, timeout: timeout}
}

func (h *AnswerHandler) RegisterRoutes(r gin.IRouter) {
	r.POST("/ask", h.ask)
	r.POST("/rag", h.ask)
}

func (h *AnswerHandler) ask(c *gin.Context) {
	rid := GetRequestID(c.Request.Context())

	var req askReq
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Question) == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: CodeInvalidRequest, Error: "question is required", RequestID: rid})
		return
	}

	ctx := c.Request.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	outcome, err := h.answerer.Answer(ctx, req.Question)
	if err != nil {
		status, code := classify(err)
		log.Printf("[req] id=%s answer failed: %v", rid, err)
		c.JSON(status, ErrorResponse{Code: code, Error: err.Error(), RequestID: rid})
		return
	}

	c.JSON(http.StatusOK, outcome.Response)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, orchestrator.ErrEmptyQuestion):
		return http.StatusBadRequest, CodeInvalidRequest
	case errors.Is(err, rag.ErrRetrievalUnavailable):
		return http.StatusServiceUnavailable, CodeRetrievalUnavailable
	case errors.Is(err, orchestrator.ErrGenerationUnavailable):
		return http.StatusServiceUnavailable, CodeGenerationUnavailable
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}
