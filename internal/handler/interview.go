package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rfpforge/backend/internal/service"
)

type InterviewHandler struct {
	interviews *service.InterviewService
}

func NewInterviewHandler(interviews *service.InterviewService) *InterviewHandler {
	return &InterviewHandler{interviews: interviews}
}

// parseScope 默认项目范围
func parseScope(raw string) service.InterviewScope {
	if raw == string(service.ScopePractices) {
		return service.ScopePractices
	}
	return service.ScopeProject
}

type interviewRoundRequest struct {
	Scope string `json:"scope"`
}

// RunRound 执行一轮访谈
func (h *InterviewHandler) RunRound(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req interviewRoundRequest
	_ = c.ShouldBindJSON(&req)

	result, err := h.interviews.RunRound(c.Request.Context(), id, parseScope(req.Scope))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ListFields 取访谈字段列表
func (h *InterviewHandler) ListFields(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	fields, err := h.interviews.ListFields(id, parseScope(c.Query("scope")))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, fields)
}

type answerRequest struct {
	Scope       string `json:"scope"`
	Value       string `json:"value" binding:"required"`
	Elaboration string `json:"elaboration"`
}

// Answer 写入字段作答
func (h *InterviewHandler) Answer(c *gin.Context) {
	inputID, ok := pathID(c, "inputId")
	if !ok {
		return
	}
	var req answerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.interviews.Answer(parseScope(req.Scope), inputID, req.Value, req.Elaboration); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "answered"})
}

type irrelevantRequest struct {
	Scope  string `json:"scope"`
	Reason string `json:"reason"`
}

// MarkIrrelevant 标记字段与项目无关
func (h *InterviewHandler) MarkIrrelevant(c *gin.Context) {
	inputID, ok := pathID(c, "inputId")
	if !ok {
		return
	}
	var req irrelevantRequest
	_ = c.ShouldBindJSON(&req)

	if err := h.interviews.MarkIrrelevant(parseScope(req.Scope), inputID, req.Reason); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "marked irrelevant"})
}
