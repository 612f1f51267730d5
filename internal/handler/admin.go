package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rfpforge/backend/internal/model"
	"github.com/rfpforge/backend/internal/repository"
)

// AdminHandler 固定字段模板、领域与知识库的维护接口
type AdminHandler struct {
	fields  repository.CustomFieldRepository
	domains repository.DomainRepository
	kbs     repository.KnowledgeBaseRepository
}

func NewAdminHandler(
	fields repository.CustomFieldRepository,
	domains repository.DomainRepository,
	kbs repository.KnowledgeBaseRepository,
) *AdminHandler {
	return &AdminHandler{fields: fields, domains: domains, kbs: kbs}
}

func (h *AdminHandler) ListCustomFields(c *gin.Context) {
	fields, err := h.fields.List()
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, fields)
}

func (h *AdminHandler) CreateCustomField(c *gin.Context) {
	var field model.CustomField
	if err := c.ShouldBindJSON(&field); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if field.Code == "" || field.Phase == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "code and phase are required"})
		return
	}
	if err := h.fields.Create(&field); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, field)
}

func (h *AdminHandler) DeleteCustomField(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.fields.Delete(id); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

func (h *AdminHandler) ListDomains(c *gin.Context) {
	domains, err := h.domains.List()
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, domains)
}

func (h *AdminHandler) ListKnowledgeBases(c *gin.Context) {
	kbs, err := h.kbs.List()
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, kbs)
}

type knowledgeBaseRequest struct {
	Name               string `json:"name"`
	DomainID           uint   `json:"domain_id" binding:"required"`
	ExtractedPractices string `json:"extracted_practices"`
	State              string `json:"state"`
}

func (h *AdminHandler) CreateKnowledgeBase(c *gin.Context) {
	var req knowledgeBaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if _, err := h.domains.Get(req.DomainID); err != nil {
		respondServiceError(c, err)
		return
	}

	state := req.State
	if state == "" {
		state = "draft"
	}
	kb := &model.KnowledgeBase{
		Name:               req.Name,
		DomainID:           req.DomainID,
		ExtractedPractices: req.ExtractedPractices,
		State:              state,
	}
	if err := h.kbs.Create(kb); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, kb)
}
