package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rfpforge/backend/internal/service"
)

type DocumentHandler struct {
	architect *service.ArchitectService
	content   *service.ContentService
	status    *service.StatusService
	editor    *service.StructureEditor
}

func NewDocumentHandler(
	architect *service.ArchitectService,
	content *service.ContentService,
	status *service.StatusService,
	editor *service.StructureEditor,
) *DocumentHandler {
	return &DocumentHandler{
		architect: architect,
		content:   content,
		status:    status,
		editor:    editor,
	}
}

// GenerateStructure 生成/重生成文档目录
func (h *DocumentHandler) GenerateStructure(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	sections, err := h.architect.GenerateStructure(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, sections)
}

// DispatchContent 派发章节内容生成任务
func (h *DocumentHandler) DispatchContent(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	queued, err := h.content.DispatchContent(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "content generation started", "queued": queued})
}

// DispatchImages 派发图示图片生成任务
func (h *DocumentHandler) DispatchImages(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	queued, err := h.content.DispatchImages(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "image generation started", "queued": queued})
}

// GenerationStatus 查询生成进度（带阶段推进副作用）
func (h *DocumentHandler) GenerationStatus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	report, err := h.status.Status(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

type updateStructureRequest struct {
	Sections []service.SectionEdit `json:"sections" binding:"required"`
}

// UpdateStructure 应用用户的结构编辑，返回占位 ID 映射
func (h *DocumentHandler) UpdateStructure(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req updateStructureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	mapping, err := h.editor.ApplyEdit(id, req.Sections)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "structure updated", "id_mapping": mapping})
}

type updateContentRequest struct {
	Sections []service.SectionContentEdit `json:"sections" binding:"required"`
}

// UpdateContent 保存章节内容编辑
func (h *DocumentHandler) UpdateContent(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req updateContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.editor.SaveContent(id, req.Sections); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "content updated"})
}
