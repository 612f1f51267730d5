package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rfpforge/backend/internal/service"
)

type PublishHandler struct {
	publish *service.PublishService
}

func NewPublishHandler(publish *service.PublishService) *PublishHandler {
	return &PublishHandler{publish: publish}
}

// Publish 发布文档快照
func (h *PublishHandler) Publish(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	published, err := h.publish.Publish(id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"token":        published.Token,
		"published_at": published.PublishedAt,
	})
}

// History 项目的历史发布记录
func (h *PublishHandler) History(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	history, err := h.publish.ListByProject(id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, history)
}

// GetByToken 匿名读取已发布文档
func (h *PublishHandler) GetByToken(c *gin.Context) {
	published, err := h.publish.GetByToken(c.Param("token"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, published)
}
