package tags

import (
	"github.com/gin-gonic/gin"
	"github.com/hindsight-app/core/internal/pkg/response"
)

type Handler struct {
	index *Index
}

func NewHandler(index *Index) *Handler {
	return &Handler{index: index}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	tags := rg.Group("/tags")

	tags.GET("", h.list)
	tags.GET("/search", h.search)
	tags.POST("/reload", h.reload)
}

func (h *Handler) list(c *gin.Context) {
	response.OK(c, h.index.All())
}

func (h *Handler) search(c *gin.Context) {
	response.OK(c, h.index.Search(c.Query("q")))
}

func (h *Handler) reload(c *gin.Context) {
	if err := h.index.Reload(c.Request.Context()); err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, h.index.All())
}
