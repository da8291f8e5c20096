package dailylog

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/hindsight-app/core/internal/pkg/response"
)

type UpsertDailyLogDTO struct {
	DateKey string `json:"date_key"`
	Score   int    `json:"score" binding:"min=0,max=100"`
	Reason  string `json:"reason"`
}

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	daily := rg.Group("/daily")

	daily.GET("", h.list)
	daily.PUT("", h.upsert)
	daily.GET("/:date", h.get)
}

func (h *Handler) upsert(c *gin.Context) {
	var dto UpsertDailyLogDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	d, err := h.svc.Upsert(c.Request.Context(), dto)
	if err != nil {
		if strings.Contains(err.Error(), "invalid date_key") || strings.Contains(err.Error(), "out of range") {
			response.UnprocessableEntity(c, err.Error())
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OK(c, d)
}

func (h *Handler) get(c *gin.Context) {
	d, err := h.svc.Get(c.Request.Context(), c.Param("date"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if d == nil {
		response.NotFoundMsg(c, "no check-in for that date")
		return
	}
	response.OK(c, d)
}

func (h *Handler) list(c *gin.Context) {
	logs, err := h.svc.List(c.Request.Context())
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, logs)
}
