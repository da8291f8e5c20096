// Package settings exposes the preference store: small string options keyed
// by name, persisted through the active storage backend so collaborators
// like the reminder job can read them at any time.
package settings

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/hindsight-app/core/internal/models"
	"github.com/hindsight-app/core/internal/pkg/response"
	"github.com/hindsight-app/core/internal/storage"
)

// Well-known option names.
const (
	OptionPushDeviceKey = "push_device_key"
	OptionPushServerURL = "push_server_url"
)

type Service struct {
	store storage.Store
}

func NewService(store storage.Store) *Service {
	return &Service{store: store}
}

// Get returns the option value, found=false when unset.
func (s *Service) Get(ctx context.Context, name string) (string, bool, error) {
	return s.store.GetOption(ctx, name)
}

// GetOr returns the option value or a fallback when unset or unreadable.
func (s *Service) GetOr(ctx context.Context, name, fallback string) string {
	val, ok, err := s.store.GetOption(ctx, name)
	if err != nil || !ok {
		return fallback
	}
	return val
}

func (s *Service) Set(ctx context.Context, name, value string) error {
	return s.store.SetOption(ctx, name, value)
}

func (s *Service) List(ctx context.Context) ([]models.Option, error) {
	return s.store.ListOptions(ctx)
}

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	options := rg.Group("/options")

	options.GET("", h.list)
	options.GET("/:name", h.get)
	options.PATCH("", h.patch)
}

func (h *Handler) list(c *gin.Context) {
	opts, err := h.svc.List(c.Request.Context())
	if err != nil {
		response.InternalError(c, err)
		return
	}
	out := make(map[string]string, len(opts))
	for _, opt := range opts {
		out[opt.Name] = opt.Value
	}
	response.OK(c, out)
}

func (h *Handler) get(c *gin.Context) {
	name := strings.TrimSpace(c.Param("name"))
	val, ok, err := h.svc.Get(c.Request.Context(), name)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if !ok {
		response.NotFoundMsg(c, "option not set")
		return
	}
	response.OK(c, gin.H{"name": name, "value": val})
}

func (h *Handler) patch(c *gin.Context) {
	var body map[string]string
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if len(body) == 0 {
		response.BadRequest(c, "no options given")
		return
	}
	for name, value := range body {
		name = strings.TrimSpace(name)
		if name == "" {
			response.BadRequest(c, "option name must not be empty")
			return
		}
		if err := h.svc.Set(c.Request.Context(), name, value); err != nil {
			response.InternalError(c, err)
			return
		}
	}
	response.NoContent(c)
}
