// Package feedback forwards user feedback to a remote collector. The
// submission result is reported honestly: a relay failure is the caller's
// failure, not a silent success.
package feedback

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hindsight-app/core/internal/pkg/response"
)

type SubmitFeedbackDTO struct {
	Text    string `json:"text" binding:"required"`
	Contact string `json:"contact"`
	Device  string `json:"device"`
}

type Service struct {
	endpoint   string
	httpClient *http.Client
}

func NewService(endpoint string) *Service {
	return &Service{
		endpoint:   strings.TrimSpace(endpoint),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type feedbackPayload struct {
	Text        string    `json:"text"`
	Contact     string    `json:"contact,omitempty"`
	Device      string    `json:"device,omitempty"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// Submit posts the feedback to the configured collector.
func (s *Service) Submit(ctx context.Context, dto SubmitFeedbackDTO) error {
	if s.endpoint == "" {
		return fmt.Errorf("feedback endpoint not configured")
	}

	payload := feedbackPayload{
		Text:        strings.TrimSpace(dto.Text),
		Contact:     strings.TrimSpace(dto.Contact),
		Device:      strings.TrimSpace(dto.Device),
		SubmittedAt: time.Now(),
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("feedback collector responded with %s", resp.Status)
	}
	return nil
}

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/feedback", h.submit)
}

func (h *Handler) submit(c *gin.Context) {
	var dto SubmitFeedbackDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := h.svc.Submit(c.Request.Context(), dto); err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, gin.H{"ok": 1})
}
