// Package push delivers review reminder notifications through a Bark-style
// push relay.
package push

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// ConfigFunc is called on each push to get the latest relay settings, so
// edits made through the settings API take effect without a restart.
type ConfigFunc func() (deviceKey, serverURL string)

// Service sends notifications via the Bark push API.
type Service struct {
	configFn   ConfigFunc
	httpClient *http.Client
}

// New creates a push service. configFn is consulted on every push.
func New(configFn ConfigFunc) *Service {
	return &Service{
		configFn:   configFn,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type pushPayload struct {
	DeviceKey string `json:"device_key"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	Group     string `json:"group,omitempty"`
}

// Push sends a notification. Returns an error if no device key is
// configured or the relay rejects the request.
func (s *Service) Push(title, body string) error {
	key, serverURL := s.configFn()
	if key == "" {
		return fmt.Errorf("push device key not configured")
	}
	if serverURL == "" {
		serverURL = "https://day.app"
	}

	payload := pushPayload{
		DeviceKey: key,
		Title:     title,
		Body:      body,
		Group:     "hindsight",
	}

	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	resp, err := s.httpClient.Post(serverURL+"/push", "application/json", bytes.NewReader(b))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("push relay responded with %s", resp.Status)
	}
	return nil
}
