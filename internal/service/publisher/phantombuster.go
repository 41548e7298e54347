package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const defaultPhantomBusterBaseURL = "https://api.phantombuster.com"

type PhantomBusterConfig struct {
	BaseURL string
	APIKey  string
}

// PhantomBusterAgent launches a PhantomBuster agent (phantom). The phantom
// reads its posts from the sheet it was configured with.
type PhantomBusterAgent struct {
	config PhantomBusterConfig
	client *http.Client
	logger *zap.Logger
}

type phantomLaunchResponse struct {
	ContainerID string `json:"containerId"`
	Error       string `json:"error"`
}

func NewPhantomBusterAgent(cfg PhantomBusterConfig, logger *zap.Logger) *PhantomBusterAgent {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultPhantomBusterBaseURL
	}
	return &PhantomBusterAgent{
		config: cfg,
		logger: logger,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (a *PhantomBusterAgent) Name() string {
	return "phantombuster"
}

func (a *PhantomBusterAgent) LaunchAgent(ctx context.Context, agentID string, args map[string]any, opts LaunchOptions) (*LaunchResult, error) {
	if a.config.APIKey == "" {
		return nil, fmt.Errorf("phantombuster api key is not configured")
	}
	if args == nil {
		args = map[string]any{}
	}

	body := map[string]any{
		"id":           agentID,
		"argument":     args,
		"manualLaunch": opts.ManualLaunch,
		"saveArgument": opts.SaveArgument,
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	url := strings.TrimRight(a.config.BaseURL, "/") + "/api/v2/agents/launch"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Phantombuster-Key-1", a.config.APIKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("phantombuster API returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var response phantomLaunchResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if response.Error != "" {
		return nil, fmt.Errorf("phantombuster launch error: %s", response.Error)
	}

	a.logger.Info("Phantom launched",
		zap.String("agent_id", agentID),
		zap.String("container_id", response.ContainerID))

	return &LaunchResult{ContainerID: response.ContainerID}, nil
}
