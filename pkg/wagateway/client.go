package wagateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"replyflow/pkg/wagateway/types"
)

// SendText sends a text message to the destination chat through the
// gateway's HTTP API.
func (g *Gateway) SendText(ctx context.Context, chatID, text string) error {
	payload := types.SendTextRequest{
		ChatID:  chatID,
		Text:    text,
		Session: g.cfg.SessionName,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal send request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.BaseURL+"/api/sendText", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	g.setAuth(req)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	var result types.SendTextResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil && resp.StatusCode == http.StatusOK {
		return fmt.Errorf("failed to decode send response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("send failed with status %d: %s", resp.StatusCode, result.Error)
	}

	return nil
}

// Logout explicitly terminates the authenticated session, invalidating
// the gateway's stored credentials for it.
func (g *Gateway) Logout(ctx context.Context) error {
	url := fmt.Sprintf("%s/api/sessions/%s/logout", g.cfg.BaseURL, g.cfg.SessionName)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	g.setAuth(req)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to logout: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("logout failed with status %d", resp.StatusCode)
	}

	return nil
}

// SessionStatus fetches the gateway's view of the session.
func (g *Gateway) SessionStatus(ctx context.Context) (*types.SessionInfo, error) {
	url := fmt.Sprintf("%s/api/sessions/%s", g.cfg.BaseURL, g.cfg.SessionName)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	g.setAuth(req)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get session failed with status %d", resp.StatusCode)
	}

	var info types.SessionInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to decode session response: %w", err)
	}

	return &info, nil
}

func (g *Gateway) setAuth(req *http.Request) {
	if g.cfg.APIKey != "" {
		req.Header.Set("X-Api-Key", g.cfg.APIKey)
	}
}
