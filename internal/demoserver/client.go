package demoserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// RequestDemo asks the server at baseURL for a new demo learner. videos < 0
// assigns every seeded video.
func RequestDemo(ctx context.Context, hc *http.Client, baseURL string, videos int) (*DemoResponse, error) {
	if hc == nil {
		hc = http.DefaultClient
	}
	url := strings.TrimRight(baseURL, "/") + "/demo"
	if videos >= 0 {
		url += fmt.Sprintf("?videos=%d", videos)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request demo user: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		var body struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&body)
		return nil, fmt.Errorf("request demo user: %s: %s", resp.Status, body.Error)
	}
	var out DemoResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode demo user: %w", err)
	}
	return &out, nil
}
