package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// HTTPCredentialProvider fetches ephemeral credentials from the server-side
// proxy endpoint with a plain GET.
type HTTPCredentialProvider struct {
	// URL is the full credential endpoint, e.g.
	// "http://localhost:8080/api/realtime/credentials".
	URL string

	// Client defaults to http.DefaultClient.
	Client *http.Client
}

// EphemeralKey implements CredentialProvider.
func (p *HTTPCredentialProvider) EphemeralKey(ctx context.Context) (string, error) {
	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.URL, nil)
	if err != nil {
		return "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching credential: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("credential endpoint returned %s", resp.Status)
	}
	var body struct {
		Value string `json:"value"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decoding credential response: %w", err)
	}
	if body.Value == "" {
		return "", fmt.Errorf("credential endpoint returned no secret")
	}
	return body.Value, nil
}
