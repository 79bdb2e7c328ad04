package course

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// HTTPSource talks to the course service's structure endpoint.
type HTTPSource struct {
	base   string
	client *http.Client
}

func NewHTTPSource(baseURL string, client *http.Client) *HTTPSource {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPSource{base: strings.TrimSuffix(baseURL, "/"), client: client}
}

func (s *HTTPSource) FetchStructure(ctx context.Context, courseID string) (Structure, error) {
	u := s.base + "/courses/" + url.PathEscape(courseID) + "/structure"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Structure{}, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return Structure{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Structure{}, fmt.Errorf("course service: unexpected status %d", resp.StatusCode)
	}
	var out Structure
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Structure{}, err
	}
	return out, nil
}
