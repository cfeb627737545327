package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPProvider calls a cross-encoder serving endpoint (TEI / Jina style
// /rerank API): POST {model, query, documents} -> per-document scores.
type HTTPProvider struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

var _ Reranker = &HTTPProvider{}

func NewHTTPProvider(baseURL, apiKey, model string) *HTTPProvider {
	if model == "" {
		model = "cross-encoder/ms-marco-MiniLM-L-6-v2"
	}
	return &HTTPProvider{
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type rerankRequest struct {
	Model     string   `json:"model"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
}

type rerankResponse struct {
	Results []struct {
		Index          int     `json:"index"`
		RelevanceScore float64 `json:"relevance_score"`
	} `json:"results"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (p *HTTPProvider) Score(ctx context.Context, query string, docs []string) ([]float64, error) {
	if len(docs) == 0 {
		return nil, nil
	}

	reqBody := rerankRequest{
		Model:     p.model,
		Query:     query,
		Documents: docs,
	}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", p.baseURL+"/rerank", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rerank request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rerank api error (status %d): %s", resp.StatusCode, string(bodyBytes))
	}

	var rr rerankResponse
	if err := json.Unmarshal(bodyBytes, &rr); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if rr.Error != nil {
		return nil, fmt.Errorf("rerank api returned error: %s", rr.Error.Message)
	}

	scores := make([]float64, len(docs))
	for _, res := range rr.Results {
		if res.Index >= 0 && res.Index < len(scores) {
			scores[res.Index] = res.RelevanceScore
		}
	}
	return scores, nil
}
