package simulator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/radieske/esports-prediction-poc/internal/market"
	"github.com/radieske/esports-prediction-poc/internal/prediction-service/dto"
)

// APIError é a resposta de erro do prediction-service.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Message)
}

// Client fala com a API REST do prediction-service.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{BaseURL: baseURL, HTTP: &http.Client{Timeout: 5 * time.Second}}
}

func (c *Client) CreateMatch(ctx context.Context, nm market.NewMatch) error {
	return c.do(ctx, http.MethodPost, "/v1/admin/matches", "", nm, nil)
}

func (c *Client) Deposit(ctx context.Context, userID, amount, ref string) (dto.AccountResponse, error) {
	var out dto.AccountResponse
	err := c.do(ctx, http.MethodPost, "/v1/admin/accounts/"+userID+"/deposit", "",
		dto.DepositRequest{Amount: amount, ExternalRef: ref}, &out)
	return out, err
}

func (c *Client) PlaceBet(ctx context.Context, userID string, req dto.PlaceBetRequest) (dto.BetResponse, error) {
	var out dto.BetResponse
	err := c.do(ctx, http.MethodPost, "/v1/bets", userID, req, &out)
	return out, err
}

func (c *Client) StartDraft(ctx context.Context, matchID string) error {
	return c.do(ctx, http.MethodPost, "/v1/admin/matches/"+matchID+"/draft", "", nil, nil)
}

func (c *Client) SubmitResults(ctx context.Context, matchID string, r market.DraftResults) (dto.ResultsResponse, error) {
	var out dto.ResultsResponse
	err := c.do(ctx, http.MethodPost, "/v1/admin/matches/"+matchID+"/results", "",
		dto.SubmitResultsRequest{Results: r}, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path, userID string, body, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return fmt.Errorf("encode %s: %w", path, err)
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var e dto.ErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return &APIError{Status: resp.StatusCode, Code: e.Error, Message: e.Message}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
