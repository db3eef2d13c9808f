package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/wricardo/mcp-training/rpsmatch/game/engine"
)

// APIError is a non-2xx response from the match server
type APIError struct {
	Status  int
	Kind    string
	Message string
}

func (e *APIError) Error() string {
	if e.Kind == "" {
		return fmt.Sprintf("API error: %d", e.Status)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Client talks to the match REST API
type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *Client) CreateMatch(ctx context.Context, player1, player2 string) (*engine.Match, error) {
	body := map[string]string{"player1_name": player1, "player2_name": player2}
	var match engine.Match
	if err := c.do(ctx, http.MethodPost, "/api/matches", body, &match); err != nil {
		return nil, fmt.Errorf("create match: %w", err)
	}
	return &match, nil
}

func (c *Client) GetMatch(ctx context.Context, matchID string) (*engine.Match, error) {
	var match engine.Match
	if err := c.do(ctx, http.MethodGet, "/api/matches/"+url.PathEscape(matchID), nil, &match); err != nil {
		return nil, fmt.Errorf("get match: %w", err)
	}
	return &match, nil
}

func (c *Client) SubmitMove(ctx context.Context, matchID, playerID string, move engine.Move) (*engine.Match, error) {
	body := map[string]string{"player_id": playerID, "move": string(move)}
	var match engine.Match
	if err := c.do(ctx, http.MethodPost, "/api/matches/"+url.PathEscape(matchID)+"/moves", body, &match); err != nil {
		return nil, err
	}
	return &match, nil
}

func (c *Client) Restart(ctx context.Context, matchID string) (*engine.Match, error) {
	var match engine.Match
	if err := c.do(ctx, http.MethodPost, "/api/matches/"+url.PathEscape(matchID)+"/restart", nil, &match); err != nil {
		return nil, fmt.Errorf("restart match: %w", err)
	}
	return &match, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode}
		var errBody struct {
			Error string `json:"error"`
			Kind  string `json:"kind"`
		}
		if json.Unmarshal(data, &errBody) == nil {
			apiErr.Kind = errBody.Kind
			apiErr.Message = errBody.Error
		}
		return apiErr
	}

	if result != nil {
		if err := json.Unmarshal(data, result); err != nil {
			return fmt.Errorf("parse response: %w", err)
		}
	}
	return nil
}
