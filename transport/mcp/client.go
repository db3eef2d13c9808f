package mcp

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

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wricardo/mcp-training/rpsmatch/game/engine"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Rock Paper Scissors Match",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Rock Paper Scissors Match - MCP Interface

This is a thin client that proxies all requests to the REST API server.

OBJECTIVE:
Two players play rounds of ROCK, PAPER or SCISSORS. The first to win the
threshold number of rounds (3 by default) takes the match.

TURN ORDER:
player1 always opens a round, player2 answers. Use the player ids returned by
create_match, not the names.

AVAILABLE TOOLS:
- create_match: Start a match between two named players
- get_match: Show scores, rounds and whose turn it is
- submit_move: Play ROCK, PAPER or SCISSORS for a player
- restart_match: Reset scores and rounds, keeping the players
- list_matches: List known matches
- game_rules: Show the rules and the current win threshold`),
	)

	c.registerTools()
}

func stringProp(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": description,
	}
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_match",
		Description: "Create a new match between two players",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"player1_name": stringProp("Name of the player who opens every round"),
				"player2_name": stringProp("Name of the player who answers"),
			},
			Required: []string{"player1_name", "player2_name"},
		},
	}, c.handleCreateMatch)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_match",
		Description: "Get the current state of a match",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"match_id": stringProp("Match ID to retrieve"),
			},
			Required: []string{"match_id"},
		},
	}, c.handleGetMatch)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "submit_move",
		Description: "Submit a move for a player. player1 opens each round, player2 answers.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"match_id":  stringProp("Match ID"),
				"player_id": stringProp("ID of the player making the move"),
				"move": map[string]interface{}{
					"type":        "string",
					"description": "The move to play",
					"enum":        []string{"ROCK", "PAPER", "SCISSORS"},
				},
			},
			Required: []string{"match_id", "player_id", "move"},
		},
	}, c.handleSubmitMove)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "restart_match",
		Description: "Reset scores and rounds of a match, keeping its players",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"match_id": stringProp("Match ID to restart"),
			},
			Required: []string{"match_id"},
		},
	}, c.handleRestartMatch)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_matches",
		Description: "List known matches, newest first",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListMatches)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_rules",
		Description: "Get the rules of the game and the current win threshold",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleGameRules)
}

// GetMCPServer returns the underlying MCP server
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			if kind := errResp["kind"]; kind != "" {
				return fmt.Errorf("%s: %s", kind, msg)
			}
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

func stringArg(request mcp.CallToolRequest, name string) string {
	args, _ := request.Params.Arguments.(map[string]interface{})
	v, _ := args[name].(string)
	return v
}

func matchPath(matchID string, suffix string) string {
	return "/api/matches/" + url.PathEscape(matchID) + suffix
}

// Tool handlers

func (c *Client) handleCreateMatch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	body := map[string]string{
		"player1_name": stringArg(request, "player1_name"),
		"player2_name": stringArg(request, "player2_name"),
	}

	var match engine.Match
	if err := c.apiCall(ctx, "POST", "/api/matches", body, &match); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText("Created match\n\n" + formatMatch(&match)), nil
}

func (c *Client) handleGetMatch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	matchID := stringArg(request, "match_id")
	if matchID == "" {
		return mcp.NewToolResultError("match_id is required"), nil
	}

	var match engine.Match
	if err := c.apiCall(ctx, "GET", matchPath(matchID, ""), nil, &match); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatMatch(&match)), nil
}

func (c *Client) handleSubmitMove(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	matchID := stringArg(request, "match_id")
	if matchID == "" {
		return mcp.NewToolResultError("match_id is required"), nil
	}

	body := map[string]string{
		"player_id": stringArg(request, "player_id"),
		"move":      stringArg(request, "move"),
	}

	var match engine.Match
	if err := c.apiCall(ctx, "POST", matchPath(matchID, "/moves"), body, &match); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatMatch(&match)), nil
}

func (c *Client) handleRestartMatch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	matchID := stringArg(request, "match_id")
	if matchID == "" {
		return mcp.NewToolResultError("match_id is required"), nil
	}

	var match engine.Match
	if err := c.apiCall(ctx, "POST", matchPath(matchID, "/restart"), nil, &match); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText("Match restarted\n\n" + formatMatch(&match)), nil
}

func (c *Client) handleListMatches(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count   int            `json:"count"`
		Matches []engine.Match `json:"matches"`
	}

	if err := c.apiCall(ctx, "GET", "/api/matches", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var result strings.Builder
	result.WriteString(fmt.Sprintf("Matches (%d):\n\n", response.Count))
	for _, m := range response.Matches {
		result.WriteString(fmt.Sprintf("- %s: %s %d - %d %s (%s)\n",
			m.ID, m.Player1.Name, m.Player1Score, m.Player2Score, m.Player2.Name, m.Status))
	}

	return mcp.NewToolResultText(result.String()), nil
}

func (c *Client) handleGameRules(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var rules struct {
		WinThreshold int `json:"win_threshold"`
	}
	if err := c.apiCall(ctx, "GET", "/api/rules", nil, &rules); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatRules(rules.WinThreshold)), nil
}

func formatRules(winThreshold int) string {
	var b strings.Builder
	b.WriteString("Rock Paper Scissors - Rules\n\n")
	b.WriteString("MOVES:\n")
	b.WriteString("- ROCK beats SCISSORS\n")
	b.WriteString("- SCISSORS beats PAPER\n")
	b.WriteString("- PAPER beats ROCK\n")
	b.WriteString("- The same move on both sides is a tie; nobody scores\n\n")
	b.WriteString("TURN ORDER:\n")
	b.WriteString("- player1 opens every round, player2 answers\n")
	b.WriteString("- Moving out of turn fails with NOT_YOUR_TURN\n")
	b.WriteString("- Moving twice in one round fails with DUPLICATE_MOVE\n\n")
	b.WriteString("VICTORY:\n")
	b.WriteString(fmt.Sprintf("- The first player to win %d rounds takes the match\n", winThreshold))
	b.WriteString("- A finished match rejects moves with MATCH_FINISHED until it is restarted\n")
	return b.String()
}

// formatMatch renders a match for a language model reader
func formatMatch(m *engine.Match) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Match: %s\n", m.ID))
	b.WriteString(fmt.Sprintf("Player 1: %s (id: %s)\n", m.Player1.Name, m.Player1.ID))
	b.WriteString(fmt.Sprintf("Player 2: %s (id: %s)\n", m.Player2.Name, m.Player2.ID))
	b.WriteString(fmt.Sprintf("Score: %s %d - %d %s\n", m.Player1.Name, m.Player1Score, m.Player2Score, m.Player2.Name))
	b.WriteString(fmt.Sprintf("Status: %s\n", m.Status))

	if len(m.Rounds) > 0 {
		b.WriteString("\nRounds:\n")
		for i, r := range m.Rounds {
			b.WriteString(fmt.Sprintf("%d. %s\n", i+1, r.Result))
		}
	}

	if m.IsActive {
		b.WriteString(fmt.Sprintf("\nNext: %s to move\n", nextToMove(m).Name))
	}

	return b.String()
}

func nextToMove(m *engine.Match) engine.Player {
	if open := m.OpenRound(); open != nil && open.Player1Move.IsSet() {
		return m.Player2
	}
	return m.Player1
}
