// Command watch follows a match live over the WebSocket feed and prints a
// line for every change until the match finishes or the connection closes.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gorilla/websocket"
	"github.com/urfave/cli/v3"

	"github.com/wricardo/mcp-training/rpsmatch/game/engine"
	"github.com/wricardo/mcp-training/rpsmatch/logger"
)

// wsMessage mirrors the hub's push envelope
type wsMessage struct {
	MatchID string        `json:"match_id"`
	Event   string        `json:"event"`
	Match   *engine.Match `json:"match"`
}

func main() {
	cmd := &cli.Command{
		Name:      "watch",
		Usage:     "Follow a match live",
		ArgsUsage: "<match_id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: "http://localhost:8080", Usage: "Server base URL", Sources: cli.EnvVars("RPS_URL")},
			&cli.BoolFlag{Name: "follow", Aliases: []string{"f"}, Usage: "Keep watching after the match finishes"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			matchID := cmd.Args().First()
			if matchID == "" {
				return fmt.Errorf("match id is required")
			}
			logger.InitWithWriter(os.Stderr, "info", false)

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			w := &watcher{baseURL: strings.TrimRight(cmd.String("url"), "/"), out: os.Stdout, follow: cmd.Bool("follow")}
			return w.Watch(ctx, matchID)
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		logger.Fatal("watch failed", "error", err)
	}
}

type watcher struct {
	baseURL string
	out     io.Writer
	follow  bool
}

// Watch prints the current state, then every pushed update
func (w *watcher) Watch(ctx context.Context, matchID string) error {
	conn, err := w.dial(ctx, matchID)
	if err != nil {
		return err
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	current, err := w.fetch(ctx, matchID)
	if err != nil {
		return err
	}
	fmt.Fprintln(w.out, render(current))
	if !current.IsActive && !w.follow {
		return nil
	}
	seen := current.Version

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("websocket read: %w", err)
		}

		var msg wsMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			logger.Warn("websocket JSON parse error", "error", err)
			continue
		}
		if msg.Match == nil || msg.Match.Version > 0 && msg.Match.Version <= seen {
			continue
		}
		seen = msg.Match.Version

		fmt.Fprintln(w.out, render(msg.Match))
		if !msg.Match.IsActive && !w.follow {
			return nil
		}
	}
}

func (w *watcher) dial(ctx context.Context, matchID string) (*websocket.Conn, error) {
	wsURL, err := url.Parse(w.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid server url: %w", err)
	}
	if wsURL.Scheme == "https" {
		wsURL.Scheme = "wss"
	} else {
		wsURL.Scheme = "ws"
	}
	wsURL.Path = "/ws"
	wsURL.RawQuery = url.Values{"match": {matchID}}.Encode()

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL.String(), nil)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("match %s not found", matchID)
		}
		return nil, fmt.Errorf("websocket dial: %w", err)
	}
	logger.Info("watching match", "match_id", matchID)
	return conn, nil
}

func (w *watcher) fetch(ctx context.Context, matchID string) (*engine.Match, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.baseURL+"/api/matches/"+url.PathEscape(matchID), nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get match: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get match: status %d", resp.StatusCode)
	}

	var match engine.Match
	if err := json.NewDecoder(resp.Body).Decode(&match); err != nil {
		return nil, fmt.Errorf("parse match: %w", err)
	}
	return &match, nil
}

// render formats one line: score, then the latest round or the winner
func render(m *engine.Match) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s %d - %d %s", m.ID, m.Player1.Name, m.Player1Score, m.Player2Score, m.Player2.Name)

	switch {
	case m.Winner != nil:
		fmt.Fprintf(&b, " | %s wins the match", m.Winner.Name)
	case len(m.Rounds) == 0:
		fmt.Fprintf(&b, " | waiting for %s", m.Player1.Name)
	default:
		last := m.Rounds[len(m.Rounds)-1]
		if last.Complete() {
			fmt.Fprintf(&b, " | round %d: %s", len(m.Rounds), last.Result)
		} else {
			fmt.Fprintf(&b, " | round %d: %s has moved, waiting for %s", len(m.Rounds), m.Player1.Name, m.Player2.Name)
		}
	}
	return b.String()
}
