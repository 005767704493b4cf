package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

func newChatCmd() *cobra.Command {
	var peer string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session",
		Long: `Connect to the server's websocket endpoint and chat in real-time.

Messages you type are sent to the connected peer. Lines starting with a
slash are commands:

  /connect <PIN>   Connect to a peer by PIN
  /quit            Close the session

Press Ctrl+C to disconnect.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(peer, jsonOutput)
		},
	}

	cmd.Flags().StringVar(&peer, "peer", "", "PIN to connect to on startup")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output events as JSON lines")

	return cmd
}

// wireEvent mirrors the server's websocket envelope in both directions
type wireEvent struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	Sender   string `json:"sender,omitempty"`
	Receiver string `json:"receiver,omitempty"`
	Message  string `json:"message,omitempty"`
	Time     string `json:"time,omitempty"`
	Target   string `json:"target,omitempty"`
}

func runChat(peer string, jsonOutput bool) error {
	if cfg.Token == "" {
		return fmt.Errorf("not logged in: run 'pinchat account login' first")
	}

	wsURL, err := websocketURL(cfg.ServerURL)
	if err != nil {
		return err
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+cfg.Token)

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return fmt.Errorf("session expired: run 'pinchat account login' again")
		}
		return fmt.Errorf("connection failed: %w", err)
	}
	defer func() { _ = conn.Close() }()

	// Handle interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Reader goroutine prints incoming events until the socket closes
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			printEvent(data, jsonOutput)
		}
	}()

	// Announce the session so the server binds this connection to our PIN
	if err := writeEvent(conn, wireEvent{Type: "register_user"}); err != nil {
		return err
	}

	if peer != "" {
		if err := writeEvent(conn, wireEvent{Type: "connect_to_user", Target: peer}); err != nil {
			return err
		}
	}

	// Stdin lines become commands or messages
	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	currentPeer := strings.ToUpper(strings.TrimSpace(peer))

	for {
		select {
		case <-sigCh:
			return closeSession(conn, done)
		case <-done:
			fmt.Println("Disconnected")
			return nil
		case line, ok := <-lines:
			if !ok {
				return closeSession(conn, done)
			}

			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}

			switch {
			case line == "/quit":
				return closeSession(conn, done)
			case strings.HasPrefix(line, "/connect "):
				currentPeer = strings.ToUpper(strings.TrimSpace(strings.TrimPrefix(line, "/connect ")))
				if err := writeEvent(conn, wireEvent{Type: "connect_to_user", Target: currentPeer}); err != nil {
					return err
				}
			case strings.HasPrefix(line, "/"):
				fmt.Printf("Unknown command: %s\n", line)
			default:
				if currentPeer == "" {
					fmt.Println("No peer connected. Use /connect <PIN> first.")
					continue
				}
				if err := writeEvent(conn, wireEvent{Type: "send_message", Receiver: currentPeer, Message: line}); err != nil {
					return err
				}
			}
		}
	}
}

func writeEvent(conn *websocket.Conn, ev wireEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("send failed: %w", err)
	}
	return nil
}

func printEvent(data []byte, jsonOutput bool) {
	if jsonOutput {
		fmt.Println(string(data))
		return
	}

	var ev wireEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		fmt.Println(string(data))
		return
	}

	switch ev.Type {
	case "system_message":
		fmt.Printf("[%s] * %s\n", ev.Time, ev.Text)
	case "receive_message":
		fmt.Printf("[%s] %s: %s\n", ev.Time, ev.Sender, ev.Message)
	default:
		fmt.Println(string(data))
	}
}

func closeSession(conn *websocket.Conn, done chan struct{}) error {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = conn.WriteMessage(websocket.CloseMessage, msg)

	select {
	case <-done:
	case <-time.After(time.Second):
	}
	return nil
}

// websocketURL converts the configured HTTP base URL to its ws equivalent
func websocketURL(serverURL string) (string, error) {
	u, err := url.Parse(strings.TrimSuffix(serverURL, "/"))
	if err != nil {
		return "", fmt.Errorf("invalid server URL: %w", err)
	}

	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme %q in server URL", u.Scheme)
	}

	u.Path = "/ws"
	return u.String(), nil
}
