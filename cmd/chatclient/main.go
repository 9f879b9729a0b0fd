// Command chatclient is an interactive terminal client for the chat
// WebSocket endpoint. Useful for poking at a running server:
//
//	go run ./cmd/chatclient -host localhost:8000 -user alice -chat 1
package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func main() {
	host := flag.String("host", "localhost:8000", "API server host")
	username := flag.String("user", "", "Username")
	password := flag.String("password", "password123", "Password")
	chatID := flag.Uint("chat", 0, "Chat to join on connect")
	flag.Parse()

	if *username == "" {
		log.Fatal("-user is required")
	}

	token, err := login(*host, *username, *password)
	if err != nil {
		log.Fatalf("Login failed: %v", err)
	}

	ticket, err := getTicket(*host, token)
	if err != nil {
		log.Fatalf("Ticket issuance failed: %v", err)
	}

	u := url.URL{Scheme: "ws", Host: *host, Path: "/api/ws/chat", RawQuery: "ticket=" + ticket}
	conn, resp, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("WebSocket dial failed: %v", err)
	}
	if resp != nil && resp.Body != nil {
		defer func() { _ = resp.Body.Close() }()
	}
	defer func() { _ = conn.Close() }()
	log.Printf("Connected to %s", u.String())

	go readLoop(conn)

	if *chatID > 0 {
		send(conn, "join", map[string]any{"chat_id": *chatID})
	}

	fmt.Println(`Commands: /join <chat>, /leave <chat>, /ping, /quit; anything else sends to the joined chat`)
	scanner := bufio.NewScanner(os.Stdin)
	currentChat := *chatID
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == "/quit":
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			time.Sleep(200 * time.Millisecond)
			return
		case line == "/ping":
			send(conn, "ping", map[string]any{})
		case strings.HasPrefix(line, "/join "):
			if id, ok := parseChatID(line); ok {
				currentChat = id
				send(conn, "join", map[string]any{"chat_id": id})
			}
		case strings.HasPrefix(line, "/leave "):
			if id, ok := parseChatID(line); ok {
				send(conn, "leave", map[string]any{"chat_id": id})
			}
		default:
			if currentChat == 0 {
				fmt.Println("join a chat first: /join <chat>")
				continue
			}
			send(conn, "message", map[string]any{"chat_id": currentChat, "content": line})
		}
	}
}

func parseChatID(line string) (uint, bool) {
	fields := strings.Fields(line)
	if len(fields) != 2 {
		fmt.Println("usage: " + fields[0] + " <chat>")
		return 0, false
	}
	var id uint
	if _, err := fmt.Sscanf(fields[1], "%d", &id); err != nil || id == 0 {
		fmt.Println("invalid chat id")
		return 0, false
	}
	return id, true
}

func send(conn *websocket.Conn, event string, data map[string]any) {
	raw, _ := json.Marshal(data)
	if err := conn.WriteJSON(envelope{Event: event, Data: raw}); err != nil {
		log.Printf("write failed: %v", err)
	}
}

func readLoop(conn *websocket.Conn) {
	for {
		var env envelope
		if err := conn.ReadJSON(&env); err != nil {
			log.Printf("connection closed: %v", err)
			os.Exit(0)
		}
		fmt.Printf("<- %s %s\n", env.Event, string(env.Data))
	}
}

func login(host, username, password string) (string, error) {
	payload, _ := json.Marshal(map[string]string{
		"username": username,
		"password": password,
	})
	resp, err := http.Post(fmt.Sprintf("http://%s/api/auth/token", host),
		"application/json", bytes.NewBuffer(payload))
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("login failed with status %d", resp.StatusCode)
	}

	var result struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	return result.AccessToken, nil
}

func getTicket(host, token string) (string, error) {
	req, _ := http.NewRequest(http.MethodPost,
		fmt.Sprintf("http://%s/api/ws/ticket", host), nil)
	req.Header.Set("Authorization", "Bearer "+token)

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ticket issuance failed with status %d", resp.StatusCode)
	}

	var result struct {
		Ticket string `json:"ticket"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	return result.Ticket, nil
}
