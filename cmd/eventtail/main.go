// Package main tails the admin event stream of a running blog CMS.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
)

type event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
	At      time.Time       `json:"at"`
}

func main() {
	host := flag.String("host", "localhost:3001", "API server host")
	username := flag.String("username", "admin", "Admin username")
	password := flag.String("password", os.Getenv("BLOGCMS_PASSWORD"), "Admin password (defaults to $BLOGCMS_PASSWORD)")
	secure := flag.Bool("tls", false, "Use https and wss")
	flag.Parse()

	httpScheme, wsScheme := "http", "ws"
	if *secure {
		httpScheme, wsScheme = "https", "wss"
	}

	token, err := login(httpScheme, *host, *username, *password)
	if err != nil {
		log.Fatalf("❌ Login failed: %v", err)
	}
	log.Printf("✅ Logged in as %s", *username)

	u := url.URL{Scheme: wsScheme, Host: *host, Path: "/api/ws/admin", RawQuery: "token=" + url.QueryEscape(token)}
	c, resp, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if resp != nil && resp.Body != nil {
		defer func() { _ = resp.Body.Close() }()
	}
	if err != nil {
		log.Fatalf("❌ Connect failed: %v", err)
	}
	defer func() { _ = c.Close() }()
	log.Printf("📡 Listening for admin events on %s", *host)

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, raw, err := c.ReadMessage()
			if err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					log.Printf("read error: %v", err)
				}
				return
			}
			var ev event
			if err := json.Unmarshal(raw, &ev); err != nil {
				log.Printf("unparsable message: %s", raw)
				continue
			}
			fmt.Printf("%s  %-18s %s\n", ev.At.Local().Format(time.TimeOnly), ev.Type, ev.Payload)
		}
	}()

	select {
	case <-done:
		log.Println("🔌 Server closed the connection")
	case <-interrupt:
		log.Println("🛑 Interrupted by user")
		_ = c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		select {
		case <-done:
		case <-time.After(time.Second):
		}
	}
}

func login(scheme, host, username, password string) (string, error) {
	loginURL := fmt.Sprintf("%s://%s/api/auth/login", scheme, host)
	body, err := json.Marshal(map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return "", err
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Post(loginURL, "application/json", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("login failed with status %d", resp.StatusCode)
	}

	var result struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	return result.Token, nil
}
