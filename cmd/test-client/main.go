package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/Wuchinator/pixel-tracker/internal/pixel"
	"github.com/google/uuid"
)

// test-client drives one pixel through create, open, pings and end against a
// running pixel-service and prints the resulting dashboard stats.
func main() {
	baseURL := flag.String("url", "http://localhost:5000", "pixel-service base url")
	pings := flag.Int("pings", 3, "number of duration pings to send")
	interval := flag.Duration("interval", 2*time.Second, "delay between pings")
	flag.Parse()

	client := &http.Client{Timeout: 10 * time.Second}

	var created pixel.Created
	getJSON(client, *baseURL+"/api/pixel/create?metadata="+url.QueryEscape(`{"campaign":"test-client"}`), &created)
	fmt.Printf("Pixel created: %s\n", created.ID)
	fmt.Printf("Embed code: %s\n\n", created.EmbedCode)

	req, err := http.NewRequest(http.MethodGet, created.TrackingURL, nil)
	if err != nil {
		log.Fatalf("Failed to build open request: %v", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 14_0) AppleWebKit/605.1.15 Safari/605.1.15")
	resp, err := client.Do(req)
	if err != nil {
		log.Fatalf("Failed to fire pixel: %v", err)
	}
	resp.Body.Close()
	fmt.Printf("Pixel fired: %s (%s)\n", resp.Status, resp.Header.Get("Content-Type"))

	sessionID := uuid.NewString()
	for i := 0; i < *pings; i++ {
		if i > 0 {
			time.Sleep(*interval)
		}
		postJSON(client, *baseURL+"/api/pixel/ping", map[string]any{
			"pixelId":   created.ID,
			"sessionId": sessionID,
			"timestamp": time.Now().UnixMilli(),
		}, nil)
		fmt.Printf("Ping %d sent\n", i+1)
	}

	var ended pixel.Record
	postJSON(client, *baseURL+"/api/pixel/end", map[string]any{
		"pixelId":   created.ID,
		"sessionId": sessionID,
	}, &ended)
	fmt.Printf("Session ended, total view time: %dms\n\n", ended.TotalViewTime)

	var dashboard pixel.Dashboard
	getJSON(client, *baseURL+"/api/dashboard", &dashboard)
	fmt.Printf("Dashboard: %+v\n", dashboard.Stats)
}

func getJSON(client *http.Client, endpoint string, out any) {
	resp, err := client.Get(endpoint)
	if err != nil {
		log.Fatalf("GET %s failed: %v", endpoint, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		log.Fatalf("GET %s returned %s", endpoint, resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		log.Fatalf("Failed to decode %s: %v", endpoint, err)
	}
}

func postJSON(client *http.Client, endpoint string, body, out any) {
	payload, err := json.Marshal(body)
	if err != nil {
		log.Fatalf("Failed to marshal body: %v", err)
	}
	resp, err := client.Post(endpoint, "application/json", bytes.NewReader(payload))
	if err != nil {
		log.Fatalf("POST %s failed: %v", endpoint, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		log.Fatalf("POST %s returned %s", endpoint, resp.Status)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			log.Fatalf("Failed to decode %s: %v", endpoint, err)
		}
	}
}
