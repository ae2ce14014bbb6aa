// Package main implements a standalone seed script that populates a running
// listsync instance with sample wishlist and cart data through its HTTP API.
// Useful for demos and manual testing of the guest-to-user migration: run it
// against a guest instance, then sign in and watch the union land on the
// remote wishlist.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
)

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func httpDo(method, url string, body any) (map[string]any, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%s %s: status %d: %s", method, url, resp.StatusCode, respBody)
	}

	var out map[string]any
	if len(respBody) > 0 {
		if err := json.Unmarshal(respBody, &out); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
	}
	return out, nil
}

type product struct {
	ID     string  `json:"product_id"`
	Title  string  `json:"title"`
	Design string  `json:"design"`
	Color  string  `json:"color"`
	Price  float64 `json:"unit_price"`
}

var sampleProducts = []product{
	{ID: "sr-1001", Title: "Red Silk Saree", Design: "Kanchipuram", Color: "Red", Price: 149.0},
	{ID: "sr-1002", Title: "Blue Cotton Saree", Design: "Handloom", Color: "Blue", Price: 59.0},
	{ID: "sr-1003", Title: "Green Georgette Saree", Design: "Bandhani", Color: "Green", Price: 89.0},
	{ID: "sr-1004", Title: "Golden Banarasi Saree", Design: "Banarasi", Color: "Gold", Price: 219.0},
	{ID: "sr-1005", Title: "Pink Chiffon Saree", Design: "Printed", Color: "Pink", Price: 45.0},
}

func main() {
	base := getEnv("LISTSYNC_URL", "http://localhost:8015")

	for _, p := range sampleProducts {
		if _, err := httpDo(http.MethodPost, base+"/api/v1/wishlist/items", p); err != nil {
			log.Fatalf("seed wishlist item %s: %v", p.ID, err)
		}
		log.Printf("added %s to wishlist", p.Title)
	}

	view, err := httpDo(http.MethodGet, base+"/api/v1/wishlist/", nil)
	if err != nil {
		log.Fatalf("read wishlist back: %v", err)
	}
	log.Printf("wishlist seeded: %v", view["data"])
}
