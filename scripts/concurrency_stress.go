//go:build ignore
// +build ignore

// Package main provides a manual concurrency stress test for the order API.
//
// Usage:
//
//	CATALOG_ID=<uuid> ITEM_ID=<uuid> USER_EMAILS=<e1,e2,...> USER_PASSWORD=<pw> \
//	  go run ./scripts/concurrency_stress.go
//
// What it does:
//  1. Logs every user in to obtain a session cookie.
//  2. Fires N goroutines (one per user) all ordering 1 unit of the same
//     item simultaneously.
//  3. Prints how many orders were accepted vs. rejected for stock.
//
// Prerequisites:
//   - Server must be running and reachable at SERVER_ADDR (default
//     http://localhost:8080).
//   - The item must exist in the catalog with some known stock, and every
//     user must share USER_PASSWORD and be enrolled in the catalog's
//     institution.
//
// The conditional stock decrement means accepted orders can never exceed
// the item's starting stock, no matter how many requests race.

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"
)

const defaultServerAddr = "http://localhost:8080"

type orderResult struct {
	Email      string
	OrderID    string
	StatusCode int
	Err        error
}

func main() {
	serverAddr := os.Getenv("SERVER_ADDR")
	if serverAddr == "" {
		serverAddr = defaultServerAddr
	}

	catalogID := os.Getenv("CATALOG_ID")
	itemID := os.Getenv("ITEM_ID")
	password := os.Getenv("USER_PASSWORD")
	var emails []string
	if v := os.Getenv("USER_EMAILS"); v != "" {
		emails = strings.Split(v, ",")
	}

	if catalogID == "" || itemID == "" || password == "" || len(emails) == 0 {
		log.Fatal("Usage: CATALOG_ID=<uuid> ITEM_ID=<uuid> USER_EMAILS=<e1,e2,...> USER_PASSWORD=<pw> go run ./scripts/concurrency_stress.go")
	}

	fmt.Printf("=== Order Concurrency Test ===\n")
	fmt.Printf("Server  : %s\n", serverAddr)
	fmt.Printf("Catalog : %s\n", catalogID)
	fmt.Printf("Item    : %s\n", itemID)
	fmt.Printf("Users   : %d\n\n", len(emails))

	// Log everyone in first so the race is purely over order creation.
	cookies := make([]*http.Cookie, len(emails))
	for i, email := range emails {
		ck, err := login(serverAddr, strings.TrimSpace(email), password)
		if err != nil {
			log.Fatalf("login failed for %s: %v", email, err)
		}
		cookies[i] = ck
	}

	results := make([]orderResult, len(emails))
	var wg sync.WaitGroup

	// Fire all goroutines simultaneously using a barrier.
	start := make(chan struct{})

	for i, email := range emails {
		wg.Add(1)
		go func(idx int, email string, ck *http.Cookie) {
			defer wg.Done()
			<-start // wait for the barrier
			results[idx] = attemptOrder(serverAddr, catalogID, itemID, email, ck)
		}(i, strings.TrimSpace(email), cookies[i])
	}

	fmt.Println("Firing all requests simultaneously...")
	close(start)

	wg.Wait()
	fmt.Println("All requests completed.")
	fmt.Println()

	// Tally results.
	var accepted, rejected, failures int
	for _, r := range results {
		switch {
		case r.Err != nil:
			failures++
			fmt.Printf("  [ERR ] user=%-30s err=%v\n", r.Email, r.Err)
		case r.StatusCode == http.StatusCreated:
			accepted++
			fmt.Printf("  [OK  ] user=%-30s order=%s\n", r.Email, r.OrderID)
		case r.StatusCode == http.StatusConflict:
			rejected++
			fmt.Printf("  [FULL] user=%-30s status=%d insufficient stock\n", r.Email, r.StatusCode)
		default:
			failures++
			fmt.Printf("  [FAIL] user=%-30s status=%d unexpected response\n", r.Email, r.StatusCode)
		}
	}

	fmt.Printf("\n--- Summary ---\n")
	fmt.Printf("Accepted : %d\n", accepted)
	fmt.Printf("Rejected : %d\n", rejected)
	fmt.Printf("Failures : %d\n", failures)
	fmt.Printf("Total    : %d\n\n", len(emails))

	fmt.Println("--- Invariant Check ---")
	fmt.Println("The conditional decrement (UPDATE ... WHERE actual_quantity >= requested)")
	fmt.Println("caps accepted orders at the item's starting stock.")
	fmt.Printf("Accepted orders: %d. If this matches the stock the item started with, the system is correct.\n", accepted)

	if failures > 0 {
		fmt.Printf("\n[WARNING] %d request(s) failed. Check server logs for details.\n", failures)
		os.Exit(1)
	}
}

// login posts /auth/login and returns the session cookie.
func login(serverAddr, email, password string) (*http.Cookie, error) {
	body := fmt.Sprintf(`{"email":%q,"password":%q}`, email, password)
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Post(serverAddr+"/auth/login", "application/json", bytes.NewBufferString(body))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, raw)
	}
	for _, ck := range resp.Cookies() {
		if ck.Name == "app_session" {
			return ck, nil
		}
	}
	return nil, fmt.Errorf("no session cookie in response")
}

// attemptOrder posts one order of 1 unit for the item, due back tomorrow.
func attemptOrder(serverAddr, catalogID, itemID, email string, ck *http.Cookie) orderResult {
	returnDate := time.Now().AddDate(0, 0, 1).Format("2006-01-02")
	body := fmt.Sprintf(`{"catalog_id":%q,"return_date":%q,"items":[{"item_id":%q,"quantity":1}]}`,
		catalogID, returnDate, itemID)

	req, err := http.NewRequest(http.MethodPost, serverAddr+"/api/user/orders", bytes.NewBufferString(body))
	if err != nil {
		return orderResult{Email: email, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(ck)

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return orderResult{Email: email, Err: err}
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	var parsed map[string]interface{}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return orderResult{Email: email, StatusCode: resp.StatusCode, Err: fmt.Errorf("bad JSON: %s", raw)}
	}

	orderID, _ := parsed["order_id"].(string)
	return orderResult{Email: email, OrderID: orderID, StatusCode: resp.StatusCode}
}
