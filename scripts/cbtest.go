// cbtest checks a running resilienced through its admin endpoints: it lists
// breakers, prints per-operation retry metrics, waits for a breaker to
// open under the synthetic workload and then resets it.
//
// Usage:
//
//	go run cbtest.go -admin http://localhost:8080 -wait 30s
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"sort"
	"time"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorCyan   = "\033[36m"
)

type breakerStats struct {
	State               string `json:"state"`
	ConsecutiveFailures int    `json:"consecutive_failures"`
	WindowRequests      int    `json:"window_requests"`
	WindowFailures      int    `json:"window_failures"`
}

type operationStats struct {
	Executions        int64            `json:"executions"`
	Attempts          int64            `json:"attempts"`
	Retries           int64            `json:"retries"`
	Successes         int64            `json:"successes"`
	Failures          int64            `json:"failures"`
	CircuitRejections int64            `json:"circuit_rejections"`
	Aborts            map[string]int64 `json:"aborts"`
	P95Delay          time.Duration    `json:"p95_delay"`
}

type metricsSnapshot struct {
	TotalExecutions int64                     `json:"total_executions"`
	Operations      map[string]operationStats `json:"operations"`
}

func main() {
	var (
		adminURL = flag.String("admin", "http://localhost:8080", "resilienced admin URL")
		wait     = flag.Duration("wait", 30*time.Second, "How long to wait for a breaker to open")
		poll     = flag.Duration("poll", time.Second, "Polling interval")
	)
	flag.Parse()

	client := &http.Client{Timeout: 5 * time.Second}

	fmt.Println(colorCyan + "━━━ CIRCUIT BREAKER & RETRY CHECK ━━━" + colorReset)
	fmt.Println()

	// PHASE 1: Breakers
	fmt.Println(colorBlue + "━━━ PHASE 1: Breakers ━━━" + colorReset)
	breakers, err := getBreakers(client, *adminURL)
	if err != nil {
		fmt.Printf(colorRed+"  ✗ Could not fetch breakers: %v\n"+colorReset, err)
		os.Exit(1)
	}
	printBreakers(breakers)
	fmt.Println()

	// PHASE 2: Retry metrics
	fmt.Println(colorBlue + "━━━ PHASE 2: Retry Metrics ━━━" + colorReset)
	var snap metricsSnapshot
	if err := getJSON(client, *adminURL+"/metrics", &snap); err != nil {
		fmt.Printf(colorYellow+"  Could not fetch metrics: %v\n"+colorReset, err)
	} else {
		fmt.Printf("  Total executions: %d\n", snap.TotalExecutions)
		for _, name := range sortedKeys(snap.Operations) {
			op := snap.Operations[name]
			fmt.Printf("    %s → executions=%d attempts=%d retries=%d ok=%d failed=%d rejected=%d p95_delay=%v\n",
				name, op.Executions, op.Attempts, op.Retries, op.Successes, op.Failures, op.CircuitRejections, op.P95Delay)
			for _, reason := range sortedKeys(op.Aborts) {
				fmt.Printf("        abort %q × %d\n", reason, op.Aborts[reason])
			}
		}
	}
	fmt.Println()

	// PHASE 3: Wait for an open breaker
	fmt.Println(colorBlue + "━━━ PHASE 3: Waiting For An Open Breaker ━━━" + colorReset)
	open := ""
	deadline := time.Now().Add(*wait)
	for open == "" && time.Now().Before(deadline) {
		breakers, err = getBreakers(client, *adminURL)
		if err == nil {
			for _, name := range sortedKeys(breakers) {
				if breakers[name].State == "OPEN" {
					open = name
					break
				}
			}
		}
		if open == "" {
			time.Sleep(*poll)
		}
	}
	if open == "" {
		fmt.Println(colorYellow + "  ⚠ No breaker opened (raise workload.failure_rate to force one)" + colorReset)
		return
	}
	fmt.Printf(colorGreen+"  ✓ Breaker %s is OPEN\n"+colorReset, open)
	fmt.Println()

	// PHASE 4: Reset
	fmt.Println(colorBlue + "━━━ PHASE 4: Manual Reset ━━━" + colorReset)
	resp, err := client.Post(*adminURL+"/breakers/reset?name="+open, "application/json", nil)
	if err != nil {
		fmt.Printf(colorRed+"  ✗ Reset failed: %v\n"+colorReset, err)
		os.Exit(1)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		fmt.Printf(colorRed+"  ✗ Reset returned status %d\n"+colorReset, resp.StatusCode)
		os.Exit(1)
	}

	breakers, err = getBreakers(client, *adminURL)
	if err != nil {
		fmt.Printf(colorRed+"  ✗ Could not fetch breakers: %v\n"+colorReset, err)
		os.Exit(1)
	}
	// The workload keeps running, so the breaker may already have opened again.
	fmt.Printf("  %s is now %s\n", open, breakers[open].State)
	fmt.Println(colorGreen + "  ✓ Reset accepted" + colorReset)
}

func printBreakers(breakers map[string]breakerStats) {
	if len(breakers) == 0 {
		fmt.Println(colorYellow + "  No breakers yet (is the workload enabled?)" + colorReset)
		return
	}
	for _, name := range sortedKeys(breakers) {
		b := breakers[name]
		color := colorGreen
		switch b.State {
		case "OPEN":
			color = colorRed
		case "HALF-OPEN":
			color = colorYellow
		}
		fmt.Printf("    %s → %s%s%s (window %d/%d failed, streak %d)\n",
			name, color, b.State, colorReset, b.WindowFailures, b.WindowRequests, b.ConsecutiveFailures)
	}
}

func getBreakers(client *http.Client, adminURL string) (map[string]breakerStats, error) {
	var breakers map[string]breakerStats
	if err := getJSON(client, adminURL+"/breakers", &breakers); err != nil {
		return nil, err
	}
	return breakers, nil
}

func getJSON(client *http.Client, url string, out any) error {
	resp, err := client.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
