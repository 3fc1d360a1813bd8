// Benchmark harness for the richtest API: runs a set of structured-data-rich
// pages through POST /api/v1/check several times each and reports latency
// phases, recovery counts, and completion signals.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
	"time"
)

// CLI flags
var (
	apiURL = flag.String("api-url", "http://localhost:8080", "richtest API base URL")
	apiKey = flag.String("api-key", "", "API key for authenticated requests")
	runs   = flag.Int("runs", 3, "Number of runs per URL for averaging")
	output = flag.String("output", "benchmark-results.json", "JSON output file path")
)

// Test URLs covering common rich result types.
var testURLs = []struct {
	Label string
	URL   string
}{
	{"Recipe", "https://www.allrecipes.com/recipe/20144/banana-banana-bread/"},
	{"Product", "https://www.bestbuy.com/site/nintendo-switch-oled-model/6470923.p"},
	{"Article", "https://www.bbc.com/news/technology-68093349"},
	{"Event", "https://www.eventbrite.com/e/gophercon-2026-tickets"},
	{"FAQ", "https://developers.google.com/search/docs/appearance/structured-data/faqpage"},
}

// --- Request / Response types (mirrors models package) ---

type checkRequest struct {
	URL     string `json:"url"`
	Timeout int    `json:"timeout"`
}

type checkResponse struct {
	Success          bool         `json:"success"`
	CompletedBy      string       `json:"completed_by"`
	RecoveryAttempts int          `json:"recovery_attempts"`
	Polls            int          `json:"polls"`
	Target           *targetInfo  `json:"target"`
	Timing           timingInfo   `json:"timing"`
	Error            *errorDetail `json:"error,omitempty"`
}

type targetInfo struct {
	StatusCode       int `json:"status_code"`
	StructuredBlocks int `json:"structured_blocks"`
}

type timingInfo struct {
	TotalMs      int64 `json:"total_ms"`
	NavigationMs int64 `json:"navigation_ms"`
	WaitMs       int64 `json:"wait_ms"`
	CaptureMs    int64 `json:"capture_ms"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// --- Benchmark result types ---

type runResult struct {
	Run              int    `json:"run"`
	TotalMs          int64  `json:"total_ms"`
	NavigationMs     int64  `json:"navigation_ms"`
	WaitMs           int64  `json:"wait_ms"`
	CaptureMs        int64  `json:"capture_ms"`
	RecoveryAttempts int    `json:"recovery_attempts"`
	Polls            int    `json:"polls"`
	CompletedBy      string `json:"completed_by"`
	StructuredBlocks int    `json:"structured_blocks"`
	Success          bool   `json:"success"`
	Error            string `json:"error,omitempty"`
}

type urlAverages struct {
	TotalMs          float64 `json:"total_ms"`
	NavigationMs     float64 `json:"navigation_ms"`
	WaitMs           float64 `json:"wait_ms"`
	CaptureMs        float64 `json:"capture_ms"`
	RecoveryAttempts float64 `json:"recovery_attempts"`
	Polls            float64 `json:"polls"`
}

type urlResult struct {
	URL      string       `json:"url"`
	Label    string       `json:"label"`
	Runs     []runResult  `json:"runs"`
	Averages *urlAverages `json:"averages,omitempty"`
}

type benchmarkReport struct {
	Timestamp  string      `json:"timestamp"`
	APIURL     string      `json:"api_url"`
	RunsPerURL int         `json:"runs_per_url"`
	Results    []urlResult `json:"results"`
}

func main() {
	flag.Parse()

	fmt.Println("=== richtest Benchmark Suite ===")
	fmt.Printf("API URL:   %s\n", *apiURL)
	fmt.Printf("Runs/URL:  %d\n", *runs)
	fmt.Printf("Output:    %s\n", *output)
	fmt.Println()

	// Quick connectivity check.
	if err := checkAPI(*apiURL); err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot reach API at %s: %v\n", *apiURL, err)
		fmt.Fprintf(os.Stderr, "Make sure the server is running (richtest serve)\n")
		os.Exit(1)
	}

	report := benchmarkReport{
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		APIURL:     *apiURL,
		RunsPerURL: *runs,
	}

	for _, t := range testURLs {
		fmt.Printf("Benchmarking [%s] %s ...\n", t.Label, t.URL)
		ur := urlResult{URL: t.URL, Label: t.Label}

		for i := 1; i <= *runs; i++ {
			fmt.Printf("  Run %d/%d ... ", i, *runs)
			rr := benchmarkURL(t.URL, i)
			if rr.Success {
				fmt.Printf("OK  %dms  %d recovery attempt(s), %d poll(s)\n", rr.TotalMs, rr.RecoveryAttempts, rr.Polls)
			} else {
				fmt.Printf("FAILED: %s\n", rr.Error)
			}
			ur.Runs = append(ur.Runs, rr)
		}

		ur.Averages = computeAverages(ur.Runs)
		report.Results = append(report.Results, ur)
		fmt.Println()
	}

	// Print summary table.
	printTable(report.Results)

	// Write JSON report.
	if err := writeJSON(*output, report); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing JSON output: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("\nDetailed results written to %s\n", *output)
}

func checkAPI(baseURL string) error {
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(baseURL + "/api/v1/health")
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

func benchmarkURL(url string, run int) runResult {
	rr := runResult{Run: run}

	reqBody := checkRequest{
		URL:     url,
		Timeout: 120,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		rr.Error = fmt.Sprintf("marshal error: %v", err)
		return rr
	}

	req, err := http.NewRequest("POST", *apiURL+"/api/v1/check", bytes.NewReader(bodyBytes))
	if err != nil {
		rr.Error = fmt.Sprintf("request error: %v", err)
		return rr
	}
	req.Header.Set("Content-Type", "application/json")
	if *apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+*apiKey)
	}

	client := &http.Client{Timeout: 150 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		rr.Error = fmt.Sprintf("request failed: %v", err)
		return rr
	}
	defer resp.Body.Close()

	var cr checkResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		rr.Error = fmt.Sprintf("decode error: %v", err)
		return rr
	}

	rr.Success = cr.Success
	rr.TotalMs = cr.Timing.TotalMs
	rr.NavigationMs = cr.Timing.NavigationMs
	rr.WaitMs = cr.Timing.WaitMs
	rr.CaptureMs = cr.Timing.CaptureMs
	rr.RecoveryAttempts = cr.RecoveryAttempts
	rr.Polls = cr.Polls
	rr.CompletedBy = cr.CompletedBy
	if cr.Target != nil {
		rr.StructuredBlocks = cr.Target.StructuredBlocks
	}

	if cr.Error != nil {
		rr.Error = cr.Error.Message
	}

	return rr
}

func computeAverages(runs []runResult) *urlAverages {
	var successCount int
	var avg urlAverages

	for _, r := range runs {
		if !r.Success {
			continue
		}
		successCount++
		avg.TotalMs += float64(r.TotalMs)
		avg.NavigationMs += float64(r.NavigationMs)
		avg.WaitMs += float64(r.WaitMs)
		avg.CaptureMs += float64(r.CaptureMs)
		avg.RecoveryAttempts += float64(r.RecoveryAttempts)
		avg.Polls += float64(r.Polls)
	}

	if successCount == 0 {
		return nil
	}

	n := float64(successCount)
	avg.TotalMs /= n
	avg.NavigationMs /= n
	avg.WaitMs /= n
	avg.CaptureMs /= n
	avg.RecoveryAttempts /= n
	avg.Polls /= n
	return &avg
}

func printTable(results []urlResult) {
	fmt.Println(strings.Repeat("─", 85))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "URL\tAvg Latency\tAvg Wait\tRecoveries\tCompleted By\n")
	fmt.Fprintf(w, "───\t───────────\t────────\t──────────\t────────────\n")

	for _, r := range results {
		if r.Averages == nil {
			fmt.Fprintf(w, "%s\tFAILED\t-\t-\t-\n", truncateURL(r.URL, 40))
			continue
		}

		fmt.Fprintf(w, "%s\t%dms\t%dms\t%.1f\t%s\n",
			truncateURL(r.URL, 40),
			int64(r.Averages.TotalMs),
			int64(r.Averages.WaitMs),
			r.Averages.RecoveryAttempts,
			dominantCompletedBy(r.Runs),
		)
	}

	w.Flush()
	fmt.Println(strings.Repeat("─", 85))
}

func dominantCompletedBy(runs []runResult) string {
	counts := map[string]int{}
	for _, r := range runs {
		if r.Success {
			counts[r.CompletedBy]++
		}
	}
	best, bestCount := "-", 0
	for signal, count := range counts {
		if count > bestCount {
			best = signal
			bestCount = count
		}
	}
	return best
}

func truncateURL(u string, max int) string {
	if len(u) <= max {
		return u
	}
	return u[:max-3] + "..."
}

func writeJSON(path string, report benchmarkReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
