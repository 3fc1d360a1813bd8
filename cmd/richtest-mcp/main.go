package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// checkRequest mirrors the richtest API request model.
type checkRequest struct {
	URL                 string `json:"url"`
	Timeout             int    `json:"timeout,omitempty"`
	MaxRecoveryAttempts *int   `json:"max_recovery_attempts,omitempty"`
	Stealth             bool   `json:"stealth,omitempty"`
	OutputFormat        string `json:"output_format,omitempty"`
	MaxAge              int    `json:"max_age,omitempty"`
}

// checkResponse mirrors the richtest API response model. The base64
// screenshot field is deliberately absent: tool output stays textual and the
// server-side artifact path points at the image.
type checkResponse struct {
	Success          bool   `json:"success"`
	URL              string `json:"url"`
	CompletedBy      string `json:"completed_by"`
	RecoveryAttempts int    `json:"recovery_attempts"`
	Polls            int    `json:"polls"`
	ScreenshotPath   string `json:"screenshot_path"`
	Target           *struct {
		Reachable        bool   `json:"reachable"`
		StatusCode       int    `json:"status_code"`
		Title            string `json:"title"`
		StructuredBlocks int    `json:"structured_blocks"`
	} `json:"target"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// batchResponse mirrors the richtest batch API response.
type batchResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Total  int    `json:"total"`
}

// batchStatusResponse mirrors the richtest batch status API response.
type batchStatusResponse struct {
	ID        string            `json:"id"`
	Status    string            `json:"status"`
	Completed int               `json:"completed"`
	Total     int               `json:"total"`
	Results   []json.RawMessage `json:"results"`
}

func main() {
	apiURL := os.Getenv("RICHTEST_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}
	apiKey := os.Getenv("RICHTEST_API_KEY")
	if apiKey == "" {
		fmt.Fprintln(os.Stderr, "RICHTEST_API_KEY is required")
		os.Exit(1)
	}

	s := server.NewMCPServer(
		"richtest",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	checkURLTool := mcp.NewTool("check_url",
		mcp.WithDescription("Run a URL through Google's Rich Results Test in a real browser and report the verdict. Handles the tool's transient errors automatically and captures a screenshot of the result."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The URL of the page to test"),
		),
		mcp.WithNumber("timeout",
			mcp.Description("Overall deadline in seconds for the check (default: 90, max: 300)"),
		),
		mcp.WithNumber("recovery_attempts",
			mcp.Description("How many transient-error recovery cycles to attempt before failing (default: 5, max: 10)"),
		),
		mcp.WithBoolean("stealth",
			mcp.Description("Enable anti-bot-detection evasions on the driven browser page"),
		),
		mcp.WithString("output_format",
			mcp.Description("Screenshot format: 'png' (default) or 'jpeg'"),
			mcp.Enum("png", "jpeg"),
		),
	)
	s.AddTool(checkURLTool, handleCheckURL(apiURL, apiKey))

	batchCheckTool := mcp.NewTool("batch_check",
		mcp.WithDescription("Run multiple URLs through Google's Rich Results Test and report each verdict. Checks run concurrently up to the server's page pool size."),
		mcp.WithArray("urls",
			mcp.Required(),
			mcp.Description("List of URLs to test"),
		),
		mcp.WithNumber("timeout",
			mcp.Description("Per-URL deadline in seconds (default: 90, max: 300)"),
		),
		mcp.WithBoolean("stealth",
			mcp.Description("Enable anti-bot-detection evasions for all checks"),
		),
	)
	s.AddTool(batchCheckTool, handleBatchCheck(apiURL, apiKey))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

// apiPost sends a POST request to the richtest API and returns the response body.
func apiPost(ctx context.Context, client *http.Client, apiURL, apiKey, path string, payload interface{}) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", apiKey)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}

// pollJobCompletion polls a job endpoint until status is no longer "processing" or context is cancelled.
func pollJobCompletion(ctx context.Context, client *http.Client, apiURL, apiKey, endpoint string) ([]byte, error) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL+endpoint, nil)
			if err != nil {
				return nil, fmt.Errorf("create poll request: %w", err)
			}
			req.Header.Set("X-API-Key", apiKey)

			resp, err := client.Do(req)
			if err != nil {
				return nil, fmt.Errorf("poll request failed: %w", err)
			}

			body, err := io.ReadAll(resp.Body)
			resp.Body.Close()
			if err != nil {
				return nil, fmt.Errorf("read poll response: %w", err)
			}

			// Quick check if still processing.
			var status struct {
				Status string `json:"status"`
			}
			if err := json.Unmarshal(body, &status); err != nil {
				return nil, fmt.Errorf("parse poll status: %w", err)
			}

			if status.Status != "processing" {
				return body, nil
			}
		}
	}
}

// summarizeCheck renders one check result as a readable block.
func summarizeCheck(cr *checkResponse) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Check complete: %s\n", cr.URL))
	sb.WriteString(fmt.Sprintf("  completed by: %s\n", cr.CompletedBy))
	sb.WriteString(fmt.Sprintf("  recovery attempts: %d, polls: %d\n", cr.RecoveryAttempts, cr.Polls))
	if cr.Target != nil {
		sb.WriteString(fmt.Sprintf("  target: HTTP %d, title %q, %d JSON-LD block(s)\n",
			cr.Target.StatusCode, cr.Target.Title, cr.Target.StructuredBlocks))
	}
	if cr.ScreenshotPath != "" {
		sb.WriteString(fmt.Sprintf("  screenshot: %s\n", cr.ScreenshotPath))
	}
	return sb.String()
}

func handleCheckURL(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 320 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}

		reqBody := checkRequest{
			URL:          url,
			Stealth:      request.GetBool("stealth", false),
			OutputFormat: request.GetString("output_format", ""),
		}
		args := request.GetArguments()
		if timeout, ok := args["timeout"].(float64); ok {
			reqBody.Timeout = int(timeout)
		}
		if recovery, ok := args["recovery_attempts"].(float64); ok {
			attempts := int(recovery)
			reqBody.MaxRecoveryAttempts = &attempts
		}

		respBody, err := apiPost(ctx, client, apiURL, apiKey, "/api/v1/check", reqBody)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("check request failed: %v", err)), nil
		}

		var checkResp checkResponse
		if err := json.Unmarshal(respBody, &checkResp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}

		if !checkResp.Success {
			errMsg := "check failed"
			if checkResp.Error != nil {
				errMsg = fmt.Sprintf("[%s] %s", checkResp.Error.Code, checkResp.Error.Message)
			}
			return mcp.NewToolResultError(errMsg), nil
		}

		return mcp.NewToolResultText(summarizeCheck(&checkResp)), nil
	}
}

func handleBatchCheck(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 600 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		urls, err := request.RequireStringSlice("urls")
		if err != nil {
			return mcp.NewToolResultError("urls is required and must be an array of strings"), nil
		}

		options := map[string]interface{}{
			"stealth": request.GetBool("stealth", false),
		}
		args := request.GetArguments()
		if timeout, ok := args["timeout"].(float64); ok {
			options["timeout"] = int(timeout)
		}

		payload := map[string]interface{}{
			"urls":    urls,
			"options": options,
		}

		// POST to create the batch job.
		respBody, err := apiPost(ctx, client, apiURL, apiKey, "/api/v1/batch/check", payload)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("batch request failed: %v", err)), nil
		}

		var batchResp batchResponse
		if err := json.Unmarshal(respBody, &batchResp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse batch response: %v", err)), nil
		}

		if batchResp.ID == "" {
			return mcp.NewToolResultError("batch job creation failed"), nil
		}

		// Poll for completion.
		resultBody, err := pollJobCompletion(ctx, client, apiURL, apiKey, "/api/v1/batch/"+batchResp.ID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("polling batch job failed: %v", err)), nil
		}

		var statusResp batchStatusResponse
		if err := json.Unmarshal(resultBody, &statusResp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse batch status: %v", err)), nil
		}

		// Format results.
		var sb strings.Builder
		sb.WriteString(fmt.Sprintf("Batch %s: %s (%d/%d completed)\n\n", statusResp.ID, statusResp.Status, statusResp.Completed, statusResp.Total))

		for i, raw := range statusResp.Results {
			var cr checkResponse
			if err := json.Unmarshal(raw, &cr); err != nil {
				sb.WriteString(fmt.Sprintf("--- Result %d: parse error ---\n\n", i+1))
				continue
			}
			if cr.Success {
				sb.WriteString(fmt.Sprintf("--- [%d] ---\n%s\n", i+1, summarizeCheck(&cr)))
			} else {
				errMsg := "unknown error"
				if cr.Error != nil {
					errMsg = fmt.Sprintf("[%s] %s", cr.Error.Code, cr.Error.Message)
				}
				sb.WriteString(fmt.Sprintf("--- [%d] %s FAILED: %s ---\n\n", i+1, cr.URL, errMsg))
			}
		}

		return mcp.NewToolResultText(sb.String()), nil
	}
}
