// Package preflight probes a target URL over plain HTTP before the browser
// check runs. The probe is informational: it reports reachability, the HTTP
// status, the page title, and how many JSON-LD blocks the raw HTML carries,
// so operators can tell "target has no structured data" apart from "the
// tool failed" when a check comes back empty.
package preflight

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	tls2 "github.com/refraction-networking/utls"

	"github.com/Ahsanalpha/google-rich-results-automation/config"
	"github.com/Ahsanalpha/google-rich-results-automation/models"
)

const chromeUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// Checker fetches target URLs with a Chrome TLS fingerprint (utls) so
// bot-hostile origins respond the same way they will respond to Google.
type Checker struct {
	timeout time.Duration
	proxy   string
}

// NewChecker creates a target pre-checker. proxy may be empty.
func NewChecker(cfg config.PreflightConfig, proxy string) *Checker {
	return &Checker{timeout: cfg.Timeout, proxy: proxy}
}

// Check probes the target and summarises what a crawler would see there.
// An error means no HTTP response was obtained at all; error statuses
// (4xx, 5xx) are reported as data, with Reachable still true.
func (c *Checker) Check(ctx context.Context, targetURL string) (*models.TargetInfo, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	status, body, err := c.fetch(ctx, targetURL)
	if err != nil {
		return nil, err
	}

	info := &models.TargetInfo{Reachable: true, StatusCode: status}
	info.Title, info.StructuredBlocks = parseTarget(body)
	return info, nil
}

// fetch retrieves the URL via plain HTTP with a Chrome TLS fingerprint.
func (c *Checker) fetch(ctx context.Context, targetURL string) (int, []byte, error) {
	transport := &http.Transport{
		DialTLSContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			return dialTLSChrome(ctx, network, addr, c.proxy)
		},
	}
	if c.proxy != "" {
		proxyURL, err := url.Parse(c.proxy)
		if err == nil && (proxyURL.Scheme == "http" || proxyURL.Scheme == "https") {
			transport.Proxy = http.ProxyURL(proxyURL)
		}
	}

	client := &http.Client{Transport: transport}
	defer client.CloseIdleConnections()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("preflight: build request: %w", err)
	}
	req.Header.Set("User-Agent", chromeUA)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("preflight: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10*1024*1024)) // 10 MB cap
	if err != nil {
		return 0, nil, fmt.Errorf("preflight: read body: %w", err)
	}

	return resp.StatusCode, body, nil
}

// dialTLSChrome establishes a TLS connection using a Chrome fingerprint via utls.
func dialTLSChrome(ctx context.Context, network, addr, proxy string) (net.Conn, error) {
	var rawConn net.Conn
	var err error

	dialer := &net.Dialer{}

	if proxy != "" {
		proxyURL, parseErr := url.Parse(proxy)
		if parseErr == nil && (proxyURL.Scheme == "socks5" || proxyURL.Scheme == "socks5h") {
			socksConn, socksErr := dialer.DialContext(ctx, "tcp", proxyURL.Host)
			if socksErr != nil {
				return nil, fmt.Errorf("socks5 dial: %w", socksErr)
			}
			rawConn = socksConn
		}
	}

	if rawConn == nil {
		rawConn, err = dialer.DialContext(ctx, network, addr)
		if err != nil {
			return nil, err
		}
	}

	host, _, _ := net.SplitHostPort(addr)
	tlsConn := tls2.UClient(rawConn, &tls2.Config{
		ServerName:         host,
		InsecureSkipVerify: false,
	}, tls2.HelloChrome_Auto)

	if err := tlsConn.HandshakeContext(ctx); err != nil {
		rawConn.Close()
		return nil, err
	}
	return tlsConn, nil
}

// parseTarget pulls the title and the JSON-LD block count out of raw HTML.
func parseTarget(body []byte) (title string, blocks int) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", 0
	}
	title = strings.TrimSpace(doc.Find("title").First().Text())
	blocks = doc.Find(`script[type="application/ld+json"]`).Length()
	return title, blocks
}
