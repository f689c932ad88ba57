package builtin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pocketomega/fsmagent/internal/tool"
)

const (
	httpMaxResponseChars = 8000 // rune limit for response body output
	httpMaxTimeout       = 30   // seconds, hard upper bound
	httpDefaultTimeout   = 10   // seconds
	httpMaxRedirects     = 3
)

// privateNetworks lists all IPv4/IPv6 address ranges considered internal.
// Covers RFC-1918 private ranges, loopback, link-local, ULA, CGNAT, and
// other address blocks that could be used for SSRF bypasses.
var privateNetworks []*net.IPNet

func init() {
	for _, cidr := range []string{
		"0.0.0.0/8",
		"10.0.0.0/8",
		"100.64.0.0/10",
		"127.0.0.0/8",
		"169.254.0.0/16",
		"172.16.0.0/12",
		"192.168.0.0/16",
		"198.18.0.0/15",
		"::1/128",
		"fc00::/7",
		"fe80::/10",
	} {
		_, network, err := net.ParseCIDR(cidr)
		if err == nil {
			privateNetworks = append(privateNetworks, network)
		}
	}
}

var allowedHTTPMethods = map[string]bool{
	"GET": true, "POST": true, "PUT": true, "PATCH": true,
	"DELETE": true, "HEAD": true, "OPTIONS": true,
}

// usefulResponseHeaders are the header names surfaced to the LLM, omitting
// Set-Cookie, authentication headers, and server internals.
var usefulResponseHeaders = map[string]bool{
	"Content-Type": true, "Content-Length": true, "Content-Encoding": true,
	"Location": true, "Cache-Control": true, "Retry-After": true,
	"X-Ratelimit-Limit": true, "X-Ratelimit-Remaining": true, "X-Ratelimit-Reset": true,
	"X-Request-Id": true, "X-Correlation-Id": true,
}

type httpRequestArgs struct {
	URL     string            `json:"url"`
	Method  string            `json:"method"`
	Headers map[string]string `json:"headers"`
	Body    string            `json:"body"`
	Timeout int               `json:"timeout"`
}

// RegisterHTTPRequest installs "http_request" into r. Internal addresses are
// blocked by default; allowInternal lifts that for trusted environments.
func RegisterHTTPRequest(r *tool.Registry, allowInternal bool) {
	schema := tool.BuildSchema(
		tool.SchemaParam{Name: "url", Type: "string", Description: "request URL (http/https only)", Required: true},
		tool.SchemaParam{Name: "method", Type: "string", Description: "GET, POST, PUT, PATCH, DELETE, HEAD, or OPTIONS (default GET)"},
		tool.SchemaParam{Name: "headers", Type: "object", Description: "request header key/value pairs"},
		tool.SchemaParam{Name: "body", Type: "string", Description: "request body (POST/PUT)"},
		tool.SchemaParam{Name: "timeout", Type: "integer", Description: "timeout in seconds (default 10, max 30)"},
	)
	r.Register("http_request",
		"Send an HTTP request and return the response; blocks internal addresses by default",
		schema,
		func(ctx context.Context, args json.RawMessage) (string, error) {
			return execHTTPRequest(ctx, allowInternal, args)
		})
}

func execHTTPRequest(ctx context.Context, allowInternal bool, args json.RawMessage) (string, error) {
	var a httpRequestArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return "", fmt.Errorf("parsing arguments: %w", err)
	}
	if strings.TrimSpace(a.URL) == "" {
		return "", fmt.Errorf("url must not be empty")
	}

	urlLower := strings.ToLower(a.URL)
	if !strings.HasPrefix(urlLower, "http://") && !strings.HasPrefix(urlLower, "https://") {
		return "", fmt.Errorf("only http:// and https:// are supported")
	}

	method := strings.ToUpper(strings.TrimSpace(a.Method))
	if method == "" {
		method = "GET"
	}
	if !allowedHTTPMethods[method] {
		return "", fmt.Errorf("unsupported method %q", method)
	}

	timeoutSec := a.Timeout
	if timeoutSec <= 0 {
		timeoutSec = httpDefaultTimeout
	}
	if timeoutSec > httpMaxTimeout {
		timeoutSec = httpMaxTimeout
	}
	timeout := time.Duration(timeoutSec) * time.Second

	baseDialer := &net.Dialer{Timeout: timeout}
	transport := &http.Transport{
		DialContext: func(dialCtx context.Context, network, addr string) (net.Conn, error) {
			host, _, err := net.SplitHostPort(addr)
			if err != nil {
				host = addr
			}
			if !allowInternal {
				if err := blockInternalHost(host); err != nil {
					return nil, err
				}
			}
			return baseDialer.DialContext(dialCtx, network, addr)
		},
	}

	redirectsDone := 0
	client := &http.Client{
		Timeout:   timeout,
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			redirectsDone++
			if redirectsDone > httpMaxRedirects {
				return fmt.Errorf("exceeded max redirects (%d)", httpMaxRedirects)
			}
			if !allowInternal {
				return blockInternalHost(req.URL.Hostname())
			}
			return nil
		},
	}

	var bodyReader io.Reader
	if a.Body != "" {
		bodyReader = strings.NewReader(a.Body)
	}
	req, err := http.NewRequestWithContext(ctx, method, a.URL, bodyReader)
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	for k, v := range a.Headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := client.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	rawBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("reading response body: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	if isBinaryHTTPResponse(contentType, rawBody) {
		return fmt.Sprintf("status: %s\nelapsed: %dms\n\nContent-Type: %s\nbody: binary content (%d bytes), not shown",
			resp.Status, elapsed.Milliseconds(), contentType, len(rawBody)), nil
	}

	bodyStr := string(rawBody)
	truncated := false
	if utf8.RuneCountInString(bodyStr) > httpMaxResponseChars {
		runes := []rune(bodyStr)
		bodyStr = string(runes[:httpMaxResponseChars])
		truncated = true
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "status: %s\n", resp.Status)
	fmt.Fprintf(&sb, "elapsed: %dms\n", elapsed.Milliseconds())

	var headerLines []string
	for k, vs := range resp.Header {
		if usefulResponseHeaders[http.CanonicalHeaderKey(k)] {
			headerLines = append(headerLines, fmt.Sprintf("  %s: %s", k, strings.Join(vs, ", ")))
		}
	}
	if len(headerLines) > 0 {
		sb.WriteString("\nheaders:\n")
		for _, line := range headerLines {
			sb.WriteString(line + "\n")
		}
	}

	sb.WriteString("\nbody:\n")
	sb.WriteString(bodyStr)
	if truncated {
		fmt.Fprintf(&sb, "\n...[body truncated, %d bytes total]", len(rawBody))
	}

	return sb.String(), nil
}

func blockInternalHost(host string) error {
	ips, err := net.LookupHost(host)
	if err != nil {
		ips = []string{host}
	}
	for _, ipStr := range ips {
		ip := net.ParseIP(ipStr)
		if ip == nil {
			continue
		}
		if ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsUnspecified() {
			return fmt.Errorf("blocked: internal address %s", host)
		}
		for _, network := range privateNetworks {
			if network.Contains(ip) {
				return fmt.Errorf("blocked: internal address %s", host)
			}
		}
	}
	return nil
}

func isBinaryHTTPResponse(contentType string, body []byte) bool {
	ct := strings.ToLower(contentType)
	for _, prefix := range []string{
		"image/", "audio/", "video/",
		"application/octet-stream", "application/pdf",
		"application/zip", "application/gzip",
		"application/x-tar", "application/x-binary",
	} {
		if strings.HasPrefix(ct, prefix) {
			return true
		}
	}
	if len(body) == 0 {
		return false
	}
	return bytes.IndexByte(body, 0) >= 0 && !utf8.Valid(body)
}
