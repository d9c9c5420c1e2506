package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

const (
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
	maxPageBytes     = 16 << 20
)

// HTTPSession fetches pages over plain HTTP, carrying the cookies of a saved
// browser login so member-only prices and options are visible.
type HTTPSession struct {
	httpClient *http.Client
	userAgent  string
	logger     *zap.Logger
}

// storageState mirrors the cookie part of a browser storage-state export
type storageState struct {
	Cookies []struct {
		Name     string  `json:"name"`
		Value    string  `json:"value"`
		Domain   string  `json:"domain"`
		Path     string  `json:"path"`
		Expires  float64 `json:"expires"`
		HTTPOnly bool    `json:"httpOnly"`
		Secure   bool    `json:"secure"`
	} `json:"cookies"`
}

// NewHTTPSession creates a session. storageStatePath may be empty or missing,
// in which case the session starts anonymous.
func NewHTTPSession(storageStatePath string, timeout time.Duration, logger *zap.Logger) (*HTTPSession, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	if storageStatePath != "" {
		n, err := loadStorageState(jar, storageStatePath)
		switch {
		case err != nil && os.IsNotExist(err):
			logger.Debug("Storage state not found, starting anonymous session", zap.String("path", storageStatePath))
		case err != nil:
			return nil, fmt.Errorf("failed to load storage state %s: %w", storageStatePath, err)
		default:
			logger.Info("Loaded session cookies", zap.String("path", storageStatePath), zap.Int("cookies", n))
		}
	}

	return &HTTPSession{
		httpClient: &http.Client{Timeout: timeout, Jar: jar},
		userAgent:  defaultUserAgent,
		logger:     logger,
	}, nil
}

func loadStorageState(jar http.CookieJar, path string) (int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	var state storageState
	if err := json.Unmarshal(raw, &state); err != nil {
		return 0, err
	}

	byHost := make(map[string][]*http.Cookie)
	for _, c := range state.Cookies {
		host := strings.TrimPrefix(c.Domain, ".")
		if host == "" {
			continue
		}
		cookie := &http.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Path:     c.Path,
			Secure:   c.Secure,
			HttpOnly: c.HTTPOnly,
		}
		if strings.HasPrefix(c.Domain, ".") {
			cookie.Domain = c.Domain
		}
		if c.Expires > 0 {
			cookie.Expires = time.Unix(int64(c.Expires), 0)
		}
		byHost[host] = append(byHost[host], cookie)
	}

	count := 0
	for host, cookies := range byHost {
		jar.SetCookies(&url.URL{Scheme: "https", Host: host, Path: "/"}, cookies)
		count += len(cookies)
	}
	return count, nil
}

// Load fetches rawURL and parses it. The returned Document reports the final
// URL after redirects, so short links resolve to the product page.
func (s *HTTPSession) Load(ctx context.Context, rawURL string) (Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "ko-KR,ko;q=0.9")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.Warn("Source page request failed", zap.String("url", rawURL), zap.Error(err))
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read page: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("source returned %d for %s", resp.StatusCode, rawURL)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}
	return &staticDocument{
		url:     resp.Request.URL.String(),
		raw:     string(body),
		doc:     doc,
		session: s,
	}, nil
}

// Fetch issues a GET that shares this session's cookies
func (s *HTTPSession) Fetch(ctx context.Context, rawURL string, headers map[string]string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", s.userAgent)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return &Response{Status: resp.StatusCode, Header: resp.Header, Body: body}, nil
}

// HTTPClient exposes the cookie-carrying client for asset downloads
func (s *HTTPSession) HTTPClient() *http.Client {
	return s.httpClient
}
