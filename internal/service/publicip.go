package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultIPEndpoints are queried in order until one answers
var DefaultIPEndpoints = []string{"https://ifconfig.me/ip", "https://api.ipify.org"}

// IPResolver reports this process's public address
type IPResolver interface {
	PublicIP(ctx context.Context) (string, error)
}

// HTTPIPResolver asks plain-text "what is my IP" services
type HTTPIPResolver struct {
	endpoints []string
	client    *http.Client
	logger    *zap.Logger
}

// NewHTTPIPResolver creates a resolver. No endpoints means DefaultIPEndpoints.
func NewHTTPIPResolver(logger *zap.Logger, endpoints ...string) *HTTPIPResolver {
	if len(endpoints) == 0 {
		endpoints = DefaultIPEndpoints
	}
	return &HTTPIPResolver{
		endpoints: endpoints,
		client:    &http.Client{Timeout: 5 * time.Second},
		logger:    logger,
	}
}

func (r *HTTPIPResolver) PublicIP(ctx context.Context) (string, error) {
	var lastErr error
	for _, endpoint := range r.endpoints {
		ip, err := r.ask(ctx, endpoint)
		if err == nil {
			return ip, nil
		}
		lastErr = err
		r.logger.Debug("Public IP lookup failed", zap.String("endpoint", endpoint), zap.Error(err))
	}
	return "", fmt.Errorf("failed to resolve public ip: %w", lastErr)
}

func (r *HTTPIPResolver) ask(ctx context.Context, endpoint string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "text/plain")
	resp, err := r.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 256))
	if err != nil {
		return "", err
	}
	ip := strings.TrimSpace(string(raw))
	if ip == "" || len(ip) >= 80 || strings.ContainsAny(ip, " <>") {
		return "", fmt.Errorf("unexpected reply %q", ip)
	}
	return ip, nil
}

// StaticIP always reports the same address
type StaticIP string

func (s StaticIP) PublicIP(context.Context) (string, error) { return string(s), nil }

// allowed reports whether ip is on the allow-list
func allowed(ip string, allowList []string) bool {
	return slices.Contains(allowList, strings.TrimSpace(ip))
}
