package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestHTTPIPResolver_FallsBackToNextEndpoint(t *testing.T) {
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer down.Close()
	html := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>blocked</html>"))
	}))
	defer html.Close()
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(" 203.0.113.7\n"))
	}))
	defer up.Close()

	ip, err := NewHTTPIPResolver(zap.NewNop(), down.URL, html.URL, up.URL).PublicIP(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "203.0.113.7", ip)

	_, err = NewHTTPIPResolver(zap.NewNop(), down.URL).PublicIP(context.Background())
	assert.Error(t, err)
}

func TestAllowed(t *testing.T) {
	assert.True(t, allowed(" 1.2.3.4 ", []string{"5.6.7.8", "1.2.3.4"}))
	assert.False(t, allowed("1.2.3.5", []string{"1.2.3.4"}))
	assert.False(t, allowed("", nil))
}
