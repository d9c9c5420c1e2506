package events

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMessage_HeadersAndKey(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	msg, err := Message(UploadEvent{Event: EventUploadFinished, RunID: "r1", SourceURL: "https://domeggook.com/1", Status: "submitted", OccurredAt: at})
	require.NoError(t, err)

	assert.Equal(t, "https://domeggook.com/1", string(msg.Key))
	headers := map[string]string{}
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.NotEmpty(t, headers["message_id"])
	assert.Equal(t, EventUploadFinished, headers["event"])
	assert.Equal(t, "2024-05-01T12:00:00Z", headers["timestamp"])

	var decoded UploadEvent
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "submitted", decoded.Status)
}

func TestWebhookPublisher(t *testing.T) {
	var got UploadEvent
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &got)
		if got.Status == "failed" {
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	p := NewWebhookPublisher(srv.URL, zap.NewNop())
	require.NoError(t, p.Publish(context.Background(), UploadEvent{RunID: "r1", Status: "approved"}))
	assert.Equal(t, "r1", got.RunID)
	assert.False(t, got.OccurredAt.IsZero())

	assert.Error(t, p.Publish(context.Background(), UploadEvent{RunID: "r2", Status: "failed"}))
	assert.NoError(t, NewWebhookPublisher("", zap.NewNop()).Publish(context.Background(), UploadEvent{}))
}

type failing struct{ calls int }

func (f *failing) Publish(context.Context, UploadEvent) error { f.calls++; return errors.New("down") }
func (f *failing) Close() error                               { return nil }

func TestMulti_DeliversToAll(t *testing.T) {
	a, b := &failing{}, &failing{}
	err := Multi{a, Nop{}, b}.Publish(context.Background(), UploadEvent{})
	assert.EqualError(t, err, "down")
	assert.Equal(t, 1, a.calls)
	assert.Equal(t, 1, b.calls)
}
