package service

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/jafarshop/relister/internal/coupang"
	"github.com/jafarshop/relister/internal/domain"
)

const maxHistoryLen = 2000

// ApprovalPoller re-reads a listing until it is approved, rejected, the
// attempt budget runs out or the context is cancelled.
type ApprovalPoller struct {
	attempts int
	delay    time.Duration
	logger   *zap.Logger
}

// NewApprovalPoller creates a poller making at most attempts reads, each
// preceded by delay
func NewApprovalPoller(attempts int, delay time.Duration, logger *zap.Logger) *ApprovalPoller {
	if attempts < 1 {
		attempts = 1
	}
	return &ApprovalPoller{attempts: attempts, delay: delay, logger: logger}
}

// PollOutcome is what polling observed. Last is the final listing read and
// may be nil when every read failed.
type PollOutcome struct {
	Status    domain.ApprovalState
	Attempts  []domain.ApprovalAttempt
	Cancelled bool
	Last      *coupang.Response
}

// Approved reports whether the last seen status is live
func (o PollOutcome) Approved() bool {
	return o.Status.IsApproved()
}

// Poll never fails: exhausting the budget returns the last-known status and
// cancellation returns it with Cancelled set.
func (p *ApprovalPoller) Poll(ctx context.Context, reader ListingReader, sellerProductID int64) PollOutcome {
	var out PollOutcome

	for i := 1; i <= p.attempts; i++ {
		if !sleep(ctx, p.delay) {
			out.Cancelled = true
			break
		}

		attempt := domain.ApprovalAttempt{Attempt: i, At: time.Now().UTC()}
		resp, err := reader.GetListing(ctx, sellerProductID)
		if err != nil {
			p.logger.Warn("Approval poll failed", zap.Int64("sellerProductId", sellerProductID), zap.Int("attempt", i), zap.Error(err))
			out.Attempts = append(out.Attempts, attempt)
			if ctx.Err() != nil {
				out.Cancelled = true
				break
			}
			continue
		}
		attempt.HTTPStatus = resp.Status
		if resp.OK() {
			out.Last = resp
			if status := coupang.ListingStatus(resp.Body); status != "" {
				out.Status = status
			}
		}
		attempt.Status = out.Status

		if out.Status.IsTerminal() {
			out.Attempts = append(out.Attempts, attempt)
			break
		}
		attempt.History = p.history(ctx, reader, sellerProductID)
		out.Attempts = append(out.Attempts, attempt)
	}

	p.logger.Info("Approval polling finished",
		zap.Int64("sellerProductId", sellerProductID),
		zap.String("status", string(out.Status)),
		zap.Int("attempts", len(out.Attempts)),
		zap.Bool("cancelled", out.Cancelled),
	)
	return out
}

// history fetches the latest status-history entry; failures yield ""
func (p *ApprovalPoller) history(ctx context.Context, reader ListingReader, sellerProductID int64) string {
	resp, err := reader.GetListingHistories(ctx, sellerProductID)
	if err != nil || !resp.OK() {
		return ""
	}
	var envelope struct {
		Data []json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(resp.Body, &envelope); err == nil && len(envelope.Data) > 0 {
		return truncate(string(envelope.Data[0]), maxHistoryLen)
	}
	return truncate(string(resp.Body), maxHistoryLen)
}

// sleep waits d or until ctx is done, reporting whether the wait completed
func sleep(ctx context.Context, d time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	if d <= 0 {
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
