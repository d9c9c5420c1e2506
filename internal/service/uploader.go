package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jafarshop/relister/internal/category"
	"github.com/jafarshop/relister/internal/config"
	"github.com/jafarshop/relister/internal/coupang"
	"github.com/jafarshop/relister/internal/domain"
	"github.com/jafarshop/relister/internal/events"
	"github.com/jafarshop/relister/internal/listing"
	"github.com/jafarshop/relister/internal/media"
	"github.com/jafarshop/relister/internal/metrics"
	"github.com/jafarshop/relister/internal/pricing"
	"github.com/jafarshop/relister/internal/productpage"
	"github.com/jafarshop/relister/internal/repository"
	"github.com/jafarshop/relister/internal/source"
	"github.com/jafarshop/relister/pkg/errors"
)

const (
	// ReasonBusy is reported when another upload holds the guard
	ReasonBusy = "busy"

	recommendDescriptionLen = 2000
	afterRunTimeout         = 10 * time.Second
)

// PageParser turns a product URL into a draft
type PageParser interface {
	Parse(ctx context.Context, rawURL string) (*productpage.Parsed, error)
}

// ImageStore copies remote images somewhere the marketplace can fetch them
type ImageStore interface {
	Download(ctx context.Context, pageURL, baseURL string, imageURLs []string) (*media.Result, error)
}

// Dependencies are the collaborators of an Uploader. Images, Uploads and
// Events are optional.
type Dependencies struct {
	Parser       PageParser
	Images       ImageStore
	Resolver     *category.Resolver
	Destinations DestinationFactory
	IPs          IPResolver
	Poller       *ApprovalPoller
	Uploads      repository.UploadRepository
	Events       events.Publisher
}

// Options are the process-level defaults of an Uploader
type Options struct {
	Account        config.CoupangConfig
	Defaults       config.Settings
	LocalImageBase string
	Return         listing.ReturnContact
}

// Uploader runs the upload pipeline: classify, gate, extract, resolve,
// build, submit, then request and poll approval.
type Uploader struct {
	deps   Dependencies
	opts   Options
	guard  *FlightGuard
	logger *zap.Logger
}

// NewUploader creates an uploader with its own single-flight guard
func NewUploader(deps Dependencies, opts Options, logger *zap.Logger) *Uploader {
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Destinations == nil {
		deps.Destinations = CoupangDestinations(logger)
	}
	if deps.Resolver == nil {
		deps.Resolver = category.NewResolver(category.StaticRules(), nil, logger)
	}
	if deps.Poller == nil {
		deps.Poller = NewApprovalPoller(3, 5*time.Second, logger)
	}
	if deps.IPs == nil {
		deps.IPs = NewHTTPIPResolver(logger)
	}
	if deps.Events == nil {
		deps.Events = events.Nop{}
	}
	return &Uploader{deps: deps, opts: opts, guard: &FlightGuard{}, logger: logger}
}

// Guard exposes the single-flight guard, e.g. for health reporting
func (u *Uploader) Guard() *FlightGuard {
	return u.guard
}

// MarginFrom reads the margin policy out of settings, with documented defaults
func MarginFrom(s config.Settings) pricing.Margin {
	return pricing.Margin{
		Rate:      s.MarginRate.Or(0),
		Add:       int(s.MarginAdd.Or(0)),
		Floor:     int(s.PriceMin.Or(config.DefaultPriceMin)),
		Max:       int(s.PriceMax.Or(0)),
		RoundUnit: int(s.RoundUnit.Or(config.DefaultRoundUnit)),
	}
}

// Upload runs one upload. The result is always returned, also on failure;
// the error classifies the failure for callers mapping it to a status.
// A concurrent call while another upload is in flight returns errors.ErrBusy
// without touching the network.
func (u *Uploader) Upload(ctx context.Context, req UploadRequest) (*UploadResult, error) {
	if !u.guard.TryAcquire() {
		metrics.Uploads.WithLabelValues("rejected", ReasonBusy).Inc()
		u.logger.Info("Upload rejected, another upload is in flight", zap.String("url", req.URL))
		return &UploadResult{Reason: ReasonBusy, Error: errors.ErrBusy.Error(), Stages: []domain.Stage{}}, errors.ErrBusy
	}
	held := true
	release := func() {
		if held {
			held = false
			u.guard.Release()
		}
	}
	defer release()

	run := &domain.UploadRun{ID: uuid.New(), Status: domain.RunStatusPending, Stages: []domain.Stage{}, StartedAt: time.Now().UTC()}
	res := &UploadResult{RunID: run.ID}
	settings := u.opts.Defaults.Merge(req.Settings).WithAccount(u.opts.Account)

	u.logger.Info("Upload started", zap.String("run_id", run.ID.String()), zap.String("url", req.URL))
	err := u.upload(ctx, run, res, req, settings, release)
	u.finish(ctx, run, res, req.URL, err)
	return res, err
}

func (u *Uploader) upload(ctx context.Context, run *domain.UploadRun, res *UploadResult, req UploadRequest, settings config.Settings, release func()) error {
	class := source.Classify(req.URL)
	if !class.OK {
		res.Skipped = true
		return &errors.ErrPreflight{Reason: errors.ReasonUnsupportedSource, Message: class.Reason}
	}
	u.advance(run, domain.StageClassified)

	if missing := settings.MissingCredentials(); len(missing) > 0 {
		return &errors.ErrPreflight{Reason: errors.ReasonMissingCredentials, Message: "missing " + strings.Join(missing, ", ")}
	}
	if allowList := settings.AllowList(); len(allowList) > 0 {
		res.AllowedIPs = allowList
		ip, err := u.deps.IPs.PublicIP(ctx)
		res.IP = ip
		if err != nil || !allowed(ip, allowList) {
			res.Skipped = true
			msg := fmt.Sprintf("public ip %q is not allow-listed", ip)
			if err != nil {
				msg = err.Error()
			}
			return &errors.ErrPreflight{Reason: errors.ReasonIPNotAllowed, Message: msg}
		}
	}

	parsed, err := u.deps.Parser.Parse(ctx, class.URL)
	if err != nil {
		return err
	}
	d := parsed.Draft
	u.advance(run, domain.StageExtracted)
	res.Draft = &DraftSummary{Title: d.Title, Price: d.Price, ImageURL: d.ImageURL, CategoryText: d.CategoryText, SourceURL: d.SourceURL}
	res.Strategy = parsed.Extraction.Strategy
	res.OptionsUsed = optionLabels(d)

	imageURL, contentHTML, err := u.localizeImages(ctx, d, parsed.ContentImages, settings)
	if err != nil {
		return err
	}

	dest := u.deps.Destinations(settings.Account(u.opts.Account))
	margin := MarginFrom(settings)
	res.FinalPrice = pricing.ApplyMargin(d.Price, margin)

	cat := u.deps.Resolver.Decide(ctx, dest, category.DecideInput{
		Title:        d.Title,
		CategoryText: d.CategoryText,
		Description:  truncateRunes(d.ContentText, recommendDescriptionLen),
		ImageURL:     imageURL,
		Fallback:     category.FallbackCode,
		AutoCategory: settings.AutoCategoryMatch.Enabled(),
		Recommend:    settings.AutoCategoryRecommend.Enabled(),
		Override:     req.CategoryCode,
	})
	res.Category = &cat
	u.advance(run, domain.StageResolved)

	policy := listing.Policy{
		VendorID:                  settings.CoupangVendorID,
		VendorUserID:              settings.CoupangVendorUserID,
		DeliveryCompanyCode:       settings.CoupangDeliveryCompanyCode,
		OutboundShippingPlaceCode: u.opts.Account.OutboundShippingPlaceCode,
		BasePrice:                 res.FinalPrice,
		MinFloor:                  margin.Floor,
		ImageURL:                  imageURL,
		ContentHTML:               contentHTML,
		RequestApproval:           settings.AutoRequest.Enabled(),
		Return:                    u.opts.Return,
	}
	payload, err := listing.BuildPayload(d, d.Options, cat, policy)
	if err != nil {
		return err
	}
	expected := listing.ExpectedItems(d, d.Options, policy)
	selfCheck := listing.CheckPayload(expected, payload.Items)
	res.PayloadCheck = &selfCheck
	if !selfCheck.Passed {
		u.logger.Warn("Payload self-check found mismatches", zap.Strings("issues", selfCheck.Issues))
	}
	u.advance(run, domain.StageBuilt)

	created, err := dest.CreateListing(ctx, payload)
	if err != nil {
		var rejected *errors.ErrDestinationRejected
		if stderrors.As(err, &rejected) {
			res.Create = &CreateSummary{Status: rejected.Status, Body: rawJSON([]byte(rejected.Body))}
		}
		return err
	}
	id := created.SellerProductID
	run.SellerEntityID = &id
	res.Create = &CreateSummary{Status: created.Status, Body: rawJSON(created.Body), SellerProductID: &id}
	if err := u.transition(run, domain.RunStatusSubmitted); err != nil {
		return err
	}
	u.advance(run, domain.StageSubmitted)
	release()

	if !settings.AutoRequest.Enabled() {
		resp, err := dest.RequestApproval(ctx, id)
		if resp != nil {
			res.Approval = &ApprovalSummary{Status: resp.Status, Body: rawJSON(resp.Body)}
		}
		if err != nil {
			return err
		}
	}

	u.advance(run, domain.StageApproving)
	outcome := u.deps.Poller.Poll(ctx, dest, id)
	run.ApprovalHistory = outcome.Attempts
	follow := &FollowUp{
		StatusName: string(outcome.Status),
		Approved:   outcome.Approved(),
		Cancelled:  outcome.Cancelled,
		Attempts:   outcome.Attempts,
	}
	res.FollowUp = follow

	if outcome.Last != nil {
		if follow.Approved {
			if productID, ok := coupang.ProductID(outcome.Last.Body); ok {
				follow.ProductURL = coupang.ProductURL(productID)
			}
		}
		if listing.HasStoredItems(outcome.Last.Body) {
			if stored, err := listing.CheckStored(expected, outcome.Last.Body); err == nil {
				res.PayloadCheck = &stored
				if !stored.Passed {
					u.logger.Warn("Stored listing differs from payload", zap.Int64("sellerProductId", id), zap.Strings("issues", stored.Issues))
				}
			}
		}
	}

	if follow.Approved {
		if err := u.transition(run, domain.RunStatusApproved); err != nil {
			return err
		}
		u.advance(run, domain.StageApproved)
	} else if outcome.Status == domain.ApprovalStateRejected {
		return &errors.ErrApprovalRejected{SellerProductID: id, Status: string(outcome.Status)}
	} else {
		res.Reason = errors.ReasonApprovalPending
	}
	res.OK = true
	return nil
}

// localizeImages stores the main and content images and returns the URLs to
// submit. Without an image store the source URLs are submitted as they are.
func (u *Uploader) localizeImages(ctx context.Context, d *domain.ProductDraft, contentImages []string, settings config.Settings) (string, string, error) {
	if limit := settings.ContentImageLimit(); len(contentImages) > limit {
		contentImages = contentImages[:limit]
	}
	if u.deps.Images == nil {
		return d.ImageURL, "", nil
	}

	base := settings.LocalImageBaseURL
	if base == "" {
		base = u.opts.LocalImageBase
	}
	stored, err := u.deps.Images.Download(ctx, d.SourceURL, base, append([]string{d.ImageURL}, contentImages...))
	if stored == nil {
		return "", "", &errors.ErrImageUnreachable{URL: d.ImageURL, Err: err}
	}

	mainURL := stored.Local(d.ImageURL)
	if mainURL == "" {
		cause := err
		if cause == nil {
			msg := stored.Failed[media.Normalize(d.ImageURL)]
			if msg == "" {
				msg = "image was not stored"
			}
			cause = stderrors.New(msg)
		}
		return "", "", &errors.ErrImageUnreachable{URL: d.ImageURL, Err: cause}
	}

	var local []string
	for _, c := range contentImages {
		if l := stored.Local(c); l != "" {
			local = append(local, l)
		}
	}
	u.logger.Info("Images stored",
		zap.Int("content_images", len(contentImages)),
		zap.Int("stored", len(stored.Files)),
		zap.Int("failed", len(stored.Failed)),
	)
	if len(local) == 0 {
		return mainURL, "", nil
	}
	return mainURL, productpage.ImageHTML(local), nil
}

// Preview runs extraction and pricing without submitting anything
func (u *Uploader) Preview(ctx context.Context, req UploadRequest) (*PreviewResult, error) {
	class := source.Classify(req.URL)
	if !class.OK {
		return &PreviewResult{Reason: class.Reason, URL: class.URL, Options: []domain.Variant{}},
			&errors.ErrPreflight{Reason: errors.ReasonUnsupportedSource, Message: class.Reason}
	}

	parsed, err := u.deps.Parser.Parse(ctx, class.URL)
	if err != nil {
		return &PreviewResult{Reason: errors.Reason(err), URL: class.URL, Options: []domain.Variant{}}, err
	}
	d := parsed.Draft
	settings := u.opts.Defaults.Merge(req.Settings)

	contentImages := parsed.ContentImages
	if limit := settings.ContentImageLimit(); len(contentImages) > limit {
		contentImages = contentImages[:limit]
	}
	images := uniqueStrings(append([]string{d.ImageURL}, contentImages...))

	options := d.Options
	if options == nil {
		options = []domain.Variant{}
	}
	return &PreviewResult{
		OK:  true,
		URL: class.URL,
		Draft: &DraftSummary{
			Title:        d.Title,
			Price:        d.Price,
			ImageURL:     d.ImageURL,
			CategoryText: d.CategoryText,
			SourceURL:    d.SourceURL,
		},
		Computed: &Computed{
			FinalPrice:        pricing.ApplyMargin(d.Price, MarginFrom(settings)),
			Images:            images,
			ContentImageCount: len(contentImages),
			OptionsCount:      len(options),
			CategoryCode:      u.deps.Resolver.Resolve(d.Title, d.CategoryText, category.FallbackCode),
			PriceSource:       parsed.Pricing.Source,
		},
		Options:  options,
		Strategy: parsed.Extraction.Strategy,
	}, nil
}

// finish settles the result, then records and announces the run
func (u *Uploader) finish(ctx context.Context, run *domain.UploadRun, res *UploadResult, rawURL string, err error) {
	if err != nil {
		res.OK = false
		if reason := errors.Reason(err); reason != "" {
			res.Reason = reason
		}
		res.Error = err.Error()
		if transitionErr := u.transition(run, domain.RunStatusFailed); transitionErr != nil {
			u.logger.Warn("Run status transition rejected", zap.Error(transitionErr))
		}
		u.advance(run, domain.StageFailed)
	}
	res.Status = run.Status
	res.Stages = run.Stages

	metrics.Uploads.WithLabelValues(string(run.Status), res.Reason).Inc()
	fields := []zap.Field{
		zap.String("run_id", run.ID.String()),
		zap.String("status", string(run.Status)),
		zap.String("reason", res.Reason),
		zap.Duration("duration", time.Since(run.StartedAt)),
	}
	if err != nil {
		u.logger.Warn("Upload failed", append(fields, zap.Error(err))...)
	} else {
		u.logger.Info("Upload finished", fields...)
	}

	afterCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), afterRunTimeout)
	defer cancel()
	u.record(afterCtx, run, res, rawURL)
	if pubErr := u.deps.Events.Publish(afterCtx, uploadEvent(run, res, rawURL)); pubErr != nil {
		u.logger.Warn("Failed to publish upload event", zap.Error(pubErr))
	}
}

func (u *Uploader) record(ctx context.Context, run *domain.UploadRun, res *UploadResult, rawURL string) {
	if u.deps.Uploads == nil || res.Skipped {
		return
	}
	rec := &domain.UploadRecord{
		ID:              run.ID,
		SourceURL:       rawURL,
		Status:          run.Status,
		SellerProductID: run.SellerEntityID,
		FinalPrice:      res.FinalPrice,
		OptionCount:     len(res.OptionsUsed),
		Strategy:        res.Strategy,
		CreatedAt:       run.StartedAt,
	}
	if res.Draft != nil {
		rec.Title = res.Draft.Title
	}
	if res.Reason != "" {
		reason := res.Reason
		rec.Reason = &reason
	}
	if res.Category != nil {
		rec.CategoryCode = res.Category.Used
	}
	if res.FollowUp != nil && res.FollowUp.StatusName != "" {
		status := res.FollowUp.StatusName
		rec.ApprovalStatus = &status
	}
	if err := u.deps.Uploads.Create(ctx, rec); err != nil {
		u.logger.Warn("Failed to save upload record", zap.String("run_id", run.ID.String()), zap.Error(err))
	}
}

func uploadEvent(run *domain.UploadRun, res *UploadResult, rawURL string) events.UploadEvent {
	ev := events.UploadEvent{
		Event:           events.EventUploadFinished,
		RunID:           run.ID.String(),
		SourceURL:       rawURL,
		Status:          string(run.Status),
		Reason:          res.Reason,
		SellerProductID: run.SellerEntityID,
		FinalPrice:      res.FinalPrice,
		OccurredAt:      time.Now().UTC(),
	}
	if res.Draft != nil {
		ev.Title = res.Draft.Title
	}
	if res.FollowUp != nil {
		ev.ApprovalStatus = res.FollowUp.StatusName
		ev.ProductURL = res.FollowUp.ProductURL
	}
	return ev
}

// advance moves the run to the next stage; illegal moves are logged and ignored
func (u *Uploader) advance(run *domain.UploadRun, next domain.Stage) {
	if !run.Stage.CanAdvanceTo(next) {
		u.logger.Warn("Illegal stage transition", zap.String("from", string(run.Stage)), zap.String("to", string(next)))
		return
	}
	run.Stage = next
	run.Stages = append(run.Stages, next)
}

func (u *Uploader) transition(run *domain.UploadRun, next domain.RunStatus) error {
	if run.Status == next {
		return nil
	}
	if !run.Status.CanTransitionTo(next) {
		return &errors.ErrInvalidStateTransition{From: run.Status, To: next}
	}
	run.Status = next
	return nil
}

// optionLabels are the item names the variants are listed under
func optionLabels(d *domain.ProductDraft) []string {
	labels := make([]string, 0, len(d.Options))
	if len(d.Options) == 0 {
		return labels
	}
	for _, e := range listing.ExpectedItems(d, d.Options, listing.Policy{}) {
		labels = append(labels, e.Name)
	}
	return labels
}

func uniqueStrings(list []string) []string {
	out := make([]string, 0, len(list))
	seen := make(map[string]bool, len(list))
	for _, s := range list {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
