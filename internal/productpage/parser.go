// Package productpage turns a wholesale product page into a validated draft
// plus the price and variant diagnostics gathered along the way.
package productpage

import (
	"context"
	"strconv"

	"go.uber.org/zap"

	"github.com/jafarshop/relister/internal/domain"
	"github.com/jafarshop/relister/internal/draft"
	"github.com/jafarshop/relister/internal/extract"
	"github.com/jafarshop/relister/internal/pricing"
	"github.com/jafarshop/relister/internal/source"
	"github.com/jafarshop/relister/pkg/errors"
)

// Parsed is everything read off one product page
type Parsed struct {
	Classification source.Classification `json:"classification"`
	Draft          *domain.ProductDraft  `json:"draft"`
	Pricing        pricing.Resolution    `json:"pricing"`
	Extraction     extract.Result        `json:"extraction"`
	// ContentImages are the absolute image URLs referenced by the description
	ContentImages []string `json:"contentImages"`
	// ExternalDetail is set when the description was pulled from a linked page
	ExternalDetail string `json:"externalDetail,omitempty"`
}

// Parser loads product pages through a session and assembles drafts
type Parser struct {
	session source.Session
	chain   *extract.Chain
	logger  *zap.Logger
}

// NewParser creates a parser. A nil chain uses the default strategy order.
func NewParser(session source.Session, chain *extract.Chain, logger *zap.Logger) *Parser {
	if logger == nil {
		logger = zap.NewNop()
	}
	if chain == nil {
		chain = extract.NewDefaultChain(logger)
	}
	return &Parser{session: session, chain: chain, logger: logger}
}

// Parse classifies rawURL, loads it and builds the draft
func (p *Parser) Parse(ctx context.Context, rawURL string) (*Parsed, error) {
	class := source.Classify(rawURL)
	if !class.OK {
		return nil, &errors.ErrPreflight{
			Reason:  errors.ReasonUnsupportedSource,
			Message: class.Reason,
		}
	}

	doc, err := p.session.Load(ctx, class.URL)
	if err != nil {
		return nil, &errors.ErrSourceUnreachable{URL: class.URL, Err: err}
	}
	return p.ParseDocument(ctx, class, doc)
}

// ParseDocument builds the draft from an already loaded page
func (p *Parser) ParseDocument(ctx context.Context, class source.Classification, doc source.Document) (*Parsed, error) {
	q := doc.Query()

	// reseller pages list per-variant prices; tiers only apply elsewhere
	in := pricing.Inputs{
		DisplayedPrice: pricing.DisplayedPrice(q),
		PageText:       source.InnerText(q.Find("body")),
	}
	if class.IsReseller() {
		in.VariantPrices = extract.Prices(extract.ParseTableRows(q))
	} else {
		in.Tiers = pricing.ParseTiers(q)
	}
	priced := pricing.ResolveFrom(in)

	extraction := p.chain.Extract(ctx, doc, priced.Price)

	content := p.content(ctx, doc)
	fields := draft.Fields{
		SourceURL:    doc.URL(),
		Title:        Title(q),
		Price:        strconv.Itoa(priced.Price),
		ImageURL:     MainImage(q, doc.URL(), class.IsReseller()),
		ContentText:  content.html,
		CategoryText: CategoryText(q),
		Options:      extraction.Variants,
	}
	d, err := draft.Build(fields)
	if err != nil {
		p.logger.Warn("Draft validation failed", zap.String("url", doc.URL()), zap.Error(err))
		return nil, err
	}

	p.logger.Info("Parsed product page",
		zap.String("url", d.SourceURL),
		zap.String("title", d.Title),
		zap.Int("price", d.Price),
		zap.String("priceSource", priced.Source),
		zap.String("strategy", extraction.Strategy),
		zap.Int("options", len(d.Options)),
		zap.Int("contentImages", len(content.images)),
	)

	return &Parsed{
		Classification: class,
		Draft:          d,
		Pricing:        priced,
		Extraction:     extraction,
		ContentImages:  content.images,
		ExternalDetail: content.external,
	}, nil
}
