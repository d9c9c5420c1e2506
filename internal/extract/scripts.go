package extract

import (
	"context"
	"errors"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jafarshop/relister/internal/domain"
	"github.com/jafarshop/relister/internal/jsonscan"
	"github.com/jafarshop/relister/internal/source"
)

const controllerMarker = "ItemOptionController"

// runtimeStateScript walks the page's live option controller and returns the
// richest {set|orgSet, data} object it can reach, or null.
const runtimeStateScript = `(() => {
  const hits = [];
  const seen = new Set();
  const pick = (v, depth) => {
    if (!v || typeof v !== "object" || depth > 5 || seen.has(v)) return;
    seen.add(v);
    const d = v.data && v.data.data && (v.data.set || v.data.orgSet) ? v.data : null;
    if (d) hits.push(d);
    if (Array.isArray(v)) { v.forEach((x) => pick(x, depth + 1)); return; }
    for (const k of Object.keys(v)) {
      if (k === "parent" || k === "ownerDocument" || k === "document") continue;
      try { pick(v[k], depth + 1); } catch (e) {}
    }
  };
  try { if (window.lItem && window.lItem.optController) pick(window.lItem.optController, 0); } catch (e) {}
  try { if (window.optController) pick(window.optController, 0); } catch (e) {}
  hits.sort((a, b) => Object.keys(b.data).length - Object.keys(a.data).length);
  const best = hits[0];
  return best ? { set: best.set || null, orgSet: best.orgSet || null, data: best.data } : null;
})()`

// RuntimeStateStrategy reads the option controller object the page builds at
// runtime. It needs a session that can evaluate scripts.
type RuntimeStateStrategy struct{}

func (s *RuntimeStateStrategy) Name() string { return "runtimeOptController" }

func (s *RuntimeStateStrategy) TryExtract(ctx context.Context, doc source.Document, basePrice int) ([]domain.Variant, error) {
	raw, err := doc.Evaluate(ctx, runtimeStateScript)
	if errors.Is(err, source.ErrEvaluateUnsupported) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	payload, err := decodeOptionPayload(raw)
	if err != nil {
		return nil, err
	}
	return payload.variants(), nil
}

// InlineScriptStrategy parses the option data literal passed to the option
// controller in the page's inline scripts.
type InlineScriptStrategy struct{}

func (s *InlineScriptStrategy) Name() string { return controllerMarker }

func (s *InlineScriptStrategy) TryExtract(ctx context.Context, doc source.Document, basePrice int) ([]domain.Variant, error) {
	text := inlineScripts(doc.Query())
	if !strings.Contains(text, controllerMarker) {
		return nil, nil
	}
	var lastErr error
	for _, literal := range jsonscan.ObjectsAfterKey(text, controllerMarker, "data") {
		payload, err := decodeOptionPayload([]byte(literal))
		if err != nil {
			lastErr = err
			continue
		}
		if variants := payload.variants(); len(variants) > 0 {
			return variants, nil
		}
	}
	return nil, lastErr
}

func inlineScripts(doc *goquery.Document) string {
	var parts []string
	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		if t := s.Text(); t != "" {
			parts = append(parts, t)
		}
	})
	return strings.Join(parts, "\n")
}
