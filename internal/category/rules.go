// Package category maps a source product onto a destination display category.
package category

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
)

// FallbackCode is the known-good category used when nothing better is found
const FallbackCode int64 = 77723

// Rule maps a keyword found in the title or breadcrumb to a category code
type Rule struct {
	Keyword string `json:"keyword"`
	Code    int64  `json:"code"`
	Path    string `json:"path,omitempty"`
}

// staticRules always win over generated and environment rules
var staticRules = []Rule{
	{Keyword: "보호필름", Code: 62634},
	{Keyword: "액정보호", Code: 62634},
	{Keyword: "필름", Code: 62634},
	{Keyword: "휴대폰보호필름", Code: 62634},
}

// StaticRules returns a copy of the built-in overrides
func StaticRules() []Rule {
	out := make([]Rule, len(staticRules))
	copy(out, staticRules)
	return out
}

// LoadRules assembles rules in precedence order: static overrides, then the
// generated rules file, then rules from envJSON. A missing file or empty
// JSON contributes nothing; malformed input is logged and skipped.
func LoadRules(generatedPath, envJSON string, logger *zap.Logger) []Rule {
	if logger == nil {
		logger = zap.NewNop()
	}
	rules := StaticRules()

	if generatedPath != "" {
		generated, err := ReadRulesFile(generatedPath)
		switch {
		case err != nil && os.IsNotExist(err):
			logger.Debug("Generated category rules not found", zap.String("path", generatedPath))
		case err != nil:
			logger.Warn("Failed to read generated category rules", zap.String("path", generatedPath), zap.Error(err))
		default:
			rules = append(rules, generated...)
		}
	}

	if strings.TrimSpace(envJSON) != "" {
		var fromEnv []Rule
		if err := json.Unmarshal([]byte(envJSON), &fromEnv); err != nil {
			logger.Warn("Ignoring malformed category map JSON", zap.Error(err))
		} else {
			rules = append(rules, fromEnv...)
		}
	}
	return sanitize(rules)
}

// ReadRulesFile reads a JSON array of rules
func ReadRulesFile(path string) ([]Rule, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var rules []Rule
	if err := json.Unmarshal(raw, &rules); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return rules, nil
}

// WriteRulesFile writes rules as an indented JSON array
func WriteRulesFile(path string, rules []Rule) error {
	raw, err := json.MarshalIndent(rules, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(raw, '\n'), 0o644)
}

func sanitize(rules []Rule) []Rule {
	out := make([]Rule, 0, len(rules))
	for _, r := range rules {
		r.Keyword = strings.ToLower(strings.TrimSpace(r.Keyword))
		if r.Keyword == "" || r.Code <= 0 {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Match returns the code of the first rule whose keyword appears in the
// lowercased "title categoryText", or fallback.
func Match(rules []Rule, title, categoryText string, fallback int64) int64 {
	hay := strings.ToLower(title + " " + categoryText)
	for _, r := range rules {
		if strings.Contains(hay, r.Keyword) {
			return r.Code
		}
	}
	return fallback
}
