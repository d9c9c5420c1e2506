package config

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Settings is the flat per-request configuration object. Every key is
// optional: unset keys fall back to the process defaults, then to the
// documented defaults. Unknown keys are ignored when decoding.
type Settings struct {
	CoupangAccessKey           string `json:"coupangAccessKey,omitempty"`
	CoupangSecretKey           string `json:"coupangSecretKey,omitempty"`
	CoupangVendorID            string `json:"coupangVendorId,omitempty"`
	CoupangVendorUserID        string `json:"coupangVendorUserId,omitempty"`
	CoupangDeliveryCompanyCode string `json:"coupangDeliveryCompanyCode,omitempty"`

	MarginRate       Number `json:"marginRate"`
	MarginAdd        Number `json:"marginAdd"`
	PriceMin         Number `json:"priceMin"`
	PriceMax         Number `json:"priceMax"`
	RoundUnit        Number `json:"roundUnit"`
	MaxContentImages Number `json:"maxContentImages"`

	AllowedIPs            string `json:"allowedIps,omitempty"`
	AutoCategoryMatch     Flag   `json:"autoCategoryMatch"`
	AutoCategoryRecommend Flag   `json:"autoCategoryRecommend"`
	AutoRequest           Flag   `json:"autoRequest"`
	LocalImageBaseURL     string `json:"localImageBaseUrl,omitempty"`
}

// Documented defaults
const (
	DefaultPriceMin         = 1000
	DefaultRoundUnit        = 10
	DefaultMaxContentImages = 30
)

// Merge returns s with every key set in over replacing the value in s
func (s Settings) Merge(over Settings) Settings {
	pick := func(a, b string) string {
		if strings.TrimSpace(b) != "" {
			return strings.TrimSpace(b)
		}
		return a
	}
	pickNum := func(a, b Number) Number {
		if b.Set {
			return b
		}
		return a
	}
	pickFlag := func(a, b Flag) Flag {
		if b.Set {
			return b
		}
		return a
	}
	return Settings{
		CoupangAccessKey:           pick(s.CoupangAccessKey, over.CoupangAccessKey),
		CoupangSecretKey:           pick(s.CoupangSecretKey, over.CoupangSecretKey),
		CoupangVendorID:            pick(s.CoupangVendorID, over.CoupangVendorID),
		CoupangVendorUserID:        pick(s.CoupangVendorUserID, over.CoupangVendorUserID),
		CoupangDeliveryCompanyCode: pick(s.CoupangDeliveryCompanyCode, over.CoupangDeliveryCompanyCode),
		MarginRate:                 pickNum(s.MarginRate, over.MarginRate),
		MarginAdd:                  pickNum(s.MarginAdd, over.MarginAdd),
		PriceMin:                   pickNum(s.PriceMin, over.PriceMin),
		PriceMax:                   pickNum(s.PriceMax, over.PriceMax),
		RoundUnit:                  pickNum(s.RoundUnit, over.RoundUnit),
		MaxContentImages:           pickNum(s.MaxContentImages, over.MaxContentImages),
		AllowedIPs:                 pick(s.AllowedIPs, over.AllowedIPs),
		AutoCategoryMatch:          pickFlag(s.AutoCategoryMatch, over.AutoCategoryMatch),
		AutoCategoryRecommend:      pickFlag(s.AutoCategoryRecommend, over.AutoCategoryRecommend),
		AutoRequest:                pickFlag(s.AutoRequest, over.AutoRequest),
		LocalImageBaseURL:          pick(s.LocalImageBaseURL, over.LocalImageBaseURL),
	}
}

// WithAccount fills empty credential keys from the process seller account
func (s Settings) WithAccount(c CoupangConfig) Settings {
	return Settings{
		CoupangAccessKey:           c.AccessKey,
		CoupangSecretKey:           c.SecretKey,
		CoupangVendorID:            c.VendorID,
		CoupangVendorUserID:        c.VendorUserID,
		CoupangDeliveryCompanyCode: c.DeliveryCompanyCode,
	}.Merge(s)
}

// Account returns c with the credential keys of s applied
func (s Settings) Account(c CoupangConfig) CoupangConfig {
	merged := s.WithAccount(c)
	c.AccessKey = merged.CoupangAccessKey
	c.SecretKey = merged.CoupangSecretKey
	c.VendorID = merged.CoupangVendorID
	c.VendorUserID = merged.CoupangVendorUserID
	c.DeliveryCompanyCode = merged.CoupangDeliveryCompanyCode
	return c
}

// MissingCredentials lists the credential keys that are still empty
func (s Settings) MissingCredentials() []string {
	var missing []string
	for _, kv := range []struct{ key, value string }{
		{"coupangAccessKey", s.CoupangAccessKey},
		{"coupangSecretKey", s.CoupangSecretKey},
		{"coupangVendorId", s.CoupangVendorID},
		{"coupangVendorUserId", s.CoupangVendorUserID},
	} {
		if kv.value == "" {
			missing = append(missing, kv.key)
		}
	}
	return missing
}

// AllowList returns the allow-listed public addresses
func (s Settings) AllowList() []string {
	return SplitList(s.AllowedIPs)
}

// ContentImageLimit is maxContentImages or its default, never negative
func (s Settings) ContentImageLimit() int {
	n := int(s.MaxContentImages.Or(DefaultMaxContentImages))
	if n < 0 {
		return 0
	}
	return n
}

// Number is a settings value that may arrive as a JSON number or a numeric string
type Number struct {
	Value float64
	Set   bool
}

// Num is a set Number
func Num(v float64) Number {
	return Number{Value: v, Set: true}
}

// Or returns the value or def when unset
func (n Number) Or(def float64) float64 {
	if n.Set {
		return n.Value
	}
	return def
}

func (n *Number) UnmarshalJSON(data []byte) error {
	*n = Number{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	raw := string(data)
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		raw = strings.TrimSpace(s)
	}
	// unparseable values are treated as unset
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		*n = Number{Value: f, Set: true}
	}
	return nil
}

func (n Number) MarshalJSON() ([]byte, error) {
	if !n.Set {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}

// Flag is a settings switch accepting "1", 1, true or "true"
type Flag struct {
	Value bool
	Set   bool
}

// On is a set, enabled Flag
func On() Flag {
	return Flag{Value: true, Set: true}
}

// Enabled reports whether the flag is set and on
func (f Flag) Enabled() bool {
	return f.Set && f.Value
}

func (f *Flag) UnmarshalJSON(data []byte) error {
	*f = Flag{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	raw := string(data)
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		raw = s
	}
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	*f = Flag{Value: parseFlag(raw), Set: true}
	return nil
}

func (f Flag) MarshalJSON() ([]byte, error) {
	if !f.Set {
		return []byte("null"), nil
	}
	return json.Marshal(f.Value)
}

func parseFlag(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
