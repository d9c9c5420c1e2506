package config

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettings_DecodeIgnoresUnknownKeysAndAcceptsStrings(t *testing.T) {
	var s Settings
	err := json.Unmarshal([]byte(`{
		"marginRate": "0.2",
		"marginAdd": 500,
		"priceMin": "",
		"roundUnit": "abc",
		"autoRequest": "1",
		"autoCategoryMatch": true,
		"autoCategoryRecommend": "0",
		"allowedIps": " 1.2.3.4, ,5.6.7.8 ",
		"somethingElse": {"nested": 1}
	}`), &s)
	require.NoError(t, err)

	assert.Equal(t, Num(0.2), s.MarginRate)
	assert.Equal(t, Num(500), s.MarginAdd)
	assert.False(t, s.PriceMin.Set)
	assert.False(t, s.RoundUnit.Set, "unparseable numbers are unset")
	assert.True(t, s.AutoRequest.Enabled())
	assert.True(t, s.AutoCategoryMatch.Enabled())
	assert.True(t, s.AutoCategoryRecommend.Set)
	assert.False(t, s.AutoCategoryRecommend.Enabled())
	assert.Equal(t, []string{"1.2.3.4", "5.6.7.8"}, s.AllowList())
}

func TestSettings_MergePrefersSetKeys(t *testing.T) {
	base := Settings{MarginRate: Num(0.1), PriceMin: Num(2000), AutoRequest: On(), CoupangVendorID: "A1"}
	over := Settings{MarginRate: Num(0), CoupangVendorID: "  ", LocalImageBaseURL: "http://cdn"}

	got := base.Merge(over)
	assert.Equal(t, Num(0), got.MarginRate, "explicit zero overrides")
	assert.Equal(t, Num(2000), got.PriceMin)
	assert.True(t, got.AutoRequest.Enabled())
	assert.Equal(t, "A1", got.CoupangVendorID, "blank strings do not override")
	assert.Equal(t, "http://cdn", got.LocalImageBaseURL)
}

func TestSettings_Account(t *testing.T) {
	account := CoupangConfig{AccessKey: "ak", SecretKey: "sk", VendorID: "A1", VendorUserID: "user", BaseURL: "https://x"}

	s := Settings{CoupangVendorID: "A2"}
	assert.Empty(t, s.WithAccount(account).MissingCredentials())
	merged := s.Account(account)
	assert.Equal(t, "A2", merged.VendorID)
	assert.Equal(t, "ak", merged.AccessKey)
	assert.Equal(t, "https://x", merged.BaseURL)

	assert.Equal(t, []string{"coupangAccessKey", "coupangSecretKey", "coupangVendorId", "coupangVendorUserId"},
		Settings{}.MissingCredentials())
}

func TestSettings_ContentImageLimit(t *testing.T) {
	assert.Equal(t, DefaultMaxContentImages, Settings{}.ContentImageLimit())
	assert.Equal(t, 0, Settings{MaxContentImages: Num(-3)}.ContentImageLimit())
	assert.Equal(t, 5, Settings{MaxContentImages: Num(5)}.ContentImageLimit())
}

func TestLoad_ReadsEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("COUPANG_ACCESS_KEY", " ak ")
	t.Setenv("APPROVAL_POLL_DELAY", "250")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("MARGIN_RATE", "0.15")
	t.Setenv("AUTO_REQUEST", "1")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "ak", cfg.Coupang.AccessKey)
	assert.Equal(t, 250*time.Millisecond, cfg.Approval.Delay)
	assert.Equal(t, 3, cfg.Approval.Attempts)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "http://localhost:9090/images", cfg.Media.LocalImageBase)
	assert.Equal(t, Num(0.15), cfg.Defaults.MarginRate)
	assert.True(t, cfg.Defaults.AutoRequest.Enabled())
	assert.False(t, cfg.Database.Enabled())
}
