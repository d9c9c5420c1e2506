package report

import (
	"bufio"
	"encoding/json"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/jafarshop/relister/internal/domain"
	"github.com/jafarshop/relister/internal/service"
)

func TestReadLines(t *testing.T) {
	lines, err := ReadLines(strings.NewReader(`
# comment
https://domeggook.com/1
62634 | https://domeggook.com/2
abc|https://domeggook.com/3?x=1|y
`))
	require.NoError(t, err)
	assert.Equal(t, []Line{
		{URL: "https://domeggook.com/1"},
		{CategoryCode: 62634, URL: "https://domeggook.com/2"},
		{URL: "abc|https://domeggook.com/3?x=1|y"},
	}, lines)
}

func TestNewEntry(t *testing.T) {
	id, code := int64(777), int64(62634)
	started := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	res := &service.UploadResult{
		OK:          true,
		Status:      domain.RunStatusSubmitted,
		Reason:      "approval_pending",
		Draft:       &service.DraftSummary{Title: "텀블러"},
		FinalPrice:  12340,
		Category:    &domain.CategoryResolution{Requested: code, Used: &code},
		OptionsUsed: []string{"1. 블랙"},
		Create:      &service.CreateSummary{Status: 200, SellerProductID: &id},
		FollowUp:    &service.FollowUp{StatusName: "승인대기중"},
	}
	e := NewEntry(Line{URL: "https://domeggook.com/1"}, res, nil, started, started.Add(time.Second))
	assert.True(t, e.OK)
	assert.Equal(t, "텀블러", e.Title)
	assert.Equal(t, &id, e.SellerProductID)
	assert.Equal(t, 1, e.Options)
	assert.Equal(t, "승인대기중", e.ApprovalStatus)

	e = NewEntry(Line{URL: "x"}, nil, stderrors.New("boom"), started, started)
	assert.False(t, e.OK)
	assert.Equal(t, "boom", e.Message)
}

func TestJSONLAndXLSX(t *testing.T) {
	dir := t.TempDir()
	id := int64(777)
	entries := []Entry{
		{URL: "https://domeggook.com/1", OK: true, Title: "텀블러 <500ml>", SellerProductID: &id},
		{URL: "https://example.com", Skipped: true, Reason: "unsupported_source"},
	}

	w, err := NewJSONLWriter(filepath.Join(dir, "out", "results.jsonl"))
	require.NoError(t, err)
	for _, e := range entries {
		require.NoError(t, w.Write(e))
	}
	require.NoError(t, w.Close())

	f, err := os.Open(filepath.Join(dir, "out", "results.jsonl"))
	require.NoError(t, err)
	defer f.Close()
	scanner := bufio.NewScanner(f)
	var decoded []Entry
	for scanner.Scan() {
		var e Entry
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &e))
		decoded = append(decoded, e)
	}
	require.Len(t, decoded, 2)
	assert.Equal(t, "텀블러 <500ml>", decoded[0].Title)

	path := filepath.Join(dir, "results.xlsx")
	require.NoError(t, WriteXLSX(path, entries))
	book, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer book.Close()
	rows, err := book.GetRows("Sheet1")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "URL", rows[0][1])
	assert.Equal(t, "https://domeggook.com/1", rows[1][1])
	assert.Equal(t, "777", rows[1][9])
	assert.Equal(t, "unsupported_source", rows[2][4])
}

func TestReadLinesXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "urls.xlsx")
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"URL"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]any{"https://domeggook.com/1"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A3", &[]any{62634, "https://domeggook.com/2"}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	lines, err := ReadLinesXLSX(path)
	require.NoError(t, err)
	assert.Equal(t, []Line{
		{URL: "https://domeggook.com/1"},
		{CategoryCode: 62634, URL: "https://domeggook.com/2"},
	}, lines)
}
