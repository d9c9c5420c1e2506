// Package report reads batch upload inputs and writes their results as JSON
// lines and as a spreadsheet.
package report

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/jafarshop/relister/internal/service"
)

// Line is one batch input: a source URL and an optional pinned category
type Line struct {
	CategoryCode int64
	URL          string
}

// ParseLine reads "url" or "code|url"
func ParseLine(raw string) Line {
	raw = strings.TrimSpace(raw)
	code, rest, found := strings.Cut(raw, "|")
	if !found {
		return Line{URL: raw}
	}
	n, err := strconv.ParseInt(strings.TrimSpace(code), 10, 64)
	if err != nil {
		return Line{URL: raw}
	}
	return Line{CategoryCode: n, URL: strings.TrimSpace(rest)}
}

// ReadLines reads a text list, skipping blanks and # comments
func ReadLines(r io.Reader) ([]Line, error) {
	var lines []Line
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		lines = append(lines, ParseLine(text))
	}
	return lines, scanner.Err()
}

// ReadLinesXLSX reads the first sheet of a workbook. A row is either a URL in
// column A, or a category code in A and a URL in B. Rows without a URL are skipped.
func ReadLinesXLSX(path string) ([]Line, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}

	var lines []Line
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		first := strings.TrimSpace(row[0])
		if len(row) > 1 && strings.TrimSpace(row[1]) != "" {
			if code, err := strconv.ParseInt(first, 10, 64); err == nil {
				lines = append(lines, Line{CategoryCode: code, URL: strings.TrimSpace(row[1])})
				continue
			}
		}
		if strings.HasPrefix(first, "http") {
			lines = append(lines, Line{URL: first})
		}
	}
	return lines, nil
}

// Entry is one batch result row
type Entry struct {
	StartedAt       time.Time `json:"startedAt"`
	FinishedAt      time.Time `json:"finishedAt"`
	URL             string    `json:"url"`
	OK              bool      `json:"ok"`
	Skipped         bool      `json:"skipped"`
	Status          string    `json:"status,omitempty"`
	Reason          string    `json:"reason,omitempty"`
	Title           string    `json:"title,omitempty"`
	FinalPrice      int       `json:"finalPrice,omitempty"`
	CategoryCode    *int64    `json:"categoryCode,omitempty"`
	Options         int       `json:"options"`
	SellerProductID *int64    `json:"sellerProductId"`
	ApprovalStatus  string    `json:"approvalStatus,omitempty"`
	Message         string    `json:"message,omitempty"`
}

// NewEntry summarizes an upload result
func NewEntry(line Line, res *service.UploadResult, err error, started, finished time.Time) Entry {
	e := Entry{StartedAt: started, FinishedAt: finished, URL: line.URL}
	if err != nil {
		e.Message = err.Error()
	}
	if res == nil {
		return e
	}
	e.OK = res.OK
	e.Skipped = res.Skipped
	e.Status = string(res.Status)
	e.Reason = res.Reason
	e.FinalPrice = res.FinalPrice
	e.Options = len(res.OptionsUsed)
	if res.Draft != nil {
		e.Title = res.Draft.Title
	}
	if res.Category != nil {
		e.CategoryCode = res.Category.Used
	}
	if res.Create != nil {
		e.SellerProductID = res.Create.SellerProductID
	}
	if res.FollowUp != nil {
		e.ApprovalStatus = res.FollowUp.StatusName
	}
	return e
}

// JSONLWriter appends entries to a file, one JSON object per line
type JSONLWriter struct {
	mu  sync.Mutex
	f   *os.File
	enc *json.Encoder
}

// NewJSONLWriter opens path for appending, creating parent directories
func NewJSONLWriter(path string) (*JSONLWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create report dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open report: %w", err)
	}
	enc := json.NewEncoder(f)
	enc.SetEscapeHTML(false)
	return &JSONLWriter{f: f, enc: enc}, nil
}

func (w *JSONLWriter) Write(e Entry) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.enc.Encode(e)
}

func (w *JSONLWriter) Close() error {
	return w.f.Close()
}

var columns = []struct {
	header string
	width  float64
}{
	{"Started", 20}, {"URL", 45}, {"OK", 6}, {"Status", 12}, {"Reason", 28},
	{"Title", 40}, {"Final price", 12}, {"Category", 12}, {"Options", 9},
	{"Seller product ID", 18}, {"Approval", 14}, {"Message", 50},
}

// WriteXLSX writes entries to a new workbook at path
func WriteXLSX(path string, entries []Entry) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Sheet1"
	for i, col := range columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, col.header)
		name, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheet, name, name, col.width)
	}

	for r, e := range entries {
		row := []any{
			e.StartedAt.Format("2006-01-02 15:04:05"), e.URL, e.OK, e.Status, e.Reason,
			e.Title, e.FinalPrice, optional(e.CategoryCode), e.Options,
			optional(e.SellerProductID), e.ApprovalStatus, e.Message,
		}
		cell, _ := excelize.CoordinatesToCellName(1, r+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", r+2, err)
		}
	}

	style, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})
	last, _ := excelize.CoordinatesToCellName(len(columns), 1)
	f.SetCellStyle(sheet, "A1", last, style)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create report dir: %w", err)
	}
	return f.SaveAs(path)
}

// FileName is a timestamped report file name
func FileName(prefix, ext string, at time.Time) string {
	return fmt.Sprintf("%s_%s%s", prefix, at.Format("20060102_150405"), ext)
}

func optional(v *int64) any {
	if v == nil {
		return ""
	}
	return *v
}
