package statement

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported statement format")
	ErrMissingColumns    = errors.New("statement is missing required columns")
	ErrNoValidRows       = errors.New("statement has no valid rows")
)

var dateLayouts = []string{"2006-01-02", "02-01-2006", "02/01/2006"}

// Row is one parsed statement line.
type Row struct {
	Date        time.Time
	Description string
	Amount      decimal.Decimal
	Reference   string
}

// RowError explains why a source line was skipped. Line is 1-based and
// counts the header.
type RowError struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

type ParseResult struct {
	Rows    []Row
	Skipped []RowError
}

// Parse picks a parser from the file extension.
func Parse(filename string, r io.Reader) (*ParseResult, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv", ".tsv", ".txt":
		return ParseCSV(r)
	case ".xlsx":
		return ParseXLSX(r)
	default:
		return nil, fmt.Errorf("%q: %w", filename, ErrUnsupportedFormat)
	}
}

// ParseCSV reads comma- or tab-separated text with a header row.
func ParseCSV(r io.Reader) (*ParseResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read statement: %w", err)
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = sniffDelimiter(data)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse csv: %w", err)
	}
	return parseRecords(records)
}

// ParseXLSX reads the first sheet of a workbook with a header row.
func ParseXLSX(r io.Reader) (*ParseResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoValidRows
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("unable to read sheet: %w", err)
	}
	return parseRecords(rows)
}

func sniffDelimiter(data []byte) rune {
	first := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		first = data[:i]
	}
	if bytes.Count(first, []byte("\t")) > bytes.Count(first, []byte(",")) {
		return '\t'
	}
	return ','
}

type columns struct {
	date, description, amount, debit, credit, reference int
}

var headerAliases = map[string]string{
	"date":             "date",
	"transaction_date": "date",
	"posted":           "date",
	"description":      "description",
	"details":          "description",
	"memo":             "description",
	"narrative":        "description",
	"amount":           "amount",
	"debit":            "debit",
	"withdrawal":       "debit",
	"credit":           "credit",
	"deposit":          "credit",
	"reference":        "reference",
	"reference_number": "reference",
	"ref":              "reference",
}

func mapHeader(header []string) (columns, error) {
	cols := columns{-1, -1, -1, -1, -1, -1}
	for i, name := range header {
		key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
		switch headerAliases[key] {
		case "date":
			cols.date = i
		case "description":
			cols.description = i
		case "amount":
			cols.amount = i
		case "debit":
			cols.debit = i
		case "credit":
			cols.credit = i
		case "reference":
			cols.reference = i
		}
	}

	var missing []string
	if cols.date < 0 {
		missing = append(missing, "date")
	}
	if cols.description < 0 {
		missing = append(missing, "description")
	}
	if cols.amount < 0 && cols.debit < 0 && cols.credit < 0 {
		missing = append(missing, "amount")
	}
	if len(missing) > 0 {
		return cols, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}
	return cols, nil
}

func parseRecords(records [][]string) (*ParseResult, error) {
	if len(records) == 0 {
		return nil, ErrNoValidRows
	}
	cols, err := mapHeader(records[0])
	if err != nil {
		return nil, err
	}

	result := &ParseResult{}
	for i, record := range records[1:] {
		line := i + 2
		if blank(record) {
			continue
		}
		row, err := cols.parse(record)
		if err != nil {
			result.Skipped = append(result.Skipped, RowError{Line: line, Reason: err.Error()})
			continue
		}
		result.Rows = append(result.Rows, row)
	}

	if len(result.Rows) == 0 {
		return result, ErrNoValidRows
	}
	return result, nil
}

func (c columns) parse(record []string) (Row, error) {
	var row Row

	date, err := parseDate(field(record, c.date))
	if err != nil {
		return row, err
	}
	row.Date = date

	row.Description = strings.TrimSpace(field(record, c.description))
	if row.Description == "" {
		return row, errors.New("description is empty")
	}

	if c.amount >= 0 {
		row.Amount, err = parseAmount(field(record, c.amount))
		if err != nil {
			return row, err
		}
	} else {
		if strings.TrimSpace(field(record, c.credit)) == "" && strings.TrimSpace(field(record, c.debit)) == "" {
			return row, errors.New("amount is empty")
		}
		credit, err := parseOptionalAmount(field(record, c.credit))
		if err != nil {
			return row, err
		}
		debit, err := parseOptionalAmount(field(record, c.debit))
		if err != nil {
			return row, err
		}
		row.Amount = credit.Sub(debit.Abs())
	}

	row.Reference = strings.TrimSpace(field(record, c.reference))
	return row, nil
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

// parseAmount accepts "1,234.56", "$-12.00" and accounting "(12.00)".
func parseAmount(s string) (decimal.Decimal, error) {
	raw := s
	s = strings.TrimSpace(s)
	negative := strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")")
	if negative {
		s = s[1 : len(s)-1]
	}
	s = strings.NewReplacer(",", "", "$", "", " ", "").Replace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("amount is empty")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q", raw)
	}
	if negative {
		d = d.Neg()
	}
	return d, nil
}

func parseOptionalAmount(s string) (decimal.Decimal, error) {
	if strings.TrimSpace(s) == "" {
		return decimal.Zero, nil
	}
	return parseAmount(s)
}

func field(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return record[i]
}

func blank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
