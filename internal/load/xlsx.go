package load

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/wanderplan/places-cli/internal/model"
)

// XLSXOptions configures the XLSX parser.
type XLSXOptions struct {
	SheetIndex int    // default 0
	SheetName  string // if set, overrides SheetIndex
}

// ReadXLSX reads raw records from an XLSX export. The first row is treated
// as a header and maps columns to record fields; unknown columns are
// ignored.
func ReadXLSX(path string, opts XLSXOptions) ([]model.RawRecord, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "load: open xlsx file")
	}

	sheet, err := getSheet(f, opts)
	if err != nil {
		return nil, err
	}
	if len(sheet.Rows) == 0 {
		return nil, nil
	}

	header := rowToStrings(sheet.Rows[0])
	cols := make(map[string]int, len(header))
	for j, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = j
	}

	var records []model.RawRecord
	for _, row := range sheet.Rows[1:] {
		cells := rowToStrings(row)
		rec := rowToRecord(cells, cols)
		if rec.Name == "" {
			continue
		}
		records = append(records, rec)
	}

	return records, nil
}

func rowToRecord(cells []string, cols map[string]int) model.RawRecord {
	get := func(name string) string {
		j, ok := cols[name]
		if !ok || j >= len(cells) {
			return ""
		}
		return strings.TrimSpace(cells[j])
	}

	rec := model.RawRecord{
		ID:          get("id"),
		Name:        get("name"),
		City:        get("city"),
		Domain:      get("domain"),
		URL:         get("url"),
		Address:     get("address"),
		Description: get("description"),
		ImageURL:    get("image_url"),
		LastUpdated: get("last_updated"),
		Phone:       get("phone"),
		Email:       get("email"),
		Website:     get("website"),
		Hours:       get("hours"),
		Venue:       get("venue"),
		Source:      get("source"),
	}

	if v, err := strconv.ParseFloat(get("lat"), 64); err == nil {
		rec.Lat = &v
	}
	if v, err := strconv.ParseFloat(get("lng"), 64); err == nil {
		rec.Lng = &v
	}
	if v, err := strconv.ParseFloat(get("rating"), 64); err == nil {
		rec.Rating = &v
	}
	if v, err := strconv.Atoi(get("price_level")); err == nil {
		rec.PriceLevel = &v
	}

	rec.Tags = splitList(get("tags"))
	rec.Flags = splitList(get("flags"))
	return rec
}

// splitList parses comma or semicolon separated cell values.
func splitList(s string) []string {
	if s == "" {
		return nil
	}
	sep := ","
	if strings.Contains(s, ";") {
		sep = ";"
	}
	var out []string
	for _, part := range strings.Split(s, sep) {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getSheet(f *xlsx.File, opts XLSXOptions) (*xlsx.Sheet, error) {
	if opts.SheetName != "" {
		sheet, ok := f.Sheet[opts.SheetName]
		if !ok {
			return nil, eris.Errorf("load: sheet %q not found", opts.SheetName)
		}
		return sheet, nil
	}

	if opts.SheetIndex >= len(f.Sheets) {
		return nil, eris.Errorf("load: sheet index %d out of range (file has %d sheets)", opts.SheetIndex, len(f.Sheets))
	}

	return f.Sheets[opts.SheetIndex], nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}
