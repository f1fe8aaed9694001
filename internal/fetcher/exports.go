// Package fetcher loads pipeline inputs: Google Patents search exports
// (CSV and XLSX) and JSON record corpora from prior stages, plus a rate
// limited HTTP client for scraping.
package fetcher

import (
	"bytes"
	"encoding/csv"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/edtech-lab/patent-cli/internal/model"
)

// Search exports carry a preamble line ("search URL: ...") above the real
// header row, so the header lives on line 2.
const exportPreambleLines = 1

// FindExports walks dir recursively and returns every search export
// matching the Google Patents naming convention (gp-search-20*.csv or
// .xlsx), sorted by path.
func FindExports(dir string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		name := d.Name()
		matched, _ := filepath.Match("gp-search-20*.csv", name)
		if !matched {
			matched, _ = filepath.Match("gp-search-20*.xlsx", name)
		}
		if matched {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: walk %s", dir)
	}
	return paths, nil
}

// LoadExport reads one search export into rows. Files without a
// "result link" column are rejected so a stray CSV cannot poison the run.
func LoadExport(path string) ([]model.SearchRow, error) {
	var header []string
	var rows [][]string
	var err error

	if strings.HasSuffix(path, ".xlsx") {
		header, rows, err = readXLSX(path)
	} else {
		header, rows, err = readCSV(path)
	}
	if err != nil {
		return nil, err
	}

	idCol, linkCol, titleCol := -1, -1, -1
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "id":
			idCol = i
		case "result link":
			linkCol = i
		case "title":
			titleCol = i
		}
	}
	if linkCol < 0 {
		return nil, eris.Errorf("fetcher: no 'result link' column in %s", path)
	}

	out := make([]model.SearchRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, model.SearchRow{
			ID:         cell(row, idCol),
			ResultLink: cell(row, linkCol),
			Title:      cell(row, titleCol),
		})
	}
	return out, nil
}

// LoadAllExports loads every export under dir into one row slice. A file
// that fails to load is logged and skipped; the stage only aborts when no
// export loads at all.
func LoadAllExports(dir string) ([]model.SearchRow, error) {
	paths, err := FindExports(dir)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, eris.Errorf("fetcher: no search exports found under %s", dir)
	}

	var all []model.SearchRow
	loaded := 0
	for _, path := range paths {
		rows, err := LoadExport(path)
		if err != nil {
			zap.L().Warn("skipping unreadable export",
				zap.String("path", path),
				zap.Error(err),
			)
			continue
		}
		zap.L().Info("loaded export",
			zap.String("path", path),
			zap.Int("rows", len(rows)),
		)
		all = append(all, rows...)
		loaded++
	}
	if loaded == 0 {
		return nil, eris.Errorf("fetcher: every export under %s failed to load", dir)
	}
	return all, nil
}

func readCSV(path string) (header []string, rows [][]string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "fetcher: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	reader := csv.NewReader(stripBOM(f))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	line := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, eris.Wrapf(err, "fetcher: read csv %s", path)
		}
		switch {
		case line < exportPreambleLines:
		case line == exportPreambleLines:
			header = record
		default:
			rows = append(rows, record)
		}
		line++
	}
	if header == nil {
		return nil, nil, eris.Errorf("fetcher: %s has no header row", path)
	}
	return header, rows, nil
}

func readXLSX(path string) (header []string, rows [][]string, err error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "fetcher: open xlsx %s", path)
	}
	if len(f.Sheets) == 0 {
		return nil, nil, eris.Errorf("fetcher: %s has no sheets", path)
	}

	for i, row := range f.Sheets[0].Rows {
		cells := make([]string, len(row.Cells))
		for j, c := range row.Cells {
			cells[j] = c.String()
		}
		switch {
		case i < exportPreambleLines:
		case i == exportPreambleLines:
			header = cells
		default:
			rows = append(rows, cells)
		}
	}
	if header == nil {
		return nil, nil, eris.Errorf("fetcher: %s has no header row", path)
	}
	return header, rows, nil
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// stripBOM removes a UTF-8 byte order mark, which Google's exports carry.
func stripBOM(r io.Reader) io.Reader {
	br := make([]byte, 3)
	n, _ := io.ReadFull(r, br)
	if n == 3 && bytes.Equal(br, []byte{0xEF, 0xBB, 0xBF}) {
		return r
	}
	return io.MultiReader(bytes.NewReader(br[:n]), r)
}
