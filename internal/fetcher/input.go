package fetcher

import (
	"bufio"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// ReadPartList reads raw part numbers from a list file. The format follows
// the extension: .xlsx reads the first column of the first sheet, .csv the
// first column of every record, anything else one value per line. Blank
// values, lines starting with '#' and a leading column title are skipped.
// Values are returned as written; normalization is the caller's job.
func ReadPartList(path string) ([]string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		rows, err := ReadXLSX(path, XLSXOptions{})
		if err != nil {
			return nil, err
		}
		var out []string
		for i, row := range rows {
			if len(row) == 0 || (i == 0 && isHeader(row[0])) {
				continue
			}
			out = appendPart(out, row[0])
		}
		return out, nil
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrapf(err, "fetcher: open %s", path)
		}
		defer f.Close() //nolint:errcheck
		return readCSVColumn(f)
	default:
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrapf(err, "fetcher: open %s", path)
		}
		defer f.Close() //nolint:errcheck
		return readLines(f)
	}
}

func readLines(r io.Reader) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		out = appendPart(out, sc.Text())
	}
	return out, eris.Wrap(sc.Err(), "fetcher: read part list")
}

func readCSVColumn(r io.Reader) ([]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.Comment = '#'

	var out []string
	for first := true; ; first = false {
		record, err := reader.Read()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, eris.Wrap(err, "fetcher: read csv row")
		}
		if len(record) == 0 || (first && isHeader(record[0])) {
			continue
		}
		out = appendPart(out, record[0])
	}
}

// isHeader reports whether a first-row cell is a column title.
func isHeader(v string) bool {
	switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(v, "\ufeff"))) {
	case "partnumber", "part number", "part_number", "pn", "sku":
		return true
	}
	return false
}

func appendPart(out []string, v string) []string {
	v = strings.TrimSpace(strings.TrimPrefix(v, "\ufeff"))
	if v == "" || strings.HasPrefix(v, "#") {
		return out
	}
	return append(out, v)
}
