// Package export writes resolved rows as Excel-friendly CSV files.
package export

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

const (
	bom = "\ufeff"
	eol = "\r\n"
)

// Table is a header plus records of the same width.
type Table struct {
	Header  []string
	Records [][]string
}

// Write encodes t to w with the given delimiter. The output starts with a
// UTF-8 BOM and uses CRLF line endings. A field is quoted when it contains a
// quote, CR, LF, the delimiter or a semicolon.
func Write(w io.Writer, t Table, delim rune) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(bom); err != nil {
		return eris.Wrap(err, "export: write bom")
	}
	writeLine(bw, t.Header, delim)
	for _, rec := range t.Records {
		writeLine(bw, rec, delim)
	}
	return eris.Wrap(bw.Flush(), "export: flush")
}

func writeLine(bw *bufio.Writer, fields []string, delim rune) {
	for i, f := range fields {
		if i > 0 {
			bw.WriteRune(delim) //nolint:errcheck
		}
		bw.WriteString(quote(f, delim)) //nolint:errcheck
	}
	bw.WriteString(eol) //nolint:errcheck
}

func quote(field string, delim rune) string {
	if field == "" {
		return ""
	}
	if !strings.ContainsAny(field, "\"\r\n;") && !strings.ContainsRune(field, delim) {
		return field
	}
	return `"` + strings.ReplaceAll(field, `"`, `""`) + `"`
}

// SemicolonPath derives the semicolon sibling of path: out/rows.csv becomes
// out/rows_semicolon.csv.
func SemicolonPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "_semicolon" + ext
}

// WriteFiles writes t comma-delimited to commaPath and semicolon-delimited
// to semicolonPath, creating parent directories.
func WriteFiles(commaPath, semicolonPath string, t Table) error {
	if err := writeFile(commaPath, t, ','); err != nil {
		return err
	}
	return writeFile(semicolonPath, t, ';')
}

func writeFile(path string, t Table, delim rune) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return eris.Wrapf(err, "export: create dir for %s", path)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "export: create %s", path)
	}
	if err := Write(f, t, delim); err != nil {
		f.Close() //nolint:errcheck
		return eris.Wrapf(err, "export: write %s", path)
	}
	return eris.Wrapf(f.Close(), "export: close %s", path)
}
