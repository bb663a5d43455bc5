package export

import (
	"strconv"

	"github.com/ftsl575/jarvis.hpe-v1.0.0/internal/model"
)

// RowHeader is the fixed column set of the resolve output.
var RowHeader = []string{
	"#",
	"PartNumber",
	"PS_Title",
	"PSPhoto_Title",
	"BUY_Title",
	"PS_SKU",
	"PS_Category",
	"PS_Availability",
	"PS_URL",
	"PS_Image",
	"PS_Error",
	"PSPhoto_SKU",
	"PSPhoto_URL",
	"PSPhoto_Image",
	"PSPhoto_Error",
	"BUY_SKU",
	"BUY_URL",
	"BUY_Image",
	"BUY_Error",
	"Status",
}

// RowsTable lays rows out under RowHeader, numbering them from 1.
func RowsTable(rows []*model.Row) Table {
	t := Table{Header: RowHeader, Records: make([][]string, 0, len(rows))}
	for i, r := range rows {
		if r == nil {
			continue
		}
		t.Records = append(t.Records, []string{
			strconv.Itoa(i + 1),
			r.PartNumber,
			r.Search.Title,
			r.Photo.Title,
			r.Buy.Title,
			r.Search.SKU,
			r.Category,
			r.Availability,
			r.Search.URL,
			r.Search.Image,
			r.Search.Error,
			r.Photo.SKU,
			r.Photo.URL,
			r.Photo.Image,
			r.Photo.Error,
			r.Buy.SKU,
			r.Buy.URL,
			r.Buy.Image,
			r.Buy.Error,
			string(r.Status),
		})
	}
	return t
}

// WriteRows writes <prefix>.csv and <prefix>_semicolon.csv and returns both
// paths.
func WriteRows(prefix string, rows []*model.Row) (string, string, error) {
	comma := prefix + ".csv"
	semi := SemicolonPath(comma)
	return comma, semi, WriteFiles(comma, semi, RowsTable(rows))
}

// AggregateTable lays aggregate rows out as partNumber followed by one
// column per source.
func AggregateTable(sources []string, rows []model.AggregateRow) Table {
	header := append([]string{"partNumber"}, sources...)
	t := Table{Header: header, Records: make([][]string, 0, len(rows))}
	for _, r := range rows {
		rec := make([]string, 0, len(header))
		rec = append(rec, string(r.PartNumber))
		for _, src := range sources {
			v, ok := r.Get(src)
			if !ok {
				v = model.NoData
			}
			rec = append(rec, v)
		}
		t.Records = append(t.Records, rec)
	}
	return t
}

// WriteAggregate writes path and its semicolon sibling and returns both paths.
func WriteAggregate(path string, sources []string, rows []model.AggregateRow) (string, string, error) {
	semi := SemicolonPath(path)
	return path, semi, WriteFiles(path, semi, AggregateTable(sources, rows))
}
