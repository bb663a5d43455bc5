package extract

import (
	"regexp"

	"github.com/ftsl575/jarvis.hpe-v1.0.0/internal/partnum"
)

var (
	photoDescriptionSelectors = []string{
		"#ctl00_BodyContentPlaceHolder_lblDescription",
		"#ctl00_BodyContentPlaceHolder_lblShortDescription",
		"span[id$='lblDescription']",
		".part-description",
	}
	photoImageSelectors = []string{
		"#ctl00_BodyContentPlaceHolder_imgPart",
		"#ctl00_BodyContentPlaceHolder_Image1",
		"img[id*='imgPart']",
		"img.part-image",
		"figure img",
	}
	photoErrorSelectors = []string{
		"#ctl00_BodyContentPlaceHolder_lblMessage",
		"#ctl00_BodyContentPlaceHolder_lblError",
		".no-results",
	}

	// page titles that name the site rather than the part
	genericPhotoTitle = regexp.MustCompile(`(?i)^(hpe\s+)?partsurfer(\s*[-:|].*)?$|^show\s*photo$`)
)

// Photo extracts PartSurfer ShowPhoto.aspx pages.
type Photo struct{}

var _ Extractor = Photo{}

func (Photo) Extract(p Page) (Record, error) {
	doc, err := load(p)
	if err != nil {
		return Record{}, err
	}
	base := p.URL
	if base == "" {
		base = PartSurferBase
	}

	rec := &PhotoRecord{
		Title:    firstText(doc.Selection, photoDescriptionSelectors...),
		ImageURL: Absolutize(firstAttr(doc.Selection, "src", photoImageSelectors...), base),
	}
	if rec.Title == "" {
		if t := partnum.Text(doc.Find("title").First().Text()); !genericPhotoTitle.MatchString(t) {
			rec.Title = t
		}
	}
	if rec.Title == "" {
		rec.Title = firstText(doc.Selection, "figcaption")
	}

	out := Record{Photo: rec}
	if rec.Title == "" {
		if firstText(doc.Selection, photoErrorSelectors...) != "" {
			rec.ImageURL = ""
		}
		if rec.ImageURL == "" {
			out.NotFound = true
		}
	}
	return out, nil
}
