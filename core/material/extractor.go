package material

import (
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"github.com/trezcool/masomo-records/core"
)

// Extractor pulls the plain text out of a stored document.
// ok is false when the document could not be read; the cause is logged, not returned.
type Extractor interface {
	Extract(name string) (text string, ok bool)
}

type PDFExtractor struct {
	fs     afero.Fs
	logger core.Logger
}

var _ Extractor = (*PDFExtractor)(nil)

func NewPDFExtractor(fs afero.Fs, logger core.Logger) *PDFExtractor {
	return &PDFExtractor{fs: fs, logger: logger}
}

// Extract concatenates the text of every page, in page order.
func (e *PDFExtractor) Extract(name string) (string, bool) {
	text, err := e.extract(name)
	if err != nil {
		e.logger.Error("extracting text from pdf", "path", name, "error", err)
		return "", false
	}
	return text, true
}

func (e *PDFExtractor) extract(name string) (text string, err error) {
	f, err := e.fs.Open(name)
	if err != nil {
		return "", errors.Wrap(err, "opening pdf")
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return "", errors.Wrap(err, "reading pdf info")
	}

	// the parser panics on some malformed documents
	defer func() {
		if r := recover(); r != nil {
			text, err = "", errors.Errorf("malformed pdf: %v", r)
		}
	}()

	r, err := pdf.NewReader(f, fi.Size())
	if err != nil {
		return "", errors.Wrap(err, "parsing pdf")
	}

	var sb strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", errors.Wrapf(err, "reading page %d", i)
		}
		sb.WriteString(pageText)
	}
	return sb.String(), nil
}
