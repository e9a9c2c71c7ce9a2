package echoapi

import (
	"mime/multipart"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-records/core/course"
)

const materialField = "material"

// bindUpload returns the material file sent with a multipart request, or nil when there is none.
// The caller must call the returned close func once the upload has been consumed.
func bindUpload(ctx echo.Context) (*course.Upload, func(), error) {
	noop := func() {}

	fh, err := ctx.FormFile(materialField)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, noop, nil
		}
		return nil, noop, errors.Wrap(err, "reading material file")
	}
	if fh.Filename == "" {
		return nil, noop, nil
	}

	var f multipart.File
	if f, err = fh.Open(); err != nil {
		return nil, noop, errors.Wrap(err, "opening material file")
	}
	return &course.Upload{Filename: fh.Filename, Content: f}, func() { _ = f.Close() }, nil
}
