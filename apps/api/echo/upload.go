package echoapi

import (
	"net/http"
	"os"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-records/core/material"
)

func registerUploadAPI(g *echo.Group, jwt echo.MiddlewareFunc, store *material.Store) {
	g.GET("/uploads/*", serveMaterial(store), jwt)
}

// serveMaterial streams a stored material file; ranges are honored for audio and video.
func serveMaterial(store *material.Store) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		name := ctx.Param("*")
		f, err := store.Open(name)
		if err != nil {
			return errors.Wrapf(err, "opening %s", name)
		}
		defer f.Close()

		fi, err := f.Stat()
		if err != nil {
			return errors.Wrapf(err, "reading %s", name)
		}
		if fi.IsDir() {
			return errors.Wrapf(os.ErrNotExist, "%s is a directory", name)
		}

		http.ServeContent(ctx.Response(), ctx.Request(), fi.Name(), fi.ModTime(), f)
		return nil
	}
}
