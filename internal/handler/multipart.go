package handler

import (
	"errors"
	"io"
	"net/http"

	"campus-market/internal/marketplace"
)

var (
	errInvalidForm  = errors.New("invalid multipart form")
	errInvalidPrice = errors.New("invalid price")
)

// uploadsFrom returns openers for the "images" parts of a parsed form.
func uploadsFrom(r *http.Request) []marketplace.Upload {
	if r.MultipartForm == nil {
		return nil
	}
	files := r.MultipartForm.File["images"]
	uploads := make([]marketplace.Upload, 0, len(files))
	for _, fh := range files {
		fh := fh
		uploads = append(uploads, func() (io.ReadCloser, error) {
			return fh.Open()
		})
	}
	return uploads
}
