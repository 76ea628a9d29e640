package market

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strconv"

	"campus-market/internal/domain"
)

func encodeListingForm(form *domain.ListingForm) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := [][2]string{
		{"title", form.Title},
		{"description", form.Description},
		{"price", strconv.FormatFloat(form.Price, 'f', -1, 64)},
		{"category", form.Category},
		{"hostel", form.Hostel},
		{"contact", form.Contact},
	}
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, "", fmt.Errorf("failed to write field %s: %w", f[0], err)
		}
	}
	if err := attachFiles(w, "images", form.Images); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close multipart body: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

func encodeFeedbackForm(form *domain.FeedbackForm) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if err := w.WriteField("description", form.Description); err != nil {
		return nil, "", fmt.Errorf("failed to write field description: %w", err)
	}
	if err := attachFiles(w, "images", form.Images); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close multipart body: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

func attachFiles(w *multipart.Writer, field string, paths []string) error {
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", path, err)
		}
		part, err := w.CreateFormFile(field, filepath.Base(path))
		if err == nil {
			_, err = io.Copy(part, f)
		}
		f.Close()
		if err != nil {
			return fmt.Errorf("failed to attach %s: %w", path, err)
		}
	}
	return nil
}
