package rest

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/dmitrijs2005/coursecloud/internal/common"
	"github.com/dmitrijs2005/coursecloud/internal/server/media"
)

const uploadField = "file"

// multipartMemory is how much of a form is held in memory. Larger file
// parts spill to temp files.
var multipartMemory int64 = 32 << 20

var (
	errUploadTooLarge = fmt.Errorf("%w: file exceeds the upload limit", common.ErrorValidation)
	errNoFile         = fmt.Errorf("%w: no file uploaded", common.ErrorValidation)
	errNotMultipart   = fmt.Errorf("%w: expected a multipart form", common.ErrorValidation)
)

// parseUpload parses a multipart form bounded by the upload limit and
// returns its file part, or nil when the form has none. The caller closes
// the returned closer, which also removes the form's temp files.
func (h *Handler) parseUpload(w http.ResponseWriter, r *http.Request) (*media.File, io.Closer, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var mbe *http.MaxBytesError
		switch {
		case errors.As(err, &mbe):
			return nil, nil, errUploadTooLarge
		case errors.Is(err, http.ErrNotMultipart):
			return nil, nil, errNotMultipart
		default:
			return nil, nil, fmt.Errorf("%w: %v", common.ErrorValidation, err)
		}
	}

	// r may be a WithContext copy, so the server's own cleanup never sees
	// this form.
	cleanup := &formCleanup{form: r.MultipartForm}

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, cleanup, nil
		}
		closeQuietly(cleanup)
		return nil, nil, fmt.Errorf("%w: %v", common.ErrorValidation, err)
	}
	cleanup.file = file

	return fileFromPart(file, header), cleanup, nil
}

type formCleanup struct {
	file multipart.File
	form *multipart.Form
}

func (c *formCleanup) Close() error {
	var err error
	if c.file != nil {
		err = c.file.Close()
	}
	if c.form != nil {
		err = errors.Join(err, c.form.RemoveAll())
	}
	return err
}

func fileFromPart(f multipart.File, header *multipart.FileHeader) *media.File {
	return &media.File{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        f,
	}
}

func closeQuietly(c io.Closer) {
	if c != nil {
		_ = c.Close()
	}
}
