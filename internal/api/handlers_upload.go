// handlers_upload.go - Tlog upload handlers
package api

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tlog-viewer/backend/internal/ingest"
)

type uploadResponse struct {
	Message    string         `json:"message"`
	DataPoints int            `json:"data_points"`
	FileName   string         `json:"file_name"`
	Skipped    map[string]int `json:"skipped"`
	Truncated  bool           `json:"truncated"`
}

// HandleUploadTlog decodes a multipart tlog upload and commits its samples
// before responding.
func (h *Handler) HandleUploadTlog(c echo.Context) error {
	file, err := c.FormFile("file")
	if err != nil {
		return NewInvalidUploadError("no file provided", err)
	}
	if err := ingest.ValidateFileName(file.Filename); err != nil {
		return ingestError(err)
	}

	src, err := file.Open()
	if err != nil {
		return NewInternalError("failed to open uploaded file", err)
	}
	defer src.Close()

	data, err := ingest.ReadUpload(src, h.maxUpload)
	if err != nil {
		return ingestError(err)
	}

	res, err := h.ingester.Ingest(c.Request().Context(), ingest.Request{
		FileName: file.Filename,
		Data:     data,
	})
	if err != nil {
		return ingestError(err)
	}

	skipped := make(map[string]int, len(res.Skipped))
	for reason, n := range res.Skipped {
		skipped[string(reason)] = n
	}
	return c.JSON(http.StatusOK, uploadResponse{
		Message:    fmt.Sprintf("Successfully processed %d data points", res.DataPoints),
		DataPoints: res.DataPoints,
		FileName:   res.FileName,
		Skipped:    skipped,
		Truncated:  res.Truncated,
	})
}
