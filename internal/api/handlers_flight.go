// handlers_flight.go - Flight data query handlers
package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/tlog-viewer/backend/internal/models"
)

const mimeMsgpack = "application/msgpack"

// HandleFlightData returns stored points ordered by id, optionally filtered
// by file_name and windowed by limit/offset. format=msgpack switches the
// encoding.
func (h *Handler) HandleFlightData(c echo.Context) error {
	q := models.FlightDataQuery{FileName: c.QueryParam("file_name")}

	var err error
	if q.Limit, err = intParam(c, "limit"); err != nil {
		return err
	}
	if q.Offset, err = intParam(c, "offset"); err != nil {
		return err
	}

	points, err := h.store.Query(c.Request().Context(), q)
	if err != nil {
		return NewInternalError("failed to query flight data", err)
	}

	if c.QueryParam("format") == "msgpack" {
		data, err := msgpack.Marshal(points)
		if err != nil {
			return NewInternalError("failed to encode msgpack", err)
		}
		return c.Blob(http.StatusOK, mimeMsgpack, data)
	}
	return c.JSON(http.StatusOK, points)
}

// HandleFiles returns a summary of every ingested file.
func (h *Handler) HandleFiles(c echo.Context) error {
	files, err := h.store.Files(c.Request().Context())
	if err != nil {
		return NewInternalError("failed to list files", err)
	}
	return c.JSON(http.StatusOK, files)
}

// intParam parses an optional non-negative integer query parameter.
func intParam(c echo.Context, name string) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, NewBadRequestError("invalid "+name+": "+raw, err)
	}
	return n, nil
}
