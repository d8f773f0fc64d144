package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"LuckyNumbers/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// writeError maps the model sentinels onto status codes
func writeError(c *gin.Context, logger *logrus.Logger, op string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, model.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, model.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, model.ErrNotReady):
		status = http.StatusServiceUnavailable
	default:
		logger.WithError(err).Error(op + " failed")
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

var dateLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04", "2006-01-02 15:04:05", "2006-01-02"}

// parseDate accepts unix milliseconds or an RFC3339-like string
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: date %q is not valid", model.ErrValidation, s)
}

// flexDate a JSON date given as unix milliseconds or a string
type flexDate struct {
	time.Time
}

func (d *flexDate) UnmarshalJSON(b []byte) error {
	raw := strings.Trim(string(b), `"`)
	if raw == "" || raw == "null" {
		return nil
	}
	t, err := parseDate(raw)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

func isNotFound(err error) bool {
	return errors.Is(err, model.ErrNotFound)
}
