package api

import (
	"net/http"
	"strconv"

	"LuckyNumbers/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// NumbersHandler read-only access to draws
type NumbersHandler struct {
	svc    *service.LotteryService
	logger *logrus.Logger
}

func NewNumbersHandler(svc *service.LotteryService, logger *logrus.Logger) *NumbersHandler {
	return &NumbersHandler{svc: svc, logger: logger}
}

// ListNumbers the latest draws
// GET /api/numbers?length=10
func (h *NumbersHandler) ListNumbers(c *gin.Context) {
	length, err := strconv.Atoi(c.DefaultQuery("length", "1"))
	if err != nil || length < 1 {
		length = 1
	}
	results, err := h.svc.LastResults(c.Request.Context(), length)
	if err != nil {
		writeError(c, h.logger, "ListNumbers", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"numbers": results})
}

// GetNumbers the draw of the bucket containing :timestamp (unix ms or RFC3339)
// GET /api/numbers/:timestamp
func (h *NumbersHandler) GetNumbers(c *gin.Context) {
	at, err := parseDate(c.Param("timestamp"))
	if err != nil {
		writeError(c, h.logger, "GetNumbers", err)
		return
	}
	result, err := h.svc.ResultAt(c.Request.Context(), at)
	if err != nil {
		writeError(c, h.logger, "GetNumbers", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"numbers": []interface{}{result}})
}

// Stats how often each number was drawn
// GET /api/numbers/stats
func (h *NumbersHandler) Stats(c *gin.Context) {
	stats, err := h.svc.Stats(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, "Stats", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stats": stats})
}
