package api

import (
	"fmt"
	"net/http"
	"time"

	"LuckyNumbers/internal/model"
	"LuckyNumbers/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// CookieName holds the caller's last guess id. Cookie names cannot contain ':'.
const CookieName = "luckynumbers_id"

const cookieMaxAge = 7 * 24 * 60 * 60

// GuessHandler guess CRUD. Knowing an id is enough to read or change it.
type GuessHandler struct {
	svc    *service.LotteryService
	logger *logrus.Logger
}

func NewGuessHandler(svc *service.LotteryService, logger *logrus.Logger) *GuessHandler {
	return &GuessHandler{svc: svc, logger: logger}
}

type createGuessRequest struct {
	Numbers []int     `json:"numbers"`
	Date    *flexDate `json:"date"`
}

type updateGuessRequest struct {
	Numbers []int `json:"numbers"`
}

// CreateGuess POST /api/guesses {"numbers":[...], "date": optional}
func (h *GuessHandler) CreateGuess(c *gin.Context) {
	var req createGuessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.logger, "CreateGuess", fmt.Errorf("%w: %v", model.ErrValidation, err))
		return
	}
	var forDate *time.Time
	if req.Date != nil && !req.Date.IsZero() {
		forDate = &req.Date.Time
	}
	guess, err := h.svc.CreateGuess(c.Request.Context(), forDate, req.Numbers)
	if err != nil {
		writeError(c, h.logger, "CreateGuess", err)
		return
	}
	setGuessCookie(c, guess.ID)
	c.JSON(http.StatusCreated, guess)
}

// CurrentGuess redirects to the guess named by the cookie
// GET /api/guesses
func (h *GuessHandler) CurrentGuess(c *gin.Context) {
	id, err := c.Cookie(CookieName)
	if err != nil || id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "GET a guess requires an id"})
		return
	}
	c.Redirect(http.StatusFound, model.GuessRef(id))
}

// GetGuess GET /api/guesses/:id
func (h *GuessHandler) GetGuess(c *gin.Context) {
	guess, err := h.svc.GetGuess(c.Request.Context(), c.Param("id"))
	if err != nil {
		if isNotFound(err) {
			clearGuessCookie(c)
		}
		writeError(c, h.logger, "GetGuess", err)
		return
	}
	c.JSON(http.StatusOK, guess)
}

// UpdateGuess PUT /api/guesses/:id {"numbers":[...]}
func (h *GuessHandler) UpdateGuess(c *gin.Context) {
	var req updateGuessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.logger, "UpdateGuess", fmt.Errorf("%w: %v", model.ErrValidation, err))
		return
	}
	guess, err := h.svc.UpdateGuess(c.Request.Context(), c.Param("id"), req.Numbers)
	if err != nil {
		writeError(c, h.logger, "UpdateGuess", err)
		return
	}
	setGuessCookie(c, guess.ID)
	c.JSON(http.StatusOK, guess)
}

// DeleteGuess DELETE /api/guesses/:id
func (h *GuessHandler) DeleteGuess(c *gin.Context) {
	id := c.Param("id")
	if err := h.svc.DeleteGuess(c.Request.Context(), id); err != nil {
		writeError(c, h.logger, "DeleteGuess", err)
		return
	}
	clearGuessCookie(c)
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

func setGuessCookie(c *gin.Context, id string) {
	c.SetCookie(CookieName, id, cookieMaxAge, "/", "", false, true)
}

func clearGuessCookie(c *gin.Context) {
	c.SetCookie(CookieName, "", -1, "/", "", false, true)
}
