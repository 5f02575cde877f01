package controllers

import (
	"errors"
	"net/http"

	"lipia/models"
	"lipia/services"
	"lipia/utils"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const insufficientWordsMessage = "Failed to process: Insufficient words"

type ContentController struct {
	accountService *services.AccountService
	contentService *services.ContentService
	view           View
	log            *logrus.Logger
}

func NewContentController(accountService *services.AccountService, contentService *services.ContentService, view View, log *logrus.Logger) *ContentController {
	return &ContentController{
		accountService: accountService,
		contentService: contentService,
		view:           view,
		log:            log,
	}
}

func (c *ContentController) cachedUser(ctx *gin.Context) (*models.User, bool) {
	user, err := c.accountService.CachedUser(ctx.Request.Context(), utils.CurrentUsername(ctx))
	if err != nil {
		userUnavailable(ctx, c.log, err)
		return nil, false
	}
	return user, true
}

func (c *ContentController) humanizeData(user *models.User) gin.H {
	return gin.H{
		"payment_required": user.PaymentRequired(),
		"word_limit":       c.accountService.Plans().WordLimit(user.PlanOrDefault()),
	}
}

func (c *ContentController) HumanizePage(ctx *gin.Context) {
	user, ok := c.cachedUser(ctx)
	if !ok {
		return
	}
	c.view.Render(ctx, http.StatusOK, "humanize", "Humanize Text", c.humanizeData(user))
}

// Humanize debits the allowance and rewrites the submitted text.
func (c *ContentController) Humanize(ctx *gin.Context) {
	user, ok := c.cachedUser(ctx)
	if !ok {
		return
	}
	text := ctx.PostForm("original_text")
	data := c.humanizeData(user)
	data["original_text"] = text

	result, err := c.contentService.Humanize(ctx.Request.Context(), user, text)
	switch {
	case err == nil:
		data["humanized_text"] = result.Text
		data["message"] = result.Message
		// refresh the allowance shown on the next page
		if _, err := c.accountService.CurrentUser(ctx.Request.Context(), user.Username); err != nil {
			c.log.WithError(err).Debug("user refresh after humanize failed")
		}
	case errors.Is(err, services.ErrPaymentRequired):
		data["message"] = PaymentRequiredMessage
	case services.IsDenied(err):
		data["message"] = deniedMessage(err)
	default:
		c.log.WithError(err).WithField("username", user.Username).Warn("humanize failed")
		data["message"] = services.ErrorMessage(err)
	}

	c.view.Render(ctx, http.StatusOK, "humanize", "Humanize Text", data)
}

// deniedMessage prefers the reason the remote API gave.
func deniedMessage(err error) string {
	var apiErr *services.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" && apiErr.Message != "Unknown error" {
		return apiErr.Message
	}
	return insufficientWordsMessage
}

func (c *ContentController) DetectPage(ctx *gin.Context) {
	user, ok := c.cachedUser(ctx)
	if !ok {
		return
	}
	c.view.Render(ctx, http.StatusOK, "detect", "Detect AI", gin.H{
		"payment_required": user.PaymentRequired(),
	})
}

// Detect scores the submitted text. Detection is free of charge.
func (c *ContentController) Detect(ctx *gin.Context) {
	user, ok := c.cachedUser(ctx)
	if !ok {
		return
	}
	text := ctx.PostForm("text")
	data := gin.H{
		"payment_required": user.PaymentRequired(),
		"text":             text,
	}

	result, err := c.contentService.Detect(ctx.Request.Context(), user, text)
	if err != nil {
		data["message"] = PaymentRequiredMessage
	} else {
		data["result"] = result
	}
	c.view.Render(ctx, http.StatusOK, "detect", "Detect AI", data)
}
