package controllers

import (
	"net/http"

	"lipia/services"
	"lipia/utils"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type UserController struct {
	accountService *services.AccountService
	view           View
	log            *logrus.Logger
}

func NewUserController(accountService *services.AccountService, view View, log *logrus.Logger) *UserController {
	return &UserController{accountService: accountService, view: view, log: log}
}

// Dashboard shows the freshest user record we can get.
func (c *UserController) Dashboard(ctx *gin.Context) {
	username := utils.CurrentUsername(ctx)
	user, err := c.accountService.CurrentUser(ctx.Request.Context(), username)
	if err != nil {
		userUnavailable(ctx, c.log, err)
		return
	}

	c.view.Render(ctx, http.StatusOK, "dashboard", "Dashboard", gin.H{
		"user": user,
		"plan": c.accountService.Plans().Get(user.PlanOrDefault()),
	})
}

func (c *UserController) Account(ctx *gin.Context) {
	username := utils.CurrentUsername(ctx)
	user, err := c.accountService.CurrentUser(ctx.Request.Context(), username)
	if err != nil {
		userUnavailable(ctx, c.log, err)
		return
	}

	transactions, err := c.accountService.Payments(ctx.Request.Context(), username)
	if err != nil {
		c.log.WithError(err).WithField("username", username).Warn("failed to load payment history")
	}

	c.view.Render(ctx, http.StatusOK, "account", "Account", gin.H{
		"user":         user,
		"plan":         c.accountService.Plans().Get(user.PlanOrDefault()),
		"transactions": transactions,
	})
}

// APIHealth reports whether the remote API is reachable.
func (c *UserController) APIHealth(ctx *gin.Context) {
	online, details := c.accountService.Health(ctx.Request.Context())
	status := "offline"
	if online {
		status = "online"
	}
	ctx.JSON(http.StatusOK, gin.H{"api_status": status, "details": details})
}
