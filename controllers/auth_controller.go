package controllers

import (
	"net/http"
	"strings"
	"time"

	"lipia/models"
	"lipia/services"
	"lipia/utils"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type AuthController struct {
	accountService *services.AccountService
	view           View
	secret         string
	sessionTTL     time.Duration
	log            *logrus.Logger
}

func NewAuthController(accountService *services.AccountService, view View, secret string, sessionTTL time.Duration, log *logrus.Logger) *AuthController {
	return &AuthController{
		accountService: accountService,
		view:           view,
		secret:         secret,
		sessionTTL:     sessionTTL,
		log:            log,
	}
}

type registerForm struct {
	Username string `form:"username"`
	Email    string `form:"email"`
	Phone    string `form:"phone"`
	PIN      string `form:"password"`
	PlanType string `form:"plan_type"`
}

// Index is the landing page with the pricing table.
func (c *AuthController) Index(ctx *gin.Context) {
	c.view.Render(ctx, http.StatusOK, "index", "Home", gin.H{
		"plans": c.accountService.Plans(),
	})
}

func (c *AuthController) LoginPage(ctx *gin.Context) {
	c.view.Render(ctx, http.StatusOK, "login", "Login", nil)
}

// Login checks the PIN with the remote API and starts a session.
func (c *AuthController) Login(ctx *gin.Context) {
	username := strings.TrimSpace(ctx.PostForm("username"))
	pin := ctx.PostForm("password")

	if _, err := c.accountService.Login(ctx.Request.Context(), username, pin); err != nil {
		utils.AddFlash(ctx, "error", services.ErrorMessage(err))
		c.view.Render(ctx, http.StatusOK, "login", "Login", gin.H{"username": username})
		return
	}

	if err := utils.StartSession(ctx, c.secret, username, c.sessionTTL); err != nil {
		c.log.WithError(err).Error("failed to issue session")
		utils.AddFlash(ctx, "error", "Could not start your session, please try again")
		c.view.Render(ctx, http.StatusInternalServerError, "login", "Login", gin.H{"username": username})
		return
	}

	utils.AddFlash(ctx, "success", "Login successful!")
	ctx.Redirect(http.StatusFound, "/dashboard")
}

func (c *AuthController) RegisterPage(ctx *gin.Context) {
	c.view.Render(ctx, http.StatusOK, "register", "Register", gin.H{
		"plans": c.accountService.Plans(),
		"form":  registerForm{PlanType: string(models.PlanFree)},
	})
}

// Register creates the remote account. The PIN is never echoed back into the form.
func (c *AuthController) Register(ctx *gin.Context) {
	var form registerForm
	if err := ctx.ShouldBind(&form); err != nil {
		utils.AddFlash(ctx, "error", "Invalid registration form")
		c.RegisterPage(ctx)
		return
	}

	_, err := c.accountService.Register(ctx.Request.Context(), services.RegisterInput{
		Username: strings.TrimSpace(form.Username),
		PIN:      form.PIN,
		Email:    strings.TrimSpace(form.Email),
		Phone:    strings.TrimSpace(form.Phone),
		Plan:     models.PlanName(form.PlanType),
	})
	if err != nil {
		utils.AddFlash(ctx, "error", services.ErrorMessage(err))
		form.PIN = ""
		c.view.Render(ctx, http.StatusOK, "register", "Register", gin.H{
			"plans": c.accountService.Plans(),
			"form":  form,
		})
		return
	}

	utils.AddFlash(ctx, "success", "Registration successful! Please login.")
	ctx.Redirect(http.StatusFound, "/login")
}

func (c *AuthController) Logout(ctx *gin.Context) {
	utils.ClearSession(ctx)
	utils.AddFlash(ctx, "info", "You have been logged out")
	ctx.Redirect(http.StatusFound, "/")
}
