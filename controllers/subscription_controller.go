package controllers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"lipia/models"
	"lipia/services"
	"lipia/store"
	"lipia/utils"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/skip2/go-qrcode"
)

type SubscriptionController struct {
	accountService *services.AccountService
	watcher        *utils.PaymentWatcher
	view           View
	log            *logrus.Logger
}

func NewSubscriptionController(accountService *services.AccountService, watcher *utils.PaymentWatcher, view View, log *logrus.Logger) *SubscriptionController {
	return &SubscriptionController{
		accountService: accountService,
		watcher:        watcher,
		view:           view,
		log:            log,
	}
}

func (c *SubscriptionController) paymentPage(ctx *gin.Context, user *models.User, phone string) {
	c.view.Render(ctx, http.StatusOK, "payment", "Make Payment", gin.H{
		"plan":  c.accountService.Plans().Get(user.PlanOrDefault()),
		"phone": phone,
	})
}

func (c *SubscriptionController) PaymentPage(ctx *gin.Context) {
	user, err := c.accountService.CachedUser(ctx.Request.Context(), utils.CurrentUsername(ctx))
	if err != nil {
		userUnavailable(ctx, c.log, err)
		return
	}
	c.paymentPage(ctx, user, user.PhoneNumber)
}

// Payment starts an M-Pesa charge for the user's current plan.
func (c *SubscriptionController) Payment(ctx *gin.Context) {
	username := utils.CurrentUsername(ctx)
	phone := strings.TrimSpace(ctx.PostForm("phone_number"))

	txn, err := c.accountService.StartPayment(ctx.Request.Context(), username, phone)
	if errors.Is(err, services.ErrUserUnavailable) {
		userUnavailable(ctx, c.log, err)
		return
	}
	if err != nil {
		utils.AddFlash(ctx, "error", services.ErrorMessage(err))
		user, userErr := c.accountService.CachedUser(ctx.Request.Context(), username)
		if userErr != nil {
			userUnavailable(ctx, c.log, userErr)
			return
		}
		c.paymentPage(ctx, user, phone)
		return
	}

	if txn.Status == models.TransactionCompleted {
		utils.AddFlash(ctx, "success", fmt.Sprintf("Payment successful! Transaction ID: %s", txn.TransactionID))
	} else {
		utils.AddFlash(ctx, "info", "Payment initiated. Please check your phone to complete the payment.")
	}
	ctx.Redirect(http.StatusFound, "/account")
}

func (c *SubscriptionController) UpgradePage(ctx *gin.Context) {
	user, err := c.accountService.CachedUser(ctx.Request.Context(), utils.CurrentUsername(ctx))
	if err != nil {
		userUnavailable(ctx, c.log, err)
		return
	}
	c.upgradePage(ctx, user)
}

func (c *SubscriptionController) upgradePage(ctx *gin.Context, user *models.User) {
	plans := c.accountService.Plans()
	c.view.Render(ctx, http.StatusOK, "upgrade", "Upgrade Plan", gin.H{
		"current_plan":    plans.Get(user.PlanOrDefault()),
		"available_plans": plans.Except(user.PlanOrDefault()),
	})
}

// Upgrade switches plan and sends the user on to pay for it.
func (c *SubscriptionController) Upgrade(ctx *gin.Context) {
	username := utils.CurrentUsername(ctx)
	newPlan := models.PlanName(ctx.PostForm("new_plan"))

	user, err := c.accountService.Upgrade(ctx.Request.Context(), username, newPlan)
	if errors.Is(err, services.ErrUserUnavailable) {
		userUnavailable(ctx, c.log, err)
		return
	}
	if err != nil {
		utils.AddFlash(ctx, "error", services.ErrorMessage(err))
		current, userErr := c.accountService.CachedUser(ctx.Request.Context(), username)
		if userErr != nil {
			userUnavailable(ctx, c.log, userErr)
			return
		}
		c.upgradePage(ctx, current)
		return
	}

	utils.AddFlash(ctx, "success", fmt.Sprintf("Your plan has been upgraded to %s. Please make payment to activate.", user.Plan))
	ctx.Redirect(http.StatusFound, "/payment")
}

// PaymentStatus polls the remote API once for a checkout the user owns.
func (c *SubscriptionController) PaymentStatus(ctx *gin.Context) {
	update, err := c.accountService.RefreshPaymentStatus(ctx.Request.Context(), utils.CurrentUsername(ctx), ctx.Param("checkout_id"))
	if errors.Is(err, store.ErrNotFound) {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "transaction not found"})
		return
	}
	if err != nil {
		ctx.JSON(http.StatusBadGateway, update)
		return
	}
	ctx.JSON(http.StatusOK, update)
}

// WatchPayment streams status updates over a websocket until the payment completes.
func (c *SubscriptionController) WatchPayment(ctx *gin.Context) {
	username := utils.CurrentUsername(ctx)
	checkoutID := ctx.Param("checkout_id")

	if _, err := c.accountService.OwnsTransaction(ctx.Request.Context(), username, checkoutID); err != nil {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "transaction not found"})
		return
	}

	c.watcher.Serve(ctx, checkoutID, func(pollCtx context.Context) (models.PaymentUpdate, error) {
		return c.accountService.RefreshPaymentStatus(pollCtx, username, checkoutID)
	})
}

// ReceiptQR renders a QR code carrying the transaction's receipt details.
func (c *SubscriptionController) ReceiptQR(ctx *gin.Context) {
	txn, err := c.accountService.OwnsTransaction(ctx.Request.Context(), utils.CurrentUsername(ctx), ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "transaction not found"})
		return
	}

	content := fmt.Sprintf("%s|%s|%s|%.2f|%s|%s",
		txn.TransactionID, txn.UserID, txn.SubscriptionType, txn.Amount, txn.Status, txn.Reference)
	png, err := qrcode.Encode(content, qrcode.Medium, 256)
	if err != nil {
		c.log.WithError(err).WithField("transaction_id", txn.TransactionID).Error("failed to generate receipt QR code")
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate QR code"})
		return
	}
	ctx.Data(http.StatusOK, "image/png", png)
}
