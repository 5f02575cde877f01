package controllers

import (
	"net/http"

	"lipia/services"
	"lipia/utils"

	"github.com/gin-gonic/gin"
)

type AdminController struct {
	adminService *services.AdminService
	watcher      *utils.PaymentWatcher
}

func NewAdminController(adminService *services.AdminService, watcher *utils.PaymentWatcher) *AdminController {
	return &AdminController{
		adminService: adminService,
		watcher:      watcher,
	}
}

// GetStats reports cache sizes and open payment watchers
func (c *AdminController) GetStats(ctx *gin.Context) {
	stats, err := c.adminService.GetStats(ctx.Request.Context())
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	stats["active_watchers"] = c.watcher.Active()

	ctx.JSON(http.StatusOK, stats)
}

// ResetCache clears every cached user and transaction
func (c *AdminController) ResetCache(ctx *gin.Context) {
	if err := c.adminService.ResetCache(ctx.Request.Context()); err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "cache cleared"})
}
