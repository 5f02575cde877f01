package controllers

import (
	"net/http"
	"time"

	"lipia/utils"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const PaymentRequiredMessage = "Payment required to access this feature. Please upgrade your plan."

// View fills in the data every page layout needs.
type View struct {
	AppName string
}

func (v View) Render(ctx *gin.Context, status int, page, title string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	data["title"] = title
	data["app_name"] = v.AppName
	data["current_user"] = utils.CurrentUsername(ctx)
	data["flashes"] = utils.Flashes(ctx)
	data["year"] = time.Now().Year()
	ctx.HTML(status, page, data)
}

// userUnavailable ends the session when neither the remote API nor the cache
// knows the user, which happens after a restart with the memory store.
func userUnavailable(ctx *gin.Context, log *logrus.Logger, err error) {
	log.WithError(err).WithField("username", utils.CurrentUsername(ctx)).Warn("user data unavailable")
	utils.ClearSession(ctx)
	utils.AddFlash(ctx, "error", "Could not load your account, please login again")
	ctx.Redirect(http.StatusFound, "/login")
}
