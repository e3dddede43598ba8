package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/dept-records-api/internal/middleware"
	"github.com/noah-isme/dept-records-api/internal/service"
	"github.com/noah-isme/dept-records-api/pkg/dateutil"
	appErrors "github.com/noah-isme/dept-records-api/pkg/errors"
)

// actorFrom builds the service-level caller identity from the request.
func actorFrom(c *gin.Context) service.Actor {
	actor := service.Actor{
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
	if claims := middleware.ClaimsFrom(c); claims != nil {
		actor.UserID = claims.UserID
		actor.Role = claims.Role
	}
	return actor
}

// todayFrom resolves the reference day for derived alerts. An explicit
// asOf query parameter wins; otherwise the current UTC date is used.
func todayFrom(c *gin.Context) (dateutil.Date, error) {
	if raw := c.Query("asOf"); raw != "" {
		d, err := dateutil.Parse(raw)
		if err != nil {
			return dateutil.Date{}, appErrors.Clone(appErrors.ErrValidation, err.Error())
		}
		return d, nil
	}
	return dateutil.FromTime(time.Now()), nil
}

func intQuery(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
