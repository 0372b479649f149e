package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/restaurant-pos/services"
	"github.com/yeremiapane/restaurant-pos/utils"
)

var ErrInvalidTableNumber = errors.New("table number must be an integer")

func statusFor(err error) int {
	switch services.KindOf(err) {
	case services.KindNotFound:
		return http.StatusNotFound
	case services.KindInvalidTransition, services.KindValidation:
		return http.StatusBadRequest
	case services.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respondServiceError maps a service failure to its HTTP status. Internal
// errors are logged with the request path.
func respondServiceError(c *gin.Context, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		utils.ErrorLogger.Errorf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	utils.RespondError(c, code, err)
}

func tableNumberParam(c *gin.Context, name string) (int, bool) {
	n, err := strconv.Atoi(c.Param(name))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, ErrInvalidTableNumber)
		return 0, false
	}
	return n, true
}
