package response

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-tour-booking/pkg/apperror"
)

const genericMessage = "something went very wrong"

// Fail writes err in the uniform error shape. Operational errors carry their
// message and field details; anything else is logged and answered generically.
func Fail(c *gin.Context, logger *logrus.Logger, err error) APIResponse[any] {
	kind := apperror.KindOf(err)
	status := apperror.HTTPStatus(kind)

	var ae *apperror.Error
	if kind == apperror.Internal || !errors.As(err, &ae) {
		if logger == nil {
			logger = logrus.StandardLogger()
		}
		logger.WithError(err).WithFields(logrus.Fields{
			"request_id": c.GetString("request_id"),
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
		}).Error("unexpected error")
		return Error[any](c, status, genericMessage, ErrorBody{Kind: string(apperror.Internal)})
	}
	return Error[any](c, status, ae.Message, ErrorBody{Kind: string(kind), Fields: ae.Fields})
}
