package handler

import (
	stdErrors "errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/johnquangdev/qa-review/errors"
	"github.com/johnquangdev/qa-review/internal/adapter/dto/common"
	"github.com/johnquangdev/qa-review/internal/domain/entities"
	"github.com/johnquangdev/qa-review/internal/infrastructure/http/middleware"
	"github.com/johnquangdev/qa-review/pkg/validator"
)

// getRequestID tries to read X-Request-ID from the request
func getRequestID(c echo.Context) string {
	if c == nil || c.Request() == nil {
		return ""
	}
	if id := c.Response().Header().Get(echo.HeaderXRequestID); id != "" {
		return id
	}
	return c.Request().Header.Get(echo.HeaderXRequestID)
}

// HandleSuccess writes a standardized success response using provided logger
func HandleSuccess(logger *zap.Logger, c echo.Context, data interface{}) error {
	return respond(logger, c, http.StatusOK, data)
}

// HandleCreated writes a standardized 201 response
func HandleCreated(logger *zap.Logger, c echo.Context, data interface{}) error {
	return respond(logger, c, http.StatusCreated, data)
}

func respond(logger *zap.Logger, c echo.Context, status int, data interface{}) error {
	resp := common.SuccessResponse{
		Code:    int(errors.ErrorCode_HTTP_OK),
		Message: "success",
		Data:    data,
	}

	if logger != nil {
		logger.Debug("http.response.success",
			zap.String("request_id", getRequestID(c)),
			zap.String("path", c.Path()),
			zap.Int("status", status),
		)
	}

	return c.JSON(status, resp)
}

// HandleError centralizes error handling and logging using provided logger.
// Internal errors keep their cause in the log only.
func HandleError(logger *zap.Logger, c echo.Context, err error) error {
	reqID := getRequestID(c)

	var appErr errors.AppError
	if stdErrors.As(err, &appErr) {
		internal := appErr.Kind() == errors.KindInternal
		if logger != nil {
			log := logger.Warn
			if internal {
				log = logger.Error
			}
			log("http.response.error",
				zap.String("request_id", reqID),
				zap.String("path", c.Path()),
				zap.Stringer("app_code", appErr.Code),
				zap.Error(err),
			)
		}

		body := common.ErrorResponse{
			Code:    appErr.Code,
			Message: appErr.Message,
		}
		if !internal {
			body.Details = appErr.Details
			if appErr.Raw != nil {
				body.Info = appErr.Raw.Error()
			}
		}

		status := appErr.HTTPCode
		if status == 0 {
			status = http.StatusInternalServerError
		}
		return c.JSON(status, body)
	}

	if logger != nil {
		logger.Error("http.response.error",
			zap.String("request_id", reqID),
			zap.String("path", c.Path()),
			zap.Error(err),
		)
	}

	body := common.ErrorResponse{
		Code:    errors.ErrorCode_INTERNAL,
		Message: "Internal server error",
	}

	return c.JSON(http.StatusInternalServerError, body)
}

// bindAndValidate decodes the request into req and runs its validate tags
func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return errInvalidBody(err)
	}
	if err := c.Validate(req); err != nil {
		appErr := errors.ErrInvalidArgument("validation failed")
		for field, msg := range validator.Describe(err) {
			appErr = appErr.WithDetail(field, msg)
		}
		return appErr
	}
	return nil
}

func errInvalidBody(err error) error {
	return errors.ErrInvalidPayload().WithDetail("reason", err.Error())
}

// pathUUID parses a uuid path parameter
func pathUUID(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, errors.ErrInvalidArgument(name + " must be a valid UUID")
	}
	return id, nil
}

// subjectFrom returns the caller set by the auth middleware
func subjectFrom(c echo.Context) (entities.Subject, error) {
	subject, ok := middleware.SubjectFrom(c)
	if !ok {
		return entities.Subject{}, errors.ErrUnauthenticated()
	}
	return subject, nil
}
