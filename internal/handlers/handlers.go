package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/offolaunch/launchtrack/internal/apperr"
	"github.com/offolaunch/launchtrack/internal/health"
	"github.com/offolaunch/launchtrack/internal/models"
	"github.com/offolaunch/launchtrack/internal/services"
	"github.com/offolaunch/launchtrack/internal/types"
	"github.com/offolaunch/launchtrack/internal/utils"
	"go.uber.org/zap"
)

type Options struct {
	Reporter *health.Reporter
	Times    *health.ResponseTimes
}

type Handler struct {
	svc      *services.Services
	reporter *health.Reporter
	times    *health.ResponseTimes
	lg       *zap.SugaredLogger
}

func New(svc *services.Services, lg *zap.SugaredLogger, opts Options) *Handler {
	registerJSONFieldNames()

	times := opts.Times
	if times == nil {
		times = health.NewResponseTimes()
	}
	reporter := opts.Reporter
	if reporter == nil {
		reporter = health.NewReporter(health.ReporterOptions{})
	}

	return &Handler{svc: svc, reporter: reporter, times: times, lg: lg}
}

var registerOnce sync.Once

// registerJSONFieldNames makes validator report JSON names, so field
// errors read "email" rather than "Email".
func registerJSONFieldNames() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(field reflect.StructField) string {
			name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
}

// bind decodes the JSON body into dst and writes a 400 when it cannot.
func (h *Handler) bind(ctx *gin.Context, dst any) bool {
	err := ctx.ShouldBindJSON(dst)

	if err == nil {
		return true
	}

	var verrs validator.ValidationErrors

	if errors.As(err, &verrs) {
		fields := make([]types.FieldError, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, types.FieldError{Field: fieldPath(fe), Message: fieldMessage(fe)})
		}
		ctx.AbortWithStatusJSON(http.StatusBadRequest, types.ErrorResponse{Error: "Validation failed", Errors: fields})
		return false
	}

	ctx.AbortWithStatusJSON(http.StatusBadRequest, types.ErrorResponse{Error: "Invalid request"})
	return false
}

// fieldPath drops the top-level struct name from the namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return "must be a valid email address"
	case "url":
		return "must be a valid URL"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

// fail maps an error onto its HTTP status and body.
func (h *Handler) fail(ctx *gin.Context, err error) {
	var appErr *apperr.Error

	if !errors.As(err, &appErr) {
		appErr = apperr.Internal("unexpected error", err)
	}

	switch appErr.Kind {
	case apperr.KindValidation:
		body := types.ErrorResponse{Error: appErr.Message}
		for _, f := range appErr.Fields {
			body.Errors = append(body.Errors, types.FieldError{Field: f.Field, Message: f.Message})
		}
		ctx.AbortWithStatusJSON(http.StatusBadRequest, body)
	case apperr.KindUnauthorized:
		ctx.AbortWithStatusJSON(http.StatusUnauthorized, types.ErrorResponse{Error: appErr.Message})
	case apperr.KindForbidden:
		ctx.AbortWithStatusJSON(http.StatusForbidden, types.ErrorResponse{Error: appErr.Message})
	case apperr.KindNotFound:
		ctx.AbortWithStatusJSON(http.StatusNotFound, types.ErrorResponse{Error: capitalize(appErr.Message)})
	case apperr.KindConflict:
		ctx.AbortWithStatusJSON(http.StatusConflict, types.ErrorResponse{Error: appErr.Message})
	case apperr.KindDependency:
		h.lg.Warnw("dependency failure", "path", ctx.FullPath(), "err", err)
		ctx.AbortWithStatusJSON(http.StatusBadGateway, types.ErrorResponse{Error: appErr.Error()})
	default:
		h.lg.Errorw("request failed", "path", ctx.FullPath(), "request_id", utils.GetRequestID(ctx), "err", err)
		_ = ctx.Error(err)
		ctx.AbortWithStatusJSON(http.StatusInternalServerError, types.ErrorResponse{Error: "Internal server error"})
	}
}

// user returns the authenticated user, answering 401 when there is none.
func (h *Handler) user(ctx *gin.Context) (*models.User, bool) {
	user, err := utils.GetCurrentUser(ctx)

	if err != nil {
		ctx.AbortWithStatusJSON(http.StatusUnauthorized, types.ErrorResponse{Error: "Please authenticate"})
		return nil, false
	}

	return user, true
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
