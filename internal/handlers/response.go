package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sjperalta/society-ledger/internal/repository"
	"github.com/sjperalta/society-ledger/internal/services"
	"github.com/sjperalta/society-ledger/pkg/logger"
)

// Response is the envelope of every API response
type Response struct {
	Success bool           `json:"success"`
	Data    any            `json:"data,omitempty"`
	Error   string         `json:"error,omitempty"`
	Message string         `json:"message,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// Pagination describes a page of a list response
type Pagination struct {
	Page       int   `json:"page"`
	PerPage    int   `json:"per_page"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"total_pages"`
}

func respond(c *gin.Context, status int, data any, message string) {
	c.JSON(status, Response{Success: true, Data: data, Message: message})
}

func respondPage(c *gin.Context, items any, query *repository.ListQuery, total int64) {
	pages := int64(0)
	if query.PerPage > 0 {
		pages = (total + int64(query.PerPage) - 1) / int64(query.PerPage)
	}
	respond(c, http.StatusOK, gin.H{
		"items": items,
		"pagination": Pagination{
			Page:       query.Page,
			PerPage:    query.PerPage,
			Total:      total,
			TotalPages: pages,
		},
	}, "")
}

// respondError maps engine errors to status codes. Persistence failures are
// reported to Sentry and never expose the driver message.
func respondError(c *gin.Context, err error) {
	var typed *services.Error
	if !errors.As(err, &typed) {
		typed = &services.Error{Kind: services.ErrPersistence, Code: "INTERNAL_ERROR", Message: "internal error", Err: err}
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(typed.Kind, services.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(typed.Kind, services.ErrValidation):
		status = http.StatusUnprocessableEntity
	case errors.Is(typed.Kind, services.ErrStateConflict):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		logger.FromContext(c.Request.Context()).Error("Request failed", "code", typed.Code, "error", err)
		_ = c.Error(err)
		if hub := sentrygin.GetHubFromContext(c); hub != nil {
			hub.CaptureException(err)
		} else {
			sentry.CaptureException(err)
		}
	}

	c.AbortWithStatusJSON(status, Response{
		Success: false,
		Error:   typed.Code,
		Message: typed.Message,
		Details: typed.Details,
	})
}

// respondBindError reports a malformed or invalid request body
func respondBindError(c *gin.Context, err error) {
	details := map[string]any{}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			details[toSnake(fe.Field())] = describeFieldError(fe)
		}
	} else {
		details["body"] = err.Error()
	}

	c.AbortWithStatusJSON(http.StatusBadRequest, Response{
		Success: false,
		Error:   "INVALID_REQUEST",
		Message: "request body is not valid",
		Details: details,
	})
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "min":
		return "must be at least " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	default:
		return fmt.Sprintf("failed %q validation", fe.Tag())
	}
}

func toSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

// pathID parses a positive numeric path parameter
func pathID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "INVALID_REQUEST",
			Message: "invalid " + name,
		})
		return 0, false
	}
	return uint(id), true
}

func listQuery(c *gin.Context, defaultPerPage int) *repository.ListQuery {
	query := repository.NewListQuery()
	query.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	query.PerPage, _ = strconv.Atoi(c.DefaultQuery("per_page", strconv.Itoa(defaultPerPage)))
	if query.Page < 1 {
		query.Page = 1
	}
	if query.PerPage < 1 || query.PerPage > 200 {
		query.PerPage = defaultPerPage
	}
	query.Search = c.Query("search_term")
	query.SortBy = c.Query("sort_by")
	query.SortDir = c.DefaultQuery("sort_dir", "asc")
	return query
}
