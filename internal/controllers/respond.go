package controllers

import (
	"errors"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/bizadmin/backend/internal/apperr"
	"github.com/bizadmin/backend/internal/logger"
	"github.com/bizadmin/backend/internal/middleware"
	"github.com/bizadmin/backend/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var bindingOnce sync.Once

// ConfigureBinding makes gin's validator report fields by their JSON names.
func ConfigureBinding() {
	bindingOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
}

func respondData(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}

// respondError writes the failure envelope. Internal errors are logged and
// reported with their message only.
func respondError(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	body := gin.H{"success": false}

	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		body["error"] = appErr.Message
		if len(appErr.Fields) > 0 {
			body["fields"] = appErr.Fields
		}
	} else {
		body["error"] = "Internal server error"
	}

	if status >= http.StatusInternalServerError {
		logger.WithError(err, "controllers").
			WithField("request_id", middleware.RequestIDFromContext(c)).
			WithField("path", c.FullPath()).
			Error("Request failed")
	}
	_ = c.Error(err)
	c.JSON(status, body)
}

func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		respondError(c, apperr.FromBinding(err))
		return false
	}
	return true
}

func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		respondError(c, apperr.Validation("Invalid id", map[string]string{name: "must be a positive integer"}))
		return 0, false
	}
	return uint(id), true
}

// queryID reads an optional positive integer query parameter
func queryID(c *gin.Context, name string) (*uint, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return nil, apperr.Validation("Invalid query", map[string]string{name: "must be a positive integer"})
	}
	v := uint(id)
	return &v, nil
}

func queryPage(c *gin.Context) (storage.Page, error) {
	var p storage.Page
	for name, dst := range map[string]*int{"page": &p.Page, "limit": &p.Limit} {
		raw := c.Query(name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return p, apperr.Validation("Invalid query", map[string]string{name: "must be a positive integer"})
		}
		*dst = n
	}
	if p.Limit > storage.MaxPageSize {
		return p, apperr.Validation("Invalid query", map[string]string{"limit": "must be at most " + strconv.Itoa(storage.MaxPageSize)})
	}
	return p.Normalize(), nil
}

type pageResponse struct {
	Items      interface{} `json:"items"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	Limit      int         `json:"limit"`
	TotalPages int         `json:"totalPages"`
}

func newPageResponse(items interface{}, total int64, p storage.Page) pageResponse {
	p = p.Normalize()
	return pageResponse{
		Items:      items,
		Total:      total,
		Page:       p.Page,
		Limit:      p.Limit,
		TotalPages: int((total + int64(p.Limit) - 1) / int64(p.Limit)),
	}
}
