package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/enrollment-sync-api/internal/middleware"
	"github.com/noah-isme/enrollment-sync-api/internal/models"
	appErrors "github.com/noah-isme/enrollment-sync-api/pkg/errors"
	"github.com/noah-isme/enrollment-sync-api/pkg/response"
)

// requireClaims writes a 401 and returns nil when the request is anonymous.
func requireClaims(c *gin.Context) *models.JWTClaims {
	claims := middleware.Claims(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return nil
	}
	return claims
}

func paginate[T any](items []T, page, size int) ([]T, *models.Pagination) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 100
	}
	meta := &models.Pagination{Page: page, PageSize: size, TotalCount: len(items)}
	start := (page - 1) * size
	if start >= len(items) {
		return []T{}, meta
	}
	end := start + size
	if end > len(items) {
		end = len(items)
	}
	return items[start:end], meta
}
