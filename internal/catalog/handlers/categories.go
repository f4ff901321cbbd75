// Package handlers exposes the catalog endpoints.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/example/marketplace/internal/catalog/store"
	"github.com/example/marketplace/internal/platform/api"
	"github.com/example/marketplace/internal/platform/httpserver"
)

const maxRequestBodyBytes = 1 << 20 // 1 MiB

var validate = validator.New()

func decodeJSON[T any](w http.ResponseWriter, r *http.Request, rid string, dst *T) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)).Decode(dst); err != nil {
		api.BadRequest(w, "INVALID_JSON", "Invalid JSON", rid, nil)
		return false
	}
	return true
}

func validationDetails(err error) map[string]any {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return nil
	}
	details := make(map[string]any, len(verrs))
	for _, fe := range verrs {
		details[fe.Field()] = fe.Tag()
	}
	return details
}

func pageParams(r *http.Request) store.ListParams {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	size, _ := strconv.Atoi(r.URL.Query().Get("size"))
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 20
	}
	if size > 100 {
		size = 100
	}
	return store.ListParams{Page: page, Size: size}
}

type createCategoryReq struct {
	Name        string `json:"name" validate:"required,min=2,max=100"`
	Description string `json:"description" validate:"omitempty,max=500"`
}

// CreateCategory adds a catalog category. Admin only; enforced by router
// middleware.
func CreateCategory(cs store.CatalogStore, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())

		var req createCategoryReq
		if !decodeJSON(w, r, rid, &req) {
			return
		}
		if err := validate.Struct(req); err != nil {
			api.BadRequest(w, "VALIDATION_FAILED", "invalid category payload", rid, validationDetails(err))
			return
		}

		c, err := cs.CreateCategory(r.Context(), store.Category{Name: req.Name, Description: req.Description})
		if err != nil {
			if errors.Is(err, store.ErrConflict) {
				api.Conflict(w, "CATEGORY_EXISTS", "category already exists", rid, nil)
				return
			}
			log.Error("create category", zap.Error(err))
			api.Internal(w, rid)
			return
		}
		api.WriteJSON(w, http.StatusCreated, c)
	}
}

// ListCategories returns all categories, name ascending.
func ListCategories(cs store.CatalogStore, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())

		out, err := cs.ListCategories(r.Context())
		if err != nil {
			log.Error("list categories", zap.Error(err))
			api.Internal(w, rid)
			return
		}
		if out == nil {
			out = []store.Category{}
		}
		api.WriteJSON(w, http.StatusOK, map[string]any{"items": out, "total_count": len(out)})
	}
}
