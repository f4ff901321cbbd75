package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/example/marketplace/internal/catalog/store"
	"github.com/example/marketplace/internal/platform/api"
	"github.com/example/marketplace/internal/platform/auth"
	"github.com/example/marketplace/internal/platform/events"
	"github.com/example/marketplace/internal/platform/httpserver"
)

type createProductReq struct {
	Name        string  `json:"name" validate:"required,min=3,max=100"`
	Description string  `json:"description" validate:"omitempty,max=500"`
	Price       float64 `json:"price" validate:"gte=0"`
	Stock       int     `json:"stock" validate:"gte=0"`
	ImageURL    string  `json:"image_url" validate:"omitempty,max=255"`
	CategoryID  string  `json:"category_id" validate:"omitempty,uuid4"`
}

type createServiceReq struct {
	Name           string  `json:"name" validate:"required,min=3,max=150"`
	Description    string  `json:"description" validate:"omitempty,max=1000"`
	EstimatedPrice float64 `json:"estimated_price" validate:"gte=0"`
	ImageURL       string  `json:"image_url" validate:"omitempty,max=255"`
	CategoryID     string  `json:"category_id" validate:"omitempty,uuid4"`
}

// CreateProduct lists a new product owned by the caller.
func CreateProduct(cs store.CatalogStore, ev *events.Publisher, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())

		userID, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			api.Unauthorized(w, "AUTH_MISSING", "authentication required", rid)
			return
		}

		var req createProductReq
		if !decodeJSON(w, r, rid, &req) {
			return
		}
		if err := validate.Struct(req); err != nil {
			api.BadRequest(w, "VALIDATION_FAILED", "invalid product payload", rid, validationDetails(err))
			return
		}
		if !categoryOK(w, r, cs, rid, req.CategoryID, log) {
			return
		}

		p, err := cs.CreateProduct(r.Context(), store.Product{
			Name:        req.Name,
			Description: req.Description,
			Price:       req.Price,
			Stock:       req.Stock,
			ImageURL:    req.ImageURL,
			CategoryID:  req.CategoryID,
			OwnerID:     userID,
		})
		if err != nil {
			log.Error("create product", zap.Error(err))
			api.Internal(w, rid)
			return
		}

		ev.Publish(events.SubjectListingCreated, "listing_created", userID, map[string]any{
			"listing_id": p.ID,
			"kind":       "product",
		})
		api.WriteJSON(w, http.StatusCreated, p)
	}
}

// GetProduct returns a single product.
func GetProduct(cs store.CatalogStore, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())

		id := chi.URLParam(r, "product_id")
		if id == "" {
			api.BadRequest(w, "MISSING_ID", "product_id is required", rid, nil)
			return
		}
		p, err := cs.ProductByID(r.Context(), id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				api.NotFound(w, "PRODUCT_NOT_FOUND", "product not found", rid)
				return
			}
			log.Error("get product", zap.Error(err))
			api.Internal(w, rid)
			return
		}
		api.WriteJSON(w, http.StatusOK, p)
	}
}

// ListProducts returns one page of products, newest first.
func ListProducts(cs store.CatalogStore, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())

		pg := pageParams(r)
		items, total, err := cs.ListProducts(r.Context(), pg)
		if err != nil {
			log.Error("list products", zap.Error(err))
			api.Internal(w, rid)
			return
		}
		api.WriteJSON(w, http.StatusOK, map[string]any{
			"items": items, "total_count": total, "page": pg.Page, "page_size": pg.Size,
		})
	}
}

// DeleteProduct removes a product. Only the owner or an admin may delete.
func DeleteProduct(cs store.CatalogStore, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())

		userID, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			api.Unauthorized(w, "AUTH_MISSING", "authentication required", rid)
			return
		}
		id := chi.URLParam(r, "product_id")
		if id == "" {
			api.BadRequest(w, "MISSING_ID", "product_id is required", rid, nil)
			return
		}

		p, err := cs.ProductByID(r.Context(), id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				api.NotFound(w, "PRODUCT_NOT_FOUND", "product not found", rid)
				return
			}
			log.Error("get product", zap.Error(err))
			api.Internal(w, rid)
			return
		}
		if p.OwnerID != userID && !auth.RolesFromContext(r.Context()).Has(auth.RoleAdmin) {
			api.Forbidden(w, "FORBIDDEN", "only the owner or an admin may delete a listing", rid)
			return
		}

		if err := cs.DeleteProduct(r.Context(), id); err != nil && !errors.Is(err, store.ErrNotFound) {
			log.Error("delete product", zap.Error(err))
			api.Internal(w, rid)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// CreateService lists a new service offering owned by the caller.
func CreateService(cs store.CatalogStore, ev *events.Publisher, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())

		userID, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			api.Unauthorized(w, "AUTH_MISSING", "authentication required", rid)
			return
		}

		var req createServiceReq
		if !decodeJSON(w, r, rid, &req) {
			return
		}
		if err := validate.Struct(req); err != nil {
			api.BadRequest(w, "VALIDATION_FAILED", "invalid service payload", rid, validationDetails(err))
			return
		}
		if !categoryOK(w, r, cs, rid, req.CategoryID, log) {
			return
		}

		sv, err := cs.CreateService(r.Context(), store.Service{
			Name:           req.Name,
			Description:    req.Description,
			EstimatedPrice: req.EstimatedPrice,
			ImageURL:       req.ImageURL,
			CategoryID:     req.CategoryID,
			OwnerID:        userID,
		})
		if err != nil {
			log.Error("create service", zap.Error(err))
			api.Internal(w, rid)
			return
		}

		ev.Publish(events.SubjectListingCreated, "listing_created", userID, map[string]any{
			"listing_id": sv.ID,
			"kind":       "service",
		})
		api.WriteJSON(w, http.StatusCreated, sv)
	}
}

// GetService returns a single service.
func GetService(cs store.CatalogStore, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())

		id := chi.URLParam(r, "service_id")
		if id == "" {
			api.BadRequest(w, "MISSING_ID", "service_id is required", rid, nil)
			return
		}
		sv, err := cs.ServiceByID(r.Context(), id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				api.NotFound(w, "SERVICE_NOT_FOUND", "service not found", rid)
				return
			}
			log.Error("get service", zap.Error(err))
			api.Internal(w, rid)
			return
		}
		api.WriteJSON(w, http.StatusOK, sv)
	}
}

// ListServices returns one page of services, newest first.
func ListServices(cs store.CatalogStore, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())

		pg := pageParams(r)
		items, total, err := cs.ListServices(r.Context(), pg)
		if err != nil {
			log.Error("list services", zap.Error(err))
			api.Internal(w, rid)
			return
		}
		api.WriteJSON(w, http.StatusOK, map[string]any{
			"items": items, "total_count": total, "page": pg.Page, "page_size": pg.Size,
		})
	}
}

// DeleteService removes a service. Only the owner or an admin may delete.
func DeleteService(cs store.CatalogStore, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())

		userID, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			api.Unauthorized(w, "AUTH_MISSING", "authentication required", rid)
			return
		}
		id := chi.URLParam(r, "service_id")
		if id == "" {
			api.BadRequest(w, "MISSING_ID", "service_id is required", rid, nil)
			return
		}

		sv, err := cs.ServiceByID(r.Context(), id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				api.NotFound(w, "SERVICE_NOT_FOUND", "service not found", rid)
				return
			}
			log.Error("get service", zap.Error(err))
			api.Internal(w, rid)
			return
		}
		if sv.OwnerID != userID && !auth.RolesFromContext(r.Context()).Has(auth.RoleAdmin) {
			api.Forbidden(w, "FORBIDDEN", "only the owner or an admin may delete a listing", rid)
			return
		}

		if err := cs.DeleteService(r.Context(), id); err != nil && !errors.Is(err, store.ErrNotFound) {
			log.Error("delete service", zap.Error(err))
			api.Internal(w, rid)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// categoryOK rejects a reference to a category that does not exist. An empty
// id is allowed; categories are optional on listings.
func categoryOK(w http.ResponseWriter, r *http.Request, cs store.CatalogStore, rid, categoryID string, log *zap.Logger) bool {
	if categoryID == "" {
		return true
	}
	ok, err := cs.CategoryExists(r.Context(), categoryID)
	if err != nil {
		log.Error("category exists", zap.Error(err))
		api.Internal(w, rid)
		return false
	}
	if !ok {
		api.BadRequest(w, "UNKNOWN_CATEGORY", "category does not exist", rid, nil)
		return false
	}
	return true
}
