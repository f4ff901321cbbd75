// Package handlers exposes the rating endpoints.
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/example/marketplace/internal/platform/api"
	"github.com/example/marketplace/internal/platform/auth"
	"github.com/example/marketplace/internal/platform/httpserver"
	"github.com/example/marketplace/internal/ratings/engine"
)

var validate = validator.New()

type createRatingReq struct {
	ProductID string `json:"product_id" validate:"omitempty,uuid4"`
	ServiceID string `json:"service_id" validate:"omitempty,uuid4"`
	Score     int    `json:"score" validate:"required,min=1,max=5"`
	Comment   string `json:"comment" validate:"omitempty,max=500"`
}

// CreateRating submits a rating for a product or service.
func CreateRating(e *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())

		userID, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			api.Unauthorized(w, "AUTH_MISSING", "authentication required", rid)
			return
		}

		var req createRatingReq
		if !decodeJSON(w, r, rid, &req) {
			return
		}
		if err := validate.Struct(req); err != nil {
			api.BadRequest(w, "VALIDATION_FAILED", "invalid rating payload", rid, validationDetails(err))
			return
		}

		view, err := e.Create(r.Context(), userID, engine.CreateInput{
			ProductID: req.ProductID,
			ServiceID: req.ServiceID,
			Score:     req.Score,
			Comment:   req.Comment,
		})
		if err != nil {
			writeEngineError(w, rid, err)
			return
		}
		api.WriteJSON(w, http.StatusCreated, view)
	}
}

// DeleteRating removes a rating owned by the caller, or any rating when the
// caller is an admin.
func DeleteRating(e *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())

		userID, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			api.Unauthorized(w, "AUTH_MISSING", "authentication required", rid)
			return
		}
		ratingID := chi.URLParam(r, "rating_id")
		if ratingID == "" {
			api.BadRequest(w, "MISSING_ID", "rating_id is required", rid, nil)
			return
		}

		if err := e.Delete(r.Context(), userID, auth.RolesFromContext(r.Context()), ratingID); err != nil {
			writeEngineError(w, rid, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// ListProductRatings returns a page of ratings for a product, newest first.
func ListProductRatings(e *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())

		productID := chi.URLParam(r, "product_id")
		if productID == "" {
			api.BadRequest(w, "MISSING_ID", "product_id is required", rid, nil)
			return
		}
		page, size := pageParams(r)

		out, err := e.ListForProduct(r.Context(), productID, page, size)
		if err != nil {
			writeEngineError(w, rid, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, out)
	}
}

// ListServiceRatings returns a page of ratings for a service, newest first.
func ListServiceRatings(e *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())

		serviceID := chi.URLParam(r, "service_id")
		if serviceID == "" {
			api.BadRequest(w, "MISSING_ID", "service_id is required", rid, nil)
			return
		}
		page, size := pageParams(r)

		out, err := e.ListForService(r.Context(), serviceID, page, size)
		if err != nil {
			writeEngineError(w, rid, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, out)
	}
}

// ListRaterRatings returns a page of the ratings a user has authored. Only the
// user themselves or an admin may read it.
func ListRaterRatings(e *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())

		userID, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			api.Unauthorized(w, "AUTH_MISSING", "authentication required", rid)
			return
		}
		raterID := chi.URLParam(r, "rater_id")
		if raterID == "" {
			api.BadRequest(w, "MISSING_ID", "rater_id is required", rid, nil)
			return
		}
		page, size := pageParams(r)

		out, err := e.ListByRater(r.Context(), userID, auth.RolesFromContext(r.Context()), raterID, page, size)
		if err != nil {
			writeEngineError(w, rid, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, out)
	}
}

// validationDetails flattens validator errors into a field -> rule map.
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
