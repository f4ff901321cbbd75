package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/example/marketplace/internal/platform/auth"
	"github.com/example/marketplace/internal/ratings/engine"
	"github.com/example/marketplace/internal/ratings/store"
)

// Fixed UUIDv4 listing ids so payload validation passes.
const (
	prodID = "0b9f1c1e-5a3f-4a7e-9b2a-1c2d3e4f5a6b"
	svcID  = "1a2b3c4d-5e6f-4a1b-8c2d-3e4f5a6b7c8d"
	// Valid UUID with no listing behind it.
	ghostID = "9e8d7c6b-5a4f-4e3d-8c2b-1a0f9e8d7c6b"
)

// ─── stub collaborators ───────────────────────────────────────────────────────

type stubListings struct {
	products map[string]engine.Listing
	services map[string]engine.Listing
}

func (s stubListings) ProductByID(_ context.Context, id string) (engine.Listing, error) {
	if l, ok := s.products[id]; ok {
		return l, nil
	}
	return engine.Listing{}, engine.ErrNotFound
}

func (s stubListings) ServiceByID(_ context.Context, id string) (engine.Listing, error) {
	if l, ok := s.services[id]; ok {
		return l, nil
	}
	return engine.Listing{}, engine.ErrNotFound
}

func (s stubListings) ProductOwner(ctx context.Context, id string) (string, error) {
	l, err := s.ProductByID(ctx, id)
	return l.OwnerID, err
}

func (s stubListings) ServiceOwner(ctx context.Context, id string) (string, error) {
	l, err := s.ServiceByID(ctx, id)
	return l.OwnerID, err
}

type stubUsers struct{ names map[string]string }

func (s stubUsers) UsernameByID(_ context.Context, id string) (string, error) {
	if n, ok := s.names[id]; ok {
		return n, nil
	}
	return "", engine.ErrNotFound
}

func (s stubUsers) Exists(_ context.Context, id string) (bool, error) {
	_, ok := s.names[id]
	return ok, nil
}

func newTestEngine() *engine.Engine {
	listings := stubListings{
		products: map[string]engine.Listing{
			prodID: {ID: prodID, Name: "Walnut desk", OwnerID: "seller-1"},
		},
		services: map[string]engine.Listing{
			svcID: {ID: svcID, Name: "Desk assembly", OwnerID: "seller-1"},
		},
	}
	users := stubUsers{names: map[string]string{
		"buyer-1":  "alice",
		"buyer-2":  "bob",
		"seller-1": "carol",
		"admin-1":  "dave",
	}}
	ratings := store.NewInMemoryRatingStore(listings)
	return engine.New(ratings, listings, users, nil, zap.NewNop())
}

// ─── helpers ──────────────────────────────────────────────────────────────────

// newReq builds a request with optional JSON body and chi URL params.
func newReq(method, url string, body []byte, params map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, url, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, url, nil)
	}
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

// asUser injects an authenticated user and roles into the request context.
func asUser(req *http.Request, userID string, roles ...string) *http.Request {
	ctx := auth.WithUserID(req.Context(), userID)
	if len(roles) > 0 {
		ctx = auth.WithRoles(ctx, auth.NewRoleSet(roles...))
	}
	return req.WithContext(ctx)
}

func createBody(t *testing.T, fields map[string]any) []byte {
	t.Helper()
	b, err := json.Marshal(fields)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	return b
}

func submitRating(t *testing.T, e *engine.Engine, userID string, fields map[string]any) engine.RatingView {
	t.Helper()
	req := asUser(newReq(http.MethodPost, "/v1/ratings", createBody(t, fields), nil), userID)
	rr := httptest.NewRecorder()
	CreateRating(e).ServeHTTP(rr, req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var view engine.RatingView
	if err := json.NewDecoder(rr.Body).Decode(&view); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return view
}

// ─── CreateRating ─────────────────────────────────────────────────────────────

func TestCreateRating_OK(t *testing.T) {
	e := newTestEngine()
	view := submitRating(t, e, "buyer-1", map[string]any{
		"product_id": prodID,
		"score":      4,
		"comment":    "sturdy",
	})
	if view.ID == "" || view.RaterUsername != "alice" || view.ProductName != "Walnut desk" {
		t.Fatalf("unexpected view: %+v", view)
	}
	if view.ProviderID != "seller-1" {
		t.Fatalf("expected provider seller-1, got %q", view.ProviderID)
	}
}

func TestCreateRating_Unauthenticated(t *testing.T) {
	e := newTestEngine()
	req := newReq(http.MethodPost, "/v1/ratings", createBody(t, map[string]any{"product_id": prodID, "score": 4}), nil)
	rr := httptest.NewRecorder()
	CreateRating(e).ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestCreateRating_InvalidJSON(t *testing.T) {
	e := newTestEngine()
	req := asUser(newReq(http.MethodPost, "/v1/ratings", []byte("not json"), nil), "buyer-1")
	rr := httptest.NewRecorder()
	CreateRating(e).ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestCreateRating_ScoreOutOfRange(t *testing.T) {
	e := newTestEngine()
	for _, score := range []int{0, 6, -2} {
		req := asUser(newReq(http.MethodPost, "/v1/ratings",
			createBody(t, map[string]any{"product_id": prodID, "score": score}), nil), "buyer-1")
		rr := httptest.NewRecorder()
		CreateRating(e).ServeHTTP(rr, req)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("score %d: expected 400, got %d: %s", score, rr.Code, rr.Body.String())
		}
	}
}

func TestCreateRating_BothTargets(t *testing.T) {
	e := newTestEngine()
	req := asUser(newReq(http.MethodPost, "/v1/ratings",
		createBody(t, map[string]any{"product_id": prodID, "service_id": svcID, "score": 3}), nil), "buyer-1")
	rr := httptest.NewRecorder()
	CreateRating(e).ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestCreateRating_UnknownProduct(t *testing.T) {
	e := newTestEngine()
	req := asUser(newReq(http.MethodPost, "/v1/ratings",
		createBody(t, map[string]any{"product_id": ghostID, "score": 3}), nil), "buyer-1")
	rr := httptest.NewRecorder()
	CreateRating(e).ServeHTTP(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestCreateRating_SelfRating(t *testing.T) {
	e := newTestEngine()
	req := asUser(newReq(http.MethodPost, "/v1/ratings",
		createBody(t, map[string]any{"product_id": prodID, "score": 5}), nil), "seller-1")
	rr := httptest.NewRecorder()
	CreateRating(e).ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestCreateRating_Duplicate(t *testing.T) {
	e := newTestEngine()
	submitRating(t, e, "buyer-1", map[string]any{"product_id": prodID, "score": 4})

	req := asUser(newReq(http.MethodPost, "/v1/ratings",
		createBody(t, map[string]any{"product_id": prodID, "score": 2}), nil), "buyer-1")
	rr := httptest.NewRecorder()
	CreateRating(e).ServeHTTP(rr, req)
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", rr.Code, rr.Body.String())
	}
}

// ─── DeleteRating ─────────────────────────────────────────────────────────────

func TestDeleteRating_ByAuthor(t *testing.T) {
	e := newTestEngine()
	view := submitRating(t, e, "buyer-1", map[string]any{"service_id": svcID, "score": 5})

	req := asUser(newReq(http.MethodDelete, "/v1/ratings/"+view.ID, nil,
		map[string]string{"rating_id": view.ID}), "buyer-1", auth.RoleUser)
	rr := httptest.NewRecorder()
	DeleteRating(e).ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestDeleteRating_ByAdmin(t *testing.T) {
	e := newTestEngine()
	view := submitRating(t, e, "buyer-1", map[string]any{"product_id": prodID, "score": 4})

	req := asUser(newReq(http.MethodDelete, "/v1/ratings/"+view.ID, nil,
		map[string]string{"rating_id": view.ID}), "admin-1", auth.RoleAdmin)
	rr := httptest.NewRecorder()
	DeleteRating(e).ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
}

func TestDeleteRating_ByStranger(t *testing.T) {
	e := newTestEngine()
	view := submitRating(t, e, "buyer-1", map[string]any{"product_id": prodID, "score": 4})

	req := asUser(newReq(http.MethodDelete, "/v1/ratings/"+view.ID, nil,
		map[string]string{"rating_id": view.ID}), "buyer-2", auth.RoleUser)
	rr := httptest.NewRecorder()
	DeleteRating(e).ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
}

func TestDeleteRating_NotFound(t *testing.T) {
	e := newTestEngine()
	req := asUser(newReq(http.MethodDelete, "/v1/ratings/"+ghostID, nil,
		map[string]string{"rating_id": ghostID}), "buyer-1", auth.RoleUser)
	rr := httptest.NewRecorder()
	DeleteRating(e).ServeHTTP(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestDeleteRating_Unauthenticated(t *testing.T) {
	e := newTestEngine()
	req := newReq(http.MethodDelete, "/v1/ratings/"+ghostID, nil, map[string]string{"rating_id": ghostID})
	rr := httptest.NewRecorder()
	DeleteRating(e).ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

// ─── Lists ────────────────────────────────────────────────────────────────────

func TestListProductRatings_OK(t *testing.T) {
	e := newTestEngine()
	submitRating(t, e, "buyer-1", map[string]any{"product_id": prodID, "score": 4})
	submitRating(t, e, "buyer-2", map[string]any{"product_id": prodID, "score": 2})

	req := newReq(http.MethodGet, "/v1/ratings/product/"+prodID, nil, map[string]string{"product_id": prodID})
	rr := httptest.NewRecorder()
	ListProductRatings(e).ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var page engine.RatingPage
	if err := json.NewDecoder(rr.Body).Decode(&page); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if page.TotalCount != 2 || len(page.Items) != 2 {
		t.Fatalf("expected 2 ratings, got %+v", page)
	}
	if page.PageSize != 5 {
		t.Fatalf("expected default page size 5, got %d", page.PageSize)
	}
}

func TestListProductRatings_PagingParams(t *testing.T) {
	e := newTestEngine()
	submitRating(t, e, "buyer-1", map[string]any{"product_id": prodID, "score": 4})
	submitRating(t, e, "buyer-2", map[string]any{"product_id": prodID, "score": 2})

	req := newReq(http.MethodGet, "/v1/ratings/product/"+prodID+"?page=2&size=1", nil,
		map[string]string{"product_id": prodID})
	rr := httptest.NewRecorder()
	ListProductRatings(e).ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	var page engine.RatingPage
	_ = json.NewDecoder(rr.Body).Decode(&page)
	if page.Page != 2 || page.PageSize != 1 || len(page.Items) != 1 || page.TotalCount != 2 {
		t.Fatalf("unexpected page: %+v", page)
	}
}

func TestListProductRatings_NotFound(t *testing.T) {
	e := newTestEngine()
	req := newReq(http.MethodGet, "/v1/ratings/product/"+ghostID, nil, map[string]string{"product_id": ghostID})
	rr := httptest.NewRecorder()
	ListProductRatings(e).ServeHTTP(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestListServiceRatings_OK(t *testing.T) {
	e := newTestEngine()
	submitRating(t, e, "buyer-1", map[string]any{"service_id": svcID, "score": 5})

	req := newReq(http.MethodGet, "/v1/ratings/service/"+svcID, nil, map[string]string{"service_id": svcID})
	rr := httptest.NewRecorder()
	ListServiceRatings(e).ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var page engine.RatingPage
	_ = json.NewDecoder(rr.Body).Decode(&page)
	if page.TotalCount != 1 || page.Items[0].ServiceName != "Desk assembly" {
		t.Fatalf("unexpected page: %+v", page)
	}
}

func TestListRaterRatings_Self(t *testing.T) {
	e := newTestEngine()
	submitRating(t, e, "buyer-1", map[string]any{"product_id": prodID, "score": 4})

	req := asUser(newReq(http.MethodGet, "/v1/ratings/user/buyer-1", nil,
		map[string]string{"rater_id": "buyer-1"}), "buyer-1", auth.RoleUser)
	rr := httptest.NewRecorder()
	ListRaterRatings(e).ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var page engine.RatingPage
	_ = json.NewDecoder(rr.Body).Decode(&page)
	if page.TotalCount != 1 || page.PageSize != 10 {
		t.Fatalf("unexpected page: %+v", page)
	}
	if page.Items[0].RaterUsername != "alice" {
		t.Fatalf("expected username enrichment, got %+v", page.Items[0])
	}
}

func TestListRaterRatings_Stranger(t *testing.T) {
	e := newTestEngine()
	req := asUser(newReq(http.MethodGet, "/v1/ratings/user/buyer-1", nil,
		map[string]string{"rater_id": "buyer-1"}), "buyer-2", auth.RoleUser)
	rr := httptest.NewRecorder()
	ListRaterRatings(e).ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
}
