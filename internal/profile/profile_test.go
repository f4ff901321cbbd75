package profile

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/example/marketplace/internal/accounts"
	accstore "github.com/example/marketplace/internal/accounts/store"
	"github.com/example/marketplace/internal/catalog"
	catstore "github.com/example/marketplace/internal/catalog/store"
	"github.com/example/marketplace/internal/ratings/engine"
	ratstore "github.com/example/marketplace/internal/ratings/store"
)

type fixture struct {
	users    *accstore.InMemoryUserStore
	catalog  *catstore.InMemoryCatalogStore
	engine   *engine.Engine
	seller   accstore.User
	buyers   []accstore.User
	product  catstore.Product
	service  catstore.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	users := accstore.NewInMemoryUserStore()
	cs := catstore.NewInMemoryCatalogStore()
	dir := catalog.Directory{Store: cs}
	ratings := ratstore.NewInMemoryRatingStore(dir)
	e := engine.New(ratings, dir, accounts.Directory{Users: users}, nil, zap.NewNop())

	seller, err := users.Create(ctx, accstore.CreateUserParams{
		Username: "carol", Email: "carol@example.com", PasswordHash: "x",
		FirstName: "Carol", LastName: "Smith", Location: "Lisbon",
		Roles: []string{"user", "provider"},
	})
	if err != nil {
		t.Fatalf("create seller: %v", err)
	}

	var buyers []accstore.User
	for _, name := range []string{"alice", "bob", "dave"} {
		u, err := users.Create(ctx, accstore.CreateUserParams{
			Username: name, Email: name + "@example.com", PasswordHash: "x", Roles: []string{"user"},
		})
		if err != nil {
			t.Fatalf("create buyer %s: %v", name, err)
		}
		buyers = append(buyers, u)
	}

	product, err := cs.CreateProduct(ctx, catstore.Product{Name: "Walnut desk", Price: 249, OwnerID: seller.ID})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	service, err := cs.CreateService(ctx, catstore.Service{Name: "Restoration", EstimatedPrice: 80, OwnerID: seller.ID})
	if err != nil {
		t.Fatalf("create service: %v", err)
	}

	return &fixture{users: users, catalog: cs, engine: e, seller: seller, buyers: buyers, product: product, service: service}
}

func getProfile(t *testing.T, f *fixture, username string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/v1/users/"+username+"/profile", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("username", username)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	rr := httptest.NewRecorder()
	Handler(Assembler{Users: f.users, Stats: f.engine}, zap.NewNop()).ServeHTTP(rr, req)
	return rr
}

func TestProfile_WithRatings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Product ratings {5, 4, 3}; service ratings {1, 2}.
	for i, score := range []int{5, 4, 3} {
		if _, err := f.engine.Create(ctx, f.buyers[i].ID, engine.CreateInput{ProductID: f.product.ID, Score: score}); err != nil {
			t.Fatalf("product rating: %v", err)
		}
	}
	for i, score := range []int{1, 2} {
		if _, err := f.engine.Create(ctx, f.buyers[i].ID, engine.CreateInput{ServiceID: f.service.ID, Score: score}); err != nil {
			t.Fatalf("service rating: %v", err)
		}
	}

	rr := getProfile(t, f, "carol")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var p SellerProfile
	if err := json.NewDecoder(rr.Body).Decode(&p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.Username != "carol" || p.UserID != f.seller.ID || p.Location != "Lisbon" {
		t.Fatalf("unexpected identity: %+v", p)
	}
	if p.ProductRatingAvg != 4.0 || p.ProductRatingCount != 3 {
		t.Fatalf("product stats: expected 4.0/3, got %v/%d", p.ProductRatingAvg, p.ProductRatingCount)
	}
	if p.ServiceRatingAvg != 1.5 || p.ServiceRatingCount != 2 {
		t.Fatalf("service stats: expected 1.5/2, got %v/%d", p.ServiceRatingAvg, p.ServiceRatingCount)
	}
	if p.OverallRatingAvg != 3.0 || p.TotalRatingCount != 5 {
		t.Fatalf("overall: expected 3.0/5, got %v/%d", p.OverallRatingAvg, p.TotalRatingCount)
	}
}

func TestProfile_NoRatings(t *testing.T) {
	f := newFixture(t)

	rr := getProfile(t, f, "carol")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var p SellerProfile
	_ = json.NewDecoder(rr.Body).Decode(&p)
	if p.ProviderStats != (engine.ProviderStats{}) {
		t.Fatalf("expected zero stats, got %+v", p.ProviderStats)
	}
}

func TestProfile_CaseInsensitiveUsername(t *testing.T) {
	f := newFixture(t)
	rr := getProfile(t, f, "CAROL")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

func TestProfile_UnknownUser(t *testing.T) {
	f := newFixture(t)
	rr := getProfile(t, f, "nobody")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}
