package catalog

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/andriwardana/storefront/backend/internal/repository"
	"github.com/andriwardana/storefront/backend/internal/sanitizer"
)

type fakeCatalogRepo struct {
	categories []repository.Category
	products   []repository.Product
}

func (f *fakeCatalogRepo) ListCategories(ctx context.Context) ([]repository.Category, error) {
	return f.categories, nil
}

func (f *fakeCatalogRepo) GetCategoryBySlug(ctx context.Context, slug string) (*repository.Category, error) {
	for i := range f.categories {
		if f.categories[i].Slug == slug {
			return &f.categories[i], nil
		}
	}
	return nil, repository.ErrCategoryNotFound
}

func (f *fakeCatalogRepo) ListProducts(ctx context.Context, params repository.ListProductParams) ([]repository.Product, int, error) {
	var matched []repository.Product
	for _, p := range f.products {
		if params.CategoryID != nil && (p.CategoryID == nil || *p.CategoryID != *params.CategoryID) {
			continue
		}
		matched = append(matched, p)
	}
	total := len(matched)

	start := (params.Page - 1) * params.Limit
	if start >= len(matched) {
		return nil, total, nil
	}
	end := start + params.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (f *fakeCatalogRepo) GetProductBySlug(ctx context.Context, slug string) (*repository.Product, error) {
	for i := range f.products {
		if f.products[i].Slug == slug {
			return &f.products[i], nil
		}
	}
	return nil, repository.ErrProductNotFound
}

func (f *fakeCatalogRepo) GetProductByID(ctx context.Context, id string) (*repository.Product, error) {
	for i := range f.products {
		if f.products[i].ID.String() == id {
			return &f.products[i], nil
		}
	}
	return nil, repository.ErrProductNotFound
}

type fakePresigner struct {
	calls []string
}

func (f *fakePresigner) PresignImageURL(ctx context.Context, key string) (string, error) {
	f.calls = append(f.calls, key)
	return "https://cdn.example.com/" + key + "?sig=abc", nil
}

func imageKey(key string) *string { return &key }

func testProduct(slug string, categoryID *uuid.UUID) repository.Product {
	return repository.Product{
		ID:              uuid.New(),
		CategoryID:      categoryID,
		Name:            "Product " + slug,
		Slug:            slug,
		DescriptionHTML: "<p>Nice <strong>thing</strong></p>",
		PriceCents:      1999,
		Currency:        "USD",
		Stock:           10,
		IsActive:        true,
	}
}

func TestGetProduct_SanitizesDescriptionAndPresignsImage(t *testing.T) {
	product := testProduct("evil-tee", nil)
	product.DescriptionHTML = `<p>Soft</p><script>alert(1)</script><div onclick="x()">click</div>`
	product.ImageKey = imageKey("products/evil-tee.jpg")

	repo := &fakeCatalogRepo{products: []repository.Product{product}}
	presigner := &fakePresigner{}
	svc := NewService(repo, nil, 0, sanitizer.NewHTMLSanitizer(), presigner, nil)

	view, err := svc.GetProduct(context.Background(), "evil-tee")
	if err != nil {
		t.Fatalf("GetProduct failed: %v", err)
	}

	if strings.Contains(view.DescriptionHTML, "<script") || strings.Contains(view.DescriptionHTML, "onclick") {
		t.Errorf("description not sanitized: %s", view.DescriptionHTML)
	}
	if !strings.Contains(view.DescriptionHTML, "<p>") {
		t.Errorf("benign markup stripped: %s", view.DescriptionHTML)
	}
	if view.ImageURL == "" || !strings.Contains(view.ImageURL, "products/evil-tee.jpg") {
		t.Errorf("image URL = %q, want presigned URL", view.ImageURL)
	}
	if len(presigner.calls) != 1 {
		t.Errorf("presign calls = %d, want 1", len(presigner.calls))
	}
}

func TestGetProduct_NotFound(t *testing.T) {
	svc := NewService(&fakeCatalogRepo{}, nil, 0, nil, nil, nil)

	_, err := svc.GetProduct(context.Background(), "missing")
	if err != repository.ErrProductNotFound {
		t.Errorf("GetProduct = %v, want ErrProductNotFound", err)
	}
}

func TestListProducts_Pagination(t *testing.T) {
	repo := &fakeCatalogRepo{}
	for i := 0; i < 25; i++ {
		repo.products = append(repo.products, testProduct(strings.Repeat("x", i+1), nil))
	}
	svc := NewService(repo, nil, 0, nil, nil, nil)

	page, err := svc.ListProducts(context.Background(), 2, 10, "")
	if err != nil {
		t.Fatalf("ListProducts failed: %v", err)
	}
	if len(page.Products) != 10 {
		t.Errorf("page size = %d, want 10", len(page.Products))
	}
	if page.TotalCount != 25 {
		t.Errorf("total = %d, want 25", page.TotalCount)
	}
	if page.Page != 2 {
		t.Errorf("page = %d, want 2", page.Page)
	}
}

func TestListProducts_ClampsPageAndLimit(t *testing.T) {
	svc := NewService(&fakeCatalogRepo{}, nil, 0, nil, nil, nil)

	page, err := svc.ListProducts(context.Background(), -1, 100000, "")
	if err != nil {
		t.Fatalf("ListProducts failed: %v", err)
	}
	if page.Page != 1 {
		t.Errorf("page = %d, want 1", page.Page)
	}
	if page.Limit != MaxPageSize {
		t.Errorf("limit = %d, want %d", page.Limit, MaxPageSize)
	}
}

func TestListProducts_ByCategory(t *testing.T) {
	catID := uuid.New()
	repo := &fakeCatalogRepo{
		categories: []repository.Category{{ID: catID, Name: "Shirts", Slug: "shirts"}},
		products: []repository.Product{
			testProduct("in-category", &catID),
			testProduct("elsewhere", nil),
		},
	}
	svc := NewService(repo, nil, 0, nil, nil, nil)

	page, err := svc.ListProducts(context.Background(), 1, 10, "shirts")
	if err != nil {
		t.Fatalf("ListProducts failed: %v", err)
	}
	if len(page.Products) != 1 || page.Products[0].Slug != "in-category" {
		t.Errorf("unexpected products: %+v", page.Products)
	}
}

func TestListProducts_UnknownCategoryIsEmptyPage(t *testing.T) {
	svc := NewService(&fakeCatalogRepo{}, nil, 0, nil, nil, nil)

	page, err := svc.ListProducts(context.Background(), 1, 10, "no-such-category")
	if err != nil {
		t.Fatalf("ListProducts failed: %v", err)
	}
	if len(page.Products) != 0 || page.TotalCount != 0 {
		t.Errorf("unexpected page for unknown category: %+v", page)
	}
}

func TestClampCacheTTL(t *testing.T) {
	tests := []struct {
		name          string
		ttl           time.Duration
		presignExpiry time.Duration
		want          time.Duration
	}{
		{"below expiry kept", time.Minute, 15 * time.Minute, time.Minute},
		{"above expiry clamped", 30 * time.Minute, 15 * time.Minute, 15 * time.Minute},
		{"zero falls back to default", 0, 15 * time.Minute, DefaultCacheTTL},
		{"no expiry leaves ttl alone", 30 * time.Minute, 0, 30 * time.Minute},
		{"default clamped by short expiry", 0, time.Minute, time.Minute},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClampCacheTTL(tt.ttl, tt.presignExpiry); got != tt.want {
				t.Errorf("ClampCacheTTL(%v, %v) = %v, want %v", tt.ttl, tt.presignExpiry, got, tt.want)
			}
		})
	}
}

func TestListCategories(t *testing.T) {
	repo := &fakeCatalogRepo{
		categories: []repository.Category{
			{ID: uuid.New(), Name: "Shirts", Slug: "shirts", Description: "Tops"},
		},
	}
	svc := NewService(repo, nil, 0, nil, nil, nil)

	categories, err := svc.ListCategories(context.Background())
	if err != nil {
		t.Fatalf("ListCategories failed: %v", err)
	}
	if len(categories) != 1 || categories[0].Slug != "shirts" {
		t.Errorf("unexpected categories: %+v", categories)
	}
}
