package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Catalog repository errors
var (
	ErrProductNotFound  = errors.New("product not found")
	ErrCategoryNotFound = errors.New("category not found")
)

// CatalogRepository defines the read interface for the product catalog.
// Listing is plain paged CRUD; there is no search or filtering logic here.
type CatalogRepository interface {
	ListCategories(ctx context.Context) ([]Category, error)
	GetCategoryBySlug(ctx context.Context, slug string) (*Category, error)
	ListProducts(ctx context.Context, params ListProductParams) ([]Product, int, error)
	GetProductBySlug(ctx context.Context, slug string) (*Product, error)
	GetProductByID(ctx context.Context, id string) (*Product, error)
}

// CatalogRepo implements CatalogRepository using PostgreSQL via sqlx
type CatalogRepo struct {
	db *sqlx.DB
}

// NewCatalogRepo creates a new CatalogRepo instance
func NewCatalogRepo(db *sqlx.DB) *CatalogRepo {
	return &CatalogRepo{db: db}
}

// ListCategories returns all categories ordered by name
func (r *CatalogRepo) ListCategories(ctx context.Context) ([]Category, error) {
	query := `
		SELECT id, name, slug, description, created_at
		FROM categories
		ORDER BY name
	`

	var categories []Category
	if err := r.db.SelectContext(ctx, &categories, query); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

// GetCategoryBySlug retrieves a single category by its slug
func (r *CatalogRepo) GetCategoryBySlug(ctx context.Context, slug string) (*Category, error) {
	query := `
		SELECT id, name, slug, description, created_at
		FROM categories
		WHERE slug = $1
	`

	category := &Category{}
	if err := r.db.GetContext(ctx, category, query, slug); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("get category: %w", err)
	}
	return category, nil
}

// ListProducts returns a page of active products, newest first, plus the total count
func (r *CatalogRepo) ListProducts(ctx context.Context, params ListProductParams) ([]Product, int, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.Limit < 1 || params.Limit > 100 {
		params.Limit = 20
	}
	offset := (params.Page - 1) * params.Limit

	where := `is_active`
	args := []interface{}{}
	if params.CategoryID != nil {
		where += ` AND category_id = $1`
		args = append(args, *params.CategoryID)
	}

	countQuery := `SELECT COUNT(*) FROM products WHERE ` + where
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT id, category_id, name, slug, description_html, price_cents, currency,
		       image_key, stock, is_active, created_at, updated_at
		FROM products
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, where, len(args)+1, len(args)+2)
	args = append(args, params.Limit, offset)

	var products []Product
	if err := r.db.SelectContext(ctx, &products, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}

	return products, total, nil
}

// GetProductBySlug retrieves a single active product by its slug
func (r *CatalogRepo) GetProductBySlug(ctx context.Context, slug string) (*Product, error) {
	query := `
		SELECT id, category_id, name, slug, description_html, price_cents, currency,
		       image_key, stock, is_active, created_at, updated_at
		FROM products
		WHERE slug = $1 AND is_active
	`

	return r.getProduct(ctx, query, slug)
}

// GetProductByID retrieves a single active product by its ID
func (r *CatalogRepo) GetProductByID(ctx context.Context, id string) (*Product, error) {
	query := `
		SELECT id, category_id, name, slug, description_html, price_cents, currency,
		       image_key, stock, is_active, created_at, updated_at
		FROM products
		WHERE id = $1 AND is_active
	`

	return r.getProduct(ctx, query, id)
}

func (r *CatalogRepo) getProduct(ctx context.Context, query string, arg interface{}) (*Product, error) {
	product := &Product{}
	if err := r.db.GetContext(ctx, product, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return product, nil
}
