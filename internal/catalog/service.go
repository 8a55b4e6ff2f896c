// Package catalog serves the public product catalog.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/andriwardana/storefront/backend/internal/metrics"
	"github.com/andriwardana/storefront/backend/internal/repository"
	"github.com/andriwardana/storefront/backend/internal/sanitizer"
)

const (
	productCacheKeyPrefix = "catalog:product:"

	// DefaultCacheTTL is used when no cache TTL is configured
	DefaultCacheTTL = 5 * time.Minute

	// DefaultPageSize is used when the client does not pass a limit
	DefaultPageSize = 20
	// MaxPageSize caps the page size a client can request
	MaxPageSize = 100
)

// ClampCacheTTL bounds a configured cache TTL so cached product views never
// outlive the pre-signed image URLs embedded in them.
func ClampCacheTTL(ttl, presignExpiry time.Duration) time.Duration {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if presignExpiry > 0 && ttl > presignExpiry {
		return presignExpiry
	}
	return ttl
}

// ImagePresigner turns stored image keys into short-lived download URLs
type ImagePresigner interface {
	PresignImageURL(ctx context.Context, key string) (string, error)
}

// CategoryView is a category as served to clients
type CategoryView struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description,omitempty"`
}

// ProductView is a product as served to clients. DescriptionHTML is
// sanitized and ImageURL is a pre-signed, expiring link.
type ProductView struct {
	ID              uuid.UUID  `json:"id"`
	CategoryID      *uuid.UUID `json:"categoryId,omitempty"`
	Name            string     `json:"name"`
	Slug            string     `json:"slug"`
	DescriptionHTML string     `json:"descriptionHtml"`
	PriceCents      int64      `json:"priceCents"`
	Currency        string     `json:"currency"`
	ImageURL        string     `json:"imageUrl,omitempty"`
	Stock           int        `json:"stock"`
}

// ProductPage is one page of the product listing
type ProductPage struct {
	Products   []ProductView `json:"products"`
	Page       int           `json:"page"`
	Limit      int           `json:"limit"`
	TotalCount int           `json:"totalCount"`
}

// Service reads the catalog, sanitizing descriptions and caching
// product detail lookups in Redis.
type Service struct {
	repo      repository.CatalogRepository
	cache     *redis.Client
	cacheTTL  time.Duration
	sanitizer sanitizer.HTMLSanitizer
	images    ImagePresigner
	logger    *slog.Logger
}

// NewService creates a catalog service. cache and images may be nil, in
// which case caching and image URLs are skipped. A non-positive cacheTTL
// falls back to DefaultCacheTTL.
func NewService(repo repository.CatalogRepository, cache *redis.Client, cacheTTL time.Duration, san sanitizer.HTMLSanitizer, images ImagePresigner, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if san == nil {
		san = sanitizer.NewHTMLSanitizer()
	}
	if cacheTTL <= 0 {
		cacheTTL = DefaultCacheTTL
	}
	return &Service{
		repo:      repo,
		cache:     cache,
		cacheTTL:  cacheTTL,
		sanitizer: san,
		images:    images,
		logger:    logger,
	}
}

// ListCategories returns all categories in display order
func (s *Service) ListCategories(ctx context.Context) ([]CategoryView, error) {
	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}

	views := make([]CategoryView, 0, len(categories))
	for _, c := range categories {
		views = append(views, CategoryView{
			ID:          c.ID,
			Name:        c.Name,
			Slug:        c.Slug,
			Description: c.Description,
		})
	}
	return views, nil
}

// ListProducts returns one page of active products, optionally filtered
// by category slug.
func (s *Service) ListProducts(ctx context.Context, page, limit int, categorySlug string) (*ProductPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	params := repository.ListProductParams{
		Page:  page,
		Limit: limit,
	}

	if categorySlug != "" {
		category, err := s.repo.GetCategoryBySlug(ctx, categorySlug)
		if err != nil {
			if errors.Is(err, repository.ErrCategoryNotFound) {
				return &ProductPage{Products: []ProductView{}, Page: page, Limit: limit}, nil
			}
			return nil, fmt.Errorf("failed to resolve category: %w", err)
		}
		params.CategoryID = &category.ID
	}

	products, total, err := s.repo.ListProducts(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	views := make([]ProductView, 0, len(products))
	for i := range products {
		views = append(views, s.toView(ctx, &products[i]))
	}

	return &ProductPage{
		Products:   views,
		Page:       page,
		Limit:      limit,
		TotalCount: total,
	}, nil
}

// GetProduct returns a single product by slug. Detail lookups are the
// hottest catalog read, so they go through the Redis cache.
func (s *Service) GetProduct(ctx context.Context, slug string) (*ProductView, error) {
	if view, ok := s.cachedProduct(ctx, slug); ok {
		return view, nil
	}

	product, err := s.repo.GetProductBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, repository.ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	view := s.toView(ctx, product)
	s.cacheProduct(ctx, slug, &view)

	return &view, nil
}

// toView sanitizes the description and resolves the image URL
func (s *Service) toView(ctx context.Context, p *repository.Product) ProductView {
	view := ProductView{
		ID:              p.ID,
		CategoryID:      p.CategoryID,
		Name:            p.Name,
		Slug:            p.Slug,
		DescriptionHTML: s.sanitizer.Sanitize(p.DescriptionHTML),
		PriceCents:      p.PriceCents,
		Currency:        p.Currency,
		Stock:           p.Stock,
	}

	if s.images != nil && p.ImageKey != nil && *p.ImageKey != "" {
		url, err := s.images.PresignImageURL(ctx, *p.ImageKey)
		if err != nil {
			// A missing image URL degrades the listing, it never fails it
			s.logger.Warn("Failed to presign product image URL",
				slog.String("product_id", p.ID.String()),
				slog.String("error", err.Error()))
		} else {
			view.ImageURL = url
		}
	}

	return view
}

func (s *Service) cachedProduct(ctx context.Context, slug string) (*ProductView, bool) {
	if s.cache == nil {
		return nil, false
	}

	raw, err := s.cache.Get(ctx, productCacheKeyPrefix+slug).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn("Catalog cache read failed",
				slog.String("slug", slug),
				slog.String("error", err.Error()))
		}
		metrics.CatalogCacheHitsTotal.WithLabelValues("miss").Inc()
		return nil, false
	}

	var view ProductView
	if err := json.Unmarshal([]byte(raw), &view); err != nil {
		s.logger.Warn("Catalog cache entry corrupt, dropping",
			slog.String("slug", slug),
			slog.String("error", err.Error()))
		s.cache.Del(ctx, productCacheKeyPrefix+slug)
		metrics.CatalogCacheHitsTotal.WithLabelValues("miss").Inc()
		return nil, false
	}

	metrics.CatalogCacheHitsTotal.WithLabelValues("hit").Inc()
	return &view, true
}

func (s *Service) cacheProduct(ctx context.Context, slug string, view *ProductView) {
	if s.cache == nil {
		return
	}

	raw, err := json.Marshal(view)
	if err != nil {
		return
	}

	if err := s.cache.Set(ctx, productCacheKeyPrefix+slug, raw, s.cacheTTL).Err(); err != nil {
		s.logger.Warn("Catalog cache write failed",
			slog.String("slug", slug),
			slog.String("error", err.Error()))
	}
}
