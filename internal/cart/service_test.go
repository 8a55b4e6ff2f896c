package cart

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/andriwardana/storefront/backend/internal/repository"
)

type cartKey struct {
	user    uuid.UUID
	product uuid.UUID
}

type fakeCartRepo struct {
	quantities map[cartKey]int
	products   map[uuid.UUID]repository.Product
}

func newFakeCartRepo() *fakeCartRepo {
	return &fakeCartRepo{
		quantities: make(map[cartKey]int),
		products:   make(map[uuid.UUID]repository.Product),
	}
}

func (f *fakeCartRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]repository.CartLine, error) {
	var lines []repository.CartLine
	for key, qty := range f.quantities {
		if key.user != userID {
			continue
		}
		product := f.products[key.product]
		lines = append(lines, repository.CartLine{
			CartItem: repository.CartItem{
				UserID:    userID,
				ProductID: key.product,
				Quantity:  qty,
			},
			ProductName: product.Name,
			PriceCents:  product.PriceCents,
			Currency:    product.Currency,
		})
	}
	return lines, nil
}

func (f *fakeCartRepo) Upsert(ctx context.Context, userID, productID uuid.UUID, quantity int) error {
	f.quantities[cartKey{userID, productID}] += quantity
	return nil
}

func (f *fakeCartRepo) UpdateQuantity(ctx context.Context, userID, productID uuid.UUID, quantity int) error {
	key := cartKey{userID, productID}
	if _, ok := f.quantities[key]; !ok {
		return repository.ErrCartItemNotFound
	}
	f.quantities[key] = quantity
	return nil
}

func (f *fakeCartRepo) Remove(ctx context.Context, userID, productID uuid.UUID) error {
	key := cartKey{userID, productID}
	if _, ok := f.quantities[key]; !ok {
		return repository.ErrCartItemNotFound
	}
	delete(f.quantities, key)
	return nil
}

type fakeProductLookup struct {
	products map[uuid.UUID]repository.Product
}

func (f *fakeProductLookup) ListCategories(ctx context.Context) ([]repository.Category, error) {
	return nil, nil
}

func (f *fakeProductLookup) GetCategoryBySlug(ctx context.Context, slug string) (*repository.Category, error) {
	return nil, repository.ErrCategoryNotFound
}

func (f *fakeProductLookup) ListProducts(ctx context.Context, params repository.ListProductParams) ([]repository.Product, int, error) {
	return nil, 0, nil
}

func (f *fakeProductLookup) GetProductBySlug(ctx context.Context, slug string) (*repository.Product, error) {
	return nil, repository.ErrProductNotFound
}

func (f *fakeProductLookup) GetProductByID(ctx context.Context, id string) (*repository.Product, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, repository.ErrProductNotFound
	}
	product, ok := f.products[parsed]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	return &product, nil
}

func testCartService() (*Service, *fakeCartRepo, *fakeProductLookup) {
	carts := newFakeCartRepo()
	catalog := &fakeProductLookup{products: carts.products}
	return NewService(carts, catalog, nil), carts, catalog
}

func stockProduct(catalog *fakeProductLookup, priceCents int64, stock int) uuid.UUID {
	id := uuid.New()
	catalog.products[id] = repository.Product{
		ID:         id,
		Name:       "Widget",
		PriceCents: priceCents,
		Currency:   "USD",
		Stock:      stock,
		IsActive:   true,
	}
	return id
}

func TestAddItem_StacksQuantity(t *testing.T) {
	svc, carts, catalog := testCartService()
	userID := uuid.New()
	productID := stockProduct(catalog, 1000, 10)

	if err := svc.AddItem(context.Background(), userID, productID, 2); err != nil {
		t.Fatalf("AddItem failed: %v", err)
	}
	if err := svc.AddItem(context.Background(), userID, productID, 3); err != nil {
		t.Fatalf("second AddItem failed: %v", err)
	}

	if got := carts.quantities[cartKey{userID, productID}]; got != 5 {
		t.Errorf("quantity = %d, want 5", got)
	}
}

func TestAddItem_QuantityValidation(t *testing.T) {
	svc, _, catalog := testCartService()
	userID := uuid.New()
	productID := stockProduct(catalog, 1000, 10)

	for _, quantity := range []int{0, -1, MaxQuantityPerLine + 1} {
		err := svc.AddItem(context.Background(), userID, productID, quantity)
		if !errors.Is(err, ErrInvalidQuantity) {
			t.Errorf("AddItem(qty=%d) = %v, want ErrInvalidQuantity", quantity, err)
		}
	}
}

func TestAddItem_UnknownProduct(t *testing.T) {
	svc, _, _ := testCartService()

	err := svc.AddItem(context.Background(), uuid.New(), uuid.New(), 1)
	if !errors.Is(err, ErrProductUnavailable) {
		t.Errorf("AddItem = %v, want ErrProductUnavailable", err)
	}
}

func TestAddItem_InactiveProduct(t *testing.T) {
	svc, _, catalog := testCartService()
	productID := stockProduct(catalog, 1000, 10)

	product := catalog.products[productID]
	product.IsActive = false
	catalog.products[productID] = product

	err := svc.AddItem(context.Background(), uuid.New(), productID, 1)
	if !errors.Is(err, ErrProductUnavailable) {
		t.Errorf("AddItem = %v, want ErrProductUnavailable", err)
	}
}

func TestAddItem_InsufficientStock(t *testing.T) {
	svc, _, catalog := testCartService()
	productID := stockProduct(catalog, 1000, 2)

	err := svc.AddItem(context.Background(), uuid.New(), productID, 3)
	if !errors.Is(err, ErrInsufficientStock) {
		t.Errorf("AddItem = %v, want ErrInsufficientStock", err)
	}
}

func TestUpdateItem_ZeroRemovesLine(t *testing.T) {
	svc, carts, catalog := testCartService()
	userID := uuid.New()
	productID := stockProduct(catalog, 1000, 10)

	if err := svc.AddItem(context.Background(), userID, productID, 2); err != nil {
		t.Fatalf("AddItem failed: %v", err)
	}
	if err := svc.UpdateItem(context.Background(), userID, productID, 0); err != nil {
		t.Fatalf("UpdateItem failed: %v", err)
	}

	if _, ok := carts.quantities[cartKey{userID, productID}]; ok {
		t.Error("line still present after update to zero")
	}
}

func TestUpdateItem_MissingLine(t *testing.T) {
	svc, _, _ := testCartService()

	err := svc.UpdateItem(context.Background(), uuid.New(), uuid.New(), 2)
	if !errors.Is(err, ErrItemNotFound) {
		t.Errorf("UpdateItem = %v, want ErrItemNotFound", err)
	}
}

func TestRemoveItem_AbsentLineIsNoError(t *testing.T) {
	svc, _, _ := testCartService()

	if err := svc.RemoveItem(context.Background(), uuid.New(), uuid.New()); err != nil {
		t.Errorf("RemoveItem on empty cart = %v, want nil", err)
	}
}

func TestViewCart_Totals(t *testing.T) {
	svc, _, catalog := testCartService()
	userID := uuid.New()
	shirt := stockProduct(catalog, 1500, 10)
	mug := stockProduct(catalog, 800, 10)

	if err := svc.AddItem(context.Background(), userID, shirt, 2); err != nil {
		t.Fatalf("AddItem failed: %v", err)
	}
	if err := svc.AddItem(context.Background(), userID, mug, 1); err != nil {
		t.Fatalf("AddItem failed: %v", err)
	}

	view, err := svc.ViewCart(context.Background(), userID)
	if err != nil {
		t.Fatalf("ViewCart failed: %v", err)
	}

	if len(view.Lines) != 2 {
		t.Fatalf("lines = %d, want 2", len(view.Lines))
	}
	if view.TotalCents != 2*1500+800 {
		t.Errorf("total = %d, want %d", view.TotalCents, 2*1500+800)
	}
	if view.Currency != "USD" {
		t.Errorf("currency = %q, want USD", view.Currency)
	}
	for _, line := range view.Lines {
		if line.SubtotalCents != line.PriceCents*int64(line.Quantity) {
			t.Errorf("subtotal for %s = %d, want %d", line.ProductName, line.SubtotalCents, line.PriceCents*int64(line.Quantity))
		}
	}
}

func TestViewCart_Empty(t *testing.T) {
	svc, _, _ := testCartService()

	view, err := svc.ViewCart(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("ViewCart failed: %v", err)
	}
	if len(view.Lines) != 0 || view.TotalCents != 0 {
		t.Errorf("unexpected non-empty cart: %+v", view)
	}
}
