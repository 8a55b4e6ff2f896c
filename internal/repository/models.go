package repository

import (
	"time"

	"github.com/google/uuid"
)

// User represents a customer account in the database.
// Accounts are soft-deleted only: is_deleted rows are kept for audit and must
// never yield a valid session or a usable reset token.
type User struct {
	ID           uuid.UUID  `db:"id"`
	Email        string     `db:"email"`
	PasswordHash string     `db:"password_hash"`
	IsActive     bool       `db:"is_active"`
	IsDeleted    bool       `db:"is_deleted"`
	LastLoginAt  *time.Time `db:"last_login_at"`
	CreatedAt    time.Time  `db:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at"`
}

// Session represents an authenticated client context tracked in the database.
// Sessions are never deleted, only deactivated; an inactive session never
// reactivates.
type Session struct {
	ID             uuid.UUID  `db:"id"`
	UserID         uuid.UUID  `db:"user_id"`
	Token          string     `db:"token"`
	DeviceType     string     `db:"device_type"`
	Browser        string     `db:"browser"`
	IPAddress      *string    `db:"ip_address"`
	UserAgent      *string    `db:"user_agent"`
	IsActive       bool       `db:"is_active"`
	LoginAt        time.Time  `db:"login_at"`
	LastActivityAt time.Time  `db:"last_activity_at"`
	LoggedOutAt    *time.Time `db:"logged_out_at"`
	LogoutReason   *string    `db:"logout_reason"`
}

// PasswordResetToken is a single-use, time-limited credential recovery secret.
// Tokens are retained after use for audit; expiry is passive.
type PasswordResetToken struct {
	ID        uuid.UUID `db:"id"`
	UserID    uuid.UUID `db:"user_id"`
	Token     string    `db:"token"`
	ExpiresAt time.Time `db:"expires_at"`
	Used      bool      `db:"used"`
	CreatedAt time.Time `db:"created_at"`
}

// SecurityEvent is an append-only audit record for an authentication-relevant
// action. References may outlive the session they point at.
type SecurityEvent struct {
	ID          uuid.UUID  `db:"id"`
	UserID      *uuid.UUID `db:"user_id"`
	SessionID   *uuid.UUID `db:"session_id"`
	EventType   string     `db:"event_type"`
	Severity    string     `db:"severity"`
	Description string     `db:"description"`
	IPAddress   *string    `db:"ip_address"`
	UserAgent   *string    `db:"user_agent"`
	CreatedAt   time.Time  `db:"created_at"`
}

// FailedLoginAttempt records a failed login for brute force protection
type FailedLoginAttempt struct {
	ID          uuid.UUID `db:"id"`
	Email       string    `db:"email"`
	IPAddress   string    `db:"ip_address"`
	AttemptedAt time.Time `db:"attempted_at"`
}

// Category represents a product category
type Category struct {
	ID          uuid.UUID `db:"id"`
	Name        string    `db:"name"`
	Slug        string    `db:"slug"`
	Description string    `db:"description"`
	CreatedAt   time.Time `db:"created_at"`
}

// Product represents a catalog product
type Product struct {
	ID              uuid.UUID  `db:"id"`
	CategoryID      *uuid.UUID `db:"category_id"`
	Name            string     `db:"name"`
	Slug            string     `db:"slug"`
	DescriptionHTML string     `db:"description_html"`
	PriceCents      int64      `db:"price_cents"`
	Currency        string     `db:"currency"`
	ImageKey        *string    `db:"image_key"`
	Stock           int        `db:"stock"`
	IsActive        bool       `db:"is_active"`
	CreatedAt       time.Time  `db:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at"`
}

// ListProductParams holds parameters for listing products
type ListProductParams struct {
	Page       int
	Limit      int
	CategoryID *uuid.UUID
}

// CartItem represents one product line in a customer's cart
type CartItem struct {
	ID        uuid.UUID `db:"id"`
	UserID    uuid.UUID `db:"user_id"`
	ProductID uuid.UUID `db:"product_id"`
	Quantity  int       `db:"quantity"`
	AddedAt   time.Time `db:"added_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// CartLine is a cart item joined with its product for display
type CartLine struct {
	CartItem
	ProductName string `db:"product_name"`
	PriceCents  int64  `db:"price_cents"`
	Currency    string `db:"currency"`
}

// Order represents a placed order
type Order struct {
	ID         uuid.UUID `db:"id"`
	UserID     uuid.UUID `db:"user_id"`
	Status     string    `db:"status"`
	TotalCents int64     `db:"total_cents"`
	Currency   string    `db:"currency"`
	PlacedAt   time.Time `db:"placed_at"`
}

// OrderItem represents one product line in an order
type OrderItem struct {
	ID             uuid.UUID  `db:"id"`
	OrderID        uuid.UUID  `db:"order_id"`
	ProductID      *uuid.UUID `db:"product_id"`
	ProductName    string     `db:"product_name"`
	UnitPriceCents int64      `db:"unit_price_cents"`
	Quantity       int        `db:"quantity"`
}

// OrderWithItems is an order together with its line items
type OrderWithItems struct {
	Order
	Items []OrderItem
}
