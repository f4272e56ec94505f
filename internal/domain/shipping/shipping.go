package shipping

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested shipping method does not exist.
var ErrNotFound = errors.New("shipping method not found")

// Method is a shipping option with a flat price added to the order total.
type Method struct {
	ID    uuid.UUID
	Name  string
	Price decimal.Decimal
}

// Repository defines read operations for shipping methods.
type Repository interface {
	List(ctx context.Context) ([]Method, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Method, error)
}
