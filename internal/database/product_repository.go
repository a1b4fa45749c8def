package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/regradar/internal/domain"
)

// ProductRepository handles database operations for user product portfolios.
type ProductRepository struct {
	db *sqlx.DB
}

// NewProductRepository creates a new product repository.
func NewProductRepository(db *sqlx.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// ListByUser retrieves the products in a user's portfolio.
func (r *ProductRepository) ListByUser(ctx context.Context, userID int64) ([]*domain.UserProduct, error) {
	var products []*domain.UserProduct
	query := `
		SELECT id, user_id, name, type, features
		FROM user_product
		WHERE user_id = $1
		ORDER BY id
	`

	err := r.db.SelectContext(ctx, &products, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user products: %w", err)
	}

	if products == nil {
		products = []*domain.UserProduct{}
	}

	return products, nil
}
