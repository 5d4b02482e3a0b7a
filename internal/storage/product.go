package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/melihmerall/ilisan-commerce/internal/domain/models"
	"github.com/shopspring/decimal"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrVariantNotFound = errors.New("product variant not found")
)

// ProductStorage is the read-only catalog contract the checkout core needs.
// Catalog management is a separate concern and never goes through here.
type ProductStorage interface {
	GetProductByID(ctx context.Context, id int64) (*models.Product, error)
	GetVariantByID(ctx context.Context, id int64) (*models.ProductVariant, error)
}

type productRepository struct {
	db *sql.DB
}

func NewProductRepository(db *sql.DB) ProductStorage {
	return &productRepository{db: db}
}

func (r *productRepository) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	p := &models.Product{}
	row := r.db.QueryRowContext(ctx,
		"SELECT id, name, code, price, desi FROM products WHERE id = $1", id)
	if err := row.Scan(&p.ID, &p.Name, &p.Code, &p.Price, &p.Desi); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *productRepository) GetVariantByID(ctx context.Context, id int64) (*models.ProductVariant, error) {
	v := &models.ProductVariant{}
	var price, desi decimal.NullDecimal
	row := r.db.QueryRowContext(ctx,
		"SELECT id, product_id, name, code, price, desi FROM product_variants WHERE id = $1", id)
	if err := row.Scan(&v.ID, &v.ProductID, &v.Name, &v.Code, &price, &desi); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrVariantNotFound
		}
		return nil, err
	}
	if price.Valid {
		v.Price = &price.Decimal
	}
	if desi.Valid {
		v.Desi = &desi.Decimal
	}
	return v, nil
}
