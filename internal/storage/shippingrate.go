package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/melihmerall/ilisan-commerce/internal/domain/models"
	"github.com/shopspring/decimal"
)

var ErrNoShippingRates = errors.New("no active shipping rates")

// ShippingRateStorage reads the desi tier table. Tier management is an
// admin concern handled elsewhere.
type ShippingRateStorage interface {
	ListActive(ctx context.Context) ([]*models.ShippingRate, error)
}

type shippingRateRepository struct {
	db *sql.DB
}

func NewShippingRateRepository(db *sql.DB) ShippingRateStorage {
	return &shippingRateRepository{db: db}
}

func (r *shippingRateRepository) ListActive(ctx context.Context) ([]*models.ShippingRate, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, min_desi, max_desi, cost, free_threshold, is_default, is_active
		 FROM shipping_rates WHERE is_active = TRUE ORDER BY min_desi`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rates []*models.ShippingRate
	for rows.Next() {
		rate := &models.ShippingRate{}
		var maxDesi, freeThreshold decimal.NullDecimal
		if err := rows.Scan(&rate.ID, &rate.Name, &rate.MinDesi, &maxDesi, &rate.Cost,
			&freeThreshold, &rate.IsDefault, &rate.IsActive); err != nil {
			return nil, err
		}
		if maxDesi.Valid {
			rate.MaxDesi = &maxDesi.Decimal
		}
		if freeThreshold.Valid {
			rate.FreeThreshold = &freeThreshold.Decimal
		}
		rates = append(rates, rate)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(rates) == 0 {
		return nil, ErrNoShippingRates
	}
	return rates, nil
}
