package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/melihmerall/ilisan-commerce/internal/domain/models"
	"github.com/melihmerall/ilisan-commerce/internal/storage"
	"github.com/shopspring/decimal"
)

// CalculateShippingCost maps a cumulative desi value to a shipping cost.
// Tiers are disjoint [MinDesi, MaxDesi) ranges; when none contains the desi
// value the default tier applies. A tier's free-shipping threshold zeroes
// the cost once the cart subtotal reaches it. Pure and deterministic.
func CalculateShippingCost(rates []*models.ShippingRate, totalDesi, subtotal decimal.Decimal) decimal.Decimal {
	var selected *models.ShippingRate
	var fallback *models.ShippingRate
	for _, rate := range rates {
		if rate.IsDefault && fallback == nil {
			fallback = rate
		}
		if selected == nil && rate.Contains(totalDesi) {
			selected = rate
		}
	}
	if selected == nil {
		selected = fallback
	}
	if selected == nil {
		return decimal.Zero
	}
	if selected.FreeThreshold != nil && subtotal.GreaterThanOrEqual(*selected.FreeThreshold) {
		return decimal.Zero
	}
	return selected.Cost
}

// ShippingService quotes shipping for a cart snapshot.
type ShippingService interface {
	// QuoteForCart returns the shipping cost for the given lines: per-line
	// desi (variant desi overrides product desi) times quantity, summed,
	// priced through the active tier table.
	QuoteForCart(ctx context.Context, lines []*models.CartLine) (decimal.Decimal, error)
}

type shippingService struct {
	log         *slog.Logger
	rateRepo    storage.ShippingRateStorage
	productRepo storage.ProductStorage
}

func NewShippingService(log *slog.Logger, rateRepo storage.ShippingRateStorage, productRepo storage.ProductStorage) ShippingService {
	return &shippingService{
		log:         log,
		rateRepo:    rateRepo,
		productRepo: productRepo,
	}
}

func (s *shippingService) QuoteForCart(ctx context.Context, lines []*models.CartLine) (decimal.Decimal, error) {
	const op = "service.ShippingService.QuoteForCart"

	totalDesi, err := s.totalDesi(ctx, lines)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %w", op, err)
	}

	rates, err := s.rateRepo.ListActive(ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: failed to load shipping rates: %w", op, err)
	}

	subtotal := models.CartSubtotal(lines)
	cost := CalculateShippingCost(rates, totalDesi, subtotal)

	s.log.Debug("shipping quote",
		slog.String("op", op),
		slog.String("totalDesi", totalDesi.String()),
		slog.String("subtotal", subtotal.String()),
		slog.String("cost", cost.String()),
	)
	return cost, nil
}

func (s *shippingService) totalDesi(ctx context.Context, lines []*models.CartLine) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, line := range lines {
		product, err := s.productRepo.GetProductByID(ctx, line.ProductID)
		if err != nil {
			return decimal.Zero, fmt.Errorf("failed to get product %d: %w", line.ProductID, err)
		}
		var variant *models.ProductVariant
		if line.VariantID != nil {
			variant, err = s.productRepo.GetVariantByID(ctx, *line.VariantID)
			if err != nil {
				return decimal.Zero, fmt.Errorf("failed to get variant %d: %w", *line.VariantID, err)
			}
		}
		desi := product.EffectiveDesi(variant)
		total = total.Add(desi.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	return total, nil
}
