package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/melihmerall/ilisan-commerce/internal/domain/models"
	"github.com/melihmerall/ilisan-commerce/internal/storage"
)

// CartService resolves and mutates carts keyed by an explicit owner and
// merges an anonymous cart into a user cart on authentication.
type CartService interface {
	ResolveCart(ctx context.Context, owner models.CartOwner) ([]*models.CartLine, error)
	// AddItem snapshots the current catalog price onto the line. Adding the
	// same product+variant again combines quantities.
	AddItem(ctx context.Context, owner models.CartOwner, productID int64, variantID *int64, quantity int) error
	RemoveItem(ctx context.Context, owner models.CartOwner, productID int64, variantID *int64) error
	// MergeOnAuthentication moves every session line to the user, combining
	// quantities on product+variant matches. Running it twice is a no-op:
	// after the first run no session lines remain.
	MergeOnAuthentication(ctx context.Context, sessionToken string, userID int64) error
}

type cartService struct {
	log         *slog.Logger
	db          *sql.DB
	cartRepo    storage.CartStorage
	productRepo storage.ProductStorage
}

func NewCartService(log *slog.Logger, db *sql.DB, cartRepo storage.CartStorage, productRepo storage.ProductStorage) CartService {
	return &cartService{
		log:         log,
		db:          db,
		cartRepo:    cartRepo,
		productRepo: productRepo,
	}
}

func (s *cartService) ResolveCart(ctx context.Context, owner models.CartOwner) ([]*models.CartLine, error) {
	const op = "service.CartService.ResolveCart"

	lines, err := s.cartRepo.GetLines(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get cart lines: %w", op, err)
	}
	return lines, nil
}

func (s *cartService) AddItem(ctx context.Context, owner models.CartOwner, productID int64, variantID *int64, quantity int) error {
	const op = "service.CartService.AddItem"
	logger := s.log.With(slog.String("op", op), slog.Int64("productID", productID), slog.Int("quantity", quantity))

	if quantity <= 0 {
		return fmt.Errorf("%s: %w: quantity must be positive", op, ErrValidation)
	}

	product, err := s.productRepo.GetProductByID(ctx, productID)
	if err != nil {
		logger.Error("failed to get product", slog.Any("error", err))
		return fmt.Errorf("%s: failed to get product: %w", op, err)
	}
	var variant *models.ProductVariant
	if variantID != nil {
		variant, err = s.productRepo.GetVariantByID(ctx, *variantID)
		if err != nil {
			logger.Error("failed to get variant", slog.Any("error", err))
			return fmt.Errorf("%s: failed to get variant: %w", op, err)
		}
		if variant.ProductID != productID {
			return fmt.Errorf("%s: %w: variant does not belong to product", op, ErrValidation)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}

	line := &models.CartLine{
		Owner:     owner,
		ProductID: productID,
		VariantID: variantID,
		Quantity:  quantity,
		UnitPrice: product.EffectivePrice(variant),
	}
	if err := s.cartRepo.AddLineTx(ctx, tx, line); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error("transaction rollback failed", slog.Any("error", rbErr))
		}
		logger.Error("failed to add cart line", slog.Any("error", err))
		return fmt.Errorf("%s: failed to add cart line: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	logger.Info("cart line added")
	return nil
}

func (s *cartService) RemoveItem(ctx context.Context, owner models.CartOwner, productID int64, variantID *int64) error {
	const op = "service.CartService.RemoveItem"

	if err := s.cartRepo.RemoveLine(ctx, owner, productID, variantID); err != nil {
		return fmt.Errorf("%s: failed to remove cart line: %w", op, err)
	}
	return nil
}

func (s *cartService) MergeOnAuthentication(ctx context.Context, sessionToken string, userID int64) error {
	const op = "service.CartService.MergeOnAuthentication"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID))

	if sessionToken == "" {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}

	// Locking the session lines serializes the merge against a concurrent
	// checkout snapshot of the same cart.
	sessionLines, err := s.cartRepo.GetLinesForUpdate(ctx, tx, models.SessionOwner(sessionToken))
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error("transaction rollback failed", slog.Any("error", rbErr))
		}
		return fmt.Errorf("%s: failed to get session lines: %w", op, err)
	}
	if len(sessionLines) == 0 {
		// Nothing left to move: either the cart was empty or a previous
		// merge already ran.
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("%s: failed to commit transaction: %w", op, err)
		}
		return nil
	}

	for _, line := range sessionLines {
		merged, err := s.cartRepo.AddQuantityToUserLineTx(ctx, tx, userID, line.ProductID, line.VariantID, line.Quantity)
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logger.Error("transaction rollback failed", slog.Any("error", rbErr))
			}
			return fmt.Errorf("%s: failed to merge cart line: %w", op, err)
		}
		if merged {
			if err := s.cartRepo.DeleteLineTx(ctx, tx, line.ID); err != nil {
				if rbErr := tx.Rollback(); rbErr != nil {
					logger.Error("transaction rollback failed", slog.Any("error", rbErr))
				}
				return fmt.Errorf("%s: failed to delete merged line: %w", op, err)
			}
			continue
		}
		if err := s.cartRepo.RekeyLineToUserTx(ctx, tx, line.ID, userID); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logger.Error("transaction rollback failed", slog.Any("error", rbErr))
			}
			return fmt.Errorf("%s: failed to rekey cart line: %w", op, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	logger.Info("anonymous cart merged", slog.Int("lines", len(sessionLines)))
	return nil
}
