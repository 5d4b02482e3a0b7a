package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/melihmerall/ilisan-commerce/internal/domain/models"
)

var ErrCartLineNotFound = errors.New("cart line not found")

// CartStorage persists cart lines keyed by an explicit owner (user id or
// anonymous session token). Methods taking *sql.Tx participate in a caller
// transaction; the merge and checkout flows rely on that to stay atomic.
type CartStorage interface {
	GetLines(ctx context.Context, owner models.CartOwner) ([]*models.CartLine, error)
	// GetLinesForUpdate locks the owner's lines inside tx so a concurrent
	// merge and a checkout read cannot interleave over a half-moved cart.
	GetLinesForUpdate(ctx context.Context, tx *sql.Tx, owner models.CartOwner) ([]*models.CartLine, error)
	// AddLineTx adds quantity to an existing product+variant line or inserts
	// a new one with the given unit price snapshot.
	AddLineTx(ctx context.Context, tx *sql.Tx, line *models.CartLine) error
	RemoveLine(ctx context.Context, owner models.CartOwner, productID int64, variantID *int64) error
	ClearTx(ctx context.Context, tx *sql.Tx, owner models.CartOwner) error
	// AddQuantityToUserLineTx merges quantity into the user's matching line,
	// reporting whether such a line existed.
	AddQuantityToUserLineTx(ctx context.Context, tx *sql.Tx, userID int64, productID int64, variantID *int64, quantity int) (bool, error)
	// RekeyLineToUserTx moves a session-owned line to the user.
	RekeyLineToUserTx(ctx context.Context, tx *sql.Tx, lineID int64, userID int64) error
	DeleteLineTx(ctx context.Context, tx *sql.Tx, lineID int64) error
}

type cartRepository struct {
	db *sql.DB
}

func NewCartRepository(db *sql.DB) CartStorage {
	return &cartRepository{db: db}
}

const cartLineColumns = "id, user_id, session_token, product_id, variant_id, quantity, unit_price, created_at"

func ownerClause(owner models.CartOwner) (string, interface{}) {
	if owner.IsUser() {
		return "user_id = $1", owner.UserID
	}
	return "session_token = $1", owner.SessionToken
}

func scanCartLines(rows *sql.Rows) ([]*models.CartLine, error) {
	var lines []*models.CartLine
	for rows.Next() {
		line := &models.CartLine{}
		var userID, variantID sql.NullInt64
		var sessionToken sql.NullString
		if err := rows.Scan(&line.ID, &userID, &sessionToken, &line.ProductID, &variantID,
			&line.Quantity, &line.UnitPrice, &line.CreatedAt); err != nil {
			return nil, err
		}
		if userID.Valid {
			line.Owner = models.UserOwner(userID.Int64)
		} else {
			line.Owner = models.SessionOwner(sessionToken.String)
		}
		if variantID.Valid {
			v := variantID.Int64
			line.VariantID = &v
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

func (r *cartRepository) GetLines(ctx context.Context, owner models.CartOwner) ([]*models.CartLine, error) {
	clause, arg := ownerClause(owner)
	query := fmt.Sprintf("SELECT %s FROM cart_items WHERE %s ORDER BY created_at", cartLineColumns, clause)
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCartLines(rows)
}

func (r *cartRepository) GetLinesForUpdate(ctx context.Context, tx *sql.Tx, owner models.CartOwner) ([]*models.CartLine, error) {
	clause, arg := ownerClause(owner)
	query := fmt.Sprintf("SELECT %s FROM cart_items WHERE %s ORDER BY created_at FOR UPDATE", cartLineColumns, clause)
	rows, err := tx.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCartLines(rows)
}

func (r *cartRepository) AddLineTx(ctx context.Context, tx *sql.Tx, line *models.CartLine) error {
	var res sql.Result
	var err error
	if line.Owner.IsUser() {
		res, err = tx.ExecContext(ctx,
			`UPDATE cart_items SET quantity = quantity + $1
			 WHERE user_id = $2 AND product_id = $3 AND variant_id IS NOT DISTINCT FROM $4`,
			line.Quantity, line.Owner.UserID, line.ProductID, line.VariantID)
	} else {
		res, err = tx.ExecContext(ctx,
			`UPDATE cart_items SET quantity = quantity + $1
			 WHERE session_token = $2 AND product_id = $3 AND variant_id IS NOT DISTINCT FROM $4`,
			line.Quantity, line.Owner.SessionToken, line.ProductID, line.VariantID)
	}
	if err != nil {
		return fmt.Errorf("failed to update cart line: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}

	var userID *int64
	var sessionToken *string
	if line.Owner.IsUser() {
		userID = &line.Owner.UserID
	} else {
		sessionToken = &line.Owner.SessionToken
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO cart_items (user_id, session_token, product_id, variant_id, quantity, unit_price, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, NOW())`,
		userID, sessionToken, line.ProductID, line.VariantID, line.Quantity, line.UnitPrice)
	if err != nil {
		return fmt.Errorf("failed to insert cart line: %w", err)
	}
	return nil
}

func (r *cartRepository) RemoveLine(ctx context.Context, owner models.CartOwner, productID int64, variantID *int64) error {
	clause, arg := ownerClause(owner)
	query := fmt.Sprintf(
		"DELETE FROM cart_items WHERE %s AND product_id = $2 AND variant_id IS NOT DISTINCT FROM $3", clause)
	res, err := r.db.ExecContext(ctx, query, arg, productID, variantID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrCartLineNotFound
	}
	return nil
}

func (r *cartRepository) ClearTx(ctx context.Context, tx *sql.Tx, owner models.CartOwner) error {
	clause, arg := ownerClause(owner)
	query := fmt.Sprintf("DELETE FROM cart_items WHERE %s", clause)
	_, err := tx.ExecContext(ctx, query, arg)
	return err
}

func (r *cartRepository) AddQuantityToUserLineTx(ctx context.Context, tx *sql.Tx, userID int64, productID int64, variantID *int64, quantity int) (bool, error) {
	res, err := tx.ExecContext(ctx,
		`UPDATE cart_items SET quantity = quantity + $1
		 WHERE user_id = $2 AND product_id = $3 AND variant_id IS NOT DISTINCT FROM $4`,
		quantity, userID, productID, variantID)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *cartRepository) RekeyLineToUserTx(ctx context.Context, tx *sql.Tx, lineID int64, userID int64) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE cart_items SET user_id = $1, session_token = NULL WHERE id = $2", userID, lineID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrCartLineNotFound
	}
	return nil
}

func (r *cartRepository) DeleteLineTx(ctx context.Context, tx *sql.Tx, lineID int64) error {
	res, err := tx.ExecContext(ctx, "DELETE FROM cart_items WHERE id = $1", lineID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrCartLineNotFound
	}
	return nil
}
