package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/melihmerall/ilisan-commerce/internal/domain/models"
)

var ErrAddressNotFound = errors.New("address not found")

// AddressStorage reads a user's saved addresses and writes standalone guest
// addresses during checkout. Guest rows carry no user id and are write-once.
type AddressStorage interface {
	// GetByIDForUser returns the address only when it belongs to the user,
	// so one customer cannot checkout with another's address id.
	GetByIDForUser(ctx context.Context, id int64, userID int64) (*models.Address, error)
	CreateGuestTx(ctx context.Context, tx *sql.Tx, addr *models.Address) (*models.Address, error)
}

type addressRepository struct {
	db *sql.DB
}

func NewAddressRepository(db *sql.DB) AddressStorage {
	return &addressRepository{db: db}
}

func (r *addressRepository) GetByIDForUser(ctx context.Context, id int64, userID int64) (*models.Address, error) {
	addr := &models.Address{}
	var ownerID sql.NullInt64
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, title, first_name, last_name, phone, email, line1, line2, city, district, post_code, country, created_at
		 FROM addresses WHERE id = $1 AND user_id = $2`, id, userID)
	if err := row.Scan(&addr.ID, &ownerID, &addr.Title, &addr.FirstName, &addr.LastName, &addr.Phone,
		&addr.Email, &addr.Line1, &addr.Line2, &addr.City, &addr.District, &addr.PostCode,
		&addr.Country, &addr.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAddressNotFound
		}
		return nil, err
	}
	if ownerID.Valid {
		uid := ownerID.Int64
		addr.UserID = &uid
	}
	return addr, nil
}

func (r *addressRepository) CreateGuestTx(ctx context.Context, tx *sql.Tx, addr *models.Address) (*models.Address, error) {
	err := tx.QueryRowContext(ctx,
		`INSERT INTO addresses (user_id, title, first_name, last_name, phone, email, line1, line2, city, district, post_code, country, created_at)
		 VALUES (NULL, $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())
		 RETURNING id`,
		addr.Title, addr.FirstName, addr.LastName, addr.Phone, addr.Email, addr.Line1, addr.Line2,
		addr.City, addr.District, addr.PostCode, addr.Country,
	).Scan(&addr.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create guest address: %w", err)
	}
	return addr, nil
}
