package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"storefront-service/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

//go:embed schema.sql
var schemaSQL string

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a unique key (order reference, username)
	// already exists.
	ErrConflict = errors.New("conflict")
)

type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Migrate creates the tables if they do not exist yet
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection
func (s *Store) GetDB() *sqlx.DB {
	return s.db
}

// Ping checks the database connection
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// isUniqueViolation reports whether err is a Postgres unique_violation (23505)
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

type productRow struct {
	ID           string          `db:"id"`
	SellerID     string          `db:"seller_id"`
	Name         string          `db:"name"`
	Description  string          `db:"description"`
	Price        decimal.Decimal `db:"price"`
	Currency     string          `db:"currency"`
	ImageURL     string          `db:"image_url"`
	DeliveryMode string          `db:"delivery_mode"`
	FileURL      sql.NullString  `db:"file_url"`
	DeliveryKey  sql.NullString  `db:"delivery_key"`
	IsActive     bool            `db:"is_active"`
	CreatedAt    time.Time       `db:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at"`
}

func (r *productRow) toProduct() (*models.Product, error) {
	mode, err := models.ParseDeliveryMode(r.DeliveryMode)
	if err != nil {
		return nil, fmt.Errorf("product %s: %w", r.ID, err)
	}
	delivery, err := models.NewDelivery(mode, r.FileURL.String, r.DeliveryKey.String)
	if err != nil {
		return nil, fmt.Errorf("product %s: %w", r.ID, err)
	}

	return &models.Product{
		ID:          r.ID,
		SellerID:    r.SellerID,
		Name:        r.Name,
		Description: r.Description,
		Price:       r.Price,
		Currency:    r.Currency,
		ImageURL:    r.ImageURL,
		Delivery:    delivery,
		IsActive:    r.IsActive,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}, nil
}

func toProducts(rows []productRow) ([]models.Product, error) {
	products := make([]models.Product, 0, len(rows))
	for i := range rows {
		p, err := rows[i].toProduct()
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}
	return products, nil
}

// CreateProduct inserts a product
func (s *Store) CreateProduct(ctx context.Context, product *models.Product) error {
	mode, fileURL, key := models.DeliveryColumns(product.Delivery)

	query := `
		INSERT INTO products (id, seller_id, name, description, price, currency, image_url,
			delivery_mode, file_url, delivery_key, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at`

	row := s.db.QueryRowxContext(ctx, query,
		product.ID, product.SellerID, product.Name, product.Description, product.Price,
		product.Currency, product.ImageURL, string(mode), fileURL, key, product.IsActive)

	return row.Scan(&product.CreatedAt, &product.UpdatedAt)
}

// UpdateProduct updates a product owned by product.SellerID
func (s *Store) UpdateProduct(ctx context.Context, product *models.Product) error {
	mode, fileURL, key := models.DeliveryColumns(product.Delivery)

	query := `
		UPDATE products
		SET name = $1, description = $2, price = $3, currency = $4, image_url = $5,
			delivery_mode = $6, file_url = $7, delivery_key = $8, is_active = $9, updated_at = NOW()
		WHERE id = $10 AND seller_id = $11
		RETURNING created_at, updated_at`

	err := s.db.QueryRowxContext(ctx, query,
		product.Name, product.Description, product.Price, product.Currency, product.ImageURL,
		string(mode), fileURL, key, product.IsActive, product.ID, product.SellerID,
	).Scan(&product.CreatedAt, &product.UpdatedAt)
	if err == sql.ErrNoRows {
		return fmt.Errorf("product %s: %w", product.ID, ErrNotFound)
	}
	return err
}

// SetProductActive toggles catalog visibility of a seller's product
func (s *Store) SetProductActive(ctx context.Context, sellerID, productID string, active bool) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE products SET is_active = $1, updated_at = NOW() WHERE id = $2 AND seller_id = $3",
		active, productID, sellerID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("product %s: %w", productID, ErrNotFound)
	}
	return nil
}

// GetProductByID retrieves a product by ID
func (s *Store) GetProductByID(ctx context.Context, id string) (*models.Product, error) {
	var row productRow
	err := s.db.GetContext(ctx, &row, "SELECT * FROM products WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("product %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return row.toProduct()
}

// ListProductsBySeller retrieves a seller's products, newest first
func (s *Store) ListProductsBySeller(ctx context.Context, sellerID string, activeOnly bool) ([]models.Product, error) {
	query := "SELECT * FROM products WHERE seller_id = $1"
	if activeOnly {
		query += " AND is_active = TRUE"
	}
	query += " ORDER BY created_at DESC"

	var rows []productRow
	if err := s.db.SelectContext(ctx, &rows, query, sellerID); err != nil {
		return nil, err
	}
	return toProducts(rows)
}

// ListActiveProducts retrieves active products across all sellers, newest
// first. A non-positive limit returns every row.
func (s *Store) ListActiveProducts(ctx context.Context, limit int) ([]models.Product, error) {
	query := "SELECT * FROM products WHERE is_active = TRUE ORDER BY created_at DESC"
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}

	var rows []productRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	return toProducts(rows)
}

// CreateProfile inserts a seller profile
func (s *Store) CreateProfile(ctx context.Context, profile *models.Profile) error {
	query := `
		INSERT INTO profiles (id, username, full_name, phone, email)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`

	err := s.db.GetContext(ctx, &profile.CreatedAt, query,
		profile.ID, profile.Username, profile.FullName, profile.Phone, profile.Email)
	if isUniqueViolation(err) {
		return fmt.Errorf("profile %s: %w", profile.Username, ErrConflict)
	}
	return err
}

// GetProfileByID retrieves a seller profile by ID
func (s *Store) GetProfileByID(ctx context.Context, id string) (*models.Profile, error) {
	var profile models.Profile
	err := s.db.GetContext(ctx, &profile, "SELECT * FROM profiles WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("profile %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// GetProfileByUsername retrieves a seller profile by store username
func (s *Store) GetProfileByUsername(ctx context.Context, username string) (*models.Profile, error) {
	var profile models.Profile
	err := s.db.GetContext(ctx, &profile, "SELECT * FROM profiles WHERE username = $1", username)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("profile %s: %w", username, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}
