// Package postgres implements the storage interfaces backed by PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/secretlease/marketplace/internal/app/domain/account"
	"github.com/secretlease/marketplace/internal/app/domain/admin"
	"github.com/secretlease/marketplace/internal/app/domain/adminconfig"
	"github.com/secretlease/marketplace/internal/app/domain/listing"
	"github.com/secretlease/marketplace/internal/app/domain/payment"
	"github.com/secretlease/marketplace/internal/app/storage"
)

const pgUniqueViolation = "23505"

// Store implements the storage interfaces over a PostgreSQL handle.
type Store struct {
	db *sqlx.DB
}

var _ storage.AccountStore = (*Store)(nil)
var _ storage.TransactionStore = (*Store)(nil)
var _ storage.ListingStore = (*Store)(nil)
var _ storage.ConfigStore = (*Store)(nil)
var _ storage.StatsStore = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

func translateErr(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == pgUniqueViolation {
		return storage.ErrConflict
	}
	return err
}

// --- AccountStore -----------------------------------------------------------

const accountColumns = `id, email, password_hash, role, is_approved, has_paid,
	payment_method, payment_email, wallet_address, transaction_ref, favorites,
	created_at, updated_at`

func (s *Store) CreateAccount(ctx context.Context, acct account.Account) (account.Account, error) {
	if acct.ID == "" {
		acct.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	acct.CreatedAt = now
	acct.UpdatedAt = now
	acct.Email = strings.ToLower(strings.TrimSpace(acct.Email))

	favoritesJSON, err := json.Marshal(acct.Favorites)
	if err != nil {
		return account.Account{}, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO accounts (id, email, password_hash, role, is_approved, has_paid,
			payment_method, payment_email, wallet_address, transaction_ref, favorites,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, acct.ID, acct.Email, acct.PasswordHash, acct.Role, acct.IsApproved, acct.HasPaid,
		acct.PaymentMethod, acct.PaymentEmail, acct.WalletAddress, acct.TransactionRef,
		favoritesJSON, acct.CreatedAt, acct.UpdatedAt)
	if err != nil {
		return account.Account{}, translateErr(err)
	}
	return acct, nil
}

func (s *Store) UpdateAccount(ctx context.Context, acct account.Account) (account.Account, error) {
	existing, err := s.GetAccount(ctx, acct.ID)
	if err != nil {
		return account.Account{}, err
	}

	acct.Email = existing.Email
	acct.CreatedAt = existing.CreatedAt
	acct.UpdatedAt = time.Now().UTC()

	favoritesJSON, err := json.Marshal(acct.Favorites)
	if err != nil {
		return account.Account{}, err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE accounts
		SET password_hash = $2, is_approved = $3, has_paid = $4, favorites = $5, updated_at = $6
		WHERE id = $1
	`, acct.ID, acct.PasswordHash, acct.IsApproved, acct.HasPaid, favoritesJSON, acct.UpdatedAt)
	if err != nil {
		return account.Account{}, translateErr(err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return account.Account{}, storage.ErrNotFound
	}
	return acct, nil
}

func (s *Store) GetAccount(ctx context.Context, id string) (account.Account, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE id = $1
	`, id)
	return scanAccount(row)
}

func (s *Store) GetAccountByEmail(ctx context.Context, email string) (account.Account, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE email = $1
	`, strings.ToLower(strings.TrimSpace(email)))
	return scanAccount(row)
}

func (s *Store) ListAccounts(ctx context.Context) ([]account.Account, error) {
	return s.queryAccounts(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		ORDER BY created_at DESC
	`)
}

func (s *Store) ListPendingAccounts(ctx context.Context) ([]account.Account, error) {
	return s.queryAccounts(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE role = 'user' AND is_approved = FALSE
		ORDER BY created_at DESC
	`)
}

func (s *Store) queryAccounts(ctx context.Context, query string, args ...interface{}) ([]account.Account, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []account.Account
	for rows.Next() {
		acct, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, acct)
	}
	return result, rows.Err()
}

func (s *Store) DeleteAccount(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return translateErr(err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ApproveAccount performs the conditional flip in a single statement so two
// concurrent approvals cannot both succeed.
func (s *Store) ApproveAccount(ctx context.Context, id string) (account.Account, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE accounts
		SET is_approved = TRUE, has_paid = TRUE, updated_at = $2
		WHERE id = $1 AND is_approved = FALSE
	`, id, time.Now().UTC())
	if err != nil {
		return account.Account{}, translateErr(err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		if _, err := s.GetAccount(ctx, id); err != nil {
			return account.Account{}, err
		}
		return account.Account{}, storage.ErrInvalidState
	}
	return s.GetAccount(ctx, id)
}

type scannable interface {
	Scan(dest ...interface{}) error
}

func scanAccount(row scannable) (account.Account, error) {
	var (
		acct         account.Account
		favoritesRaw []byte
	)
	err := row.Scan(&acct.ID, &acct.Email, &acct.PasswordHash, &acct.Role,
		&acct.IsApproved, &acct.HasPaid, &acct.PaymentMethod, &acct.PaymentEmail,
		&acct.WalletAddress, &acct.TransactionRef, &favoritesRaw,
		&acct.CreatedAt, &acct.UpdatedAt)
	if err != nil {
		return account.Account{}, translateErr(err)
	}
	if len(favoritesRaw) > 0 {
		_ = json.Unmarshal(favoritesRaw, &acct.Favorites)
	}
	return acct, nil
}

// --- TransactionStore -------------------------------------------------------

const txColumns = `id, account_id, account_email, amount, method, status, created_at, updated_at`

func (s *Store) CreateTransaction(ctx context.Context, tx payment.Transaction) (payment.Transaction, error) {
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	if tx.Status == "" {
		tx.Status = payment.StatusPending
	}
	now := time.Now().UTC()
	tx.CreatedAt = now
	tx.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transactions (id, account_id, account_email, amount, method, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, tx.ID, tx.AccountID, tx.AccountEmail, tx.Amount, tx.Method, tx.Status, tx.CreatedAt, tx.UpdatedAt)
	if err != nil {
		return payment.Transaction{}, translateErr(err)
	}
	return tx, nil
}

func (s *Store) GetTransaction(ctx context.Context, id string) (payment.Transaction, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+txColumns+`
		FROM transactions
		WHERE id = $1
	`, id)
	return scanTransaction(row)
}

func (s *Store) ListTransactions(ctx context.Context, accountID string) ([]payment.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+txColumns+`
		FROM transactions
		WHERE $1 = '' OR account_id = $1
		ORDER BY created_at DESC
	`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []payment.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, tx)
	}
	return result, rows.Err()
}

// CompleteTransaction commits the transaction status and the owner's paid
// flag in one database transaction. The conditional UPDATE serializes
// concurrent approvals: the loser sees zero rows and ErrInvalidState.
func (s *Store) CompleteTransaction(ctx context.Context, id string) (payment.Transaction, error) {
	dbtx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return payment.Transaction{}, err
	}
	defer func() { _ = dbtx.Rollback() }()

	now := time.Now().UTC()
	row := dbtx.QueryRowContext(ctx, `
		UPDATE transactions
		SET status = 'completed', updated_at = $2
		WHERE id = $1 AND status = 'pending'
		RETURNING `+txColumns+`
	`, id, now)

	tx, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return payment.Transaction{}, s.resolveConflict(ctx, id)
		}
		return payment.Transaction{}, err
	}

	if _, err := dbtx.ExecContext(ctx, `
		UPDATE accounts
		SET has_paid = TRUE, updated_at = $2
		WHERE id = $1
	`, tx.AccountID, now); err != nil {
		return payment.Transaction{}, translateErr(err)
	}

	if err := dbtx.Commit(); err != nil {
		return payment.Transaction{}, err
	}
	return tx, nil
}

func (s *Store) RejectTransaction(ctx context.Context, id string) (payment.Transaction, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE transactions
		SET status = 'rejected', updated_at = $2
		WHERE id = $1 AND status = 'pending'
		RETURNING `+txColumns+`
	`, id, time.Now().UTC())

	tx, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return payment.Transaction{}, s.resolveConflict(ctx, id)
		}
		return payment.Transaction{}, err
	}
	return tx, nil
}

// resolveConflict distinguishes an unknown transaction from an already
// resolved one after a conditional update matched nothing.
func (s *Store) resolveConflict(ctx context.Context, id string) error {
	if _, err := s.GetTransaction(ctx, id); err != nil {
		return err
	}
	return storage.ErrInvalidState
}

func scanTransaction(row scannable) (payment.Transaction, error) {
	var tx payment.Transaction
	err := row.Scan(&tx.ID, &tx.AccountID, &tx.AccountEmail, &tx.Amount,
		&tx.Method, &tx.Status, &tx.CreatedAt, &tx.UpdatedAt)
	if err != nil {
		return payment.Transaction{}, translateErr(err)
	}
	return tx, nil
}

// --- ListingStore -----------------------------------------------------------

const listingColumns = `id, city, title, area, price, beds, baths, sqft, type,
	address, image_url, description, amenities, contact, is_active, created_at, updated_at`

func (s *Store) CreateListing(ctx context.Context, l listing.Listing) (listing.Listing, error) {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	l.CreatedAt = now
	l.UpdatedAt = now

	amenitiesJSON, err := json.Marshal(l.Amenities)
	if err != nil {
		return listing.Listing{}, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO listings (id, city, title, area, price, beds, baths, sqft, type,
			address, image_url, description, amenities, contact, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`, l.ID, l.City, l.Title, l.Area, l.Price, l.Beds, l.Baths, l.Sqft, l.Type,
		l.Address, l.ImageURL, l.Description, amenitiesJSON, l.Contact, l.Active,
		l.CreatedAt, l.UpdatedAt)
	if err != nil {
		return listing.Listing{}, translateErr(err)
	}
	return l, nil
}

func (s *Store) UpdateListing(ctx context.Context, l listing.Listing) (listing.Listing, error) {
	existing, err := s.GetListing(ctx, l.ID)
	if err != nil {
		return listing.Listing{}, err
	}

	l.CreatedAt = existing.CreatedAt
	l.UpdatedAt = time.Now().UTC()

	amenitiesJSON, err := json.Marshal(l.Amenities)
	if err != nil {
		return listing.Listing{}, err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE listings
		SET city = $2, title = $3, area = $4, price = $5, beds = $6, baths = $7,
			sqft = $8, type = $9, address = $10, image_url = $11, description = $12,
			amenities = $13, contact = $14, is_active = $15, updated_at = $16
		WHERE id = $1
	`, l.ID, l.City, l.Title, l.Area, l.Price, l.Beds, l.Baths, l.Sqft, l.Type,
		l.Address, l.ImageURL, l.Description, amenitiesJSON, l.Contact, l.Active, l.UpdatedAt)
	if err != nil {
		return listing.Listing{}, translateErr(err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return listing.Listing{}, storage.ErrNotFound
	}
	return l, nil
}

func (s *Store) GetListing(ctx context.Context, id string) (listing.Listing, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+listingColumns+`
		FROM listings
		WHERE id = $1
	`, id)
	return scanListing(row)
}

func (s *Store) DeleteListing(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM listings WHERE id = $1`, id)
	if err != nil {
		return translateErr(err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) SearchListings(ctx context.Context, q storage.ListingQuery) ([]listing.Listing, error) {
	var (
		conditions []string
		args       []interface{}
	)
	if q.ActiveOnly {
		conditions = append(conditions, "is_active = TRUE")
	}
	if q.City != "" {
		args = append(args, q.City)
		conditions = append(conditions, fmt.Sprintf("city = $%d", len(args)))
	}
	if q.MaxPrice > 0 {
		args = append(args, q.MaxPrice)
		conditions = append(conditions, fmt.Sprintf("price <= $%d", len(args)))
	}

	query := `SELECT ` + listingColumns + ` FROM listings`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	switch q.Sort {
	case listing.SortPriceLow:
		query += " ORDER BY price ASC"
	case listing.SortPriceHigh:
		query += " ORDER BY price DESC"
	default:
		query += " ORDER BY created_at DESC"
	}

	if q.Limit > 0 {
		args = append(args, q.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []listing.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, l)
	}
	return result, rows.Err()
}

func scanListing(row scannable) (listing.Listing, error) {
	var (
		l            listing.Listing
		amenitiesRaw []byte
	)
	err := row.Scan(&l.ID, &l.City, &l.Title, &l.Area, &l.Price, &l.Beds, &l.Baths,
		&l.Sqft, &l.Type, &l.Address, &l.ImageURL, &l.Description, &amenitiesRaw,
		&l.Contact, &l.Active, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return listing.Listing{}, translateErr(err)
	}
	if len(amenitiesRaw) > 0 {
		_ = json.Unmarshal(amenitiesRaw, &l.Amenities)
	}
	return l, nil
}

// --- ConfigStore ------------------------------------------------------------

const configColumns = `id, paypal_email, btc_address, usdt_address, price_usd, created_at, updated_at`

func (s *Store) GetConfig(ctx context.Context) (adminconfig.Config, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT ` + configColumns + `
		FROM admin_config
		ORDER BY created_at
		LIMIT 1
	`)

	var cfg adminconfig.Config
	err := row.Scan(&cfg.ID, &cfg.PayPalEmail, &cfg.BTCAddress, &cfg.USDTAddress,
		&cfg.PriceUSD, &cfg.CreatedAt, &cfg.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return s.insertConfig(ctx, adminconfig.Default())
	}
	if err != nil {
		return adminconfig.Config{}, translateErr(err)
	}
	return cfg, nil
}

func (s *Store) UpsertConfig(ctx context.Context, cfg adminconfig.Config) (adminconfig.Config, error) {
	existing, err := s.GetConfig(ctx)
	if err != nil {
		return adminconfig.Config{}, err
	}

	cfg.ID = existing.ID
	cfg.CreatedAt = existing.CreatedAt
	cfg.UpdatedAt = time.Now().UTC()

	_, err = s.db.ExecContext(ctx, `
		UPDATE admin_config
		SET paypal_email = $2, btc_address = $3, usdt_address = $4, price_usd = $5, updated_at = $6
		WHERE id = $1
	`, cfg.ID, cfg.PayPalEmail, cfg.BTCAddress, cfg.USDTAddress, cfg.PriceUSD, cfg.UpdatedAt)
	if err != nil {
		return adminconfig.Config{}, translateErr(err)
	}
	return cfg, nil
}

func (s *Store) insertConfig(ctx context.Context, cfg adminconfig.Config) (adminconfig.Config, error) {
	cfg.ID = uuid.NewString()
	now := time.Now().UTC()
	cfg.CreatedAt = now
	cfg.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO admin_config (id, paypal_email, btc_address, usdt_address, price_usd, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, cfg.ID, cfg.PayPalEmail, cfg.BTCAddress, cfg.USDTAddress, cfg.PriceUSD, cfg.CreatedAt, cfg.UpdatedAt)
	if err != nil {
		return adminconfig.Config{}, translateErr(err)
	}
	return cfg, nil
}

// --- StatsStore -------------------------------------------------------------

// GatherStats aggregates the dashboard counters in a single round trip.
func (s *Store) GatherStats(ctx context.Context) (admin.Stats, error) {
	var raw struct {
		TotalUsers            int     `db:"total_users"`
		PaidUsers             int     `db:"paid_users"`
		PendingSignups        int     `db:"pending_signups"`
		ActiveListings        int     `db:"active_listings"`
		PendingTransactions   int     `db:"pending_transactions"`
		CompletedTransactions int     `db:"completed_transactions"`
		TotalRevenue          float64 `db:"total_revenue"`
	}

	err := s.db.GetContext(ctx, &raw, `
		SELECT
			(SELECT COUNT(*) FROM accounts) AS total_users,
			(SELECT COUNT(*) FROM accounts WHERE has_paid) AS paid_users,
			(SELECT COUNT(*) FROM accounts WHERE role = 'user' AND NOT is_approved) AS pending_signups,
			(SELECT COUNT(*) FROM listings WHERE is_active) AS active_listings,
			(SELECT COUNT(*) FROM transactions WHERE status = 'pending') AS pending_transactions,
			(SELECT COUNT(*) FROM transactions WHERE status = 'completed') AS completed_transactions,
			(SELECT COALESCE(SUM(amount), 0) FROM transactions WHERE status = 'completed') AS total_revenue
	`)
	if err != nil {
		return admin.Stats{}, err
	}

	stats := admin.Stats{
		TotalUsers:            raw.TotalUsers,
		PaidUsers:             raw.PaidUsers,
		PendingSignups:        raw.PendingSignups,
		ActiveListings:        raw.ActiveListings,
		PendingTransactions:   raw.PendingTransactions,
		CompletedTransactions: raw.CompletedTransactions,
		TotalRevenue:          raw.TotalRevenue,
	}
	if stats.TotalUsers > 0 {
		stats.ConversionRate = int(float64(stats.PaidUsers)/float64(stats.TotalUsers)*100 + 0.5)
	}
	return stats, nil
}
