package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/xeromart/storefront/pkg/types"
)

// ErrNotFound is returned when no order exists for a refno.
var ErrNotFound = errors.New("order not found")

// Order statuses. PENDING is the only initial state; the other three are
// terminal and never revert.
const (
	StatusPending  = "PENDING"
	StatusComplete = "COMPLETE"
	StatusCanceled = "CANCELED"
	StatusError    = "ERROR"
)

// Local (store-internal) processing stages, consulted alongside status as a
// secondary completion signal.
const (
	LocalCreated    = "created"
	LocalProcessing = "processing"
	LocalCompleted  = "completed"
	LocalFailed     = "failed"
)

// OrderRecord is the authoritative server-owned record for one ordered card.
type OrderRecord struct {
	Refno        string
	SKU          string
	Amount       float64
	PaymentID    string
	GatewayOrder string
	OrderIndex   int
	FirstName    string
	LastName     string
	Email        string
	Phone        string
	ProductName  string
	Status       string
	LocalStatus  string
	CardNumber   string
	CardPin      string
	Validity     string
	IssuanceDate string
	IssuerRef    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Terminal reports whether the record has reached a state that never reverts.
func (r *OrderRecord) Terminal() bool {
	return r.Status == StatusComplete || r.Status == StatusCanceled || r.Status == StatusError
}

// OrderStore persists order records in SQLite. Records are never deleted;
// they are retained for support and audit.
type OrderStore struct {
	db *sql.DB
}

// NewOrderStore opens (creating if needed) the orders database at dbPath.
func NewOrderStore(dbPath string) (*OrderStore, error) {
	// Expand ~ in path
	if strings.HasPrefix(dbPath, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		dbPath = filepath.Join(home, dbPath[1:])
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	store := &OrderStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// NewOrderStoreWithDB wraps an existing database handle (for tests).
func NewOrderStoreWithDB(db *sql.DB) (*OrderStore, error) {
	store := &OrderStore{db: db}
	if err := store.migrate(); err != nil {
		return nil, err
	}
	return store, nil
}

// migrate creates the necessary tables. The unique index on
// (payment_id, sku, order_index) is the idempotency key: a retried placement
// request can never create a second record for the same paid unit.
func (s *OrderStore) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS orders (
			refno TEXT PRIMARY KEY,
			sku TEXT NOT NULL,
			amount REAL NOT NULL,
			payment_id TEXT NOT NULL,
			gateway_order TEXT NOT NULL,
			order_index INTEGER NOT NULL,
			first_name TEXT NOT NULL,
			last_name TEXT NOT NULL,
			email TEXT,
			phone TEXT,
			product_name TEXT,
			status TEXT NOT NULL,
			local_status TEXT NOT NULL,
			card_number TEXT,
			card_pin TEXT,
			validity TEXT,
			issuance_date TEXT,
			issuer_ref TEXT,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);

		CREATE UNIQUE INDEX IF NOT EXISTS idx_orders_payment
			ON orders(payment_id, sku, order_index);
		CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *OrderStore) Close() error {
	return s.db.Close()
}

// CreateOrder inserts a new record. Fails if the refno or the idempotency
// key already exists.
func (s *OrderStore) CreateOrder(r *OrderRecord) error {
	_, err := s.db.Exec(`
		INSERT INTO orders (refno, sku, amount, payment_id, gateway_order, order_index,
			first_name, last_name, email, phone, product_name,
			status, local_status, card_number, card_pin, validity, issuance_date, issuer_ref,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.Refno, r.SKU, r.Amount, r.PaymentID, r.GatewayOrder, r.OrderIndex,
		r.FirstName, r.LastName, r.Email, r.Phone, r.ProductName,
		r.Status, r.LocalStatus, r.CardNumber, r.CardPin, r.Validity, r.IssuanceDate, r.IssuerRef,
		r.CreatedAt, r.UpdatedAt)

	return err
}

const orderColumns = `refno, sku, amount, payment_id, gateway_order, order_index,
	first_name, last_name, email, phone, product_name,
	status, local_status, card_number, card_pin, validity, issuance_date, issuer_ref,
	created_at, updated_at`

func scanOrder(row interface{ Scan(...any) error }) (*OrderRecord, error) {
	var r OrderRecord
	err := row.Scan(&r.Refno, &r.SKU, &r.Amount, &r.PaymentID, &r.GatewayOrder, &r.OrderIndex,
		&r.FirstName, &r.LastName, &r.Email, &r.Phone, &r.ProductName,
		&r.Status, &r.LocalStatus, &r.CardNumber, &r.CardPin, &r.Validity, &r.IssuanceDate, &r.IssuerRef,
		&r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// GetOrder retrieves a record by refno.
func (s *OrderStore) GetOrder(refno string) (*OrderRecord, error) {
	row := s.db.QueryRow(`SELECT `+orderColumns+` FROM orders WHERE refno = ?`, refno)

	r, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, refno)
		}
		return nil, err
	}
	return r, nil
}

// FindByPayment looks up the record created for one paid unit, identified by
// the idempotency key. Returns ErrNotFound when no record exists yet.
func (s *OrderStore) FindByPayment(paymentID, sku string, orderIndex int) (*OrderRecord, error) {
	row := s.db.QueryRow(`SELECT `+orderColumns+` FROM orders
		WHERE payment_id = ? AND sku = ? AND order_index = ?`, paymentID, sku, orderIndex)

	r, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: payment %s sku %s index %d", ErrNotFound, paymentID, sku, orderIndex)
		}
		return nil, err
	}
	return r, nil
}

// MaxRefnoSeq returns the highest numeric refno suffix on record, so a
// restarted server continues the sequence where it left off instead of
// deriving it from a clock that could regress or collide across processes.
// Returns 0 when no orders exist.
func (s *OrderStore) MaxRefnoSeq() (int64, error) {
	var max sql.NullInt64
	err := s.db.QueryRow(`SELECT MAX(CAST(substr(refno, ?) AS INTEGER)) FROM orders`,
		len(types.RefnoPrefix)+1).Scan(&max)
	if err != nil {
		return 0, err
	}
	return max.Int64, nil
}

// ApplyIssuance records the outcome of an issuer call. Terminal records are
// never overwritten, which makes concurrent force-updates for the same refno
// safe to race.
func (s *OrderStore) ApplyIssuance(refno, status, localStatus, cardNumber, cardPin, validity, issuanceDate, issuerRef string) error {
	res, err := s.db.Exec(`
		UPDATE orders
		SET status = ?, local_status = ?,
			card_number = ?, card_pin = ?, validity = ?, issuance_date = ?,
			issuer_ref = CASE WHEN ? != '' THEN ? ELSE issuer_ref END,
			updated_at = ?
		WHERE refno = ? AND status = ?
	`, status, localStatus, cardNumber, cardPin, validity, issuanceDate,
		issuerRef, issuerRef, time.Now().UTC(), refno, StatusPending)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Either unknown refno or already terminal; distinguish for callers.
		if _, err := s.GetOrder(refno); err != nil {
			return err
		}
	}
	return nil
}

// SetLocalStatus updates only the processing stage of a still-pending record.
func (s *OrderStore) SetLocalStatus(refno, localStatus string) error {
	_, err := s.db.Exec(`
		UPDATE orders SET local_status = ?, updated_at = ?
		WHERE refno = ? AND status = ?
	`, localStatus, time.Now().UTC(), refno, StatusPending)
	return err
}

// ListPending returns up to limit records still awaiting issuance, oldest
// first. Used by the background reconciler.
func (s *OrderStore) ListPending(limit int) ([]*OrderRecord, error) {
	rows, err := s.db.Query(`SELECT `+orderColumns+` FROM orders
		WHERE status = ? ORDER BY created_at ASC LIMIT ?`, StatusPending, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*OrderRecord
	for rows.Next() {
		r, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}

	return records, rows.Err()
}
