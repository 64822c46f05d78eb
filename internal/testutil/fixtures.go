package testutil

import (
	"database/sql"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/paysettle/internal/domain"
)

func SeedUser(t *testing.T, db *sql.DB, email string, pushToken *string) uuid.UUID {
	t.Helper()

	id := uuid.New()
	_, err := db.Exec(
		`INSERT INTO users (id, email, name, push_token) VALUES ($1, $2, $3, $4)`,
		id, email, email, pushToken,
	)
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return id
}

// SeedBusiness creates a business; an invalid managerID leaves it without a
// manager.
func SeedBusiness(t *testing.T, db *sql.DB, managerID uuid.NullUUID) uuid.UUID {
	t.Helper()

	id := uuid.New()
	_, err := db.Exec(
		`INSERT INTO businesses (id, name, manager_id) VALUES ($1, $2, $3)`,
		id, "Business "+id.String()[:8], managerID,
	)
	if err != nil {
		t.Fatalf("seed business: %v", err)
	}
	return id
}

func SeedBooking(t *testing.T, db *sql.DB, businessID, userID uuid.UUID, status domain.BookingStatus) uuid.UUID {
	t.Helper()

	id := uuid.New()
	_, err := db.Exec(
		`INSERT INTO bookings (id, business_id, user_id, status) VALUES ($1, $2, $3, $4)`,
		id, businessID, userID, status,
	)
	if err != nil {
		t.Fatalf("seed booking: %v", err)
	}
	return id
}

func SeedOrder(t *testing.T, db *sql.DB, businessID, userID uuid.UUID, status domain.OrderStatus) uuid.UUID {
	t.Helper()

	id := uuid.New()
	_, err := db.Exec(
		`INSERT INTO orders (id, business_id, user_id, status) VALUES ($1, $2, $3, $4)`,
		id, businessID, userID, status,
	)
	if err != nil {
		t.Fatalf("seed order: %v", err)
	}
	return id
}

func GetBookingStatus(t *testing.T, db *sql.DB, id uuid.UUID) (domain.BookingStatus, uuid.NullUUID) {
	t.Helper()

	var status domain.BookingStatus
	var paymentID uuid.NullUUID
	if err := db.QueryRow(`SELECT status, payment_id FROM bookings WHERE id = $1`, id).Scan(&status, &paymentID); err != nil {
		t.Fatalf("get booking status: %v", err)
	}
	return status, paymentID
}

func GetOrderStatus(t *testing.T, db *sql.DB, id uuid.UUID) (domain.OrderStatus, uuid.NullUUID) {
	t.Helper()

	var status domain.OrderStatus
	var paymentID uuid.NullUUID
	if err := db.QueryRow(`SELECT status, payment_id FROM orders WHERE id = $1`, id).Scan(&status, &paymentID); err != nil {
		t.Fatalf("get order status: %v", err)
	}
	return status, paymentID
}

// GetWalletBalance returns the manager's balance, or zero when no wallet exists.
func GetWalletBalance(t *testing.T, db *sql.DB, managerID uuid.UUID) decimal.Decimal {
	t.Helper()

	var balance decimal.Decimal
	err := db.QueryRow(`SELECT balance FROM wallets WHERE manager_id = $1`, managerID).Scan(&balance)
	if err == sql.ErrNoRows {
		return decimal.Zero
	}
	if err != nil {
		t.Fatalf("get wallet balance: %v", err)
	}
	return balance
}

func CountRows(t *testing.T, db *sql.DB, query string, args ...any) int {
	t.Helper()

	var n int
	if err := db.QueryRow(query, args...).Scan(&n); err != nil {
		t.Fatalf("count rows: %v", err)
	}
	return n
}
