package database

import (
	"context"
	"database/sql"
	"errors"
	"hash/fnv"
	"time"
)

// Transaction is one row of the append-only ledger. The policy engine only
// ever reads rows and inserts new pending ones; status transitions happen in
// the settlement workers.
type Transaction struct {
	ID              string       `db:"id"`
	UserID          string       `db:"user_id"`
	Type            string       `db:"type"`
	Currency        string       `db:"currency"`
	Amount          float64      `db:"amount"`
	Rate            float64      `db:"rate"`
	Fee             float64      `db:"fee"`
	PaymentMethod   string       `db:"payment_method"`
	ReferenceNumber string       `db:"reference_number"`
	Status          string       `db:"status"`
	CreatedAt       time.Time    `db:"created_at"`
	UpdatedAt       sql.NullTime `db:"updated_at"`
}

// define possible transaction status
const (
	TransactionStatusPending   = "pending"
	TransactionStatusCompleted = "completed"
	TransactionStatusFailed    = "failed"
)

// define possible transaction types
const (
	TransactionTypeBuy  = "buy"
	TransactionTypeSell = "sell"
)

// ReserveTransaction inserts a pending ledger row only when the user's window
// totals, re-aggregated inside the same transaction, still leave room for the
// amount under both ceilings. Reservations for one user are serialized with a
// per-user advisory lock: under READ COMMITTED two overlapping statements
// would each snapshot the ledger before the other's insert and both pass the
// re-check, so whichever reservation arrives second must wait for the first
// to commit and then re-aggregate. Returns reserved=false when the headroom
// has gone.
func (db *DB) ReserveTransaction(transaction *Transaction, dayStart, monthStart time.Time, dailyLimit, monthlyLimit float64) (*Transaction, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, false, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, userLockKey(transaction.UserID)); err != nil {
		return nil, false, err
	}

	var trans Transaction

	query := `
		INSERT INTO transactions (user_id, type, currency, amount, rate, fee, payment_method, reference_number)
		SELECT $1, $2, $3, $4, $5, $6, $7, $8
		WHERE (
			SELECT COALESCE(SUM(ABS(amount)), 0) FROM transactions
			WHERE user_id = $1 AND created_at >= $9 AND status IN ('pending', 'completed')
		) + $4 <= $10
		AND (
			SELECT COALESCE(SUM(ABS(amount)), 0) FROM transactions
			WHERE user_id = $1 AND created_at >= $11 AND status IN ('pending', 'completed')
		) + $4 <= $12
		RETURNING id, user_id, type, currency, amount, rate, fee, payment_method, reference_number, status, created_at`

	err = tx.GetContext(ctx, &trans, query,
		transaction.UserID,
		transaction.Type,
		transaction.Currency,
		transaction.Amount,
		transaction.Rate,
		transaction.Fee,
		transaction.PaymentMethod,
		transaction.ReferenceNumber,
		dayStart,
		dailyLimit,
		monthStart,
		monthlyLimit,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	if err := tx.Commit(); err != nil {
		return nil, false, err
	}

	return &trans, true, nil
}

// userLockKey maps a user ID onto the int64 advisory lock space. The hash
// must be stable across processes so every API instance contends on the same
// lock for a given user.
func userLockKey(userID string) int64 {
	h := fnv.New64a()
	h.Write([]byte(userID))
	return int64(h.Sum64())
}

func (db *DB) UpdateTransactionStatus(transactionID, status string) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	query := `
		UPDATE transactions SET status = $1, updated_at = NOW() WHERE id = $2`

	_, err := db.ExecContext(ctx, query, status, transactionID)
	return err
}

func (db *DB) FindTransactionByReference(referenceNumber string) (*Transaction, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var trans Transaction

	query := `
		SELECT * FROM transactions WHERE reference_number = $1`

	err := db.GetContext(ctx, &trans, query, referenceNumber)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	return &trans, true, nil
}

// SumTransactionAmounts totals ABS(amount) for a user's transactions created
// at or after the window start. Pending rows are counted alongside completed
// ones so that not-yet-settled trades still consume headroom.
func (db *DB) SumTransactionAmounts(userID string, windowStart time.Time) (float64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var total float64

	query := `
		SELECT COALESCE(SUM(ABS(amount)), 0) FROM transactions
		WHERE user_id = $1 AND created_at >= $2 AND status IN ('pending', 'completed')`

	err := db.GetContext(ctx, &total, query, userID, windowStart)
	if err != nil {
		return 0, err
	}

	return total, nil
}

func (db *DB) GetUserTransactions(userID string, startDate, endDate *time.Time, limit, offset int) ([]Transaction, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	query := `
		SELECT * FROM transactions
		WHERE user_id = $1
		AND ($2::timestamptz IS NULL OR created_at >= $2)
		AND ($3::timestamptz IS NULL OR created_at <= $3)
		ORDER BY created_at DESC
		LIMIT $4 OFFSET $5`

	var transactions []Transaction

	err := db.SelectContext(ctx, &transactions, query, userID, startDate, endDate, limit, offset)
	if err != nil {
		return nil, err
	}

	return transactions, nil
}
