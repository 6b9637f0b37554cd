package database

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// VerificationProfile is the per-user KYC record. It is created at signup with
// no verified tiers and only ever superseded, never deleted. The kyc_level
// ordinal and the daily/monthly limit columns are denormalized caches written
// by the verification webhook; the tierN_verified flags are the canonical
// source when resolving a user's effective tier.
type VerificationProfile struct {
	ID            string         `db:"id"`
	UserID        string         `db:"user_id"`
	KycLevel      int            `db:"kyc_level"`
	KycStatus     string         `db:"kyc_status"`
	Tier1Verified bool           `db:"tier1_verified"`
	Tier2Verified bool           `db:"tier2_verified"`
	Tier3Verified bool           `db:"tier3_verified"`
	DailyLimit    float64        `db:"daily_limit"`
	MonthlyLimit  float64        `db:"monthly_limit"`
	DocumentURL   sql.NullString `db:"document_url"`
	CreatedAt     time.Time      `db:"created_at"`
	UpdatedAt     sql.NullTime   `db:"updated_at"`
}

// define possible KYC statuses
const (
	KycStatusPending  = "pending"
	KycStatusVerified = "verified"
	KycStatusRejected = "rejected"
)

func (db *DB) GetVerificationProfile(userID string) (*VerificationProfile, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var profile VerificationProfile

	query := `SELECT * FROM verification_profiles WHERE user_id = $1`

	err := db.GetContext(ctx, &profile, query, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	return &profile, true, nil
}

func (db *DB) CreateVerificationProfile(userID string, tx *sql.Tx) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var id string

	query := `
		INSERT INTO verification_profiles (user_id)
		VALUES ($1)
		RETURNING id`

	if tx != nil {
		err := tx.QueryRowContext(ctx, query, userID).Scan(&id)
		if err != nil {
			return "", err
		}
	} else {
		err := db.GetContext(ctx, &id, query, userID)
		if err != nil {
			return "", err
		}
	}

	return id, nil
}

// AttachKycDocument records the uploaded document URL and moves the profile
// back to pending review.
func (db *DB) AttachKycDocument(userID, documentURL string) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	query := `
		UPDATE verification_profiles
		SET document_url = $1, kyc_status = $2, updated_at = NOW()
		WHERE user_id = $3`

	_, err := db.ExecContext(ctx, query, documentURL, KycStatusPending, userID)
	return err
}
