package database

import (
	"context"
	"sort"
)

type KYCTier struct {
	ID           string               `db:"id"`
	TierName     string               `db:"tier_name"`
	Ordinal      int                  `db:"ordinal"`
	DailyLimit   float64              `db:"daily_limit"`
	MonthlyLimit float64              `db:"monthly_limit"`
	Requirements []KYCTierRequirement `db:"requirements"`
}

type KYCTierRequirement struct {
	ID          string `db:"id"`
	Requirement string `db:"requirement"`
}

func (db *DB) GetKYCTiers() ([]KYCTier, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	query := `
		SELECT
			kt.id,
			kt.tier_name,
			kt.ordinal,
			kt.daily_limit,
			kt.monthly_limit,
			ktr.id as requirement_id,
			ktr.requirement
		FROM
			kyc_tiers kt
		LEFT JOIN
			kyc_tier_requirements ktr
		ON
			kt.id = ktr.kyc_tier_id
		ORDER BY
			kt.ordinal;
	`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tierMap := make(map[string]*KYCTier)

	for rows.Next() {
		var (
			tierID           string
			tierName         string
			ordinal          int
			dailyLimit       float64
			monthlyLimit     float64
			requirementID    *string
			requirementValue *string
		)

		if err := rows.Scan(
			&tierID,
			&tierName,
			&ordinal,
			&dailyLimit,
			&monthlyLimit,
			&requirementID,
			&requirementValue,
		); err != nil {
			return nil, err
		}

		tier, exists := tierMap[tierID]
		if !exists {
			tier = &KYCTier{
				ID:           tierID,
				TierName:     tierName,
				Ordinal:      ordinal,
				DailyLimit:   dailyLimit,
				MonthlyLimit: monthlyLimit,
				Requirements: []KYCTierRequirement{},
			}
			tierMap[tierID] = tier
		}

		if requirementID != nil && requirementValue != nil {
			tier.Requirements = append(tier.Requirements, KYCTierRequirement{
				ID:          *requirementID,
				Requirement: *requirementValue,
			})
		}
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	var tiers []KYCTier
	for _, tier := range tierMap {
		tiers = append(tiers, *tier)
	}

	sort.Slice(tiers, func(i, j int) bool {
		return tiers[i].Ordinal < tiers[j].Ordinal
	})

	return tiers, nil
}
