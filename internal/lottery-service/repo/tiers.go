package repo

import (
	"context"
	"database/sql"
)

// Percentuais default quando o admin nunca configurou rateio.
const (
	DefaultHouseSharePct    = 20
	DefaultSixHitsSharePct  = 80
	DefaultFiveHitsSharePct = 20
)

// Tiers guarda o histórico de configurações de rateio; a vigente é a mais
// recente. Cada alteração insere uma linha nova (auditoria).
type Tiers struct{ db *sql.DB }

func NewTiers(db *sql.DB) *Tiers { return &Tiers{db: db} }

// Current retorna a configuração vigente. Sem configuração gravada, valem os
// defaults históricos do produto (80/20 com 20% de taxa administrativa).
func (r *Tiers) Current(ctx context.Context) (*TierConfig, error) {
	var tc TierConfig
	err := r.db.QueryRowContext(ctx, `
		SELECT house_share_pct, six_hits_share_pct, five_hits_share_pct, updated_at
		FROM tier_configs ORDER BY updated_at DESC LIMIT 1`).
		Scan(&tc.HouseSharePct, &tc.SixHitsSharePct, &tc.FiveHitsSharePct, &tc.UpdatedAt)
	if err == sql.ErrNoRows {
		return &TierConfig{
			HouseSharePct:    DefaultHouseSharePct,
			SixHitsSharePct:  DefaultSixHitsSharePct,
			FiveHitsSharePct: DefaultFiveHitsSharePct,
		}, nil
	}
	if err != nil {
		return nil, err
	}
	return &tc, nil
}

// Update grava uma nova configuração vigente.
func (r *Tiers) Update(ctx context.Context, tc *TierConfig) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tier_configs (house_share_pct, six_hits_share_pct, five_hits_share_pct, updated_at)
		VALUES ($1,$2,$3,NOW())`,
		tc.HouseSharePct, tc.SixHitsSharePct, tc.FiveHitsSharePct)
	return err
}
