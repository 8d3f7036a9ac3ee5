package repo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Bets implementa a persistência de apostas em banco.
type Bets struct{ db *sql.DB }

func NewBets(db *sql.DB) *Bets { return &Bets{db: db} }

// Insert grava uma aposta nova, condicionada ao concurso ainda estar aberto:
// uma leitura defasada do concurso (cache) não passa daqui. Zero linhas vira
// ErrContestNotOpen. O índice único (contest_id, user_id) garante uma aposta
// por usuário por concurso; violação vira ErrDuplicateBet.
func (r *Bets) Insert(ctx context.Context, b *Bet) (string, error) {
	id := uuid.NewString()
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO bets (id, contest_id, user_id, chosen_numbers, amount_cents, prize_paid, created_at)
		SELECT $1, $2, $3, $4, $5, false, NOW()
		WHERE EXISTS (SELECT 1 FROM contests WHERE id = $2 AND status = $6)`,
		id, b.ContestID, b.UserID, pq.Int64Array(b.ChosenNumbers), b.AmountCents, ContestOpen)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return "", ErrDuplicateBet
		}
		return "", fmt.Errorf("insert bet: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "", ErrContestNotOpen
	}
	return id, nil
}

// Delete remove uma aposta. Usado apenas pela compensação do fluxo de
// colocação quando uma escrita posterior ao débito falha.
func (r *Bets) Delete(ctx context.Context, betID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM bets WHERE id=$1`, betID)
	return err
}

const betCols = `id, contest_id, user_id, chosen_numbers, amount_cents, hits, prize_cents, prize_paid, created_at`

func scanBets(rows *sql.Rows) ([]Bet, error) {
	defer rows.Close()
	var out []Bet
	for rows.Next() {
		var b Bet
		var chosen pq.Int64Array
		var hits sql.NullInt64
		var prize sql.NullInt64
		if err := rows.Scan(&b.ID, &b.ContestID, &b.UserID, &chosen, &b.AmountCents,
			&hits, &prize, &b.PrizePaid, &b.CreatedAt); err != nil {
			return nil, err
		}
		b.ChosenNumbers = []int64(chosen)
		if hits.Valid {
			h := int(hits.Int64)
			b.Hits = &h
		}
		if prize.Valid {
			p := prize.Int64
			b.PrizeCents = &p
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// ListByContest retorna todas as apostas de um concurso.
func (r *Bets) ListByContest(ctx context.Context, contestID string) ([]Bet, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+betCols+` FROM bets WHERE contest_id=$1 ORDER BY created_at`, contestID)
	if err != nil {
		return nil, err
	}
	return scanBets(rows)
}

// ListByUser retorna as apostas do usuário, mais recentes primeiro.
func (r *Bets) ListByUser(ctx context.Context, userID string, limit int) ([]Bet, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+betCols+` FROM bets WHERE user_id=$1 ORDER BY created_at DESC LIMIT $2`,
		userID, limit)
	if err != nil {
		return nil, err
	}
	return scanBets(rows)
}

// SetHits persiste a contagem de acertos de uma aposta (auditoria/histórico).
func (r *Bets) SetHits(ctx context.Context, betID string, hits int) error {
	_, err := r.db.ExecContext(ctx, `UPDATE bets SET hits=$1 WHERE id=$2`, hits, betID)
	return err
}

// SetPrizeDue registra o prêmio líquido devido a um ganhador antes do crédito.
// prize_paid permanece false até o crédito efetivar; a reconciliação usa esse
// valor gravado em vez de recalcular.
func (r *Bets) SetPrizeDue(ctx context.Context, betID string, prizeCents int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE bets SET prize_cents=$1 WHERE id=$2`, prizeCents, betID)
	return err
}

// MarkPrizePaid marca o prêmio como efetivamente creditado.
func (r *Bets) MarkPrizePaid(ctx context.Context, betID string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE bets SET prize_paid=true WHERE id=$1`, betID)
	return err
}

// UnpaidWinners retorna apostas ganhadoras (5 ou 6 acertos) de um concurso
// ainda não pagas. Base da reconciliação de pagamentos.
func (r *Bets) UnpaidWinners(ctx context.Context, contestID string) ([]Bet, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+betCols+` FROM bets
		 WHERE contest_id=$1 AND hits >= 5 AND prize_paid = false`, contestID)
	if err != nil {
		return nil, err
	}
	return scanBets(rows)
}
