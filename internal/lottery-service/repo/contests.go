package repo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Contests implementa a persistência de concursos em banco.
type Contests struct{ db *sql.DB }

func NewContests(db *sql.DB) *Contests { return &Contests{db: db} }

const contestCols = `id, month_year, status, bet_price_cents, closing_date,
	total_collected_cents, num_bets, winning_numbers, carryover_cents, created_at, closed_at`

func scanContest(row *sql.Row) (*Contest, error) {
	var c Contest
	var winning pq.Int64Array
	var closedAt sql.NullTime
	err := row.Scan(&c.ID, &c.MonthYear, &c.Status, &c.BetPriceCents, &c.ClosingDate,
		&c.TotalCollectedCents, &c.NumBets, &winning, &c.CarryoverCents, &c.CreatedAt, &closedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	c.WinningNumbers = []int64(winning)
	if closedAt.Valid {
		t := closedAt.Time
		c.ClosedAt = &t
	}
	return &c, nil
}

// Get retorna um concurso pelo id.
func (r *Contests) Get(ctx context.Context, id string) (*Contest, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+contestCols+` FROM contests WHERE id=$1`, id)
	return scanContest(row)
}

// GetOpen retorna o concurso aberto corrente.
func (r *Contests) GetOpen(ctx context.Context) (*Contest, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+contestCols+` FROM contests WHERE status=$1 ORDER BY created_at DESC LIMIT 1`,
		ContestOpen)
	return scanContest(row)
}

// Create abre um novo concurso, semeando total_collected com o valor informado
// (carryover do concurso anterior sem ganhadores, ou 0).
// O invariante de concurso único aberto é garantido aqui: o INSERT só acontece
// se nenhum outro concurso estiver com status=open.
func (r *Contests) Create(ctx context.Context, c *Contest) (string, error) {
	id := uuid.NewString()
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO contests (id, month_year, status, bet_price_cents, closing_date,
		                      total_collected_cents, num_bets, carryover_cents, created_at)
		SELECT $1, $2, $3, $4, $5, $6, 0, 0, NOW()
		WHERE NOT EXISTS (SELECT 1 FROM contests WHERE status = $3)`,
		id, c.MonthYear, ContestOpen, c.BetPriceCents, c.ClosingDate, c.TotalCollectedCents)
	if err != nil {
		return "", fmt.Errorf("insert contest: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "", ErrOpenContestExists
	}
	return id, nil
}

// CloseIfOpen é o ponto de linearização do encerramento: transiciona
// open -> closed e grava os números sorteados em um único UPDATE condicional.
// Uma segunda tentativa concorrente vê zero linhas afetadas e recebe
// ErrContestNotOpen.
func (r *Contests) CloseIfOpen(ctx context.Context, id string, winning []int64) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE contests
		SET status=$1, winning_numbers=$2, closed_at=NOW()
		WHERE id=$3 AND status=$4`,
		ContestClosed, pq.Int64Array(winning), id, ContestOpen)
	if err != nil {
		return fmt.Errorf("close contest: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrContestNotOpen
	}
	return nil
}

// AddCollected acumula o valor de uma aposta no pote e no contador de apostas.
// Acumulador best-effort: pode ficar levemente defasado sob alta concorrência.
func (r *Contests) AddCollected(ctx context.Context, id string, amountCents int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE contests
		SET total_collected_cents = total_collected_cents + $1, num_bets = num_bets + 1
		WHERE id=$2`,
		amountCents, id)
	return err
}

// RecordCarryover grava o valor que rola para o próximo concurso quando o
// encerramento não teve ganhadores.
func (r *Contests) RecordCarryover(ctx context.Context, id string, carryoverCents int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE contests SET carryover_cents=$1 WHERE id=$2`, carryoverCents, id)
	return err
}

// LastCarryover retorna o carryover do concurso fechado mais recente.
func (r *Contests) LastCarryover(ctx context.Context) (int64, error) {
	var cents int64
	err := r.db.QueryRowContext(ctx, `
		SELECT carryover_cents FROM contests
		WHERE status=$1 ORDER BY closed_at DESC LIMIT 1`,
		ContestClosed).Scan(&cents)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return cents, nil
}
