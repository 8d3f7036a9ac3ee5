package events

import "time"

// Evento emitido pelo lottery-service após encerrar um concurso.
type ContestSettled struct {
	ContestID       string    `json:"contest_id"`
	MonthYear       string    `json:"month_year"`
	WinningNumbers  []int     `json:"winning_numbers"`
	Winners6        int       `json:"winners6"`
	Winners5        int       `json:"winners5"`
	HadWinners      bool      `json:"had_winners"`
	PrizeValueCents int64     `json:"prize_value_cents"`
	CarryoverCents  int64     `json:"carryover_cents"`
	FailedPayouts   int       `json:"failed_payouts"`
	Ts              time.Time `json:"ts"`
}
