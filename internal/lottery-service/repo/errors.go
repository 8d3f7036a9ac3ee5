package repo

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrConcurrencyConflict = errors.New("concurrent update conflict")
	ErrContestNotOpen      = errors.New("contest not open")
	ErrOpenContestExists   = errors.New("another contest is still open")
	ErrDuplicateBet        = errors.New("user already has a bet in this contest")
	ErrDuplicatePayment    = errors.New("payment already processed")
	ErrTxNotPending        = errors.New("transaction not pending")
)
