package service

import "errors"

var (
	// ErrValidation marca entrada malformada ou fora de faixa; sempre
	// rejeitada antes de qualquer mutação.
	ErrValidation = errors.New("invalid input")

	// ErrForbidden marca operação administrativa chamada por não-admin.
	ErrForbidden = errors.New("admin privileges required")

	// ErrContestClosed cobre aposta em concurso inexistente no período,
	// fechado ou após a data de fechamento.
	ErrContestClosed = errors.New("contest is not open for bets")

	// ErrContestNotClosed: reconciliação de prêmios só roda sobre concurso
	// já encerrado.
	ErrContestNotClosed = errors.New("contest is not closed yet")

	// ErrPendingWithdrawalExists garante o invariante de um único saque
	// pendente por usuário.
	ErrPendingWithdrawalExists = errors.New("a pending withdrawal request already exists")

	// ErrExternalService: provedor de pagamento indisponível ou respondeu
	// erro; nenhuma mutação de carteira aconteceu.
	ErrExternalService = errors.New("external payment provider error")
)
