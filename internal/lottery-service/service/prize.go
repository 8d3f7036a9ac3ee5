package service

import "github.com/shopspring/decimal"

var oneHundred = decimal.NewFromInt(100)

// tierPoolCents calcula o pote de uma faixa: sharePct% do pote bruto,
// arredondado a centavo. Só é chamado quando a faixa tem ganhadores; faixa
// vazia não paga e a fatia dela rola via carryover, nunca migra de faixa.
func tierPoolCents(totalCents int64, sharePct int) int64 {
	return decimal.NewFromInt(totalCents).
		Mul(decimal.NewFromInt(int64(sharePct))).
		Div(oneHundred).
		Round(0).
		IntPart()
}

// perWinnerNetCents divide o pote da faixa igualmente e desconta a taxa
// administrativa por prêmio individual (não do pote antes da divisão).
// Arredonda a centavo só no fim; a sobra de arredondamento fica com a casa.
func perWinnerNetCents(poolCents int64, winners int, housePct int) int64 {
	if winners <= 0 {
		return 0
	}
	gross := decimal.NewFromInt(poolCents).Div(decimal.NewFromInt(int64(winners)))
	net := gross.Mul(decimal.NewFromInt(int64(100 - housePct))).Div(oneHundred)
	return net.Round(0).IntPart()
}
