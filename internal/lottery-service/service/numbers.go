package service

import (
	"fmt"
	"sort"
)

const (
	numbersPerBet  = 6
	numbersPerDraw = 20
	maxNumber      = 99
)

// validateNumberSet valida exatamente want números únicos em [0,99] e devolve
// a forma canônica: ordenados em ordem crescente.
func validateNumberSet(nums []int, want int) ([]int64, error) {
	if len(nums) != want {
		return nil, fmt.Errorf("%w: expected exactly %d numbers, got %d", ErrValidation, want, len(nums))
	}
	seen := make(map[int]bool, want)
	out := make([]int64, 0, want)
	for _, n := range nums {
		if n < 0 || n > maxNumber {
			return nil, fmt.Errorf("%w: number %d out of range 0..%d", ErrValidation, n, maxNumber)
		}
		if seen[n] {
			return nil, fmt.Errorf("%w: numbers must be unique, %d repeated", ErrValidation, n)
		}
		seen[n] = true
		out = append(out, int64(n))
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// ValidateChosenNumbers valida a escolha de uma aposta (6 números).
func ValidateChosenNumbers(nums []int) ([]int64, error) {
	return validateNumberSet(nums, numbersPerBet)
}

// ValidateWinningNumbers valida o sorteio de um concurso (20 números).
func ValidateWinningNumbers(nums []int) ([]int64, error) {
	return validateNumberSet(nums, numbersPerDraw)
}

// countHits conta quantos números escolhidos estão entre os sorteados (0..6).
func countHits(chosen, winning []int64) int {
	set := make(map[int64]bool, len(winning))
	for _, n := range winning {
		set[n] = true
	}
	hits := 0
	for _, n := range chosen {
		if set[n] {
			hits++
		}
	}
	return hits
}
