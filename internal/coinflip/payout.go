package coinflip

import "math/bits"

// Payout calcula quanto o pool paga num flip vencedor.
//
//	desejado = stake * (100 + pct) / 100   (divisão inteira)
//	limiar   = stake * pct / 100
//
// Se a custódia não cobre o limiar, ou não cobre o valor desejado, o pool paga
// tudo o que tem (degraded = true). Nunca retorna mais do que balance.
func Payout(stake, winReturnPercent, balance uint64) (amount uint64, degraded bool, err error) {
	factor, carry := bits.Add64(100, winReturnPercent, 0)
	if carry != 0 {
		return 0, false, ErrArithmeticOverflow
	}
	desired, err := mulDiv100(stake, factor)
	if err != nil {
		return 0, false, err
	}
	threshold, err := mulDiv100(stake, winReturnPercent)
	if err != nil {
		return 0, false, err
	}

	if balance < threshold || balance < desired {
		return balance, true, nil
	}
	return desired, false, nil
}

// mulDiv100 faz a*b/100 checando overflow da multiplicação antes da divisão.
func mulDiv100(a, b uint64) (uint64, error) {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 {
		return 0, ErrArithmeticOverflow
	}
	return lo / 100, nil
}
