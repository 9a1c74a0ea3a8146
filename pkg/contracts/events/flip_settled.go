package events

import "time"

// Evento emitido pelo flip-service depois que o flip foi efetivado.
// Consumido pelo indexador de rodadas (fora deste repositório).
type FlipSettled struct {
	PoolID             string    `json:"pool_id"`
	ParticipantAccount string    `json:"participant_account"`
	Signer             string    `json:"signer"`
	Amount             uint64    `json:"amount"`
	Outcome            string    `json:"outcome"` // "WIN" | "LOSE"
	PayoutAmount       uint64    `json:"payout_amount"`
	Degraded           bool      `json:"degraded"`
	TimeValue          int64     `json:"time_value"`
	CustodyBalance     uint64    `json:"custody_balance"`
	Ts                 time.Time `json:"ts"`
}
