package dto

import "time"

type PoolResponse struct {
	PoolID           string    `json:"pool_id"`
	WinReturnPercent uint64    `json:"win_return_percent"`
	AssetID          string    `json:"asset_id"`
	CustodyAccount   string    `json:"custody_account"`
	AuthorityNonce   uint8     `json:"authority_nonce"`
	Authority        string    `json:"authority"`
	CreatedAt        time.Time `json:"created_at"`
}

type AuthorityResponse struct {
	PoolID    string `json:"pool_id"`
	Nonce     uint8  `json:"nonce"`
	Authority string `json:"authority"`
}

type FlipResponse struct {
	Outcome        string `json:"outcome"` // WIN | LOSE
	PayoutAmount   uint64 `json:"payout_amount"`
	Degraded       bool   `json:"degraded,omitempty"`
	CustodyBalance uint64 `json:"custody_balance"`
	Message        string `json:"message"`
}

type AccountResponse struct {
	AccountID string `json:"account_id"`
	AssetID   string `json:"asset_id"`
	Owner     string `json:"owner"`
	Balance   uint64 `json:"balance"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
