package events

import "time"

// Evento publicado no tópico "pool_initialized" após a criação de um pool.
type PoolInitialized struct {
	PoolID           string    `json:"pool_id"`
	AssetID          string    `json:"asset_id"`
	CustodyAccount   string    `json:"custody_account"`
	Authority        string    `json:"authority"`
	AuthorityNonce   uint8     `json:"authority_nonce"`
	WinReturnPercent uint64    `json:"win_return_percent"`
	InitializedBy    string    `json:"initialized_by"`
	Ts               time.Time `json:"ts"`
}
