package dto

type InitializePoolRequest struct {
	Signer         string `json:"signer"`
	Nonce          *uint8 `json:"nonce"` // obrigatório; ponteiro para distinguir 0 de ausente
	AssetID        string `json:"asset_id"`
	CustodyAccount string `json:"custody_account"`
}

type FlipRequest struct {
	Signer             string `json:"signer"`
	ParticipantAccount string `json:"participant_account"`
	CustodyAccount     string `json:"custody_account"`
	Amount             uint64 `json:"amount"`
}

type OpenAccountRequest struct {
	Owner   string `json:"owner"`
	AssetID string `json:"asset_id"`
}

type DepositRequest struct {
	Amount uint64 `json:"amount"`
}
