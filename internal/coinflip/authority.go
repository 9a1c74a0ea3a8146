package coinflip

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// authorityDomain separa o hash da autoridade de qualquer outro uso de keccak no sistema.
const authorityDomain = "coinflip:pool-authority"

// DeriveAuthority calcula a autoridade que controla a conta de custódia de um pool.
// Não existe chave privada: a autoridade é uma capacidade derivada de (poolID, nonce)
// e é sempre recalculada, nunca lida do armazenamento.
func DeriveAuthority(poolID string, nonce uint8) string {
	h := crypto.Keccak256([]byte(authorityDomain), []byte(poolID), []byte{nonce})
	return common.BytesToAddress(h).Hex()
}
