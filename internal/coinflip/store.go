package coinflip

import (
	"context"
	"time"
)

// Account é a visão do ledger sobre uma conta de um ativo fungível.
// Owner é a autoridade que pode debitar a conta.
type Account struct {
	ID        string
	AssetID   string
	Owner     string
	Balance   uint64
	CreatedAt time.Time
}

// Transfer descreve uma movimentação "from -> to" autorizada por Authorizer.
//
// ProgramSigned marca débitos assinados pelo próprio settler com a autoridade
// derivada. A autoridade é pública (qualquer um calcula), então o ledger só aceita
// débito de uma conta de custódia vinculada a um pool quando ProgramSigned é true,
// e recusa ProgramSigned em qualquer outra conta.
type Transfer struct {
	From          string
	To            string
	Authorizer    string
	Amount        uint64
	Memo          string
	ProgramSigned bool
}

// Tx é a unidade de trabalho vista pelo núcleo. Tudo o que acontece dentro de
// um Tx é visível por inteiro ou não é visível.
type Tx interface {
	Pool(ctx context.Context, poolID string) (*Pool, error)
	InsertPool(ctx context.Context, p *Pool) error

	// Account lê a conta e, no Postgres, trava a linha até o fim da transação.
	Account(ctx context.Context, accountID string) (*Account, error)
	Transfer(ctx context.Context, t Transfer) error
}

// Store abre unidades de trabalho. Se fn retornar erro, nada do que foi feito
// dentro dela fica persistido.
type Store interface {
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}
