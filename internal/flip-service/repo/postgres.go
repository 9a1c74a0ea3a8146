package repo

import (
	"context"
	"database/sql"
	"math/bits"
	"strconv"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/radieske/coinflip-pool/internal/coinflip"
)

// Postgres implementa coinflip.Store e as operações de ledger em banco
type Postgres struct{ db *sql.DB }

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

// WithinTx abre uma transação, executa fn e faz commit apenas se fn retornar nil
func (p *Postgres) WithinTx(ctx context.Context, fn func(tx coinflip.Tx) error) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer tx.Rollback()

	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}
	return errors.Wrap(tx.Commit(), "commit")
}

// OpenAccount cria uma conta de ledger com saldo zero
func (p *Postgres) OpenAccount(ctx context.Context, owner, assetID string) (*coinflip.Account, error) {
	a := coinflip.Account{ID: uuid.NewString(), AssetID: assetID, Owner: owner}
	err := p.db.QueryRowContext(ctx,
		`INSERT INTO ledger_accounts(id, asset_id, owner, balance) VALUES($1,$2,$3,0) RETURNING created_at`,
		a.ID, a.AssetID, a.Owner).Scan(&a.CreatedAt)
	if err != nil {
		return nil, errors.Wrap(err, "insert account")
	}
	return &a, nil
}

// Deposit incrementa o saldo da conta
// Garante lock pessimista na linha da conta
func (p *Postgres) Deposit(ctx context.Context, accountID string, amount uint64) (*coinflip.Account, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "begin tx")
	}
	defer tx.Rollback()

	a, err := lockAccount(ctx, tx, accountID)
	if err != nil {
		return nil, err
	}
	sum, carry := bits.Add64(a.Balance, amount, 0)
	if carry != 0 {
		return nil, coinflip.ErrArithmeticOverflow
	}
	if _, err = tx.ExecContext(ctx, `UPDATE ledger_accounts SET balance = $1::numeric WHERE id=$2`,
		strconv.FormatUint(sum, 10), accountID); err != nil {
		return nil, errors.Wrap(err, "update balance")
	}
	if err = tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "commit")
	}
	a.Balance = sum
	return a, nil
}

func (p *Postgres) GetAccount(ctx context.Context, accountID string) (*coinflip.Account, error) {
	var a coinflip.Account
	err := p.db.QueryRowContext(ctx,
		`SELECT id, asset_id, owner, balance, created_at FROM ledger_accounts WHERE id=$1`, accountID).
		Scan(&a.ID, &a.AssetID, &a.Owner, &a.Balance, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, coinflip.ErrAccountNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "select account")
	}
	return &a, nil
}

func (p *Postgres) GetPool(ctx context.Context, poolID string) (*coinflip.Pool, error) {
	return scanPool(p.db.QueryRowContext(ctx, selectPool, poolID))
}

const selectPool = `
	SELECT id, win_return_percent, asset_id, custody_account, authority_nonce, initialized_by, created_at
	FROM pools WHERE id=$1`

func scanPool(row *sql.Row) (*coinflip.Pool, error) {
	var pool coinflip.Pool
	err := row.Scan(&pool.ID, &pool.WinReturnPercent, &pool.AssetID, &pool.CustodyAccount,
		&pool.AuthorityNonce, &pool.InitializedBy, &pool.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, coinflip.ErrPoolNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "select pool")
	}
	return &pool, nil
}

// pgTx é a unidade de trabalho do núcleo sobre uma *sql.Tx
type pgTx struct{ tx *sql.Tx }

func (t *pgTx) Pool(ctx context.Context, poolID string) (*coinflip.Pool, error) {
	return scanPool(t.tx.QueryRowContext(ctx, selectPool, poolID))
}

// InsertPool grava o pool; não existe UPDATE de pools em nenhum lugar do repositório
func (t *pgTx) InsertPool(ctx context.Context, pool *coinflip.Pool) error {
	res, err := t.tx.ExecContext(ctx, `
		INSERT INTO pools(id, win_return_percent, asset_id, custody_account, authority_nonce, initialized_by, created_at)
		VALUES($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (id) DO NOTHING`,
		pool.ID, int64(pool.WinReturnPercent), pool.AssetID, pool.CustodyAccount,
		int16(pool.AuthorityNonce), pool.InitializedBy, pool.CreatedAt)
	if err != nil {
		return errors.Wrap(err, "insert pool")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return coinflip.ErrAlreadyInitialized
	}
	return nil
}

// Account lê a conta com FOR UPDATE: flips concorrentes contra a mesma custódia
// ficam serializados até o fim da transação
func (t *pgTx) Account(ctx context.Context, accountID string) (*coinflip.Account, error) {
	return lockAccount(ctx, t.tx, accountID)
}

// Transfer move amount de From para To e registra a operação no ledger
func (t *pgTx) Transfer(ctx context.Context, tr coinflip.Transfer) error {
	// Linhas ainda não travadas nesta transação são travadas em ordem de ID.
	// No flip a custódia já foi travada antes (Tx.Account), então a ordem efetiva é
	// custódia -> participante; como custódia vinculada nunca é débito de participante,
	// dois flips não chegam a esperar um pelo outro em ordem inversa.
	first, second := tr.From, tr.To
	if second < first {
		first, second = second, first
	}
	locked := make(map[string]*coinflip.Account, 2)
	for _, id := range []string{first, second} {
		if _, ok := locked[id]; ok {
			continue
		}
		a, err := lockAccount(ctx, t.tx, id)
		if err != nil {
			return err
		}
		locked[id] = a
	}
	from, to := locked[tr.From], locked[tr.To]

	// custódia vinculada só sai com assinatura do programa
	var bound bool
	if err := t.tx.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM pools WHERE custody_account=$1)`, tr.From).Scan(&bound); err != nil {
		return errors.Wrap(err, "custody lookup")
	}
	if bound != tr.ProgramSigned {
		return coinflip.ErrUnauthorized
	}
	if from.Owner != tr.Authorizer {
		return coinflip.ErrUnauthorized
	}
	if from.AssetID != to.AssetID {
		return coinflip.ErrAssetMismatch
	}
	if from.Balance < tr.Amount {
		return coinflip.ErrInsufficientFunds
	}
	if _, carry := bits.Add64(to.Balance, tr.Amount, 0); carry != 0 && tr.From != tr.To {
		return coinflip.ErrArithmeticOverflow
	}

	amount := strconv.FormatUint(tr.Amount, 10)
	if _, err := t.tx.ExecContext(ctx, `UPDATE ledger_accounts SET balance = balance - $1::numeric WHERE id=$2`, amount, tr.From); err != nil {
		return errors.Wrap(err, "debit")
	}
	if _, err := t.tx.ExecContext(ctx, `UPDATE ledger_accounts SET balance = balance + $1::numeric WHERE id=$2`, amount, tr.To); err != nil {
		return errors.Wrap(err, "credit")
	}
	if _, err := t.tx.ExecContext(ctx, `
		INSERT INTO ledger_entries(id, from_account, to_account, authorizer, amount, memo)
		VALUES($1,$2,$3,$4,$5::numeric,$6)`,
		uuid.NewString(), tr.From, tr.To, tr.Authorizer, amount, tr.Memo); err != nil {
		return errors.Wrap(err, "insert ledger entry")
	}
	return nil
}

func lockAccount(ctx context.Context, tx *sql.Tx, accountID string) (*coinflip.Account, error) {
	var a coinflip.Account
	err := tx.QueryRowContext(ctx,
		`SELECT id, asset_id, owner, balance, created_at FROM ledger_accounts WHERE id=$1 FOR UPDATE`, accountID).
		Scan(&a.ID, &a.AssetID, &a.Owner, &a.Balance, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, coinflip.ErrAccountNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "lock account")
	}
	return &a, nil
}
