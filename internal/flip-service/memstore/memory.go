package memstore

import (
	"context"
	"maps"
	"math/bits"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/radieske/coinflip-pool/internal/coinflip"
)

// Entry é uma linha do ledger em memória.
type Entry struct {
	ID string
	coinflip.Transfer
	CreatedAt time.Time
}

// Store implementa coinflip.Store e o ledger em memória.
// Usado com LEDGER_BACKEND=memory (ambiente local) e nos testes.
// Cada unidade de trabalho roda sobre uma cópia do estado e só é aplicada se fn retornar nil.
type Store struct {
	mu       sync.Mutex
	pools    map[string]coinflip.Pool
	accounts map[string]coinflip.Account
	custody  map[string]string // conta de custódia -> pool
	entries  []Entry
}

func New() *Store {
	return &Store{
		pools:    make(map[string]coinflip.Pool),
		accounts: make(map[string]coinflip.Account),
		custody:  make(map[string]string),
	}
}

func (s *Store) WithinTx(ctx context.Context, fn func(tx coinflip.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{
		pools:    maps.Clone(s.pools),
		accounts: maps.Clone(s.accounts),
		custody:  maps.Clone(s.custody),
	}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.pools = tx.pools
	s.accounts = tx.accounts
	s.custody = tx.custody
	s.entries = append(s.entries, tx.entries...)
	return nil
}

// OpenAccount cria uma conta com saldo zero.
func (s *Store) OpenAccount(_ context.Context, owner, assetID string) (*coinflip.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a := coinflip.Account{
		ID:        uuid.NewString(),
		AssetID:   assetID,
		Owner:     owner,
		CreatedAt: time.Now().UTC(),
	}
	s.accounts[a.ID] = a
	return &a, nil
}

// Deposit credita saldo numa conta (cunhagem, sem contrapartida).
func (s *Store) Deposit(_ context.Context, accountID string, amount uint64) (*coinflip.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[accountID]
	if !ok {
		return nil, coinflip.ErrAccountNotFound
	}
	sum, carry := bits.Add64(a.Balance, amount, 0)
	if carry != 0 {
		return nil, coinflip.ErrArithmeticOverflow
	}
	a.Balance = sum
	s.accounts[accountID] = a
	return &a, nil
}

func (s *Store) GetAccount(_ context.Context, accountID string) (*coinflip.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[accountID]
	if !ok {
		return nil, coinflip.ErrAccountNotFound
	}
	return &a, nil
}

func (s *Store) GetPool(_ context.Context, poolID string) (*coinflip.Pool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pools[poolID]
	if !ok {
		return nil, coinflip.ErrPoolNotFound
	}
	return &p, nil
}

// Entries retorna uma cópia das linhas do ledger já efetivadas.
func (s *Store) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

type memTx struct {
	pools    map[string]coinflip.Pool
	accounts map[string]coinflip.Account
	custody  map[string]string
	entries  []Entry
}

func (t *memTx) Pool(_ context.Context, poolID string) (*coinflip.Pool, error) {
	p, ok := t.pools[poolID]
	if !ok {
		return nil, coinflip.ErrPoolNotFound
	}
	return &p, nil
}

func (t *memTx) InsertPool(_ context.Context, p *coinflip.Pool) error {
	if _, ok := t.pools[p.ID]; ok {
		return coinflip.ErrAlreadyInitialized
	}
	t.pools[p.ID] = *p
	t.custody[p.CustodyAccount] = p.ID
	return nil
}

func (t *memTx) Account(_ context.Context, accountID string) (*coinflip.Account, error) {
	a, ok := t.accounts[accountID]
	if !ok {
		return nil, coinflip.ErrAccountNotFound
	}
	return &a, nil
}

func (t *memTx) Transfer(_ context.Context, tr coinflip.Transfer) error {
	from, ok := t.accounts[tr.From]
	if !ok {
		return coinflip.ErrAccountNotFound
	}
	to, ok := t.accounts[tr.To]
	if !ok {
		return coinflip.ErrAccountNotFound
	}
	// custódia vinculada só sai com assinatura do programa
	if _, bound := t.custody[tr.From]; bound != tr.ProgramSigned {
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
	if tr.From != tr.To {
		sum, carry := bits.Add64(to.Balance, tr.Amount, 0)
		if carry != 0 {
			return coinflip.ErrArithmeticOverflow
		}
		from.Balance -= tr.Amount
		to.Balance = sum
		t.accounts[from.ID] = from
		t.accounts[to.ID] = to
	}

	t.entries = append(t.entries, Entry{
		ID:        uuid.NewString(),
		Transfer:  tr,
		CreatedAt: time.Now().UTC(),
	})
	return nil
}
