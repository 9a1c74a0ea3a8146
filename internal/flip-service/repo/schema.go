package repo

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
)

// Valores em unidades mínimas do ativo; NUMERIC(20,0) cobre todo o intervalo de uint64.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS ledger_accounts (
		id         TEXT PRIMARY KEY,
		asset_id   TEXT NOT NULL,
		owner      TEXT NOT NULL,
		balance    NUMERIC(20,0) NOT NULL DEFAULT 0 CHECK (balance >= 0),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS ledger_entries (
		id           UUID PRIMARY KEY,
		from_account TEXT NOT NULL REFERENCES ledger_accounts(id),
		to_account   TEXT NOT NULL REFERENCES ledger_accounts(id),
		authorizer   TEXT NOT NULL,
		amount       NUMERIC(20,0) NOT NULL,
		memo         TEXT NOT NULL DEFAULT '',
		created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS pools (
		id                 TEXT PRIMARY KEY,
		win_return_percent BIGINT NOT NULL,
		asset_id           TEXT NOT NULL,
		custody_account    TEXT NOT NULL REFERENCES ledger_accounts(id),
		authority_nonce    SMALLINT NOT NULL CHECK (authority_nonce BETWEEN 0 AND 255),
		initialized_by     TEXT NOT NULL,
		created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	// uma conta de custódia pertence a no máximo um pool; também serve o lookup de Transfer
	`CREATE UNIQUE INDEX IF NOT EXISTS pools_custody_account_uq ON pools(custody_account)`,
}

// Migrate cria as tabelas do pool e do ledger se ainda não existirem.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(err, "migrate")
		}
	}
	return nil
}
