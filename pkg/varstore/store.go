package varstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/kestrelia/promptweave/pkg/wildcard"
)

// ErrNotFound is returned by Load and Delete when no context exists under
// the requested name.
var ErrNotFound = errors.New("varstore: context not found")

// SetupSchema initializes the tables used for context persistence. It should
// be called once on a new database before any other operations are performed.
// It is idempotent and safe to call on an already-initialized database.
func SetupSchema(db *sql.DB) error {
	const (
		schemaContexts = `
CREATE TABLE IF NOT EXISTS prompt_contexts (
    context_id INTEGER PRIMARY KEY,
    context_name TEXT NOT NULL UNIQUE
);
`
		schemaBindings = `
CREATE TABLE IF NOT EXISTS prompt_bindings (
    context_id INTEGER NOT NULL,
    var_name TEXT NOT NULL,
    origin_key TEXT NOT NULL,
    value TEXT NOT NULL,
    position INTEGER NOT NULL,
    PRIMARY KEY (context_id, var_name, origin_key)
);
`
	)

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	// Commit runs first on success; then this rollback is a no-op.
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	if _, err = tx.Exec(schemaContexts); err != nil {
		return fmt.Errorf("could not create contexts schema: %w", err)
	}
	if _, err = tx.Exec(schemaBindings); err != nil {
		return fmt.Errorf("could not create bindings schema: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}
	return nil
}

// ContextInfo describes one saved variable context.
type ContextInfo struct {
	Name     string
	Bindings int
}

// Store persists wildcard.VarStore contents as named contexts, so captured
// variables can be threaded across separate resolver invocations. It holds
// the database connection and pre-compiled SQL statements.
type Store struct {
	db               *sql.DB
	stmtGetContext   *sql.Stmt
	stmtAddContext   *sql.Stmt
	stmtListContexts *sql.Stmt
	stmtDelContext   *sql.Stmt
	stmtClearBinds   *sql.Stmt
	stmtInsertBind   *sql.Stmt
	stmtGetBinds     *sql.Stmt
	logger           *slog.Logger
}

// NewStore creates and returns a new Store, pre-compiling all necessary SQL
// statements. An error is returned if any preparation fails.
func NewStore(db *sql.DB) (*Store, error) {
	stmtGetContext, err := db.Prepare(`SELECT context_id FROM prompt_contexts WHERE context_name = ?;`)
	if err != nil {
		return nil, err
	}

	stmtAddContext, err := db.Prepare(`INSERT INTO prompt_contexts (context_name) VALUES (?) ON CONFLICT(context_name) DO UPDATE SET context_name=excluded.context_name RETURNING context_id;`)
	if err != nil {
		return nil, err
	}

	stmtListContexts, err := db.Prepare(`SELECT c.context_name, COUNT(b.var_name) FROM prompt_contexts c LEFT JOIN prompt_bindings b ON b.context_id = c.context_id GROUP BY c.context_id ORDER BY c.context_name;`)
	if err != nil {
		return nil, err
	}

	stmtDelContext, err := db.Prepare(`DELETE FROM prompt_contexts WHERE context_id = ?;`)
	if err != nil {
		return nil, err
	}

	stmtClearBinds, err := db.Prepare(`DELETE FROM prompt_bindings WHERE context_id = ?;`)
	if err != nil {
		return nil, err
	}

	stmtInsertBind, err := db.Prepare(`INSERT INTO prompt_bindings (context_id, var_name, origin_key, value, position) VALUES (?, ?, ?, ?, ?);`)
	if err != nil {
		return nil, err
	}

	stmtGetBinds, err := db.Prepare(`SELECT var_name, origin_key, value FROM prompt_bindings WHERE context_id = ? ORDER BY position;`)
	if err != nil {
		return nil, err
	}

	return &Store{
		db:               db,
		stmtGetContext:   stmtGetContext,
		stmtAddContext:   stmtAddContext,
		stmtListContexts: stmtListContexts,
		stmtDelContext:   stmtDelContext,
		stmtClearBinds:   stmtClearBinds,
		stmtInsertBind:   stmtInsertBind,
		stmtGetBinds:     stmtGetBinds,
		logger:           slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, nil
}

// Close releases all prepared SQL statements held by the Store.
func (s *Store) Close() {
	_ = s.stmtGetContext.Close()
	_ = s.stmtAddContext.Close()
	_ = s.stmtListContexts.Close()
	_ = s.stmtDelContext.Close()
	_ = s.stmtClearBinds.Close()
	_ = s.stmtInsertBind.Close()
	_ = s.stmtGetBinds.Close()
}

// SetLogger sets the logger for the Store. By default, all logs are discarded.
func (s *Store) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// Save stores the full contents of vars under name, replacing any previous
// bindings saved for that context. Binding order is preserved so a reloaded
// store recalls candidates in the same deterministic order.
func (s *Store) Save(ctx context.Context, name string, vars *wildcard.VarStore) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	var contextID int
	if err = tx.StmtContext(ctx, s.stmtAddContext).QueryRowContext(ctx, name).Scan(&contextID); err != nil {
		return fmt.Errorf("could not upsert context '%s': %w", name, err)
	}
	if _, err = tx.StmtContext(ctx, s.stmtClearBinds).ExecContext(ctx, contextID); err != nil {
		return fmt.Errorf("could not clear bindings for '%s': %w", name, err)
	}

	insert := tx.StmtContext(ctx, s.stmtInsertBind)
	position := 0
	for _, varName := range vars.Names() {
		for _, origin := range vars.Origins(varName) {
			value, _ := vars.Lookup(varName, origin)
			if _, err = insert.ExecContext(ctx, contextID, varName, origin, value, position); err != nil {
				return fmt.Errorf("could not insert binding %s/%s: %w", varName, origin, err)
			}
			position++
		}
	}

	s.logger.DebugContext(ctx, "saved variable context",
		slog.String("context_name", name),
		slog.Int("bindings", position),
	)
	return tx.Commit()
}

// Load rebuilds the variable context saved under name. It returns
// ErrNotFound when the context does not exist.
func (s *Store) Load(ctx context.Context, name string) (*wildcard.VarStore, error) {
	var contextID int
	err := s.stmtGetContext.QueryRowContext(ctx, name).Scan(&contextID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("could not look up context '%s': %w", name, err)
	}

	rows, err := s.stmtGetBinds.QueryContext(ctx, contextID)
	if err != nil {
		return nil, err
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	vars := wildcard.NewVarStore()
	for rows.Next() {
		var varName, origin, value string
		if err = rows.Scan(&varName, &origin, &value); err != nil {
			return nil, err
		}
		vars.Bind(varName, origin, value)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return vars, nil
}

// List returns the saved contexts with their binding counts, ordered by name.
func (s *Store) List(ctx context.Context) ([]ContextInfo, error) {
	rows, err := s.stmtListContexts.QueryContext(ctx)
	if err != nil {
		return nil, err
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	var infos []ContextInfo
	for rows.Next() {
		var info ContextInfo
		if err = rows.Scan(&info.Name, &info.Bindings); err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return infos, nil
}

// Delete removes a saved context and all of its bindings. It returns
// ErrNotFound when the context does not exist.
func (s *Store) Delete(ctx context.Context, name string) error {
	var contextID int
	err := s.stmtGetContext.QueryRowContext(ctx, name).Scan(&contextID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("could not look up context '%s': %w", name, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	if _, err = tx.StmtContext(ctx, s.stmtClearBinds).ExecContext(ctx, contextID); err != nil {
		return fmt.Errorf("could not clear bindings for '%s': %w", name, err)
	}
	if _, err = tx.StmtContext(ctx, s.stmtDelContext).ExecContext(ctx, contextID); err != nil {
		return fmt.Errorf("could not delete context '%s': %w", name, err)
	}
	return tx.Commit()
}
