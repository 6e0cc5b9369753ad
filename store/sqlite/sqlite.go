/*
Package sqlite provides a SQLite-backed implementation of ledger.Persister.

PURPOSE:
  Persists the whole ledger State (clients, active accounts, archives,
  payment methods, float adjustments and the invoice counter) in a single
  SQLite file. The ledger core calls Save after every mutation and Load
  once at startup.

WHOLE-STATE CONTRACT:
  Save is all-or-nothing. It runs inside one SQL transaction:
    BEGIN -> clear every table -> insert the full state -> COMMIT
  Any failure rolls back and the previous state remains on disk. The
  ledger keeps its in-memory state unchanged in that case, so the two
  never diverge.

KEY TABLES:
  meta:              key/value pairs (invoice_counter)
  payment_methods:   rails in configured order (position)
  clients:           debtors in insertion order (position)
  archives:          invoiced accounts, newest first per client (position)
  transactions:      every transaction; invoice_number NULL = active account
  float_adjustments: manual float corrections per method

AMOUNTS:
  Stored as TEXT (decimal.Decimal.String()), never REAL, so no rounding
  happens between the ledger and disk.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging):
  - Readers don't block the writer
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/ledger.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  l, err := ledger.Open(ctx, store)

MIGRATION:
  Schema is auto-migrated on New().

SEE ALSO:
  - ledger/store.go: Persister interface and mutation protocol
  - ledger/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/float-ledger/ledger"
)

var _ ledger.Persister = (*Store)(nil)

const metaInvoiceCounter = "invoice_counter"

// Store implements ledger.Persister using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A :memory: database lives per connection.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	-- Payment rails. id is the stable key transactions reference.
	CREATE TABLE IF NOT EXISTS payment_methods (
		id TEXT PRIMARY KEY,
		position INTEGER NOT NULL,
		name TEXT NOT NULL,
		color TEXT NOT NULL DEFAULT '',
		active INTEGER NOT NULL DEFAULT 1
	);

	CREATE TABLE IF NOT EXISTS clients (
		id TEXT PRIMARY KEY,
		position INTEGER NOT NULL,
		name TEXT NOT NULL,
		phone TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS archives (
		invoice_number TEXT PRIMARY KEY,
		client_id TEXT NOT NULL REFERENCES clients(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		date_closed TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_archives_client
		ON archives(client_id, position);

	-- Transactions of active accounts have invoice_number NULL.
	-- method_id is deliberately not a foreign key: history may reference
	-- rails that are no longer registered.
	CREATE TABLE IF NOT EXISTS transactions (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL,
		client_id TEXT NOT NULL REFERENCES clients(id) ON DELETE CASCADE,
		invoice_number TEXT REFERENCES archives(invoice_number) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		tx_type TEXT NOT NULL,
		amount TEXT NOT NULL,
		method_id TEXT NOT NULL,
		occurred_at TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		settled INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_transactions_client
		ON transactions(client_id, invoice_number, position);
	CREATE INDEX IF NOT EXISTS idx_transactions_method
		ON transactions(method_id);

	CREATE TABLE IF NOT EXISTS float_adjustments (
		method_id TEXT PRIMARY KEY,
		amount TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// LOAD
// =============================================================================

// Load reads the whole state. An empty database yields ledger.NewState().
func (s *Store) Load(ctx context.Context) (ledger.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return ledger.State{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	st := ledger.NewState()

	if st.InvoiceCounter, err = loadCounter(ctx, tx); err != nil {
		return ledger.State{}, err
	}
	if st.Methods, err = loadMethods(ctx, tx); err != nil {
		return ledger.State{}, err
	}
	if st.FloatAdjustments, err = loadAdjustments(ctx, tx); err != nil {
		return ledger.State{}, err
	}
	if st.Clients, err = loadClients(ctx, tx); err != nil {
		return ledger.State{}, err
	}

	return st, tx.Commit()
}

func loadCounter(ctx context.Context, tx *sql.Tx) (int64, error) {
	var raw string
	err := tx.QueryRowContext(ctx, "SELECT value FROM meta WHERE key = ?", metaInvoiceCounter).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return 1, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read invoice counter: %w", err)
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid invoice counter %q: %w", raw, err)
	}
	return n, nil
}

func loadMethods(ctx context.Context, tx *sql.Tx) ([]ledger.PaymentMethod, error) {
	rows, err := tx.QueryContext(ctx,
		"SELECT id, name, color, active FROM payment_methods ORDER BY position ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query payment methods: %w", err)
	}
	defer rows.Close()

	var methods []ledger.PaymentMethod
	for rows.Next() {
		var m ledger.PaymentMethod
		var id string
		if err := rows.Scan(&id, &m.Name, &m.Color, &m.Active); err != nil {
			return nil, err
		}
		m.ID = ledger.MethodID(id)
		methods = append(methods, m)
	}
	return methods, rows.Err()
}

func loadAdjustments(ctx context.Context, tx *sql.Tx) (map[ledger.MethodID]decimal.Decimal, error) {
	rows, err := tx.QueryContext(ctx, "SELECT method_id, amount FROM float_adjustments")
	if err != nil {
		return nil, fmt.Errorf("failed to query float adjustments: %w", err)
	}
	defer rows.Close()

	out := make(map[ledger.MethodID]decimal.Decimal)
	for rows.Next() {
		var id, amount string
		if err := rows.Scan(&id, &amount); err != nil {
			return nil, err
		}
		d, err := decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("invalid adjustment for %s: %w", id, err)
		}
		out[ledger.MethodID(id)] = d
	}
	return out, rows.Err()
}

func loadClients(ctx context.Context, tx *sql.Tx) ([]ledger.Client, error) {
	rows, err := tx.QueryContext(ctx,
		"SELECT id, name, phone, created_at FROM clients ORDER BY position ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query clients: %w", err)
	}

	var clients []ledger.Client
	index := make(map[ledger.ClientID]int)
	for rows.Next() {
		var c ledger.Client
		var id, createdAt string
		if err := rows.Scan(&id, &c.Name, &c.Phone, &createdAt); err != nil {
			rows.Close()
			return nil, err
		}
		c.ID = ledger.ClientID(id)
		if c.CreatedAt, err = parseTime(createdAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("client %s created_at: %w", id, err)
		}
		index[c.ID] = len(clients)
		clients = append(clients, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	archiveIndex, err := loadArchives(ctx, tx, clients, index)
	if err != nil {
		return nil, err
	}
	if err := loadTransactions(ctx, tx, clients, index, archiveIndex); err != nil {
		return nil, err
	}
	return clients, nil
}

type archiveRef struct {
	client int
	pos    int
}

func loadArchives(ctx context.Context, tx *sql.Tx, clients []ledger.Client, index map[ledger.ClientID]int) (map[string]archiveRef, error) {
	rows, err := tx.QueryContext(ctx,
		"SELECT invoice_number, client_id, date_closed FROM archives ORDER BY client_id, position ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query archives: %w", err)
	}
	defer rows.Close()

	refs := make(map[string]archiveRef)
	for rows.Next() {
		var invoice, clientID, closed string
		if err := rows.Scan(&invoice, &clientID, &closed); err != nil {
			return nil, err
		}
		ci, ok := index[ledger.ClientID(clientID)]
		if !ok {
			continue
		}
		dateClosed, err := parseTime(closed)
		if err != nil {
			return nil, fmt.Errorf("archive %s date_closed: %w", invoice, err)
		}
		c := &clients[ci]
		refs[invoice] = archiveRef{client: ci, pos: len(c.Archive)}
		c.Archive = append(c.Archive, ledger.ArchivedAccount{
			InvoiceNumber: invoice,
			DateClosed:    dateClosed,
		})
	}
	return refs, rows.Err()
}

func loadTransactions(ctx context.Context, tx *sql.Tx, clients []ledger.Client, index map[ledger.ClientID]int, archives map[string]archiveRef) error {
	rows, err := tx.QueryContext(ctx, `
		SELECT id, client_id, invoice_number, tx_type, amount, method_id,
		       occurred_at, description, settled
		FROM transactions
		ORDER BY client_id, invoice_number, position ASC
	`)
	if err != nil {
		return fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			t                            ledger.Transaction
			id, clientID, txType, amount string
			method, occurred             string
			invoice                      sql.NullString
		)
		if err := rows.Scan(&id, &clientID, &invoice, &txType, &amount, &method,
			&occurred, &t.Description, &t.Settled); err != nil {
			return err
		}
		d, err := decimal.NewFromString(amount)
		if err != nil {
			return fmt.Errorf("invalid amount for transaction %s: %w", id, err)
		}
		t.ID = ledger.TransactionID(id)
		t.Type = ledger.TxType(txType)
		t.Amount = d
		t.Method = ledger.MethodID(method)
		if t.Date, err = parseTime(occurred); err != nil {
			return fmt.Errorf("transaction %s occurred_at: %w", id, err)
		}

		ci, ok := index[ledger.ClientID(clientID)]
		if !ok {
			continue
		}
		if !invoice.Valid {
			clients[ci].ActiveAccount = append(clients[ci].ActiveAccount, t)
			continue
		}
		ref, ok := archives[invoice.String]
		if !ok {
			continue
		}
		a := &clients[ref.client].Archive[ref.pos]
		a.Transactions = append(a.Transactions, t)
	}
	return rows.Err()
}

// =============================================================================
// SAVE
// =============================================================================

// Save replaces the stored state atomically.
func (s *Store) Save(ctx context.Context, st ledger.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Children first so foreign keys never block the wipe.
	for _, table := range []string{"transactions", "archives", "clients", "payment_methods", "float_adjustments", "meta"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO meta (key, value) VALUES (?, ?)",
		metaInvoiceCounter, strconv.FormatInt(st.InvoiceCounter, 10),
	); err != nil {
		return fmt.Errorf("failed to save invoice counter: %w", err)
	}

	for i, m := range st.Methods {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO payment_methods (id, position, name, color, active) VALUES (?, ?, ?, ?, ?)",
			string(m.ID), i, m.Name, m.Color, m.Active,
		); err != nil {
			return fmt.Errorf("failed to save payment method %s: %w", m.ID, err)
		}
	}

	for id, amount := range st.FloatAdjustments {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO float_adjustments (method_id, amount) VALUES (?, ?)",
			string(id), amount.String(),
		); err != nil {
			return fmt.Errorf("failed to save float adjustment %s: %w", id, err)
		}
	}

	for i, c := range st.Clients {
		if err := saveClient(ctx, tx, i, c); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func saveClient(ctx context.Context, tx *sql.Tx, pos int, c ledger.Client) error {
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO clients (id, position, name, phone, created_at) VALUES (?, ?, ?, ?, ?)",
		string(c.ID), pos, c.Name, c.Phone, formatTime(c.CreatedAt),
	); err != nil {
		return fmt.Errorf("failed to save client %s: %w", c.ID, err)
	}

	if err := saveTransactions(ctx, tx, c.ID, sql.NullString{}, c.ActiveAccount); err != nil {
		return err
	}

	for i, a := range c.Archive {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO archives (invoice_number, client_id, position, date_closed) VALUES (?, ?, ?, ?)",
			a.InvoiceNumber, string(c.ID), i, formatTime(a.DateClosed),
		); err != nil {
			return fmt.Errorf("failed to save archive %s: %w", a.InvoiceNumber, err)
		}
		invoice := sql.NullString{String: a.InvoiceNumber, Valid: true}
		if err := saveTransactions(ctx, tx, c.ID, invoice, a.Transactions); err != nil {
			return err
		}
	}
	return nil
}

func saveTransactions(ctx context.Context, tx *sql.Tx, clientID ledger.ClientID, invoice sql.NullString, txs []ledger.Transaction) error {
	query := `
		INSERT INTO transactions
		(id, client_id, invoice_number, position, tx_type, amount, method_id,
		 occurred_at, description, settled)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	for i, t := range txs {
		if _, err := tx.ExecContext(ctx, query,
			string(t.ID),
			string(clientID),
			invoice,
			i,
			string(t.Type),
			t.Amount.String(),
			string(t.Method),
			formatTime(t.Date),
			t.Description,
			t.Settled,
		); err != nil {
			return fmt.Errorf("failed to save transaction %s: %w", t.ID, err)
		}
	}
	return nil
}

// Helper functions

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return t, nil
}
