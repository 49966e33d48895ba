// Package storage is the SQLite persistence gateway. Schema changes ship as
// embedded migrations; group creation, group deletion, and whole-collection
// replacement run inside SQL transactions.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"fintrack/internal/core"
	"fintrack/internal/gateway"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

const transactionColumns = `id, description, amount_cents, type, category,
	date, due_date, recurring_group_id, installment_index, installment_count, status`

// LoadCollections implements gateway.Loader. Rows come back in insertion
// order, matching the in-memory store.
func (r *SQLiteRepository) LoadCollections(ctx context.Context) ([]core.Transaction, []core.Investment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions ORDER BY rowid`)
	if err != nil {
		return nil, nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var txs []core.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, nil, err
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate transactions: %w", err)
	}

	invRows, err := r.db.QueryContext(ctx,
		`SELECT id, name, type, initial_value_cents, current_value_cents, purchase_date
		 FROM investments ORDER BY rowid`)
	if err != nil {
		return nil, nil, fmt.Errorf("query investments: %w", err)
	}
	defer invRows.Close()

	var invs []core.Investment
	for invRows.Next() {
		var (
			inv          core.Investment
			purchaseDate string
		)
		if err := invRows.Scan(&inv.ID, &inv.Name, &inv.Type,
			&inv.InitialValue.Cents, &inv.CurrentValue.Cents, &purchaseDate); err != nil {
			return nil, nil, fmt.Errorf("scan investment: %w", err)
		}
		inv.PurchaseDate, err = core.ParseDate(purchaseDate)
		if err != nil {
			return nil, nil, fmt.Errorf("investment %s: %w", inv.ID, err)
		}
		invs = append(invs, inv)
	}
	if err := invRows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate investments: %w", err)
	}

	return txs, invs, nil
}

// CreateTransaction implements gateway.TransactionStore.
func (r *SQLiteRepository) CreateTransaction(ctx context.Context, tx core.Transaction) error {
	_, err := r.db.ExecContext(ctx, insertTransactionSQL, insertTransactionArgs(tx)...)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// CreateTransactionGroup inserts the whole batch in one SQL transaction.
func (r *SQLiteRepository) CreateTransactionGroup(ctx context.Context, txs []core.Transaction) error {
	return r.withTx(ctx, func(sqlTx *sql.Tx) error {
		for _, t := range txs {
			if _, err := sqlTx.ExecContext(ctx, insertTransactionSQL, insertTransactionArgs(t)...); err != nil {
				return fmt.Errorf("insert installment %s: %w", t.ID, err)
			}
		}
		return nil
	})
}

// UpdateTransaction implements gateway.TransactionStore.
func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, tx core.Transaction) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET description = ?, amount_cents = ?, type = ?, category = ?,
		 date = ?, due_date = ?, recurring_group_id = ?, installment_index = ?,
		 installment_count = ?, status = ? WHERE id = ?`,
		tx.Description, tx.Amount.Cents, string(tx.Type), string(tx.Category),
		tx.Date.String(), nullDate(tx.DueDate), nullString(tx.RecurringGroupID),
		tx.InstallmentIndex, tx.InstallmentCount, string(tx.Status), tx.ID)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	return requireRows(res, fmt.Sprintf("update transaction %s", tx.ID))
}

// DeleteTransaction implements gateway.TransactionStore.
func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return requireRows(res, fmt.Sprintf("delete transaction %s", id))
}

// DeleteTransactionGroup implements gateway.TransactionStore.
func (r *SQLiteRepository) DeleteTransactionGroup(ctx context.Context, groupID string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM transactions WHERE recurring_group_id = ?`, groupID)
	if err != nil {
		return fmt.Errorf("delete group: %w", err)
	}
	return requireRows(res, fmt.Sprintf("delete group %s", groupID))
}

// AdjustTransactionAmount implements gateway.TransactionStore. Only the
// addressed row changes.
func (r *SQLiteRepository) AdjustTransactionAmount(ctx context.Context, id string, delta core.Money) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET amount_cents = amount_cents + ? WHERE id = ?`,
		delta.Cents, id)
	if err != nil {
		return fmt.Errorf("adjust amount: %w", err)
	}
	return requireRows(res, fmt.Sprintf("adjust transaction %s", id))
}

// SetTransactionStatus implements gateway.TransactionStore.
func (r *SQLiteRepository) SetTransactionStatus(ctx context.Context, id string, status core.Status) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("set status: %w", err)
	}
	return requireRows(res, fmt.Sprintf("set status of transaction %s", id))
}

// CreateInvestment implements gateway.InvestmentStore.
func (r *SQLiteRepository) CreateInvestment(ctx context.Context, inv core.Investment) error {
	_, err := r.db.ExecContext(ctx, insertInvestmentSQL, insertInvestmentArgs(inv)...)
	if err != nil {
		return fmt.Errorf("insert investment: %w", err)
	}
	return nil
}

// DeleteInvestment implements gateway.InvestmentStore.
func (r *SQLiteRepository) DeleteInvestment(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM investments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete investment: %w", err)
	}
	return requireRows(res, fmt.Sprintf("delete investment %s", id))
}

// ReplaceAll implements gateway.Replacer: both collections are wiped and
// reloaded in one SQL transaction, so a failed import leaves the database
// untouched.
func (r *SQLiteRepository) ReplaceAll(ctx context.Context, txs []core.Transaction, invs []core.Investment) error {
	return r.withTx(ctx, func(sqlTx *sql.Tx) error {
		if _, err := sqlTx.ExecContext(ctx, `DELETE FROM transactions`); err != nil {
			return fmt.Errorf("clear transactions: %w", err)
		}
		if _, err := sqlTx.ExecContext(ctx, `DELETE FROM investments`); err != nil {
			return fmt.Errorf("clear investments: %w", err)
		}
		for _, t := range txs {
			if _, err := sqlTx.ExecContext(ctx, insertTransactionSQL, insertTransactionArgs(t)...); err != nil {
				return fmt.Errorf("insert transaction %s: %w", t.ID, err)
			}
		}
		for _, inv := range invs {
			if _, err := sqlTx.ExecContext(ctx, insertInvestmentSQL, insertInvestmentArgs(inv)...); err != nil {
				return fmt.Errorf("insert investment %s: %w", inv.ID, err)
			}
		}
		return nil
	})
}

func (r *SQLiteRepository) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	sqlTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(sqlTx); err != nil {
		sqlTx.Rollback()
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

const insertTransactionSQL = `INSERT INTO transactions
	(id, description, amount_cents, type, category, date, due_date,
	 recurring_group_id, installment_index, installment_count, status)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func insertTransactionArgs(t core.Transaction) []any {
	return []any{
		t.ID, t.Description, t.Amount.Cents, string(t.Type), string(t.Category),
		t.Date.String(), nullDate(t.DueDate), nullString(t.RecurringGroupID),
		t.InstallmentIndex, t.InstallmentCount, string(t.Status),
	}
}

const insertInvestmentSQL = `INSERT INTO investments
	(id, name, type, initial_value_cents, current_value_cents, purchase_date)
	VALUES (?, ?, ?, ?, ?, ?)`

func insertInvestmentArgs(inv core.Investment) []any {
	return []any{
		inv.ID, inv.Name, string(inv.Type),
		inv.InitialValue.Cents, inv.CurrentValue.Cents, inv.PurchaseDate.String(),
	}
}

func scanTransaction(rows *sql.Rows) (core.Transaction, error) {
	var (
		tx      core.Transaction
		date    string
		dueDate sql.NullString
		groupID sql.NullString
	)
	if err := rows.Scan(&tx.ID, &tx.Description, &tx.Amount.Cents, &tx.Type, &tx.Category,
		&date, &dueDate, &groupID, &tx.InstallmentIndex, &tx.InstallmentCount, &tx.Status); err != nil {
		return core.Transaction{}, fmt.Errorf("scan transaction: %w", err)
	}

	parsed, err := core.ParseDate(date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", tx.ID, err)
	}
	tx.Date = parsed
	if dueDate.Valid && dueDate.String != "" {
		due, err := core.ParseDate(dueDate.String)
		if err != nil {
			return core.Transaction{}, fmt.Errorf("transaction %s due date: %w", tx.ID, err)
		}
		tx.DueDate = due
	}
	tx.RecurringGroupID = groupID.String
	return tx, nil
}

func requireRows(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, gateway.ErrNotFound)
	}
	return nil
}

func nullDate(d core.Date) any {
	if d.IsEmpty() {
		return nil
	}
	return d.String()
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

var _ gateway.Store = (*SQLiteRepository)(nil)
