package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	"github.com/joseph-ayodele/receipt-directory/internal/common"
	"github.com/joseph-ayodele/receipt-directory/internal/entity"
	"github.com/joseph-ayodele/receipt-directory/internal/utils"
)

const expensesTable = "expenses"

var expenseColumns = []string{"id", "user_id", "date", "amount", "category", "description", "receipt_url"}

// ExpenseRepository reads the expense rows that back the receipt directory.
type ExpenseRepository interface {
	// ListReceiptExpenses returns the user's expenses that reference a receipt file.
	ListReceiptExpenses(ctx context.Context, userID string) ([]*entity.ExpenseRecord, error)
	// GetExpense returns one of the user's expenses or common.ErrNotFound.
	GetExpense(ctx context.Context, userID, id string) (*entity.ExpenseRecord, error)
}

type sqlExpenseRepository struct {
	db      *sql.DB
	dialect string
	logger  *slog.Logger
}

// SQLExpenseRepository is the SQL-backed store; Insert seeds local databases.
type SQLExpenseRepository interface {
	ExpenseRepository
	Insert(ctx context.Context, rows ...entity.ExpenseRow) error
}

// NewPostgresExpenseRepository reads expenses through a pgx-backed *sql.DB.
func NewPostgresExpenseRepository(db *sql.DB, logger *slog.Logger) SQLExpenseRepository {
	return newSQLExpenseRepository(db, dialect.Postgres, logger)
}

// NewSQLiteExpenseRepository reads expenses from a migrated SQLite database.
func NewSQLiteExpenseRepository(db *sql.DB, logger *slog.Logger) SQLExpenseRepository {
	return newSQLExpenseRepository(db, dialect.SQLite, logger)
}

func newSQLExpenseRepository(db *sql.DB, d string, logger *slog.Logger) *sqlExpenseRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &sqlExpenseRepository{db: db, dialect: d, logger: logger}
}

func (r *sqlExpenseRepository) ListReceiptExpenses(ctx context.Context, userID string) ([]*entity.ExpenseRecord, error) {
	query, args := entsql.Dialect(r.dialect).
		Select(expenseColumns...).
		From(entsql.Table(expensesTable)).
		Where(entsql.And(
			entsql.EQ("user_id", userID),
			entsql.NotNull("receipt_url"),
			entsql.NEQ("receipt_url", ""),
		)).
		OrderBy(entsql.Desc("date"), "id").
		Query()

	rows, err := r.query(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to list receipt expenses", "user_id", userID, "error", err)
		return nil, fmt.Errorf("%w: %w", common.ErrDatabase, err)
	}
	return utils.ToExpenseRecords(rows), nil
}

func (r *sqlExpenseRepository) GetExpense(ctx context.Context, userID, id string) (*entity.ExpenseRecord, error) {
	query, args := entsql.Dialect(r.dialect).
		Select(expenseColumns...).
		From(entsql.Table(expensesTable)).
		Where(entsql.And(
			entsql.EQ("user_id", userID),
			entsql.EQ("id", id),
		)).
		Limit(1).
		Query()

	rows, err := r.query(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to get expense", "user_id", userID, "id", id, "error", err)
		return nil, fmt.Errorf("%w: %w", common.ErrDatabase, err)
	}
	if len(rows) == 0 {
		return nil, common.NewAppError("EXPENSE_NOT_FOUND", fmt.Sprintf("expense %s not found", id), common.ErrNotFound)
	}
	return utils.ToExpenseRecord(&rows[0]), nil
}

func (r *sqlExpenseRepository) Insert(ctx context.Context, rows ...entity.ExpenseRow) error {
	if len(rows) == 0 {
		return nil
	}
	ins := entsql.Dialect(r.dialect).Insert(expensesTable).Columns(expenseColumns...)
	for _, row := range rows {
		ins.Values(
			row.ID.String(),
			row.UserID,
			nullable(row.Date),
			nullable(row.Amount.String()),
			row.Category,
			row.Description,
			nullable(row.ReceiptURL),
		)
	}
	query, args := ins.Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.Error("failed to insert expenses", "count", len(rows), "error", err)
		return fmt.Errorf("%w: %w", common.ErrDatabase, err)
	}
	return nil
}

func (r *sqlExpenseRepository) query(ctx context.Context, query string, args ...any) ([]entity.ExpenseRow, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []entity.ExpenseRow
	for rows.Next() {
		var id, userID, date, amount, category, description, receiptURL sql.NullString
		if err := rows.Scan(&id, &userID, &date, &amount, &category, &description, &receiptURL); err != nil {
			return nil, err
		}
		out = append(out, entity.ExpenseRow{
			ID:          entity.FlexString(id.String),
			UserID:      userID.String,
			Date:        date.String,
			Amount:      entity.FlexString(amount.String),
			Category:    category.String,
			Description: description.String,
			ReceiptURL:  receiptURL.String,
		})
	}
	if err := rows.Err(); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	return out, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
