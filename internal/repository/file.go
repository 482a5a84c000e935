package repository

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/receipt-directory/internal/common"
	"github.com/joseph-ayodele/receipt-directory/internal/entity"
	"github.com/joseph-ayodele/receipt-directory/internal/utils"
)

//go:embed schema/expenses.schema.json
var expensesSchema []byte

// ValidateExpenseDump checks a JSON export of expense rows against the expenses schema.
func ValidateExpenseDump(data []byte) error {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("expenses.schema.json", bytes.NewReader(expensesSchema)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("expenses.schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("%w: unmarshal data: %w", common.ErrValidation, err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("%w: json does not match schema: %w", common.ErrValidation, err)
	}
	return nil
}

type fileExpenseRepository struct {
	path   string
	logger *slog.Logger

	once sync.Once
	rows []entity.ExpenseRow
	err  error
}

// NewFileExpenseRepository serves expenses from a JSON dump, loaded and validated on first use.
func NewFileExpenseRepository(path string, logger *slog.Logger) ExpenseRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &fileExpenseRepository{path: path, logger: logger}
}

func (r *fileExpenseRepository) load() ([]entity.ExpenseRow, error) {
	r.once.Do(func() {
		data, err := os.ReadFile(r.path)
		if err != nil {
			r.err = fmt.Errorf("read records file: %w", err)
			return
		}
		if err := ValidateExpenseDump(data); err != nil {
			r.logger.Error("records file rejected", "path", r.path, "error", err)
			r.err = err
			return
		}
		if err := json.Unmarshal(data, &r.rows); err != nil {
			r.err = fmt.Errorf("parse records file: %w", err)
			return
		}
		r.logger.Info("records file loaded", "path", r.path, "rows", len(r.rows))
	})
	return r.rows, r.err
}

func (r *fileExpenseRepository) ListReceiptExpenses(_ context.Context, userID string) ([]*entity.ExpenseRecord, error) {
	rows, err := r.load()
	if err != nil {
		return nil, err
	}
	var out []*entity.ExpenseRecord
	for i := range rows {
		if rows[i].UserID != userID {
			continue
		}
		rec := utils.ToExpenseRecord(&rows[i])
		if rec.HasReceipt() {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *fileExpenseRepository) GetExpense(_ context.Context, userID, id string) (*entity.ExpenseRecord, error) {
	rows, err := r.load()
	if err != nil {
		return nil, err
	}
	for i := range rows {
		if rows[i].UserID == userID && rows[i].ID.String() == id {
			return utils.ToExpenseRecord(&rows[i]), nil
		}
	}
	return nil, common.NewAppError("EXPENSE_NOT_FOUND", fmt.Sprintf("expense %s not found", id), common.ErrNotFound)
}
