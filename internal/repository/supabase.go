package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/supabase-community/supabase-go"

	"github.com/joseph-ayodele/receipt-directory/internal/common"
	"github.com/joseph-ayodele/receipt-directory/internal/entity"
	"github.com/joseph-ayodele/receipt-directory/internal/utils"
)

// NewSupabaseClient builds a client for both PostgREST queries and Storage downloads.
func NewSupabaseClient(url, key string) (*supabase.Client, error) {
	client, err := supabase.NewClient(url, key, &supabase.ClientOptions{})
	if err != nil {
		return nil, fmt.Errorf("create supabase client: %w", err)
	}
	return client, nil
}

type supabaseExpenseRepository struct {
	client *supabase.Client
	logger *slog.Logger
}

// NewSupabaseExpenseRepository reads expenses from the hosted backend's REST API.
func NewSupabaseExpenseRepository(client *supabase.Client, logger *slog.Logger) ExpenseRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &supabaseExpenseRepository{client: client, logger: logger}
}

func (r *supabaseExpenseRepository) ListReceiptExpenses(ctx context.Context, userID string) ([]*entity.ExpenseRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, count, err := r.client.From(expensesTable).
		Select(strings.Join(expenseColumns, ","), "", false).
		Eq("user_id", userID).
		Neq("receipt_url", "").
		Execute()
	if err != nil {
		r.logger.Error("supabase list expenses failed", "user_id", userID, "error", err)
		return nil, fmt.Errorf("%w: list expenses: %w", common.ErrDatabase, err)
	}

	var rows []entity.ExpenseRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("parse expenses: %w", err)
	}
	r.logger.Debug("supabase expenses listed", "user_id", userID, "rows", len(rows), "count", count)
	return utils.ToExpenseRecords(rows), nil
}

func (r *supabaseExpenseRepository) GetExpense(ctx context.Context, userID, id string) (*entity.ExpenseRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, _, err := r.client.From(expensesTable).
		Select(strings.Join(expenseColumns, ","), "", false).
		Eq("user_id", userID).
		Eq("id", id).
		Execute()
	if err != nil {
		r.logger.Error("supabase get expense failed", "user_id", userID, "id", id, "error", err)
		return nil, fmt.Errorf("%w: get expense: %w", common.ErrDatabase, err)
	}

	var rows []entity.ExpenseRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("parse expense: %w", err)
	}
	if len(rows) == 0 {
		return nil, common.NewAppError("EXPENSE_NOT_FOUND", fmt.Sprintf("expense %s not found", id), common.ErrNotFound)
	}
	return utils.ToExpenseRecord(&rows[0]), nil
}
