package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/supabase-community/supabase-go"

	"github.com/joseph-ayodele/receipt-directory/constants"
	"github.com/joseph-ayodele/receipt-directory/internal/common"
)

// Store bundles the expense repository selected by configuration with the handles behind it.
type Store struct {
	Expenses ExpenseRepository
	DB       *sql.DB          // set for the postgres and sqlite backends
	Supabase *supabase.Client // set whenever Supabase credentials are configured

	pool   *pgxpool.Pool
	logger *slog.Logger
}

// OpenStore connects the configured backend.
func OpenStore(ctx context.Context, cfg *common.Config, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{logger: logger}

	if cfg.Supabase.URL != "" && cfg.Supabase.Key != "" {
		client, err := NewSupabaseClient(cfg.Supabase.URL, cfg.Supabase.Key)
		if err != nil {
			return nil, err
		}
		s.Supabase = client
	}

	switch cfg.Store.Backend {
	case constants.BackendSupabase:
		if s.Supabase == nil {
			return nil, common.NewAppError("CONFIG_ERROR", "supabase backend needs SUPABASE_URL and SUPABASE_KEY", common.ErrInvalidInput)
		}
		s.Expenses = NewSupabaseExpenseRepository(s.Supabase, logger)
	case constants.BackendPostgres:
		db, pool, err := Open(ctx, Config{
			DSN:              cfg.Database.DSN,
			MaxConns:         cfg.Database.MaxConns,
			MinConns:         cfg.Database.MinConns,
			MaxConnLifetime:  cfg.Database.MaxConnLifetime,
			MaxConnIdleTime:  cfg.Database.MaxConnIdleTime,
			DialTimeout:      cfg.Database.DialTimeout,
			StatementTimeout: cfg.Database.StatementTimeout,
		}, logger)
		if err != nil {
			return nil, err
		}
		s.DB, s.pool = db, pool
		s.Expenses = NewPostgresExpenseRepository(db, logger)
	case constants.BackendSQLite:
		db, err := OpenSQLite(ctx, cfg.SQLite.Path, logger)
		if err != nil {
			return nil, err
		}
		s.DB = db
		s.Expenses = NewSQLiteExpenseRepository(db, logger)
	case constants.BackendFile:
		s.Expenses = NewFileExpenseRepository(cfg.Store.RecordsFile, logger)
	default:
		return nil, common.NewAppError("CONFIG_ERROR", fmt.Sprintf("unknown store backend %q", cfg.Store.Backend), common.ErrInvalidInput)
	}

	logger.Info("record store opened", "backend", cfg.Store.Backend)
	return s, nil
}

func (s *Store) Close() {
	if s.DB != nil || s.pool != nil {
		Close(s.DB, s.pool, s.logger)
	}
}
