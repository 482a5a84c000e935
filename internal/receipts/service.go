package receipts

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/receipt-directory/internal/common"
	"github.com/joseph-ayodele/receipt-directory/internal/directory"
	"github.com/joseph-ayodele/receipt-directory/internal/entity"
	"github.com/joseph-ayodele/receipt-directory/internal/export"
	"github.com/joseph-ayodele/receipt-directory/internal/repository"
)

// Service composes the record store, the directory views and the export engine.
type Service struct {
	expenses repository.ExpenseRepository
	exporter *export.Service
	logger   *slog.Logger
}

// NewService creates a new receipt directory service.
func NewService(expenses repository.ExpenseRepository, exporter *export.Service, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		expenses: expenses,
		exporter: exporter,
		logger:   logger,
	}
}

// ListFoldersRequest asks for the folder tree of one user.
type ListFoldersRequest struct {
	UserID   string
	Criteria directory.Criteria
}

// Scope picks the records of a batch download. Exactly one of Year, Month or IDs is used:
// Month needs Year as well, IDs are intersected with the filtered view.
type Scope struct {
	Criteria   directory.Criteria
	Year       *int
	MonthIndex *int
	IDs        []string
}

// ArchiveRequest asks for a zip of the records in Scope.
type ArchiveRequest struct {
	UserID      string
	Scope       Scope
	ArchiveName string
}

func validateCriteria(v *common.Validator, c directory.Criteria) {
	v.Field("year", c.Year, common.YearFilter).
		Field("search", c.SearchText, common.MaxLength(200)).
		Field("category", c.Category, common.MaxLength(64))
}

func (s *Service) load(ctx context.Context, userID string, c directory.Criteria) ([]*entity.ExpenseRecord, error) {
	records, err := s.expenses.ListReceiptExpenses(ctx, userID)
	if err != nil {
		s.logger.Error("failed to load expenses", "user_id", userID, "error", err)
		return nil, err
	}
	filtered := directory.Filter(records, c)
	s.logger.Debug("records filtered", "user_id", userID, "loaded", len(records), "visible", len(filtered))
	return filtered, nil
}

// ListFolders returns the filtered year/month tree for a user.
func (s *Service) ListFolders(ctx context.Context, req ListFoldersRequest) (entity.Tree, error) {
	v := common.NewValidator().Field("user_id", req.UserID, common.Required)
	validateCriteria(v, req.Criteria)
	if err := v.Error(); err != nil {
		return nil, err
	}

	filtered, err := s.load(ctx, req.UserID, req.Criteria)
	if err != nil {
		return nil, err
	}
	tree := directory.Index(filtered)
	s.logger.Info("folders listed", "user_id", req.UserID, "years", len(tree), "records", tree.Count())
	return tree, nil
}

// ListYears returns the years a user has receipts in, newest first, ignoring any filter.
func (s *Service) ListYears(ctx context.Context, userID string) ([]int, error) {
	if err := common.NewValidator().Field("user_id", userID, common.Required).Error(); err != nil {
		return nil, err
	}
	records, err := s.expenses.ListReceiptExpenses(ctx, userID)
	if err != nil {
		return nil, err
	}
	return directory.Years(records), nil
}

// Resolve turns a scope into the concrete record list handed to the export engine,
// in display order.
func (s *Service) Resolve(ctx context.Context, userID string, scope Scope) ([]*entity.ExpenseRecord, error) {
	v := common.NewValidator().Field("user_id", userID, common.Required)
	validateCriteria(v, scope.Criteria)
	if scope.MonthIndex != nil {
		v.Field("month", *scope.MonthIndex, common.MonthIndex)
		if scope.Year == nil {
			v.Field("year", nil, common.Required)
		}
	}
	if scope.Year == nil && len(scope.IDs) == 0 {
		v.Field("scope", "", func(field string, value interface{}) *common.ValidationError {
			return &common.ValidationError{Field: field, Value: value, Message: "one of year, month or ids is required"}
		})
	}
	if err := v.Error(); err != nil {
		return nil, err
	}

	filtered, err := s.load(ctx, userID, scope.Criteria)
	if err != nil {
		return nil, err
	}

	if len(scope.IDs) > 0 {
		sel := directory.NewSelectionSet()
		for _, id := range scope.IDs {
			if !sel.IsSelected(id) {
				sel.Toggle(id)
			}
		}
		return sel.Visible(filtered), nil
	}

	tree := directory.Index(filtered)
	year, ok := tree[*scope.Year]
	if !ok {
		return nil, nil
	}
	if scope.MonthIndex == nil {
		return year.Records(), nil
	}
	month, ok := year.Months[*scope.MonthIndex]
	if !ok {
		return nil, nil
	}
	return month.SortedRecords(), nil
}

// DownloadReceipt saves one record's receipt into sink and returns the filename used.
func (s *Service) DownloadReceipt(ctx context.Context, userID, recordID string, sink export.Sink) (string, error) {
	if err := common.NewValidator().
		Field("user_id", userID, common.Required).
		Field("record_id", recordID, common.Required).
		Error(); err != nil {
		return "", err
	}
	rec, err := s.expenses.GetExpense(ctx, userID, recordID)
	if err != nil {
		return "", err
	}
	return s.exporter.DownloadOne(ctx, rec, sink)
}

// DownloadArchive resolves the scope and runs an archive job over it.
func (s *Service) DownloadArchive(ctx context.Context, req ArchiveRequest, sink export.Sink, progress export.ProgressFunc) (*export.ArchiveResult, error) {
	records, err := s.Resolve(ctx, req.UserID, req.Scope)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.ArchiveName)
	if name == "" {
		name = DefaultArchiveName(req.Scope)
	}
	return s.exporter.DownloadArchive(ctx, records, name, sink, progress)
}

// DefaultArchiveName names an archive after its scope: "receipts-2024", "receipts-2024-March"
// or "selected-receipts".
func DefaultArchiveName(scope Scope) string {
	switch {
	case len(scope.IDs) > 0:
		return "selected-receipts"
	case scope.Year != nil && scope.MonthIndex != nil:
		return fmt.Sprintf("receipts-%d-%s", *scope.Year, entity.MonthName(*scope.MonthIndex))
	case scope.Year != nil:
		return "receipts-" + strconv.Itoa(*scope.Year)
	}
	return "receipts"
}
