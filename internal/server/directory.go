package server

import (
	"context"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/receipt-directory/internal/common"
	"github.com/joseph-ayodele/receipt-directory/internal/directory"
	"github.com/joseph-ayodele/receipt-directory/internal/entity"
	"github.com/joseph-ayodele/receipt-directory/internal/export"
	"github.com/joseph-ayodele/receipt-directory/internal/receipts"
	"github.com/joseph-ayodele/receipt-directory/internal/utils"
)

// DirectoryService exposes folder listing and receipt downloads over gRPC.
type DirectoryService struct {
	svc    *receipts.Service
	logger *slog.Logger
}

func NewDirectoryService(svc *receipts.Service, logger *slog.Logger) *DirectoryService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DirectoryService{svc: svc, logger: logger}
}

func (s *DirectoryService) requestContext(ctx context.Context, userID string) context.Context {
	ctx = common.WithRequestID(ctx, uuid.New().String())
	return common.WithUserID(ctx, userID)
}

func (s *DirectoryService) ListFolders(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID := stringField(req, "user_id")
	ctx = s.requestContext(ctx, userID)
	start := time.Now()

	tree, err := s.svc.ListFolders(ctx, receipts.ListFoldersRequest{UserID: userID, Criteria: criteriaFrom(req)})
	if err != nil {
		s.logger.Error("grpc.list_folders.failed", "request_id", common.RequestIDFromContext(ctx), "user_id", common.UserIDFromContext(ctx), "error", err)
		return nil, common.ToStatus(err)
	}
	out, err := utils.ToPBTree(tree)
	if err != nil {
		return nil, common.InternalErrorf("encode tree: %v", err)
	}
	s.logger.Info("grpc.list_folders.ok",
		"request_id", common.RequestIDFromContext(ctx),
		"user_id", common.UserIDFromContext(ctx),
		"records", tree.Count(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

func (s *DirectoryService) DownloadReceipt(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID := stringField(req, "user_id")
	recordID := stringField(req, "record_id")
	ctx = s.requestContext(ctx, userID)

	sink := export.NewMemorySink()
	filename, err := s.svc.DownloadReceipt(ctx, userID, recordID, sink)
	if err != nil {
		s.logger.Warn("grpc.download_receipt.failed", "request_id", common.RequestIDFromContext(ctx), "user_id", common.UserIDFromContext(ctx), "record_id", recordID, "error", err)
		return nil, common.ToStatus(err)
	}
	content, _ := sink.File(filename)
	out, err := utils.ToPBReceiptFile(filename, content)
	if err != nil {
		return nil, common.InternalErrorf("encode receipt: %v", err)
	}
	return out, nil
}

func (s *DirectoryService) DownloadArchive(req *structpb.Struct, stream grpc.ServerStreamingServer[structpb.Struct]) error {
	userID := stringField(req, "user_id")
	ctx := s.requestContext(stream.Context(), userID)

	scope := receipts.Scope{
		Criteria:   criteriaFrom(req),
		Year:       intField(req, "scope_year"),
		MonthIndex: intField(req, "scope_month"),
		IDs:        stringListField(req, "ids"),
	}

	var (
		mu      sync.Mutex
		sendErr error
	)
	progress := func(job entity.DownloadJob) {
		msg, err := utils.ToPBProgress(job)
		if err == nil {
			err = stream.Send(msg)
		}
		mu.Lock()
		if err != nil && sendErr == nil {
			sendErr = err
		}
		mu.Unlock()
	}

	sink := export.NewMemorySink()
	res, err := s.svc.DownloadArchive(ctx, receipts.ArchiveRequest{
		UserID:      userID,
		Scope:       scope,
		ArchiveName: stringField(req, "archive_name"),
	}, sink, progress)
	if err != nil {
		s.logger.Error("grpc.download_archive.failed", "request_id", common.RequestIDFromContext(ctx), "user_id", common.UserIDFromContext(ctx), "error", err)
		return common.ToStatus(err)
	}
	if sendErr != nil {
		return sendErr
	}

	var content []byte
	if res.Saved {
		content, _ = sink.File(res.Filename)
	}
	msg, err := utils.ToPBArchive(res, content)
	if err != nil {
		return common.InternalErrorf("encode archive: %v", err)
	}
	return stream.Send(msg)
}

func criteriaFrom(req *structpb.Struct) directory.Criteria {
	return directory.Criteria{
		SearchText: stringField(req, "search"),
		Year:       stringField(req, "year"),
		Category:   stringField(req, "category"),
	}
}

func stringField(req *structpb.Struct, key string) string {
	v, ok := req.GetFields()[key]
	if !ok {
		return ""
	}
	switch k := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		return strings.TrimSpace(k.StringValue)
	case *structpb.Value_NumberValue:
		return strconv.FormatFloat(k.NumberValue, 'f', -1, 64)
	}
	return ""
}

func intField(req *structpb.Struct, key string) *int {
	v, ok := req.GetFields()[key]
	if !ok {
		return nil
	}
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok || n.NumberValue != math.Trunc(n.NumberValue) {
		return nil
	}
	i := int(n.NumberValue)
	return &i
}

func stringListField(req *structpb.Struct, key string) []string {
	v, ok := req.GetFields()[key]
	if !ok {
		return nil
	}
	var out []string
	for _, item := range v.GetListValue().GetValues() {
		if s := strings.TrimSpace(item.GetStringValue()); s != "" {
			out = append(out, s)
		}
	}
	return out
}
