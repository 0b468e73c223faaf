package grpc

import (
	"bytes"
	"context"
	"errors"
	"io"
	"time"

	"github.com/dmitrijs2005/securelink/internal/common"
	"github.com/dmitrijs2005/securelink/internal/server/models"
	"github.com/dmitrijs2005/securelink/internal/server/services"
	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// OwnerFiles is the part of services.FileService the gRPC surface uses.
type OwnerFiles interface {
	Upload(ctx context.Context, ownerID, filename string, r io.Reader) (*models.FileRecord, error)
	List(ctx context.Context, ownerID string) ([]*models.FileRecord, error)
	Share(ctx context.Context, ownerID, fileID string) (*services.ShareLink, error)
}

func toStatus(err error) error {
	var code codes.Code
	switch {
	case errors.Is(err, common.ErrorNotFound):
		code = codes.NotFound
	case errors.Is(err, common.ErrorForbidden):
		code = codes.PermissionDenied
	case errors.Is(err, common.ErrInvalidFilename),
		errors.Is(err, common.ErrExtensionNotAllowed),
		errors.Is(err, common.ErrFileIsEmpty):
		code = codes.InvalidArgument
	case errors.Is(err, common.ErrFileTooLarge):
		code = codes.ResourceExhausted
	default:
		code = codes.Internal
	}
	return status.Error(code, common.UserMessage(err))
}

func recordFields(rec *models.FileRecord) map[string]any {
	return map[string]any{
		"id":          rec.ID,
		"filename":    rec.Filename,
		"uploaded_at": rec.UploadedAt.Format(time.RFC3339Nano),
	}
}

func (s *GRPCServer) owner(ctx context.Context) (string, error) {
	id, ok := userIDFromContext(ctx)
	if !ok {
		return "", status.Error(codes.Unauthenticated, "unauthenticated")
	}
	return id, nil
}

func (s *GRPCServer) Upload(ctx context.Context, req *wrapperspb.BytesValue) (*structpb.Struct, error) {
	ownerID, err := s.owner(ctx)
	if err != nil {
		return nil, err
	}

	var filename string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(common.FilenameHeaderName); len(values) > 0 {
			filename = values[0]
		}
	}
	if filename == "" {
		return nil, toStatus(common.ErrInvalidFilename)
	}
	if len(req.GetValue()) == 0 {
		return nil, toStatus(common.ErrFileIsEmpty)
	}

	rec, err := s.files.Upload(ctx, ownerID, filename, bytes.NewReader(req.GetValue()))
	if err != nil {
		s.logger.Error(ctx, "upload failed", "error", err)
		return nil, toStatus(err)
	}

	return structpb.NewStruct(recordFields(rec))
}

func (s *GRPCServer) ListFiles(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	ownerID, err := s.owner(ctx)
	if err != nil {
		return nil, err
	}

	recs, err := s.files.List(ctx, ownerID)
	if err != nil {
		s.logger.Error(ctx, "list failed", "error", err)
		return nil, toStatus(err)
	}

	files := make([]any, 0, len(recs))
	for _, rec := range recs {
		f := recordFields(rec)
		if rec.TokenExpiresAt != nil {
			f["token_expires_at"] = rec.TokenExpiresAt.Format(time.RFC3339Nano)
		}
		files = append(files, f)
	}
	return structpb.NewStruct(map[string]any{"files": files})
}

func (s *GRPCServer) Share(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	ownerID, err := s.owner(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(req.GetValue()); err != nil {
		return nil, toStatus(common.ErrorNotFound)
	}

	link, err := s.files.Share(ctx, ownerID, req.GetValue())
	if err != nil {
		return nil, toStatus(err)
	}

	return structpb.NewStruct(map[string]any{
		"token":      link.Token,
		"expires_at": link.ExpiresAt.Format(time.RFC3339Nano),
		"url":        link.URL,
	})
}
