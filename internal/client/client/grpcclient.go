// Package client talks to the securelink owner gRPC service.
package client

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/securelink/internal/common"
	gs "github.com/dmitrijs2005/securelink/internal/server/grpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// FileInfo is one uploaded file as reported by the server.
type FileInfo struct {
	ID             string
	Filename       string
	UploadedAt     time.Time
	TokenExpiresAt *time.Time
}

// Link is a share link handed out for a file.
type Link struct {
	Token     string
	URL       string
	ExpiresAt time.Time
}

type GRPCClient struct {
	endpointURL string
	conn        *grpc.ClientConn
	accessToken string
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Set(common.AccessTokenHeaderName, token)
	return metadata.NewOutgoingContext(ctx, md)
}

func (s *GRPCClient) accessTokenInterceptor(ctx context.Context, method string, req, reply any,
	cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
	if s.accessToken != "" {
		ctx = withAccessToken(ctx, s.accessToken)
	}
	return invoker(ctx, method, req, reply, cc, opts...)
}

// NewOwnerClient prepares a client for endpointURL. The connection is
// established lazily on the first call. Extra dial options are appended to
// the defaults (insecure transport, token interceptor).
func NewOwnerClient(endpointURL string, opts ...grpc.DialOption) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL}

	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(c.accessTokenInterceptor),
	}, opts...)

	conn, err := grpc.NewClient(endpointURL, opts...)
	if err != nil {
		return nil, err
	}
	c.conn = conn
	return c, nil
}

func (s *GRPCClient) SetAccessToken(token string) { s.accessToken = token }

func (s *GRPCClient) HasAccessToken() bool { return s.accessToken != "" }

func (s *GRPCClient) Close() error {
	return s.conn.Close()
}

func (s *GRPCClient) Upload(ctx context.Context, filename string, data []byte) (*FileInfo, error) {
	ctx = metadata.AppendToOutgoingContext(ctx, common.FilenameHeaderName, filename)

	out := new(structpb.Struct)
	if err := s.conn.Invoke(ctx, gs.UploadMethod, wrapperspb.Bytes(data), out); err != nil {
		return nil, s.mapError(err)
	}
	return fileInfo(out.GetFields()), nil
}

func (s *GRPCClient) List(ctx context.Context) ([]FileInfo, error) {
	out := new(structpb.Struct)
	if err := s.conn.Invoke(ctx, gs.ListFilesMethod, &emptypb.Empty{}, out); err != nil {
		return nil, s.mapError(err)
	}

	values := out.GetFields()["files"].GetListValue().GetValues()
	files := make([]FileInfo, 0, len(values))
	for _, v := range values {
		files = append(files, *fileInfo(v.GetStructValue().GetFields()))
	}
	return files, nil
}

func (s *GRPCClient) Share(ctx context.Context, fileID string) (*Link, error) {
	out := new(structpb.Struct)
	if err := s.conn.Invoke(ctx, gs.ShareMethod, wrapperspb.String(fileID), out); err != nil {
		return nil, s.mapError(err)
	}

	f := out.GetFields()
	return &Link{
		Token:     f["token"].GetStringValue(),
		URL:       f["url"].GetStringValue(),
		ExpiresAt: parseTime(f["expires_at"].GetStringValue()),
	}, nil
}

func fileInfo(f map[string]*structpb.Value) *FileInfo {
	info := &FileInfo{
		ID:         f["id"].GetStringValue(),
		Filename:   f["filename"].GetStringValue(),
		UploadedAt: parseTime(f["uploaded_at"].GetStringValue()),
	}
	if v, ok := f["token_expires_at"]; ok {
		t := parseTime(v.GetStringValue())
		info.TokenExpiresAt = &t
	}
	return info
}

// parseTime returns the zero time for anything that is not RFC 3339.
func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func (s *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied:
		return ErrUnauthorized
	case codes.Unavailable, codes.DeadlineExceeded:
		return ErrUnavailable
	case codes.NotFound:
		return ErrNotFound
	case codes.InvalidArgument, codes.ResourceExhausted:
		return fmt.Errorf("%w: %s", ErrRejected, st.Message())
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}
