package grpc

import (
	"context"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/dmitrijs2005/securelink/internal/common"
	"github.com/dmitrijs2005/securelink/internal/server/auth"
	"github.com/dmitrijs2005/securelink/internal/server/models"
	"github.com/dmitrijs2005/securelink/internal/server/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const fileID = "7d1f2c4e-9a53-4b8e-a0c1-3f6d5e2b8a90"

type fakeFiles struct {
	gotOwner, gotName, gotBody string

	uploadErr error
	list      []*models.FileRecord
	link      *services.ShareLink
	shareErr  error
}

func (f *fakeFiles) Upload(_ context.Context, ownerID, filename string, r io.Reader) (*models.FileRecord, error) {
	b, _ := io.ReadAll(r)
	f.gotOwner, f.gotName, f.gotBody = ownerID, filename, string(b)
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	return &models.FileRecord{
		ID:         fileID,
		OwnerID:    ownerID,
		Filename:   filename,
		UploadedAt: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC),
	}, nil
}

func (f *fakeFiles) List(_ context.Context, ownerID string) ([]*models.FileRecord, error) {
	f.gotOwner = ownerID
	return f.list, nil
}

func (f *fakeFiles) Share(_ context.Context, ownerID, id string) (*services.ShareLink, error) {
	f.gotOwner = ownerID
	return f.link, f.shareErr
}

func dial(t *testing.T, files *fakeFiles) *grpc.ClientConn {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	s := NewGRPCServer("bufnet", discard, files, "secret", 1<<16)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = s.serve(ctx, lis)
		close(done)
	}()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = conn.Close()
		cancel()
		<-done
	})
	return conn
}

func ownerCtx(t *testing.T, owner string, kv ...string) context.Context {
	t.Helper()
	token, err := auth.GenerateToken(owner, []byte("secret"), time.Hour)
	require.NoError(t, err)
	kv = append(kv, common.AccessTokenHeaderName, token)
	return metadata.AppendToOutgoingContext(context.Background(), kv...)
}

func TestUpload(t *testing.T) {
	files := &fakeFiles{}
	conn := dial(t, files)

	ctx := ownerCtx(t, "alice", common.FilenameHeaderName, "report.pdf")
	out := new(structpb.Struct)
	err := conn.Invoke(ctx, UploadMethod, wrapperspb.Bytes([]byte("%PDF")), out)
	require.NoError(t, err)

	assert.Equal(t, fileID, out.Fields["id"].GetStringValue())
	assert.Equal(t, "report.pdf", out.Fields["filename"].GetStringValue())
	assert.Equal(t, "2026-05-01T09:00:00Z", out.Fields["uploaded_at"].GetStringValue())
	assert.Equal(t, "alice", files.gotOwner)
	assert.Equal(t, "%PDF", files.gotBody)
}

func TestUpload_Errors(t *testing.T) {
	files := &fakeFiles{}
	conn := dial(t, files)
	out := new(structpb.Struct)

	err := conn.Invoke(ownerCtx(t, "alice"), UploadMethod, wrapperspb.Bytes([]byte("x")), out)
	assert.Equal(t, codes.InvalidArgument, status.Code(err), "filename metadata missing")

	err = conn.Invoke(ownerCtx(t, "alice", common.FilenameHeaderName, "a.txt"), UploadMethod, wrapperspb.Bytes(nil), out)
	assert.Equal(t, codes.InvalidArgument, status.Code(err), "empty body")

	files.uploadErr = common.ErrExtensionNotAllowed
	err = conn.Invoke(ownerCtx(t, "alice", common.FilenameHeaderName, "a.exe"), UploadMethod, wrapperspb.Bytes([]byte("MZ")), out)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
	assert.Equal(t, "File type is not allowed.", status.Convert(err).Message())

	files.uploadErr = errors.New("disk on fire")
	err = conn.Invoke(ownerCtx(t, "alice", common.FilenameHeaderName, "a.txt"), UploadMethod, wrapperspb.Bytes([]byte("x")), out)
	assert.Equal(t, codes.Internal, status.Code(err))
	assert.NotContains(t, status.Convert(err).Message(), "disk on fire")

	err = conn.Invoke(context.Background(), UploadMethod, wrapperspb.Bytes([]byte("x")), out)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestListFiles(t *testing.T) {
	exp := time.Date(2026, 5, 1, 9, 15, 0, 0, time.UTC)
	tok := "ab"
	files := &fakeFiles{list: []*models.FileRecord{
		{ID: "2", Filename: "b.txt", Token: &tok, TokenExpiresAt: &exp},
		{ID: "1", Filename: "a.txt"},
	}}
	conn := dial(t, files)

	out := new(structpb.Struct)
	require.NoError(t, conn.Invoke(ownerCtx(t, "alice"), ListFilesMethod, &emptypb.Empty{}, out))

	list := out.Fields["files"].GetListValue().GetValues()
	require.Len(t, list, 2)
	first := list[0].GetStructValue().Fields
	assert.Equal(t, "b.txt", first["filename"].GetStringValue())
	assert.Equal(t, "2026-05-01T09:15:00Z", first["token_expires_at"].GetStringValue())
	assert.NotContains(t, list[1].GetStructValue().Fields, "token_expires_at")
	assert.NotContains(t, first, "token", "token only handed out by Share")
}

func TestShare(t *testing.T) {
	files := &fakeFiles{link: &services.ShareLink{
		FileID:    fileID,
		Token:     "deadbeef",
		ExpiresAt: time.Date(2026, 5, 1, 9, 15, 0, 0, time.UTC),
		URL:       "https://share.example.com/s/deadbeef",
	}}
	conn := dial(t, files)

	out := new(structpb.Struct)
	require.NoError(t, conn.Invoke(ownerCtx(t, "alice"), ShareMethod, wrapperspb.String(fileID), out))
	assert.Equal(t, "https://share.example.com/s/deadbeef", out.Fields["url"].GetStringValue())
	assert.Equal(t, "deadbeef", out.Fields["token"].GetStringValue())

	err := conn.Invoke(ownerCtx(t, "alice"), ShareMethod, wrapperspb.String("nope"), out)
	assert.Equal(t, codes.NotFound, status.Code(err))

	files.shareErr = common.ErrorForbidden
	err = conn.Invoke(ownerCtx(t, "mallory"), ShareMethod, wrapperspb.String(fileID), out)
	assert.Equal(t, codes.PermissionDenied, status.Code(err))
}

func TestHealth(t *testing.T) {
	conn := dial(t, &fakeFiles{})

	resp, err := healthpb.NewHealthClient(conn).Check(context.Background(),
		&healthpb.HealthCheckRequest{Service: OwnerServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
}
