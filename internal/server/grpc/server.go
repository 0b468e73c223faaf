// Package grpc exposes the owner API (upload, list, share) over gRPC next
// to the standard health service.
package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/securelink/internal/logging"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// messageOverhead is added to the upload limit for the receive size cap.
const messageOverhead = 1 << 20

type GRPCServer struct {
	address    string
	files      OwnerFiles
	logger     logging.Logger
	jwtSecret  []byte
	maxRecvMsg int
}

func NewGRPCServer(a string, l logging.Logger, files OwnerFiles, secretKey string, maxUpload int64) *GRPCServer {
	s := &GRPCServer{
		address:   a,
		logger:    l.With("module", "grpc_server"),
		files:     files,
		jwtSecret: []byte(secretKey),
	}
	if maxUpload > 0 {
		s.maxRecvMsg = int(maxUpload) + messageOverhead
	}
	return s
}

func (s *GRPCServer) newServer() (*grpc.Server, *health.Server) {
	opts := []grpc.ServerOption{grpc.ChainUnaryInterceptor(s.accessTokenInterceptor)}
	if s.maxRecvMsg > 0 {
		opts = append(opts, grpc.MaxRecvMsgSize(s.maxRecvMsg))
	}
	srv := grpc.NewServer(opts...)
	srv.RegisterService(&OwnerServiceDesc, s)

	hs := health.NewServer()
	hs.SetServingStatus(OwnerServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)

	return srv, hs
}

func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.serve(ctx, listen)
}

func (s *GRPCServer) serve(ctx context.Context, listen net.Listener) error {
	srv, hs := s.newServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		hs.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", listen.Addr().String())

	return srv.Serve(listen)
}
