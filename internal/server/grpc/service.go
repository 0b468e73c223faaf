package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// OwnerServiceName is the fully qualified gRPC service name.
const OwnerServiceName = "securelink.v1.OwnerService"

const (
	UploadMethod    = "/" + OwnerServiceName + "/Upload"
	ListFilesMethod = "/" + OwnerServiceName + "/ListFiles"
	ShareMethod     = "/" + OwnerServiceName + "/Share"
)

// OwnerServiceServer is the owner API. Messages are protobuf well-known
// types so no generated code is needed.
type OwnerServiceServer interface {
	// Upload stores the bytes under the filename carried in metadata.
	Upload(context.Context, *wrapperspb.BytesValue) (*structpb.Struct, error)
	ListFiles(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	// Share takes a file id and returns the link.
	Share(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
}

func uploadHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(OwnerServiceServer).Upload(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: UploadMethod}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(OwnerServiceServer).Upload(ctx, req.(*wrapperspb.BytesValue))
	})
}

func listFilesHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(OwnerServiceServer).ListFiles(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ListFilesMethod}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(OwnerServiceServer).ListFiles(ctx, req.(*emptypb.Empty))
	})
}

func shareHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(OwnerServiceServer).Share(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ShareMethod}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(OwnerServiceServer).Share(ctx, req.(*wrapperspb.StringValue))
	})
}

var OwnerServiceDesc = grpc.ServiceDesc{
	ServiceName: OwnerServiceName,
	HandlerType: (*OwnerServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Upload", Handler: uploadHandler},
		{MethodName: "ListFiles", Handler: listFilesHandler},
		{MethodName: "Share", Handler: shareHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "securelink/v1/owner.proto",
}
