package server

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	DirectoryServiceName      = "receipts.v1.ReceiptDirectory"
	ListFoldersMethod         = "/receipts.v1.ReceiptDirectory/ListFolders"
	DownloadReceiptMethod     = "/receipts.v1.ReceiptDirectory/DownloadReceipt"
	DownloadArchiveMethod     = "/receipts.v1.ReceiptDirectory/DownloadArchive"
	downloadArchiveStreamName = "DownloadArchive"
)

// DirectoryServer is the server API of the receipt directory service. Messages are
// google.protobuf.Struct values.
type DirectoryServer interface {
	ListFolders(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DownloadReceipt(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DownloadArchive(*structpb.Struct, grpc.ServerStreamingServer[structpb.Struct]) error
}

func RegisterDirectoryServer(s grpc.ServiceRegistrar, srv DirectoryServer) {
	s.RegisterService(&DirectoryServiceDesc, srv)
}

func listFoldersHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(DirectoryServer).ListFolders(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ListFoldersMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(DirectoryServer).ListFolders(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func downloadReceiptHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(DirectoryServer).DownloadReceipt(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: DownloadReceiptMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(DirectoryServer).DownloadReceipt(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func downloadArchiveHandler(srv any, stream grpc.ServerStream) error {
	in := new(structpb.Struct)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(DirectoryServer).DownloadArchive(in, &grpc.GenericServerStream[structpb.Struct, structpb.Struct]{ServerStream: stream})
}

// DirectoryServiceDesc describes receipts.v1.ReceiptDirectory for grpc.Server.RegisterService.
var DirectoryServiceDesc = grpc.ServiceDesc{
	ServiceName: DirectoryServiceName,
	HandlerType: (*DirectoryServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListFolders", Handler: listFoldersHandler},
		{MethodName: "DownloadReceipt", Handler: downloadReceiptHandler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: downloadArchiveStreamName, Handler: downloadArchiveHandler, ServerStreams: true},
	},
	Metadata: "receipts/v1/directory.proto",
}

// DirectoryClient calls the receipt directory service.
type DirectoryClient struct {
	cc grpc.ClientConnInterface
}

func NewDirectoryClient(cc grpc.ClientConnInterface) *DirectoryClient {
	return &DirectoryClient{cc: cc}
}

func (c *DirectoryClient) ListFolders(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, ListFoldersMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *DirectoryClient) DownloadReceipt(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, DownloadReceiptMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// DownloadArchive opens the progress stream. Read it with Recv until io.EOF.
func (c *DirectoryClient) DownloadArchive(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (grpc.ServerStreamingClient[structpb.Struct], error) {
	stream, err := c.cc.NewStream(ctx, &DirectoryServiceDesc.Streams[0], DownloadArchiveMethod, opts...)
	if err != nil {
		return nil, err
	}
	x := &grpc.GenericClientStream[structpb.Struct, structpb.Struct]{ClientStream: stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}
