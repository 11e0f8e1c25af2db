package grpc

import (
	"context"

	"google.golang.org/grpc"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "clouddrive.v1.Drive"

// PingMethod is the only method callable without an access token.
const PingMethod = "/" + ServiceName + "/Ping"

// DriveServer is the set of RPCs served under ServiceName.
type DriveServer interface {
	GetRoot(context.Context, *GetRootRequest) (*NodeResponse, error)
	GetNode(context.Context, *GetNodeRequest) (*NodeResponse, error)
	CreateFolder(context.Context, *CreateNodeRequest) (*NodeResponse, error)
	CreateFile(context.Context, *CreateNodeRequest) (*NodeResponse, error)
	ListChildren(context.Context, *ListChildrenRequest) (*ListChildrenResponse, error)
	RenameNode(context.Context, *RenameNodeRequest) (*NodeResponse, error)
	MoveNode(context.Context, *MoveNodeRequest) (*NodeResponse, error)
	DeleteNode(context.Context, *DeleteNodeRequest) (*DeleteNodeResponse, error)

	InitiateUpload(context.Context, *InitiateUploadRequest) (*UploadSessionMessage, error)
	GetUploadSession(context.Context, *GetUploadSessionRequest) (*UploadSessionMessage, error)
	GetPartURL(context.Context, *GetPartURLRequest) (*PartURLResponse, error)
	CompleteUpload(context.Context, *CompleteUploadRequest) (*CompleteUploadResponse, error)
	AbortUpload(context.Context, *AbortUploadRequest) (*AbortUploadResponse, error)

	ListVersions(context.Context, *FileRequest) (*ListVersionsResponse, error)
	DownloadLatest(context.Context, *FileRequest) (*DownloadResponse, error)
	DownloadVersion(context.Context, *DownloadVersionRequest) (*DownloadResponse, error)

	Ping(context.Context, *PingRequest) (*PingResponse, error)
}

// unaryHandler adapts a typed DriveServer method to grpc.MethodHandler.
func unaryHandler[Req, Resp any](method string, call func(DriveServer, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	fullMethod := "/" + ServiceName + "/" + method
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		s := srv.(DriveServer)
		if interceptor == nil {
			return call(s, ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(s, ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func method[Req, Resp any](name string, call func(DriveServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{MethodName: name, Handler: unaryHandler(name, call)}
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*DriveServer)(nil),
	Methods: []grpc.MethodDesc{
		method("GetRoot", DriveServer.GetRoot),
		method("GetNode", DriveServer.GetNode),
		method("CreateFolder", DriveServer.CreateFolder),
		method("CreateFile", DriveServer.CreateFile),
		method("ListChildren", DriveServer.ListChildren),
		method("RenameNode", DriveServer.RenameNode),
		method("MoveNode", DriveServer.MoveNode),
		method("DeleteNode", DriveServer.DeleteNode),
		method("InitiateUpload", DriveServer.InitiateUpload),
		method("GetUploadSession", DriveServer.GetUploadSession),
		method("GetPartURL", DriveServer.GetPartURL),
		method("CompleteUpload", DriveServer.CompleteUpload),
		method("AbortUpload", DriveServer.AbortUpload),
		method("ListVersions", DriveServer.ListVersions),
		method("DownloadLatest", DriveServer.DownloadLatest),
		method("DownloadVersion", DriveServer.DownloadVersion),
		method("Ping", DriveServer.Ping),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "clouddrive/v1/drive",
}

// RegisterDriveServer registers srv on s under ServiceName.
func RegisterDriveServer(s grpc.ServiceRegistrar, srv DriveServer) {
	s.RegisterService(&serviceDesc, srv)
}
