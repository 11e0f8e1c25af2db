// Package grpc exposes the drive services over gRPC with a JSON codec.
package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/clouddrive/internal/logging"
	"github.com/dmitrijs2005/clouddrive/internal/server/models"
	"github.com/dmitrijs2005/clouddrive/internal/server/services"
	"github.com/go-playground/validator/v10"
	"google.golang.org/grpc"
)

// NodeService is the namespace tree as used by the transport.
type NodeService interface {
	GetOrCreateRoot(ctx context.Context, ownerID int64) (*models.Node, error)
	GetNode(ctx context.Context, ownerID, id int64) (*models.Node, error)
	CreateChild(ctx context.Context, ownerID, parentID int64, name string, nodeType models.NodeType) (*models.Node, error)
	ListChildren(ctx context.Context, ownerID, folderID int64, limit int, cursor string) (*services.ChildrenPage, error)
	Rename(ctx context.Context, ownerID, id int64, newName string, expectedRowVersion *int64) (*models.Node, error)
	Move(ctx context.Context, ownerID, id, newParentID int64, expectedRowVersion *int64) (*models.Node, error)
	SoftDelete(ctx context.Context, ownerID, id int64, cascade bool) ([]*models.Node, error)
}

// UploadService is the upload session orchestrator as used by the transport.
type UploadService interface {
	Initiate(ctx context.Context, ownerID, fileNodeID, totalSize int64, mimeType string) (*models.UploadSession, error)
	GetSession(ctx context.Context, ownerID, sessionID int64) (*models.UploadSession, error)
	GetPartURL(ctx context.Context, ownerID, sessionID int64, partNumber int32) (*services.PartURL, error)
	Complete(ctx context.Context, ownerID, sessionID int64, parts []models.CompletedPart) (*services.CompleteResult, error)
	Abort(ctx context.Context, ownerID, sessionID int64) (*services.AbortResult, error)
}

// FileService reads completed versions.
type FileService interface {
	ListVersions(ctx context.Context, ownerID, fileNodeID int64) ([]*models.FileVersion, error)
	DownloadLatest(ctx context.Context, ownerID, fileNodeID int64) (*services.Download, error)
	DownloadVersion(ctx context.Context, ownerID, fileNodeID int64, versionNo int32) (*services.Download, error)
}

type GRPCServer struct {
	address   string
	nodes     NodeService
	uploads   UploadService
	files     FileService
	logger    logging.Logger
	jwtSecret []byte
	validate  *validator.Validate
}

func NewGRPCServer(a string, l logging.Logger, secretKey string, ns NodeService, us UploadService, fs FileService) *GRPCServer {
	return &GRPCServer{
		address:   a,
		logger:    l.With("module", "grpc_server"),
		nodes:     ns,
		uploads:   us,
		files:     fs,
		jwtSecret: []byte(secretKey),
		validate:  validator.New(),
	}
}

// newServer builds the grpc.Server with interceptors and the Drive service.
func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.requestIDInterceptor, s.accessTokenInterceptor))
	RegisterDriveServer(srv, s)
	return srv
}

func (s *GRPCServer) Run(ctx context.Context) error {
	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is cancelled, then stops
// gracefully.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := s.newServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	// starts accepting incoming connections
	if err := srv.Serve(lis); err != nil {
		return err
	}

	return nil
}
