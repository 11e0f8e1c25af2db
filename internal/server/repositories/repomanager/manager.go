package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/clouddrive/internal/dbx"
	"github.com/dmitrijs2005/clouddrive/internal/server/repositories/fileversions"
	"github.com/dmitrijs2005/clouddrive/internal/server/repositories/nodes"
	"github.com/dmitrijs2005/clouddrive/internal/server/repositories/uploadsessions"
)

// RepositoryManager vends repositories bound to either the pool or a
// transaction, so services can compose them inside dbx.WithTx.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Nodes(db dbx.DBTX) nodes.Repository
	UploadSessions(db dbx.DBTX) uploadsessions.Repository
	FileVersions(db dbx.DBTX) fileversions.Repository
}
