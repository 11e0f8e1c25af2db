package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/dmitrijs2005/clouddrive/internal/common"
	"github.com/dmitrijs2005/clouddrive/internal/dbx"
	"github.com/dmitrijs2005/clouddrive/internal/logging"
	"github.com/dmitrijs2005/clouddrive/internal/server/models"
	"github.com/dmitrijs2005/clouddrive/internal/server/repositories/nodes"
	"github.com/dmitrijs2005/clouddrive/internal/server/repositories/repomanager"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 200
	MaxNameLength   = 255
)

// ChildrenPage is one page of a folder listing. NextCursor is empty on the
// last page.
type ChildrenPage struct {
	Items      []*models.Node
	NextCursor string
}

// NodeService owns the per-owner namespace tree.
type NodeService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	log         logging.Logger
}

func NewNodeService(db *sql.DB, m repomanager.RepositoryManager, log logging.Logger) *NodeService {
	return &NodeService{
		db:          db,
		repomanager: m,
		log:         log.With("module", "nodes"),
	}
}

func validateOwner(ownerID int64) error {
	if ownerID <= 0 {
		return fmt.Errorf("%w: owner id must be positive", common.ErrInvalidArgument)
	}
	return nil
}

func validateID(field string, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: %s must be a positive id", common.ErrInvalidArgument, field)
	}
	return nil
}

func validateName(name string) error {
	n := utf8.RuneCountInString(name)
	if n < 1 || n > MaxNameLength {
		return fmt.Errorf("%w: name must be 1..%d characters", common.ErrInvalidArgument, MaxNameLength)
	}
	return nil
}

// notFound rewrites a repository miss into a descriptive NotFound error.
func notFound(err error, what string) error {
	if errors.Is(err, common.ErrNotFound) {
		return fmt.Errorf("%w: %s", common.ErrNotFound, what)
	}
	return err
}

// GetOrCreateRoot returns the owner's root folder, creating it on first use.
// Concurrent first calls converge on a single root.
func (s *NodeService) GetOrCreateRoot(ctx context.Context, ownerID int64) (*models.Node, error) {
	if err := validateOwner(ownerID); err != nil {
		return nil, err
	}
	repo := s.repomanager.Nodes(s.db)

	root, err := repo.GetRoot(ctx, ownerID)
	if err == nil {
		return root, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}

	root, err = repo.InsertRoot(ctx, ownerID)
	if errors.Is(err, common.ErrAlreadyExists) {
		s.log.Debug(ctx, "root created concurrently", "owner_id", ownerID)
		return repo.GetRoot(ctx, ownerID)
	}
	if err != nil {
		return nil, err
	}
	s.log.Info(ctx, "root created", "owner_id", ownerID, "node_id", root.ID)
	return root, nil
}

func (s *NodeService) GetNode(ctx context.Context, ownerID, id int64) (*models.Node, error) {
	if err := validateOwner(ownerID); err != nil {
		return nil, err
	}
	if err := validateID("id", id); err != nil {
		return nil, err
	}
	n, err := s.repomanager.Nodes(s.db).GetLive(ctx, ownerID, id)
	if err != nil {
		return nil, notFound(err, "node not found")
	}
	return n, nil
}

// liveFolder loads a live node and requires it to be a folder.
func liveFolder(ctx context.Context, repo nodes.Repository, ownerID, id int64, what string) (*models.Node, error) {
	n, err := repo.GetLive(ctx, ownerID, id)
	if err != nil {
		return nil, notFound(err, what+" not found")
	}
	if !n.IsFolder() {
		return nil, fmt.Errorf("%w: %s is not a folder", common.ErrInvalidArgument, what)
	}
	return n, nil
}

// CreateChild adds a folder or file placeholder under parentID.
func (s *NodeService) CreateChild(ctx context.Context, ownerID, parentID int64, name string, nodeType models.NodeType) (*models.Node, error) {
	if err := validateOwner(ownerID); err != nil {
		return nil, err
	}
	if parentID == 0 {
		return nil, fmt.Errorf("%w: parentId is required", common.ErrInvalidArgument)
	}
	if err := validateID("parentId", parentID); err != nil {
		return nil, err
	}
	if err := validateName(name); err != nil {
		return nil, err
	}
	if !nodeType.Valid() {
		return nil, fmt.Errorf("%w: unknown node type %q", common.ErrInvalidArgument, nodeType)
	}

	var created *models.Node
	err := inSerializableTx(ctx, s.db, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Nodes(tx)
		if _, err := liveFolder(ctx, repo, ownerID, parentID, "parent"); err != nil {
			return err
		}
		n, err := repo.Insert(ctx, ownerID, parentID, name, nodeType)
		if err != nil {
			if errors.Is(err, common.ErrAlreadyExists) {
				return fmt.Errorf("%w: name %q is already taken in this folder", common.ErrConflict, name)
			}
			return err
		}
		created = n
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// ListChildren pages through live children of folderID ordered by
// (createdAt, id). limit 0 selects DefaultPageSize.
func (s *NodeService) ListChildren(ctx context.Context, ownerID, folderID int64, limit int, cursor string) (*ChildrenPage, error) {
	if err := validateOwner(ownerID); err != nil {
		return nil, err
	}
	if err := validateID("folderId", folderID); err != nil {
		return nil, err
	}
	if limit == 0 {
		limit = DefaultPageSize
	}
	if limit < 1 || limit > MaxPageSize {
		return nil, fmt.Errorf("%w: limit must be between 1 and %d", common.ErrInvalidArgument, MaxPageSize)
	}
	after, err := DecodeCursor(cursor)
	if err != nil {
		return nil, err
	}

	repo := s.repomanager.Nodes(s.db)
	if _, err := liveFolder(ctx, repo, ownerID, folderID, "folder"); err != nil {
		return nil, err
	}

	rows, err := repo.ListChildren(ctx, ownerID, folderID, after, limit+1)
	if err != nil {
		return nil, err
	}

	page := &ChildrenPage{Items: rows}
	if len(rows) > limit {
		page.Items = rows[:limit]
		last := page.Items[limit-1]
		page.NextCursor = EncodeCursor(nodes.Position{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	if page.Items == nil {
		page.Items = []*models.Node{}
	}
	return page, nil
}

func versionError(err error, name string) error {
	switch {
	case errors.Is(err, common.ErrVersionConflict):
		return fmt.Errorf("%w: node was modified concurrently (row version mismatch)", common.ErrConflict)
	case errors.Is(err, common.ErrAlreadyExists):
		return fmt.Errorf("%w: name %q is already taken in the destination folder", common.ErrConflict, name)
	default:
		return notFound(err, "node not found")
	}
}

// Rename changes a node's name. Renaming to the current name returns the
// node unchanged.
func (s *NodeService) Rename(ctx context.Context, ownerID, id int64, newName string, expectedRowVersion *int64) (*models.Node, error) {
	if err := validateOwner(ownerID); err != nil {
		return nil, err
	}
	if err := validateID("id", id); err != nil {
		return nil, err
	}
	if err := validateName(newName); err != nil {
		return nil, err
	}

	repo := s.repomanager.Nodes(s.db)
	n, err := repo.GetLive(ctx, ownerID, id)
	if err != nil {
		return nil, notFound(err, "node not found")
	}
	if n.IsRoot {
		return nil, fmt.Errorf("%w: root cannot be renamed", common.ErrInvalidArgument)
	}
	if n.Name == newName {
		return n, nil
	}

	renamed, err := repo.Rename(ctx, ownerID, id, newName, expectedRowVersion)
	if err != nil {
		return nil, versionError(err, newName)
	}
	return renamed, nil
}

// Move reparents a node under newParentID, rejecting moves that would
// place a folder inside its own subtree.
func (s *NodeService) Move(ctx context.Context, ownerID, id, newParentID int64, expectedRowVersion *int64) (*models.Node, error) {
	if err := validateOwner(ownerID); err != nil {
		return nil, err
	}
	if err := validateID("id", id); err != nil {
		return nil, err
	}
	if err := validateID("newParentId", newParentID); err != nil {
		return nil, err
	}
	if id == newParentID {
		return nil, fmt.Errorf("%w: a node cannot be moved into itself", common.ErrInvalidArgument)
	}

	var moved *models.Node
	err := inSerializableTx(ctx, s.db, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Nodes(tx)

		n, err := repo.GetLive(ctx, ownerID, id)
		if err != nil {
			return notFound(err, "node not found")
		}
		if n.IsRoot {
			return fmt.Errorf("%w: root cannot be moved", common.ErrInvalidArgument)
		}
		if _, err := liveFolder(ctx, repo, ownerID, newParentID, "destination"); err != nil {
			return err
		}
		if n.IsFolder() {
			inside, err := repo.IsDescendant(ctx, ownerID, n.ID, newParentID)
			if err != nil {
				return err
			}
			if inside {
				return fmt.Errorf("%w: cycle: destination is inside the moved folder", common.ErrInvalidArgument)
			}
		}

		moved, err = repo.Move(ctx, ownerID, id, newParentID, expectedRowVersion)
		if err != nil {
			return versionError(err, n.Name)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return moved, nil
}

// SoftDelete marks a node deleted. With cascade, a folder's whole live
// subtree is marked with the same timestamp. Returns every marked node.
func (s *NodeService) SoftDelete(ctx context.Context, ownerID, id int64, cascade bool) ([]*models.Node, error) {
	if err := validateOwner(ownerID); err != nil {
		return nil, err
	}
	if err := validateID("id", id); err != nil {
		return nil, err
	}

	var deleted []*models.Node
	err := inSerializableTx(ctx, s.db, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Nodes(tx)

		n, err := repo.GetLive(ctx, ownerID, id)
		if err != nil {
			return notFound(err, "node not found")
		}
		if n.IsRoot {
			return fmt.Errorf("%w: root cannot be deleted", common.ErrInvalidArgument)
		}

		at := now()
		if !cascade || !n.IsFolder() {
			d, err := repo.SoftDelete(ctx, ownerID, id, at)
			if err != nil {
				return notFound(err, "node not found")
			}
			deleted = []*models.Node{d}
			return nil
		}

		deleted, err = repo.SoftDeleteSubtree(ctx, ownerID, id, at)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.log.Info(ctx, "nodes deleted", "owner_id", ownerID, "node_id", id, "count", len(deleted))
	return deleted, nil
}

// AssertFileNode returns the node when it is a live FILE of ownerID.
func (s *NodeService) AssertFileNode(ctx context.Context, ownerID, id int64) (*models.Node, error) {
	return assertFileNode(ctx, s.repomanager.Nodes(s.db), ownerID, id)
}

func assertFileNode(ctx context.Context, repo nodes.Repository, ownerID, id int64) (*models.Node, error) {
	if err := validateOwner(ownerID); err != nil {
		return nil, err
	}
	if err := validateID("fileNodeId", id); err != nil {
		return nil, err
	}
	n, err := repo.GetLive(ctx, ownerID, id)
	if err != nil {
		return nil, notFound(err, "file not found")
	}
	if n.Type != models.NodeTypeFile {
		return nil, fmt.Errorf("%w: node is not a file", common.ErrInvalidArgument)
	}
	return n, nil
}
