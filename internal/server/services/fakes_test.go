package services

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/clouddrive/internal/common"
	"github.com/dmitrijs2005/clouddrive/internal/dbx"
	"github.com/dmitrijs2005/clouddrive/internal/logging"
	"github.com/dmitrijs2005/clouddrive/internal/server/config"
	"github.com/dmitrijs2005/clouddrive/internal/server/models"
	"github.com/dmitrijs2005/clouddrive/internal/server/repositories/fileversions"
	"github.com/dmitrijs2005/clouddrive/internal/server/repositories/nodes"
	"github.com/dmitrijs2005/clouddrive/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/clouddrive/internal/server/repositories/uploadsessions"
)

var baseTime = time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)

// -------- in-memory nodes --------

type memNodes struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]*models.Node

	// missFirstGetRoot makes the first GetRoot report NotFound, simulating
	// a caller that lost the race to create the root.
	missFirstGetRoot bool
}

func newMemNodes() *memNodes {
	return &memNodes{byID: map[int64]*models.Node{}}
}

func clone(n *models.Node) *models.Node {
	c := *n
	return &c
}

func (m *memNodes) insertLocked(ownerID int64, parentID *int64, name string, t models.NodeType, root bool) *models.Node {
	m.nextID++
	created := baseTime.Add(time.Duration(m.nextID) * time.Second)
	n := &models.Node{
		ID: m.nextID, OwnerID: ownerID, Type: t, ParentID: parentID, Name: name, IsRoot: root,
		CreatedAt: created, UpdatedAt: created, RowVersion: 1,
	}
	m.byID[n.ID] = n
	return n
}

// add seeds a node without any checks.
func (m *memNodes) add(ownerID int64, parentID int64, name string, t models.NodeType) *models.Node {
	m.mu.Lock()
	defer m.mu.Unlock()
	var p *int64
	if parentID != 0 {
		p = &parentID
	}
	return clone(m.insertLocked(ownerID, p, name, t, parentID == 0))
}

func (m *memNodes) raw(id int64) *models.Node {
	m.mu.Lock()
	defer m.mu.Unlock()
	return clone(m.byID[id])
}

func (m *memNodes) liveLocked(ownerID, id int64) *models.Node {
	n, ok := m.byID[id]
	if !ok || n.OwnerID != ownerID || n.DeletedAt != nil {
		return nil
	}
	return n
}

func (m *memNodes) siblingTakenLocked(ownerID, parentID int64, name string, except int64) bool {
	for _, n := range m.byID {
		if n.ID != except && n.OwnerID == ownerID && n.DeletedAt == nil && n.ParentID != nil && *n.ParentID == parentID && n.Name == name {
			return true
		}
	}
	return false
}

func (m *memNodes) GetLive(ctx context.Context, ownerID, id int64) (*models.Node, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n := m.liveLocked(ownerID, id); n != nil {
		return clone(n), nil
	}
	return nil, common.ErrNotFound
}

func (m *memNodes) GetRoot(ctx context.Context, ownerID int64) (*models.Node, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.missFirstGetRoot {
		m.missFirstGetRoot = false
		return nil, common.ErrNotFound
	}
	for _, n := range m.byID {
		if n.OwnerID == ownerID && n.IsRoot && n.DeletedAt == nil {
			return clone(n), nil
		}
	}
	return nil, common.ErrNotFound
}

func (m *memNodes) InsertRoot(ctx context.Context, ownerID int64) (*models.Node, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.byID {
		if n.OwnerID == ownerID && n.IsRoot && n.DeletedAt == nil {
			return nil, common.ErrAlreadyExists
		}
	}
	return clone(m.insertLocked(ownerID, nil, models.RootName, models.NodeTypeFolder, true)), nil
}

func (m *memNodes) Insert(ctx context.Context, ownerID, parentID int64, name string, t models.NodeType) (*models.Node, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.siblingTakenLocked(ownerID, parentID, name, 0) {
		return nil, common.ErrAlreadyExists
	}
	p := parentID
	return clone(m.insertLocked(ownerID, &p, name, t, false)), nil
}

func (m *memNodes) ListChildren(ctx context.Context, ownerID, parentID int64, after *nodes.Position, limit int) ([]*models.Node, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []*models.Node
	for _, n := range m.byID {
		if n.OwnerID == ownerID && n.DeletedAt == nil && n.ParentID != nil && *n.ParentID == parentID {
			all = append(all, n)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.Before(all[j].CreatedAt)
		}
		return all[i].ID < all[j].ID
	})
	var out []*models.Node
	for _, n := range all {
		if after != nil && (n.CreatedAt.Before(after.CreatedAt) || (n.CreatedAt.Equal(after.CreatedAt) && n.ID <= after.ID)) {
			continue
		}
		if len(out) == limit {
			break
		}
		out = append(out, clone(n))
	}
	return out, nil
}

// guardedLocked mirrors the conditional UPDATE: nothing matched is a version
// conflict when a version was expected and NotFound otherwise.
func (m *memNodes) guardedLocked(ownerID, id int64, expected *int64) (*models.Node, error) {
	n := m.liveLocked(ownerID, id)
	if n == nil || n.IsRoot || (expected != nil && n.RowVersion != *expected) {
		if expected != nil {
			return nil, common.ErrVersionConflict
		}
		return nil, common.ErrNotFound
	}
	return n, nil
}

func (m *memNodes) Rename(ctx context.Context, ownerID, id int64, name string, expected *int64) (*models.Node, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, err := m.guardedLocked(ownerID, id, expected)
	if err != nil {
		return nil, err
	}
	if m.siblingTakenLocked(ownerID, *n.ParentID, name, n.ID) {
		return nil, common.ErrAlreadyExists
	}
	n.Name = name
	n.RowVersion++
	return clone(n), nil
}

func (m *memNodes) Move(ctx context.Context, ownerID, id, newParentID int64, expected *int64) (*models.Node, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, err := m.guardedLocked(ownerID, id, expected)
	if err != nil {
		return nil, err
	}
	if m.siblingTakenLocked(ownerID, newParentID, n.Name, n.ID) {
		return nil, common.ErrAlreadyExists
	}
	p := newParentID
	n.ParentID = &p
	n.RowVersion++
	return clone(n), nil
}

func (m *memNodes) subtreeLocked(ownerID, id int64) []*models.Node {
	start := m.liveLocked(ownerID, id)
	if start == nil {
		return nil
	}
	out := []*models.Node{start}
	for i := 0; i < len(out); i++ {
		for _, n := range m.byID {
			if n.OwnerID == ownerID && n.DeletedAt == nil && n.ParentID != nil && *n.ParentID == out[i].ID {
				out = append(out, n)
			}
		}
	}
	return out
}

func (m *memNodes) IsDescendant(ctx context.Context, ownerID, ancestorID, candidateID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.subtreeLocked(ownerID, ancestorID) {
		if n.ID == candidateID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memNodes) SoftDelete(ctx context.Context, ownerID, id int64, at time.Time) (*models.Node, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := m.liveLocked(ownerID, id)
	if n == nil || n.IsRoot {
		return nil, common.ErrNotFound
	}
	t := at
	n.DeletedAt = &t
	n.RowVersion++
	return clone(n), nil
}

func (m *memNodes) SoftDeleteSubtree(ctx context.Context, ownerID, id int64, at time.Time) ([]*models.Node, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Node
	for _, n := range m.subtreeLocked(ownerID, id) {
		if n.IsRoot {
			continue
		}
		t := at
		n.DeletedAt = &t
		n.RowVersion++
		out = append(out, clone(n))
	}
	return out, nil
}

// -------- in-memory upload sessions and versions --------

type memVersions struct {
	mu     sync.Mutex
	nextID int64
	rows   []*models.FileVersion
}

func (m *memVersions) maxVersion(ownerID, fileNodeID int64) int32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	var highest int32
	for _, v := range m.rows {
		if v.OwnerID == ownerID && v.FileNodeID == fileNodeID && v.VersionNo > highest {
			highest = v.VersionNo
		}
	}
	return highest
}

func (m *memVersions) Create(ctx context.Context, v *models.FileVersion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.OwnerID == v.OwnerID && r.FileNodeID == v.FileNodeID && r.VersionNo == v.VersionNo {
			return common.ErrAlreadyExists
		}
	}
	m.nextID++
	v.ID = m.nextID
	v.CreatedAt = baseTime
	c := *v
	m.rows = append(m.rows, &c)
	return nil
}

func (m *memVersions) Get(ctx context.Context, ownerID, fileNodeID int64, versionNo int32) (*models.FileVersion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.OwnerID == ownerID && r.FileNodeID == fileNodeID && r.VersionNo == versionNo {
			c := *r
			return &c, nil
		}
	}
	return nil, common.ErrNotFound
}

func (m *memVersions) Latest(ctx context.Context, ownerID, fileNodeID int64) (*models.FileVersion, error) {
	list, _ := m.List(ctx, ownerID, fileNodeID)
	if len(list) == 0 {
		return nil, common.ErrNotFound
	}
	return list[0], nil
}

func (m *memVersions) List(ctx context.Context, ownerID, fileNodeID int64) ([]*models.FileVersion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.FileVersion
	for _, r := range m.rows {
		if r.OwnerID == ownerID && r.FileNodeID == fileNodeID {
			c := *r
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VersionNo > out[j].VersionNo })
	return out, nil
}

type memSessions struct {
	mu       sync.Mutex
	nextID   int64
	byID     map[int64]*models.UploadSession
	versions *memVersions

	createErr error
}

func (m *memSessions) NextVersionNo(ctx context.Context, ownerID, fileNodeID int64) (int32, error) {
	highest := m.versions.maxVersion(ownerID, fileNodeID)
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.byID {
		if s.OwnerID == ownerID && s.FileNodeID == fileNodeID && s.VersionNo > highest {
			highest = s.VersionNo
		}
	}
	return highest + 1, nil
}

func (m *memSessions) Create(ctx context.Context, s *models.UploadSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	for _, r := range m.byID {
		if r.OwnerID == s.OwnerID && r.FileNodeID == s.FileNodeID && r.VersionNo == s.VersionNo {
			return common.ErrAlreadyExists
		}
	}
	m.nextID++
	s.ID = m.nextID
	s.CreatedAt = timeNow().UTC()
	s.UpdatedAt = s.CreatedAt
	c := *s
	m.byID[s.ID] = &c
	return nil
}

func (m *memSessions) Get(ctx context.Context, ownerID, id int64) (*models.UploadSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byID[id]
	if !ok || s.OwnerID != ownerID {
		return nil, common.ErrNotFound
	}
	c := *s
	return &c, nil
}

func (m *memSessions) Transition(ctx context.Context, ownerID, id int64, from, to models.UploadStatus, at time.Time) (*models.UploadSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byID[id]
	if !ok || s.OwnerID != ownerID || s.Status != from {
		return nil, common.ErrVersionConflict
	}
	s.Status = to
	s.UpdatedAt = at
	t := at
	switch to {
	case models.UploadStatusCompleted:
		s.CompletedAt = &t
	case models.UploadStatusAborted:
		s.AbortedAt = &t
	}
	c := *s
	return &c, nil
}

func (m *memSessions) status(id int64) models.UploadStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byID[id].Status
}

// -------- fake object store --------

type fakeStore struct {
	mu        sync.Mutex
	uploads   int
	created   []string
	completed map[string][]models.CompletedPart
	aborted   []string

	createErr   error
	completeErr error
	abortErr    error
	presignErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{completed: map[string][]models.CompletedPart{}}
}

func (f *fakeStore) CreateMultipartUpload(ctx context.Context, bucket, key, mimeType string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return "", f.createErr
	}
	f.uploads++
	f.created = append(f.created, key)
	return fmt.Sprintf("upload-%d", f.uploads), nil
}

func (f *fakeStore) PresignUploadPart(ctx context.Context, bucket, key, uploadID string, partNumber int32) (string, error) {
	if f.presignErr != nil {
		return "", f.presignErr
	}
	return fmt.Sprintf("https://s3.local/%s/%s?uploadId=%s&partNumber=%d", bucket, key, uploadID, partNumber), nil
}

func (f *fakeStore) CompleteMultipartUpload(ctx context.Context, bucket, key, uploadID string, parts []models.CompletedPart) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.completeErr != nil {
		return f.completeErr
	}
	f.completed[uploadID] = parts
	return nil
}

func (f *fakeStore) AbortMultipartUpload(ctx context.Context, bucket, key, uploadID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.abortErr != nil {
		return f.abortErr
	}
	f.aborted = append(f.aborted, uploadID)
	return nil
}

func (f *fakeStore) PresignGetObject(ctx context.Context, bucket, key string) (string, error) {
	if f.presignErr != nil {
		return "", f.presignErr
	}
	return "https://s3.local/" + bucket + "/" + key, nil
}

func (f *fakeStore) PresignExpires() time.Duration { return 15 * time.Minute }

// -------- repo manager + fixture --------

type fakeRepoManager struct {
	repomanager.RepositoryManager
	n *memNodes
	s *memSessions
	v *memVersions
}

func (m *fakeRepoManager) Nodes(db dbx.DBTX) nodes.Repository                   { return m.n }
func (m *fakeRepoManager) UploadSessions(db dbx.DBTX) uploadsessions.Repository { return m.s }
func (m *fakeRepoManager) FileVersions(db dbx.DBTX) fileversions.Repository     { return m.v }

type fixture struct {
	db       *sql.DB
	mock     sqlmock.Sqlmock
	nodes    *memNodes
	sessions *memSessions
	versions *memVersions
	store    *fakeStore
	cfg      *config.Config

	nodeSvc   *NodeService
	uploadSvc *UploadService
	fileSvc   *FileService

	clock time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	versions := &memVersions{}
	fx := &fixture{
		db:       db,
		mock:     mock,
		nodes:    newMemNodes(),
		versions: versions,
		sessions: &memSessions{byID: map[int64]*models.UploadSession{}, versions: versions},
		store:    newFakeStore(),
		cfg:      &config.Config{},
		clock:    baseTime,
	}
	fx.cfg.LoadDefaults()

	m := &fakeRepoManager{n: fx.nodes, s: fx.sessions, v: fx.versions}
	log := logging.Nop()
	fx.nodeSvc = NewNodeService(db, m, log)
	fx.uploadSvc = NewUploadService(db, m, fx.store, fx.cfg, log)
	fx.fileSvc = NewFileService(db, m, fx.store)

	orig := timeNow
	timeNow = func() time.Time { return fx.clock }
	t.Cleanup(func() { timeNow = orig })
	return fx
}

// expectTx registers one transaction; commit selects Commit or Rollback.
func (fx *fixture) expectTx(commit bool) {
	fx.mock.ExpectBegin()
	if commit {
		fx.mock.ExpectCommit()
	} else {
		fx.mock.ExpectRollback()
	}
}

func (fx *fixture) verify(t *testing.T) {
	t.Helper()
	if err := fx.mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sql expectations: %v", err)
	}
}
