// Package models defines server-side data models persisted in the database.
package models

import "time"

// NodeType distinguishes folders from file placeholders.
type NodeType string

const (
	NodeTypeFolder NodeType = "FOLDER"
	NodeTypeFile   NodeType = "FILE"
)

// Valid reports whether t is a known node type.
func (t NodeType) Valid() bool {
	return t == NodeTypeFolder || t == NodeTypeFile
}

// RootName is the name given to every owner's root folder.
const RootName = "root"

// Node is an entry in an owner's namespace tree. Files carry no content
// here; their content lives in FileVersion rows.
type Node struct {
	ID      int64
	OwnerID int64
	Type    NodeType
	// ParentID is nil only for the root.
	ParentID *int64
	Name     string
	IsRoot   bool

	CreatedAt time.Time
	UpdatedAt time.Time
	// DeletedAt marks a soft-deleted node.
	DeletedAt *time.Time

	// RowVersion increases by one on every mutation and backs optimistic
	// concurrency for rename and move.
	RowVersion int64
}

func (n *Node) IsFolder() bool { return n.Type == NodeTypeFolder }

func (n *Node) IsDeleted() bool { return n.DeletedAt != nil }
