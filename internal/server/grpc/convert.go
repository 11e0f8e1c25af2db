package grpc

import (
	"fmt"
	"strconv"
	"time"

	"github.com/dmitrijs2005/clouddrive/internal/common"
	"github.com/dmitrijs2005/clouddrive/internal/server/models"
)

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func parseID(field, v string) (int64, error) {
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s must be a positive decimal id", common.ErrInvalidArgument, field)
	}
	return id, nil
}

func parseOptionalVersion(v *string) (*int64, error) {
	if v == nil {
		return nil, nil
	}
	n, err := strconv.ParseInt(*v, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: expectedRowVersion must be a decimal integer", common.ErrInvalidArgument)
	}
	return &n, nil
}

func toNodeMessage(n *models.Node) NodeMessage {
	m := NodeMessage{
		ID:         formatID(n.ID),
		OwnerID:    formatID(n.OwnerID),
		Type:       string(n.Type),
		Name:       n.Name,
		IsRoot:     n.IsRoot,
		CreatedAt:  formatTime(n.CreatedAt),
		UpdatedAt:  formatTime(n.UpdatedAt),
		RowVersion: formatID(n.RowVersion),
	}
	if n.ParentID != nil {
		p := formatID(*n.ParentID)
		m.ParentID = &p
	}
	if n.DeletedAt != nil {
		d := formatTime(*n.DeletedAt)
		m.DeletedAt = &d
	}
	return m
}

func toNodeMessages(nodes []*models.Node) []NodeMessage {
	out := make([]NodeMessage, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, toNodeMessage(n))
	}
	return out
}

func toSessionMessage(s *models.UploadSession) *UploadSessionMessage {
	return &UploadSessionMessage{
		SessionID:  formatID(s.ID),
		FileNodeID: formatID(s.FileNodeID),
		VersionNo:  s.VersionNo,
		Status:     string(s.Status),
		PartSize:   formatID(s.PartSize),
		TotalSize:  formatID(s.TotalSize),
		TotalParts: s.TotalParts(),
		MimeType:   s.MimeType,
		ExpiresAt:  formatTime(s.ExpiresAt),
	}
}

func toVersionMessage(v *models.FileVersion) FileVersionMessage {
	return FileVersionMessage{
		FileNodeID: formatID(v.FileNodeID),
		VersionNo:  v.VersionNo,
		SizeBytes:  formatID(v.SizeBytes),
		MimeType:   v.MimeType,
		CreatedAt:  formatTime(v.CreatedAt),
	}
}
