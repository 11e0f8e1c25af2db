// Package services contains the server-side business logic: the namespace
// tree, upload session orchestration and access to completed versions.
package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/clouddrive/internal/common"
	"github.com/dmitrijs2005/clouddrive/internal/dbx"
)

// timeNow is a seam for tests.
var timeNow = time.Now

func now() time.Time {
	return timeNow().UTC()
}

// inSerializableTx runs fn in a SERIALIZABLE transaction. A lost
// serialization race is reported as common.ErrConflict; callers retry.
func inSerializableTx(ctx context.Context, db *sql.DB, fn func(ctx context.Context, tx dbx.DBTX) error) error {
	err := dbx.WithTx(ctx, db, dbx.Serializable, fn)
	if err != nil && dbx.IsSerializationFailure(err) {
		return fmt.Errorf("%w: concurrent modification, retry the request", common.ErrConflict)
	}
	return err
}
