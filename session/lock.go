package session

import (
	"context"

	"github.com/goreliks/pdf-hunter-go/registry"
)

// NewEtcdLock guards begin_session idempotence (P10) across multiple
// orchestrator instances sharing one output_directory: two instances
// racing to start a run with the same explicit session_id must not create
// the directory tree concurrently or double-register the run. It is a
// thin wrapper over registry.Client.AcquireSessionLock and is entirely
// optional — a single-process deployment never needs it.
func NewEtcdLock(ctx context.Context, client *registry.Client, sessionID string) (*registry.SessionLock, error) {
	return client.AcquireSessionLock(ctx, sessionID)
}
