package shared

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActorFromContext(t *testing.T) {
	assert.Equal(t, SystemActor, ActorFromContext(context.Background()))
	assert.Equal(t, SystemActor, ActorFromContext(ContextWithActor(context.Background(), "   ")))
	assert.Equal(t, "ravi", ActorFromContext(ContextWithActor(context.Background(), " ravi ")))
}

func TestAuditLogCheck(t *testing.T) {
	require.NoError(t, AuditLog{Action: "LPO_CREATE", Entity: "purchasing", EntityID: "1"}.Check())
	require.ErrorIs(t, AuditLog{Action: "LPO_CREATE", Entity: "purchasing"}.Check(), ErrInvalidAuditLog)
}

func TestAuditLoggerRequiresPool(t *testing.T) {
	var logger *AuditLogger
	require.Error(t, logger.Record(context.Background(), AuditLog{}))
	require.Error(t, NewAuditLogger(nil).Record(context.Background(), AuditLog{Action: "A", Entity: "B", EntityID: "1"}))
}

func TestIdempotencyStoreNilSafe(t *testing.T) {
	var store *IdempotencyStore
	require.Error(t, store.CheckAndInsert(context.Background(), "k", "purchasing"))
	require.NoError(t, store.Cleanup(context.Background(), 0))
	require.NoError(t, store.Delete(context.Background(), "k"))
}
