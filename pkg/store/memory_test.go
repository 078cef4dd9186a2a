package store

import (
	"context"
	"testing"
)

func TestMemorySessions(t *testing.T) {
	testSessions(t, context.Background(), NewMemory())
}

func TestMemoryAccounts(t *testing.T) {
	testAccounts(t, context.Background(), NewMemory())
}
