package notify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/platform/logger"
)

func TestStreamChannel_DeliverAndClose(t *testing.T) {
	s := NewStreamChannel(logger.NewNop(), 2)
	ctx := context.Background()
	require.NotEmpty(t, s.ID)

	require.NoError(t, s.Deliver(ctx, "a"))
	require.NoError(t, s.Deliver(ctx, "b"))
	// 一杯なら捨てるがエラーにはしない
	require.NoError(t, s.Deliver(ctx, "c"))

	assert.Equal(t, "a", <-s.Outbound())
	assert.Equal(t, "b", <-s.Outbound())

	s.Close()
	s.Close()
	assert.True(t, s.Closed())
	assert.ErrorIs(t, s.Deliver(ctx, "d"), ErrChannelClosed)

	select {
	case <-s.Done():
	default:
		t.Fatal("done not closed")
	}
}

func TestStreamChannel_ClosedChannelIsEvicted(t *testing.T) {
	r := NewRegistry(logger.NewNop())
	s := NewStreamChannel(logger.NewNop(), 4)
	r.Register("alice", s)

	s.Close()
	r.NotifyOne(context.Background(), "alice", "hi")
	assert.False(t, r.IsRegistered("alice"))
}

// 送り手のctxが切れても受け手の登録は残る
func TestStreamChannel_CancelledCallerKeepsRegistration(t *testing.T) {
	r := NewRegistry(logger.NewNop())
	alice := NewStreamChannel(logger.NewNop(), 4)
	bob := NewStreamChannel(logger.NewNop(), 4)
	r.Register("alice", alice)
	r.Register("bob", bob)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r.NotifyAll(ctx, "New product available: x")
	r.NotifyOne(ctx, "alice", "Your order #1 is now SHIPPED")

	assert.True(t, r.IsRegistered("alice"))
	assert.True(t, r.IsRegistered("bob"))
	assert.Equal(t, 2, r.Len())
	assert.False(t, alice.Closed())

	// 次の通知はちゃんと届く
	r.NotifyAll(context.Background(), "hello")
	assert.Equal(t, "hello", <-alice.Outbound())
	assert.Equal(t, "hello", <-bob.Outbound())
}
