package broker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tablehub/domain/profile"
	"tablehub/ports"
)

func receive(t *testing.T, ch <-chan ports.Delivery) ports.Delivery {
	t.Helper()
	select {
	case d := <-ch:
		return d
	case <-time.After(5 * time.Second):
		t.Fatal("no delivery")
		return ports.Delivery{}
	}
}

func TestPriorityOrdering(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	b := NewInProcess()

	require.NoError(t, b.PublishProfileRequest(ctx, profile.Request{ID: "low"}, ports.PriorityLow))
	require.NoError(t, b.PublishProfileRequest(ctx, profile.Request{ID: "high"}, ports.PriorityHigh))
	require.NoError(t, b.PublishProfileRequest(ctx, profile.Request{ID: "normal"}, ports.PriorityNormal))

	ch, err := b.ConsumeProfileRequests(ctx)
	require.NoError(t, err)

	var order []string
	for i := 0; i < 3; i++ {
		d := receive(t, ch)
		order = append(order, d.Request.ID)
		d.Ack()
	}
	assert.Equal(t, []string{"high", "normal", "low"}, order)
}

func TestPrefetchOne(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	b := NewInProcess()

	require.NoError(t, b.PublishProfileRequest(ctx, profile.Request{ID: "first"}, ports.PriorityNormal))
	require.NoError(t, b.PublishProfileRequest(ctx, profile.Request{ID: "second"}, ports.PriorityNormal))

	ch, err := b.ConsumeProfileRequests(ctx)
	require.NoError(t, err)

	first := receive(t, ch)

	// The second delivery is held back until the first is acked.
	select {
	case <-ch:
		t.Fatal("received a delivery before acking the previous one")
	case <-time.After(50 * time.Millisecond):
	}

	first.Ack()
	second := receive(t, ch)
	assert.Equal(t, "second", second.Request.ID)
	second.Ack()
}

func TestTopicRouting(t *testing.T) {
	ctx := context.Background()
	b := NewInProcess()

	keyed, cancelKeyed, err := b.SubscribeDatasets(ctx, "src.a")
	require.NoError(t, err)
	defer cancelKeyed()
	all, cancelAll, err := b.SubscribeDatasets(ctx, "")
	require.NoError(t, err)
	defer cancelAll()

	require.NoError(t, b.PublishDataset(ctx, "src.a", &profile.Profile{ID: "src.a"}))
	require.NoError(t, b.PublishDataset(ctx, "src.b", &profile.Profile{ID: "src.b"}))

	assert.Equal(t, "src.a", string((<-keyed).ID))
	assert.Equal(t, "src.a", string((<-all).ID))
	assert.Equal(t, "src.b", string((<-all).ID))

	select {
	case p := <-keyed:
		t.Fatalf("keyed subscriber received %s", p.ID)
	default:
	}
}

func TestFailedQueueKeepsBodies(t *testing.T) {
	ctx := context.Background()
	b := NewInProcess()

	require.NoError(t, b.PublishFailed(ctx, []byte(`{"id":"x"}`)))
	require.NoError(t, b.PublishFailed(ctx, []byte(`{"id":"y"}`)))

	failed := b.Failed()
	require.Len(t, failed, 2)
	assert.Equal(t, `{"id":"x"}`, string(failed[0]))
}
