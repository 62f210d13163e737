package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/Formflow/internal/domain"
	"github.com/shaiso/Formflow/internal/filestore"
	"github.com/shaiso/Formflow/internal/mq"
)

func TestWorker_Handle(t *testing.T) {
	ctx := context.Background()
	store, err := filestore.Open(t.TempDir())
	require.NoError(t, err)

	flow := surveyFlow()
	flow.TenantID = "acme"
	require.NoError(t, store.Flows().Create(ctx, flow))

	resp := &domain.Response{
		ID:        uuid.New(),
		FlowID:    flow.ID,
		Version:   1,
		Completed: true,
		Values:    domain.FormValues{"name": "Ann"},
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, store.Responses().Create(ctx, resp))

	w := NewWorker(WorkerConfig{Responses: store.Responses()})

	err = w.Handle(ctx, mq.NewMessage(mq.MessageTypeFlowPublished, mq.FlowPublishedPayload{
		FlowID: flow.ID, TenantID: "acme", Version: 1, Steps: 3,
	}))
	require.NoError(t, err)

	err = w.Handle(ctx, mq.NewMessage(mq.MessageTypeResponseSubmitted, mq.ResponseSubmittedPayload{
		ResponseID: resp.ID, FlowID: flow.ID, Version: 1, Completed: true, Answered: 1,
	}))
	require.NoError(t, err)

	// ответ, которого нет в хранилище, подтверждается без учёта
	err = w.Handle(ctx, mq.NewMessage(mq.MessageTypeResponseSubmitted, mq.ResponseSubmittedPayload{
		ResponseID: uuid.New(), FlowID: flow.ID, Version: 1,
	}))
	require.NoError(t, err)

	tally, ok := w.Tally(flow.ID)
	require.True(t, ok)
	assert.Equal(t, 1, tally.LatestVersion)
	assert.Equal(t, 1, tally.Responses)
	assert.Equal(t, 1, tally.Completed)
	assert.False(t, tally.LastEventAt.IsZero())

	assert.Len(t, w.Snapshot(), 1)
}

func TestWorker_HandleErrors(t *testing.T) {
	ctx := context.Background()
	w := NewWorker(WorkerConfig{})

	err := w.Handle(ctx, &mq.Message{Type: "flow.deleted"})
	assert.ErrorIs(t, err, ErrUnknownMessage)

	err = w.Handle(ctx, &mq.Message{
		Type:    mq.MessageTypeResponseSubmitted,
		Payload: map[string]any{"version": "one"},
	})
	assert.Error(t, err)

	_, ok := w.Tally(uuid.New())
	assert.False(t, ok)
}

func TestWorker_StartWithoutConnection(t *testing.T) {
	w := NewWorker(WorkerConfig{})
	assert.Error(t, w.Start(context.Background()))
}
