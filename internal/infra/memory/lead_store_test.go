package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xavierca1/lead-funnel/internal/entity"
)

func TestLeadStoreCreateAndGet(t *testing.T) {
	ctx := context.Background()
	s := NewLeadStore()
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, s.Create(ctx, entity.NewLead("Ann", "Ann@Example.com", "+15555550100", now)))
	err := s.Create(ctx, entity.NewLead("Ann", "ann@example.com", "", now))
	assert.ErrorIs(t, err, entity.ErrAlreadyExists)

	got, err := s.Get(ctx, "ann@example.com")
	require.NoError(t, err)
	assert.Equal(t, entity.StatusFormSubmitted, got.Status)

	_, err = s.Get(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, entity.ErrNotFound)
}

func TestLeadStoreSetStatusMarksStage(t *testing.T) {
	ctx := context.Background()
	s := NewLeadStore()
	t0 := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, s.Create(ctx, entity.NewLead("Bo", "bo@example.com", "", t0)))

	t1 := t0.Add(time.Hour)
	require.NoError(t, s.SetStatus(ctx, "bo@example.com", entity.StatusReminder1Sent, t1))

	got, err := s.Get(ctx, "bo@example.com")
	require.NoError(t, err)
	assert.Equal(t, t1, got.LastTransitionAt)
	require.NotNil(t, got.Reminder1SentAt)
	assert.Equal(t, t1, *got.Reminder1SentAt)

	// a later write does not move the marker
	require.NoError(t, s.SetStatus(ctx, "bo@example.com", entity.StatusReminder1Opened, t1.Add(time.Hour)))
	got, _ = s.Get(ctx, "bo@example.com")
	assert.Equal(t, t1, *got.Reminder1SentAt)

	assert.ErrorIs(t, s.SetStatus(ctx, "x@example.com", entity.StatusPaid, t1), entity.ErrNotFound)
}

func TestLeadStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewLeadStore()
	require.NoError(t, s.Create(ctx, entity.NewLead("Cy", "cy@example.com", "", time.Now())))

	got, _ := s.Get(ctx, "cy@example.com")
	got.Status = entity.StatusPaid

	again, _ := s.Get(ctx, "cy@example.com")
	assert.Equal(t, entity.StatusFormSubmitted, again.Status)
}

func TestLeadStoreListByStatus(t *testing.T) {
	ctx := context.Background()
	s := NewLeadStore()
	now := time.Now()
	for _, e := range []string{"a@x.io", "b@x.io", "c@x.io"} {
		require.NoError(t, s.Create(ctx, entity.NewLead("N", e, "", now)))
	}
	require.NoError(t, s.SetStatus(ctx, "b@x.io", entity.StatusEmailSent, now))
	require.NoError(t, s.SetStatus(ctx, "c@x.io", entity.StatusPaid, now))

	all, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	sent, err := s.ListByStatus(ctx, entity.StatusEmailSent, entity.StatusPaid)
	require.NoError(t, err)
	assert.Len(t, sent, 2)
}

func TestLeadStoreFailOn(t *testing.T) {
	ctx := context.Background()
	s := NewLeadStore()
	boom := errors.New("disk on fire")

	s.FailOn("create", boom)
	assert.ErrorIs(t, s.Create(ctx, entity.NewLead("D", "d@x.io", "", time.Now())), boom)

	s.FailOn("create", nil)
	assert.NoError(t, s.Create(ctx, entity.NewLead("D", "d@x.io", "", time.Now())))
}
