package usecase_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xavierca1/lead-funnel/internal/entity"
	"github.com/xavierca1/lead-funnel/internal/usecase"
)

func TestTransitionApplied(t *testing.T) {
	h := newHarness(t)
	h.seed(t, "a@x.io", entity.StatusEmailSent)

	res, err := h.engine.Transition(context.Background(), "A@X.io", entity.EventOpened)
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.Equal(t, entity.StatusEmailSent, res.From)
	assert.Equal(t, entity.StatusEmailOpened, res.To)
	assert.Equal(t, entity.StatusEmailOpened, h.status(t, "a@x.io"))

	require.Len(t, h.publisher.events, 1)
	ev := h.publisher.events[0]
	assert.Equal(t, "a@x.io", ev.Email)
	assert.Equal(t, entity.EventOpened, ev.Event)
	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, t0, ev.OccurredAt)
}

func TestTransitionTerminalIsNoOp(t *testing.T) {
	for _, terminal := range []entity.Status{entity.StatusPaid, entity.StatusReplied} {
		t.Run(string(terminal), func(t *testing.T) {
			h := newHarness(t)
			h.seed(t, "a@x.io", terminal)

			for _, ev := range []entity.Event{entity.EventOpened, entity.EventPaymentFailed, entity.EventPaid, entity.EventReplied} {
				res, err := h.engine.Transition(context.Background(), "a@x.io", ev)
				require.NoError(t, err)
				assert.False(t, res.Applied)
				assert.Equal(t, usecase.ReasonTerminal, res.Reason)
			}
			assert.Equal(t, terminal, h.status(t, "a@x.io"))
			assert.Empty(t, h.publisher.events)
		})
	}
}

func TestTransitionInvalid(t *testing.T) {
	h := newHarness(t)
	h.seed(t, "a@x.io")

	res, err := h.engine.Transition(context.Background(), "a@x.io", entity.EventOpened)
	assert.ErrorIs(t, err, usecase.ErrInvalidTransition)
	assert.True(t, usecase.IsDomainError(err))
	assert.False(t, res.Applied)
	assert.Equal(t, usecase.ReasonInvalidTransition, res.Reason)
	assert.Equal(t, entity.StatusFormSubmitted, h.status(t, "a@x.io"))
}

func TestTransitionUnknownLead(t *testing.T) {
	h := newHarness(t)
	_, err := h.engine.Transition(context.Background(), "ghost@x.io", entity.EventPaid)
	assert.ErrorIs(t, err, usecase.ErrLeadNotFound)
}

func TestTransitionStoreFailure(t *testing.T) {
	h := newHarness(t)
	h.seed(t, "a@x.io", entity.StatusEmailSent)
	h.store.FailOn("set_status", errors.New("connection reset"))

	_, err := h.engine.Transition(context.Background(), "a@x.io", entity.EventOpened)
	assert.ErrorIs(t, err, usecase.ErrStoreFailure)
	assert.True(t, usecase.IsTechnicalError(err))
	assert.Equal(t, "STORE_FAILURE", usecase.ErrorCode(err))
}

func TestRepliedAndPaidFromAnyStatus(t *testing.T) {
	for _, from := range entity.AllStatuses {
		if from.IsTerminal() {
			continue
		}
		h := newHarness(t)
		h.seed(t, "a@x.io", from)

		res, err := h.engine.Transition(context.Background(), "a@x.io", entity.EventReplied)
		require.NoError(t, err, from)
		assert.Equal(t, entity.StatusReplied, res.To, from)
	}
}

func TestOverride(t *testing.T) {
	h := newHarness(t)
	h.seed(t, "a@x.io", entity.StatusEmailSent)

	res, err := h.engine.Override(context.Background(), "a@x.io", entity.StatusPaymentFailed)
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.Equal(t, entity.StatusPaymentFailed, h.status(t, "a@x.io"))

	h.seed(t, "p@x.io", entity.StatusPaid)
	res, err = h.engine.Override(context.Background(), "p@x.io", entity.StatusEmailSent)
	require.NoError(t, err)
	assert.Equal(t, usecase.ReasonTerminal, res.Reason)
	assert.Equal(t, entity.StatusPaid, h.status(t, "p@x.io"))
}

func TestPaymentSuccessBeatsAbandonment(t *testing.T) {
	for i := 0; i < 50; i++ {
		h := newHarness(t)
		h.seed(t, "race@x.io", entity.StatusReminder2Sent, entity.StatusLinkClicked, entity.StatusPaymentLinkClicked)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = h.tracking.OnPaymentSuccess(context.Background(), "race@x.io")
		}()
		go func() {
			defer wg.Done()
			_, _ = h.tracking.OnPaymentAbandonment(context.Background(), "race@x.io", entity.PaymentAbandonment{})
		}()
		wg.Wait()

		assert.Equal(t, entity.StatusPaid, h.status(t, "race@x.io"))
	}
}

func TestConcurrentTransitionsOneWinner(t *testing.T) {
	h := newHarness(t)
	h.seed(t, "a@x.io", entity.StatusEmailSent)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		applied int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, _ := h.engine.Transition(context.Background(), "a@x.io", entity.EventOpened)
			if res.Applied {
				mu.Lock()
				applied++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, applied)
	assert.Equal(t, entity.StatusEmailOpened, h.status(t, "a@x.io"))
}
