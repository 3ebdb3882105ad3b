package usecase_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xavierca1/lead-funnel/internal/entity"
	"github.com/xavierca1/lead-funnel/internal/usecase"
)

func TestAdminStats(t *testing.T) {
	h := newHarness(t)
	for i := 0; i < 12; i++ {
		h.clock.Advance(time.Minute)
		h.seed(t, fmt.Sprintf("u%02d@x.io", i), entity.StatusEmailSent)
	}
	h.seed(t, "paid@x.io", entity.StatusPaid)
	h.seed(t, "paid2@x.io", entity.StatusPaid)

	stats, err := h.admin.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 14, stats.Total)
	assert.Equal(t, 12, stats.ByStatus[entity.StatusEmailSent])
	assert.Equal(t, 14, stats.ConversionRate) // 2/14 rounds to 14%
	assert.Len(t, stats.RecentActivity, 10)
}

func TestAdminStatsEmpty(t *testing.T) {
	stats, err := newHarness(t).admin.Stats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.Total)
	assert.Zero(t, stats.ConversionRate)
}

func TestAdminListLeads(t *testing.T) {
	h := newHarness(t)
	for i := 0; i < 5; i++ {
		h.seed(t, fmt.Sprintf("u%d@x.io", i), entity.StatusEmailSent)
	}
	h.seed(t, "p@x.io", entity.StatusPaid)

	page, err := h.admin.ListLeads(context.Background(), usecase.ListLeadsInput{Status: entity.StatusEmailSent, Limit: 2, Offset: 4})
	require.NoError(t, err)
	assert.Equal(t, 5, page.Total)
	assert.Len(t, page.Leads, 1)

	page, err = h.admin.ListLeads(context.Background(), usecase.ListLeadsInput{Offset: 100})
	require.NoError(t, err)
	assert.Equal(t, 6, page.Total)
	assert.Equal(t, 50, page.Limit)
	assert.Empty(t, page.Leads)
}

func TestAdminGetLeadNotFound(t *testing.T) {
	_, err := newHarness(t).admin.GetLead(context.Background(), "nope@x.io")
	assert.ErrorIs(t, err, usecase.ErrLeadNotFound)
}

func TestAdminEligibilityReport(t *testing.T) {
	h := newHarness(t)
	h.seed(t, "r1@x.io", entity.StatusEmailSent)
	h.seed(t, "r2@x.io", entity.StatusEmailSent, entity.StatusEmailOpened)
	h.seed(t, "f@x.io", entity.StatusPaymentLinkClicked)
	h.clock.Advance(48 * time.Hour)

	report, err := h.admin.EligibilityReport(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Reminder1.Count)
	assert.Equal(t, 1, report.Reminder2.Count)
	assert.Equal(t, 1, report.FinalReminder.Count)
	assert.Equal(t, "f@x.io", report.FinalReminder.Leads[0].Email)
}
