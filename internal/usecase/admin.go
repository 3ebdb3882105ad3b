package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/xavierca1/lead-funnel/internal/entity"
	"github.com/xavierca1/lead-funnel/internal/logger"
)

type Stats struct {
	Total          int                   `json:"total"`
	ByStatus       map[entity.Status]int `json:"by_status"`
	ConversionRate int                   `json:"conversion_rate"`
	RecentActivity []entity.Lead         `json:"recent_activity"`
}

type ListLeadsInput struct {
	Status entity.Status
	Limit  int
	Offset int
}

type LeadPage struct {
	Leads  []entity.Lead `json:"submissions"`
	Total  int           `json:"total"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

type StageReport struct {
	Count int         `json:"count"`
	Leads []DueLeadRef `json:"users"`
}

type DueLeadRef struct {
	Email  string        `json:"email"`
	Name   string        `json:"name"`
	Status entity.Status `json:"status"`
	DueAt  time.Time     `json:"due_at"`
}

// EligibilityReport is what the next sweep would send, per stage.
type EligibilityReport struct {
	Reminder1     StageReport `json:"reminder1"`
	Reminder2     StageReport `json:"reminder2"`
	FinalReminder StageReport `json:"finalReminder"`
}

const (
	defaultPageSize = 50
	recentActivity  = 10
)

type AdminUseCase struct {
	store       entity.LeadStore
	engagement  entity.EngagementStore
	engine      *StatusEngine
	followUps   *FollowUpUseCase
	callTimeout time.Duration
	log         *logger.Logger
}

func NewAdminUseCase(
	store entity.LeadStore,
	engagement entity.EngagementStore,
	engine *StatusEngine,
	followUps *FollowUpUseCase,
	callTimeout time.Duration,
	log *logger.Logger,
) *AdminUseCase {
	return &AdminUseCase{
		store:       store,
		engagement:  engagement,
		engine:      engine,
		followUps:   followUps,
		callTimeout: callTimeout,
		log:         log.WithComponent("admin"),
	}
}

func (uc *AdminUseCase) Stats(ctx context.Context) (*Stats, error) {
	leads, err := uc.list(ctx)
	if err != nil {
		return nil, err
	}

	stats := &Stats{
		Total:    len(leads),
		ByStatus: make(map[entity.Status]int),
	}
	for _, l := range leads {
		stats.ByStatus[l.Status]++
	}
	if stats.Total > 0 {
		stats.ConversionRate = int(math.Round(float64(stats.ByStatus[entity.StatusPaid]) / float64(stats.Total) * 100))
	}

	sort.SliceStable(leads, func(i, j int) bool {
		return leads[i].CreatedAt.After(leads[j].CreatedAt)
	})
	if len(leads) > recentActivity {
		leads = leads[:recentActivity]
	}
	stats.RecentActivity = leads
	return stats, nil
}

func (uc *AdminUseCase) ListLeads(ctx context.Context, in ListLeadsInput) (*LeadPage, error) {
	if in.Limit <= 0 {
		in.Limit = defaultPageSize
	}
	if in.Offset < 0 {
		in.Offset = 0
	}

	var (
		leads []entity.Lead
		err   error
	)
	if in.Status != "" {
		callCtx, cancel := context.WithTimeout(ctx, uc.callTimeout)
		leads, err = uc.store.ListByStatus(callCtx, in.Status)
		cancel()
		if err != nil {
			err = fmt.Errorf("%w: %w", ErrStoreFailure, err)
		}
	} else {
		leads, err = uc.list(ctx)
	}
	if err != nil {
		return nil, err
	}

	page := &LeadPage{Total: len(leads), Limit: in.Limit, Offset: in.Offset, Leads: []entity.Lead{}}
	if in.Offset < len(leads) {
		end := in.Offset + in.Limit
		if end > len(leads) {
			end = len(leads)
		}
		page.Leads = leads[in.Offset:end]
	}
	return page, nil
}

// GetLead returns the lead with its engagement metadata attached when available.
func (uc *AdminUseCase) GetLead(ctx context.Context, email string) (*entity.Lead, error) {
	email = entity.NormalizeEmail(email)

	callCtx, cancel := context.WithTimeout(ctx, uc.callTimeout)
	defer cancel()

	lead, err := uc.store.Get(callCtx, email)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrLeadNotFound
		}
		return nil, fmt.Errorf("%w: %w", ErrStoreFailure, err)
	}

	if uc.engagement != nil {
		eng, err := uc.engagement.Get(callCtx, email)
		if err != nil {
			uc.log.Warn("engagement read failed", slog.String("email", email), slog.Any("error", err))
		} else {
			lead.Engagement = eng
		}
	}
	return lead, nil
}

func (uc *AdminUseCase) EligibilityReport(ctx context.Context) (*EligibilityReport, error) {
	due, err := uc.followUps.Due(ctx)
	if err != nil {
		return nil, err
	}

	report := &EligibilityReport{
		Reminder1:     StageReport{Leads: []DueLeadRef{}},
		Reminder2:     StageReport{Leads: []DueLeadRef{}},
		FinalReminder: StageReport{Leads: []DueLeadRef{}},
	}
	for _, d := range due {
		ref := DueLeadRef{Email: d.Lead.Email, Name: d.Lead.Name, Status: d.Lead.Status, DueAt: d.Candidate.DueAt}
		var stage *StageReport
		switch d.Candidate.Action {
		case ActionSendReminder1:
			stage = &report.Reminder1
		case ActionSendReminder2:
			stage = &report.Reminder2
		default:
			stage = &report.FinalReminder
		}
		stage.Count++
		stage.Leads = append(stage.Leads, ref)
	}
	return report, nil
}

func (uc *AdminUseCase) SendManual(ctx context.Context, email string, kind entity.MessageKind) (TransitionResult, error) {
	return uc.followUps.SendManual(ctx, email, kind)
}

func (uc *AdminUseCase) OverrideStatus(ctx context.Context, email string, status entity.Status) (TransitionResult, error) {
	return uc.engine.Override(ctx, email, status)
}

func (uc *AdminUseCase) list(ctx context.Context) ([]entity.Lead, error) {
	callCtx, cancel := context.WithTimeout(ctx, uc.callTimeout)
	defer cancel()

	leads, err := uc.store.List(callCtx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreFailure, err)
	}
	return leads, nil
}
