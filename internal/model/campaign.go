// internal/model/campaign.go
package model

import "time"

// CampaignStatus is the state of a campaign
type CampaignStatus string

const (
	CampaignDraft     CampaignStatus = "draft"
	CampaignActive    CampaignStatus = "active"
	CampaignPaused    CampaignStatus = "paused"
	CampaignCompleted CampaignStatus = "completed"
)

// DefaultDailyLimit applies when a campaign is created without one
const DefaultDailyLimit = 25

// campaignTransitions lists the statuses each status may move to.
// completed is terminal.
var campaignTransitions = map[CampaignStatus][]CampaignStatus{
	CampaignDraft:     {CampaignActive},
	CampaignActive:    {CampaignPaused, CampaignCompleted},
	CampaignPaused:    {CampaignActive, CampaignCompleted},
	CampaignCompleted: {},
}

// Valid reports whether s is a known campaign status
func (s CampaignStatus) Valid() bool {
	_, ok := campaignTransitions[s]
	return ok
}

// CanTransition reports whether a campaign may move from s to next
func (s CampaignStatus) CanTransition(next CampaignStatus) bool {
	for _, allowed := range campaignTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// CampaignProgress tracks multi-day dispatch across invocations
type CampaignProgress struct {
	// Cursor is the index into Contacts of the next contact to dispatch
	Cursor            int        `json:"cursor"`
	BatchesDispatched int        `json:"batches_dispatched"`
	ScheduledCount    int        `json:"scheduled_count"`
	FailedCount       int        `json:"failed_count"`
	SkippedCount      int        `json:"skipped_count"`
	LastDispatchedAt  *time.Time `json:"last_dispatched_at,omitempty"`
}

type Campaign struct {
	ID                    string           `json:"id"`
	Name                  string           `json:"name"`
	Description           string           `json:"description,omitempty"`
	TemplateID            string           `json:"template_id"`
	Contacts              []string         `json:"contacts"`
	Status                CampaignStatus   `json:"status"`
	StartDate             string           `json:"start_date,omitempty"`
	EndDate               string           `json:"end_date,omitempty"`
	DailyLimit            int              `json:"daily_limit"`
	UseProviderScheduling bool             `json:"use_provider_scheduling"`
	Progress              CampaignProgress `json:"progress"`
	CreatedAt             time.Time        `json:"created_at"`
	UpdatedAt             time.Time        `json:"updated_at"`
}

// Remaining is the number of contact positions not yet dispatched
func (c *Campaign) Remaining() int {
	if n := len(c.Contacts) - c.Progress.Cursor; n > 0 {
		return n
	}
	return 0
}

// DurationDays is the estimated number of days needed to reach every contact
func DurationDays(total, dailyLimit int) int {
	if total <= 0 || dailyLimit <= 0 {
		return 0
	}
	return (total + dailyLimit - 1) / dailyLimit
}
