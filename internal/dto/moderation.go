package dto

import (
	"time"

	"github.com/noah-isme/trust-enforcement-api/internal/models"
)

// SubmitReportRequest captures POST /reports payload.
type SubmitReportRequest struct {
	TargetType  models.TargetType `json:"targetType" validate:"required,target_type"`
	TargetID    string            `json:"targetId" validate:"required,max=64"`
	ReasonCode  models.ReasonCode `json:"reasonCode" validate:"required,reason_code"`
	Description *string           `json:"description,omitempty" validate:"omitempty,max=2000"`
}

// SubmitReportResponse is returned after a report enters the queue.
type SubmitReportResponse struct {
	ID       string              `json:"id"`
	Status   models.ReportStatus `json:"status"`
	Priority models.Priority     `json:"priority"`
}

// ReportQuery mirrors supported queue listing filters.
type ReportQuery struct {
	Status     []models.ReportStatus
	Priority   models.Priority
	TargetType models.TargetType
	Page       int
	PageSize   int
}

// ResolveReportRequest carries a moderator decision.
type ResolveReportRequest struct {
	Action        models.ActionCode `json:"action" validate:"required,action_code"`
	Notes         *string           `json:"notes,omitempty" validate:"omitempty,max=4000"`
	DurationHours *int              `json:"durationHours,omitempty" validate:"omitempty,min=1,max=8760"`
}

// ResolveReportResponse describes the outcome of a resolve call.
type ResolveReportResponse struct {
	Report          *models.Report        `json:"report"`
	LogID           string                `json:"logId,omitempty"`
	SanctionID      string                `json:"sanctionId,omitempty"`
	Effects         []models.EffectResult `json:"effects,omitempty"`
	AlreadyResolved bool                  `json:"-"`
	Partial         bool                  `json:"-"`
}

// LiftSuspensionsResponse reports how many suspensions an explicit lift deactivated.
type LiftSuspensionsResponse struct {
	UserID      string `json:"userId"`
	Lifted      int    `json:"lifted"`
	IsSuspended bool   `json:"isSuspended"`
}

// ModerationLogQuery mirrors supported audit trail filters.
type ModerationLogQuery struct {
	ModeratorID string
	TargetType  models.TargetType
	TargetID    string
	Action      models.ActionCode
	Since       *time.Time
	Until       *time.Time
	Page        int
	PageSize    int
}

// LogExportFormat selects the export renderer.
type LogExportFormat string

const (
	LogExportCSV LogExportFormat = "csv"
	LogExportPDF LogExportFormat = "pdf"
)

// LogExport is a rendered audit trail document.
type LogExport struct {
	Filename    string
	ContentType string
	Data        []byte
}
