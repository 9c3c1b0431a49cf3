package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/noah-isme/trust-enforcement-api/internal/models"
	"github.com/noah-isme/trust-enforcement-api/internal/repository"
	appErrors "github.com/noah-isme/trust-enforcement-api/pkg/errors"
)

// DefaultSuspensionDuration applies to USER_SUSPENDED decisions without an explicit duration.
const DefaultSuspensionDuration = 7 * 24 * time.Hour

// Effect names recorded in log metadata.
const (
	EffectOwnerLookup  = "owner_lookup"
	EffectContent      = "content_effect"
	EffectUserSanction = "user_sanction"
)

// Decision is a moderator's verdict to be executed against a target.
type Decision struct {
	Action      models.ActionCode
	TargetType  models.TargetType
	TargetID    string
	ModeratorID string
	Reason      string
	ReportID    string
	Duration    time.Duration
}

// Outcome describes what an executed decision changed.
type Outcome struct {
	LogID             string
	SanctionID        string
	ResponsibleUserID string
	Effects           []models.EffectResult
	Partial           bool
}

// ActionDispatcher executes decisions inside the caller's transaction and
// appends the audit log entry. Every sub-effect runs in its own savepoint, so
// a failed effect is recorded instead of aborting the resolution.
type ActionDispatcher struct {
	defaultDuration time.Duration
	logger          *zap.Logger
	now             func() time.Time
}

// NewActionDispatcher constructs the dispatcher.
func NewActionDispatcher(defaultDuration time.Duration, logger *zap.Logger) *ActionDispatcher {
	if defaultDuration <= 0 {
		defaultDuration = DefaultSuspensionDuration
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActionDispatcher{defaultDuration: defaultDuration, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// Validate rejects decisions that can never apply to the target kind.
func (d *ActionDispatcher) Validate(action models.ActionCode, kind models.TargetType) error {
	if !action.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown action %q", action))
	}
	if action.AffectsContent() && !kind.IsContent() {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("action %s does not apply to %s targets", action, kind))
	}
	return nil
}

// Execute applies the decision. A returned error is fatal for the transaction;
// sub-effect failures are reported through Outcome.Partial instead.
func (d *ActionDispatcher) Execute(ctx context.Context, tx repository.ModerationTx, decision Decision) (*Outcome, error) {
	if err := d.Validate(decision.Action, decision.TargetType); err != nil {
		return nil, err
	}
	outcome := &Outcome{}

	var responsible string
	if decision.Action.SanctionsUser() {
		var lookup effectResult
		responsible, lookup = d.responsibleUser(ctx, tx, decision)
		if errors.Is(lookup.err(), repository.ErrTxAborted) {
			return nil, lookup.err()
		}
		if lookup.Status != models.EffectApplied {
			outcome.Effects = append(outcome.Effects, lookup.EffectResult)
		}
		outcome.ResponsibleUserID = responsible
	}

	if decision.Action.AffectsContent() {
		result := d.applyContentEffect(ctx, tx, decision)
		if errors.Is(result.err(), repository.ErrTxAborted) {
			return nil, result.err()
		}
		outcome.Effects = append(outcome.Effects, result.EffectResult)
	}

	if decision.Action.SanctionsUser() {
		if responsible == "" {
			outcome.Effects = append(outcome.Effects, models.EffectResult{
				Effect: EffectUserSanction,
				Status: models.EffectSkipped,
				Detail: "responsible user could not be resolved",
			})
		} else {
			sanctionID, result := d.applyUserSanction(ctx, tx, decision, responsible)
			if errors.Is(result.err(), repository.ErrTxAborted) {
				return nil, result.err()
			}
			outcome.SanctionID = sanctionID
			outcome.Effects = append(outcome.Effects, result.EffectResult)
		}
	}

	outcome.Partial = lo.SomeBy(outcome.Effects, func(effect models.EffectResult) bool {
		return effect.Status != models.EffectApplied
	})

	entry := &models.ModerationLog{
		ModeratorID: decision.ModeratorID,
		TargetType:  decision.TargetType,
		TargetID:    decision.TargetID,
		Action:      decision.Action,
		Reason:      decision.Reason,
		Metadata: models.LogMetadata{
			ReportID:          decision.ReportID,
			ResponsibleUserID: responsible,
			SanctionID:        outcome.SanctionID,
			Partial:           outcome.Partial,
			Effects:           outcome.Effects,
		},
		CreatedAt: d.now(),
	}
	if err := tx.CreateLog(ctx, entry); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to write moderation log")
	}
	outcome.LogID = entry.ID

	if outcome.Partial {
		d.logger.Warn("decision partially applied",
			zap.String("report_id", decision.ReportID),
			zap.String("action", string(decision.Action)),
			zap.Any("effects", outcome.Effects),
		)
	}
	return outcome, nil
}

// effectResult pairs the recorded result with the raw error behind it.
type effectResult struct {
	models.EffectResult
	cause error
}

func (r effectResult) err() error { return r.cause }

func applied(effect string) effectResult {
	return effectResult{EffectResult: models.EffectResult{Effect: effect, Status: models.EffectApplied}}
}

func failed(effect string, err error) effectResult {
	detail := err.Error()
	if errors.Is(err, sql.ErrNoRows) {
		detail = "target no longer exists"
	}
	return effectResult{EffectResult: models.EffectResult{Effect: effect, Status: models.EffectFailed, Detail: detail}, cause: err}
}

// responsibleUser maps the target to the user a sanction applies to.
func (d *ActionDispatcher) responsibleUser(ctx context.Context, tx repository.ModerationTx, decision Decision) (string, effectResult) {
	if decision.TargetType == models.TargetUser {
		return decision.TargetID, applied(EffectOwnerLookup)
	}
	var owner string
	err := tx.Savepoint(ctx, EffectOwnerLookup, func() error {
		target, err := tx.ResolveTarget(ctx, decision.TargetType, decision.TargetID)
		if err != nil {
			return err
		}
		if target.HasOwner() {
			owner = *target.OwnerID
		}
		return nil
	})
	if err != nil {
		return "", failed(EffectOwnerLookup, err)
	}
	return owner, applied(EffectOwnerLookup)
}

func (d *ActionDispatcher) applyContentEffect(ctx context.Context, tx repository.ModerationTx, decision Decision) effectResult {
	err := tx.Savepoint(ctx, EffectContent, func() error {
		if decision.Action == models.ActionContentDeleted {
			return tx.DeleteContent(ctx, decision.TargetType, decision.TargetID)
		}
		return tx.HideContent(ctx, decision.TargetType, decision.TargetID)
	})
	if err != nil {
		return failed(EffectContent, err)
	}
	return applied(EffectContent)
}

func (d *ActionDispatcher) applyUserSanction(ctx context.Context, tx repository.ModerationTx, decision Decision, userID string) (string, effectResult) {
	var reportID *string
	if decision.ReportID != "" {
		reportID = lo.ToPtr(decision.ReportID)
	}
	now := d.now()

	var sanctionID string
	err := tx.Savepoint(ctx, EffectUserSanction, func() error {
		switch decision.Action {
		case models.ActionUserWarned:
			warning := &models.Warning{
				UserID:      userID,
				ModeratorID: decision.ModeratorID,
				Severity:    models.WarningModerate,
				Reason:      decision.Reason,
				ReportID:    reportID,
				CreatedAt:   now,
			}
			if err := tx.CreateWarning(ctx, warning); err != nil {
				return err
			}
			sanctionID = warning.ID
			return nil
		case models.ActionUserSuspended, models.ActionUserBanned:
			suspension := &models.Suspension{
				UserID:      userID,
				ModeratorID: decision.ModeratorID,
				Type:        models.SuspensionPermanent,
				Reason:      decision.Reason,
				ReportID:    reportID,
				CreatedAt:   now,
			}
			if decision.Action == models.ActionUserSuspended {
				duration := decision.Duration
				if duration <= 0 {
					duration = d.defaultDuration
				}
				suspension.Type = models.SuspensionTemporary
				suspension.EndsAt = lo.ToPtr(now.Add(duration))
			}
			if err := tx.CreateSuspension(ctx, suspension); err != nil {
				return err
			}
			sanctionID = suspension.ID
			return tx.RefreshSuspendedFlags(ctx, []string{userID})
		default:
			return fmt.Errorf("action %s is not a user sanction", decision.Action)
		}
	})
	if err != nil {
		return "", failed(EffectUserSanction, err)
	}
	return sanctionID, applied(EffectUserSanction)
}
