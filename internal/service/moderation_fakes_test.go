package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/noah-isme/trust-enforcement-api/internal/models"
	"github.com/noah-isme/trust-enforcement-api/internal/repository"
)

type memTarget struct {
	owner  *string
	hidden bool
}

// memWorld is an in-memory stand-in for the moderation tables. Transactions
// serialize on mu and roll back by restoring a snapshot.
type memWorld struct {
	mu          sync.Mutex
	seq         int
	reports     map[string]*models.Report
	targets     map[string]*memTarget
	users       map[string]bool
	warnings    []models.Warning
	suspensions []models.Suspension
	logs        []models.ModerationLog

	hideErr     error
	sanctionErr error
	logErr      error
}

func newMemWorld() *memWorld {
	return &memWorld{
		reports: map[string]*models.Report{},
		targets: map[string]*memTarget{},
		users:   map[string]bool{},
	}
}

func targetKey(kind models.TargetType, id string) string { return string(kind) + ":" + id }

func (w *memWorld) addUser(id string) {
	w.users[id] = false
	owner := id
	w.targets[targetKey(models.TargetUser, id)] = &memTarget{owner: &owner}
}

func (w *memWorld) addContent(kind models.TargetType, id string, owner *string) {
	w.targets[targetKey(kind, id)] = &memTarget{owner: owner}
}

func (w *memWorld) nextID(prefix string) string {
	w.seq++
	return fmt.Sprintf("%s-%d", prefix, w.seq)
}

func (w *memWorld) snapshot() *memWorld {
	snap := &memWorld{
		seq:         w.seq,
		reports:     make(map[string]*models.Report, len(w.reports)),
		targets:     make(map[string]*memTarget, len(w.targets)),
		users:       make(map[string]bool, len(w.users)),
		warnings:    append([]models.Warning(nil), w.warnings...),
		suspensions: append([]models.Suspension(nil), w.suspensions...),
		logs:        append([]models.ModerationLog(nil), w.logs...),
	}
	for id, report := range w.reports {
		copied := *report
		snap.reports[id] = &copied
	}
	for key, target := range w.targets {
		copied := *target
		snap.targets[key] = &copied
	}
	for id, suspended := range w.users {
		snap.users[id] = suspended
	}
	return snap
}

func (w *memWorld) restore(snap *memWorld) {
	w.seq = snap.seq
	w.reports = snap.reports
	w.targets = snap.targets
	w.users = snap.users
	w.warnings = snap.warnings
	w.suspensions = snap.suspensions
	w.logs = snap.logs
}

func (w *memWorld) resolve(kind models.TargetType, id string) (*models.TargetDescriptor, error) {
	target, ok := w.targets[targetKey(kind, id)]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &models.TargetDescriptor{Kind: kind, ID: id, Exists: true, OwnerID: target.owner, Hidden: target.hidden}, nil
}

func (w *memWorld) report(id string) *models.Report {
	w.mu.Lock()
	defer w.mu.Unlock()
	report, ok := w.reports[id]
	if !ok {
		return nil
	}
	copied := *report
	return &copied
}

func (w *memWorld) logCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.logs)
}

func (w *memWorld) suspended(userID string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.users[userID]
}

// Resolve implements targetLookup.
func (w *memWorld) Resolve(ctx context.Context, kind models.TargetType, id string) (*models.TargetDescriptor, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.resolve(kind, id)
}

func (w *memWorld) HasOpen(ctx context.Context, reporterID string, kind models.TargetType, targetID string) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.hasOpen(reporterID, kind, targetID), nil
}

func (w *memWorld) hasOpen(reporterID string, kind models.TargetType, targetID string) bool {
	for _, report := range w.reports {
		if report.ReporterID == reporterID && report.TargetType == kind && report.TargetID == targetID && report.Status.Open() {
			return true
		}
	}
	return false
}

func (w *memWorld) Create(ctx context.Context, report *models.Report) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.hasOpen(report.ReporterID, report.TargetType, report.TargetID) {
		return repository.ErrDuplicateOpenReport
	}
	report.ID = w.nextID("report")
	report.Status = models.ReportStatusPending
	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now().UTC()
	}
	report.UpdatedAt = report.CreatedAt
	copied := *report
	w.reports[report.ID] = &copied
	return nil
}

func (w *memWorld) GetByID(ctx context.Context, id string) (*models.Report, error) {
	if report := w.report(id); report != nil {
		return report, nil
	}
	return nil, sql.ErrNoRows
}

func (w *memWorld) filtered(filter models.ReportFilter) []models.Report {
	statuses := map[models.ReportStatus]bool{}
	for _, status := range filter.Status {
		statuses[status] = true
	}
	var out []models.Report
	for _, report := range w.reports {
		if len(statuses) > 0 && !statuses[report.Status] {
			continue
		}
		if filter.Priority != "" && report.Priority != filter.Priority {
			continue
		}
		if filter.TargetType != "" && report.TargetType != filter.TargetType {
			continue
		}
		out = append(out, *report)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority.Rank() != out[j].Priority.Rank() {
			return out[i].Priority.Rank() > out[j].Priority.Rank()
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (w *memWorld) List(ctx context.Context, filter models.ReportFilter) ([]models.Report, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	all := w.filtered(filter)
	start := (filter.Page - 1) * filter.PageSize
	if start >= len(all) {
		return nil, nil
	}
	end := start + filter.PageSize
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], nil
}

func (w *memWorld) Count(ctx context.Context, filter models.ReportFilter) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.filtered(filter)), nil
}

func (w *memWorld) Claim(ctx context.Context, id, moderatorID string, claimedAt time.Time) (*models.Report, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	report, ok := w.reports[id]
	if !ok || report.Status != models.ReportStatusPending {
		return nil, sql.ErrNoRows
	}
	report.Status = models.ReportStatusInReview
	report.ClaimedBy = &moderatorID
	report.ClaimedAt = &claimedAt
	copied := *report
	return &copied, nil
}

func (w *memWorld) IsSuspended(ctx context.Context, userID string) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return (&memTx{w: w}).IsSuspended(ctx, userID)
}

func (w *memWorld) ListWarnings(ctx context.Context, userID string) ([]models.Warning, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []models.Warning
	for _, warning := range w.warnings {
		if warning.UserID == userID {
			out = append(out, warning)
		}
	}
	return out, nil
}

func (w *memWorld) ListSuspensions(ctx context.Context, userID string) ([]models.Suspension, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []models.Suspension
	for _, suspension := range w.suspensions {
		if suspension.UserID == userID {
			out = append(out, suspension)
		}
	}
	return out, nil
}

type memStore struct {
	w *memWorld
}

func (s *memStore) run(fn func(tx *memTx) error) error {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	snap := s.w.snapshot()
	if err := fn(&memTx{w: s.w}); err != nil {
		s.w.restore(snap)
		return err
	}
	return nil
}

func (s *memStore) WithinTx(ctx context.Context, fn func(tx repository.ModerationTx) error) error {
	return s.run(func(tx *memTx) error { return fn(tx) })
}

func (s *memStore) WithinSanctionTx(ctx context.Context, fn func(tx repository.SanctionTx) error) error {
	return s.run(func(tx *memTx) error { return fn(tx) })
}

// memTx runs with memWorld.mu held.
type memTx struct {
	w *memWorld
}

func (t *memTx) GetReport(ctx context.Context, id string) (*models.Report, error) {
	report, ok := t.w.reports[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *report
	return &copied, nil
}

func (t *memTx) MarkResolved(ctx context.Context, params repository.ResolveReportParams) (*models.Report, error) {
	report, ok := t.w.reports[params.ID]
	if !ok || report.Status == models.ReportStatusResolved {
		return nil, sql.ErrNoRows
	}
	action := params.Action
	resolvedAt := params.ResolvedAt
	resolvedBy := params.ResolvedBy
	report.Status = models.ReportStatusResolved
	report.ResolvedBy = &resolvedBy
	report.ResolvedAt = &resolvedAt
	report.ModeratorNotes = params.Notes
	report.ActionTaken = &action
	copied := *report
	return &copied, nil
}

func (t *memTx) ResolveTarget(ctx context.Context, kind models.TargetType, id string) (*models.TargetDescriptor, error) {
	return t.w.resolve(kind, id)
}

func (t *memTx) HideContent(ctx context.Context, kind models.TargetType, id string) error {
	if t.w.hideErr != nil {
		return t.w.hideErr
	}
	target, ok := t.w.targets[targetKey(kind, id)]
	if !ok {
		return sql.ErrNoRows
	}
	target.hidden = true
	return nil
}

func (t *memTx) DeleteContent(ctx context.Context, kind models.TargetType, id string) error {
	if _, ok := t.w.targets[targetKey(kind, id)]; !ok {
		return sql.ErrNoRows
	}
	delete(t.w.targets, targetKey(kind, id))
	return nil
}

func (t *memTx) CreateWarning(ctx context.Context, warning *models.Warning) error {
	if t.w.sanctionErr != nil {
		return t.w.sanctionErr
	}
	warning.ID = t.w.nextID("warning")
	t.w.warnings = append(t.w.warnings, *warning)
	return nil
}

func (t *memTx) CreateSuspension(ctx context.Context, suspension *models.Suspension) error {
	if t.w.sanctionErr != nil {
		return t.w.sanctionErr
	}
	suspension.ID = t.w.nextID("suspension")
	suspension.IsActive = true
	t.w.suspensions = append(t.w.suspensions, *suspension)
	return nil
}

func (t *memTx) RefreshSuspendedFlags(ctx context.Context, userIDs []string) error {
	for _, userID := range userIDs {
		if _, ok := t.w.users[userID]; !ok {
			continue
		}
		suspended := false
		for _, suspension := range t.w.suspensions {
			if suspension.UserID == userID && suspension.IsActive && suspension.Type.FullRestriction() {
				suspended = true
			}
		}
		t.w.users[userID] = suspended
	}
	return nil
}

func (t *memTx) CreateLog(ctx context.Context, entry *models.ModerationLog) error {
	if t.w.logErr != nil {
		return t.w.logErr
	}
	entry.ID = t.w.nextID("log")
	t.w.logs = append(t.w.logs, *entry)
	return nil
}

func (t *memTx) Savepoint(ctx context.Context, name string, fn func() error) error {
	snap := t.w.snapshot()
	if err := fn(); err != nil {
		t.w.restore(snap)
		return err
	}
	return nil
}

func (t *memTx) LiftSuspension(ctx context.Context, id, liftedBy string, liftedAt time.Time) (string, bool, error) {
	for i := range t.w.suspensions {
		suspension := &t.w.suspensions[i]
		if suspension.ID != id {
			continue
		}
		if !suspension.IsActive {
			return suspension.UserID, false, nil
		}
		suspension.IsActive = false
		suspension.LiftedAt = &liftedAt
		suspension.LiftedBy = &liftedBy
		return suspension.UserID, true, nil
	}
	return "", false, sql.ErrNoRows
}

func (t *memTx) LiftUserSuspensions(ctx context.Context, userID, liftedBy string, liftedAt time.Time) (int64, error) {
	var lifted int64
	for i := range t.w.suspensions {
		suspension := &t.w.suspensions[i]
		if suspension.UserID == userID && suspension.IsActive {
			suspension.IsActive = false
			suspension.LiftedAt = &liftedAt
			suspension.LiftedBy = &liftedBy
			lifted++
		}
	}
	return lifted, nil
}

func (t *memTx) LockExpired(ctx context.Context, now time.Time, limit int) ([]models.ExpiredSuspension, error) {
	var candidates []models.Suspension
	for _, suspension := range t.w.suspensions {
		if suspension.IsActive && suspension.Type == models.SuspensionTemporary && suspension.EndsAt != nil && !suspension.EndsAt.After(now) {
			candidates = append(candidates, suspension)
		}
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].EndsAt.Before(*candidates[j].EndsAt) })
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	out := make([]models.ExpiredSuspension, 0, len(candidates))
	for _, suspension := range candidates {
		out = append(out, models.ExpiredSuspension{ID: suspension.ID, UserID: suspension.UserID})
	}
	return out, nil
}

func (t *memTx) DeactivateSuspensions(ctx context.Context, ids []string) (int64, error) {
	wanted := map[string]bool{}
	for _, id := range ids {
		wanted[id] = true
	}
	var count int64
	for i := range t.w.suspensions {
		suspension := &t.w.suspensions[i]
		if wanted[suspension.ID] && suspension.IsActive && suspension.Type == models.SuspensionTemporary {
			suspension.IsActive = false
			count++
		}
	}
	return count, nil
}

func (t *memTx) IsSuspended(ctx context.Context, userID string) (bool, error) {
	suspended, ok := t.w.users[userID]
	if !ok {
		return false, sql.ErrNoRows
	}
	return suspended, nil
}

type stubSignals struct {
	signals models.ScoringSignals
	err     error
}

func (s stubSignals) Get(ctx context.Context, kind models.TargetType, id string) (models.ScoringSignals, error) {
	return s.signals, s.err
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []models.Notification
}

func (r *recordingNotifier) Dispatch(notification models.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, notification)
}

type countingInvalidator struct {
	calls int
}

func (c *countingInvalidator) Invalidate(ctx context.Context) { c.calls++ }
