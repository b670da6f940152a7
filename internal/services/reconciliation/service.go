// Package reconciliation matches imported bank statement lines against book
// entries and gates completion of a reconciliation on balanced closing figures.
//
// Every mutating operation takes a lock on the reconciliation's account and
// runs inside one database transaction, so a match row and both side flags
// change together. Book entries are shared by every reconciliation of an
// account, hence the account-wide lock.
package reconciliation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bank-reconciliation-backend/internal/config"
	"bank-reconciliation-backend/internal/lock"
	"bank-reconciliation-backend/internal/metrics"
	"bank-reconciliation-backend/internal/models"
	"bank-reconciliation-backend/internal/repository"
	"bank-reconciliation-backend/internal/services/matching"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const moduleName = "reconciliation"

var tracer = otel.Tracer("bank-reconciliation-backend/reconciliation")

type Service struct {
	store   repository.Store
	scorer  *matching.Scorer
	locker  lock.Locker
	logger  logrus.FieldLogger
	metrics *metrics.Recorder
	now     func() time.Time
}

type Option func(*Service)

func WithLocker(l lock.Locker) Option {
	return func(s *Service) { s.locker = l }
}

func WithMetrics(r *metrics.Recorder) Option {
	return func(s *Service) { s.metrics = r }
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Service) { s.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(store repository.Store, scorer *matching.Scorer, opts ...Option) *Service {
	s := &Service{
		store:  store,
		scorer: scorer,
		locker: lock.NewLocal(),
		logger: logrus.StandardLogger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func accountLockKey(accountID uuid.UUID) string {
	return "account:" + accountID.String()
}

// mutate runs fn under the account lock and a database transaction, after
// checking the reconciliation is still in progress.
func (s *Service) mutate(ctx context.Context, recID uuid.UUID, fn func(store repository.Store, rec *models.BankReconciliation) error) error {
	owner, err := getReconciliation(ctx, s.store, recID)
	if err != nil {
		return err
	}
	unlock, err := s.locker.Lock(ctx, accountLockKey(owner.AccountID))
	if err != nil {
		return err
	}
	defer unlock()

	return s.store.WithinTransaction(ctx, func(store repository.Store) error {
		rec, err := getReconciliation(ctx, store, recID)
		if err != nil {
			return err
		}
		if rec.IsCompleted() {
			return ErrReconciliationCompleted
		}
		return fn(store, rec)
	})
}

func (s *Service) GetReconciliation(ctx context.Context, id uuid.UUID) (*models.BankReconciliation, error) {
	return getReconciliation(ctx, s.store, id)
}

func (s *Service) ListReconciliations(ctx context.Context, accountID uuid.UUID) ([]models.BankReconciliation, error) {
	return s.store.ListReconciliations(ctx, accountID)
}

func (s *Service) ListMatches(ctx context.Context, id uuid.UUID) ([]models.BankReconciliationMatch, error) {
	if _, err := getReconciliation(ctx, s.store, id); err != nil {
		return nil, err
	}
	return s.store.ListMatches(ctx, id)
}

func (s *Service) ListAuditLogs(ctx context.Context, id uuid.UUID) ([]models.ReconciliationAuditLog, error) {
	if _, err := getReconciliation(ctx, s.store, id); err != nil {
		return nil, err
	}
	return s.store.ListAuditLogs(ctx, id)
}

// CalculateConfidenceScore scores a statement line against a book entry,
// 0..100. Pairs outside the amount or date bounds score 0.
func (s *Service) CalculateConfidenceScore(bank models.BankTransaction, book models.Transaction) int {
	return s.scorer.Confidence(bank, book)
}

func getReconciliation(ctx context.Context, store repository.Store, id uuid.UUID) (*models.BankReconciliation, error) {
	rec, err := store.GetReconciliation(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("reconciliation %s: %w", id, ErrNotFound)
	}
	return rec, err
}

func (s *Service) startSpan(ctx context.Context, name string, recID uuid.UUID) (context.Context, trace.Span) {
	return tracer.Start(ctx, "reconciliation."+name,
		trace.WithAttributes(attribute.String("reconciliation.id", recID.String())))
}

// finish records err on span and logs unexpected failures.
func (s *Service) finish(span trace.Span, funcName string, recID uuid.UUID, err error) {
	defer span.End()
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	if isExpected(err) {
		return
	}
	config.LogError(s.logger, moduleName, funcName, "reconciliation operation failed", map[string]string{
		"reconciliation_id": recID.String(),
	}, err)
}

// isExpected reports errors that are caller mistakes rather than failures.
func isExpected(err error) bool {
	for _, target := range []error{
		ErrNotFound, ErrReconciliationCompleted, ErrReconciliationInProgress,
		ErrAlreadyMatched, ErrOutOfScope, ErrNoTransactions, lock.ErrLocked,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

type actorKey struct{}

// ContextWithActor tags ctx with the operator recorded in audit logs.
func ContextWithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

func actorFrom(ctx context.Context) string {
	if v, ok := ctx.Value(actorKey{}).(string); ok && v != "" {
		return v
	}
	return "system"
}

// markMatched sets both side flags. A flag another writer already set
// surfaces as ErrAlreadyMatched and rolls the caller's transaction back.
func markMatched(ctx context.Context, store repository.Store, bankIDs, bookIDs []uuid.UUID) error {
	if err := store.SetBankTransactionsMatched(ctx, bankIDs, true); err != nil {
		return claimError(err)
	}
	if err := store.SetTransactionsReconciled(ctx, bookIDs, true); err != nil {
		return claimError(err)
	}
	return nil
}

func claimError(err error) error {
	if errors.Is(err, repository.ErrFlagConflict) {
		return fmt.Errorf("%w: %w", ErrAlreadyMatched, err)
	}
	return err
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
