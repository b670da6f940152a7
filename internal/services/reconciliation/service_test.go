package reconciliation

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"bank-reconciliation-backend/internal/lock"
	"bank-reconciliation-backend/internal/models"
	"bank-reconciliation-backend/internal/repository"
	"bank-reconciliation-backend/internal/repository/repotest"
	"bank-reconciliation-backend/internal/services/matching"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, time.February, 2, 9, 30, 0, 0, time.UTC)

type fixture struct {
	store   *repository.GormStore
	svc     *Service
	account *models.Account
	logs    *test.Hook
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := repotest.NewStore(t)
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	svc := NewService(store, matching.NewScorer(matching.DefaultConfig()),
		WithLogger(logger),
		WithClock(func() time.Time { return fixedNow }),
	)
	return &fixture{
		store:   store,
		svc:     svc,
		account: repotest.SeedAccount(t, store, "1000.00"),
		logs:    hook,
	}
}

// start opens a reconciliation whose book closing balance is bookClosing.
func (f *fixture) start(t *testing.T, statement *models.BankStatement, bookClosing string) *models.BankReconciliation {
	t.Helper()
	closing := repotest.Amount(bookClosing)
	opening := decimal.Zero
	rec, err := f.svc.StartReconciliation(context.Background(), StartInput{
		AccountID:          f.account.ID,
		BankStatementID:    statement.ID,
		BookOpeningBalance: &opening,
		BookClosingBalance: &closing,
	})
	require.NoError(t, err)
	return rec
}

func (f *fixture) bankLine(t *testing.T, id uuid.UUID) *models.BankTransaction {
	t.Helper()
	line, err := f.store.GetBankTransaction(context.Background(), id)
	require.NoError(t, err)
	return line
}

func (f *fixture) bookEntry(t *testing.T, id uuid.UUID) models.Transaction {
	t.Helper()
	entries, err := f.store.FindTransactions(context.Background(), []uuid.UUID{id})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	return entries[0]
}

func jan(d int) time.Time {
	return repotest.Date(2024, time.January, d)
}

func TestAutoMatch_ExactPair(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	statement, lines := repotest.SeedStatement(t, f.store, f.account, "0", "500.00",
		repotest.Line("500.00", "Payment to Vendor ABC", jan(15)))
	book := repotest.SeedBook(t, f.store, f.account, "500.00", "Payment to Vendor ABC", jan(15))
	rec := f.start(t, statement, "500.00")

	n, err := f.svc.AutoMatchTransactions(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	matches, err := f.svc.ListMatches(ctx, rec.ID)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, models.MatchTypeAuto, matches[0].MatchType)
	assert.Equal(t, 100, matches[0].ConfidenceScore)
	assert.Equal(t, lines[0].ID, matches[0].BankTransactionID)
	assert.Equal(t, book.ID, matches[0].TransactionID)

	var details matching.Breakdown
	require.NoError(t, json.Unmarshal(matches[0].MatchDetails, &details))
	assert.True(t, details.Eligible)
	assert.Equal(t, 100, details.Confidence)

	assert.True(t, f.bankLine(t, lines[0].ID).IsMatched)
	assert.True(t, f.bookEntry(t, book.ID).IsReconciled)
}

func TestAutoMatch_AmountOutsideToleranceIsNotMatched(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	statement, lines := repotest.SeedStatement(t, f.store, f.account, "0", "500.00",
		repotest.Line("500.00", "Payment to Vendor ABC", jan(15)))
	book := repotest.SeedBook(t, f.store, f.account, "600.00", "Payment to Vendor ABC", jan(15))
	rec := f.start(t, statement, "600.00")

	n, err := f.svc.AutoMatchTransactions(ctx, rec.ID)
	require.NoError(t, err)
	assert.Zero(t, n)

	assert.False(t, f.bankLine(t, lines[0].ID).IsMatched)
	assert.False(t, f.bookEntry(t, book.ID).IsReconciled)

	logs, err := f.svc.ListAuditLogs(ctx, rec.ID)
	require.NoError(t, err)
	assert.Empty(t, logs)
}

func TestAutoMatch_DateOutsideToleranceIsNotMatched(t *testing.T) {
	f := newFixture(t)

	statement, _ := repotest.SeedStatement(t, f.store, f.account, "0", "500.00",
		repotest.Line("500.00", "Payment to Vendor ABC", jan(15)))
	repotest.SeedBook(t, f.store, f.account, "500.00", "Payment to Vendor ABC", jan(19))
	rec := f.start(t, statement, "500.00")

	n, err := f.svc.AutoMatchTransactions(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestAutoMatch_SecondRunCreatesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	statement, _ := repotest.SeedStatement(t, f.store, f.account, "0", "650.00",
		repotest.Line("500.00", "Payment to Vendor ABC", jan(15)),
		repotest.Line("150.00", "Office supplies", jan(20)))
	repotest.SeedBook(t, f.store, f.account, "500.00", "Payment to Vendor ABC", jan(15))
	repotest.SeedBook(t, f.store, f.account, "150.00", "Office supplies", jan(21))
	rec := f.start(t, statement, "650.00")

	n, err := f.svc.AutoMatchTransactions(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = f.svc.AutoMatchTransactions(ctx, rec.ID)
	require.NoError(t, err)
	assert.Zero(t, n)

	matches, err := f.svc.ListMatches(ctx, rec.ID)
	require.NoError(t, err)
	assert.Len(t, matches, 2)
}

func TestAutoMatch_EachSideUsedOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	statement, lines := repotest.SeedStatement(t, f.store, f.account, "0", "200.00",
		repotest.Line("100.00", "Rent", jan(5)),
		repotest.Line("100.00", "Rent", jan(6)))
	book := repotest.SeedBook(t, f.store, f.account, "100.00", "Rent", jan(5))
	rec := f.start(t, statement, "200.00")

	n, err := f.svc.AutoMatchTransactions(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	matches, err := f.svc.ListMatches(ctx, rec.ID)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, lines[0].ID, matches[0].BankTransactionID, "same-day line wins")
	assert.Equal(t, book.ID, matches[0].TransactionID)
	assert.False(t, f.bankLine(t, lines[1].ID).IsMatched)
}

func TestAutoMatch_IgnoresOtherAccounts(t *testing.T) {
	f := newFixture(t)

	other := repotest.SeedAccount(t, f.store, "0")
	statement, _ := repotest.SeedStatement(t, f.store, f.account, "0", "500.00",
		repotest.Line("500.00", "Payment to Vendor ABC", jan(15)))
	repotest.SeedBook(t, f.store, other, "500.00", "Payment to Vendor ABC", jan(15))
	rec := f.start(t, statement, "500.00")

	n, err := f.svc.AutoMatchTransactions(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestAutoMatch_ConcurrentRunsDoNotDoubleMatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	statement, _ := repotest.SeedStatement(t, f.store, f.account, "0", "500.00",
		repotest.Line("500.00", "Payment to Vendor ABC", jan(15)))
	repotest.SeedBook(t, f.store, f.account, "500.00", "Payment to Vendor ABC", jan(15))
	rec := f.start(t, statement, "500.00")

	var wg sync.WaitGroup
	counts := make([]int, 4)
	errs := make([]error, 4)
	for i := range counts {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			counts[i], errs[i] = f.svc.AutoMatchTransactions(ctx, rec.ID)
		}(i)
	}
	wg.Wait()

	total := 0
	for i := range counts {
		require.NoError(t, errs[i])
		total += counts[i]
	}
	assert.Equal(t, 1, total)

	matches, err := f.svc.ListMatches(ctx, rec.ID)
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

// recordingLocker remembers every key it was asked to lock.
type recordingLocker struct {
	lock.Locker
	mu   sync.Mutex
	keys []string
}

func (r *recordingLocker) Lock(ctx context.Context, key string) (func(), error) {
	r.mu.Lock()
	r.keys = append(r.keys, key)
	r.mu.Unlock()
	return r.Locker.Lock(ctx, key)
}

func TestAutoMatch_StatementsOfOneAccountShareBookEntries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	locker := &recordingLocker{Locker: lock.NewLocal()}
	f.svc.locker = locker

	januaryA, _ := repotest.SeedStatement(t, f.store, f.account, "0", "500.00",
		repotest.Line("500.00", "Payment to Vendor ABC", jan(15)))
	januaryB, _ := repotest.SeedStatement(t, f.store, f.account, "0", "500.00",
		repotest.Line("500.00", "Payment to Vendor ABC", jan(15)))
	book := repotest.SeedBook(t, f.store, f.account, "500.00", "Payment to Vendor ABC", jan(15))
	recs := []*models.BankReconciliation{
		f.start(t, januaryA, "500.00"),
		f.start(t, januaryB, "500.00"),
	}

	var wg sync.WaitGroup
	counts := make([]int, len(recs))
	errs := make([]error, len(recs))
	for i, rec := range recs {
		wg.Add(1)
		go func(i int, id uuid.UUID) {
			defer wg.Done()
			counts[i], errs[i] = f.svc.AutoMatchTransactions(ctx, id)
		}(i, rec.ID)
	}
	wg.Wait()

	total := 0
	for i := range counts {
		require.NoError(t, errs[i])
		total += counts[i]
	}
	assert.Equal(t, 1, total)

	matched := 0
	for _, rec := range recs {
		matches, err := f.svc.ListMatches(ctx, rec.ID)
		require.NoError(t, err)
		for _, m := range matches {
			assert.Equal(t, book.ID, m.TransactionID)
		}
		matched += len(matches)
	}
	assert.Equal(t, 1, matched)
	assert.True(t, f.bookEntry(t, book.ID).IsReconciled)

	locker.mu.Lock()
	defer locker.mu.Unlock()
	require.NotEmpty(t, locker.keys)
	for _, key := range locker.keys {
		assert.Equal(t, "account:"+f.account.ID.String(), key)
	}
}

func TestMarkMatched_StaleFlagIsAlreadyMatched(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, lines := repotest.SeedStatement(t, f.store, f.account, "0", "500.00",
		repotest.Line("500.00", "Payment to Vendor ABC", jan(15)))
	book := repotest.SeedBook(t, f.store, f.account, "500.00", "Payment to Vendor ABC", jan(15))
	require.NoError(t, f.store.SetTransactionsReconciled(ctx, []uuid.UUID{book.ID}, true))

	err := f.store.WithinTransaction(ctx, func(store repository.Store) error {
		return markMatched(ctx, store, []uuid.UUID{lines[0].ID}, []uuid.UUID{book.ID})
	})
	assert.ErrorIs(t, err, ErrAlreadyMatched)
	assert.ErrorIs(t, err, repository.ErrFlagConflict)
	assert.False(t, f.bankLine(t, lines[0].ID).IsMatched)
}

func TestAutoMatch_UnknownReconciliation(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.AutoMatchTransactions(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestManualMatch_SplitPayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	statement, lines := repotest.SeedStatement(t, f.store, f.account, "0", "300.00",
		repotest.Line("300.00", "DEPOSIT 8812", jan(10)))
	a := repotest.SeedBook(t, f.store, f.account, "120.00", "Invoice 17", jan(8))
	b := repotest.SeedBook(t, f.store, f.account, "180.00", "Invoice 18", jan(9))
	rec := f.start(t, statement, "300.00")

	ctx = ContextWithActor(ctx, "jdoe")
	matches, err := f.svc.ManualMatch(ctx, rec.ID,
		[]uuid.UUID{lines[0].ID}, []uuid.UUID{a.ID, b.ID}, "two invoices in one deposit")
	require.NoError(t, err)
	require.Len(t, matches, 2)

	for _, m := range matches {
		assert.Equal(t, models.MatchTypeManual, m.MatchType)
		assert.Equal(t, matching.ManualConfidence, m.ConfidenceScore)
		assert.Equal(t, "two invoices in one deposit", m.Notes)
		assert.Equal(t, matches[0].GroupID, m.GroupID)
	}
	assert.NotEqual(t, uuid.Nil, matches[0].GroupID)

	assert.True(t, f.bankLine(t, lines[0].ID).IsMatched)
	assert.True(t, f.bookEntry(t, a.ID).IsReconciled)
	assert.True(t, f.bookEntry(t, b.ID).IsReconciled)

	logs, err := f.svc.ListAuditLogs(ctx, rec.ID)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, models.AuditActionManualMatch, logs[0].Action)
	assert.Equal(t, "jdoe", logs[0].PerformedBy)

	var bookIDs []uuid.UUID
	require.NoError(t, json.Unmarshal(logs[0].TransactionIDs, &bookIDs))
	assert.ElementsMatch(t, []uuid.UUID{a.ID, b.ID}, bookIDs)
}

func TestManualMatch_IgnoresSimilarity(t *testing.T) {
	f := newFixture(t)

	statement, lines := repotest.SeedStatement(t, f.store, f.account, "0", "10.00",
		repotest.Line("10.00", "FEE", jan(2)))
	book := repotest.SeedBook(t, f.store, f.account, "9999.00", "Something else", jan(28))
	rec := f.start(t, statement, "10.00")

	assert.Zero(t, f.svc.CalculateConfidenceScore(lines[0], *book))

	matches, err := f.svc.ManualMatch(context.Background(), rec.ID,
		[]uuid.UUID{lines[0].ID}, []uuid.UUID{book.ID}, "")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, 100, matches[0].ConfidenceScore)

	var details manualDetails
	require.NoError(t, json.Unmarshal(matches[0].MatchDetails, &details))
	assert.True(t, details.Override)
	assert.Zero(t, details.ScoreAtTime.Confidence)
}

func TestManualMatch_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	statement, lines := repotest.SeedStatement(t, f.store, f.account, "0", "500.00",
		repotest.Line("500.00", "Payment to Vendor ABC", jan(15)),
		repotest.Line("25.00", "Bank fee", jan(31)))
	book := repotest.SeedBook(t, f.store, f.account, "500.00", "Payment to Vendor ABC", jan(15))
	fee := repotest.SeedBook(t, f.store, f.account, "40.00", "Adjustment", jan(20))
	rec := f.start(t, statement, "500.00")

	other := repotest.SeedAccount(t, f.store, "0")
	foreignBook := repotest.SeedBook(t, f.store, other, "25.00", "Bank fee", jan(31))
	_, foreignLines := repotest.SeedStatement(t, f.store, other, "0", "25.00",
		repotest.Line("25.00", "Bank fee", jan(31)))

	_, err := f.svc.AutoMatchTransactions(ctx, rec.ID)
	require.NoError(t, err)

	tests := []struct {
		name    string
		bankIDs []uuid.UUID
		bookIDs []uuid.UUID
		want    error
	}{
		{"no bank ids", nil, []uuid.UUID{fee.ID}, ErrNoTransactions},
		{"no book ids", []uuid.UUID{lines[1].ID}, nil, ErrNoTransactions},
		{"unknown bank id", []uuid.UUID{uuid.New()}, []uuid.UUID{fee.ID}, ErrNotFound},
		{"unknown book id", []uuid.UUID{lines[1].ID}, []uuid.UUID{uuid.New()}, ErrNotFound},
		{"bank line already matched", []uuid.UUID{lines[0].ID}, []uuid.UUID{fee.ID}, ErrAlreadyMatched},
		{"book entry already matched", []uuid.UUID{lines[1].ID}, []uuid.UUID{book.ID}, ErrAlreadyMatched},
		{"line from another statement", []uuid.UUID{foreignLines[0].ID}, []uuid.UUID{fee.ID}, ErrOutOfScope},
		{"entry from another account", []uuid.UUID{lines[1].ID}, []uuid.UUID{foreignBook.ID}, ErrOutOfScope},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.ManualMatch(ctx, rec.ID, tt.bankIDs, tt.bookIDs, "")
			assert.ErrorIs(t, err, tt.want)
		})
	}

	// Nothing from the rejected calls may have been written.
	assert.False(t, f.bankLine(t, lines[1].ID).IsMatched)
	assert.False(t, f.bookEntry(t, fee.ID).IsReconciled)
	matches, err := f.svc.ListMatches(ctx, rec.ID)
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestUnmatch_RestoresBothSides(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	statement, lines := repotest.SeedStatement(t, f.store, f.account, "0", "500.00",
		repotest.Line("500.00", "Payment to Vendor ABC", jan(15)))
	book := repotest.SeedBook(t, f.store, f.account, "500.00", "Payment to Vendor ABC", jan(15))
	rec := f.start(t, statement, "500.00")

	_, err := f.svc.AutoMatchTransactions(ctx, rec.ID)
	require.NoError(t, err)

	removed, err := f.svc.UnmatchTransactions(ctx, rec.ID, []uuid.UUID{lines[0].ID}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	assert.False(t, f.bankLine(t, lines[0].ID).IsMatched)
	assert.False(t, f.bookEntry(t, book.ID).IsReconciled)

	matches, err := f.svc.ListMatches(ctx, rec.ID)
	require.NoError(t, err)
	assert.Empty(t, matches)

	// Both sides are candidates again.
	n, err := f.svc.AutoMatchTransactions(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestUnmatch_RemovesWholeGroup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	statement, lines := repotest.SeedStatement(t, f.store, f.account, "0", "300.00",
		repotest.Line("100.00", "Transfer part 1", jan(3)),
		repotest.Line("200.00", "Transfer part 2", jan(4)))
	book := repotest.SeedBook(t, f.store, f.account, "300.00", "Transfer", jan(3))
	rec := f.start(t, statement, "300.00")

	_, err := f.svc.ManualMatch(ctx, rec.ID, []uuid.UUID{lines[0].ID, lines[1].ID}, []uuid.UUID{book.ID}, "")
	require.NoError(t, err)

	removed, err := f.svc.UnmatchTransactions(ctx, rec.ID, []uuid.UUID{lines[1].ID}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	assert.False(t, f.bankLine(t, lines[0].ID).IsMatched)
	assert.False(t, f.bankLine(t, lines[1].ID).IsMatched)
	assert.False(t, f.bookEntry(t, book.ID).IsReconciled)

	logs, err := f.svc.ListAuditLogs(ctx, rec.ID)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	var actions []models.AuditAction
	for _, entry := range logs {
		actions = append(actions, entry.Action)
	}
	assert.ElementsMatch(t, []models.AuditAction{models.AuditActionManualMatch, models.AuditActionUnmatch}, actions)
}

func TestUnmatch_NothingMatched(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	statement, lines := repotest.SeedStatement(t, f.store, f.account, "0", "500.00",
		repotest.Line("500.00", "Payment to Vendor ABC", jan(15)))
	rec := f.start(t, statement, "500.00")

	removed, err := f.svc.UnmatchTransactions(ctx, rec.ID, []uuid.UUID{lines[0].ID}, nil)
	require.NoError(t, err)
	assert.Zero(t, removed)

	_, err = f.svc.UnmatchTransactions(ctx, rec.ID, nil, nil)
	assert.ErrorIs(t, err, ErrNoTransactions)
}

func TestComplete_Unbalanced(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	statement, _ := repotest.SeedStatement(t, f.store, f.account, "0", "500.00")
	rec := f.start(t, statement, "499.99")

	ok, err := f.svc.CompleteReconciliation(ctx, rec.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := f.svc.GetReconciliation(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReconciliationInProgress, got.Status)
	assert.Nil(t, got.ReconciledAt)
}

func TestComplete_BalancedIsTerminal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	statement, lines := repotest.SeedStatement(t, f.store, f.account, "0", "500.00",
		repotest.Line("500.00", "Payment to Vendor ABC", jan(15)))
	book := repotest.SeedBook(t, f.store, f.account, "500.00", "Payment to Vendor ABC", jan(15))
	rec := f.start(t, statement, "500.004")

	ok, err := f.svc.CompleteReconciliation(ctx, rec.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := f.svc.GetReconciliation(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReconciliationCompleted, got.Status)
	require.NotNil(t, got.ReconciledAt)
	assert.True(t, fixedNow.Equal(*got.ReconciledAt))

	_, err = f.svc.CompleteReconciliation(ctx, rec.ID)
	assert.ErrorIs(t, err, ErrReconciliationCompleted)
	_, err = f.svc.AutoMatchTransactions(ctx, rec.ID)
	assert.ErrorIs(t, err, ErrReconciliationCompleted)
	_, err = f.svc.ManualMatch(ctx, rec.ID, []uuid.UUID{lines[0].ID}, []uuid.UUID{book.ID}, "")
	assert.ErrorIs(t, err, ErrReconciliationCompleted)
	_, err = f.svc.UnmatchTransactions(ctx, rec.ID, []uuid.UUID{lines[0].ID}, nil)
	assert.ErrorIs(t, err, ErrReconciliationCompleted)
	_, err = f.svc.UpdateBookBalances(ctx, rec.ID, decimal.Zero, decimal.Zero)
	assert.ErrorIs(t, err, ErrReconciliationCompleted)

	assert.False(t, f.bankLine(t, lines[0].ID).IsMatched)
}

func TestComplete_AfterBookBalanceCorrection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	statement, _ := repotest.SeedStatement(t, f.store, f.account, "100.00", "750.00")
	rec := f.start(t, statement, "700.00")

	ok, err := f.svc.CompleteReconciliation(ctx, rec.ID)
	require.NoError(t, err)
	require.False(t, ok)

	updated, err := f.svc.UpdateBookBalances(ctx, rec.ID, repotest.Amount("100.00"), repotest.Amount("750.00"))
	require.NoError(t, err)
	assert.True(t, updated.IsBalanced())

	ok, err = f.svc.CompleteReconciliation(ctx, rec.ID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSuggestions_RankedByConfidence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	statement, lines := repotest.SeedStatement(t, f.store, f.account, "0", "500.00",
		repotest.Line("500.00", "Payment to Vendor ABC", jan(15)))
	exact := repotest.SeedBook(t, f.store, f.account, "500.00", "Payment to Vendor ABC", jan(15))
	near := repotest.SeedBook(t, f.store, f.account, "499.50", "Vendor ABC", jan(16))
	repotest.SeedBook(t, f.store, f.account, "800.00", "Payroll", jan(15))
	rec := f.start(t, statement, "500.00")

	got, err := f.svc.GetSuggestedMatches(ctx, rec.ID, lines[0].ID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, exact.ID, got[0].Transaction.ID)
	assert.Equal(t, 100, got[0].ConfidenceScore)
	assert.Equal(t, near.ID, got[1].Transaction.ID)
	assert.Less(t, got[1].ConfidenceScore, got[0].ConfidenceScore)

	// Suggestions never write.
	assert.False(t, f.bankLine(t, lines[0].ID).IsMatched)
	matches, err := f.svc.ListMatches(ctx, rec.ID)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestSuggestions_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	statement, lines := repotest.SeedStatement(t, f.store, f.account, "0", "500.00",
		repotest.Line("500.00", "Payment to Vendor ABC", jan(15)))
	repotest.SeedBook(t, f.store, f.account, "500.00", "Payment to Vendor ABC", jan(15))
	rec := f.start(t, statement, "500.00")

	_, err := f.svc.GetSuggestedMatches(ctx, rec.ID, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.AutoMatchTransactions(ctx, rec.ID)
	require.NoError(t, err)
	_, err = f.svc.GetSuggestedMatches(ctx, rec.ID, lines[0].ID)
	assert.ErrorIs(t, err, ErrAlreadyMatched)
}

func TestStart_DerivesBookBalances(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	repotest.SeedBook(t, f.store, f.account, "300.00", "Deposit", jan(3))
	repotest.SeedBook(t, f.store, f.account, "-50.00", "Card", jan(31))
	repotest.SeedBook(t, f.store, f.account, "-20.00", "Previous month", repotest.Date(2023, time.December, 30))
	statement, _ := repotest.SeedStatement(t, f.store, f.account, "750.00", "1000.00")

	rec, err := f.svc.StartReconciliation(ctx, StartInput{
		AccountID:       f.account.ID,
		BankStatementID: statement.ID,
		Notes:           "January",
	})
	require.NoError(t, err)

	assert.Equal(t, models.ReconciliationInProgress, rec.Status)
	assert.True(t, repotest.Amount("750.00").Equal(rec.StatementOpeningBalance))
	assert.True(t, repotest.Amount("1000.00").Equal(rec.StatementClosingBalance))
	assert.True(t, repotest.Amount("1000.00").Equal(rec.BookClosingBalance), rec.BookClosingBalance.String())
	assert.True(t, repotest.Amount("750.00").Equal(rec.BookOpeningBalance), rec.BookOpeningBalance.String())
	assert.True(t, rec.IsBalanced())
}

func TestStart_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	statement, _ := repotest.SeedStatement(t, f.store, f.account, "0", "0")
	f.start(t, statement, "0")

	_, err := f.svc.StartReconciliation(ctx, StartInput{AccountID: f.account.ID, BankStatementID: statement.ID})
	assert.ErrorIs(t, err, ErrReconciliationInProgress)

	other := repotest.SeedAccount(t, f.store, "0")
	_, err = f.svc.StartReconciliation(ctx, StartInput{AccountID: other.ID, BankStatementID: statement.ID})
	assert.ErrorIs(t, err, ErrOutOfScope)

	_, err = f.svc.StartReconciliation(ctx, StartInput{AccountID: f.account.ID, BankStatementID: uuid.New()})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStart_AllowedAgainAfterCompletion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	statement, _ := repotest.SeedStatement(t, f.store, f.account, "0", "0")
	rec := f.start(t, statement, "0")

	ok, err := f.svc.CompleteReconciliation(ctx, rec.ID)
	require.NoError(t, err)
	require.True(t, ok)

	again := f.start(t, statement, "0")
	assert.NotEqual(t, rec.ID, again.ID)
}

func TestSummary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	statement, lines := repotest.SeedStatement(t, f.store, f.account, "0", "675.00",
		repotest.Line("500.00", "Payment to Vendor ABC", jan(15)),
		repotest.Line("150.00", "DEPOSIT", jan(18)),
		repotest.Line("25.00", "Bank fee", jan(31)))
	repotest.SeedBook(t, f.store, f.account, "500.00", "Payment to Vendor ABC", jan(15))
	a := repotest.SeedBook(t, f.store, f.account, "100.00", "Invoice 1", jan(17))
	b := repotest.SeedBook(t, f.store, f.account, "50.00", "Invoice 2", jan(17))
	repotest.SeedBook(t, f.store, f.account, "999.00", "Unrelated", jan(2))
	rec := f.start(t, statement, "650.00")

	_, err := f.svc.AutoMatchTransactions(ctx, rec.ID)
	require.NoError(t, err)
	_, err = f.svc.ManualMatch(ctx, rec.ID, []uuid.UUID{lines[1].ID}, []uuid.UUID{a.ID, b.ID}, "")
	require.NoError(t, err)

	sum, err := f.svc.Summary(ctx, rec.ID)
	require.NoError(t, err)

	assert.Equal(t, int64(2), sum.MatchedBankCount)
	assert.True(t, repotest.Amount("650").Equal(sum.MatchedBankTotal), sum.MatchedBankTotal.String())
	assert.Equal(t, int64(1), sum.UnmatchedBankCount)
	assert.True(t, repotest.Amount("25").Equal(sum.UnmatchedBankTotal), sum.UnmatchedBankTotal.String())

	assert.Equal(t, 3, sum.MatchedBookCount)
	assert.True(t, repotest.Amount("650").Equal(sum.MatchedBookTotal))
	assert.Equal(t, int64(1), sum.UnreconciledBookCount)

	assert.Equal(t, 1, sum.AutoMatches)
	assert.Equal(t, 2, sum.ManualMatches)
	assert.True(t, repotest.Amount("25").Equal(sum.Difference))
	assert.False(t, sum.IsBalanced)
}

func TestExpectedErrorsAreNotLoggedAsFailures(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.AutoMatchTransactions(context.Background(), uuid.New())
	require.Error(t, err)

	for _, entry := range f.logs.AllEntries() {
		assert.NotEqual(t, logrus.ErrorLevel, entry.Level)
	}
}
