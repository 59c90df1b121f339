package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jonboulle/clockwork"

	"github.com/fairyhunter13/coin-rewards-ledger/internal/game"
	"github.com/fairyhunter13/coin-rewards-ledger/internal/model"
	"github.com/fairyhunter13/coin-rewards-ledger/pkg/database"
)

// mockTx is a mock implementation of pgx.Tx for testing transactions.
type mockTx struct {
	commitFn   func(ctx context.Context) error
	rollbackFn func(ctx context.Context) error
}

func (m *mockTx) Begin(ctx context.Context) (pgx.Tx, error) {
	return nil, errors.New("nested transactions not supported")
}

func (m *mockTx) Commit(ctx context.Context) error {
	if m.commitFn != nil {
		return m.commitFn(ctx)
	}
	return nil
}

func (m *mockTx) Rollback(ctx context.Context) error {
	if m.rollbackFn != nil {
		return m.rollbackFn(ctx)
	}
	return nil
}

func (m *mockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}

func (m *mockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	return nil
}

func (m *mockTx) LargeObjects() pgx.LargeObjects {
	return pgx.LargeObjects{}
}

func (m *mockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}

func (m *mockTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (m *mockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}

func (m *mockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}

func (m *mockTx) Conn() *pgx.Conn {
	return nil
}

// mockTxBeginner is a mock implementation of TxBeginner.
type mockTxBeginner struct {
	beginFn func(ctx context.Context) (pgx.Tx, error)
}

func (m *mockTxBeginner) Begin(ctx context.Context) (pgx.Tx, error) {
	if m.beginFn != nil {
		return m.beginFn(ctx)
	}
	return &mockTx{}, nil
}

type pair struct{ a, b string }

// storeState is the in-memory equivalent of the database schema.
type storeState struct {
	users         map[string]model.User
	tasks         map[string]model.Task
	completions   map[pair]time.Time
	verifications map[string]model.TaskVerification
	coupons       map[string]model.Coupon
	claims        map[pair]time.Time
	withdrawals   map[string]model.Withdrawal
	settings      model.Settings
	entries       []model.LedgerEntry
	welcomed      map[string]bool
	nextEntryID   int64
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s storeState) clone() storeState {
	c := s
	c.users = cloneMap(s.users)
	c.tasks = cloneMap(s.tasks)
	c.completions = cloneMap(s.completions)
	c.verifications = cloneMap(s.verifications)
	c.coupons = cloneMap(s.coupons)
	c.claims = cloneMap(s.claims)
	c.withdrawals = cloneMap(s.withdrawals)
	c.welcomed = cloneMap(s.welcomed)
	c.entries = append([]model.LedgerEntry(nil), s.entries...)
	return c
}

// fakeStore serializes transactions with one mutex and restores a snapshot on rollback.
// Repository calls that receive a non-nil querier run inside a transaction and already hold the lock.
type fakeStore struct {
	mu        sync.Mutex
	state     storeState
	commitErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{state: storeState{
		users:         map[string]model.User{},
		tasks:         map[string]model.Task{},
		completions:   map[pair]time.Time{},
		verifications: map[string]model.TaskVerification{},
		coupons:       map[string]model.Coupon{},
		claims:        map[pair]time.Time{},
		withdrawals:   map[string]model.Withdrawal{},
		welcomed:      map[string]bool{},
		settings: model.Settings{
			DailyBonusAmount:    20,
			ReferralBonusAmount: 100,
			MinWithdrawal:       1000,
			AdCodes:             map[string][]string{"main": {}, "tasks": {}, "games": {}, "daily": {}},
		},
	}}
}

func (s *fakeStore) guard(q database.TxQuerier) func() {
	if q != nil {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// Begin implements TxBeginner.
func (s *fakeStore) Begin(ctx context.Context) (pgx.Tx, error) {
	s.mu.Lock()
	snapshot := s.state.clone()
	done := false
	finish := func(restore bool) {
		if done {
			return
		}
		done = true
		if restore {
			s.state = snapshot
		}
		s.mu.Unlock()
	}
	return &mockTx{
		commitFn: func(ctx context.Context) error {
			if done {
				return errors.New("tx closed")
			}
			if s.commitErr != nil {
				finish(true)
				return s.commitErr
			}
			finish(false)
			return nil
		},
		rollbackFn: func(ctx context.Context) error {
			finish(true)
			return nil
		},
	}, nil
}

// user returns a copy of the stored profile, for assertions.
func (s *fakeStore) user(id string) model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.users[id]
}

func (s *fakeStore) putUser(u model.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ReferralCode == "" {
		u.ReferralCode = "REF-" + u.ID
	}
	s.state.users[u.ID] = u
}

func (s *fakeStore) coupon(code string) model.Coupon {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.state.coupons {
		if c.Code == code {
			return c
		}
	}
	return model.Coupon{}
}

func (s *fakeStore) putCoupon(c model.Coupon) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = "cpn-" + c.Code
	}
	s.state.coupons[c.ID] = c
}

func (s *fakeStore) putTask(t model.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.tasks[t.ID] = t
}

func (s *fakeStore) setSettings(fn func(*model.Settings)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.state.settings)
}

func (s *fakeStore) entries(userID string) []model.LedgerEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.LedgerEntry
	for _, e := range s.state.entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out
}

type fakeUsers struct{ *fakeStore }

func (f fakeUsers) GetForUpdate(ctx context.Context, tx database.TxQuerier, id string) (*model.User, error) {
	defer f.guard(tx)()
	u, ok := f.state.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &u, nil
}

func (f fakeUsers) UpdateCoins(ctx context.Context, tx database.TxQuerier, id string, coins int64) error {
	defer f.guard(tx)()
	u, ok := f.state.users[id]
	if !ok {
		return ErrUserNotFound
	}
	if coins < 0 {
		return errors.New("users_coins_check violated")
	}
	u.Coins = coins
	f.state.users[id] = u
	return nil
}

func (f fakeUsers) GetByID(ctx context.Context, id string) (*model.User, error) {
	defer f.guard(nil)()
	u, ok := f.state.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (f fakeUsers) GetByReferralCode(ctx context.Context, tx database.TxQuerier, code string) (*model.User, error) {
	defer f.guard(tx)()
	for _, u := range f.state.users {
		if u.ReferralCode == code {
			return &u, nil
		}
	}
	return nil, nil
}

func (f fakeUsers) Insert(ctx context.Context, tx database.TxQuerier, user *model.User) (bool, error) {
	defer f.guard(tx)()
	if _, ok := f.state.users[user.ID]; ok {
		return false, nil
	}
	stored := *user
	stored.TasksCompleted = nil
	stored.CouponsClaimed = nil
	f.state.users[user.ID] = stored
	return true, nil
}

func (f fakeUsers) IncrementReferrals(ctx context.Context, tx database.TxQuerier, id string) error {
	defer f.guard(tx)()
	u := f.state.users[id]
	u.TotalReferrals++
	f.state.users[id] = u
	return nil
}

func (f fakeUsers) SetLastDailyBonus(ctx context.Context, tx database.TxQuerier, id string, at time.Time) error {
	defer f.guard(tx)()
	u := f.state.users[id]
	u.LastDailyBonus = &at
	f.state.users[id] = u
	return nil
}

func (f fakeUsers) SetBlocked(ctx context.Context, tx database.TxQuerier, id string, blocked bool) error {
	defer f.guard(tx)()
	u := f.state.users[id]
	u.IsBlocked = blocked
	f.state.users[id] = u
	return nil
}

func (f fakeUsers) List(ctx context.Context, limit, offset int) ([]model.User, error) {
	defer f.guard(nil)()
	all := make([]model.User, 0, len(f.state.users))
	for _, u := range f.state.users {
		all = append(all, u)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	if offset >= len(all) {
		return []model.User{}, nil
	}
	return all[offset:min(len(all), offset+limit)], nil
}

func (f fakeUsers) MarkWelcomed(ctx context.Context, clientID string) (bool, error) {
	defer f.guard(nil)()
	if f.state.welcomed[clientID] {
		return false, nil
	}
	f.state.welcomed[clientID] = true
	return true, nil
}

type fakeTasks struct{ *fakeStore }

func (f fakeTasks) Insert(ctx context.Context, task *model.Task) error {
	defer f.guard(nil)()
	f.state.tasks[task.ID] = *task
	return nil
}

func (f fakeTasks) Update(ctx context.Context, task *model.Task) error {
	defer f.guard(nil)()
	existing, ok := f.state.tasks[task.ID]
	if !ok {
		return ErrTaskNotFound
	}
	task.CreatedAt = existing.CreatedAt
	f.state.tasks[task.ID] = *task
	return nil
}

func (f fakeTasks) Delete(ctx context.Context, id string) error {
	defer f.guard(nil)()
	if _, ok := f.state.tasks[id]; !ok {
		return ErrTaskNotFound
	}
	delete(f.state.tasks, id)
	return nil
}

func (f fakeTasks) GetByID(ctx context.Context, q database.TxQuerier, id string) (*model.Task, error) {
	defer f.guard(q)()
	t, ok := f.state.tasks[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (f fakeTasks) List(ctx context.Context, activeOnly bool) ([]model.Task, error) {
	defer f.guard(nil)()
	out := []model.Task{}
	for _, t := range f.state.tasks {
		if activeOnly && !t.IsActive {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type fakeCompletions struct{ *fakeStore }

func (f fakeCompletions) Exists(ctx context.Context, q database.TxQuerier, userID, taskID string) (bool, error) {
	defer f.guard(q)()
	_, ok := f.state.completions[pair{userID, taskID}]
	return ok, nil
}

func (f fakeCompletions) Insert(ctx context.Context, tx database.TxQuerier, userID, taskID string, at time.Time) error {
	defer f.guard(tx)()
	if _, ok := f.state.completions[pair{userID, taskID}]; ok {
		return ErrTaskAlreadyCompleted
	}
	f.state.completions[pair{userID, taskID}] = at
	return nil
}

func (f fakeCompletions) ListTaskIDs(ctx context.Context, userID string) ([]string, error) {
	defer f.guard(nil)()
	out := []string{}
	for k := range f.state.completions {
		if k.a == userID {
			out = append(out, k.b)
		}
	}
	sort.Strings(out)
	return out, nil
}

type fakeVerifications struct{ *fakeStore }

func (f fakeVerifications) GetByUser(ctx context.Context, q database.TxQuerier, userID string) (*model.TaskVerification, error) {
	defer f.guard(q)()
	v, ok := f.state.verifications[userID]
	if !ok {
		return nil, nil
	}
	return &v, nil
}

func (f fakeVerifications) Upsert(ctx context.Context, tx database.TxQuerier, v *model.TaskVerification) error {
	defer f.guard(tx)()
	f.state.verifications[v.UserID] = *v
	return nil
}

func (f fakeVerifications) Delete(ctx context.Context, q database.TxQuerier, userID string) (bool, error) {
	defer f.guard(q)()
	_, ok := f.state.verifications[userID]
	delete(f.state.verifications, userID)
	return ok, nil
}

func (f fakeVerifications) DeleteStartedBefore(ctx context.Context, before time.Time) (int64, error) {
	defer f.guard(nil)()
	var n int64
	for id, v := range f.state.verifications {
		if v.StartedAt.Before(before) {
			delete(f.state.verifications, id)
			n++
		}
	}
	return n, nil
}

type fakeCoupons struct{ *fakeStore }

func (f fakeCoupons) Insert(ctx context.Context, coupon *model.Coupon) error {
	defer f.guard(nil)()
	for _, c := range f.state.coupons {
		if c.Code == coupon.Code {
			return ErrCouponExists
		}
	}
	f.state.coupons[coupon.ID] = *coupon
	return nil
}

func (f fakeCoupons) find(code string) (*model.Coupon, bool) {
	for _, c := range f.state.coupons {
		if c.Code == code {
			return &c, true
		}
	}
	return nil, false
}

func (f fakeCoupons) GetByCode(ctx context.Context, code string) (*model.Coupon, error) {
	defer f.guard(nil)()
	c, _ := f.find(code)
	return c, nil
}

func (f fakeCoupons) GetByCodeForUpdate(ctx context.Context, tx database.TxQuerier, code string) (*model.Coupon, error) {
	defer f.guard(tx)()
	c, ok := f.find(code)
	if !ok {
		return nil, ErrCouponNotFound
	}
	return c, nil
}

func (f fakeCoupons) IncrementUsage(ctx context.Context, tx database.TxQuerier, id string) error {
	defer f.guard(tx)()
	c := f.state.coupons[id]
	if c.UsedCount >= c.UsageLimit {
		return errors.New("coupons_usage_check violated")
	}
	c.UsedCount++
	f.state.coupons[id] = c
	return nil
}

func (f fakeCoupons) List(ctx context.Context) ([]model.Coupon, error) {
	defer f.guard(nil)()
	out := []model.Coupon{}
	for _, c := range f.state.coupons {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (f fakeCoupons) Delete(ctx context.Context, code string) error {
	defer f.guard(nil)()
	c, ok := f.find(code)
	if !ok {
		return ErrCouponNotFound
	}
	delete(f.state.coupons, c.ID)
	return nil
}

type fakeClaims struct{ *fakeStore }

func (f fakeClaims) GetUsersByCoupon(ctx context.Context, couponID string) ([]string, error) {
	defer f.guard(nil)()
	out := []string{}
	for k := range f.state.claims {
		if k.b == couponID {
			out = append(out, k.a)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (f fakeClaims) Exists(ctx context.Context, q database.TxQuerier, userID, couponID string) (bool, error) {
	defer f.guard(q)()
	_, ok := f.state.claims[pair{userID, couponID}]
	return ok, nil
}

func (f fakeClaims) Insert(ctx context.Context, tx database.TxQuerier, userID, couponID string, at time.Time) error {
	defer f.guard(tx)()
	if _, ok := f.state.claims[pair{userID, couponID}]; ok {
		return ErrAlreadyClaimed
	}
	f.state.claims[pair{userID, couponID}] = at
	return nil
}

func (f fakeClaims) ListCouponIDs(ctx context.Context, userID string) ([]string, error) {
	defer f.guard(nil)()
	out := []string{}
	for k := range f.state.claims {
		if k.a == userID {
			out = append(out, k.b)
		}
	}
	sort.Strings(out)
	return out, nil
}

type fakeWithdrawals struct{ *fakeStore }

func (f fakeWithdrawals) Insert(ctx context.Context, tx database.TxQuerier, w *model.Withdrawal) error {
	defer f.guard(tx)()
	f.state.withdrawals[w.ID] = *w
	return nil
}

func (f fakeWithdrawals) GetForUpdate(ctx context.Context, tx database.TxQuerier, id string) (*model.Withdrawal, error) {
	defer f.guard(tx)()
	w, ok := f.state.withdrawals[id]
	if !ok {
		return nil, ErrWithdrawalNotFound
	}
	return &w, nil
}

func (f fakeWithdrawals) UpdateStatus(ctx context.Context, tx database.TxQuerier, w *model.Withdrawal) error {
	defer f.guard(tx)()
	f.state.withdrawals[w.ID] = *w
	return nil
}

func (f fakeWithdrawals) sorted(keep func(model.Withdrawal) bool) []model.Withdrawal {
	out := []model.Withdrawal{}
	for _, w := range f.state.withdrawals {
		if keep(w) {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (f fakeWithdrawals) ListByUser(ctx context.Context, userID string) ([]model.Withdrawal, error) {
	defer f.guard(nil)()
	return f.sorted(func(w model.Withdrawal) bool { return w.UserID == userID }), nil
}

func (f fakeWithdrawals) List(ctx context.Context, status model.WithdrawalStatus) ([]model.Withdrawal, error) {
	defer f.guard(nil)()
	return f.sorted(func(w model.Withdrawal) bool { return status == "" || w.Status == status }), nil
}

func (f fakeWithdrawals) withdrawal(id string) model.Withdrawal {
	defer f.guard(nil)()
	return f.state.withdrawals[id]
}

type fakeSettings struct{ *fakeStore }

func (f fakeSettings) Get(ctx context.Context, q database.TxQuerier) (*model.Settings, error) {
	defer f.guard(q)()
	s := f.state.settings
	return &s, nil
}

func (f fakeSettings) Update(ctx context.Context, settings *model.Settings) error {
	defer f.guard(nil)()
	f.state.settings = *settings
	return nil
}

type fakeEntries struct{ *fakeStore }

func (f fakeEntries) Insert(ctx context.Context, tx database.TxQuerier, entry *model.LedgerEntry) error {
	defer f.guard(tx)()
	f.state.nextEntryID++
	entry.ID = f.state.nextEntryID
	f.state.entries = append(f.state.entries, *entry)
	return nil
}

func (f fakeEntries) ListByUser(ctx context.Context, userID string, limit int) ([]model.LedgerEntry, error) {
	defer f.guard(nil)()
	out := []model.LedgerEntry{}
	for i := len(f.state.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if f.state.entries[i].UserID == userID {
			out = append(out, f.state.entries[i])
		}
	}
	return out, nil
}

type fakeStats struct{ *fakeStore }

func (f fakeStats) Stats(ctx context.Context) (*model.AdminStats, error) {
	defer f.guard(nil)()
	st := &model.AdminStats{
		TotalUsers:          int64(len(f.state.users)),
		TotalTasksCompleted: int64(len(f.state.completions)),
	}
	for _, u := range f.state.users {
		st.CoinsOutstanding += u.Coins
	}
	for _, w := range f.state.withdrawals {
		switch w.Status {
		case model.WithdrawalPending:
			st.PendingWithdrawals++
		case model.WithdrawalApproved:
			st.CoinsWithdrawn += w.Amount
		}
	}
	return st, nil
}

// recordingJournal captures published ledger entries.
type recordingJournal struct {
	mu      sync.Mutex
	entries []model.LedgerEntry
	err     error
}

func (j *recordingJournal) Append(e model.LedgerEntry) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.err != nil {
		return j.err
	}
	j.entries = append(j.entries, e)
	return nil
}

func (j *recordingJournal) published() []model.LedgerEntry {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]model.LedgerEntry(nil), j.entries...)
}

var epoch = time.Date(2025, time.March, 1, 9, 0, 0, 0, time.UTC)

type harness struct {
	store       *fakeStore
	clock       *clockwork.FakeClock
	journal     *recordingJournal
	ledger      *Ledger
	users       *UserService
	tasks       *TaskService
	coupons     *CouponService
	bonus       *BonusService
	games       *GameService
	withdrawals *WithdrawalService
	admin       *AdminService
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	store := newFakeStore()
	clock := clockwork.NewFakeClockAt(epoch)
	journal := &recordingJournal{}
	users := fakeUsers{store}
	settings := fakeSettings{store}
	ledger := NewLedger(users, fakeEntries{store}, journal, clock)

	catalog, err := game.NewCatalog(game.DefaultGames())
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}

	return &harness{
		store:   store,
		clock:   clock,
		journal: journal,
		ledger:  ledger,
		users:   NewUserService(store, users, fakeCompletions{store}, fakeClaims{store}, settings, ledger, clock, 0),
		tasks: NewTaskService(store, users, fakeTasks{store}, fakeCompletions{store}, fakeVerifications{store}, ledger, clock, TaskTimings{
			Verification: 20 * time.Second,
			AbandonAfter: 10 * time.Minute,
		}),
		coupons:     NewCouponService(store, users, fakeCoupons{store}, fakeClaims{store}, ledger, clock),
		bonus:       NewBonusService(store, users, settings, ledger, clock, 24*time.Hour),
		games:       NewGameService(store, users, catalog, ledger),
		withdrawals: NewWithdrawalService(store, users, fakeWithdrawals{store}, settings, ledger, clock),
		admin:       NewAdminService(store, users, settings, fakeStats{store}, clock),
	}
}

func int64Ptr(i int64) *int64 { return &i }

func intPtr(i int) *int { return &i }

func boolPtr(b bool) *bool { return &b }
