package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"purchaseboard/internal/model"
	"purchaseboard/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// In-memory repository fakes. They honor the same sentinel-error
// contract as the Postgres implementations, including the version
// compare-and-swap, so the concurrency tests exercise the real retry
// logic of the services.

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) next() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

// --- request repository ---

type fakeRequestRepo struct {
	mu      sync.Mutex
	clock   *fakeClock
	records map[uuid.UUID]model.PurchaseRequest
}

func newFakeRequestRepo(clock *fakeClock) *fakeRequestRepo {
	return &fakeRequestRepo{clock: clock, records: make(map[uuid.UUID]model.PurchaseRequest)}
}

func (r *fakeRequestRepo) Create(_ context.Context, req *model.PurchaseRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	req.ID = uuid.New()
	req.Version = 0
	req.CreatedAt = r.clock.next()
	req.UpdatedAt = req.CreatedAt
	r.records[req.ID] = *req
	return nil
}

func (r *fakeRequestRepo) GetByID(_ context.Context, id uuid.UUID) (*model.PurchaseRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &rec, nil
}

func (r *fakeRequestRepo) ListAll(_ context.Context, sortOrder string) ([]model.PurchaseRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.PurchaseRequest, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, rec)
	}
	if sortOrder == "oldest" {
		sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	} else {
		sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	}
	return out, nil
}

func (r *fakeRequestRepo) ListPurchased(_ context.Context, purchaser string, start, end *int64, offset, limit int) ([]model.PurchaseRequest, int64, decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []model.PurchaseRequest
	sum := decimal.Zero
	for _, rec := range r.records {
		if rec.Status != model.RequestStatusPurchased {
			continue
		}
		if purchaser != "" && (rec.PurchaserName == nil || *rec.PurchaserName != purchaser) {
			continue
		}
		if start != nil && rec.PurchaseDate != nil && rec.PurchaseDate.Unix() < *start {
			continue
		}
		if end != nil && rec.PurchaseDate != nil && rec.PurchaseDate.Unix() > *end {
			continue
		}
		matched = append(matched, rec)
		if rec.PurchaseAmount != nil {
			sum = sum.Add(*rec.PurchaseAmount)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].PurchaseDate.After(*matched[j].PurchaseDate)
	})
	total := int64(len(matched))
	if offset >= len(matched) {
		return nil, total, sum, nil
	}
	matched = matched[offset:]
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, total, sum, nil
}

func (r *fakeRequestRepo) UpdateWithVersion(_ context.Context, req *model.PurchaseRequest, expectedVersion int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.records[req.ID]
	if !ok || cur.Version != expectedVersion {
		return repository.ErrVersionMismatch
	}
	req.Version = expectedVersion + 1
	stored := *req
	stored.CreatedAt = cur.CreatedAt
	stored.RequesterID = cur.RequesterID
	stored.RequesterName = cur.RequesterName
	r.records[req.ID] = stored
	return nil
}

func (r *fakeRequestRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.records, id)
	return nil
}

// --- comment repository ---

type fakeCommentRepo struct {
	mu       sync.Mutex
	clock    *fakeClock
	comments []model.Comment
}

func newFakeCommentRepo(clock *fakeClock) *fakeCommentRepo {
	return &fakeCommentRepo{clock: clock}
}

func (r *fakeCommentRepo) Create(_ context.Context, c *model.Comment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c.ID = uuid.New()
	c.CreatedAt = r.clock.next()
	r.comments = append(r.comments, *c)
	return nil
}

func (r *fakeCommentRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.comments {
		if c.ID == id {
			cc := c
			return &cc, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeCommentRepo) ListByRequestIDs(_ context.Context, ids []uuid.UUID) ([]model.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	wanted := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	var out []model.Comment
	for _, c := range r.comments {
		if wanted[c.RequestID] {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeCommentRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, c := range r.comments {
		if c.ID == id {
			r.comments = append(r.comments[:i], r.comments[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r *fakeCommentRepo) DeleteByRequestID(_ context.Context, requestID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.comments[:0]
	for _, c := range r.comments {
		if c.RequestID != requestID {
			kept = append(kept, c)
		}
	}
	r.comments = kept
	return nil
}

// --- user repository ---

type fakeUserRepo struct {
	mu     sync.Mutex
	users  map[uuid.UUID]model.User
	tokens map[string]model.RefreshToken
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		users:  make(map[uuid.UUID]model.User),
		tokens: make(map[string]model.RefreshToken),
	}
}

func (r *fakeUserRepo) Create(_ context.Context, u *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u.ID = uuid.New()
	u.CreatedAt = time.Now()
	r.users[u.ID] = *u
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			uu := u
			return &uu, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUserRepo) GetByIDs(_ context.Context, ids []uuid.UUID) ([]model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.User
	for _, id := range ids {
		if u, ok := r.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *fakeUserRepo) ListByRoleAndStatus(_ context.Context, role, status string) ([]model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.User
	for _, u := range r.users {
		if u.Role == role && u.Status == status {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DisplayName < out[j].DisplayName })
	return out, nil
}

func (r *fakeUserRepo) ListByStatus(_ context.Context, status string, offset, limit int) ([]model.User, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.User
	for _, u := range r.users {
		if status == "" || u.Status == status {
			out = append(out, u)
		}
	}
	total := int64(len(out))
	if offset >= len(out) {
		return nil, total, nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, total, nil
}

func (r *fakeUserRepo) Update(_ context.Context, u *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[u.ID]; !ok {
		return repository.ErrNotFound
	}
	r.users[u.ID] = *u
	return nil
}

func (r *fakeUserRepo) SaveRefreshToken(_ context.Context, t *model.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t.ID = uuid.New()
	r.tokens[t.Token] = *t
	return nil
}

func (r *fakeUserRepo) GetRefreshToken(_ context.Context, token string) (*model.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[token]
	if !ok || t.ExpiresAt.Before(time.Now()) {
		return nil, repository.ErrNotFound
	}
	return &t, nil
}

func (r *fakeUserRepo) DeleteRefreshToken(_ context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tokens, token)
	return nil
}

func (r *fakeUserRepo) DeleteRefreshTokensForUser(_ context.Context, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for token, t := range r.tokens {
		if t.UserID == userID {
			delete(r.tokens, token)
		}
	}
	return nil
}

// --- tithe repository ---

type fakeTitheRepo struct {
	mu      sync.Mutex
	clock   *fakeClock
	tasks   map[uuid.UUID]model.TitheTask
	entries []model.DedicationEntry
}

func newFakeTitheRepo(clock *fakeClock) *fakeTitheRepo {
	return &fakeTitheRepo{clock: clock, tasks: make(map[uuid.UUID]model.TitheTask)}
}

func (r *fakeTitheRepo) CreateTask(_ context.Context, t *model.TitheTask) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t.ID = uuid.New()
	t.CreatedAt = r.clock.next()
	r.tasks[t.ID] = *t
	return nil
}

func (r *fakeTitheRepo) GetTaskByID(_ context.Context, id uuid.UUID) (*model.TitheTask, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &t, nil
}

func (r *fakeTitheRepo) ListTasks(_ context.Context) ([]model.TitheTask, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.TitheTask, 0, len(r.tasks))
	for _, t := range r.tasks {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CalculationTimestamp.After(out[j].CalculationTimestamp)
	})
	return out, nil
}

func (r *fakeTitheRepo) UpdateTask(_ context.Context, t *model.TitheTask) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tasks[t.ID]; !ok {
		return repository.ErrNotFound
	}
	r.tasks[t.ID] = *t
	return nil
}

func (r *fakeTitheRepo) CreateEntry(_ context.Context, e *model.DedicationEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e.ID = uuid.New()
	e.CreatedAt = r.clock.next()
	r.entries = append(r.entries, *e)
	return nil
}

func (r *fakeTitheRepo) GetEntryByID(_ context.Context, id uuid.UUID) (*model.DedicationEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.ID == id {
			ee := e
			return &ee, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeTitheRepo) ListEntriesByTaskID(_ context.Context, taskID uuid.UUID) ([]model.DedicationEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.DedicationEntry
	for _, e := range r.entries {
		if e.TaskID == taskID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeTitheRepo) DeleteEntry(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, e := range r.entries {
		if e.ID == id {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

// --- audit repository ---

type fakeAuditRepo struct {
	mu      sync.Mutex
	entries []model.AuditLog
}

func newFakeAuditRepo() *fakeAuditRepo {
	return &fakeAuditRepo{}
}

func (r *fakeAuditRepo) Log(_ context.Context, entry *model.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry.ID = uuid.New()
	entry.CreatedAt = time.Now()
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *fakeAuditRepo) List(_ context.Context, page, limit int) ([]model.AuditLog, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.AuditLog, len(r.entries))
	copy(out, r.entries)
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	total := int64(len(out))
	offset := (page - 1) * limit
	if offset >= len(out) {
		return nil, total, nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, total, nil
}

func (r *fakeAuditRepo) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.Action)
	}
	return out
}

// --- transaction manager and notifier ---

// fakeTxManager runs the body directly; the fakes have no transactions
// to join.
type fakeTxManager struct{}

func (fakeTxManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return fn(ctx)
}

type fakeNotifier struct {
	mu  sync.Mutex
	ids []string
}

func (n *fakeNotifier) NotifyRequirementsChanged(id string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.ids = append(n.ids, id)
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.ids)
}
