package businessflow

import (
	"context"
	"sync"
	"time"

	"github.com/amirphl/AutoSEM/models"
	"github.com/amirphl/AutoSEM/platform"
	"github.com/amirphl/AutoSEM/utils"
	"github.com/google/uuid"
)

// fakeCampaignRepo is an in-memory CampaignRecordRepository.
type fakeCampaignRepo struct {
	mu      sync.Mutex
	records []*models.CampaignRecord
	nextID  uint
}

func newFakeCampaignRepo(records ...*models.CampaignRecord) *fakeCampaignRepo {
	repo := &fakeCampaignRepo{nextID: 1}
	for _, r := range records {
		_ = repo.Save(context.Background(), r)
	}
	return repo
}

func (r *fakeCampaignRepo) ByID(ctx context.Context, id uint) (*models.CampaignRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if rec.ID == id {
			return rec, nil
		}
	}
	return nil, nil
}

func (r *fakeCampaignRepo) ByFilter(ctx context.Context, filter models.CampaignRecordFilter, orderBy string, limit, offset int) ([]*models.CampaignRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.CampaignRecord
	for _, rec := range r.records {
		if filter.Status != nil && rec.Status != *filter.Status {
			continue
		}
		if filter.Platform != nil && rec.Platform != *filter.Platform {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func (r *fakeCampaignRepo) Save(ctx context.Context, entity *models.CampaignRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entity.ID == 0 {
		entity.ID = r.nextID
		r.nextID++
	}
	if entity.UUID == uuid.Nil {
		entity.UUID = uuid.New()
	}
	r.records = append(r.records, entity)
	return nil
}

func (r *fakeCampaignRepo) SaveBatch(ctx context.Context, entities []*models.CampaignRecord) error {
	for _, e := range entities {
		if err := r.Save(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeCampaignRepo) Count(ctx context.Context, filter models.CampaignRecordFilter) (int64, error) {
	rows, _ := r.ByFilter(ctx, filter, "", 0, 0)
	return int64(len(rows)), nil
}

func (r *fakeCampaignRepo) ByUUID(ctx context.Context, id uuid.UUID) (*models.CampaignRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if rec.UUID == id {
			return rec, nil
		}
	}
	return nil, nil
}

func (r *fakeCampaignRepo) ByPlatformCampaignID(ctx context.Context, p models.Platform, remoteID string) (*models.CampaignRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if rec.Platform == p && rec.Linked() && *rec.PlatformCampaignID == remoteID {
			return rec, nil
		}
	}
	return nil, nil
}

func (r *fakeCampaignRepo) ListLinked(ctx context.Context, p *models.Platform) ([]*models.CampaignRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.CampaignRecord
	for _, rec := range r.records {
		if !rec.Linked() {
			continue
		}
		if p != nil && rec.Platform != *p {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func (r *fakeCampaignRepo) ListUnlinked(ctx context.Context) ([]*models.CampaignRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.CampaignRecord
	for _, rec := range r.records {
		if !rec.Linked() {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *fakeCampaignRepo) Update(ctx context.Context, record *models.CampaignRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, rec := range r.records {
		if rec.ID == record.ID {
			r.records[i] = record
			return nil
		}
	}
	return ErrCampaignNotFound
}

func (r *fakeCampaignRepo) UpdateStatus(ctx context.Context, id uint, status models.CampaignStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if rec.ID == id {
			rec.Status = status
			return nil
		}
	}
	return ErrCampaignNotFound
}

func (r *fakeCampaignRepo) UpdateBudget(ctx context.Context, id uint, cents int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if rec.ID == id {
			rec.DailyBudgetCents = cents
			return nil
		}
	}
	return ErrCampaignNotFound
}

func (r *fakeCampaignRepo) Delete(ctx context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, rec := range r.records {
		if rec.ID == id {
			r.records = append(r.records[:i], r.records[i+1:]...)
			return nil
		}
	}
	return nil
}

func (r *fakeCampaignRepo) TotalSpendSince(ctx context.Context, since time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var total int64
	for _, rec := range r.records {
		total += rec.SpendCents
	}
	return total, nil
}

// fakeActivityRepo is an in-memory ActivityLogRepository.
type fakeActivityRepo struct {
	mu      sync.Mutex
	entries []*models.ActivityLog
}

func (r *fakeActivityRepo) byAction(action string) []*models.ActivityLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.ActivityLog
	for _, e := range r.entries {
		if e.Action == action {
			out = append(out, e)
		}
	}
	return out
}

func (r *fakeActivityRepo) ByID(ctx context.Context, id uint) (*models.ActivityLog, error) {
	return nil, nil
}

func (r *fakeActivityRepo) ByFilter(ctx context.Context, filter models.ActivityLogFilter, orderBy string, limit, offset int) ([]*models.ActivityLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.ActivityLog
	for _, e := range r.entries {
		if filter.Action != nil && e.Action != *filter.Action {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (r *fakeActivityRepo) Save(ctx context.Context, entry *models.ActivityLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry.ID = uint(len(r.entries) + 1)
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = utils.UTCNow()
	}
	r.entries = append(r.entries, entry)
	return nil
}

func (r *fakeActivityRepo) SaveBatch(ctx context.Context, entries []*models.ActivityLog) error {
	for _, e := range entries {
		if err := r.Save(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeActivityRepo) Count(ctx context.Context, filter models.ActivityLogFilter) (int64, error) {
	rows, _ := r.ByFilter(ctx, filter, "", 0, 0)
	return int64(len(rows)), nil
}

func (r *fakeActivityRepo) ListByAction(ctx context.Context, action string, limit, offset int) ([]*models.ActivityLog, error) {
	return r.byAction(action), nil
}

func (r *fakeActivityRepo) ListRecent(ctx context.Context, limit, offset int) ([]*models.ActivityLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*models.ActivityLog(nil), r.entries...), nil
}

func (r *fakeActivityRepo) ListByCampaign(ctx context.Context, campaignRecordID uint, limit, offset int) ([]*models.ActivityLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.ActivityLog
	for _, e := range r.entries {
		if e.CampaignRecordID != nil && *e.CampaignRecordID == campaignRecordID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeActivityRepo) CountSince(ctx context.Context, action string, since time.Time) (int64, error) {
	return int64(len(r.byAction(action))), nil
}

func (r *fakeActivityRepo) LatestByAction(ctx context.Context, action string) (*models.ActivityLog, error) {
	entries := r.byAction(action)
	if len(entries) == 0 {
		return nil, nil
	}
	return entries[len(entries)-1], nil
}

// fakeSettingRepo is an in-memory SettingRepository.
type fakeSettingRepo struct {
	mu     sync.Mutex
	values map[string]string
}

func newFakeSettingRepo(values map[string]string) *fakeSettingRepo {
	if values == nil {
		values = map[string]string{}
	}
	return &fakeSettingRepo{values: values}
}

func (r *fakeSettingRepo) ByID(ctx context.Context, id uint) (*models.Setting, error) { return nil, nil }

func (r *fakeSettingRepo) ByFilter(ctx context.Context, filter models.SettingFilter, orderBy string, limit, offset int) ([]*models.Setting, error) {
	return r.All(ctx)
}

func (r *fakeSettingRepo) Save(ctx context.Context, entity *models.Setting) error {
	return r.Set(ctx, entity.Key, entity.Value)
}

func (r *fakeSettingRepo) SaveBatch(ctx context.Context, entities []*models.Setting) error {
	for _, e := range entities {
		if err := r.Save(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeSettingRepo) Count(ctx context.Context, filter models.SettingFilter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.values)), nil
}

func (r *fakeSettingRepo) ByKey(ctx context.Context, key string) (*models.Setting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	value, ok := r.values[key]
	if !ok {
		return nil, nil
	}
	return &models.Setting{Key: key, Value: value}, nil
}

func (r *fakeSettingRepo) Set(ctx context.Context, key, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values[key] = value
	return nil
}

func (r *fakeSettingRepo) All(ctx context.Context) ([]*models.Setting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Setting
	for key, value := range r.values {
		out = append(out, &models.Setting{Key: key, Value: value})
	}
	return out, nil
}

// fakeClient is a scriptable platform.Client.
type fakeClient struct {
	mu sync.Mutex

	name       string
	configured bool

	campaigns []platform.RemoteCampaign
	perfs     map[string]platform.Performance
	adSets    []platform.AdSet

	listErr      error
	perfErr      error
	pauseErr     error
	setBudgetErr error

	paused       []string
	activated    []string
	budgets      map[string]int64
	adSetBudgets map[string]int64
}

func newFakeClient(name string) *fakeClient {
	return &fakeClient{
		name:         name,
		configured:   true,
		perfs:        map[string]platform.Performance{},
		budgets:      map[string]int64{},
		adSetBudgets: map[string]int64{},
	}
}

func (c *fakeClient) Name() string     { return c.name }
func (c *fakeClient) Configured() bool { return c.configured }

func (c *fakeClient) ListCampaigns(ctx context.Context) ([]platform.RemoteCampaign, error) {
	if c.listErr != nil {
		return nil, c.listErr
	}
	return c.campaigns, nil
}

func (c *fakeClient) GetPerformance(ctx context.Context, ids []string, r platform.DateRange) ([]platform.Performance, error) {
	if c.perfErr != nil {
		return nil, c.perfErr
	}
	out := make([]platform.Performance, 0, len(ids))
	for _, id := range ids {
		if perf, ok := c.perfs[id]; ok {
			out = append(out, perf)
		} else {
			out = append(out, platform.Performance{CampaignID: id})
		}
	}
	return out, nil
}

func (c *fakeClient) SetBudget(ctx context.Context, campaignID string, cents int64) error {
	if c.setBudgetErr != nil {
		return c.setBudgetErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.budgets[campaignID] = cents
	return nil
}

func (c *fakeClient) Pause(ctx context.Context, campaignID string) error {
	if c.pauseErr != nil {
		return c.pauseErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paused = append(c.paused, campaignID)
	return nil
}

func (c *fakeClient) Activate(ctx context.Context, campaignID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.activated = append(c.activated, campaignID)
	return nil
}

func (c *fakeClient) ListAdSets(ctx context.Context, campaignID string) ([]platform.AdSet, error) {
	return c.adSets, nil
}

func (c *fakeClient) SetAdSetBudget(ctx context.Context, adSetID string, cents int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.adSetBudgets[adSetID] = cents
	return nil
}

// test helpers

func linkedCampaign(id uint, p models.Platform, remoteID string, budgetCents int64) *models.CampaignRecord {
	return &models.CampaignRecord{
		ID:                 id,
		UUID:               uuid.New(),
		Platform:           p,
		PlatformCampaignID: utils.ToPtr(remoteID),
		Name:               "Campaign " + remoteID,
		Status:             models.CampaignStatusActive,
		DailyBudgetCents:   budgetCents,
	}
}

func defaultTestSettings() *SettingsSnapshot {
	return &SettingsSnapshot{
		AutomationEnabled:       true,
		DailySpendLimitCents:    20_000,
		MonthlySpendLimitCents:  500_000,
		MinROASThreshold:        1.5,
		EmergencyPauseLossCents: 50_000,
		MaxDailyBudgetCents:     2_500,
		MinDailyBudgetCents:     300,
		BudgetIncreaseFactor:    1.25,
		BudgetDecreaseFactor:    0.75,
		SyncWindowDays:          7,
		CPCBoundaryExclusive:    true,
	}
}

// staticSettingsFlow returns a fixed snapshot without touching storage.
type staticSettingsFlow struct {
	snapshot *SettingsSnapshot
}

func (f *staticSettingsFlow) Snapshot(ctx context.Context) (*SettingsSnapshot, error) {
	return f.snapshot, nil
}

func (f *staticSettingsFlow) All(ctx context.Context) (map[string]string, error) {
	return map[string]string{}, nil
}

func (f *staticSettingsFlow) Update(ctx context.Context, changes map[string]string) error {
	return nil
}
