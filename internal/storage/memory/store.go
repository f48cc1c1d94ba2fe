// Package memory implements the ledger stores in process memory.
// Records live in id-keyed maps and are copied on every read and write,
// so callers never share state with the store.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/bobmcallan/vire-ledger/internal/common"
	"github.com/bobmcallan/vire-ledger/internal/interfaces"
	"github.com/bobmcallan/vire-ledger/internal/models"
	"github.com/google/uuid"
)

// Store implements interfaces.StorageManager and every sub-store.
type Store struct {
	mu     sync.RWMutex
	logger *common.Logger
	now    func() time.Time
	seq    int64

	accounts   map[string]*models.Account
	securities map[string]*models.Security
	snapshots  map[string]*models.AccountSnapshot
	activities map[string]*models.Activity
	activityBy map[string]string // dedup key -> activity ID
	lots       map[string]*models.HoldingLot
	disposals  map[string]*models.LotDisposal
	valuations map[string]models.DailyHoldingValue
}

// NewStore creates an empty in-memory store.
func NewStore(logger *common.Logger) *Store {
	return &Store{
		logger:     logger,
		now:        time.Now,
		accounts:   make(map[string]*models.Account),
		securities: make(map[string]*models.Security),
		snapshots:  make(map[string]*models.AccountSnapshot),
		activities: make(map[string]*models.Activity),
		activityBy: make(map[string]string),
		lots:       make(map[string]*models.HoldingLot),
		disposals:  make(map[string]*models.LotDisposal),
		valuations: make(map[string]models.DailyHoldingValue),
	}
}

func (s *Store) AccountStore() interfaces.AccountStore     { return s }
func (s *Store) SecurityStore() interfaces.SecurityStore   { return s }
func (s *Store) SnapshotStore() interfaces.SnapshotStore   { return s }
func (s *Store) ActivityStore() interfaces.ActivityStore   { return s }
func (s *Store) LotStore() interfaces.LotStore             { return s }
func (s *Store) ValuationStore() interfaces.ValuationStore { return s }

func (s *Store) Close() error { return nil }

func (s *Store) nextSeq() int64 {
	s.seq++
	return s.seq
}

// --- accounts ---

func (s *Store) SaveAccount(ctx context.Context, account *models.Account) error {
	if account.ID == "" {
		return fmt.Errorf("account id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if account.CreatedAt.IsZero() {
		account.CreatedAt = s.now()
	}
	a := *account
	s.accounts[a.ID] = &a
	return nil
}

func (s *Store) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[id]
	if !ok {
		return nil, fmt.Errorf("account %s: %w", id, models.ErrNotFound)
	}
	out := *a
	return &out, nil
}

func (s *Store) ListAccounts(ctx context.Context) ([]*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		c := *a
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// --- securities ---

func (s *Store) SaveSecurity(ctx context.Context, security *models.Security) error {
	if security.ID == "" {
		return fmt.Errorf("security id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *security
	s.securities[c.ID] = &c
	return nil
}

func (s *Store) GetSecurity(ctx context.Context, id string) (*models.Security, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sec, ok := s.securities[id]
	if !ok {
		return nil, fmt.Errorf("security %s: %w", id, models.ErrNotFound)
	}
	out := *sec
	return &out, nil
}

// --- snapshots ---

func copySnapshot(snap *models.AccountSnapshot) *models.AccountSnapshot {
	c := *snap
	c.Holdings = append([]models.Holding(nil), snap.Holdings...)
	return &c
}

func (s *Store) SaveSnapshot(ctx context.Context, snapshot *models.AccountSnapshot) error {
	if snapshot.ID == "" {
		snapshot.ID = uuid.NewString()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[snapshot.ID] = copySnapshot(snapshot)
	return nil
}

func (s *Store) GetSnapshot(ctx context.Context, id string) (*models.AccountSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.snapshots[id]
	if !ok {
		return nil, fmt.Errorf("snapshot %s: %w", id, models.ErrNotFound)
	}
	return copySnapshot(snap), nil
}

func (s *Store) LatestSnapshot(ctx context.Context, accountID string, q interfaces.SnapshotQuery) (*models.AccountSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *models.AccountSnapshot
	for _, snap := range s.snapshots {
		if snap.AccountID != accountID {
			continue
		}
		if q.Status != "" && snap.Status != q.Status {
			continue
		}
		if !q.Before.IsZero() && !snap.SyncedAt.Before(q.Before) {
			continue
		}
		if latest == nil || snap.SyncedAt.After(latest.SyncedAt) {
			latest = snap
		}
	}
	if latest == nil {
		return nil, nil
	}
	return copySnapshot(latest), nil
}

// --- activities ---

func (s *Store) SaveActivity(ctx context.Context, activity *models.Activity) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := activity.DedupKey()
	if activity.ExternalID != "" {
		if existing, ok := s.activityBy[key]; ok {
			activity.ID = existing
			return false, nil
		}
	}
	if activity.ID == "" {
		activity.ID = uuid.NewString()
	}
	c := *activity
	s.activities[c.ID] = &c
	if activity.ExternalID != "" {
		s.activityBy[key] = c.ID
	}
	return true, nil
}

func (s *Store) ListActivities(ctx context.Context, q interfaces.ActivityQuery) ([]*models.Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	accounts := toSet(q.AccountIDs)
	types := make(map[models.ActivityType]bool, len(q.Types))
	for _, t := range q.Types {
		types[t] = true
	}

	var out []*models.Activity
	for _, a := range s.activities {
		if len(accounts) > 0 && !accounts[a.AccountID] {
			continue
		}
		if len(types) > 0 && !types[a.Type] {
			continue
		}
		if !q.After.IsZero() && !a.ActivityDate.After(q.After) {
			continue
		}
		if !q.Until.IsZero() && a.ActivityDate.After(q.Until) {
			continue
		}
		c := *a
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ActivityDate.Equal(out[j].ActivityDate) {
			return out[i].ActivityDate.Before(out[j].ActivityDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// --- lots ---

func copyLot(l *models.HoldingLot) *models.HoldingLot {
	c := *l
	if l.AcquisitionDate != nil {
		d := *l.AcquisitionDate
		c.AcquisitionDate = &d
	}
	return &c
}

func (s *Store) CreateLot(ctx context.Context, lot *models.HoldingLot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if lot.ID == "" {
		lot.ID = uuid.NewString()
	}
	if _, exists := s.lots[lot.ID]; exists {
		return fmt.Errorf("lot %s already exists", lot.ID)
	}
	now := s.now()
	lot.CreatedSeq = s.nextSeq()
	lot.CreatedAt = now
	lot.UpdatedAt = now
	s.lots[lot.ID] = copyLot(lot)
	return nil
}

func (s *Store) UpdateLot(ctx context.Context, lot *models.HoldingLot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.lots[lot.ID]; !ok {
		return fmt.Errorf("lot %s: %w", lot.ID, models.ErrNotFound)
	}
	lot.UpdatedAt = s.now()
	s.lots[lot.ID] = copyLot(lot)
	return nil
}

func (s *Store) DeleteLot(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.lots[id]; !ok {
		return fmt.Errorf("lot %s: %w", id, models.ErrNotFound)
	}
	for did, d := range s.disposals {
		if d.LotID == id {
			delete(s.disposals, did)
		}
	}
	delete(s.lots, id)
	return nil
}

func (s *Store) GetLot(ctx context.Context, id string) (*models.HoldingLot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.lots[id]
	if !ok {
		return nil, fmt.Errorf("lot %s: %w", id, models.ErrNotFound)
	}
	return copyLot(l), nil
}

func (s *Store) ListLots(ctx context.Context, q interfaces.LotQuery) ([]*models.HoldingLot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.HoldingLot
	for _, l := range s.lots {
		if q.AccountID != "" && l.AccountID != q.AccountID {
			continue
		}
		if q.SecurityID != "" && l.SecurityID != q.SecurityID {
			continue
		}
		if q.OpenOnly && l.IsClosed {
			continue
		}
		out = append(out, copyLot(l))
	}
	models.SortFIFO(out)
	return out, nil
}

// --- disposals ---

func (s *Store) CreateDisposal(ctx context.Context, disposal *models.LotDisposal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.lots[disposal.LotID]; !ok {
		return fmt.Errorf("disposal references lot %s: %w", disposal.LotID, models.ErrNotFound)
	}
	if disposal.ID == "" {
		disposal.ID = uuid.NewString()
	}
	disposal.CreatedSeq = s.nextSeq()
	disposal.CreatedAt = s.now()
	c := *disposal
	s.disposals[c.ID] = &c
	return nil
}

func (s *Store) DeleteDisposal(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.disposals[id]; !ok {
		return fmt.Errorf("disposal %s: %w", id, models.ErrNotFound)
	}
	delete(s.disposals, id)
	return nil
}

func (s *Store) ListDisposals(ctx context.Context, q interfaces.DisposalQuery) ([]*models.LotDisposal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.LotDisposal
	for _, d := range s.disposals {
		if q.AccountID != "" && d.AccountID != q.AccountID {
			continue
		}
		if q.SecurityID != "" && d.SecurityID != q.SecurityID {
			continue
		}
		if q.LotID != "" && d.LotID != q.LotID {
			continue
		}
		if q.GroupID != "" && d.GroupID != q.GroupID {
			continue
		}
		c := *d
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedSeq < out[j].CreatedSeq })
	return out, nil
}

// --- valuations ---

func valuationKey(v models.DailyHoldingValue) string {
	return v.Date.Format("2006-01-02") + "|" + v.AccountID + "|" + v.SecurityID
}

func (s *Store) SaveDailyValues(ctx context.Context, values []models.DailyHoldingValue) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range values {
		v.Date = models.DateOf(v.Date)
		s.valuations[valuationKey(v)] = v
	}
	return nil
}

func (s *Store) ListDailyValues(ctx context.Context, q interfaces.ValuationQuery) ([]models.DailyHoldingValue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	accounts := toSet(q.AccountIDs)
	from, to := models.DateOf(q.From), models.DateOf(q.To)

	var out []models.DailyHoldingValue
	for _, v := range s.valuations {
		if len(accounts) > 0 && !accounts[v.AccountID] {
			continue
		}
		if !q.From.IsZero() && v.Date.Before(from) {
			continue
		}
		if !q.To.IsZero() && v.Date.After(to) {
			continue
		}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return valuationKey(out[i]) < valuationKey(out[j])
	})
	return out, nil
}

func toSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

// Compile-time check
var _ interfaces.StorageManager = (*Store)(nil)
