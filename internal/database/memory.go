package database

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/emilythestrangee/demandboard/backend/internal/models"
	"github.com/emilythestrangee/demandboard/backend/internal/scoring"
)

// MemoryStore keeps every collection in process. A single mutex makes each
// method atomic; WithinTx holds it for the whole unit of work and restores a
// snapshot when fn fails.
type MemoryStore struct {
	mu    sync.Mutex
	state *memState
}

func NewMemory() *MemoryStore {
	return &MemoryStore{state: newMemState()}
}

type signalKey struct {
	kind   models.SignalKind
	target uuid.UUID
	user   uuid.UUID
}

type memState struct {
	users        map[uuid.UUID]models.User
	identities   map[string]uuid.UUID
	problems     map[uuid.UUID]models.Problem
	problemOrder []uuid.UUID
	solutions    map[uuid.UUID]models.Solution
	alternatives []models.Alternative
	signals      map[signalKey]models.Signal
}

func newMemState() *memState {
	return &memState{
		users:      make(map[uuid.UUID]models.User),
		identities: make(map[string]uuid.UUID),
		problems:   make(map[uuid.UUID]models.Problem),
		solutions:  make(map[uuid.UUID]models.Solution),
		signals:    make(map[signalKey]models.Signal),
	}
}

func (m *memState) clone() *memState {
	c := &memState{
		users:        make(map[uuid.UUID]models.User, len(m.users)),
		identities:   make(map[string]uuid.UUID, len(m.identities)),
		problems:     make(map[uuid.UUID]models.Problem, len(m.problems)),
		problemOrder: append([]uuid.UUID(nil), m.problemOrder...),
		solutions:    make(map[uuid.UUID]models.Solution, len(m.solutions)),
		alternatives: append([]models.Alternative(nil), m.alternatives...),
		signals:      make(map[signalKey]models.Signal, len(m.signals)),
	}
	for k, v := range m.users {
		c.users[k] = v
	}
	for k, v := range m.identities {
		c.identities[k] = v
	}
	for k, v := range m.problems {
		c.problems[k] = v
	}
	for k, v := range m.solutions {
		c.solutions[k] = v
	}
	for k, v := range m.signals {
		c.signals[k] = v
	}
	return c
}

func (s *MemoryStore) WithinTx(ctx context.Context, fn func(tx Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.state.clone()
	if err := fn(memTx{s.state}); err != nil {
		s.state = snapshot
		return err
	}
	return nil
}

func (s *MemoryStore) Health(ctx context.Context) map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return map[string]string{
		"status":   "up",
		"driver":   "memory",
		"problems": fmt.Sprintf("%d", len(s.state.problems)),
	}
}

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) UpsertUser(ctx context.Context, identityRef, email, displayName string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.UpsertUser(ctx, identityRef, email, displayName)
}

func (s *MemoryStore) UserByIdentity(ctx context.Context, identityRef string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.UserByIdentity(ctx, identityRef)
}

func (s *MemoryStore) UserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.UserByID(ctx, id)
}

func (s *MemoryStore) CreateProblem(ctx context.Context, p *models.Problem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.CreateProblem(ctx, p)
}

func (s *MemoryStore) ProblemByID(ctx context.Context, id uuid.UUID) (*models.Problem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.ProblemByID(ctx, id)
}

func (s *MemoryStore) ListProblems(ctx context.Context, q ProblemQuery) ([]models.Problem, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.ListProblems(ctx, q)
}

func (s *MemoryStore) ProblemsByAuthor(ctx context.Context, authorID uuid.UUID) ([]models.Problem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.ProblemsByAuthor(ctx, authorID)
}

func (s *MemoryStore) ProblemIDs(ctx context.Context) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.ProblemIDs(ctx)
}

func (s *MemoryStore) AdjustProblem(ctx context.Context, id uuid.UUID, d ProblemDelta) (*models.Problem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.AdjustProblem(ctx, id, d)
}

func (s *MemoryStore) SetProblemSolved(ctx context.Context, id uuid.UUID, solved bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.SetProblemSolved(ctx, id, solved)
}

func (s *MemoryStore) ReplaceProblemAggregates(ctx context.Context, id uuid.UUID, a ProblemAggregates) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.ReplaceProblemAggregates(ctx, id, a)
}

func (s *MemoryStore) CreateSolution(ctx context.Context, sol *models.Solution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.CreateSolution(ctx, sol)
}

func (s *MemoryStore) SolutionByID(ctx context.Context, id uuid.UUID) (*models.Solution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.SolutionByID(ctx, id)
}

func (s *MemoryStore) SolutionsForProblem(ctx context.Context, problemID uuid.UUID) ([]models.Solution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.SolutionsForProblem(ctx, problemID)
}

func (s *MemoryStore) SolutionsByAuthor(ctx context.Context, authorID uuid.UUID) ([]models.Solution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.SolutionsByAuthor(ctx, authorID)
}

func (s *MemoryStore) AdjustSolutionUpvotes(ctx context.Context, id uuid.UUID, n int) (*models.Solution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.AdjustSolutionUpvotes(ctx, id, n)
}

func (s *MemoryStore) SetSolutionSolved(ctx context.Context, id uuid.UUID, solved bool, by *uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.SetSolutionSolved(ctx, id, solved, by)
}

func (s *MemoryStore) AnyOtherSolved(ctx context.Context, problemID, excludeID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.AnyOtherSolved(ctx, problemID, excludeID)
}

func (s *MemoryStore) ReplaceSolutionUpvotes(ctx context.Context, id uuid.UUID, n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.ReplaceSolutionUpvotes(ctx, id, n)
}

func (s *MemoryStore) CreateAlternative(ctx context.Context, a *models.Alternative) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.CreateAlternative(ctx, a)
}

func (s *MemoryStore) AlternativesForProblem(ctx context.Context, problemID uuid.UUID) ([]models.Alternative, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.AlternativesForProblem(ctx, problemID)
}

func (s *MemoryStore) FindSignal(ctx context.Context, kind models.SignalKind, targetID, userID uuid.UUID) (*models.Signal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.FindSignal(ctx, kind, targetID, userID)
}

func (s *MemoryStore) InsertSignal(ctx context.Context, sig *models.Signal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.InsertSignal(ctx, sig)
}

func (s *MemoryStore) DeleteSignal(ctx context.Context, kind models.SignalKind, targetID, userID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.DeleteSignal(ctx, kind, targetID, userID)
}

func (s *MemoryStore) CountSignals(ctx context.Context, kind models.SignalKind, targetID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.CountSignals(ctx, kind, targetID)
}

// memTx is the view handed to WithinTx callbacks; the store mutex is
// already held.
type memTx struct {
	*memState
}

func (t memTx) WithinTx(ctx context.Context, fn func(tx Store) error) error {
	return fn(t)
}

func (m *memState) UpsertUser(_ context.Context, identityRef, email, displayName string) (*models.User, error) {
	now := time.Now().UTC()
	if id, ok := m.identities[identityRef]; ok {
		u := m.users[id]
		u.Email = email
		u.DisplayName = displayName
		u.UpdatedAt = now
		m.users[id] = u
		return &u, nil
	}

	u := models.User{
		ID:          uuid.New(),
		IdentityRef: identityRef,
		Email:       email,
		DisplayName: displayName,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	m.users[u.ID] = u
	m.identities[identityRef] = u.ID
	return &u, nil
}

func (m *memState) UserByIdentity(_ context.Context, identityRef string) (*models.User, error) {
	id, ok := m.identities[identityRef]
	if !ok {
		return nil, ErrNotFound
	}
	u := m.users[id]
	return &u, nil
}

func (m *memState) UserByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (m *memState) CreateProblem(_ context.Context, p *models.Problem) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if _, ok := m.problems[p.ID]; ok {
		return fmt.Errorf("%w: problem %s", ErrDuplicate, p.ID)
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = p.CreatedAt
	}
	m.problems[p.ID] = *p
	m.problemOrder = append(m.problemOrder, p.ID)
	return nil
}

func (m *memState) ProblemByID(_ context.Context, id uuid.UUID) (*models.Problem, error) {
	p, ok := m.problems[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (m *memState) ListProblems(_ context.Context, q ProblemQuery) ([]models.Problem, int64, error) {
	matched := make([]models.Problem, 0, len(m.problemOrder))
	for _, id := range m.problemOrder {
		p := m.problems[id]
		if q.Category != "" && p.Category != q.Category {
			continue
		}
		if q.HasSolutions && p.SolutionCount <= 0 {
			continue
		}
		if q.Unsolved && p.HasSolvedSolution {
			continue
		}
		matched = append(matched, p)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return scoring.Less(q.Sort, &matched[i], &matched[j])
	})

	total := int64(len(matched))
	start := q.Offset
	if start > len(matched) {
		start = len(matched)
	}
	end := len(matched)
	if q.Limit > 0 && start+q.Limit < end {
		end = start + q.Limit
	}
	return matched[start:end], total, nil
}

func (m *memState) ProblemsByAuthor(_ context.Context, authorID uuid.UUID) ([]models.Problem, error) {
	items := []models.Problem{}
	for _, id := range m.problemOrder {
		if p := m.problems[id]; p.AuthorID == authorID {
			items = append(items, p)
		}
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	return items, nil
}

func (m *memState) ProblemIDs(_ context.Context) ([]uuid.UUID, error) {
	return append([]uuid.UUID(nil), m.problemOrder...), nil
}

func (m *memState) AdjustProblem(_ context.Context, id uuid.UUID, d ProblemDelta) (*models.Problem, error) {
	p, ok := m.problems[id]
	if !ok {
		return nil, ErrNotFound
	}
	p.UpvoteCount += d.Upvotes
	p.PaySignalCount += d.PaySignals
	p.AlternativesCount += d.Alternatives
	p.SolutionCount += d.Solutions
	p.CompositeScore += d.Score
	p.UpdatedAt = time.Now().UTC()
	m.problems[id] = p
	return &p, nil
}

func (m *memState) SetProblemSolved(_ context.Context, id uuid.UUID, solved bool) error {
	p, ok := m.problems[id]
	if !ok {
		return ErrNotFound
	}
	p.HasSolvedSolution = solved
	p.UpdatedAt = time.Now().UTC()
	m.problems[id] = p
	return nil
}

func (m *memState) ReplaceProblemAggregates(_ context.Context, id uuid.UUID, a ProblemAggregates) error {
	p, ok := m.problems[id]
	if !ok {
		return ErrNotFound
	}
	p.UpvoteCount = a.UpvoteCount
	p.PaySignalCount = a.PaySignalCount
	p.AlternativesCount = a.AlternativesCount
	p.SolutionCount = a.SolutionCount
	p.CompositeScore = a.CompositeScore
	p.HasSolvedSolution = a.HasSolvedSolution
	p.UpdatedAt = time.Now().UTC()
	m.problems[id] = p
	return nil
}

func (m *memState) CreateSolution(_ context.Context, sol *models.Solution) error {
	if sol.ID == uuid.Nil {
		sol.ID = uuid.New()
	}
	if _, ok := m.solutions[sol.ID]; ok {
		return fmt.Errorf("%w: solution %s", ErrDuplicate, sol.ID)
	}
	if sol.CreatedAt.IsZero() {
		sol.CreatedAt = time.Now().UTC()
	}
	m.solutions[sol.ID] = *sol
	return nil
}

func (m *memState) SolutionByID(_ context.Context, id uuid.UUID) (*models.Solution, error) {
	sol, ok := m.solutions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &sol, nil
}

func (m *memState) SolutionsForProblem(_ context.Context, problemID uuid.UUID) ([]models.Solution, error) {
	items := []models.Solution{}
	for _, sol := range m.solutions {
		if sol.ProblemID == problemID {
			items = append(items, sol)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].UpvoteCount != items[j].UpvoteCount {
			return items[i].UpvoteCount > items[j].UpvoteCount
		}
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	return items, nil
}

func (m *memState) SolutionsByAuthor(_ context.Context, authorID uuid.UUID) ([]models.Solution, error) {
	items := []models.Solution{}
	for _, sol := range m.solutions {
		if sol.AuthorID == authorID {
			items = append(items, sol)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	return items, nil
}

func (m *memState) AdjustSolutionUpvotes(_ context.Context, id uuid.UUID, n int) (*models.Solution, error) {
	sol, ok := m.solutions[id]
	if !ok {
		return nil, ErrNotFound
	}
	sol.UpvoteCount += n
	m.solutions[id] = sol
	return &sol, nil
}

func (m *memState) SetSolutionSolved(_ context.Context, id uuid.UUID, solved bool, by *uuid.UUID) error {
	sol, ok := m.solutions[id]
	if !ok {
		return ErrNotFound
	}
	sol.IsMarkedSolved = solved
	sol.SolvedByUserID = by
	m.solutions[id] = sol
	return nil
}

func (m *memState) AnyOtherSolved(_ context.Context, problemID, excludeID uuid.UUID) (bool, error) {
	for _, sol := range m.solutions {
		if sol.ProblemID == problemID && sol.ID != excludeID && sol.IsMarkedSolved {
			return true, nil
		}
	}
	return false, nil
}

func (m *memState) ReplaceSolutionUpvotes(_ context.Context, id uuid.UUID, n int) error {
	sol, ok := m.solutions[id]
	if !ok {
		return ErrNotFound
	}
	sol.UpvoteCount = n
	m.solutions[id] = sol
	return nil
}

func (m *memState) CreateAlternative(_ context.Context, a *models.Alternative) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	m.alternatives = append(m.alternatives, *a)
	return nil
}

func (m *memState) AlternativesForProblem(_ context.Context, problemID uuid.UUID) ([]models.Alternative, error) {
	items := []models.Alternative{}
	for _, a := range m.alternatives {
		if a.ProblemID == problemID {
			items = append(items, a)
		}
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	return items, nil
}

func (m *memState) FindSignal(_ context.Context, kind models.SignalKind, targetID, userID uuid.UUID) (*models.Signal, error) {
	sig, ok := m.signals[signalKey{kind, targetID, userID}]
	if !ok {
		return nil, ErrNotFound
	}
	return &sig, nil
}

func (m *memState) InsertSignal(_ context.Context, sig *models.Signal) error {
	if !sig.Kind.Valid() {
		return fmt.Errorf("unknown signal kind %q", sig.Kind)
	}
	key := signalKey{sig.Kind, sig.TargetID, sig.UserID}
	if _, ok := m.signals[key]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicate, sig.Kind)
	}
	if sig.CreatedAt.IsZero() {
		sig.CreatedAt = time.Now().UTC()
	}
	m.signals[key] = *sig
	return nil
}

func (m *memState) DeleteSignal(_ context.Context, kind models.SignalKind, targetID, userID uuid.UUID) (bool, error) {
	key := signalKey{kind, targetID, userID}
	if _, ok := m.signals[key]; !ok {
		return false, nil
	}
	delete(m.signals, key)
	return true, nil
}

func (m *memState) CountSignals(_ context.Context, kind models.SignalKind, targetID uuid.UUID) (int64, error) {
	var n int64
	for k := range m.signals {
		if k.kind == kind && k.target == targetID {
			n++
		}
	}
	return n, nil
}
