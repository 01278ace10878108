// Package ledger holds trust balances and the authoritative index of active grants.
//
// The store performs no I/O. Every mutation validates first and writes last, so a
// failed mutation leaves the store untouched. Callers run each operation inside Do,
// which admits one top-level call at a time and rolls a failed call back as a whole.
package ledger

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/simaogato/disburse-backend/internal/domain"
)

type callScopeKey struct{}

// callScope is shared by a top-level call and the calls nested in it
type callScope struct {
	store       *Store
	afterCommit []func(ctx context.Context)
}

type grantKey struct {
	owner   domain.Address
	address domain.Address
}

// Store is the in-memory ledger
type Store struct {
	mu sync.Mutex

	trusts         map[domain.Address]*domain.Trust
	beneficiaries  map[uint64]*domain.Beneficiary
	byDisbursement map[uuid.UUID]uint64
	byGrant        map[grantKey]uint64
	byOwner        map[domain.Address][]uint64 // ascending ids
	byAddress      map[domain.Address]int      // active grants per recipient
	lastID         uint64

	participants []Participant
}

// NewStore creates an empty ledger
func NewStore() *Store {
	return &Store{
		trusts:         make(map[domain.Address]*domain.Trust),
		beneficiaries:  make(map[uint64]*domain.Beneficiary),
		byDisbursement: make(map[uuid.UUID]uint64),
		byGrant:        make(map[grantKey]uint64),
		byOwner:        make(map[domain.Address][]uint64),
		byAddress:      make(map[domain.Address]int),
	}
}

// Participant is state kept outside the store that a ledger call can change,
// such as the external accounts a call collects from and pays out to.
type Participant interface {
	// Checkpoint captures the current state and returns a function restoring it
	Checkpoint() (restore func())
}

// Enlist adds p to the checkpoint of every call. Enlisting the same participant
// twice has no effect. Must not be called from inside a call.
func (s *Store) Enlist(p Participant) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, enlisted := range s.participants {
		if enlisted == p {
			return
		}
	}
	s.participants = append(s.participants, p)
}

// Do runs fn as a single call. Top-level calls are admitted one at a time.
// A call made with the context passed to fn (for example a recipient re-entering
// the ledger from inside an outbound transfer) runs immediately as a nested call
// and observes the state the outer call has already written.
//
// A call that returns an error leaves the store and every enlisted Participant as
// they were before it started, including whatever its nested calls changed. Work
// queued with AfterCommit runs once the top-level call has succeeded and the store
// is released, in the order it was queued.
// The scoped context must not be handed to other goroutines.
func (s *Store) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if scope := s.scopeOf(ctx); scope != nil {
		return s.run(ctx, scope, fn)
	}

	scope := &callScope{store: s}
	if err := s.runExclusive(context.WithValue(ctx, callScopeKey{}, scope), scope, fn); err != nil {
		return err
	}

	for _, task := range scope.afterCommit {
		task(ctx)
	}
	return nil
}

// AfterCommit queues task to run after the top-level call ctx belongs to has
// succeeded. A failed call, or a failed nested call, drops the tasks it queued.
// It returns false and queues nothing when ctx is not inside a call.
func AfterCommit(ctx context.Context, task func(ctx context.Context)) bool {
	scope, ok := ctx.Value(callScopeKey{}).(*callScope)
	if !ok {
		return false
	}
	scope.afterCommit = append(scope.afterCommit, task)
	return true
}

// InCall reports whether ctx belongs to a call currently running in this store
func (s *Store) InCall(ctx context.Context) bool {
	return s.scopeOf(ctx) != nil
}

func (s *Store) scopeOf(ctx context.Context) *callScope {
	scope, ok := ctx.Value(callScopeKey{}).(*callScope)
	if !ok || scope.store != s {
		return nil
	}
	return scope
}

func (s *Store) runExclusive(ctx context.Context, scope *callScope, fn func(ctx context.Context) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.run(ctx, scope, fn)
}

func (s *Store) run(ctx context.Context, scope *callScope, fn func(ctx context.Context) error) error {
	restore := s.checkpoint()
	queued := len(scope.afterCommit)

	if err := fn(ctx); err != nil {
		restore()
		scope.afterCommit = scope.afterCommit[:queued]
		return err
	}
	return nil
}

// checkpoint copies the indexes and asks every participant for its own checkpoint.
// Trust and grant records are never modified in place, so copying the maps is enough.
// lastID is left alone: an id handed out by a failed call is never handed out again.
func (s *Store) checkpoint() (restore func()) {
	trusts := maps.Clone(s.trusts)
	beneficiaries := maps.Clone(s.beneficiaries)
	byDisbursement := maps.Clone(s.byDisbursement)
	byGrant := maps.Clone(s.byGrant)
	byAddress := maps.Clone(s.byAddress)
	byOwner := make(map[domain.Address][]uint64, len(s.byOwner))
	for owner, ids := range s.byOwner {
		byOwner[owner] = slices.Clone(ids)
	}
	external := make([]func(), 0, len(s.participants))
	for _, p := range s.participants {
		external = append(external, p.Checkpoint())
	}

	return func() {
		s.trusts = trusts
		s.beneficiaries = beneficiaries
		s.byDisbursement = byDisbursement
		s.byGrant = byGrant
		s.byAddress = byAddress
		s.byOwner = byOwner

		for _, restoreExternal := range external {
			restoreExternal()
		}
	}
}

// Trust returns a copy of the owner's trust
func (s *Store) Trust(owner domain.Address) (domain.Trust, bool) {
	trust, ok := s.trusts[owner]
	if !ok {
		return domain.Trust{}, false
	}
	return *trust, true
}

// Owners returns every owner that has ever contributed, sorted
func (s *Store) Owners() []domain.Address {
	owners := make([]domain.Address, 0, len(s.trusts))
	for owner := range s.trusts {
		owners = append(owners, owner)
	}
	sort.Slice(owners, func(i, j int) bool { return owners[i] < owners[j] })
	return owners
}

// BalanceOf returns the unencumbered balance; zero for unknown owners
func (s *Store) BalanceOf(owner domain.Address) decimal.Decimal {
	trust, ok := s.trusts[owner]
	if !ok {
		return decimal.Zero
	}
	return trust.Balance
}

// ReservedOf returns the sum reserved for the owner's active grants
func (s *Store) ReservedOf(owner domain.Address) decimal.Decimal {
	trust, ok := s.trusts[owner]
	if !ok {
		return decimal.Zero
	}
	return trust.Reserved
}

// Contribute credits amount to the owner's balance, creating the trust on first use
func (s *Store) Contribute(owner domain.Address, amount decimal.Decimal) error {
	if err := owner.Validate(); err != nil {
		return err
	}
	if err := domain.ValidatePositiveAmount(amount); err != nil {
		return err
	}

	next := domain.NewTrust(owner)
	if trust, ok := s.trusts[owner]; ok {
		*next = *trust
	}
	next.Balance = next.Balance.Add(amount)
	next.Contributed = next.Contributed.Add(amount)

	return s.commit(next)
}

// Withdraw debits amount from the owner's balance. The caller pays it out.
func (s *Store) Withdraw(owner domain.Address, amount decimal.Decimal) error {
	if err := domain.ValidatePositiveAmount(amount); err != nil {
		return err
	}

	trust, ok := s.trusts[owner]
	if !ok || amount.GreaterThan(trust.Balance) {
		return fmt.Errorf("%w: requested %s, available %s", domain.ErrInsufficientBalance, amount, s.BalanceOf(owner))
	}

	next := *trust
	next.Balance = next.Balance.Sub(amount)
	next.Withdrawn = next.Withdrawn.Add(amount)

	return s.commit(&next)
}

// Reserve moves amount from the unencumbered balance to the pending pool
func (s *Store) Reserve(owner domain.Address, amount decimal.Decimal) error {
	if err := domain.ValidateAmount(amount); err != nil {
		return err
	}

	trust, ok := s.trusts[owner]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrTrustNotFound, owner)
	}
	if amount.GreaterThan(trust.Balance) {
		return fmt.Errorf("%w: requested %s, available %s", domain.ErrInsufficientBalance, amount, trust.Balance)
	}

	next := *trust
	next.Balance = next.Balance.Sub(amount)
	next.Reserved = next.Reserved.Add(amount)

	return s.commit(&next)
}

// Release moves amount from the pending pool back to the unencumbered balance
func (s *Store) Release(owner domain.Address, amount decimal.Decimal) error {
	if err := domain.ValidateAmount(amount); err != nil {
		return err
	}

	trust, ok := s.trusts[owner]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrTrustNotFound, owner)
	}
	if amount.GreaterThan(trust.Reserved) {
		return fmt.Errorf("%w: release %s exceeds reserved %s", domain.ErrInsufficientReserve, amount, trust.Reserved)
	}

	next := *trust
	next.Balance = next.Balance.Add(amount)
	next.Reserved = next.Reserved.Sub(amount)

	return s.commit(&next)
}

// Allocate reserves the grant amount and indexes a new pending grant.
// ID, DisbursementID and Status are assigned by the store.
func (s *Store) Allocate(grant domain.Beneficiary) (domain.Beneficiary, error) {
	grant.Status = domain.BeneficiaryStatusPending
	grant.Complete = false
	if err := grant.Validate(); err != nil {
		return domain.Beneficiary{}, err
	}

	key := grantKey{owner: grant.TrustOwner, address: grant.Address}
	if existing, ok := s.byGrant[key]; ok {
		return domain.Beneficiary{}, fmt.Errorf("%w: beneficiary id %d", domain.ErrDuplicateBeneficiary, existing)
	}

	if err := s.Reserve(grant.TrustOwner, grant.Amount); err != nil {
		return domain.Beneficiary{}, err
	}

	s.lastID++
	grant.ID = s.lastID
	grant.DisbursementID = domain.DisbursementIDFor(grant.TrustOwner, grant.ID)
	s.index(&grant)

	return grant, nil
}

// Get returns the active grant with the given id
func (s *Store) Get(id uint64) (domain.Beneficiary, error) {
	grant, ok := s.beneficiaries[id]
	if !ok {
		return domain.Beneficiary{}, fmt.Errorf("%w: id %d", domain.ErrNotFound, id)
	}
	return *grant, nil
}

// GetByDisbursement returns the active grant paired with a disbursement id
func (s *Store) GetByDisbursement(disbursementID uuid.UUID) (domain.Beneficiary, error) {
	id, ok := s.byDisbursement[disbursementID]
	if !ok {
		return domain.Beneficiary{}, fmt.Errorf("%w: disbursement %s", domain.ErrNotFound, disbursementID)
	}
	return s.Get(id)
}

// IDOf returns the id of owner's active grant to address
func (s *Store) IDOf(owner, address domain.Address) (uint64, error) {
	id, ok := s.byGrant[grantKey{owner: owner, address: address}]
	if !ok {
		return 0, fmt.Errorf("%w: no pending grant from %s to %s", domain.ErrNotFound, owner, address)
	}
	return id, nil
}

// AtIndex returns owner's i-th active grant in ascending id order.
// Indices shift when grants are removed; ids never do.
func (s *Store) AtIndex(owner domain.Address, i int) (domain.Beneficiary, error) {
	ids := s.byOwner[owner]
	if i < 0 || i >= len(ids) {
		return domain.Beneficiary{}, fmt.Errorf("%w: index %d out of range for %s", domain.ErrNotFound, i, owner)
	}
	return s.Get(ids[i])
}

// CountOf returns the number of owner's active grants
func (s *Store) CountOf(owner domain.Address) int {
	return len(s.byOwner[owner])
}

// DisbursementCount returns the number of active grants paying address
func (s *Store) DisbursementCount(address domain.Address) int {
	return s.byAddress[address]
}

// Active returns owner's active grants in ascending id order
func (s *Store) Active(owner domain.Address) []domain.Beneficiary {
	ids := s.byOwner[owner]
	grants := make([]domain.Beneficiary, 0, len(ids))
	for _, id := range ids {
		grants = append(grants, *s.beneficiaries[id])
	}
	return grants
}

// All returns every active grant in ascending id order
func (s *Store) All() []domain.Beneficiary {
	grants := make([]domain.Beneficiary, 0, len(s.beneficiaries))
	for _, grant := range s.beneficiaries {
		grants = append(grants, *grant)
	}
	sort.Slice(grants, func(i, j int) bool { return grants[i].ID < grants[j].ID })
	return grants
}

// Revoke releases a pending grant's reserve to its owner and removes the grant.
// status must be CANCELLED or REFUNDED.
func (s *Store) Revoke(id uint64, status domain.BeneficiaryStatus) (domain.Beneficiary, error) {
	if status != domain.BeneficiaryStatusCancelled && status != domain.BeneficiaryStatusRefunded {
		return domain.Beneficiary{}, fmt.Errorf("cannot revoke grant into status %s", status)
	}

	grant, err := s.Get(id)
	if err != nil {
		return domain.Beneficiary{}, err
	}

	if err := s.Release(grant.TrustOwner, grant.Amount); err != nil {
		return domain.Beneficiary{}, err
	}
	s.unindex(&grant)

	grant.Status = status
	return grant, nil
}

// Settle removes a matured grant and books its amount as disbursed.
// The returned record is complete; the caller pays it out.
func (s *Store) Settle(id uint64) (domain.Beneficiary, error) {
	grant, err := s.Get(id)
	if err != nil {
		return domain.Beneficiary{}, err
	}

	trust, ok := s.trusts[grant.TrustOwner]
	if !ok {
		return domain.Beneficiary{}, fmt.Errorf("%w: %s", domain.ErrTrustNotFound, grant.TrustOwner)
	}
	if grant.Amount.GreaterThan(trust.Reserved) {
		return domain.Beneficiary{}, fmt.Errorf("%w: grant %d exceeds reserve", domain.ErrInsufficientReserve, id)
	}

	next := *trust
	next.Reserved = next.Reserved.Sub(grant.Amount)
	next.Disbursed = next.Disbursed.Add(grant.Amount)
	if err := s.commit(&next); err != nil {
		return domain.Beneficiary{}, err
	}
	s.unindex(&grant)

	grant.Complete = true
	grant.Status = domain.BeneficiaryStatusDisbursed
	return grant, nil
}

// Audit verifies every trust invariant and that each owner's reserve equals the
// sum of its active grants.
func (s *Store) Audit() error {
	for owner, trust := range s.trusts {
		if err := trust.Validate(); err != nil {
			return err
		}

		sum := decimal.Zero
		for _, id := range s.byOwner[owner] {
			sum = sum.Add(s.beneficiaries[id].Amount)
		}
		if !sum.Equal(trust.Reserved) {
			return fmt.Errorf("%w: %s reserves %s but active grants total %s",
				domain.ErrInvariantViolation, owner, trust.Reserved, sum)
		}
	}

	for owner, ids := range s.byOwner {
		if _, ok := s.trusts[owner]; !ok && len(ids) > 0 {
			return fmt.Errorf("%w: grants indexed for unknown trust %s", domain.ErrInvariantViolation, owner)
		}
	}

	return nil
}

// commit validates the next trust state and writes it
func (s *Store) commit(next *domain.Trust) error {
	if err := next.Validate(); err != nil {
		return err
	}
	s.trusts[next.Owner] = next
	return nil
}

func (s *Store) index(grant *domain.Beneficiary) {
	stored := *grant
	s.beneficiaries[stored.ID] = &stored
	s.byDisbursement[stored.DisbursementID] = stored.ID
	s.byGrant[grantKey{owner: stored.TrustOwner, address: stored.Address}] = stored.ID
	s.byAddress[stored.Address]++

	ids := s.byOwner[stored.TrustOwner]
	pos := sort.Search(len(ids), func(i int) bool { return ids[i] >= stored.ID })
	ids = append(ids, 0)
	copy(ids[pos+1:], ids[pos:])
	ids[pos] = stored.ID
	s.byOwner[stored.TrustOwner] = ids
}

func (s *Store) unindex(grant *domain.Beneficiary) {
	delete(s.beneficiaries, grant.ID)
	delete(s.byDisbursement, grant.DisbursementID)
	delete(s.byGrant, grantKey{owner: grant.TrustOwner, address: grant.Address})

	if s.byAddress[grant.Address] <= 1 {
		delete(s.byAddress, grant.Address)
	} else {
		s.byAddress[grant.Address]--
	}

	ids := s.byOwner[grant.TrustOwner]
	for i, id := range ids {
		if id == grant.ID {
			ids = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	if len(ids) == 0 {
		delete(s.byOwner, grant.TrustOwner)
	} else {
		s.byOwner[grant.TrustOwner] = ids
	}
}
