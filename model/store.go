package model

import (
	"context"
	"errors"
	"sync"
)

// StatusFilter is the list-view filter: "all" or one concrete status.
type StatusFilter string

const (
	FilterAll       StatusFilter = "all"
	FilterDraft     StatusFilter = StatusFilter(InvoiceStatusDraft)
	FilterSent      StatusFilter = StatusFilter(InvoiceStatusSent)
	FilterPaid      StatusFilter = StatusFilter(InvoiceStatusPaid)
	FilterOverdue   StatusFilter = StatusFilter(InvoiceStatusOverdue)
	FilterCancelled StatusFilter = StatusFilter(InvoiceStatusCancelled)
)

func (f StatusFilter) Valid() bool {
	return f == FilterAll || InvoiceStatus(f).Valid()
}

// State is a snapshot of the store. Invoices are most-recent-first.
// DrawerOpen (creation form) and ModalOpen (read-only detail) are
// independent flags; both may be true at the same time.
type State struct {
	Invoices     []Invoice
	Selected     *Invoice
	IsLoading    bool
	Err          string
	DrawerOpen   bool
	ModalOpen    bool
	FilterStatus StatusFilter
	SearchQuery  string

	// FallbackActive is set when Invoices holds the bundled demo dataset
	// instead of remote rows, so the UI can hint at it.
	FallbackActive bool
}

// Store is the single authoritative in-memory cache of the invoice
// collection for a session. It mediates all reads and writes to the
// remote collaborator and notifies subscribers after every committed
// state change. Construct one per application instance with NewStore and
// pass it by reference; it is not a package-level singleton.
type Store struct {
	remote Remote

	mu    sync.Mutex
	state State

	// Generation counters per request type. A completion whose
	// generation is no longer current is discarded, so a stale response
	// cannot clobber the result of a newer request.
	fetchGen  uint64
	selectGen uint64

	subs    map[int]func(State)
	nextSub int
}

func NewStore(remote Remote) *Store {
	return &Store{
		remote: remote,
		state:  State{FilterStatus: FilterAll},
		subs:   make(map[int]func(State)),
	}
}

// State returns a snapshot of the current state. The contained slices
// are copies; callers must not mutate the invoices themselves.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe registers fn to be called with a snapshot after every state
// change. The returned function removes the subscription.
func (s *Store) Subscribe(fn func(State)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *Store) snapshotLocked() State {
	st := s.state
	st.Invoices = append([]Invoice(nil), s.state.Invoices...)
	if s.state.Selected != nil {
		sel := *s.state.Selected
		st.Selected = &sel
	}
	return st
}

// mutate applies fn under the lock, then notifies subscribers outside it.
func (s *Store) mutate(fn func(st *State)) {
	s.mu.Lock()
	fn(&s.state)
	snap := s.snapshotLocked()
	fns := make([]func(State), 0, len(s.subs))
	for _, f := range s.subs {
		fns = append(fns, f)
	}
	s.mu.Unlock()
	for _, f := range fns {
		f(snap)
	}
}

// FetchInvoices loads the full collection, newest first. A remote error
// or an empty result substitutes the bundled fallback dataset; read
// failures are deliberately not surfaced to the user.
func (s *Store) FetchInvoices(ctx context.Context, userID string) {
	s.mu.Lock()
	s.fetchGen++
	gen := s.fetchGen
	s.mu.Unlock()
	s.mutate(func(st *State) {
		st.IsLoading = true
		st.Err = ""
	})

	rows, err := s.remote.SelectInvoices(ctx, userID)

	s.mu.Lock()
	stale := gen != s.fetchGen
	s.mu.Unlock()
	if stale {
		return
	}
	s.mutate(func(st *State) {
		st.IsLoading = false
		if err != nil || len(rows) == 0 {
			st.Invoices = FallbackInvoices()
			st.FallbackActive = true
			return
		}
		st.Invoices = rows
		st.FallbackActive = false
	})
}

// FetchInvoiceByID resolves one invoice into the selection. Absence in
// both the remote and the fallback dataset clears the selection and is
// not an error.
func (s *Store) FetchInvoiceByID(ctx context.Context, id string) {
	s.mu.Lock()
	s.selectGen++
	gen := s.selectGen
	s.mu.Unlock()
	s.mutate(func(st *State) {
		st.IsLoading = true
		st.Err = ""
	})

	inv, err := s.remote.SelectInvoiceByID(ctx, id)
	if err != nil {
		if fb, ok := FallbackInvoiceByID(id); ok {
			inv = fb
		} else {
			inv = nil
		}
	}

	s.mu.Lock()
	stale := gen != s.selectGen
	s.mu.Unlock()
	if stale {
		return
	}
	s.mutate(func(st *State) {
		st.IsLoading = false
		st.Selected = inv
	})
}

// CreateInvoice validates and submits a new invoice. It fails fast with
// ErrNotAuthenticated when no user is signed in (no remote call is
// issued) and returns ValidationErrors without touching store state. On
// acceptance the cache is resynced with a full refetch (no optimistic
// insert) and the creation drawer is closed. On a remote failure the
// drawer stays open and the error is surfaced; nothing is committed.
func (s *Store) CreateInvoice(ctx context.Context, userID string, inv *Invoice) error {
	if userID == "" {
		return ErrNotAuthenticated
	}
	inv.UserID = userID
	if verrs := Validate(inv); len(verrs) > 0 {
		return verrs
	}

	s.mutate(func(st *State) {
		st.IsLoading = true
		st.Err = ""
	})
	if err := s.remote.InsertInvoice(ctx, inv); err != nil {
		s.mutate(func(st *State) {
			st.IsLoading = false
			st.Err = errMessage(err)
		})
		return err
	}
	s.FetchInvoices(ctx, userID)
	s.mutate(func(st *State) {
		st.DrawerOpen = false
	})
	return nil
}

// UpdateInvoice submits a partial field patch. On acceptance the cache
// is resynced with a full refetch; on failure the previously displayed
// data is left untouched.
func (s *Store) UpdateInvoice(ctx context.Context, userID, id string, patch Patch) error {
	s.mutate(func(st *State) {
		st.IsLoading = true
		st.Err = ""
	})
	if err := s.remote.UpdateInvoice(ctx, id, patch); err != nil {
		s.mutate(func(st *State) {
			st.IsLoading = false
			st.Err = errMessage(err)
		})
		return err
	}
	s.FetchInvoices(ctx, userID)
	return nil
}

// DeleteInvoice removes an invoice. The local copy is evicted only after
// the remote confirms the deletion; no full refetch is issued.
func (s *Store) DeleteInvoice(ctx context.Context, id string) error {
	s.mutate(func(st *State) {
		st.IsLoading = true
		st.Err = ""
	})
	if err := s.remote.DeleteInvoice(ctx, id); err != nil {
		s.mutate(func(st *State) {
			st.IsLoading = false
			st.Err = errMessage(err)
		})
		return err
	}
	s.mutate(func(st *State) {
		st.IsLoading = false
		kept := st.Invoices[:0]
		for _, inv := range st.Invoices {
			if inv.ID != id {
				kept = append(kept, inv)
			}
		}
		st.Invoices = kept
		if st.Selected != nil && st.Selected.ID == id {
			st.Selected = nil
			st.ModalOpen = false
		}
	})
	return nil
}

// --- UI flag operations ---

func (s *Store) OpenDrawer()  { s.mutate(func(st *State) { st.DrawerOpen = true }) }
func (s *Store) CloseDrawer() { s.mutate(func(st *State) { st.DrawerOpen = false }) }
func (s *Store) CloseModal()  { s.mutate(func(st *State) { st.ModalOpen = false }) }

func (s *Store) SelectInvoice(inv *Invoice) {
	s.mutate(func(st *State) { st.Selected = inv })
}

// OpenModal sets the selection and opens the modal in one commit; the
// modal is never shown without a selected invoice.
func (s *Store) OpenModal(inv *Invoice) {
	s.mutate(func(st *State) {
		st.Selected = inv
		st.ModalOpen = true
	})
}

func (s *Store) SetFilterStatus(f StatusFilter) {
	if !f.Valid() {
		f = FilterAll
	}
	s.mutate(func(st *State) { st.FilterStatus = f })
}

func (s *Store) SetSearchQuery(q string) {
	s.mutate(func(st *State) { st.SearchQuery = q })
}

func errMessage(err error) string {
	var re *RemoteError
	if errors.As(err, &re) {
		return re.Message()
	}
	return err.Error()
}
