package interop

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"

	"github.com/0xPolygon/interop-edge/storage"
	"github.com/0xPolygon/interop-edge/types"
)

// EventSource is the settlement layer interop root log
type EventSource interface {
	InteropRootEvents(fromSeq uint64, limit int) ([]*types.InteropRootEvent, error)
}

// SyncerConfig holds the parameters of a syncer
type SyncerConfig struct {
	// SettlementChainID is the id of the settlement layer, whose own roots are not mirrored
	SettlementChainID uint64
	// BatchSize is the maximum number of events processed by one poll
	BatchSize int
	// PollInterval is the period of the sync loop
	PollInterval time.Duration
}

// Halt is the record of a source chain halted by a conflict
type Halt struct {
	Seq      uint64               `json:"seq"`
	Key      types.InteropRootKey `json:"key"`
	Existing types.Hash           `json:"existing"`
	Incoming types.Hash           `json:"incoming"`
	// Held are the sequence numbers of events of the source received while halted
	Held []uint64 `json:"held"`
}

var errHeldEventMissing = errors.New("held event missing from the log")

type syncState struct {
	Cursor uint64           `json:"cursor"`
	Halted map[string]*Halt `json:"halted"`
	// Unassigned are the mirrored roots no stored block has been assigned yet, in delivery order
	Unassigned []*types.InteropRootRef `json:"unassigned"`
}

// Syncer mirrors the interop root log of the settlement layer into the interop root store
// of one destination chain. It is the only writer of that store. Progress is persisted so
// a restarted syncer resumes from its cursor.
type Syncer struct {
	store   *Store
	source  EventSource
	storage storage.Storage
	config  *SyncerConfig
	logger  hclog.Logger

	lock  sync.Mutex
	state *syncState

	notifyCh chan struct{}
}

// NewSyncer creates the syncer feeding store from source
func NewSyncer(store *Store, source EventSource, db storage.Storage,
	config *SyncerConfig, logger hclog.Logger) (*Syncer, error) {
	if config.BatchSize <= 0 {
		config.BatchSize = 256
	}

	if config.PollInterval <= 0 {
		config.PollInterval = time.Second
	}

	s := &Syncer{
		store:    store,
		source:   source,
		storage:  db,
		config:   config,
		logger:   logger.Named("interop_syncer").With("chain", store.ChainID()),
		state:    &syncState{Halted: map[string]*Halt{}},
		notifyCh: make(chan struct{}, 1),
	}

	if _, err := db.ReadSyncState(s.stateName(), s.state); err != nil {
		return nil, fmt.Errorf("failed to read syncer state: %w", err)
	}

	if s.state.Halted == nil {
		s.state.Halted = map[string]*Halt{}
	}

	return s, nil
}

func (s *Syncer) stateName() string {
	return "interop_syncer_" + strconv.FormatUint(s.store.ChainID(), 10)
}

// SyncOnce processes the next events of the log. It is safe to call repeatedly and
// returns the number of roots delivered. Conflicts halt their source chain and are
// returned after the cursor has been persisted.
func (s *Syncer) SyncOnce() (int, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	events, err := s.source.InteropRootEvents(s.state.Cursor, s.config.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to read interop root events: %w", err)
	}

	var (
		delivered int
		conflicts error
	)

	for _, event := range events {
		if event.Seq != s.state.Cursor {
			err = fmt.Errorf("interop root event %d out of order, expected %d", event.Seq, s.state.Cursor)

			break
		}

		ok, applyErr := s.apply(event)
		if applyErr != nil {
			var conflict *RootConflictError
			if !errors.As(applyErr, &conflict) {
				err = applyErr

				break
			}

			conflicts = multierror.Append(conflicts, applyErr)
		}

		if ok {
			delivered++
		}

		s.state.Cursor++
	}

	if persistErr := s.storage.WriteSyncState(s.stateName(), s.state); persistErr != nil {
		return delivered, persistErr
	}

	if err != nil {
		return delivered, err
	}

	if delivered > 0 {
		s.logger.Debug("interop roots mirrored", "count", delivered, "cursor", s.state.Cursor)
	}

	return delivered, conflicts
}

// apply delivers one event, reporting whether a root was written
func (s *Syncer) apply(event *types.InteropRootEvent) (bool, error) {
	source := event.Key.SourceChainID

	// roots of the destination itself and of the settlement layer are never consumed through the store
	if source == s.store.ChainID() || source == s.config.SettlementChainID {
		return false, nil
	}

	if halt, ok := s.state.Halted[haltKey(source)]; ok {
		halt.Held = append(halt.Held, event.Seq)

		return false, nil
	}

	// redelivery of a known root
	if s.store.Get(event.Key) == event.Root {
		return false, nil
	}

	if err := s.store.Set(event.Key, event.Root); err != nil {
		var conflict *RootConflictError
		if errors.As(err, &conflict) {
			s.state.Halted[haltKey(source)] = &Halt{
				Seq:      event.Seq,
				Key:      event.Key,
				Existing: conflict.Existing,
				Incoming: conflict.Incoming,
			}

			s.logger.Error("halting source chain on interop root conflict", "source", source,
				"seq", event.Seq, "key", event.Key, "existing", conflict.Existing, "incoming", conflict.Incoming)
		}

		return false, err
	}

	s.state.Unassigned = append(s.state.Unassigned, &types.InteropRootRef{Key: event.Key, Root: event.Root})

	return true, nil
}

// Unassigned returns the mirrored roots not yet assigned to a stored block, in delivery
// order. They survive restarts until MarkAssigned drops them.
func (s *Syncer) Unassigned() []*types.InteropRootRef {
	s.lock.Lock()
	defer s.lock.Unlock()

	return append([]*types.InteropRootRef(nil), s.state.Unassigned...)
}

// MarkAssigned drops refs from the unassigned roots once the blocks carrying them are
// stored. Refs that are not pending are ignored, so replaying stored batches is safe.
func (s *Syncer) MarkAssigned(refs []*types.InteropRootRef) error {
	if len(refs) == 0 {
		return nil
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	assigned := make(map[types.InteropRootKey]struct{}, len(refs))
	for _, ref := range refs {
		assigned[ref.Key] = struct{}{}
	}

	pending := make([]*types.InteropRootRef, 0, len(s.state.Unassigned))

	for _, ref := range s.state.Unassigned {
		if _, ok := assigned[ref.Key]; !ok {
			pending = append(pending, ref)
		}
	}

	if len(pending) == len(s.state.Unassigned) {
		return nil
	}

	s.state.Unassigned = pending

	return s.storage.WriteSyncState(s.stateName(), s.state)
}

// Halted returns the halt records by source chain
func (s *Syncer) Halted() map[uint64]Halt {
	s.lock.Lock()
	defer s.lock.Unlock()

	result := make(map[uint64]Halt, len(s.state.Halted))

	for key, halt := range s.state.Halted {
		source, _ := strconv.ParseUint(key, 10, 64)
		result[source] = *halt
	}

	return result
}

// Resume lifts the halt of a source chain after manual intervention. The conflicting
// event is dropped and the events held while halted are replayed in order.
func (s *Syncer) Resume(source uint64) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	halt, ok := s.state.Halted[haltKey(source)]
	if !ok {
		return nil
	}

	delete(s.state.Halted, haltKey(source))
	s.logger.Warn("resuming source chain", "source", source, "dropped seq", halt.Seq, "held", len(halt.Held))

	var result error

	for i, seq := range halt.Held {
		events, err := s.source.InteropRootEvents(seq, 1)
		if err == nil && len(events) == 0 {
			err = errHeldEventMissing
		}

		if err != nil {
			// keep the remaining events held
			s.state.Halted[haltKey(source)] = &Halt{
				Seq: halt.Seq, Key: halt.Key, Existing: halt.Existing, Incoming: halt.Incoming, Held: halt.Held[i:],
			}
			result = multierror.Append(result, fmt.Errorf("failed to read held event %d: %w", seq, err))

			break
		}

		if _, err := s.apply(events[0]); err != nil {
			result = multierror.Append(result, err)
		}
	}

	if err := s.storage.WriteSyncState(s.stateName(), s.state); err != nil {
		result = multierror.Append(result, err)
	}

	return result
}

// Cursor returns the sequence number of the next event to process
func (s *Syncer) Cursor() uint64 {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.state.Cursor
}

// Notify wakes the sync loop up without waiting for the next tick
func (s *Syncer) Notify() {
	select {
	case s.notifyCh <- struct{}{}:
	default:
	}
}

// Run polls the settlement layer until the context is done
func (s *Syncer) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		case <-s.notifyCh:
		}

		if _, err := s.SyncOnce(); err != nil {
			s.logger.Error("interop root sync failed", "err", err)
		}
	}
}

func haltKey(source uint64) string {
	return strconv.FormatUint(source, 10)
}
