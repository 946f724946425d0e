// Package memory holds in-memory repository implementations used by unit
// tests. DB() returns nil on every repository so services run their
// transactional paths without a database.
package memory

import (
	"sync"
	"time"

	"github.com/tntan04/quan-ly-mua-sam/internal/model"

	"github.com/google/uuid"
)

// Store is the shared state behind every in-memory repository.
type Store struct {
	mu sync.Mutex

	users        map[uuid.UUID]model.User
	units        map[uuid.UUID]model.ProcurementUnit
	methods      map[uuid.UUID]model.ProcurementMethod
	requests     map[uuid.UUID]model.ProcurementRequest
	dossiers     map[uuid.UUID]model.ProcurementDossier
	files        map[uuid.UUID]model.DossierFile
	goods        map[uuid.UUID]model.GoodsItem
	transactions map[uuid.UUID]model.InventoryTransaction

	failures map[string]error
	seq      int64
}

func NewStore() *Store {
	return &Store{
		users:        map[uuid.UUID]model.User{},
		units:        map[uuid.UUID]model.ProcurementUnit{},
		methods:      map[uuid.UUID]model.ProcurementMethod{},
		requests:     map[uuid.UUID]model.ProcurementRequest{},
		dossiers:     map[uuid.UUID]model.ProcurementDossier{},
		files:        map[uuid.UUID]model.DossierFile{},
		goods:        map[uuid.UUID]model.GoodsItem{},
		transactions: map[uuid.UUID]model.InventoryTransaction{},
		failures:     map[string]error{},
	}
}

// FailOn makes the named repository method return err until cleared with a
// nil err. Names are "<Repo>.<Method>", e.g. "Requests.MarkPurchasedTx".
// "*" fails every call.
func (s *Store) FailOn(name string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, name)
		return
	}
	s.failures[name] = err
}

// fail must be called with mu held.
func (s *Store) fail(name string) error {
	if err, ok := s.failures["*"]; ok {
		return err
	}
	return s.failures[name]
}

// stamp returns a strictly increasing timestamp so ordering by creation time
// is stable inside fast tests.
func (s *Store) stamp() time.Time {
	s.seq++
	return time.Unix(1_700_000_000+s.seq, 0).UTC()
}

func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
