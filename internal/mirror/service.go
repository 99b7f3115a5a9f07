package mirror

import (
	"encoding/json"
	"sort"
	"sync"
	"time"

	"afr/internal/ledgercrypto"
	"afr/internal/transparency"
	"afr/pkg/apperr"
	"afr/pkg/store"
)

type document struct {
	Snapshots map[Party]*Snapshot `json:"snapshots"`
}

// transparencySource is the narrow read surface Service needs from
// the transparency store, kept as an interface so tests can supply a
// fake without a full Service + auditlog.Service pair.
type transparencySource interface {
	ListConcerns(status string) []transparency.Concern
	ListSubmissions(status, templateType, deploymentID string) []transparency.ComplianceSubmission
}

// Service is the replication simulator. It follows the shape of a
// mutex-guarded in-memory map of per-party state with document
// persistence.
type Service struct {
	mu        sync.RWMutex
	snapshots map[Party]*Snapshot
	source    transparencySource
	path      string
	now       func() time.Time
}

func NewService(dir string, source transparencySource) (*Service, error) {
	s := &Service{
		snapshots: make(map[Party]*Snapshot),
		source:    source,
		path:      dir + "/mirror_store.json",
		now:       time.Now,
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Service) load() error {
	var doc document
	found, err := store.LoadJSON(s.path, &doc)
	if err != nil {
		return apperr.Wrap(apperr.KindPersistence, err, "load mirror store")
	}
	if !found || doc.Snapshots == nil {
		return nil
	}
	s.snapshots = doc.Snapshots
	return nil
}

func (s *Service) persistLocked() error {
	doc := document{Snapshots: s.snapshots}
	if err := store.SaveJSON(s.path, doc); err != nil {
		return apperr.Wrap(apperr.KindPersistence, err, "persist mirror store")
	}
	return nil
}

func (s *Service) timestamp() string {
	return s.now().UTC().Format("2006-01-02T15:04:05Z")
}

func toRecord(recordType RecordType, id string, v interface{}) (Record, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return Record{}, apperr.Wrap(apperr.KindInternal, err, "marshal mirror record")
	}
	var data map[string]interface{}
	if err := json.Unmarshal(raw, &data); err != nil {
		return Record{}, apperr.Wrap(apperr.KindInternal, err, "decode mirror record")
	}
	return Record{RecordType: recordType, RecordID: id, Data: data}, nil
}

func (s *Service) buildRecords() ([]Record, error) {
	records := make([]Record, 0)
	for _, c := range s.source.ListConcerns("") {
		rec, err := toRecord(RecordConcern, c.ID, c)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	for _, sub := range s.source.ListSubmissions("", "", "") {
		rec, err := toRecord(RecordSubmission, sub.ID, sub)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].RecordType != records[j].RecordType {
			return records[i].RecordType < records[j].RecordType
		}
		return records[i].RecordID < records[j].RecordID
	})
	return records, nil
}

func contentHash(records []Record) (string, error) {
	return ledgercrypto.CanonicalHash(records)
}

func cloneRecords(records []Record) ([]Record, error) {
	raw, err := json.Marshal(records)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "clone mirror records")
	}
	var out []Record
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "clone mirror records")
	}
	return out, nil
}

// SyncAll builds a fresh canonical snapshot for every fixed party.
func (s *Service) SyncAll() ([]Snapshot, error) {
	records, err := s.buildRecords()
	if err != nil {
		return nil, err
	}
	hash, err := contentHash(records)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev := make(map[Party]*Snapshot, len(s.snapshots))
	for p, snap := range s.snapshots {
		prev[p] = snap
	}

	now := s.timestamp()
	out := make([]Snapshot, 0, len(AllParties))
	for _, p := range AllParties {
		// Each party gets its own deep copy so a later Tamper on one
		// party's records cannot leak into the others through shared
		// Data maps.
		recordsCopy, err := cloneRecords(records)
		if err != nil {
			s.snapshots = prev
			return nil, err
		}
		snap := &Snapshot{Party: p, Records: recordsCopy, ContentHash: hash, LastSyncedAt: now}
		s.snapshots[p] = snap
		out = append(out, *snap)
	}

	if err := s.persistLocked(); err != nil {
		s.snapshots = prev
		return nil, err
	}

	return out, nil
}

// Status returns each party's summary.
func (s *Service) Status() []StatusEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]StatusEntry, 0, len(AllParties))
	for _, p := range AllParties {
		snap, ok := s.snapshots[p]
		if !ok {
			out = append(out, StatusEntry{Party: p})
			continue
		}
		out = append(out, StatusEntry{
			Party:        p,
			ContentHash:  snap.ContentHash,
			RecordCount:  len(snap.Records),
			LastSyncedAt: snap.LastSyncedAt,
		})
	}
	return out
}

// Compare reports whether every synced party agrees.
func (s *Service) Compare() CompareResult {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var reference string
	consistent := true
	var divergent []Party

	for _, p := range AllParties {
		snap, ok := s.snapshots[p]
		if !ok || snap.ContentHash == "" {
			continue
		}
		if reference == "" {
			reference = snap.ContentHash
			continue
		}
		if snap.ContentHash != reference {
			consistent = false
			divergent = append(divergent, p)
		}
	}

	return CompareResult{Consistent: consistent, DivergentParties: divergent}
}

// Tamper mutates a single field of a single party's local record copy
// without recomputing that party's content_hash (demo only).
func (s *Service) Tamper(party Party, recordType RecordType, recordID, field string, newValue interface{}) error {
	if !validParty(string(party)) {
		return apperr.New(apperr.KindValidation, "unknown party")
	}
	if !validRecordType(string(recordType)) {
		return apperr.New(apperr.KindValidation, "record_type must be concern or submission")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap, ok := s.snapshots[party]
	if !ok {
		return apperr.ErrNotFound
	}

	found := false
	for i := range snap.Records {
		if snap.Records[i].RecordType == recordType && snap.Records[i].RecordID == recordID {
			snap.Records[i].Data[field] = newValue
			found = true
			break
		}
	}
	if !found {
		return apperr.ErrNotFound
	}

	return s.persistLocked()
}

// Detect recomputes each party's content_hash from its local records
// and reports divergence, down to the specific record ids whose
// whole-record encoding differs from the majority across parties.
func (s *Service) Detect() ([]DivergenceReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	recomputed := make(map[Party]string, len(s.snapshots))
	for p, snap := range s.snapshots {
		hash, err := contentHash(snap.Records)
		if err != nil {
			return nil, err
		}
		recomputed[p] = hash
	}

	// Majority encoding per record id, used to localize which ids
	// diverge and for which party.
	type key struct {
		recordType RecordType
		recordID   string
	}
	encodingsByRecord := make(map[key]map[string]int)
	partyEncoding := make(map[Party]map[key]string)

	for p, snap := range s.snapshots {
		partyEncoding[p] = make(map[key]string)
		for _, rec := range snap.Records {
			raw, err := ledgercrypto.CanonicalJSON(rec.Data)
			if err != nil {
				return nil, apperr.Wrap(apperr.KindInternal, err, "canonicalize mirror record for comparison")
			}
			k := key{rec.RecordType, rec.RecordID}
			partyEncoding[p][k] = string(raw)
			if encodingsByRecord[k] == nil {
				encodingsByRecord[k] = make(map[string]int)
			}
			encodingsByRecord[k][string(raw)]++
		}
	}

	majority := make(map[key]string, len(encodingsByRecord))
	for k, counts := range encodingsByRecord {
		best := ""
		bestCount := -1
		for enc, n := range counts {
			if n > bestCount {
				best, bestCount = enc, n
			}
		}
		majority[k] = best
	}

	reports := make([]DivergenceReport, 0)
	for _, p := range AllParties {
		snap, ok := s.snapshots[p]
		if !ok {
			continue
		}
		var divergentIDs []string
		for k, enc := range partyEncoding[p] {
			if enc != majority[k] {
				divergentIDs = append(divergentIDs, k.recordID)
			}
		}
		sort.Strings(divergentIDs)

		if snap.ContentHash != recomputed[p] || len(divergentIDs) > 0 {
			reports = append(reports, DivergenceReport{
				Party:              p,
				StoredContentHash:  snap.ContentHash,
				RecomputedHash:     recomputed[p],
				DivergentRecordIDs: divergentIDs,
			})
		}
	}

	return reports, nil
}

// Reset clears all snapshots.
func (s *Service) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots = make(map[Party]*Snapshot)
	return s.persistLocked()
}
