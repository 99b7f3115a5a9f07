// Package zkproof implements the commitment-based threshold proof
// engine. This is an auditor-trust-in-the-ledger scheme, not a
// succinct non-interactive ZK proof system: it demonstrates the
// commit/prove/verify interface, not cryptographic soundness under an
// adversarial committer. A production deployment would swap in a real
// range-proof system and keep witnesses client-side.
package zkproof

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"afr/pkg/apperr"
	"afr/pkg/store"
)

const documentFileName = "zk_store.json"

// Commitment is the public record returned at issuance.
type Commitment struct {
	ID         string                 `json:"id"`
	Commitment string                 `json:"commitment"`
	CreatedAt  string                 `json:"created_at"`
	Metadata   map[string]interface{} `json:"metadata"`
}

// witness is retained server-side only so a later proof request bound
// to the same commitment id can be served. Demo shortcut; a faithful
// deployment keeps count and blinding client-side only.
type witness struct {
	Count    int    `json:"count"`
	Blinding string `json:"blinding"`
}

// Proof is the result of a successful Prove call.
type Proof struct {
	CommitmentID string `json:"commitment_id"`
	Threshold    int    `json:"threshold"`
	ProofValue   string `json:"proof_value"`
	Claim        string `json:"claim"`
	CreatedAt    string `json:"created_at"`
}

type record struct {
	Commitment Commitment `json:"commitment"`
	Witness    witness    `json:"witness"`
}

type document struct {
	Records map[string]record `json:"records"`
}

// Service manages commitments and the witnesses needed to later prove
// threshold claims about them.
type Service struct {
	mu      sync.RWMutex
	records map[string]record
	path    string
	now     func() time.Time
}

func NewService(dir string) (*Service, error) {
	s := &Service{
		records: make(map[string]record),
		path:    filepath.Join(dir, documentFileName),
		now:     time.Now,
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
		return apperr.Wrap(apperr.KindPersistence, err, "failed to load zk store")
	}
	if found && doc.Records != nil {
		s.records = doc.Records
	}
	return nil
}

func (s *Service) persistLocked() error {
	doc := document{Records: s.records}
	if err := store.SaveJSON(s.path, doc); err != nil {
		return apperr.Wrap(apperr.KindPersistence, err, "failed to persist zk store")
	}
	return nil
}

func randomBlinding() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func computeCommitment(count int, blinding string) string {
	data := strconv.Itoa(count) + ":" + blinding
	sum := sha256.Sum256([]byte(data))
	return hex.EncodeToString(sum[:])
}

func computeProofValue(commitment string, threshold, count int, blinding string) string {
	data := fmt.Sprintf("%s:%d:%d:%s", commitment, threshold, count, blinding)
	sum := sha256.Sum256([]byte(data))
	return hex.EncodeToString(sum[:])
}

// Commit issues a commitment for count. If blinding is empty, 32
// random bytes are generated and hex-encoded. The witness
// (count, blinding) is retained so a later Prove call can be served
// without the client resending it.
func (s *Service) Commit(count int, blinding string, metadata map[string]interface{}) (Commitment, string, error) {
	if blinding == "" {
		b, err := randomBlinding()
		if err != nil {
			return Commitment{}, "", apperr.Wrap(apperr.KindInternal, err, "failed to generate blinding factor")
		}
		blinding = b
	}
	if metadata == nil {
		metadata = map[string]interface{}{}
	}

	commitmentHash := computeCommitment(count, blinding)
	id := uuid.New().String()
	ts := s.now().UTC().Truncate(time.Second).Format("2006-01-02T15:04:05Z")

	c := Commitment{
		ID:         id,
		Commitment: commitmentHash,
		CreatedAt:  ts,
		Metadata:   metadata,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[id] = record{
		Commitment: c,
		Witness:    witness{Count: count, Blinding: blinding},
	}
	if err := s.persistLocked(); err != nil {
		delete(s.records, id)
		return Commitment{}, "", err
	}

	return c, blinding, nil
}

// Get returns the public commitment record for id.
func (s *Service) Get(id string) (Commitment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return Commitment{}, apperr.New(apperr.KindNotFound, fmt.Sprintf("commitment %q not found", id))
	}
	return rec.Commitment, nil
}

// Prove loads the witness bound to commitmentID and produces a
// threshold proof. Fails with KindPrecondition if count < threshold.
func (s *Service) Prove(commitmentID string, threshold int) (Proof, error) {
	s.mu.RLock()
	rec, ok := s.records[commitmentID]
	s.mu.RUnlock()
	if !ok {
		return Proof{}, apperr.New(apperr.KindNotFound, fmt.Sprintf("commitment %q not found", commitmentID))
	}

	if rec.Witness.Count < threshold {
		return Proof{}, apperr.New(apperr.KindPrecondition, "count is below threshold")
	}

	proofValue := computeProofValue(rec.Commitment.Commitment, threshold, rec.Witness.Count, rec.Witness.Blinding)
	ts := s.now().UTC().Truncate(time.Second).Format("2006-01-02T15:04:05Z")

	return Proof{
		CommitmentID: commitmentID,
		Threshold:    threshold,
		ProofValue:   proofValue,
		Claim:        "count >= threshold",
		CreatedAt:    ts,
	}, nil
}

// Verify recomputes the expected proof value from the witness bound
// to commitmentID and checks it against proofValue.
func (s *Service) Verify(commitmentID string, threshold int, proofValue string) (bool, error) {
	s.mu.RLock()
	rec, ok := s.records[commitmentID]
	s.mu.RUnlock()
	if !ok {
		return false, apperr.New(apperr.KindNotFound, fmt.Sprintf("commitment %q not found", commitmentID))
	}

	expected := computeProofValue(rec.Commitment.Commitment, threshold, rec.Witness.Count, rec.Witness.Blinding)
	return expected == proofValue && rec.Witness.Count >= threshold, nil
}
