// Package auth implements role-based API-key registration,
// authentication and rotation. The server generates a prefixed random
// key, hashes it with SHA-256, and stores only the hash; the raw key
// is returned exactly once at issuance.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"afr/pkg/apperr"
	"afr/pkg/store"
)

const documentFileName = "auth.json"

// Role is a governance participant role.
type Role string

const (
	RoleLab        Role = "lab"
	RoleAuditor    Role = "auditor"
	RoleGovernment Role = "government"
)

func ValidRole(r string) bool {
	switch Role(r) {
	case RoleLab, RoleAuditor, RoleGovernment:
		return true
	}
	return false
}

// Party is a registered API-key holder.
type Party struct {
	PartyID   string `json:"party_id"`
	Name      string `json:"name"`
	Role      Role   `json:"role"`
	KeyHash   string `json:"key_hash"`
	CreatedAt string `json:"created_at"`
	Revoked   bool   `json:"revoked"`
}

type document struct {
	Parties map[string]Party `json:"parties"` // keyed by party_id
}

// Service manages party registration, authentication, and rotation.
type Service struct {
	mu      sync.RWMutex
	parties map[string]Party  // party_id -> Party
	byHash  map[string]string // key_hash -> party_id
	path    string
	now     func() time.Time
}

func NewService(dir string) (*Service, error) {
	s := &Service{
		parties: make(map[string]Party),
		byHash:  make(map[string]string),
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
		return apperr.Wrap(apperr.KindPersistence, err, "failed to load auth store")
	}
	if found {
		s.parties = doc.Parties
		if s.parties == nil {
			s.parties = make(map[string]Party)
		}
		s.byHash = make(map[string]string, len(s.parties))
		for id, p := range s.parties {
			s.byHash[p.KeyHash] = id
		}
	}
	return nil
}

func (s *Service) persistLocked() error {
	doc := document{Parties: s.parties}
	if err := store.SaveJSON(s.path, doc); err != nil {
		return apperr.Wrap(apperr.KindPersistence, err, "failed to persist auth store")
	}
	return nil
}

func generateRawKey() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return "afr_" + hex.EncodeToString(buf), nil
}

func hashKey(rawKey string) string {
	sum := sha256.Sum256([]byte(rawKey))
	return hex.EncodeToString(sum[:])
}

// Register generates a new API key for a party, persists its hash,
// and returns the party record plus the raw key — the only time the
// raw key is ever available.
func (s *Service) Register(name, role string) (Party, string, error) {
	if !ValidRole(role) {
		return Party{}, "", apperr.New(apperr.KindValidation, fmt.Sprintf("unknown role %q", role))
	}

	rawKey, err := generateRawKey()
	if err != nil {
		return Party{}, "", apperr.Wrap(apperr.KindInternal, err, "failed to generate api key")
	}
	keyHash := hashKey(rawKey)

	party := Party{
		PartyID:   uuid.New().String(),
		Name:      name,
		Role:      Role(role),
		KeyHash:   keyHash,
		CreatedAt: s.now().UTC().Truncate(time.Second).Format("2006-01-02T15:04:05Z"),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.parties[party.PartyID] = party
	s.byHash[keyHash] = party.PartyID
	if err := s.persistLocked(); err != nil {
		delete(s.parties, party.PartyID)
		delete(s.byHash, keyHash)
		return Party{}, "", err
	}

	return party, rawKey, nil
}

// Authenticate resolves a raw API key to its party. An absent,
// unknown, or revoked key fails with KindAuth.
func (s *Service) Authenticate(rawKey string) (Party, error) {
	if rawKey == "" {
		return Party{}, apperr.New(apperr.KindAuth, "missing API key")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	partyID, ok := s.byHash[hashKey(rawKey)]
	if !ok {
		return Party{}, apperr.New(apperr.KindAuth, "unknown API key")
	}
	party := s.parties[partyID]
	if party.Revoked {
		return Party{}, apperr.New(apperr.KindAuth, "API key revoked")
	}
	return party, nil
}

// List returns all registered parties.
func (s *Service) List() []Party {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Party, 0, len(s.parties))
	for _, p := range s.parties {
		out = append(out, p)
	}
	return out
}

// Revoke deletes a party's registration (demo admin-style endpoint).
func (s *Service) Revoke(partyID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	party, ok := s.parties[partyID]
	if !ok {
		return apperr.New(apperr.KindNotFound, fmt.Sprintf("party %q not found", partyID))
	}

	delete(s.parties, partyID)
	delete(s.byHash, party.KeyHash)
	if err := s.persistLocked(); err != nil {
		s.parties[partyID] = party
		s.byHash[party.KeyHash] = partyID
		return err
	}
	return nil
}

// Rotate generates a new key for an already-authenticated party,
// atomically replacing the stored hash; the old key is instantly
// invalid.
func (s *Service) Rotate(partyID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	party, ok := s.parties[partyID]
	if !ok {
		return "", apperr.New(apperr.KindNotFound, fmt.Sprintf("party %q not found", partyID))
	}

	rawKey, err := generateRawKey()
	if err != nil {
		return "", apperr.Wrap(apperr.KindInternal, err, "failed to generate api key")
	}
	newHash := hashKey(rawKey)
	oldHash := party.KeyHash

	party.KeyHash = newHash
	s.parties[partyID] = party
	delete(s.byHash, oldHash)
	s.byHash[newHash] = partyID

	if err := s.persistLocked(); err != nil {
		party.KeyHash = oldHash
		s.parties[partyID] = party
		delete(s.byHash, newHash)
		s.byHash[oldHash] = partyID
		return "", err
	}

	return rawKey, nil
}

// Reset clears the party store. Demo-only, backing /demo/auth-reset.
func (s *Service) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.parties = make(map[string]Party)
	s.byHash = make(map[string]string)
	return s.persistLocked()
}
