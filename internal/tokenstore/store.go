package tokenstore

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"

	"skymap/internal/crypto"
	"skymap/pkg/auth"
	"skymap/pkg/logging"
)

// artifact is the on-disk wrapper. The sealed field is the envelope output
// (nonce alongside ciphertext), base64-encoded.
type artifact struct {
	SchemaVersion int    `json:"schemaVersion"`
	Sealed        string `json:"sealed"`
}

// Store persists one encrypted TokenRecord per slot.
type Store struct {
	dir      string
	envelope *crypto.Envelope

	// mu serializes all writes per slot within this process. The
	// orchestrator additionally funnels persist operations through its
	// own critical section; this mutex is the store's own guarantee.
	mu sync.Mutex
}

// New creates a store rooted at dir, creating the directory (0700) if
// needed.
func New(dir string, envelope *crypto.Envelope) (*Store, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create token storage directory: %w", err)
	}
	return &Store{dir: dir, envelope: envelope}, nil
}

func (s *Store) recordPath(slot auth.Slot) string {
	return filepath.Join(s.dir, string(slot)+".tok")
}

func (s *Store) lockPath(slot auth.Slot) string {
	return filepath.Join(s.dir, string(slot)+".lock")
}

// Save serializes, encrypts, and atomically writes the record for slot.
// A write failure is surfaced to the caller, never silently swallowed.
func (s *Store) Save(slot auth.Slot, record *TokenRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record.SchemaVersion = CurrentSchemaVersion

	plaintext, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to serialize token record: %w", err)
	}

	sealed, err := s.envelope.Encrypt(plaintext)
	if err != nil {
		return fmt.Errorf("failed to encrypt token record: %w", err)
	}

	data, err := json.MarshalIndent(artifact{
		SchemaVersion: CurrentSchemaVersion,
		Sealed:        base64.StdEncoding.EncodeToString(sealed),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize artifact: %w", err)
	}

	// Advisory lock guards against a second skymap process writing the
	// same slot concurrently.
	lock := flock.New(s.lockPath(slot))
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("failed to lock token record for slot %s: %w", slot, err)
	}
	defer func() { _ = lock.Unlock() }()

	if err := s.writeAtomic(s.recordPath(slot), data); err != nil {
		return fmt.Errorf("failed to persist token record for slot %s: %w", slot, err)
	}

	logging.Info("TokenStore", "SECURITY_AUDIT: token record persisted slot=%s tenant=%s expires=%s",
		slot, record.TenantID, record.ExpiresAt.Format("2006-01-02T15:04:05Z07:00"))
	return nil
}

// writeAtomic writes data to path via a temp file in the same directory and
// a rename, so a crash mid-write leaves the previous record intact.
func (s *Store) writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(s.dir, ".tok-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }() // no-op after successful rename

	if err := tmp.Chmod(0600); err != nil {
		_ = tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Load reads and decrypts the record for slot. Returns ErrNotFound if
// nothing was persisted, or a CorruptError if the artifact exists but
// cannot be read back. The corrupted artifact is left on disk.
func (s *Store) Load(slot auth.Slot) (*TokenRecord, error) {
	path := s.recordPath(slot)

	// #nosec G304 -- path is derived from the slot enum, not user input
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, slot)
		}
		return nil, &CorruptError{Path: path, Err: err}
	}

	var a artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, &CorruptError{Path: path, Err: err}
	}

	sealed, err := base64.StdEncoding.DecodeString(a.Sealed)
	if err != nil {
		return nil, &CorruptError{Path: path, Err: err}
	}

	plaintext, err := s.envelope.Decrypt(sealed)
	if err != nil {
		return nil, &CorruptError{Path: path, Err: err}
	}

	var record TokenRecord
	if err := json.Unmarshal(plaintext, &record); err != nil {
		return nil, &CorruptError{Path: path, Err: err}
	}

	return &record, nil
}

// Clear removes the persisted artifact for slot. Clearing a slot that was
// never written is not an error.
func (s *Store) Clear(slot auth.Slot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.recordPath(slot))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear token record for slot %s: %w", slot, err)
	}
	if err == nil {
		logging.Info("TokenStore", "SECURITY_AUDIT: token record deleted slot=%s", slot)
	}
	return nil
}

// ClearAll removes the persisted artifacts for every slot.
func (s *Store) ClearAll() error {
	for _, slot := range auth.Slots() {
		if err := s.Clear(slot); err != nil {
			return err
		}
	}
	logging.Info("TokenStore", "SECURITY_AUDIT: all token records cleared")
	return nil
}
