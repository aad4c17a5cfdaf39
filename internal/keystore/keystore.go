package keystore

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/crypto/pbkdf2"

	"github.com/collectr-app/authgate/internal/logger"
	"github.com/collectr-app/authgate/internal/model"
)

const (
	saltSize   = 16
	keySize    = 32
	kdfRounds  = 100_000
	fileHeader = "AGKS1"
)

// Ensure Store implements the model.SecretStore interface.
var _ model.SecretStore = (*Store)(nil)

// Store is an encrypted file-backed key-value store for session and MFA
// state. Values are kept as one AES-256-GCM sealed snapshot; every
// mutation rewrites the snapshot atomically, so a namespace deletion is
// all-or-nothing and a crash never leaves plaintext or a torn file.
type Store struct {
	mu     sync.Mutex
	path   string
	salt   []byte
	key    []byte
	values map[model.SecretKey]string
	logger *logger.Logger
}

// New opens the store at path, creating an empty one if the file does
// not exist. The encryption key is derived from the passphrase with
// PBKDF2-SHA256 and a per-store random salt.
func New(path, passphrase string, logger *logger.Logger) (*Store, error) {
	s := &Store{
		path:   path,
		values: make(map[model.SecretKey]string),
		logger: logger,
	}

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		s.salt = make([]byte, saltSize)
		if _, err := rand.Read(s.salt); err != nil {
			return nil, fmt.Errorf("failed to generate keystore salt: %w", err)
		}
		s.key = deriveKey(passphrase, s.salt)
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read keystore file: %w", err)
	}

	if err := s.decode(raw, passphrase); err != nil {
		return nil, err
	}

	return s, nil
}

// Save stores a value under key.
func (s *Store) Save(ctx context.Context, key model.SecretKey, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, had := s.values[key]
	s.values[key] = value
	if err := s.persist(); err != nil {
		if had {
			s.values[key] = prev
		} else {
			delete(s.values, key)
		}
		return fmt.Errorf("failed to save %q: %w", key, err)
	}
	return nil
}

// Get returns the value stored under key, or model.ErrNotFound.
func (s *Store) Get(ctx context.Context, key model.SecretKey) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	value, ok := s.values[key]
	if !ok {
		return "", model.ErrNotFound
	}
	return value, nil
}

// GetJSON unmarshals the value stored under key into v.
func (s *Store) GetJSON(ctx context.Context, key model.SecretKey, v any) error {
	value, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(value), v); err != nil {
		return fmt.Errorf("failed to unmarshal %q: %w", key, err)
	}
	return nil
}

// SaveJSON marshals v and stores it under key.
func (s *Store) SaveJSON(ctx context.Context, key model.SecretKey, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %q: %w", key, err)
	}
	return s.Save(ctx, key, string(data))
}

// Delete removes the value stored under key. Deleting an absent key is
// not an error.
func (s *Store) Delete(ctx context.Context, key model.SecretKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, had := s.values[key]
	if !had {
		return nil
	}
	delete(s.values, key)
	if err := s.persist(); err != nil {
		s.values[key] = prev
		return fmt.Errorf("failed to delete %q: %w", key, err)
	}
	return nil
}

// DeleteNamespace removes every key under ns in one snapshot write, so
// no partial-deletion state is ever observable.
func (s *Store) DeleteNamespace(ctx context.Context, ns model.Namespace) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := make(map[model.SecretKey]string)
	prefix := string(ns) + "."
	for key, value := range s.values {
		if strings.HasPrefix(string(key), prefix) {
			removed[key] = value
			delete(s.values, key)
		}
	}
	if len(removed) == 0 {
		return nil
	}
	if err := s.persist(); err != nil {
		for key, value := range removed {
			s.values[key] = value
		}
		return fmt.Errorf("failed to delete namespace %q: %w", ns, err)
	}

	s.logger.Debug("keystore: namespace deleted",
		"namespace", string(ns),
		"keys", len(removed))
	return nil
}

func deriveKey(passphrase string, salt []byte) []byte {
	return pbkdf2.Key([]byte(passphrase), salt, kdfRounds, keySize, sha256.New)
}

// persist seals the current snapshot and writes it atomically. Caller
// must hold s.mu.
func (s *Store) persist() error {
	plaintext, err := json.Marshal(s.values)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	gcm, err := newGCM(s.key)
	if err != nil {
		return err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := gcm.Seal(nil, nonce, plaintext, nil)

	buf := make([]byte, 0, len(fileHeader)+saltSize+len(nonce)+len(sealed))
	buf = append(buf, fileHeader...)
	buf = append(buf, s.salt...)
	buf = append(buf, nonce...)
	buf = append(buf, sealed...)

	return atomicWrite(s.path, buf)
}

func (s *Store) decode(raw []byte, passphrase string) error {
	if len(raw) < len(fileHeader)+saltSize || string(raw[:len(fileHeader)]) != fileHeader {
		return fmt.Errorf("keystore file is malformed")
	}
	raw = raw[len(fileHeader):]

	s.salt = append([]byte(nil), raw[:saltSize]...)
	s.key = deriveKey(passphrase, s.salt)
	raw = raw[saltSize:]

	gcm, err := newGCM(s.key)
	if err != nil {
		return err
	}
	if len(raw) < gcm.NonceSize() {
		return fmt.Errorf("keystore file is malformed")
	}

	plaintext, err := gcm.Open(nil, raw[:gcm.NonceSize()], raw[gcm.NonceSize():], nil)
	if err != nil {
		return fmt.Errorf("failed to decrypt keystore: %w", err)
	}
	if err := json.Unmarshal(plaintext, &s.values); err != nil {
		return fmt.Errorf("failed to unmarshal keystore snapshot: %w", err)
	}
	return nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}

// atomicWrite writes data to a temp file in the target directory and
// renames it over path, with owner-only permissions.
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create keystore directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".keystore-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to set file permissions: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace keystore file: %w", err)
	}
	return nil
}
