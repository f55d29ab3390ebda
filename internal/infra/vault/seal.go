package vault

import (
	"crypto/rand"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

const (
	sealVersion = 1
	saltSize    = 16
	keySize     = chacha20poly1305.KeySize
)

// ErrDecrypt is returned when a blob cannot be opened with the passphrase
var ErrDecrypt = errors.New("vault: wrong passphrase or corrupted blob")

// KDFParams are the argon2id cost parameters
type KDFParams struct {
	Time      uint32
	MemoryKiB uint32
	Threads   uint8
}

// DefaultKDFParams returns the interactive argon2id parameters
func DefaultKDFParams() KDFParams {
	return KDFParams{Time: 1, MemoryKiB: 64 * 1024, Threads: 4}
}

// sealer encrypts blobs with XChaCha20-Poly1305 under a key derived from the
// passphrase and a salt stored in the blob header:
//
//	version(1) | salt(16) | nonce(24) | ciphertext
//
// Derived keys are memoized per salt.
type sealer struct {
	passphrase []byte
	params     KDFParams

	mu   sync.Mutex
	keys map[string][]byte
	salt []byte
}

func newSealer(passphrase string, params KDFParams) *sealer {
	return &sealer{
		passphrase: []byte(passphrase),
		params:     params,
		keys:       make(map[string][]byte),
	}
}

// seal encrypts plaintext, binding it to aad
func (s *sealer) seal(plaintext, aad []byte) ([]byte, error) {
	salt, key, err := s.currentKey()
	if err != nil {
		return nil, err
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	out := make([]byte, 0, 1+saltSize+len(nonce)+len(plaintext)+aead.Overhead())
	out = append(out, sealVersion)
	out = append(out, salt...)
	out = append(out, nonce...)
	return aead.Seal(out, nonce, plaintext, aad), nil
}

// open decrypts a blob produced by seal
func (s *sealer) open(blob, aad []byte) ([]byte, error) {
	headerSize := 1 + saltSize + chacha20poly1305.NonceSizeX
	if len(blob) < headerSize || blob[0] != sealVersion {
		return nil, ErrDecrypt
	}

	salt := blob[1 : 1+saltSize]
	nonce := blob[1+saltSize : headerSize]

	aead, err := chacha20poly1305.NewX(s.keyFor(salt))
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	plaintext, err := aead.Open(nil, nonce, blob[headerSize:], aad)
	if err != nil {
		return nil, ErrDecrypt
	}
	return plaintext, nil
}

func (s *sealer) currentKey() ([]byte, []byte, error) {
	s.mu.Lock()
	salt := s.salt
	s.mu.Unlock()

	if salt == nil {
		salt = make([]byte, saltSize)
		if _, err := rand.Read(salt); err != nil {
			return nil, nil, fmt.Errorf("failed to generate salt: %w", err)
		}
		s.mu.Lock()
		if s.salt == nil {
			s.salt = salt
		}
		salt = s.salt
		s.mu.Unlock()
	}

	return salt, s.keyFor(salt), nil
}

func (s *sealer) keyFor(salt []byte) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	if key, ok := s.keys[string(salt)]; ok {
		return key
	}
	key := argon2.IDKey(s.passphrase, salt, s.params.Time, s.params.MemoryKiB, s.params.Threads, keySize)
	s.keys[string(salt)] = key
	return key
}

// adopt makes salt the one used for new blobs, so a vault reopened over
// existing data keeps writing under the same key
func (s *sealer) adopt(blob []byte) {
	if len(blob) < 1+saltSize || blob[0] != sealVersion {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.salt == nil {
		s.salt = append([]byte(nil), blob[1:1+saltSize]...)
	}
}
