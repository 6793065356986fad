// Package keystore loads issuer RSA keys and opens personal-info envelopes.
package keystore

import (
	"crypto/rsa"
	"crypto/sha1" //nolint:gosec
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrNoKey is returned when no key file exists for an issuer.
	ErrNoKey = errors.New("no private key for issuer")

	// ErrBadKey is returned when a key file cannot be parsed.
	ErrBadKey = errors.New("invalid private key")
)

// Store resolves issuer keys from <dir>/<checksum address>.pem. Keys are
// cached after the first successful load.
type Store struct {
	dir        string
	passphrase string

	mu   sync.Mutex
	keys map[common.Address]*rsa.PrivateKey
}

// New creates a store over dir. passphrase opens legacy encrypted PEM blocks.
func New(dir, passphrase string) *Store {
	return &Store{dir: dir, passphrase: passphrase, keys: make(map[common.Address]*rsa.PrivateKey)}
}

// Decrypt opens a base64 RSA-OAEP(SHA-1) envelope addressed to issuer.
func (s *Store) Decrypt(issuer common.Address, envelope string) ([]byte, error) {
	key, err := s.key(issuer)
	if err != nil {
		return nil, err
	}

	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(envelope))
	if err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}

	plain, err := rsa.DecryptOAEP(sha1.New(), nil, key, raw, nil) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("decrypt envelope: %w", err)
	}

	return plain, nil
}

func (s *Store) key(issuer common.Address) (*rsa.PrivateKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if key, ok := s.keys[issuer]; ok {
		return key, nil
	}

	if s.dir == "" {
		return nil, fmt.Errorf("%w %s: key directory not configured", ErrNoKey, issuer.Hex())
	}

	data, err := os.ReadFile(filepath.Join(s.dir, issuer.Hex()+".pem"))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w %s", ErrNoKey, issuer.Hex())
	}
	if err != nil {
		return nil, err
	}

	key, err := parseKey(data, s.passphrase)
	if err != nil {
		return nil, fmt.Errorf("%w for %s: %w", ErrBadKey, issuer.Hex(), err)
	}

	s.keys[issuer] = key
	return key, nil
}

func parseKey(data []byte, passphrase string) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.New("no PEM block")
	}

	der := block.Bytes
	//nolint:staticcheck
	if x509.IsEncryptedPEMBlock(block) {
		if passphrase == "" {
			return nil, errors.New("key is encrypted and no passphrase is set")
		}
		var err error
		der, err = x509.DecryptPEMBlock(block, []byte(passphrase))
		if err != nil {
			return nil, err
		}
	}

	if key, err := x509.ParsePKCS1PrivateKey(der); err == nil {
		return key, nil
	}

	parsed, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, err
	}

	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("unsupported key type %T", parsed)
	}

	return key, nil
}
