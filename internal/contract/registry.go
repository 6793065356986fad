// Package contract resolves contract names to ABI bound handles and wraps
// read-only calls with explicit fallback values.
package contract

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Contract names with embedded interface definitions.
const (
	IbetStraightBond        = "IbetStraightBond"
	IbetShare               = "IbetShare"
	IbetSecurityTokenDVP    = "IbetSecurityTokenDVP"
	IbetSecurityTokenEscrow = "IbetSecurityTokenEscrow"
	PersonalInfo            = "PersonalInfo"
)

// ErrNotFound is returned when no interface definition exists for a contract name.
var ErrNotFound = errors.New("contract interface not found")

//go:embed abi/*.json
var embedded embed.FS

// Registry caches parsed ABIs by contract name. Addresses are bound per Resolve call.
type Registry struct {
	mu    sync.Mutex
	src   fs.FS
	cache map[string]*abi.ABI
}

// NewRegistry returns a registry over the embedded interface definitions.
func NewRegistry() *Registry {
	sub, err := fs.Sub(embedded, "abi")
	if err != nil {
		panic(err)
	}
	return NewRegistryFromFS(sub)
}

// NewRegistryFromFS returns a registry that reads <name>.json files from src.
func NewRegistryFromFS(src fs.FS) *Registry {
	return &Registry{src: src, cache: make(map[string]*abi.ABI)}
}

// Resolve binds the named contract interface to addr.
func (r *Registry) Resolve(name string, addr common.Address) (*Handle, error) {
	parsed, err := r.load(name)
	if err != nil {
		return nil, err
	}
	return &Handle{Name: name, Address: addr, ABI: parsed}, nil
}

// Names lists the contract names the registry can resolve.
func (r *Registry) Names() ([]string, error) {
	entries, err := fs.ReadDir(r.src, ".")
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && path.Ext(e.Name()) == ".json" {
			names = append(names, strings.TrimSuffix(e.Name(), ".json"))
		}
	}
	sort.Strings(names)

	return names, nil
}

func (r *Registry) load(name string) (*abi.ABI, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if parsed, ok := r.cache[name]; ok {
		return parsed, nil
	}

	raw, err := fs.ReadFile(r.src, name+".json")
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, err
	}

	parsed, err := abi.JSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse abi %s: %w", name, err)
	}

	r.cache[name] = &parsed
	return &parsed, nil
}
