package indexer

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/goran-ethernal/TokenIndexor/internal/contract"
	"github.com/goran-ethernal/TokenIndexor/internal/db"
	"github.com/goran-ethernal/TokenIndexor/internal/keystore"
	"github.com/goran-ethernal/TokenIndexor/internal/logger"
	"github.com/goran-ethernal/TokenIndexor/pkg/rpc"
)

// Deps are the handles a feed is constructed with.
type Deps struct {
	Gateway  rpc.Gateway
	Registry *contract.Registry
	DB       *db.DB
	Keys     *keystore.Store
	Log      *logger.Logger

	// NewLogger builds the logger of a component at its configured level.
	// When nil, component loggers derive from Log and share its level.
	NewLogger func(component string) *logger.Logger
}

// Logger returns the logger of component.
func (d Deps) Logger(component string) *logger.Logger {
	switch {
	case d.NewLogger != nil:
		return d.NewLogger(component)
	case d.Log != nil:
		return d.Log.WithComponent(component)
	default:
		return logger.NewNopLogger().WithComponent(component)
	}
}

// Factory is a function that creates a new feed instance.
type Factory func(deps Deps) (Feed, error)

var (
	registry = make(map[string]Factory)
	mu       sync.RWMutex
)

// Register registers a feed factory under name.
// This is typically called in init() functions of feed packages.
// The name is case-insensitive and will be stored in lowercase.
func Register(name string, factory Factory) {
	mu.Lock()
	defer mu.Unlock()

	name = strings.ToLower(name)
	if _, exists := registry[name]; exists {
		logger.GetDefaultLogger().Infof("feed with name %s already in feed registry. "+
			"It will be overwritten.", name)
	}

	registry[name] = factory
}

// GetFactory returns the factory for the given feed name, or nil.
// The lookup is case-insensitive.
func GetFactory(name string) Factory {
	mu.RLock()
	defer mu.RUnlock()
	return registry[strings.ToLower(name)]
}

// ListRegistered returns the registered feed names in sorted order.
func ListRegistered() []string {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)

	return names
}

// Create creates a new feed using the registered factory.
func Create(name string, deps Deps) (Feed, error) {
	factory := GetFactory(name)
	if factory == nil {
		return nil, fmt.Errorf("unknown feed: %s (registered feeds: %v)", name, ListRegistered())
	}

	return factory(deps)
}
