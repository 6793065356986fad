// Package feeds holds helpers shared by the event feed packages.
package feeds

import (
	"github.com/goran-ethernal/TokenIndexor/internal/store"
	"github.com/goran-ethernal/TokenIndexor/internal/watchset"
	"github.com/goran-ethernal/TokenIndexor/pkg/indexer"
	"github.com/sugawarayuuta/sonnet"
)

// NewResolver builds a watch-set resolver over the tokens table of deps.DB.
func NewResolver(deps indexer.Deps, link *watchset.Link, component string) *watchset.Resolver {
	return watchset.NewResolver(
		deps.Registry,
		deps.Gateway,
		store.ActiveSource{Reader: deps.DB},
		link,
		deps.Logger(component),
	)
}

// ParseObject decodes s as a JSON object. On failure, or when s holds any
// other JSON value, it returns an empty map and false.
func ParseObject(s string) (map[string]any, bool) {
	var v map[string]any
	if err := sonnet.Unmarshal([]byte(s), &v); err != nil || v == nil {
		return map[string]any{}, false
	}
	return v, true
}

// EncodeObject serializes v as a JSON object. A nil map encodes as {}.
func EncodeObject(v map[string]any) string {
	if v == nil {
		return "{}"
	}
	b, err := sonnet.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}
