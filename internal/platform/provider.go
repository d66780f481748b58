package platform

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Provider bundles the backends an app-side agent needs.
type Provider struct {
	Reader   Reader
	Inputter Inputter
}

// ProviderOptions is passed to backend constructors.
type ProviderOptions struct {
	// TreeFile is the tree document read by the file backend.
	TreeFile string
}

// ErrUnsupported is returned for backend names nobody registered.
var ErrUnsupported = fmt.Errorf("unsupported input backend")

var (
	backendsMu sync.Mutex
	backends   = map[string]func(ProviderOptions) (*Provider, error){}
)

// RegisterBackend makes a backend available to NewProvider. Device backends
// register themselves from init functions.
func RegisterBackend(name string, fn func(ProviderOptions) (*Provider, error)) {
	backendsMu.Lock()
	defer backendsMu.Unlock()
	backends[name] = fn
}

// Backends lists registered backend names in order.
func Backends() []string {
	backendsMu.Lock()
	defer backendsMu.Unlock()
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewProvider builds the named backend.
func NewProvider(name string, opts ProviderOptions) (*Provider, error) {
	backendsMu.Lock()
	fn := backends[name]
	backendsMu.Unlock()
	if fn == nil {
		return nil, fmt.Errorf("%w %q; available: %s", ErrUnsupported, name, strings.Join(Backends(), ", "))
	}
	return fn(opts)
}

func init() {
	RegisterBackend("file", func(opts ProviderOptions) (*Provider, error) {
		if opts.TreeFile == "" {
			return nil, fmt.Errorf("file backend needs a tree file")
		}
		return &Provider{
			Reader:   NewFileReader(opts.TreeFile),
			Inputter: NewLogInputter(),
		}, nil
	})
}
