package symbols

import "sync"

// Provider supplies symbols from external metadata. The core never parses
// object formats; implementations may be backed by anything. Providers
// are held for the compilation's lifetime and never mutated after
// construction.
type Provider interface {
	// GetAssembly resolves a referenced assembly by name and public key
	// token (empty for unsigned).
	GetAssembly(name, publicKeyToken string) (Assembly, error)
}

// Assembly is one resolved metadata container.
type Assembly interface {
	// Name returns the assembly's simple name.
	Name() string

	// LookupType resolves a type by namespace path and name; the result
	// is nil when the type does not exist.
	LookupType(namespacePath []string, name string) ExternalType
}

// ExternalType describes a type read from metadata.
type ExternalType interface {
	Name() string
	Members() []Symbol
	GenericParameters() []*TypeParameter
	IsValueType() bool
	Visibility() Visibility
}

// ExternalRef is a type symbol standing for a metadata type. Its member
// list comes from the external description and is cached lazily.
type ExternalRef struct {
	typ
	ext     ExternalType
	members Lazy[[]Symbol]
}

// NewExternalRef wraps an external type description into a type symbol.
func NewExternalRef(ext ExternalType, container Symbol) *ExternalRef {
	r := &ExternalRef{ext: ext}
	r.name = ext.Name()
	r.vis = ext.Visibility()
	r.container = container
	r.members.fill = ext.Members
	return r
}

// Members returns the type's member symbols, read from metadata at most
// once.
func (r *ExternalRef) Members() []Symbol { return r.members.Get() }

// External returns the underlying metadata description.
func (r *ExternalRef) External() ExternalType { return r.ext }

func (r *ExternalRef) String() string { return QualifiedName(r) }

// AssemblyCache resolves assemblies through a provider, caching each by
// (name, token) so external symbols are created once per assembly.
type AssemblyCache struct {
	provider Provider

	mu    sync.Mutex
	cache map[assemblyKey]Assembly
}

type assemblyKey struct {
	name  string
	token string
}

// NewAssemblyCache creates a cache over the given provider. A nil
// provider yields a cache that resolves nothing.
func NewAssemblyCache(provider Provider) *AssemblyCache {
	return &AssemblyCache{
		provider: provider,
		cache:    make(map[assemblyKey]Assembly),
	}
}

// Get resolves an assembly, consulting the provider on first use.
func (c *AssemblyCache) Get(name, publicKeyToken string) (Assembly, error) {
	if c.provider == nil {
		return nil, nil
	}
	key := assemblyKey{name: name, token: publicKeyToken}

	c.mu.Lock()
	defer c.mu.Unlock()
	if asm, ok := c.cache[key]; ok {
		return asm, nil
	}
	asm, err := c.provider.GetAssembly(name, publicKeyToken)
	if err != nil {
		return nil, err
	}
	c.cache[key] = asm
	return asm, nil
}
