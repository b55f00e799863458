package cache

// Keyer derives cache keys.
type Keyer interface {
	// HTTPKey generates a key for a raw HTTP response.
	HTTPKey(namespace, key string) string

	// ProviderKey generates a key for a provider call of the given kind
	// ("contractors", "subcontractors", "relations", "lookup", ...).
	ProviderKey(kind string, parts ...string) string

	// ArtifactKey generates a key for a rendered output of a scene.
	ArtifactKey(sceneHash, format string) string
}

// DefaultKeyer hashes request parts into fixed-length keys.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the default keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// HTTPKey returns "http:<namespace>:<key>".
func (DefaultKeyer) HTTPKey(namespace, key string) string {
	return "http:" + namespace + ":" + key
}

// ProviderKey returns "provider:<kind>:<sha256 of parts>".
func (DefaultKeyer) ProviderKey(kind string, parts ...string) string {
	args := make([]any, len(parts))
	for i, p := range parts {
		args[i] = p
	}
	return hashKey("provider:"+kind, args...)
}

// ArtifactKey returns "artifact:<format>:<sceneHash>".
func (DefaultKeyer) ArtifactKey(sceneHash, format string) string {
	return "artifact:" + format + ":" + sceneHash
}

// ScopedKeyer wraps a Keyer with a prefix so several pharmacies or
// deployments can share one cache.
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// A nil inner keyer uses DefaultKeyer.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// HTTPKey generates a prefixed key for HTTP response caching.
func (k *ScopedKeyer) HTTPKey(namespace, key string) string {
	return k.prefix + k.inner.HTTPKey(namespace, key)
}

// ProviderKey generates a prefixed key for provider call caching.
func (k *ScopedKeyer) ProviderKey(kind string, parts ...string) string {
	return k.prefix + k.inner.ProviderKey(kind, parts...)
}

// ArtifactKey generates a prefixed key for rendered output caching.
func (k *ScopedKeyer) ArtifactKey(sceneHash, format string) string {
	return k.prefix + k.inner.ArtifactKey(sceneHash, format)
}
