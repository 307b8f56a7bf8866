package observation

import (
	"reflect"
	"sync"
)

// NewProxy wraps a plain map in an Object that uses it as storage, so
// writes through the proxy notify observers. Anything else comes back
// unchanged, including values that already are proxies.
func NewProxy(v any) any {
	m, ok := v.(map[string]any)
	if !ok || m == nil {
		return v
	}
	return &Object{values: m, proxy: true}
}

// GetRawIfProxy returns the map behind a proxy.
func GetRawIfProxy(v any) any {
	if o, ok := v.(*Object); ok && o.proxy {
		return o.values
	}
	return v
}

// ProxyRegistry hands out one proxy per plain map (by identity). Each
// ObserverLocator owns one, so its proxies live as long as the locator.
type ProxyRegistry struct {
	mu      sync.Mutex
	proxies map[uintptr]*Object
}

func NewProxyRegistry() *ProxyRegistry {
	return &ProxyRegistry{proxies: make(map[uintptr]*Object)}
}

// GetOrCreate returns the proxy for v when v is a map[string]any, and v
// otherwise.
func (r *ProxyRegistry) GetOrCreate(v any) any {
	m, ok := v.(map[string]any)
	if !ok || m == nil {
		return v
	}
	key := reflect.ValueOf(m).Pointer()

	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.proxies[key]; ok {
		return p
	}
	p := NewProxy(m).(*Object)
	r.proxies[key] = p
	return p
}

// Len returns the number of proxies created so far.
func (r *ProxyRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.proxies)
}
