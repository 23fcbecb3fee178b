package audio

import "sort"

// ModuleFactory constructs an un-initialized module instance.
type ModuleFactory func(env ModuleEnv) Module

var moduleFactories = map[string]ModuleFactory{}

// RegisterModule binds a module key to its factory. Called from package init
// functions; the mood table is validated against this registry at startup, so
// a configured key with no factory fails fast instead of being discovered
// reflectively at runtime.
func RegisterModule(key string, f ModuleFactory) {
	if _, dup := moduleFactories[key]; dup {
		panic("audio: duplicate module key " + key)
	}
	moduleFactories[key] = f
}

// HasModule reports whether a factory is registered for key.
func HasModule(key string) bool {
	_, ok := moduleFactories[key]
	return ok
}

// NewModule constructs the module registered under key.
func NewModule(key string, env ModuleEnv) (Module, error) {
	f, ok := moduleFactories[key]
	if !ok {
		return nil, &ConfigurationError{Key: key}
	}
	return f(env), nil
}

// RegisteredModules returns all registered module keys, sorted.
func RegisteredModules() []string {
	keys := make([]string, 0, len(moduleFactories))
	for k := range moduleFactories {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
