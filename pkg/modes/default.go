package modes

import "sync"

var (
	defaultMu    sync.Mutex
	defaultStore *Store
)

// Configure replaces the process-wide store with one reading path
func Configure(path string) *Store {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	defaultStore = NewStore(path)
	return defaultStore
}

// Default returns the process-wide store. Until Configure is called it reads
// custom-modes.json from the working directory.
func Default() *Store {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	if defaultStore == nil {
		defaultStore = NewStore("custom-modes.json")
	}
	return defaultStore
}
