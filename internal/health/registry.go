// Package health tracks the dependencies the engine needs to serve requests.
package health

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Checker reports whether a dependency is available
type Checker interface {
	HealthCheck(ctx context.Context) error
}

// CheckerFunc adapts a function to a Checker
type CheckerFunc func(ctx context.Context) error

// HealthCheck calls f
func (f CheckerFunc) HealthCheck(ctx context.Context) error {
	return f(ctx)
}

// Pinger is satisfied by the repository and the Redis confirmation store
type Pinger interface {
	Ping(ctx context.Context) error
}

// Ping turns a Pinger into a Checker
func Ping(p Pinger) Checker {
	return CheckerFunc(p.Ping)
}

// Registry manages dependency checks
type Registry struct {
	mu       sync.RWMutex
	checkers map[string]Checker
	timeout  time.Duration
}

// NewRegistry creates a new check registry. Each check gets at most timeout.
func NewRegistry(timeout time.Duration) *Registry {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Registry{
		checkers: make(map[string]Checker),
		timeout:  timeout,
	}
}

// Register adds a check under name, replacing any previous one
func (r *Registry) Register(name string, checker Checker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checkers[name] = checker
}

// Unregister removes a check
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.checkers, name)
}

// List returns all registered check names, sorted
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.checkers))
	for name := range r.checkers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CheckAll runs every check concurrently and returns the error of each,
// nil for healthy dependencies
func (r *Registry) CheckAll(ctx context.Context) map[string]error {
	r.mu.RLock()
	checkers := make(map[string]Checker, len(r.checkers))
	for name, c := range r.checkers {
		checkers[name] = c
	}
	r.mu.RUnlock()

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make(map[string]error, len(checkers))
	)
	for name, c := range checkers {
		wg.Add(1)
		go func(name string, c Checker) {
			defer wg.Done()
			checkCtx, cancel := context.WithTimeout(ctx, r.timeout)
			defer cancel()
			err := c.HealthCheck(checkCtx)

			mu.Lock()
			results[name] = err
			mu.Unlock()
		}(name, c)
	}
	wg.Wait()

	return results
}

// Healthy reports whether every result is nil
func Healthy(results map[string]error) bool {
	for _, err := range results {
		if err != nil {
			return false
		}
	}
	return true
}
