package health

import (
	"context"
	"sort"
	"sync"
	"time"
)

const defaultCheckTimeout = 3 * time.Second

// Check tests one dependency and returns nil when it is usable.
type Check func(ctx context.Context) error

// Service encapsulates health-related checks.
type Service struct {
	Timeout time.Duration

	mu     sync.RWMutex
	checks map[string]Check
}

// Report is the readiness payload. Checks maps each dependency to "ok" or its error.
type Report struct {
	OK     bool              `json:"ok"`
	Checks map[string]string `json:"checks"`
}

// NewService constructs a new health service.
func NewService() *Service {
	return &Service{Timeout: defaultCheckTimeout, checks: map[string]Check{}}
}

// Register adds or replaces a named check.
func (s *Service) Register(name string, check Check) {
	if check == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checks[name] = check
}

// Names lists the registered checks in order.
func (s *Service) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Status runs every check concurrently, each bounded by Timeout.
func (s *Service) Status(ctx context.Context) Report {
	s.mu.RLock()
	checks := make(map[string]Check, len(s.checks))
	for name, check := range s.checks {
		checks[name] = check
	}
	s.mu.RUnlock()

	timeout := s.Timeout
	if timeout <= 0 {
		timeout = defaultCheckTimeout
	}

	report := Report{OK: true, Checks: make(map[string]string, len(checks))}
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for name, check := range checks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			checkCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			status := "ok"
			if err := check(checkCtx); err != nil {
				status = err.Error()
			}
			mu.Lock()
			defer mu.Unlock()
			report.Checks[name] = status
			if status != "ok" {
				report.OK = false
			}
		}()
	}
	wg.Wait()
	return report
}
