package bootstrap

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// LifecycleManager starts services in dependency order and stops them in
// reverse order.
type LifecycleManager struct {
	services     map[string]Service
	dependencies map[string][]string

	// startOrder tracks the order services were started
	startOrder []string

	mutex    sync.RWMutex
	started  bool
	stopping bool

	listeners []func(LifecycleEvent)

	// timeout for a single Start or Stop call
	timeout time.Duration
}

// NewLifecycleManager creates a new lifecycle manager
func NewLifecycleManager() *LifecycleManager {
	return &LifecycleManager{
		services:     make(map[string]Service),
		dependencies: make(map[string][]string),
		timeout:      30 * time.Second,
	}
}

// Register registers a service with optional dependencies
func (lm *LifecycleManager) Register(name string, service Service, deps ...string) error {
	if name == "" {
		return errors.New("service name cannot be empty")
	}
	if service == nil {
		return errors.New("service cannot be nil")
	}

	lm.mutex.Lock()
	defer lm.mutex.Unlock()

	if lm.started {
		return errors.Errorf("cannot register service %s: lifecycle manager already started", name)
	}
	if _, exists := lm.services[name]; exists {
		return errors.Errorf("service %s is already registered", name)
	}

	lm.services[name] = service
	lm.dependencies[name] = deps

	lm.broadcastEvent(LifecycleEvent{
		Type:    "service.registered",
		Service: name,
		Data:    map[string]interface{}{"dependencies": deps},
	})
	return nil
}

// Start starts all services in dependency order. Services already started
// are stopped again when a later one fails.
func (lm *LifecycleManager) Start(ctx context.Context) error {
	lm.mutex.Lock()
	defer lm.mutex.Unlock()

	if lm.started {
		return errors.New("lifecycle manager already started")
	}

	startOrder, err := lm.calculateStartOrder()
	if err != nil {
		return errors.Wrap(err, "failed to calculate start order")
	}

	lm.broadcastEvent(LifecycleEvent{
		Type: "lifecycle.starting",
		Data: map[string]interface{}{"order": startOrder},
	})

	for _, serviceName := range startOrder {
		service := lm.services[serviceName]

		startCtx, cancel := context.WithTimeout(ctx, lm.timeout)
		err := service.Start(startCtx)
		cancel()

		if err != nil {
			lm.broadcastEvent(LifecycleEvent{Type: "service.start_failed", Service: serviceName, Error: err})
			_ = lm.stopStarted(ctx)
			return &ApplicationError{Operation: "start", Service: serviceName, Err: err}
		}

		lm.startOrder = append(lm.startOrder, serviceName)
		lm.broadcastEvent(LifecycleEvent{Type: "service.started", Service: serviceName})
	}

	lm.started = true
	lm.broadcastEvent(LifecycleEvent{Type: "lifecycle.started"})
	return nil
}

// Stop stops all services in reverse start order
func (lm *LifecycleManager) Stop(ctx context.Context) error {
	lm.mutex.Lock()
	defer lm.mutex.Unlock()

	if !lm.started {
		return nil
	}
	if lm.stopping {
		return errors.New("lifecycle manager already stopping")
	}

	lm.stopping = true
	lm.broadcastEvent(LifecycleEvent{Type: "lifecycle.stopping"})

	err := lm.stopStarted(ctx)

	lm.started = false
	lm.stopping = false
	lm.broadcastEvent(LifecycleEvent{Type: "lifecycle.stopped"})
	return err
}

func (lm *LifecycleManager) stopStarted(ctx context.Context) error {
	var result *multierror.Error
	for i := len(lm.startOrder) - 1; i >= 0; i-- {
		serviceName := lm.startOrder[i]

		stopCtx, cancel := context.WithTimeout(ctx, lm.timeout)
		err := lm.services[serviceName].Stop(stopCtx)
		cancel()

		if err != nil {
			result = multierror.Append(result, &ApplicationError{Operation: "stop", Service: serviceName, Err: err})
			lm.broadcastEvent(LifecycleEvent{Type: "service.stop_failed", Service: serviceName, Error: err})
		} else {
			lm.broadcastEvent(LifecycleEvent{Type: "service.stopped", Service: serviceName})
		}
	}
	lm.startOrder = nil
	return result.ErrorOrNil()
}

// Health returns the health status of all services
func (lm *LifecycleManager) Health(ctx context.Context) map[string]HealthStatus {
	lm.mutex.RLock()
	defer lm.mutex.RUnlock()

	health := make(map[string]HealthStatus, len(lm.services))
	for name, service := range lm.services {
		healthCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		status, err := service.Health(healthCtx)
		cancel()

		if err != nil {
			status = HealthStatus{State: HealthUnhealthy, Message: err.Error()}
		}
		status.LastCheck = time.Now()
		health[name] = status
	}
	return health
}

// Services returns all registered service names
func (lm *LifecycleManager) Services() []string {
	lm.mutex.RLock()
	defer lm.mutex.RUnlock()

	names := make([]string, 0, len(lm.services))
	for name := range lm.services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AddListener adds a lifecycle event listener. Listeners are called
// synchronously and must not call back into the manager.
func (lm *LifecycleManager) AddListener(listener func(LifecycleEvent)) {
	lm.mutex.Lock()
	defer lm.mutex.Unlock()
	lm.listeners = append(lm.listeners, listener)
}

// IsStarted returns true if the lifecycle manager has been started
func (lm *LifecycleManager) IsStarted() bool {
	lm.mutex.RLock()
	defer lm.mutex.RUnlock()
	return lm.started
}

// calculateStartOrder sorts the services topologically (Kahn's algorithm),
// breaking ties by name.
func (lm *LifecycleManager) calculateStartOrder() ([]string, error) {
	inDegree := make(map[string]int)
	graph := make(map[string][]string)

	for service := range lm.services {
		inDegree[service] = 0
	}
	for service, deps := range lm.dependencies {
		for _, dep := range deps {
			if _, exists := lm.services[dep]; !exists {
				return nil, errors.Errorf("dependency %s of service %s is not registered", dep, service)
			}
			graph[dep] = append(graph[dep], service)
			inDegree[service]++
		}
	}

	var queue []string
	for service, degree := range inDegree {
		if degree == 0 {
			queue = append(queue, service)
		}
	}
	sort.Strings(queue)

	var result []string
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		result = append(result, current)

		var ready []string
		for _, dependent := range graph[current] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				ready = append(ready, dependent)
			}
		}
		sort.Strings(ready)
		queue = append(queue, ready...)
	}

	if len(result) != len(lm.services) {
		return nil, errors.New("circular dependency detected")
	}
	return result, nil
}

func (lm *LifecycleManager) broadcastEvent(event LifecycleEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	for _, listener := range lm.listeners {
		func() {
			defer func() {
				if r := recover(); r != nil {
					logrus.WithField("panic", r).Warn("lifecycle listener panicked")
				}
			}()
			listener(event)
		}()
	}
}

// LogEvents returns a listener writing lifecycle events to log.
func LogEvents(log *logrus.Entry) func(LifecycleEvent) {
	return func(e LifecycleEvent) {
		entry := log.WithField("event", e.Type)
		if e.Service != "" {
			entry = entry.WithField("service", e.Service)
		}
		if e.Error != nil {
			entry.WithError(e.Error).Warn("lifecycle")
			return
		}
		entry.Debug("lifecycle")
	}
}
