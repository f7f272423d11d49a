package broker

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/miladsoleymani/kafkaconsumer/core"
)

// ErrUnknownDriver is returned by Create for names nobody registered.
var ErrUnknownDriver = errors.New("kafkaconsumer: unknown driver")

// Factory creates a Consumer from the given Config.
type Factory func(cfg Config, logger *slog.Logger) (core.Consumer, error)

var (
	mu        sync.RWMutex
	factories = make(map[string]Factory)
)

// Register adds a named driver factory. Plugins call this from init().
func Register(name string, factory Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[name] = factory
}

// Drivers returns the registered driver names in sorted order.
func Drivers() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Create instantiates a consumer by driver name using the registered factory.
func Create(name string, cfg Config, logger *slog.Logger) (core.Consumer, error) {
	mu.RLock()
	f, ok := factories[name]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownDriver, name)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return f(cfg, logger.With("driver", name))
}

// Open validates cfg, creates the named consumer and wraps it in a Session
// scoped to cfg.Topic.
func Open(name string, cfg Config, logger *slog.Logger) (*core.Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c, err := Create(name, cfg, logger)
	if err != nil {
		return nil, err
	}
	return core.NewSession(c, cfg.Topic, logger), nil
}
