package entitystore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Info describes a registered backend.
type Info struct {
	Type        string `json:"type"`
	DisplayName string `json:"display_name"`
}

// Registration pairs backend info with its constructor.
type Registration struct {
	Info    Info
	Factory func(ctx context.Context, cfg Config, logger *zap.Logger) (EntityStore, error)
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Registration)
)

// Register is called by each backend's init() function.
func Register(reg Registration) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[reg.Info.Type] = reg
}

// Registered returns the info of every compiled-in backend, sorted by type.
func Registered() []Info {
	registryMu.RLock()
	defer registryMu.RUnlock()

	out := make([]Info, 0, len(registry))
	for _, reg := range registry {
		out = append(out, reg.Info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out
}

// New opens the backend named by cfg.Type.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (EntityStore, error) {
	registryMu.RLock()
	reg, ok := registry[cfg.Type]
	registryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unsupported entity store type: %s (not compiled in)", cfg.Type)
	}
	return reg.Factory(ctx, cfg, logger)
}
