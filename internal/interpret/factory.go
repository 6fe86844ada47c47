package interpret

import (
	"fmt"

	"avplan/internal/config"
	"avplan/internal/port"
)

// ProviderFactory creates an Interpreter from a provider config.
type ProviderFactory func(cfg *config.ProviderConfig) (port.Interpreter, error)

// registry of model provider factories, populated at startup via RegisterProvider.
var providers = map[string]ProviderFactory{}

// RegisterProvider registers a model provider factory by name.
func RegisterProvider(name string, factory ProviderFactory) {
	providers[name] = factory
}

// NewInterpreter creates an Interpreter from a provider config using the registered factory.
func NewInterpreter(cfg *config.ProviderConfig) (port.Interpreter, error) {
	factory, ok := providers[cfg.Provider]
	if !ok {
		return nil, fmt.Errorf("unknown interpretation provider: %s", cfg.Provider)
	}
	return factory(cfg)
}

// NewChain builds the configured providers into a single Interpreter. A lone
// provider is returned as is; several are wrapped in a FallbackInterpreter.
func NewChain(cfg *config.InterpretConfig) (port.Interpreter, error) {
	slots := cfg.Providers()
	if len(slots) == 0 {
		return nil, fmt.Errorf("no interpretation provider configured")
	}
	interpreters := make([]port.Interpreter, 0, len(slots))
	names := make([]string, 0, len(slots))
	for _, slot := range slots {
		in, err := NewInterpreter(slot)
		if err != nil {
			return nil, err
		}
		interpreters = append(interpreters, in)
		names = append(names, slot.Provider)
	}
	if len(interpreters) == 1 {
		return interpreters[0], nil
	}
	return NewFallbackInterpreter(interpreters, names), nil
}
