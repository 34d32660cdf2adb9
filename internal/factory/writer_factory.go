package factory

import (
	"LogSpectra/internal/config"
	"LogSpectra/internal/model"
	"fmt"
	"log"
	"sort"
)

// WriterFactory builds a writer from its definition and the global config.
type WriterFactory func(def config.WriterDef, cfg *config.Config) (model.Writer, error)

// registry holds the mapping of writer types to their factory functions.
var registry = make(map[string]WriterFactory)

// RegisterWriter registers a new writer type with its factory function.
func RegisterWriter(name string, factory WriterFactory) {
	if _, exists := registry[name]; exists {
		panic(fmt.Sprintf("writer type '%s' already registered", name))
	}
	registry[name] = factory
}

// Registered returns the sorted names of all registered writer types.
func Registered() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CreateWriters builds every enabled writer listed in the config.
// Disabled and unknown definitions are skipped with a warning.
func CreateWriters(cfg *config.Config) ([]model.Writer, error) {
	var writers []model.Writer

	for _, def := range cfg.Writers {
		if !def.Enabled {
			log.Printf("Writer '%s' is disabled, skipping.", def.Type)
			continue
		}

		factory, ok := registry[def.Type]
		if !ok {
			log.Printf("Warning: unknown writer type '%s', skipping.", def.Type)
			continue
		}

		w, err := factory(def, cfg)
		if err != nil {
			return nil, fmt.Errorf("error creating writer '%s': %w", def.Type, err)
		}
		log.Printf("Created writer '%s'.", def.Type)
		writers = append(writers, w)
	}

	return writers, nil
}
