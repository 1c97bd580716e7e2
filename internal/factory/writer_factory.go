package factory

import (
	"Go2AdversaryLab/internal/config"
	"Go2AdversaryLab/internal/model"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
)

// WriterFactory creates a result writer from its definition.
type WriterFactory func(def config.WriterDef, logger *logrus.Logger) (model.Writer, error)

// registry holds the mapping of writer types to their factory functions.
var registry = make(map[string]WriterFactory)

// RegisterWriter registers a new writer type with its factory function.
func RegisterWriter(name string, factory WriterFactory) {
	if _, exists := registry[name]; exists {
		panic(fmt.Sprintf("writer type '%s' already registered", name))
	}
	registry[name] = factory
}

// Registered lists the known writer types.
func Registered() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CreateWriters creates every enabled writer of the configuration.
func CreateWriters(defs []config.WriterDef, logger *logrus.Logger) ([]model.Writer, error) {
	var writers []model.Writer

	for _, def := range defs {
		if !def.Enabled {
			continue
		}
		logger.Infof("Creating result writer of type '%s'", def.Type)

		factory, ok := registry[def.Type]
		if !ok {
			return nil, fmt.Errorf("unknown writer type: '%s'", def.Type)
		}

		w, err := factory(def, logger)
		if err != nil {
			return nil, fmt.Errorf("error creating writer type '%s': %w", def.Type, err)
		}
		writers = append(writers, w)
	}

	return writers, nil
}
