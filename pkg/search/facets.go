package search

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"ai-concierge-be/pkg/store"
)

// DefaultFacetWeight is used for facet keys missing from the configuration.
const DefaultFacetWeight = 0.5

// FacetDefinition is one semantic sub-profile of an entity type, separately
// embedded and indexed.
type FacetDefinition struct {
	Key    string  `yaml:"key"`
	Weight float64 `yaml:"weight"`
}

type entityFacets struct {
	Facets []FacetDefinition `yaml:"facets"`
}

type facetsFile struct {
	Entities map[string]entityFacets `yaml:"entities"`
}

// FacetConfig holds the per-entity-type facet table. Loaded once at startup
// and shared by reference; immutable afterwards.
type FacetConfig struct {
	entities map[store.EntityType][]FacetDefinition
}

// LoadFacetConfig reads the facet table from a YAML file. An empty path loads
// the built-in defaults.
func LoadFacetConfig(path string) (*FacetConfig, error) {
	if path == "" {
		return defaultFacetConfig(), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read facet config: %w", err)
	}

	var file facetsFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse facet config: %w", err)
	}

	cfg := &FacetConfig{entities: make(map[store.EntityType][]FacetDefinition)}
	for name, entry := range file.Entities {
		entityType, ok := store.ParseEntityType(name)
		if !ok {
			return nil, fmt.Errorf("facet config: unknown entity type %q", name)
		}
		facets := make([]FacetDefinition, 0, len(entry.Facets))
		for _, f := range entry.Facets {
			if f.Key == "" {
				return nil, fmt.Errorf("facet config: empty facet key for %q", name)
			}
			if f.Weight <= 0 || f.Weight > 1 {
				f.Weight = DefaultFacetWeight
			}
			facets = append(facets, f)
		}
		cfg.entities[entityType] = facets
	}

	// Entity types absent from the file fall back to the defaults so a partial
	// override file does not silently disable search for a type.
	defaults := defaultFacetConfig()
	for _, entityType := range store.AllEntityTypes {
		if _, ok := cfg.entities[entityType]; !ok {
			cfg.entities[entityType] = defaults.entities[entityType]
		}
	}
	return cfg, nil
}

func defaultFacetConfig() *FacetConfig {
	return &FacetConfig{entities: map[store.EntityType][]FacetDefinition{
		store.EntitySessions: {
			{Key: "topic", Weight: 0.9},
			{Key: "abstract", Weight: 0.8},
			{Key: "audience", Weight: 0.5},
			{Key: "format", Weight: 0.4},
			{Key: "takeaways", Weight: 0.6},
		},
		store.EntityExhibitors: {
			{Key: "offerings", Weight: 0.9},
			{Key: "industry", Weight: 0.7},
			{Key: "products", Weight: 0.8},
			{Key: "target_customers", Weight: 0.5},
			{Key: "company_profile", Weight: 0.4},
		},
		store.EntitySpeakers: {
			{Key: "expertise", Weight: 0.9},
			{Key: "biography", Weight: 0.6},
			{Key: "talks", Weight: 0.8},
			{Key: "affiliation", Weight: 0.4},
		},
		store.EntityAttendees: {
			{Key: "interests", Weight: 0.9},
			{Key: "role", Weight: 0.6},
			{Key: "company", Weight: 0.4},
			{Key: "goals", Weight: 0.7},
		},
	}}
}

// Facets returns the facet definitions for an entity type. The returned slice
// must not be modified.
func (c *FacetConfig) Facets(entityType store.EntityType) []FacetDefinition {
	return c.entities[entityType]
}

// Weight returns the configured weight for a facet key, defaulting to 0.5 for
// unknown keys rather than failing.
func (c *FacetConfig) Weight(entityType store.EntityType, facetKey string) float64 {
	for _, f := range c.entities[entityType] {
		if f.Key == facetKey {
			return f.Weight
		}
	}
	return DefaultFacetWeight
}
