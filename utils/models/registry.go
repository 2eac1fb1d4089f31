package models

import (
	"sort"
	"strings"
	"sync"
)

// ModelRegistry records which models and model families each provider serves
type ModelRegistry struct {
	// Map of provider name to list of supported models
	models map[string][]string
	// Map of provider name to list of model families (prefixes)
	families map[string][]string
	mu       sync.RWMutex
}

// Global instance of the model registry
var globalRegistry = NewModelRegistry()

// NewModelRegistry creates a registry seeded with the default models
func NewModelRegistry() *ModelRegistry {
	registry := &ModelRegistry{
		models:   make(map[string][]string),
		families: make(map[string][]string),
	}
	registry.initializeDefaultModels()
	return registry
}

func (r *ModelRegistry) initializeDefaultModels() {
	r.RegisterModels("deepseek", []string{
		"deepseek-chat",
		"deepseek-reasoner",
	})
	r.RegisterFamilies("deepseek", []string{"deepseek-"})

	// Volcengine Ark endpoints; Doubao models are addressed by name or by endpoint ID
	r.RegisterModels("ark", []string{
		"doubao-seed-1-6-250615",
		"doubao-1-5-pro-32k-250115",
		"doubao-1-5-vision-pro-32k-250115",
	})
	r.RegisterFamilies("ark", []string{"doubao-", "ep-"})

	r.RegisterModels("anthropic", []string{
		"claude-sonnet-4-5",
		"claude-haiku-4-5",
		"claude-opus-4-1",
		"claude-sonnet-4-20250514",
	})
	r.RegisterFamilies("anthropic", []string{"claude-"})
}

// RegisterModels adds models to the registry for a specific provider
func (r *ModelRegistry) RegisterModels(provider string, models []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.models[provider] = append(r.models[provider], models...)
}

// RegisterFamilies adds model families (prefixes) to the registry for a specific provider
func (r *ModelRegistry) RegisterFamilies(provider string, families []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.families[provider] = append(r.families[provider], families...)
}

// GetModels returns the list of models for a specific provider
func (r *ModelRegistry) GetModels(provider string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.models[provider]
}

// GetFamilies returns the list of model families for a specific provider
func (r *ModelRegistry) GetFamilies(provider string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.families[provider]
}

// ValidateModel checks if a model is valid for a specific provider
func (r *ModelRegistry) ValidateModel(provider string, modelName string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	modelName = strings.TrimSpace(strings.ToLower(modelName))
	if modelName == "" {
		return false
	}

	for _, valid := range r.models[provider] {
		if modelName == valid {
			return true
		}
	}
	for _, family := range r.families[provider] {
		if strings.HasPrefix(modelName, family) {
			return true
		}
	}
	return false
}

// ProviderFor returns the provider serving modelName, or "" if none does.
// Exact matches win over family prefixes.
func (r *ModelRegistry) ProviderFor(modelName string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	name := strings.TrimSpace(strings.ToLower(modelName))
	for _, provider := range r.sortedProviders() {
		for _, m := range r.models[provider] {
			if name == m {
				return provider
			}
		}
	}
	for _, provider := range r.sortedProviders() {
		for _, family := range r.families[provider] {
			if strings.HasPrefix(name, family) {
				return provider
			}
		}
	}
	return ""
}

// sortedProviders keeps lookups deterministic; callers hold the lock
func (r *ModelRegistry) sortedProviders() []string {
	seen := make(map[string]bool)
	var names []string
	for p := range r.models {
		seen[p] = true
		names = append(names, p)
	}
	for p := range r.families {
		if !seen[p] {
			names = append(names, p)
		}
	}
	sort.Strings(names)
	return names
}

// GetRegistry returns the global model registry instance
func GetRegistry() *ModelRegistry {
	return globalRegistry
}
