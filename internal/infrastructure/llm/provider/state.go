package provider

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/lexivn/legal-rag-backend/internal/core/domain"
)

var envKeyVars = map[ID]string{
	FPTCloud:  "FPT_CLOUD_API_KEY",
	OpenAI:    "OPENAI_API_KEY",
	Anthropic: "ANTHROPIC_API_KEY",
	Groq:      "GROQ_API_KEY",
}

// State holds the mutable provider selection and credential sets. Reads take
// a snapshot so an in-flight generation is not affected by a concurrent
// provider switch.
type State struct {
	registry Registry

	mu          sync.RWMutex
	keys        map[ID][]string
	active      ID
	activeModel string
}

// NewState seeds credentials from the environment. Local Ollama always has
// its placeholder key; if an FPT Cloud key is present the active provider
// starts there instead of the local default.
func NewState(registry Registry) *State {
	s := &State{
		registry: registry,
		keys:     map[ID][]string{LocalOllama: {"local"}},
		active:   LocalOllama,
	}

	for id, envVar := range envKeyVars {
		if key := os.Getenv(envVar); key != "" {
			s.keys[id] = append(s.keys[id], key)
		}
	}

	if len(s.keys[FPTCloud]) > 0 {
		s.active = FPTCloud
		s.activeModel = registry[FPTCloud].DefaultModel
	}

	loaded := make([]string, 0, len(s.keys))
	for id := range s.keys {
		loaded = append(loaded, string(id))
	}
	slog.Info("provider_keys_loaded", "providers", loaded, "active", string(s.active))
	return s
}

// AddKey appends a credential for a provider. Adding the same key twice is a
// no-op.
func (s *State) AddKey(id ID, key string) error {
	if _, ok := s.registry[id]; !ok {
		return domain.WrapError(domain.ErrConfiguration, "add key", fmt.Errorf("unknown provider %q", id))
	}
	if key == "" {
		return domain.WrapError(domain.ErrConfiguration, "add key", fmt.Errorf("empty api key"))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.keys[id] {
		if existing == key {
			return nil
		}
	}
	s.keys[id] = append(s.keys[id], key)
	slog.Info("provider_key_added", "provider", string(id))
	return nil
}

// SetActive switches the active provider, resolving an empty model to the
// provider's default.
func (s *State) SetActive(id ID, model string) error {
	cfg, ok := s.registry[id]
	if !ok {
		return domain.WrapError(domain.ErrConfiguration, "set provider", fmt.Errorf("unknown provider %q", id))
	}
	if model == "" {
		model = cfg.DefaultModel
	}

	s.mu.Lock()
	s.active = id
	s.activeModel = model
	s.mu.Unlock()

	slog.Info("provider_switched", "provider", string(id), "model", model)
	return nil
}

type Snapshot struct {
	Provider ID
	Config   Config
	Model    string
	Keys     []string
}

// Snapshot copies the current selection. The key slice is detached from the
// live state.
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cfg := s.registry[s.active]
	model := s.activeModel
	if model == "" {
		model = cfg.DefaultModel
	}
	keys := make([]string, len(s.keys[s.active]))
	copy(keys, s.keys[s.active])

	return Snapshot{
		Provider: s.active,
		Config:   cfg,
		Model:    model,
		Keys:     keys,
	}
}

// HasKey reports whether a provider has at least one credential.
func (s *State) HasKey(id ID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.keys[id]) > 0
}

// ActiveInfo describes the current selection for the settings API.
type ActiveInfo struct {
	Provider     string `json:"provider"`
	ProviderName string `json:"provider_name"`
	Model        string `json:"model"`
	BaseURL      string `json:"base_url"`
	HasAPIKey    bool   `json:"has_api_key"`
}

func (s *State) ActiveInfo() ActiveInfo {
	snap := s.Snapshot()
	return ActiveInfo{
		Provider:     string(snap.Provider),
		ProviderName: snap.Config.Name,
		Model:        snap.Model,
		BaseURL:      snap.Config.BaseURL,
		HasAPIKey:    len(snap.Keys) > 0,
	}
}

// ProviderInfo describes one registry entry for the settings API.
type ProviderInfo struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	DefaultModel    string   `json:"default_model"`
	Models          []string `json:"models"`
	CostPer1MInput  float64  `json:"cost_per_1m_input"`
	CostPer1MOutput float64  `json:"cost_per_1m_output"`
	HasAPIKey       bool     `json:"has_api_key"`
	Active          bool     `json:"active"`
}

func (s *State) Providers() []ProviderInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]ProviderInfo, 0, len(s.registry))
	for _, id := range []ID{LocalOllama, FPTCloud, OpenAI, Anthropic, Groq} {
		cfg, ok := s.registry[id]
		if !ok {
			continue
		}
		out = append(out, ProviderInfo{
			ID:              string(id),
			Name:            cfg.Name,
			DefaultModel:    cfg.DefaultModel,
			Models:          cfg.Models,
			CostPer1MInput:  cfg.CostPer1MInput,
			CostPer1MOutput: cfg.CostPer1MOutput,
			HasAPIKey:       len(s.keys[id]) > 0,
			Active:          id == s.active,
		})
	}
	return out
}
