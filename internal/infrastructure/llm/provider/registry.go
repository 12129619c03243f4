package provider

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type ID string

const (
	LocalOllama ID = "local_ollama"
	FPTCloud    ID = "fpt_cloud"
	OpenAI      ID = "openai"
	Anthropic   ID = "anthropic"
	Groq        ID = "groq"
)

// Config describes one generation provider: where to reach it, which models
// it serves, and its token pricing in USD per million tokens.
type Config struct {
	Name            string   `yaml:"name"`
	BaseURL         string   `yaml:"base_url"`
	DefaultModel    string   `yaml:"default_model"`
	Models          []string `yaml:"models"`
	CostPer1MInput  float64  `yaml:"cost_per_1m_input"`
	CostPer1MOutput float64  `yaml:"cost_per_1m_output"`
}

type Registry map[ID]Config

func builtinRegistry() Registry {
	return Registry{
		LocalOllama: {
			Name:         "Local Ollama",
			BaseURL:      "http://localhost:11434",
			DefaultModel: "qwen2.5:3b",
			Models:       []string{"qwen2.5:3b", "qwen2.5:7b", "llama3.1:8b"},
		},
		FPTCloud: {
			Name:            "FPT Cloud",
			BaseURL:         "https://mkp-api.fptcloud.com/v1",
			DefaultModel:    "Qwen3-32B",
			Models:          []string{"Qwen3-32B", "Qwen3-14B", "Qwen3-8B"},
			CostPer1MInput:  0.06,
			CostPer1MOutput: 0.08,
		},
		OpenAI: {
			Name:            "OpenAI",
			BaseURL:         "https://api.openai.com/v1",
			DefaultModel:    "gpt-4o-mini",
			Models:          []string{"gpt-4o-mini", "gpt-4o", "gpt-3.5-turbo"},
			CostPer1MInput:  0.15,
			CostPer1MOutput: 0.60,
		},
		Anthropic: {
			Name:            "Anthropic",
			BaseURL:         "https://api.anthropic.com",
			DefaultModel:    "claude-3.5-sonnet",
			Models:          []string{"claude-3.5-sonnet", "claude-3-haiku"},
			CostPer1MInput:  3.0,
			CostPer1MOutput: 15.0,
		},
		Groq: {
			Name:            "Groq",
			BaseURL:         "https://api.groq.com/openai/v1",
			DefaultModel:    "llama-3.1-70b-versatile",
			Models:          []string{"llama-3.1-70b-versatile", "llama-3.1-8b-instant"},
			CostPer1MInput:  0.59,
			CostPer1MOutput: 0.79,
		},
	}
}

// LoadRegistry returns the built-in provider table, optionally overlaid with
// a YAML file. Overrides replace only the fields they set; unknown provider
// ids in the file are rejected.
func LoadRegistry(path string) (Registry, error) {
	registry := builtinRegistry()
	if path == "" {
		return registry, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read providers file: %w", err)
	}

	var overrides map[ID]Config
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("parse providers file: %w", err)
	}

	for id, override := range overrides {
		base, ok := registry[id]
		if !ok {
			return nil, fmt.Errorf("providers file: unknown provider %q", id)
		}
		if override.Name != "" {
			base.Name = override.Name
		}
		if override.BaseURL != "" {
			base.BaseURL = override.BaseURL
		}
		if override.DefaultModel != "" {
			base.DefaultModel = override.DefaultModel
		}
		if len(override.Models) > 0 {
			base.Models = override.Models
		}
		if override.CostPer1MInput > 0 {
			base.CostPer1MInput = override.CostPer1MInput
		}
		if override.CostPer1MOutput > 0 {
			base.CostPer1MOutput = override.CostPer1MOutput
		}
		registry[id] = base
	}
	return registry, nil
}
