package provider

import (
	"testing"

	"github.com/lexivn/legal-rag-backend/internal/core/domain"
)

func clearKeyEnv(t *testing.T) {
	t.Helper()
	for _, envVar := range envKeyVars {
		t.Setenv(envVar, "")
	}
}

func TestNewStateDefaultsToLocalOllama(t *testing.T) {
	clearKeyEnv(t)
	state := NewState(builtinRegistry())

	snap := state.Snapshot()
	if snap.Provider != LocalOllama {
		t.Errorf("active = %s, want local_ollama", snap.Provider)
	}
	if len(snap.Keys) != 1 || snap.Keys[0] != "local" {
		t.Errorf("local keys = %v", snap.Keys)
	}
	if snap.Model != "qwen2.5:3b" {
		t.Errorf("model = %q", snap.Model)
	}
}

func TestNewStateAutoSwitchesToFPTCloud(t *testing.T) {
	clearKeyEnv(t)
	t.Setenv("FPT_CLOUD_API_KEY", "fpt-secret")
	state := NewState(builtinRegistry())

	snap := state.Snapshot()
	if snap.Provider != FPTCloud {
		t.Errorf("active = %s, want fpt_cloud", snap.Provider)
	}
	if snap.Model != "Qwen3-32B" {
		t.Errorf("model = %q, want the FPT default", snap.Model)
	}
	if len(snap.Keys) != 1 || snap.Keys[0] != "fpt-secret" {
		t.Errorf("keys = %v", snap.Keys)
	}
}

func TestAddKeyIsIdempotent(t *testing.T) {
	clearKeyEnv(t)
	state := NewState(builtinRegistry())

	if err := state.AddKey(OpenAI, "sk-1"); err != nil {
		t.Fatalf("AddKey() error = %v", err)
	}
	if err := state.AddKey(OpenAI, "sk-1"); err != nil {
		t.Fatalf("repeat AddKey() error = %v", err)
	}
	if err := state.AddKey(OpenAI, "sk-2"); err != nil {
		t.Fatalf("AddKey() error = %v", err)
	}

	if err := state.SetActive(OpenAI, ""); err != nil {
		t.Fatalf("SetActive() error = %v", err)
	}
	snap := state.Snapshot()
	if len(snap.Keys) != 2 {
		t.Errorf("keys = %v, want 2 distinct", snap.Keys)
	}
}

func TestAddKeyUnknownProvider(t *testing.T) {
	clearKeyEnv(t)
	state := NewState(builtinRegistry())

	err := state.AddKey(ID("mystery"), "k")
	if !domain.IsKind(err, domain.ErrConfiguration) {
		t.Errorf("error kind = %v, want configuration", err)
	}
}

func TestSetActiveResolvesDefaultModel(t *testing.T) {
	clearKeyEnv(t)
	state := NewState(builtinRegistry())

	if err := state.SetActive(Groq, ""); err != nil {
		t.Fatalf("SetActive() error = %v", err)
	}
	if snap := state.Snapshot(); snap.Model != "llama-3.1-70b-versatile" {
		t.Errorf("model = %q", snap.Model)
	}

	if err := state.SetActive(Groq, "llama-3.1-8b-instant"); err != nil {
		t.Fatalf("SetActive() error = %v", err)
	}
	if snap := state.Snapshot(); snap.Model != "llama-3.1-8b-instant" {
		t.Errorf("model = %q", snap.Model)
	}

	if err := state.SetActive(ID("mystery"), ""); !domain.IsKind(err, domain.ErrConfiguration) {
		t.Errorf("unknown provider error = %v", err)
	}
}

func TestProvidersListsAllWithActiveFlag(t *testing.T) {
	clearKeyEnv(t)
	t.Setenv("GROQ_API_KEY", "gk-1")
	state := NewState(builtinRegistry())

	infos := state.Providers()
	if len(infos) != 5 {
		t.Fatalf("got %d providers, want 5", len(infos))
	}
	byID := map[string]ProviderInfo{}
	for _, info := range infos {
		byID[info.ID] = info
	}
	if !byID["local_ollama"].Active {
		t.Error("local_ollama not marked active")
	}
	if !byID["groq"].HasAPIKey {
		t.Error("groq key from env not reflected")
	}
	if byID["openai"].HasAPIKey {
		t.Error("openai reports a key it does not have")
	}
	if byID["fpt_cloud"].CostPer1MOutput != 0.08 {
		t.Errorf("fpt output cost = %v", byID["fpt_cloud"].CostPer1MOutput)
	}
}

func TestSnapshotDetachedFromLiveState(t *testing.T) {
	clearKeyEnv(t)
	state := NewState(builtinRegistry())
	_ = state.AddKey(OpenAI, "sk-1")
	_ = state.SetActive(OpenAI, "")

	snap := state.Snapshot()
	_ = state.AddKey(OpenAI, "sk-2")
	_ = state.SetActive(Groq, "")

	if len(snap.Keys) != 1 || snap.Provider != OpenAI {
		t.Errorf("snapshot mutated by later state changes: %+v", snap)
	}
}
