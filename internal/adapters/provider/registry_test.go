package provider

import (
	"testing"

	"github.com/uxray-ai/uxray/internal/config"
	"github.com/uxray-ai/uxray/internal/core"
)

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := NewRegistry()

	if err := r.Register(New("gpt", "http://x", "", "m", true)); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	p, err := r.Get("gpt")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if p.Name() != "gpt" {
		t.Errorf("Name() = %s", p.Name())
	}

	if _, err := r.Get("missing"); !core.IsCategory(err, core.ErrCatConfig) {
		t.Errorf("missing provider error category = %s, want config", core.GetCategory(err))
	}
}

func TestRegistry_RejectsDuplicates(t *testing.T) {
	r := NewRegistry()

	if err := r.Register(New("gpt", "http://x", "", "m", true)); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := r.Register(New("gpt", "http://y", "", "m", true)); err == nil {
		t.Error("duplicate registration accepted")
	}
}

func TestRegistry_ListSorted(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"claude", "apollo", "gpt"} {
		if err := r.Register(New(name, "http://x", "", "m", true)); err != nil {
			t.Fatal(err)
		}
	}

	want := []string{"apollo", "claude", "gpt"}
	got := r.List()
	if len(got) != len(want) {
		t.Fatalf("List() = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("List()[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestBuildRegistry(t *testing.T) {
	cfg := config.ProvidersConfig{
		"gpt":      {Enabled: true, Endpoint: "https://api.example.com/v1/chat", Model: "gpt-4o", Vision: true},
		"disabled": {Enabled: false, Endpoint: "https://other.example.com"},
	}

	r, err := BuildRegistry(cfg)
	if err != nil {
		t.Fatalf("BuildRegistry() error = %v", err)
	}
	if got := r.List(); len(got) != 1 || got[0] != "gpt" {
		t.Errorf("List() = %v, want only the enabled provider", got)
	}
}

func TestBuildRegistry_MissingEndpoint(t *testing.T) {
	cfg := config.ProvidersConfig{
		"gpt": {Enabled: true, Model: "gpt-4o"},
	}
	if _, err := BuildRegistry(cfg); err == nil {
		t.Error("BuildRegistry() accepted an enabled provider without an endpoint")
	}
}
