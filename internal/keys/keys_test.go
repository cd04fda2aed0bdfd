package keys

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/manash/slidegen/pkg/models"
)

func TestStore_SetGetDelete(t *testing.T) {
	tmpDir := t.TempDir()
	store := NewStore(tmpDir)

	if err := store.Set(models.ProviderOpenAI, "sk-test-key-12345"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	info, err := os.Stat(filepath.Join(tmpDir, "keys.json"))
	if err != nil {
		t.Fatalf("keys.json not created: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("keys.json permissions = %v, want 0600", info.Mode().Perm())
	}

	key, err := store.Get(models.ProviderOpenAI)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if key != "sk-test-key-12345" {
		t.Errorf("Get() = %v, want sk-test-key-12345", key)
	}

	key, err = store.Get(models.ProviderGemini)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if key != "" {
		t.Errorf("Get(gemini) = %v, want empty string", key)
	}

	if err := store.Delete(models.ProviderOpenAI); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if key, _ := store.Get(models.ProviderOpenAI); key != "" {
		t.Errorf("Get() after Delete() = %v, want empty string", key)
	}

	if err := store.Delete(models.ProviderGemini); !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("Delete(missing) error = %v, want ErrKeyNotFound", err)
	}
}

func TestStore_Set_Empty(t *testing.T) {
	store := NewStore(t.TempDir())
	if err := store.Set(models.ProviderOpenAI, "   "); !errors.Is(err, models.ErrInvalidArgument) {
		t.Errorf("Set(blank) error = %v, want ErrInvalidArgument", err)
	}
}

func TestStore_EmptyDir(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "missing"))

	key, err := store.Get(models.ProviderOpenAI)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if key != "" {
		t.Errorf("Get() from non-existent file = %v, want empty string", key)
	}

	providers, err := store.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(providers) != 0 {
		t.Errorf("List() from non-existent file = %v, want empty slice", providers)
	}
}

func TestStore_List_Sorted(t *testing.T) {
	store := NewStore(t.TempDir())
	store.Set(models.ProviderOpenAI, "openai-key")
	store.Set(models.ProviderGemini, "gemini-key")

	providers, err := store.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	want := []models.ProviderType{models.ProviderGemini, models.ProviderOpenAI}
	if diff := cmp.Diff(want, providers); diff != "" {
		t.Errorf("List() mismatch (-want +got):\n%s", diff)
	}
}

func TestStore_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "keys.json"), []byte("{not json"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := NewStore(dir).Get(models.ProviderOpenAI); err == nil {
		t.Error("Get() on corrupt keys.json should return error")
	}
}

func TestMaskKey(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"sk-1234567890abcdef", "sk-1***********cdef"},
		{"short", "*****"},
		{"12345678", "********"},
		{"123456789", "1234*6789"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := MaskKey(tt.key); got != tt.want {
			t.Errorf("MaskKey(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestResolve(t *testing.T) {
	stored := NewStore(t.TempDir())
	if err := stored.Set(models.ProviderOpenAI, "stored-key"); err != nil {
		t.Fatal(err)
	}
	empty := NewStore(t.TempDir())

	env := map[string]string{"OPENAI_API_KEY": "env-key"}
	getenv := func(k string) string { return env[k] }
	noenv := func(string) string { return "" }

	tests := []struct {
		name       string
		explicit   string
		store      *Store
		getenv     func(string) string
		wantKey    string
		wantSource Source
	}{
		{"flag wins", "flag-key", stored, getenv, "flag-key", SourceFlag},
		{"stored before env", "", stored, getenv, "stored-key", SourceStore},
		{"env fallback", "", empty, getenv, "env-key", SourceEnv},
		{"nil store", "", nil, getenv, "env-key", SourceEnv},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, source, err := Resolve(tt.explicit, models.ProviderOpenAI, tt.getenv, tt.store)
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if key != tt.wantKey || source != tt.wantSource {
				t.Errorf("Resolve() = (%q, %q), want (%q, %q)", key, source, tt.wantKey, tt.wantSource)
			}
		})
	}

	t.Run("missing", func(t *testing.T) {
		_, _, err := Resolve("", models.ProviderGemini, noenv, empty)
		if !errors.Is(err, models.ErrMissingCredential) {
			t.Fatalf("Resolve() error = %v, want ErrMissingCredential", err)
		}
	})

	t.Run("env is per provider", func(t *testing.T) {
		_, _, err := Resolve("", models.ProviderGemini, getenv, empty)
		if !errors.Is(err, models.ErrMissingCredential) {
			t.Errorf("Resolve(gemini) error = %v, want ErrMissingCredential", err)
		}
	})
}
