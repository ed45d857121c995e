package options_test

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"pgregory.net/rapid"

	"github.com/goliatone/go-twigview/pkg/options"
)

func TestMerge_CallTimeValuesWin(t *testing.T) {
	base := options.Options{
		Root:       "/srv/views",
		Extensions: []options.Extension{{File: "ext.go", Func: "base"}},
		Context:    map[string]any{"site": "docs", "env": "prod"},
	}
	override := options.Options{
		Context: map[string]any{"title": "Home"},
	}

	got := options.Merge(base, override)

	want := options.Options{
		Root:       "/srv/views",
		Extensions: []options.Extension{{File: "ext.go", Func: "base"}},
		Context:    map[string]any{"title": "Home"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("merge mismatch (-want +got):\n%s", diff)
	}
}

func TestMerge_EmptyOverrideKeepsBase(t *testing.T) {
	base := options.Options{
		Root:    "views",
		Aliases: map[string]string{"theme": "themes/default"},
	}

	got := options.Merge(base, options.Options{})
	if diff := cmp.Diff(base, got); diff != "" {
		t.Fatalf("merge mismatch (-want +got):\n%s", diff)
	}
}

func TestMerge_DoesNotMutateInputs(t *testing.T) {
	base := options.Options{Context: map[string]any{"a": 1}}
	override := options.Options{
		Extensions: []options.Extension{{Func: "x"}},
		Context:    map[string]any{"b": 2},
	}

	got := options.Merge(base, override)
	got.Context["c"] = 3
	got.Extensions[0].Func = "changed"

	if diff := cmp.Diff(map[string]any{"a": 1}, base.Context); diff != "" {
		t.Fatalf("base mutated (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(map[string]any{"b": 2}, override.Context); diff != "" {
		t.Fatalf("override mutated (-want +got):\n%s", diff)
	}
	if override.Extensions[0].Func != "x" {
		t.Fatalf("override extensions mutated: %+v", override.Extensions)
	}
}

func TestMerge_NeverMutatesCallerProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		gen := rapid.MapOf(rapid.StringMatching(`[a-z]{1,6}`), rapid.String())
		baseCtx := gen.Draw(rt, "base")
		overCtx := gen.Draw(rt, "override")
		root := rapid.StringMatching(`[a-z/]{0,8}`).Draw(rt, "root")

		base := options.Options{Context: toAny(baseCtx)}
		override := options.Options{Root: root, Context: toAny(overCtx)}
		baseBefore := base.Clone()
		overrideBefore := override.Clone()

		merged := options.Merge(base, override)
		merged.Context["__written"] = true

		if diff := cmp.Diff(baseBefore, base); diff != "" {
			rt.Fatalf("base mutated (-want +got):\n%s", diff)
		}
		if diff := cmp.Diff(overrideBefore, override); diff != "" {
			rt.Fatalf("override mutated (-want +got):\n%s", diff)
		}
	})
}

func TestDefaults_ApplyPersistsUntilOverridden(t *testing.T) {
	defaults := options.NewDefaults(options.Options{})

	defaults.Apply(options.Options{Root: "/one", Context: map[string]any{"k": "v"}})
	if got := defaults.Get().Root; got != "/one" {
		t.Fatalf("expected root /one, got %q", got)
	}

	defaults.Apply(options.Options{Root: "/two"})
	got := defaults.Get()
	if got.Root != "/two" {
		t.Fatalf("expected root /two, got %q", got.Root)
	}
	if diff := cmp.Diff(map[string]any{"k": "v"}, got.Context); diff != "" {
		t.Fatalf("context lost (-want +got):\n%s", diff)
	}

	defaults.Reset()
	if diff := cmp.Diff(options.Options{}, defaults.Get()); diff != "" {
		t.Fatalf("reset mismatch (-want +got):\n%s", diff)
	}
}

func TestDefaults_GetReturnsCopy(t *testing.T) {
	defaults := options.NewDefaults(options.Options{Context: map[string]any{"a": 1}})

	snapshot := defaults.Get()
	snapshot.Context["a"] = 2

	if got := defaults.Get().Context["a"]; got != 1 {
		t.Fatalf("defaults mutated through snapshot: %v", got)
	}
}

func TestLoadFile_ResolvesRelativeDirs(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "twig.yaml")
	content := `root: views
extensions:
  - file: ext/markdown.go
    func: markdown
context:
  title: Docs
  nav:
    - home
    - about
aliases:
  theme: themes/default
  shared: /opt/shared
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write options: %v", err)
	}

	got, err := options.LoadFile(path)
	if err != nil {
		t.Fatalf("load file: %v", err)
	}

	want := options.Options{
		Root:       filepath.Join(dir, "views"),
		Extensions: []options.Extension{{File: "ext/markdown.go", Func: "markdown"}},
		Context: map[string]any{
			"title": "Docs",
			"nav":   []any{"home", "about"},
		},
		Aliases: map[string]string{
			"theme":  filepath.Join(dir, "themes/default"),
			"shared": "/opt/shared",
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("options mismatch (-want +got):\n%s", diff)
	}
}

func TestDecode_RequiresExtensionFunc(t *testing.T) {
	_, err := options.Decode([]byte(`{"extensions":[{"file":"a.go"}]}`))
	if err == nil {
		t.Fatalf("expected error for extension without func")
	}
}

func TestLoadContext(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ctx.json")
	if err := os.WriteFile(path, []byte(`{"name":"Ada","tags":["x"]}`), 0o644); err != nil {
		t.Fatalf("write context: %v", err)
	}

	got, err := options.LoadContext(path)
	if err != nil {
		t.Fatalf("load context: %v", err)
	}
	want := map[string]any{"name": "Ada", "tags": []any{"x"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("context mismatch (-want +got):\n%s", diff)
	}
}

func toAny(in map[string]string) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func TestDefaults_ConcurrentApplyGetReset(t *testing.T) {
	t.Parallel()

	d := options.NewDefaults(options.Options{Root: "/srv/views"})

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(3)
		go func(i int) {
			defer wg.Done()
			d.Apply(options.Options{
				Context: map[string]any{"n": i},
				Aliases: map[string]string{"ui": fmt.Sprintf("/ui/%d", i)},
			})
		}(i)
		go func() {
			defer wg.Done()
			if got := d.Get(); got.Context != nil {
				got.Context["mutated"] = true
			}
		}()
		go func(i int) {
			defer wg.Done()
			if i%8 == 0 {
				d.Reset()
			}
		}(i)
	}
	wg.Wait()

	if got := d.Get(); got.Root != "/srv/views" {
		t.Fatalf("root lost under concurrent use: %q", got.Root)
	}
	if _, ok := d.Get().Context["mutated"]; ok {
		t.Fatalf("writes through Get leaked into the store")
	}
}
