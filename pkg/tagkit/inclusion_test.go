package tagkit

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/flosch/pongo2/v6"
)

// setupTestSet writes the given templates into a temp dir and returns a
// template set loading from it.
func setupTestSet(tb testing.TB, files map[string]string) *pongo2.TemplateSet {
	tb.Helper()
	dir := tb.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			tb.Fatalf("failed to write template %s: %v", name, err)
		}
	}
	return pongo2.NewSet("test", pongo2.MustNewLocalFileSystemLoader(dir))
}

func TestInclusionTag_RendersSubTemplate(t *testing.T) {
	set := setupTestSet(t, map[string]string{
		"panel.html": `<div>{{ title }}</div>`,
		"alt.html":   `<p>{{ title }}</p>`,
	})
	MustRegister("tk_panel", &InclusionTag{
		Set:          set,
		TemplateName: "panel.html",
		Options:      Options{MinArgs: 1, MaxArgs: 1},
		GetContextData: func(ctx *pongo2.ExecutionContext, args *Arguments) (pongo2.Context, error) {
			return pongo2.Context{"title": args.Args[0].String()}, nil
		},
	})

	out, err := pongo2.Must(pongo2.FromString(`{% tk_panel "Start" %}`)).Execute(nil)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if out != "<div>Start</div>" {
		t.Errorf("unexpected output: got %q", out)
	}

	// The template option overrides the static name per occurrence.
	out, err = pongo2.Must(pongo2.FromString(`{% tk_panel "Start" template="alt.html" %}`)).Execute(nil)
	if err != nil {
		t.Fatalf("Execute with template option failed: %v", err)
	}
	if out != "<p>Start</p>" {
		t.Errorf("unexpected output with template option: got %q", out)
	}
}

func TestInclusionTag_GetTemplateName(t *testing.T) {
	set := setupTestSet(t, map[string]string{
		"wide.html":   `wide:{{ label }}`,
		"narrow.html": `narrow:{{ label }}`,
	})
	MustRegister("tk_dyn", &InclusionTag{
		Set:     set,
		Options: Options{MinArgs: 1, MaxArgs: 1},
		GetTemplateName: func(args *Arguments) string {
			return args.Args[0].String() + ".html"
		},
		GetContextData: func(ctx *pongo2.ExecutionContext, args *Arguments) (pongo2.Context, error) {
			return pongo2.Context{"label": args.Args[0].String()}, nil
		},
	})

	out, err := pongo2.Must(pongo2.FromString(`{% tk_dyn "wide" %}|{% tk_dyn "narrow" %}`)).Execute(nil)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if out != "wide:wide|narrow:narrow" {
		t.Errorf("unexpected output: got %q", out)
	}
}

func TestInclusionTag_PropagatesCSRFToken(t *testing.T) {
	set := setupTestSet(t, map[string]string{
		"form.html": `<form>{{ csrf_token }}</form>`,
	})
	MustRegister("tk_form", &InclusionTag{
		Set:          set,
		TemplateName: "form.html",
		GetContextData: func(ctx *pongo2.ExecutionContext, args *Arguments) (pongo2.Context, error) {
			return pongo2.Context{}, nil
		},
	})

	out, err := pongo2.Must(pongo2.FromString(`{% tk_form %}`)).Execute(pongo2.Context{"csrf_token": "tok-123"})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !strings.Contains(out, "tok-123") {
		t.Errorf("csrf_token was not propagated into the sub-template: %q", out)
	}

	// The sub-template sees only the computed data, not the whole parent
	// context.
	set2 := setupTestSet(t, map[string]string{
		"leak.html": `[{{ secret }}]`,
	})
	MustRegister("tk_leak", &InclusionTag{
		Set:          set2,
		TemplateName: "leak.html",
		GetContextData: func(ctx *pongo2.ExecutionContext, args *Arguments) (pongo2.Context, error) {
			return pongo2.Context{}, nil
		},
	})
	out, err = pongo2.Must(pongo2.FromString(`{% tk_leak %}`)).Execute(pongo2.Context{"secret": "hidden"})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if out != "[]" {
		t.Errorf("parent context leaked into the sub-template: %q", out)
	}
}

func TestInclusionTag_GetContextOverride(t *testing.T) {
	set := setupTestSet(t, map[string]string{
		"both.html": `{{ a }}+{{ b }}`,
	})
	MustRegister("tk_getctx", &InclusionTag{
		Set:          set,
		TemplateName: "both.html",
		GetContextData: func(ctx *pongo2.ExecutionContext, args *Arguments) (pongo2.Context, error) {
			return pongo2.Context{"a": "data"}, nil
		},
		GetContext: func(ctx *pongo2.ExecutionContext, data pongo2.Context) pongo2.Context {
			merged := pongo2.Context{"b": "extra"}
			merged.Update(data)
			return merged
		},
	})

	out, err := pongo2.Must(pongo2.FromString(`{% tk_getctx %}`)).Execute(nil)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if out != "data+extra" {
		t.Errorf("unexpected output: got %q", out)
	}
}

func TestInclusionTag_RenderErrors(t *testing.T) {
	set := setupTestSet(t, map[string]string{
		"ok.html": `ok`,
	})

	MustRegister("tk_noname", &InclusionTag{
		Set: set,
		GetContextData: func(ctx *pongo2.ExecutionContext, args *Arguments) (pongo2.Context, error) {
			return pongo2.Context{}, nil
		},
	})
	_, err := pongo2.Must(pongo2.FromString(`{% tk_noname %}`)).Execute(nil)
	if err == nil || !strings.Contains(err.Error(), "has no template") {
		t.Errorf("expected a missing-template error, got: %v", err)
	}

	MustRegister("tk_nodata", &InclusionTag{Set: set, TemplateName: "ok.html"})
	_, err = pongo2.Must(pongo2.FromString(`{% tk_nodata %}`)).Execute(nil)
	if err == nil || !strings.Contains(err.Error(), "has no GetContextData hook") {
		t.Errorf("expected a missing-hook error, got: %v", err)
	}

	MustRegister("tk_missing", &InclusionTag{
		Set:          set,
		TemplateName: "gone.html",
		GetContextData: func(ctx *pongo2.ExecutionContext, args *Arguments) (pongo2.Context, error) {
			return pongo2.Context{}, nil
		},
	})
	_, err = pongo2.Must(pongo2.FromString(`{% tk_missing %}`)).Execute(nil)
	if err == nil || !strings.Contains(err.Error(), "gone.html") {
		t.Errorf("expected a template-loading error naming the template, got: %v", err)
	}
}
