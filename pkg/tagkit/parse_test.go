package tagkit

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"testing"

	"github.com/flosch/pongo2/v6"
)

// echoTag writes the resolved arguments in a fixed layout so tests can assert
// on the parse result. Kwargs are sorted because map order is random.
func echoTag(opts Options) TagFunc {
	return TagFunc{
		Options: opts,
		Render: func(ctx *pongo2.ExecutionContext, w pongo2.TemplateWriter, args *Arguments) *pongo2.Error {
			parts := make([]string, 0, len(args.Args))
			for _, v := range args.Args {
				parts = append(parts, v.String())
			}
			names := make([]string, 0, len(args.Kwargs))
			for name := range args.Kwargs {
				names = append(names, name)
			}
			sort.Strings(names)
			kwParts := make([]string, 0, len(names))
			for _, name := range names {
				kwParts = append(kwParts, name+":"+args.Kwargs[name].String())
			}
			out := "args=" + strings.Join(parts, ",") + " kwargs=" + strings.Join(kwParts, ",")
			if _, err := w.WriteString(out); err != nil {
				return ctx.OrigError(err, nil)
			}
			return nil
		},
	}
}

func TestParse_ArgsAndKwargs(t *testing.T) {
	MustRegister("tk_echo", echoTag(Options{MaxArgs: -1, AllowedKwargs: []string{"sep", "mode"}}))

	tpl := pongo2.Must(pongo2.FromString(`{% tk_echo "a" name|upper 3 sep="-" mode=width %}`))
	out, err := tpl.Execute(pongo2.Context{"name": "bob", "width": 80})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	want := "args=a,BOB,3 kwargs=mode:80,sep:-"
	if out != want {
		t.Errorf("unexpected output: got %q, want %q", out, want)
	}
}

func TestParse_ArityErrors(t *testing.T) {
	cases := []struct {
		opts Options
		args string
		want string
	}{
		{Options{}, `1`, "doesn't support any arguments"},
		{Options{AllowedKwargs: []string{"limit"}}, `1`, `only allows keyword arguments, for example limit="..."`},
		{Options{MinArgs: 1, MaxArgs: 1}, ``, "requires at least 1 argument."},
		{Options{MinArgs: 2, MaxArgs: -1}, `1`, "requires at least 2 arguments."},
		{Options{MaxArgs: 1}, `1 2`, "only allows 1 argument."},
		{Options{MaxArgs: 2}, `1 2 3`, "only allows 2 arguments."},
		{Options{AllowedKwargs: []string{"limit"}}, `size=3`, "The option size=... cannot be used"},
		{Options{AllowedKwargs: []string{"limit"}}, `limit=1 limit=2`, "received multiple values for the option 'limit'"},
		{Options{MaxArgs: -1, AllowedKwargs: []string{"limit"}}, `limit=1 2`, "no positional arguments after keyword arguments"},
	}

	for i, tc := range cases {
		name := fmt.Sprintf("tk_arity_%d", i)
		MustRegister(name, echoTag(tc.opts))
		_, err := pongo2.FromString(fmt.Sprintf(`{%% %s %s %%}`, name, tc.args))
		if err == nil {
			t.Errorf("case %d: expected a syntax error containing %q, got none", i, tc.want)
			continue
		}
		if !strings.Contains(err.Error(), tc.want) {
			t.Errorf("case %d: error %q does not contain %q", i, err, tc.want)
		}
	}
}

func TestParse_MinArgsDisabled(t *testing.T) {
	MustRegister("tk_nomin", echoTag(Options{MinArgs: -1, MaxArgs: -1}))
	if _, err := pongo2.FromString(`{% tk_nomin %}`); err != nil {
		t.Fatalf("expected no error with disabled minimum, got: %v", err)
	}
}

func TestParse_UnknownOptionListsAlternatives(t *testing.T) {
	MustRegister("tk_optlist", echoTag(Options{AllowedKwargs: []string{"limit", "offset"}}))
	_, err := pongo2.FromString(`{% tk_optlist size=3 %}`)
	if err == nil {
		t.Fatal("expected a syntax error for the unknown option")
	}
	if !strings.Contains(err.Error(), "Possible options are: limit, offset.") {
		t.Errorf("error %q does not list the possible options", err)
	}
}

func TestParse_RawArgs(t *testing.T) {
	MustRegister("tk_raw", echoTag(Options{MaxArgs: -1, RawArgs: true, RawKwargs: true, AllowedKwargs: []string{"mode"}}))

	// Raw mode keeps the literal token text and never touches the context.
	tpl := pongo2.Must(pongo2.FromString(`{% tk_raw foo "bar" 3 mode=verbose %}`))
	out, err := tpl.Execute(nil)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	want := "args=foo,bar,3 kwargs=mode:verbose"
	if out != want {
		t.Errorf("unexpected output: got %q, want %q", out, want)
	}
}

func TestParse_AsVar(t *testing.T) {
	MustRegister("tk_asvar", TagFunc{
		Options: Options{MaxArgs: 1, AllowAsVar: true},
		Render: func(ctx *pongo2.ExecutionContext, w pongo2.TemplateWriter, args *Arguments) *pongo2.Error {
			if _, err := w.WriteString("as=" + args.AsVar); err != nil {
				return ctx.OrigError(err, nil)
			}
			return nil
		},
	})

	tpl := pongo2.Must(pongo2.FromString(`{% tk_asvar 1 as result %}`))
	out, err := tpl.Execute(nil)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if out != "as=result" {
		t.Errorf("unexpected output: got %q", out)
	}

	if _, err = pongo2.FromString(`{% tk_asvar as %}`); err == nil || !strings.Contains(err.Error(), "expects a variable name after 'as'") {
		t.Errorf("expected missing-variable error, got: %v", err)
	}
	if _, err = pongo2.FromString(`{% tk_asvar as x 1 %}`); err == nil || !strings.Contains(err.Error(), "allows nothing after the 'as x' clause") {
		t.Errorf("expected trailing-token error, got: %v", err)
	}
}

func TestParse_TagNameFollowsOccurrence(t *testing.T) {
	// One Tag value registered under two names reports the name it was
	// invoked under.
	tag := TagFunc{
		Options: Options{},
		Render: func(ctx *pongo2.ExecutionContext, w pongo2.TemplateWriter, args *Arguments) *pongo2.Error {
			if _, err := w.WriteString(args.TagName); err != nil {
				return ctx.OrigError(err, nil)
			}
			return nil
		},
	}
	MustRegister("tk_alias_a", tag)
	MustRegister("tk_alias_b", tag)

	out, err := pongo2.Must(pongo2.FromString(`{% tk_alias_a %}/{% tk_alias_b %}`)).Execute(nil)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if out != "tk_alias_a/tk_alias_b" {
		t.Errorf("unexpected output: got %q", out)
	}
}

func TestArguments_KwargAccessors(t *testing.T) {
	args := &Arguments{
		Kwargs: map[string]*pongo2.Value{"limit": pongo2.AsValue(10)},
	}
	if !args.HasKwarg("limit") {
		t.Error("HasKwarg should report the given option")
	}
	if args.HasKwarg("offset") {
		t.Error("HasKwarg should not report a missing option")
	}
	if v, ok := args.Kwarg("limit"); !ok || v.Integer() != 10 {
		t.Errorf("Kwarg returned %v, %v", v, ok)
	}
	if got := args.KwargOr("offset", 5).Integer(); got != 5 {
		t.Errorf("KwargOr fallback returned %d, want 5", got)
	}
	if got := args.KwargOr("limit", 5).Integer(); got != 10 {
		t.Errorf("KwargOr returned %d, want the given value 10", got)
	}
}

// BenchmarkRenderTag measures the per-render overhead of resolving a typical
// mixed argument list.
func BenchmarkRenderTag(b *testing.B) {
	MustRegister("tk_bench", echoTag(Options{MaxArgs: -1, AllowedKwargs: []string{"limit"}}))
	tpl := pongo2.Must(pongo2.FromString(`{% tk_bench "a" name|upper limit=3 %}`))
	ctx := pongo2.Context{"name": "bob"}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = tpl.ExecuteWriter(ctx, io.Discard)
	}
}
