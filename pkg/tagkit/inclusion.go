package tagkit

import (
	"fmt"

	"github.com/flosch/pongo2/v6"
)

const (
	// TemplateKwarg is the keyword argument every inclusion tag recognizes
	// for overriding the sub-template per occurrence.
	TemplateKwarg = "template"

	// CSRFTokenKey is the context variable propagated from the parent render
	// context into the sub-template context.
	CSRFTokenKey = "csrf_token"
)

// InclusionTag renders a sub-template with computed context data. The
// sub-template name is taken from the template="..." option, then the
// GetTemplateName hook, then the static TemplateName field.
//
//	panel := &tagkit.InclusionTag{
//		Set:          set,
//		TemplateName: "panel.html",
//		Options:      tagkit.Options{MaxArgs: 1},
//		GetContextData: func(ctx *pongo2.ExecutionContext, args *tagkit.Arguments) (pongo2.Context, error) {
//			return pongo2.Context{"title": args.Args[0].String()}, nil
//		},
//	}
//	tagkit.MustRegister("panel", panel)
type InclusionTag struct {
	// Set loads sub-templates by name. nil means pongo2.DefaultSet.
	Set *pongo2.TemplateSet

	// TemplateName is the static sub-template name.
	TemplateName string

	// Options declares the argument shape. The template option is always
	// recognized on top of Options.AllowedKwargs.
	Options Options

	// GetTemplateName computes the sub-template name per occurrence.
	GetTemplateName func(args *Arguments) string

	// GetContextData computes the data rendered into the sub-template.
	// Required.
	GetContextData func(ctx *pongo2.ExecutionContext, args *Arguments) (pongo2.Context, error)

	// GetContext overrides the default wrapping of the computed data into
	// the sub-template context. The default copies the data and propagates
	// csrf_token from the parent render context.
	GetContext func(ctx *pongo2.ExecutionContext, data pongo2.Context) pongo2.Context
}

// TagOptions returns the declared argument shape plus the template option.
func (t *InclusionTag) TagOptions() Options {
	opts := t.Options
	opts.AllowedKwargs = appendMissing(opts.AllowedKwargs, TemplateKwarg)
	return opts
}

// RenderTag loads the sub-template and renders it with the merged context.
func (t *InclusionTag) RenderTag(ctx *pongo2.ExecutionContext, w pongo2.TemplateWriter, args *Arguments) *pongo2.Error {
	data, err := t.contextData(ctx, args)
	if err != nil {
		return err
	}
	return t.renderTemplate(ctx, w, args, data)
}

func (t *InclusionTag) renderTemplate(ctx *pongo2.ExecutionContext, w pongo2.TemplateWriter, args *Arguments, data pongo2.Context) *pongo2.Error {
	name := t.templateName(args)
	if name == "" {
		return ctx.Error(fmt.Sprintf("'%s' tag has no template: set TemplateName, GetTemplateName or the %s=\"...\" option.", args.TagName, TemplateKwarg), nil)
	}

	set := t.Set
	if set == nil {
		set = pongo2.DefaultSet
	}
	tpl, err := set.FromCache(name)
	if err != nil {
		return ctx.OrigError(fmt.Errorf("loading template %q for '%s' tag: %w", name, args.TagName, err), nil)
	}

	if err := tpl.ExecuteWriter(t.includeContext(ctx, data), w); err != nil {
		return ctx.OrigError(err, nil)
	}
	return nil
}

func (t *InclusionTag) templateName(args *Arguments) string {
	if v, ok := args.Kwarg(TemplateKwarg); ok && v.String() != "" {
		return v.String()
	}
	if t.GetTemplateName != nil {
		if name := t.GetTemplateName(args); name != "" {
			return name
		}
	}
	return t.TemplateName
}

func (t *InclusionTag) contextData(ctx *pongo2.ExecutionContext, args *Arguments) (pongo2.Context, *pongo2.Error) {
	if t.GetContextData == nil {
		return nil, ctx.Error(fmt.Sprintf("'%s' tag has no GetContextData hook.", args.TagName), nil)
	}
	data, err := t.GetContextData(ctx, args)
	if err != nil {
		return nil, ctx.OrigError(err, nil)
	}
	return data, nil
}

// includeContext builds the sub-template context. The sub-template starts
// from the computed data only, not the whole parent context; csrf_token is
// carried over so nested forms keep working.
func (t *InclusionTag) includeContext(ctx *pongo2.ExecutionContext, data pongo2.Context) pongo2.Context {
	if t.GetContext != nil {
		return t.GetContext(ctx, data)
	}
	merged := make(pongo2.Context, len(data)+1)
	merged.Update(data)
	if _, ok := merged[CSRFTokenKey]; !ok {
		if tok := contextValue(ctx, CSRFTokenKey); tok != nil {
			merged[CSRFTokenKey] = tok
		}
	}
	return merged
}

// contextValue looks a variable up in the render context, private scope
// first, the way variable resolution does.
func contextValue(ctx *pongo2.ExecutionContext, key string) interface{} {
	if v, ok := ctx.Private[key]; ok {
		return v
	}
	if v, ok := ctx.Public[key]; ok {
		return v
	}
	return nil
}

func appendMissing(list []string, name string) []string {
	for _, n := range list {
		if n == name {
			return list
		}
	}
	out := make([]string, 0, len(list)+1)
	out = append(out, list...)
	return append(out, name)
}
