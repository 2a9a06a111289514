package tagkit

import (
	"fmt"

	"github.com/flosch/pongo2/v6"
)

// DefaultContextValueName is the context key assignment tags expose their
// value under when rendering through a sub-template.
const DefaultContextValueName = "value"

// AssignmentTag either stores a computed value into a template variable or
// renders it through a sub-template, depending on how the occurrence is
// written:
//
//	{% pagemeta as meta %}      stores the value into "meta"
//	{% pagemeta %}              renders TemplateName with {value: ...}
//
// GetValue computes the value in both modes. The inclusion behavior,
// including the template="..." option, comes from the embedded InclusionTag.
type AssignmentTag struct {
	InclusionTag

	// ContextValueName is the context key for the inclusion mode.
	// Empty means DefaultContextValueName.
	ContextValueName string

	// GetValue computes the tag's value. Required.
	GetValue func(ctx *pongo2.ExecutionContext, args *Arguments) (interface{}, error)
}

// TagOptions enables the "as var" syntax on top of the inclusion options.
func (t *AssignmentTag) TagOptions() Options {
	opts := t.InclusionTag.TagOptions()
	opts.AllowAsVar = true
	return opts
}

// RenderTag assigns the value into the parent render context when the
// occurrence has an "as var" clause, and produces no output. Otherwise it
// renders the sub-template with the value as context data.
func (t *AssignmentTag) RenderTag(ctx *pongo2.ExecutionContext, w pongo2.TemplateWriter, args *Arguments) *pongo2.Error {
	if args.AsVar != "" {
		val, err := t.value(ctx, args)
		if err != nil {
			return err
		}
		ctx.Private[args.AsVar] = val
		return nil
	}

	// A custom GetContextData takes precedence over the value wrapping.
	if t.GetContextData != nil {
		return t.InclusionTag.RenderTag(ctx, w, args)
	}

	val, err := t.value(ctx, args)
	if err != nil {
		return err
	}
	return t.renderTemplate(ctx, w, args, pongo2.Context{t.valueName(): val})
}

func (t *AssignmentTag) value(ctx *pongo2.ExecutionContext, args *Arguments) (interface{}, *pongo2.Error) {
	if t.GetValue == nil {
		return nil, ctx.Error(fmt.Sprintf("'%s' tag has no GetValue hook.", args.TagName), nil)
	}
	val, err := t.GetValue(ctx, args)
	if err != nil {
		return nil, ctx.OrigError(err, nil)
	}
	return val, nil
}

func (t *AssignmentTag) valueName() string {
	if t.ContextValueName != "" {
		return t.ContextValueName
	}
	return DefaultContextValueName
}
