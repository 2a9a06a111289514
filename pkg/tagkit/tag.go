package tagkit

import (
	"github.com/flosch/pongo2/v6"
)

// Tag is implemented by custom template tags. TagOptions declares the
// argument shape once per tag; RenderTag runs per occurrence with all
// argument expressions already resolved against the render context.
type Tag interface {
	TagOptions() Options
	RenderTag(ctx *pongo2.ExecutionContext, w pongo2.TemplateWriter, args *Arguments) *pongo2.Error
}

// TagFunc adapts a plain render function into a Tag.
type TagFunc struct {
	Options Options
	Render  func(ctx *pongo2.ExecutionContext, w pongo2.TemplateWriter, args *Arguments) *pongo2.Error
}

// TagOptions returns the declared argument shape.
func (t TagFunc) TagOptions() Options { return t.Options }

// RenderTag calls the wrapped render function.
func (t TagFunc) RenderTag(ctx *pongo2.ExecutionContext, w pongo2.TemplateWriter, args *Arguments) *pongo2.Error {
	return t.Render(ctx, w, args)
}

// node is the pongo2 document node created per tag occurrence. Execute may
// run concurrently for templates shared between goroutines, so the node
// itself stays immutable after parsing.
type node struct {
	tag Tag
	inv *Invocation
}

func (n *node) Execute(ctx *pongo2.ExecutionContext, w pongo2.TemplateWriter) *pongo2.Error {
	args, err := n.inv.Resolve(ctx)
	if err != nil {
		return err
	}
	return n.tag.RenderTag(ctx, w, args)
}

// Parser builds the pongo2 parse function for a tag: parse the arguments,
// validate the argument count, and wrap the occurrence into a document node.
// The occurrence's TagName comes from the template token, so one Tag value
// can be registered under several names.
func Parser(tag Tag) pongo2.TagParser {
	return func(doc *pongo2.Parser, start *pongo2.Token, arguments *pongo2.Parser) (pongo2.INodeTag, *pongo2.Error) {
		inv, err := ParseInvocation(doc, start, arguments, tag.TagOptions())
		if err != nil {
			return nil, err
		}
		return &node{tag: tag, inv: inv}, nil
	}
}

// Register makes the tag available to all templates under the given name.
func Register(name string, tag Tag) error {
	return pongo2.RegisterTag(name, Parser(tag))
}

// MustRegister is Register panicking on error, for package init blocks.
func MustRegister(name string, tag Tag) {
	if err := Register(name, tag); err != nil {
		panic(err)
	}
}

// Replace swaps an already registered tag, including pongo2's built-ins.
func Replace(name string, tag Tag) error {
	return pongo2.ReplaceTag(name, Parser(tag))
}
