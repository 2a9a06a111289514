/*
Package tagkit is a convenience layer for writing custom pongo2 template tags.

It takes over the repetitive parts of a tag implementation: splitting the tag
arguments into positional and recognized keyword filter-expressions, checking
the argument count against declared bounds, and dispatching rendering. On top
of that it provides two higher-level tag shapes: inclusion tags, which render
a separate sub-template with computed context data, and assignment tags,
which either store a computed value into a template variable ("as var"
syntax) or fall back to the inclusion behavior.

A minimal tag:

	tagkit.MustRegister("greet", tagkit.TagFunc{
		Options: tagkit.Options{MinArgs: 1, MaxArgs: 1},
		Render: func(ctx *pongo2.ExecutionContext, w pongo2.TemplateWriter, args *tagkit.Arguments) *pongo2.Error {
			_, err := w.WriteString("Hello, " + args.Args[0].String())
			if err != nil {
				return ctx.OrigError(err, nil)
			}
			return nil
		},
	})

After registration the tag is available to every template of the process:

	{% greet user.name %}

For inclusion and assignment tags, see InclusionTag and AssignmentTag.
*/
package tagkit
