package tagkit

import (
	"fmt"
	"strings"

	"github.com/flosch/pongo2/v6"
)

// Options declares the argument shape of a tag. The zero value accepts no
// positional arguments, no keyword arguments, and compiles everything into
// filter expressions.
type Options struct {
	// MinArgs is the minimum number of positional arguments. -1 disables the check.
	MinArgs int

	// MaxArgs is the maximum number of positional arguments. -1 means unlimited.
	MaxArgs int

	// AllowedKwargs lists the keyword argument names the tag recognizes.
	// Any other keyword argument is a syntax error.
	AllowedKwargs []string

	// RawArgs stores positional arguments as literal token text instead of
	// compiling them into filter expressions.
	RawArgs bool

	// RawKwargs does the same for keyword argument values.
	RawKwargs bool

	// AllowAsVar enables the trailing "as var" syntax. The parsed variable
	// name is delivered through Arguments.AsVar and does not count as a
	// positional argument.
	AllowAsVar bool
}

// argExpr is a single parsed argument: either a compiled filter expression
// or, for raw mode, the literal token text.
type argExpr struct {
	expr pongo2.IEvaluator
	raw  string
}

func (a argExpr) resolve(ctx *pongo2.ExecutionContext) (*pongo2.Value, *pongo2.Error) {
	if a.expr == nil {
		return pongo2.AsValue(a.raw), nil
	}
	return a.expr.Evaluate(ctx)
}

// Invocation is one parsed occurrence of a tag in a template: the name it was
// invoked under, its argument expressions, and the optional "as" variable.
type Invocation struct {
	// TagName is the name this occurrence was invoked under. It may differ
	// from the name the Tag value was registered with.
	TagName string

	// AsVar is the assignment variable name, or "" when the occurrence has
	// no "as var" clause.
	AsVar string

	args     []argExpr
	kwargs   map[string]argExpr
	position *pongo2.Token
}

// Arguments carries the render-time resolved argument values of a tag
// occurrence.
type Arguments struct {
	TagName string
	AsVar   string
	Args    []*pongo2.Value
	Kwargs  map[string]*pongo2.Value
}

// Kwarg returns the value of a keyword argument and whether it was given.
func (a *Arguments) Kwarg(name string) (*pongo2.Value, bool) {
	v, ok := a.Kwargs[name]
	return v, ok
}

// KwargOr returns the value of a keyword argument, or fallback wrapped as a
// pongo2 value when the argument was not given.
func (a *Arguments) KwargOr(name string, fallback interface{}) *pongo2.Value {
	if v, ok := a.Kwargs[name]; ok {
		return v
	}
	return pongo2.AsValue(fallback)
}

// HasKwarg reports whether a keyword argument was given.
func (a *Arguments) HasKwarg(name string) bool {
	_, ok := a.Kwargs[name]
	return ok
}

// ParseInvocation splits a tag occurrence into positional and recognized
// keyword arguments, parses the optional trailing "as var" clause, and
// validates the positional argument count against opts. It is the building
// block behind Parser; tags with hand-written pongo2 parse functions can call
// it directly.
func ParseInvocation(doc *pongo2.Parser, start *pongo2.Token, arguments *pongo2.Parser, opts Options) (*Invocation, *pongo2.Error) {
	inv := &Invocation{
		TagName:  start.Val,
		kwargs:   make(map[string]argExpr),
		position: start,
	}

	sawKwarg := false
	for arguments.Remaining() > 0 {
		if name := peekKwargName(arguments); name != "" {
			arguments.Consume() // identifier
			arguments.Consume() // "="
			if _, dup := inv.kwargs[name]; dup {
				return nil, arguments.Error(fmt.Sprintf("'%s' tag received multiple values for the option '%s'.", inv.TagName, name), start)
			}
			if !kwargAllowed(name, opts.AllowedKwargs) {
				return nil, arguments.Error(unknownKwargMessage(inv.TagName, name, opts.AllowedKwargs), start)
			}
			val, err := parseArgValue(arguments, opts.RawKwargs)
			if err != nil {
				return nil, err
			}
			inv.kwargs[name] = val
			sawKwarg = true
			continue
		}

		if opts.AllowAsVar && peekAs(arguments) {
			matchAs(arguments)
			ident := arguments.MatchType(pongo2.TokenIdentifier)
			if ident == nil {
				return nil, arguments.Error(fmt.Sprintf("'%s' tag expects a variable name after 'as'.", inv.TagName), start)
			}
			inv.AsVar = ident.Val
			if arguments.Remaining() > 0 {
				return nil, arguments.Error(fmt.Sprintf("'%s' tag allows nothing after the 'as %s' clause.", inv.TagName, inv.AsVar), start)
			}
			break
		}

		if sawKwarg {
			return nil, arguments.Error(fmt.Sprintf("'%s' tag allows no positional arguments after keyword arguments.", inv.TagName), start)
		}
		val, err := parseArgValue(arguments, opts.RawArgs)
		if err != nil {
			return nil, err
		}
		inv.args = append(inv.args, val)
	}

	if err := validateArity(arguments, start, inv.TagName, len(inv.args), opts); err != nil {
		return nil, err
	}
	return inv, nil
}

// Resolve evaluates every stored argument expression against the render
// context. Raw arguments become string values.
func (inv *Invocation) Resolve(ctx *pongo2.ExecutionContext) (*Arguments, *pongo2.Error) {
	args := &Arguments{
		TagName: inv.TagName,
		AsVar:   inv.AsVar,
		Kwargs:  make(map[string]*pongo2.Value, len(inv.kwargs)),
	}
	for _, a := range inv.args {
		v, err := a.resolve(ctx)
		if err != nil {
			return nil, err
		}
		args.Args = append(args.Args, v)
	}
	for name, a := range inv.kwargs {
		v, err := a.resolve(ctx)
		if err != nil {
			return nil, err
		}
		args.Kwargs[name] = v
	}
	return args, nil
}

func parseArgValue(p *pongo2.Parser, raw bool) (argExpr, *pongo2.Error) {
	if raw {
		t := p.Current()
		if t == nil {
			return argExpr{}, p.Error("Unexpected end of tag arguments.", nil)
		}
		p.Consume()
		return argExpr{raw: t.Val}, nil
	}
	expr, err := p.ParseExpression()
	if err != nil {
		return argExpr{}, err
	}
	return argExpr{expr: expr}, nil
}

// peekKwargName returns the name of the keyword argument the parser is
// positioned on, or "" when the next tokens are not `identifier =`.
func peekKwargName(p *pongo2.Parser) string {
	ident := p.PeekType(pongo2.TokenIdentifier)
	if ident == nil {
		return ""
	}
	if p.PeekN(1, pongo2.TokenSymbol, "=") == nil {
		return ""
	}
	return ident.Val
}

// The pongo2 lexer classifies "as" as a keyword, but older grammars treated
// it as an identifier, so both spellings are accepted.
func peekAs(p *pongo2.Parser) bool {
	return p.Peek(pongo2.TokenKeyword, "as") != nil || p.Peek(pongo2.TokenIdentifier, "as") != nil
}

func matchAs(p *pongo2.Parser) {
	if p.Match(pongo2.TokenKeyword, "as") == nil {
		p.Match(pongo2.TokenIdentifier, "as")
	}
}

func kwargAllowed(name string, allowed []string) bool {
	for _, a := range allowed {
		if a == name {
			return true
		}
	}
	return false
}

func unknownKwargMessage(tagName, option string, allowed []string) string {
	msg := fmt.Sprintf("The option %s=... cannot be used in '%s' tag.", option, tagName)
	if len(allowed) > 0 {
		msg += " Possible options are: " + strings.Join(allowed, ", ") + "."
	}
	return msg
}

func validateArity(p *pongo2.Parser, pos *pongo2.Token, tagName string, count int, opts Options) *pongo2.Error {
	if opts.MinArgs >= 0 && count < opts.MinArgs {
		if opts.MinArgs == 1 {
			return p.Error(fmt.Sprintf("'%s' tag requires at least 1 argument.", tagName), pos)
		}
		return p.Error(fmt.Sprintf("'%s' tag requires at least %d arguments.", tagName, opts.MinArgs), pos)
	}
	if opts.MaxArgs >= 0 && count > opts.MaxArgs {
		switch {
		case opts.MaxArgs == 0 && len(opts.AllowedKwargs) > 0:
			return p.Error(fmt.Sprintf("'%s' tag only allows keyword arguments, for example %s=\"...\".", tagName, opts.AllowedKwargs[0]), pos)
		case opts.MaxArgs == 0:
			return p.Error(fmt.Sprintf("'%s' tag doesn't support any arguments.", tagName), pos)
		case opts.MaxArgs == 1:
			return p.Error(fmt.Sprintf("'%s' tag only allows 1 argument.", tagName), pos)
		default:
			return p.Error(fmt.Sprintf("'%s' tag only allows %d arguments.", tagName, opts.MaxArgs), pos)
		}
	}
	return nil
}
