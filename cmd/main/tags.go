package main

import (
	"time"

	"github.com/flosch/pongo2/v6"

	"github.com/mkarres/tagkit/pkg/tagkit"
)

// registerSiteTags installs the site's custom template tags. pongo2 tag
// registration is global, so this must run exactly once per process.
func registerSiteTags(site *SiteConfig, set *pongo2.TemplateSet) error {
	// breadcrumbs renders its positional arguments as a trail through
	// breadcrumbs.html: {% breadcrumbs "Library" book.title %}
	if err := tagkit.Register("breadcrumbs", &tagkit.InclusionTag{
		Set:          set,
		TemplateName: "breadcrumbs.html",
		Options:      tagkit.Options{MinArgs: 1, MaxArgs: -1},
		GetContextData: func(ctx *pongo2.ExecutionContext, args *tagkit.Arguments) (pongo2.Context, error) {
			crumbs := make([]string, 0, len(args.Args))
			for _, arg := range args.Args {
				crumbs = append(crumbs, arg.String())
			}
			return pongo2.Context{"crumbs": crumbs}, nil
		},
	}); err != nil {
		return err
	}

	// pagemeta exposes site metadata: {% pagemeta as meta %}{{ meta.site }}
	if err := tagkit.Register("pagemeta", &tagkit.AssignmentTag{
		GetValue: func(ctx *pongo2.ExecutionContext, args *tagkit.Arguments) (interface{}, error) {
			return map[string]interface{}{
				"site":      site.Name,
				"base_url":  site.BaseURL,
				"author":    site.Author,
				"generator": "tagkit/" + Version,
				"year":      time.Now().Year(),
			}, nil
		},
	}); err != nil {
		return err
	}

	// querystring rewrites the current query string with overrides:
	// {% querystring page=2 %} keeps the other parameters but replaces
	// page. An empty value drops the parameter entirely.
	return tagkit.Register("querystring", tagkit.TagFunc{
		Options: tagkit.Options{AllowedKwargs: []string{"page", "q", "sort"}},
		Render: func(ctx *pongo2.ExecutionContext, w pongo2.TemplateWriter, args *tagkit.Arguments) *pongo2.Error {
			r, perr := tagkit.RequestFromContext(ctx, args.TagName)
			if perr != nil {
				return perr
			}
			query := r.URL.Query()
			for name, value := range args.Kwargs {
				if s := value.String(); s == "" {
					query.Del(name)
				} else {
					query.Set(name, s)
				}
			}
			out := query.Encode()
			if out != "" {
				out = "?" + out
			}
			if _, err := w.WriteString(out); err != nil {
				return ctx.OrigError(err, nil)
			}
			return nil
		},
	})
}
