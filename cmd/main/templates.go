package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mkarres/tagkit/pkg/tagstore"
)

// defaultTemplates is the starter site written into an empty template store
// on first run. Every page exercises the custom tags, so a fresh install
// renders something meaningful immediately.
var defaultTemplates = map[string]string{
	"index.html": `{% pagemeta as meta %}<!DOCTYPE html>
<html>
<head><title>{{ meta.site }}</title></head>
<body>
{% breadcrumbs "Home" %}
<p>Welcome to {{ meta.site }}, run by {{ meta.author }}.</p>
<p><a href="/index.html{% querystring page=2 %}">next page</a></p>
<form method="post" action="/feedback">
  <input type="hidden" name="csrfmiddlewaretoken" value="{{ csrf_token }}">
  <textarea name="message"></textarea>
  <button type="submit">Send</button>
</form>
<footer>&copy; {{ meta.year }} {{ meta.site }} (generated by {{ meta.generator }})</footer>
</body>
</html>
`,
	"breadcrumbs.html": `<nav class="breadcrumbs">{% for crumb in crumbs %}{% if not forloop.First %} &raquo; {% endif %}<span>{{ crumb }}</span>{% endfor %}</nav>
`,
	"about.html": `{% pagemeta as meta %}<!DOCTYPE html>
<html>
<head><title>About {{ meta.site }}</title></head>
<body>
{% breadcrumbs "Home" "About" %}
<p>{{ meta.site }} is served from {{ meta.base_url }}.</p>
</body>
</html>
`,
}

// seedTemplates populates an empty store with the default site. A store that
// already holds templates is left untouched.
func seedTemplates(ctx context.Context, store *tagstore.Store, logger *slog.Logger) error {
	existing, err := store.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to inspect template store: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}

	for name, source := range defaultTemplates {
		if err = store.Put(ctx, name, source); err != nil {
			return fmt.Errorf("failed to seed template %q: %w", name, err)
		}
	}
	logger.Info("Seeded default templates", "count", len(defaultTemplates))
	return nil
}
