package tagstore

import (
	"context"
	"io"
	"strings"
	"time"
)

// defaultLookupTimeout bounds a single template lookup; pongo2's loader
// interface carries no context, so the Loader imposes its own deadline.
const defaultLookupTimeout = 5 * time.Second

// Loader adapts a Store to pongo2's TemplateLoader interface, so template
// sets can resolve {% include %}, {% extends %} and inclusion-tag templates
// straight from the database.
type Loader struct {
	store   *Store
	timeout time.Duration
}

// NewLoader wraps a Store for use with pongo2.NewSet or
// TemplateSet.AddLoader. A timeout of zero means defaultLookupTimeout.
func NewLoader(store *Store, timeout time.Duration) *Loader {
	if timeout <= 0 {
		timeout = defaultLookupTimeout
	}
	return &Loader{store: store, timeout: timeout}
}

// Abs returns the name unchanged. Stored templates live in a flat namespace,
// so there is no base path to resolve against.
func (l *Loader) Abs(base, name string) string {
	return name
}

// Get fetches the template source for a name. Unknown names return an error
// wrapping ErrNotFound, which lets pongo2 fall through to the next loader in
// the set.
func (l *Loader) Get(path string) (io.Reader, error) {
	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()

	tpl, err := l.store.Get(ctx, path)
	if err != nil {
		return nil, err
	}
	return strings.NewReader(tpl.Source), nil
}
