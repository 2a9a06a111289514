/*
Package tagstore keeps pongo2 template sources in a SQL database and exposes
them to template sets through a pongo2.TemplateLoader.

It exists so that inclusion tags (and whole sites) can resolve sub-templates
by name from a database instead of the filesystem, which allows template
updates without redeploying. SQLite and PostgreSQL are supported through the
same statements; the dialect only rebinds placeholders.

JSON export and import are provided for backups and for moving templates
between environments.
*/
package tagstore
