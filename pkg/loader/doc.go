// Package loader resolves template names to files. AliasLoader implements the
// pongo2 TemplateLoader contract with Twig-style "@namespace/name" aliases,
// and FilepathPrefix addresses an entry template relative to a root directory
// so that includes keep resolving against that root.
package loader
