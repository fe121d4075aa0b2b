package interfaces

import "io"

// TemplateRenderer abstracts layout rendering so the generator does not care
// whether templates come from html/template, a theme engine, or a test stub.
type TemplateRenderer interface {
	// RenderTemplate executes the named template with the supplied data and
	// returns the rendered output. When out writers are provided the output is
	// additionally streamed to each of them.
	RenderTemplate(name string, data any, out ...io.Writer) (string, error)
}
