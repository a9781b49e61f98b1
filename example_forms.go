package formflow

import (
	"embed"
	"io/fs"
)

//go:embed examples/forms/*.yaml
var embeddedExampleForms embed.FS

// ExampleFormsFS exposes the sample definitions committed under
// examples/forms so callers can try the engine without writing one.
//
//	forms, err := formdef.LoadDir(formflow.ExampleFormsFS())
func ExampleFormsFS() fs.FS {
	sub, err := fs.Sub(embeddedExampleForms, "examples/forms")
	if err != nil {
		return embeddedExampleForms
	}
	return sub
}
