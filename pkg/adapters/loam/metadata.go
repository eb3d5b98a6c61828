package loam

import (
	"github.com/aretw0/switchback/pkg/schema"
)

// StateMetadata is the frontmatter of a state document. It uses
// "mapstructure" tags (via the shared schema specs) to match standard
// frontmatter keys, so a state file looks like:
//
//	---
//	name: app.users
//	url: /users
//	params:
//	  - name: page
//	    optional: true
//	resolve:
//	  - token: roster
//	    provider: load-roster
//	---
//	Markdown body becomes the state's doc text.
//
// Name is optional; when absent, the state name derives from the file
// path with directory separators mapped to dots.
type StateMetadata struct {
	Name   string `json:"name" mapstructure:"name"`
	Parent string `json:"parent" mapstructure:"parent"`
	URL    string `json:"url" mapstructure:"url"`

	Params  []schema.ParamSpec   `json:"params" mapstructure:"params"`
	Resolve []schema.ResolveSpec `json:"resolve" mapstructure:"resolve"`

	Data map[string]any `json:"data" mapstructure:"data"`
}
