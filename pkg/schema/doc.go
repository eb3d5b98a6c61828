// Package schema defines the on-disk document format for state trees.
//
// A Document is the decoded form of a YAML or JSON tree file: a list of
// state specs with their URLs, parameters, resolvables and metadata.
// Validate checks a document's internal consistency before it is turned
// into state definitions, collecting every problem instead of stopping
// at the first:
//
//	doc, err := yamlfile.Parse(data)
//	if err := schema.Validate(doc); err != nil {
//	    for _, e := range schema.ValidationErrors(err) {
//	        fmt.Println(e)
//	    }
//	}
//
// The package is decoding-agnostic: adapters own the YAML/JSON parsing
// and hand the result here.
package schema
