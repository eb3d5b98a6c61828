/*
Package dsl provides a fluent Go builder for constructing state trees
programmatically.

It lets applications define their navigation hierarchy with type-safe,
chainable calls instead of external YAML files. This is particularly
useful for dynamic tree generation, unit testing, and leveraging IDE
autocompletion.

Example usage:

	package main

	import (
		"github.com/aretw0/switchback"
		"github.com/aretw0/switchback/pkg/dsl"
	)

	func main() {
		b := dsl.New()

		app := b.State("app").URL("/")

		app.Child("users").
			URL("/users").
			OptionalParam("page", 1)

		app.Child("users.detail").
			URL("/:id").
			Param("id").
			Value("title", "User Detail")

		router, err := switchback.New(switchback.WithStates(b.States()...))
		// ...
		_ = router
		_ = err
	}
*/
package dsl
