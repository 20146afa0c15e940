//go:build mage

package main

// Index chunks output/context.md into the search index.
func Index() error {
	return docdeck("index", "build", "--context", "output/context.md")
}
