//go:build mage

package main

// Convert turns every document in input/ into Markdown under output/.
func Convert() error {
	return docdeck("convert", "--input", "input", "--output", "output")
}

// Context converts input/ into the single aggregated output/context.md.
func Context() error {
	return docdeck("convert", "--input", "input", "--output", "output", "--mode", "single")
}
