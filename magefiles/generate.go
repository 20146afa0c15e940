//go:build mage

package main

import "os"

// Generate builds the slide decks for lesson_plan.md. Set DOCDECK_PLAN to
// use another plan file.
func Generate() error {
	plan := os.Getenv("DOCDECK_PLAN")
	if plan == "" {
		plan = "lesson_plan.md"
	}
	return docdeck("generate", "--plan", plan, "--context", "output/context.md", "--output", "output/decks")
}

// Dedupe moves duplicate extracted images aside.
func Dedupe() error {
	return docdeck("images", "dedupe", "--dir", "output/images")
}
