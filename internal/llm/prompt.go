// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"bytes"
	"text/template"
)

var slidePromptTmpl = template.Must(template.New("slide").Parse(`You are an expert instructor. Generate the content of one slide of a professional presentation.

TOPIC: {{.Topic}}
LESSON TITLE: {{.LessonTitle}}

CONTEXT (excerpts from the reference documents):
{{.Context}}

STRICT RULES:
- At most 6 bullet points per slide
- At most 15 words per bullet point
- Speaker notes are 3-6 sentences of spoken script (what the presenter SAYS)
- Use ONLY information found in the context. If nothing relevant is found, state general but consistent concepts.
- In the notes, cite the source document explicitly when relevant.
- List in source_doc_names the documents whose excerpts you used.

Respond with a JSON object matching the requested schema.
`))

var planPromptTmpl = template.Must(template.New("plan").Parse(`Analyze the following lesson plan written in Markdown and extract the structure of its lessons (number, title, duration, objectives, topic outline, exercises, materials). The plan usually holds about five main lessons. Each outline entry is one slide: give it a title and the sub-topics it covers.

Respond with a JSON object matching the requested schema.

LESSON PLAN:
{{.Content}}
`))

// SlidePrompt holds the values of the slide generation prompt.
type SlidePrompt struct {
	Topic       string
	LessonTitle string
	Context     string
}

// RenderSlidePrompt executes the slide prompt template.
func RenderSlidePrompt(p SlidePrompt) (string, error) {
	var buf bytes.Buffer
	if err := slidePromptTmpl.Execute(&buf, p); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderPlanPrompt executes the lesson plan prompt template.
func RenderPlanPrompt(content string) (string, error) {
	var buf bytes.Buffer
	if err := planPromptTmpl.Execute(&buf, struct{ Content string }{Content: content}); err != nil {
		return "", err
	}
	return buf.String(), nil
}
