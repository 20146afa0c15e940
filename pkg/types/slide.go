// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

const (
	// MaxBullets is the most bullet points a content slide may carry.
	MaxBullets = 6

	// MaxBulletWords is the most words a single bullet point may carry.
	MaxBulletWords = 15
)

// SlideContent is the structured output the LLM produces for one slide.
type SlideContent struct {
	// Title is a concise slide heading.
	Title string `json:"title" yaml:"title"`

	// BulletPoints holds at most MaxBullets entries of at most MaxBulletWords words.
	BulletPoints []string `json:"bullet_points" yaml:"bullet_points"`

	// SpeakerNotes is the spoken script for the presenter (3-6 sentences).
	SpeakerNotes string `json:"speaker_notes" yaml:"speaker_notes"`

	// SourceDocNames lists the context documents the slide draws on.
	SourceDocNames []string `json:"source_doc_names" yaml:"source_doc_names"`
}

// SlideSpec is one outline entry of a lesson.
type SlideSpec struct {
	Title  string   `json:"title" yaml:"title"`
	Topics []string `json:"topics" yaml:"topics"`
}

// Lesson describes one lesson of a lesson plan.
type Lesson struct {
	Number     int         `json:"number" yaml:"number"`
	Title      string      `json:"title" yaml:"title"`
	Duration   string      `json:"duration" yaml:"duration"`
	Objectives []string    `json:"objectives" yaml:"objectives"`
	Outline    []SlideSpec `json:"outline" yaml:"outline"`
	Exercises  []string    `json:"exercises,omitempty" yaml:"exercises,omitempty"`
	Materials  []string    `json:"materials,omitempty" yaml:"materials,omitempty"`
}

// LessonPlan is a full course plan.
type LessonPlan struct {
	Lessons []Lesson `json:"lessons" yaml:"lessons"`
}
