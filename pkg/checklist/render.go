package checklist

import "strings"

// RenderOptions controls placeholder text for absent sections.
type RenderOptions struct {
	// EmitPlaceholders, when true, renders an explicit placeholder line
	// for any section that was absent from the source body instead of
	// omitting the heading entirely.
	EmitPlaceholders   bool
	ScopePlaceholder   string
	TasksPlaceholder   string
	AcceptancePlaceholder string
}

// DefaultRenderOptions reconstructs exactly what was parsed, with no
// placeholders — this is the form used for the round-trip law
// (Parse(Render(Parse(b))) == Parse(b)); placeholders would inject
// content for absent sections that a re-parse would then see as present,
// breaking idempotence. Use AppendixRenderOptions for the prompt
// appendix, where placeholders are explicitly wanted (§6).
func DefaultRenderOptions() RenderOptions {
	return RenderOptions{}
}

// AppendixRenderOptions renders explicit placeholder strings for any
// section absent from the source body, for display contexts (the prompt
// appendix) that are never re-parsed.
func AppendixRenderOptions() RenderOptions {
	return RenderOptions{
		EmitPlaceholders:      true,
		ScopePlaceholder:      "_No scope provided._",
		TasksPlaceholder:      "_No tasks listed._",
		AcceptancePlaceholder: "_No acceptance criteria listed._",
	}
}

// Render reconstructs a canonical markdown checklist document from
// Sections. It always emits a checkbox glyph for every Tasks/Acceptance
// item (normalizing items that arrived without one), which is what makes
// Parse(Render(Parse(b))) == Parse(b) hold: re-parsing the render always
// finds every item already in checkbox form.
func Render(s Sections, opts RenderOptions) string {
	var b strings.Builder

	writeSection := func(title string, present bool, body func() string, placeholder string) {
		if !present && !opts.EmitPlaceholders {
			return
		}
		b.WriteString("## ")
		b.WriteString(title)
		b.WriteString("\n")
		content := body()
		if content == "" && opts.EmitPlaceholders {
			content = placeholder
		}
		b.WriteString(content)
		b.WriteString("\n\n")
	}

	writeSection("Scope", s.ScopePresent || s.Scope != "", func() string {
		return s.Scope
	}, opts.ScopePlaceholder)

	writeSection("Tasks", s.TasksPresent || len(s.Tasks) > 0, func() string {
		return renderItems(s.Tasks)
	}, opts.TasksPlaceholder)

	writeSection("Acceptance Criteria", s.AcceptancePresent || len(s.Acceptance) > 0, func() string {
		return renderItems(s.Acceptance)
	}, opts.AcceptancePlaceholder)

	return strings.TrimRight(b.String(), "\n") + "\n"
}

func renderItems(items []Item) string {
	var lines []string
	for _, it := range items {
		glyph := " "
		if it.Checked {
			glyph = "x"
		}
		lines = append(lines, it.Indent+it.Marker+" [" + glyph + "] " + it.Text)
	}
	return strings.Join(lines, "\n")
}
