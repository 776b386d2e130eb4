// Package prompts holds the named prompt templates the operation library
// renders before talking to the language model. Defaults are compiled in;
// a prompts.json file can override any of them.
package prompts

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

const (
	Summarize = "summarize"
	Highlight = "highlight"
	Breakdown = "breakdown"
	Simplify  = "simplify"
	Entities  = "entities"
	QA        = "qa"
	Compare   = "compare"
)

var defaults = map[string]string{
	Summarize: `Summarize the following legal document in clear, concise prose.
Cover the parties involved, the purpose of the agreement, the key obligations,
and any notable deadlines or conditions.

Document:
{content}

Summary:`,

	Highlight: `Identify the key legal clauses in this document. For each clause,
give its category (e.g. Termination, Liability, Confidentiality, Payment,
Dispute Resolution), quote or closely paraphrase the relevant text, and note
where it appears. Group the output by category.`,

	Breakdown: `Break down each clause of this legal document into plain parts:
what it obliges, who it binds, under what conditions it applies, and what
happens on breach. Explain one clause at a time with a short heading per clause.`,

	Simplify: `Rewrite the legal language in this document as plain everyday
English. Keep the meaning intact, avoid jargon, and keep the original order
of provisions.`,

	Entities: `Extract all named entities from this legal document. Categorize
them into: People, Organizations, Dates, Locations, Legal Terms. List each
category with its entities, one per line.`,

	QA: `You are a helpful AI with expertise in legal and general questions.
Always answer clearly, even if the question is not related to any document.

Uploaded Document:
{document}

Chat History:
{history}

User: {query}
AI:`,

	Compare: `Compare the two legal documents provided. Highlight:
- Key similarities and differences in clauses
- Any mismatched obligations or terms
- Differences in parties, durations, dispute resolution, liabilities, etc.
Use clear headings and bullet points.`,
}

// Store is an immutable set of named templates.
type Store struct {
	templates map[string]string
}

// Load returns the built-in templates, overridden by entries from the JSON
// file at path when path is non-empty.
func Load(path string) (*Store, error) {
	templates := make(map[string]string, len(defaults))
	for name, text := range defaults {
		templates[name] = text
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("prompt file not found at %s: %w", path, err)
		}
		var overrides map[string]string
		if err := json.Unmarshal(data, &overrides); err != nil {
			return nil, fmt.Errorf("failed to parse prompt file %s: %w", path, err)
		}
		for name, text := range overrides {
			templates[name] = text
		}
	}

	return &Store{templates: templates}, nil
}

// Validate fails when any of the named templates is missing. Called once
// at startup so a broken prompt set cannot surface mid-operation.
func (s *Store) Validate(names ...string) error {
	for _, name := range names {
		if _, ok := s.templates[name]; !ok {
			return fmt.Errorf("prompt template %q is not defined", name)
		}
	}
	return nil
}

// Render substitutes the given placeholder values into the named template.
// Recognized placeholders: {content}, {document}, {history}, {query}.
func (s *Store) Render(name string, vars map[string]string) (string, error) {
	text, ok := s.templates[name]
	if !ok {
		return "", fmt.Errorf("prompt template %q is not defined", name)
	}

	pairs := make([]string, 0, len(vars)*2)
	for key, value := range vars {
		pairs = append(pairs, "{"+key+"}", value)
	}
	return strings.TrimSpace(strings.NewReplacer(pairs...).Replace(text)), nil
}
