package rag

import (
	"fmt"
	"strings"
)

const systemPrompt = `You are a personal notes assistant. Answer the user's question using ONLY the notes provided below. Each note is labeled with its title and ID.

Rules:
- Base every statement on the notes. Do not use outside knowledge.
- When the notes do not contain enough information to answer, say so plainly instead of guessing.
- Mention which note a fact came from when it helps the user find it again.
- Keep the answer concise.`

// composePrompt renders the retrieved notes into a labeled context
// block and returns the system prompt, the user prompt, and how many
// notes made it in.
//
// The block must fit the character budget. Notes are dropped whole,
// lowest score first, never cut mid-note: a truncated note reads as a
// complete thought and silently misleads the model. The best match is
// always kept, even when it alone blows the budget.
func composePrompt(query string, notes []scoredNote, budget int) (system, prompt string, used int) {
	blocks := make([]string, len(notes))
	for i, sn := range notes {
		title := sn.note.Title
		if title == "" {
			title = "Untitled"
		}
		blocks[i] = fmt.Sprintf("[Note %d: %q (id %s)]\n%s",
			i+1, title, sn.note.ID, sn.note.Body)
	}

	keep := len(blocks)
	total := 0
	for _, b := range blocks {
		total += len(b) + 2 // separator
	}
	for keep > 1 && total > budget {
		keep--
		total -= len(blocks[keep]) + 2
	}

	var sb strings.Builder
	sb.WriteString("Notes:\n\n")
	for _, b := range blocks[:keep] {
		sb.WriteString(b)
		sb.WriteString("\n\n")
	}
	sb.WriteString("Question: ")
	sb.WriteString(query)

	return systemPrompt, sb.String(), keep
}
