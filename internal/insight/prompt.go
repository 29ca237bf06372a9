// Package insight answers natural-language questions from aggregate sales
// statistics through an LLM runtime. Only a retrieval.Payload ever reaches
// the model; raw rows never do.
package insight

import (
	"errors"
	"fmt"
	"strings"

	"github.com/KaramelBytes/ags-analyzer/internal/retrieval"
)

// ErrEmptyQuestion is returned when the question is blank.
var ErrEmptyQuestion = errors.New("question cannot be empty")

const systemPrompt = "You are an expert Business Intelligence Analyst."

const rule = "--------------------------------"

// Prompt renders the user message: the question, the statistics as JSON and
// the answering rules.
func Prompt(p retrieval.Payload, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", ErrEmptyQuestion
	}
	stats, err := p.JSON()
	if err != nil {
		return "", fmt.Errorf("encode statistics: %w", err)
	}

	var b strings.Builder
	b.WriteString("Your task is to answer the user's question using ONLY the structured statistics provided.\n")
	b.WriteString("You must NOT invent data, assumptions, or numbers.\n\n")
	b.WriteString("If the statistics do not contain enough information to answer the question,\n")
	b.WriteString("clearly say so and explain what additional data would be needed.\n\n")
	b.WriteString(rule + "\nUser Question:\n")
	b.WriteString(question)
	b.WriteString("\n\n" + rule + "\nStructured Statistics:\n")
	b.Write(stats)
	b.WriteString("\n\n" + rule + "\nInstructions:\n")
	b.WriteString("- Base your reasoning strictly on the statistics.\n")
	b.WriteString("- Be concise, clear, and professional.\n")
	b.WriteString("- Highlight trends or comparisons when relevant.\n")
	b.WriteString("- If applicable, include a short actionable recommendation.\n\n")
	b.WriteString("Response:\n")
	return b.String(), nil
}
