package prompt

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ruuig/tienda-online-sub002/pkg/llm"
	"github.com/ruuig/tienda-online-sub002/pkg/vectorindex"
)

const DefaultMaxContextChars = 6000

// GroundingBuilder builds the knowledge-base prompt: grounding rules and the
// retrieved chunks in the system message, the question as the user turn.
type GroundingBuilder struct {
	maxContextChars int
}

func NewGroundingBuilder(maxContextChars int) *GroundingBuilder {
	if maxContextChars <= 0 {
		maxContextChars = DefaultMaxContextChars
	}
	return &GroundingBuilder{maxContextChars: maxContextChars}
}

// Build returns the messages for one grounded answer. Chunks are added in
// ranking order until the context budget is spent; a chunk that does not fit
// whole is cut at the budget.
func (b *GroundingBuilder) Build(question string, results []vectorindex.Result) []llm.Message {
	var system strings.Builder

	b.writeTask(&system)
	b.writeGuidelines(&system)
	b.writeContext(&system, results)

	return []llm.Message{
		{Role: llm.RoleSystem, Content: system.String()},
		{Role: llm.RoleUser, Content: strings.TrimSpace(question)},
	}
}

func (b *GroundingBuilder) writeTask(prompt *strings.Builder) {
	prompt.WriteString("<task>\n")
	prompt.WriteString("Eres el asistente de una tienda en línea. Respondes preguntas de clientes usando únicamente los documentos de la tienda incluidos abajo.\n")
	prompt.WriteString("</task>\n\n")
}

func (b *GroundingBuilder) writeGuidelines(prompt *strings.Builder) {
	prompt.WriteString("<guidelines>\n")
	prompt.WriteString("1. Basa tu respuesta estrictamente en el contexto proporcionado\n")
	prompt.WriteString("2. Si el contexto no contiene la respuesta, dilo con honestidad y sugiere contactar a soporte\n")
	prompt.WriteString("3. No inventes políticas, precios ni plazos\n")
	prompt.WriteString("4. Responde en español, de forma breve y clara\n")
	prompt.WriteString("</guidelines>\n\n")
}

func (b *GroundingBuilder) writeContext(prompt *strings.Builder, results []vectorindex.Result) {
	if len(results) == 0 {
		prompt.WriteString("<context>\nNo hay documentos relevantes para esta pregunta.\n</context>\n")
		return
	}

	budget := b.maxContextChars
	for _, r := range results {
		if budget <= 0 {
			break
		}
		text := r.Chunk.Text
		if n := utf8.RuneCountInString(text); n > budget {
			text = string([]rune(text)[:budget])
		}
		budget -= utf8.RuneCountInString(text)

		fmt.Fprintf(prompt, "<context source=%q chunk=\"%d\">\n%s\n</context>\n", r.Chunk.Meta.Title, r.Chunk.Index, text)
	}
}
