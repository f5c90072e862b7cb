package prompt

import (
	"strings"
	"testing"

	"github.com/ruuig/tienda-online-sub002/internal/entity"
	"github.com/ruuig/tienda-online-sub002/pkg/llm"
	"github.com/ruuig/tienda-online-sub002/pkg/vectorindex"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func result(title, text string, index int) vectorindex.Result {
	return vectorindex.Result{Chunk: &entity.DocumentChunk{Text: text, Index: index, Meta: entity.DocumentMeta{Title: title}}}
}

func TestBuildGroundsOnRetrievedChunks(t *testing.T) {
	b := NewGroundingBuilder(1000)
	msgs := b.Build("  ¿Cuánto tarda el envío? ", []vectorindex.Result{
		result("Envíos", "El envío tarda tres días hábiles.", 0),
		result("Garantía", "La garantía dura un año.", 2),
	})

	require.Len(t, msgs, 2)
	assert.Equal(t, llm.RoleSystem, msgs[0].Role)
	assert.Contains(t, msgs[0].Content, `<context source="Envíos" chunk="0">`)
	assert.Contains(t, msgs[0].Content, "El envío tarda tres días hábiles.")
	assert.Contains(t, msgs[0].Content, `<context source="Garantía" chunk="2">`)
	assert.Equal(t, llm.Message{Role: llm.RoleUser, Content: "¿Cuánto tarda el envío?"}, msgs[1])
}

func TestBuildRespectsContextBudget(t *testing.T) {
	b := NewGroundingBuilder(50)
	long := strings.Repeat("á", 40)
	msgs := b.Build("pregunta", []vectorindex.Result{
		result("A", long, 0),
		result("B", long, 1),
		result("C", long, 2),
	})

	system := msgs[0].Content
	assert.Contains(t, system, long)
	assert.Contains(t, system, `<context source="B" chunk="1">`+"\n"+strings.Repeat("á", 10)+"\n")
	assert.NotContains(t, system, `source="C"`)
}

func TestBuildWithoutResults(t *testing.T) {
	msgs := NewGroundingBuilder(0).Build("hola", nil)
	assert.Contains(t, msgs[0].Content, "No hay documentos relevantes")
}
