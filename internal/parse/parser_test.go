package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTitle(t *testing.T) {
	html := `<html><head><title>  PORTARIA MJSP Nº 123  </title></head><body>corpo</body></html>`
	assert.Equal(t, "PORTARIA MJSP Nº 123", Title(html))
}

func TestTitle_Missing(t *testing.T) {
	assert.Equal(t, "", Title(`<html><body><h1>Sem título</h1></body></html>`))
}

func TestTitle_CollapsesWhitespace(t *testing.T) {
	html := "<html><head><title>PORTARIA\n\t  Nº 1</title></head></html>"
	assert.Equal(t, "PORTARIA Nº 1", Title(html))
}

func TestText_RemovesNonContentElements(t *testing.T) {
	html := `<html><head>
		<meta charset="utf-8">
		<style>body { color: red; }</style>
		<script>var x = 1;</script>
	</head><body>
		<p>A Fundação publicou nova portaria.</p>
		<noscript>ative o javascript</noscript>
		<p>Segundo parágrafo.</p>
	</body></html>`

	text := Text(html)
	assert.Equal(t, "A Fundação publicou nova portaria. Segundo parágrafo.", text)
	assert.NotContains(t, text, "var x")
	assert.NotContains(t, text, "color: red")
	assert.NotContains(t, text, "javascript")
}

func TestText_CollapsesWhitespaceRuns(t *testing.T) {
	html := "<html><body><p>um\n\n   dois</p>\n<p>três</p></body></html>"
	assert.Equal(t, "um dois três", Text(html))
}

func TestText_PreservesAccentsAndCase(t *testing.T) {
	text := Text(`<html><body><p>É necessário FORÇA nacional.</p></body></html>`)
	assert.Equal(t, "É necessário FORÇA nacional.", text)
}

func TestText_EmptyDocument(t *testing.T) {
	assert.Equal(t, "", Text(""))
}
