// Package format convierte el texto de un mensaje en el markup que pinta la vista.
package format

import (
	"regexp"
	"strings"
)

var fencePattern = regexp.MustCompile("```(\\w+)?\\n([\\s\\S]*?)```")

var codeEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// Message traduce bloques ``` a <pre><code> escapados y los saltos de línea restantes a <br>.
// El texto fuera de los bloques de código no se escapa.
func Message(content string) string {
	var b strings.Builder
	last := 0
	for _, m := range fencePattern.FindAllStringSubmatchIndex(content, -1) {
		b.WriteString(lineBreaks(content[last:m[0]]))

		language := ""
		if m[2] >= 0 {
			language = content[m[2]:m[3]]
		}
		code := strings.TrimSpace(content[m[4]:m[5]])
		b.WriteString(`<pre><code class="`)
		b.WriteString(language)
		b.WriteString(`">`)
		b.WriteString(EscapeHTML(code))
		b.WriteString(`</code></pre>`)

		last = m[1]
	}
	b.WriteString(lineBreaks(content[last:]))
	return b.String()
}

// EscapeHTML escapa igual que la serialización de un nodo de texto del DOM.
func EscapeHTML(text string) string {
	return codeEscaper.Replace(text)
}

// PlainText quita etiquetas para derivar títulos cortos.
func PlainText(markup string) string {
	markup = strings.ReplaceAll(markup, "<br>", " ")
	return tagPattern.ReplaceAllString(markup, "")
}

var tagPattern = regexp.MustCompile(`<[^>]*>`)

var codeUnescaper = strings.NewReplacer("&lt;", "<", "&gt;", ">", "&amp;", "&")

// Terminal deshace el markup para mostrarlo en una terminal.
func Terminal(markup string) string {
	markup = strings.ReplaceAll(markup, "<br>", "\n")
	markup = strings.ReplaceAll(markup, "<pre>", "\n")
	markup = strings.ReplaceAll(markup, "</pre>", "\n")
	return codeUnescaper.Replace(tagPattern.ReplaceAllString(markup, ""))
}

func lineBreaks(s string) string {
	return strings.ReplaceAll(s, "\n", "<br>")
}
