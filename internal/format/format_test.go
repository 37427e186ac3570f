package format

import "testing"

func TestMessage_FencedBlockIsEscapedAndTagged(t *testing.T) {
	got := Message("```js\nif (a < b) { x = \"&\" }\n```")
	want := `<pre><code class="js">if (a &lt; b) { x = "&amp;" }</code></pre>`
	if got != want {
		t.Fatalf("unexpected markup:\n got %q\nwant %q", got, want)
	}
}

func TestMessage_FenceWithoutLanguage(t *testing.T) {
	got := Message("```\ncode\n```")
	if got != `<pre><code class="">code</code></pre>` {
		t.Fatalf("unexpected markup: %q", got)
	}
}

func TestMessage_JavaScriptBlock(t *testing.T) {
	got := Message("```js\ncode\n```")
	if got != `<pre><code class="js">code</code></pre>` {
		t.Fatalf("unexpected markup: %q", got)
	}
}

func TestMessage_NewlinesBecomeBreaks(t *testing.T) {
	got := Message("hola\nmundo\n\nfin")
	if got != "hola<br>mundo<br><br>fin" {
		t.Fatalf("unexpected markup: %q", got)
	}
}

func TestMessage_PlainTextIsNotEscaped(t *testing.T) {
	// Comportamiento documentado: fuera de los bloques de código no hay escape.
	in := "<script>alert(1)</script>"
	if got := Message(in); got != in {
		t.Fatalf("expected raw passthrough, got %q", got)
	}
}

func TestMessage_MixedContent(t *testing.T) {
	got := Message("mira:\n```go\nfmt.Println(\"<hi>\")\n```\nlisto")
	want := `mira:<br><pre><code class="go">fmt.Println("&lt;hi&gt;")</code></pre><br>listo`
	if got != want {
		t.Fatalf("unexpected markup:\n got %q\nwant %q", got, want)
	}
}

func TestPlainText(t *testing.T) {
	if got := PlainText("<b>hola</b><br>mundo"); got != "hola mundo" {
		t.Fatalf("unexpected plain text: %q", got)
	}
}

func TestTerminal(t *testing.T) {
	got := Terminal(Message("voici:\n```go\nif a < b && c {}\n```fin"))
	if got != "voici:\n\nif a < b && c {}\nfin" {
		t.Fatalf("unexpected terminal text %q", got)
	}
}
