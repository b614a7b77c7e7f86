package ingest

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSanitizeHTML_DropsScriptBlocks(t *testing.T) {
	t.Parallel()

	got := SanitizeHTML(`<p>safe</p><script>alert(1)</script>`)
	require.Equal(t, "<p>safe</p>", got)
}

func TestSanitizeHTML_DropsEventHandlers(t *testing.T) {
	t.Parallel()

	got := SanitizeHTML(`<p onclick="evil()">text</p>`)
	require.Equal(t, "<p>text</p>", got)
}

func TestSanitizeHTML_DropsJavascriptURIs(t *testing.T) {
	t.Parallel()

	got := SanitizeHTML(`<a href="javascript:evil()">link</a>`)
	require.NotContains(t, got, "javascript:")
}

func TestSanitizeHTML_KeepsArticleMarkup(t *testing.T) {
	t.Parallel()

	in := `<section class="intro" id="top"><h2>Title</h2><figure><figcaption>cap</figcaption></figure></section>`
	got := SanitizeHTML(in)
	require.Contains(t, got, "<section")
	require.Contains(t, got, `class="intro"`)
	require.Contains(t, got, `id="top"`)
	require.Contains(t, got, "<figcaption>cap</figcaption>")
}

func TestScrubInvisible_RemovesZeroWidthChars(t *testing.T) {
	t.Parallel()

	in := []byte("a\u200Bb\u200Cc\uFEFFd\u00ADe")
	require.Equal(t, []byte("abcde"), ScrubInvisible(in))
}

func TestScrubInvisible_KeepsStructuralWhitespace(t *testing.T) {
	t.Parallel()

	in := []byte("line1\n\tline2\r\n")
	require.Equal(t, in, ScrubInvisible(in))
}

func TestScrubInvisible_RemovesControlChars(t *testing.T) {
	t.Parallel()

	in := []byte{'a', 0x01, 'b', 0x7f, 'c'}
	require.Equal(t, []byte("abc"), ScrubInvisible(in))
}

func TestScrubInvisible_RemovesBidiControls(t *testing.T) {
	t.Parallel()

	in := []byte("x\u202Ay\u202Ez\u2060w")
	require.Equal(t, []byte("xyzw"), ScrubInvisible(in))
}
