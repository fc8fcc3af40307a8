package dom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chrisuehlinger/vibedom/gc"
)

func TestSerialize(t *testing.T) {
	_, _, doc := newTestDocument(t, gc.Config{Stress: true})
	d := doc.Get()

	root := NewHTMLElement("html", NoPrefix, d)
	defer root.Release()
	require.NoError(t, d.AppendChild(root.Get()))

	video := NewVideoElement("video", NoPrefix, d)
	defer video.Release()
	require.NoError(t, video.Get().SetAttribute("src", `a&b".webm`))
	require.NoError(t, root.Get().AppendChild(video.Get()))

	text := d.CreateTextNode("1 < 2 & 3")
	defer text.Release()
	require.NoError(t, video.Get().AppendChild(text.Get()))

	br := NewHTMLElement("br", NoPrefix, d)
	defer br.Release()
	require.NoError(t, root.Get().AppendChild(br.Get()))

	script := NewHTMLElement("script", NoPrefix, d)
	defer script.Release()
	raw := d.CreateTextNode("if (a < b) {}")
	defer raw.Release()
	require.NoError(t, script.Get().AppendChild(raw.Get()))
	require.NoError(t, root.Get().AppendChild(script.Get()))

	want := `<html><video src="a&amp;b&quot;.webm">1 &lt; 2 &amp; 3</video><br><script>if (a < b) {}</script></html>`
	assert.Equal(t, want, Serialize(d))
	assert.Equal(t, want, root.Get().OuterHTML())
	assert.Equal(t, "1 &lt; 2 &amp; 3", video.Get().InnerHTML())
	assert.Equal(t, "1 &lt; 2 &amp; 3", Serialize(text.Get()))
}

func TestSerializePrefixed(t *testing.T) {
	_, _, doc := newTestDocument(t, gc.Config{})

	el := NewAudioElement("audio", Prefix("h"), doc.Get())
	defer el.Release()
	assert.Equal(t, "<h:audio></h:audio>", Serialize(el.Get()))
}
