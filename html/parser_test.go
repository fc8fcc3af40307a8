package html

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chrisuehlinger/vibedom/dom"
	"github.com/chrisuehlinger/vibedom/gc"
)

func newDocument(t *testing.T, cfg gc.Config) (*gc.Heap, *gc.Root[*dom.Document]) {
	t.Helper()
	h := gc.NewHeap(cfg, nil)
	doc := dom.NewDocument(h, nil)
	t.Cleanup(doc.Release)
	return h, doc
}

func findElement(n *dom.Node, localName dom.LocalName) dom.Elem {
	var found dom.Elem
	n.ForEachChild(func(c dom.Noder) bool {
		if el, ok := c.(dom.Elem); ok {
			if el.AsElement().LocalName() == localName {
				found = el
				return false
			}
			if found = findElement(el.AsNode(), localName); found != nil {
				return false
			}
		}
		return true
	})
	return found
}

func TestParse_BasicDocument(t *testing.T) {
	input := `<!DOCTYPE html>
<html>
<head><title>Test</title></head>
<body><p>Hello, World!</p></body>
</html>`

	h, doc := newDocument(t, gc.Config{Stress: true})
	require.NoError(t, Parse(doc.Get(), input))
	h.Collect()

	root := doc.Get().DocumentElement()
	require.NotNil(t, root)
	defer root.Release()
	assert.Equal(t, dom.LocalName("html"), root.Get().AsElement().LocalName())

	require.NotNil(t, findElement(doc.Get().AsNode(), "body"))
	para := findElement(doc.Get().AsNode(), "p")
	require.NotNil(t, para)
	assert.Equal(t, "Hello, World!", para.AsNode().TextContent())

	title := findElement(doc.Get().AsNode(), "title")
	require.NotNil(t, title)
	assert.Equal(t, dom.TagHTMLElement, title.AsNode().TypeTag())
}

func TestParse_MalformedHTML(t *testing.T) {
	_, doc := newDocument(t, gc.Config{})
	require.NoError(t, Parse(doc.Get(), `<p>unclosed paragraph<div>nested div</p></div>`))

	assert.NotNil(t, findElement(doc.Get().AsNode(), "p"))
	assert.NotNil(t, findElement(doc.Get().AsNode(), "div"))
}

func TestParse_MediaElements(t *testing.T) {
	_, doc := newDocument(t, gc.Config{Stress: true})
	input := `<body><video src="a.webm" poster="a.png" controls></video><audio src="b.ogg"></audio></body>`
	require.NoError(t, Parse(doc.Get(), input))

	video, ok := findElement(doc.Get().AsNode(), "video").(*dom.VideoElement)
	require.True(t, ok)
	assert.Equal(t, "a.webm", video.Src())
	assert.Equal(t, "a.png", video.Poster())
	assert.True(t, video.HasAttribute("controls"))
	assert.True(t, video.Paused())

	audio, ok := findElement(doc.Get().AsNode(), "audio").(*dom.AudioElement)
	require.True(t, ok)
	assert.Equal(t, "b.ogg", audio.Src())
}

func TestParseFragment(t *testing.T) {
	h, doc := newDocument(t, gc.Config{Stress: true})

	div, err := CreateElement(doc.Get(), "div")
	require.NoError(t, err)
	defer div.Release()

	require.NoError(t, ParseFragment(div.Get(), `<span>one</span> two <video></video>`))
	h.Collect()

	var names []string
	div.Get().AsNode().ForEachChild(func(c dom.Noder) bool {
		names = append(names, c.NodeName())
		return true
	})
	assert.Equal(t, []string{"SPAN", "#text", "VIDEO"}, names)
	assert.Equal(t, "one two ", div.Get().AsNode().TextContent())
}

func TestParseFragment_DetachedDocument(t *testing.T) {
	h := gc.NewHeap(gc.Config{}, nil)
	doc := dom.NewDocument(h, nil)
	div, err := CreateElement(doc.Get(), "div")
	require.NoError(t, err)
	defer div.Release()
	doc.Release()
	h.Collect()

	err = ParseFragment(div.Get(), `<p></p>`)
	var domErr *dom.DOMError
	require.ErrorAs(t, err, &domErr)
	assert.Equal(t, "InvalidStateError", domErr.Name)
}

type shape struct {
	Name     string
	Tag      dom.TypeTag
	Attrs    []string
	Children []shape
}

func shapeOf(n dom.Noder) shape {
	s := shape{Name: n.NodeName(), Tag: n.AsNode().TypeTag()}
	if el, ok := n.(dom.Elem); ok {
		s.Attrs = el.AsElement().AttributeNames()
	}
	n.AsNode().ForEachChild(func(c dom.Noder) bool {
		s.Children = append(s.Children, shapeOf(c))
		return true
	})
	return s
}

func TestParse_TreeShape(t *testing.T) {
	_, doc := newDocument(t, gc.Config{Stress: true})
	require.NoError(t, Parse(doc.Get(), `<html><head></head><body><video controls src=a.webm>x</video><audio></audio><svg><circle></circle></svg></body></html>`))

	want := shape{Name: "#document", Tag: dom.TagDocument, Children: []shape{
		{Name: "HTML", Tag: dom.TagHTMLElement, Attrs: []string{}, Children: []shape{
			{Name: "HEAD", Tag: dom.TagHTMLElement, Attrs: []string{}},
			{Name: "BODY", Tag: dom.TagHTMLElement, Attrs: []string{}, Children: []shape{
				{Name: "VIDEO", Tag: dom.TagVideo, Attrs: []string{"controls", "src"}, Children: []shape{
					{Name: "#text", Tag: dom.TagText},
				}},
				{Name: "AUDIO", Tag: dom.TagAudio, Attrs: []string{}},
				{Name: "SVG", Tag: dom.TagHTMLElement, Attrs: []string{}, Children: []shape{
					{Name: "CIRCLE", Tag: dom.TagHTMLElement, Attrs: []string{}},
				}},
			}},
		}},
	}}
	if diff := cmp.Diff(want, shapeOf(doc.Get())); diff != "" {
		t.Errorf("parsed tree mismatch (-want +got):\n%s", diff)
	}
}
