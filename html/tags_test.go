package html

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chrisuehlinger/vibedom/dom"
	"github.com/chrisuehlinger/vibedom/gc"
)

func TestTagFor(t *testing.T) {
	tests := []struct {
		name dom.LocalName
		want dom.TypeTag
	}{
		{"video", dom.TagVideo},
		{"audio", dom.TagAudio},
		{"div", dom.TagHTMLElement},
		{"VIDEO", dom.TagHTMLElement},
		{"x-player", dom.TagHTMLElement},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TagFor(tt.name), string(tt.name))
	}
}

func TestCreateElement(t *testing.T) {
	_, doc := newDocument(t, gc.Config{})

	el, err := CreateElement(doc.Get(), "VIDEO")
	require.NoError(t, err)
	defer el.Release()
	_, ok := el.Get().(*dom.VideoElement)
	assert.True(t, ok)
	assert.Equal(t, dom.LocalName("video"), el.Get().AsElement().LocalName())
	assert.True(t, el.Get().AsElement().Prefix().IsNone())

	colon, err := CreateElement(doc.Get(), "a:b")
	require.NoError(t, err)
	defer colon.Release()
	assert.Equal(t, dom.LocalName("a:b"), colon.Get().AsElement().LocalName())
	assert.True(t, colon.Get().AsElement().Prefix().IsNone())

	for _, bad := range []string{"", "1abc", "a b", "<p>"} {
		_, err := CreateElement(doc.Get(), bad)
		var domErr *dom.DOMError
		require.ErrorAs(t, err, &domErr, bad)
		assert.Equal(t, "InvalidCharacterError", domErr.Name)
	}
}

func TestCreateElementNS(t *testing.T) {
	_, doc := newDocument(t, gc.Config{})

	el, err := CreateElementNS(doc.Get(), dom.HTMLNamespace, "m:video")
	require.NoError(t, err)
	defer el.Release()
	assert.Equal(t, dom.TagVideo, el.Get().AsNode().TypeTag())
	assert.Equal(t, dom.Prefix("m"), el.Get().AsElement().Prefix())
	assert.Equal(t, dom.LocalName("video"), el.Get().AsElement().LocalName())
	assert.Equal(t, "M:VIDEO", el.Get().AsElement().TagName())

	_, err = CreateElementNS(doc.Get(), dom.HTMLNamespace, "a:b:c")
	assert.Error(t, err)
	_, err = CreateElementNS(doc.Get(), dom.HTMLNamespace, ":b")
	assert.Error(t, err)
	_, err = CreateElementNS(doc.Get(), "http://www.w3.org/2000/svg", "svg")
	var domErr *dom.DOMError
	require.ErrorAs(t, err, &domErr)
	assert.Equal(t, "NotSupportedError", domErr.Name)
}
