package dom

import "github.com/chrisuehlinger/vibedom/gc"

// VideoElement is the <video> element. It adds no state of its own.
type VideoElement struct {
	MediaElement
}

func newVideoElementInherited(localName LocalName, prefix Prefix, doc *Document) VideoElement {
	return VideoElement{
		MediaElement: newMediaElementInherited(TagVideo, localName, prefix, doc),
	}
}

// NewVideoElement constructs and reflects a video element.
func NewVideoElement(localName LocalName, prefix Prefix, doc *Document) *gc.Root[*VideoElement] {
	v := newVideoElementInherited(localName, prefix, doc)
	return reflectNode(&v, doc)
}

// Poster returns the poster content attribute.
func (v *VideoElement) Poster() string {
	p, _ := v.GetAttribute("poster")
	return p
}
