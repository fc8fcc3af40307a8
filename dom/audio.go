package dom

import "github.com/chrisuehlinger/vibedom/gc"

// AudioElement is the <audio> element.
type AudioElement struct {
	MediaElement
}

func newAudioElementInherited(localName LocalName, prefix Prefix, doc *Document) AudioElement {
	return AudioElement{
		MediaElement: newMediaElementInherited(TagAudio, localName, prefix, doc),
	}
}

// NewAudioElement constructs and reflects an audio element.
func NewAudioElement(localName LocalName, prefix Prefix, doc *Document) *gc.Root[*AudioElement] {
	a := newAudioElementInherited(localName, prefix, doc)
	return reflectNode(&a, doc)
}
