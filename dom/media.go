package dom

import (
	"fmt"

	"github.com/chrisuehlinger/vibedom/gc"
)

// NetworkState is HTMLMediaElement.networkState.
type NetworkState uint16

const (
	NetworkEmpty NetworkState = iota
	NetworkIdle
	NetworkLoading
	NetworkNoSource
)

// ReadyState is HTMLMediaElement.readyState.
type ReadyState uint16

const (
	HaveNothing ReadyState = iota
	HaveMetadata
	HaveCurrentData
	HaveFutureData
	HaveEnoughData
)

// Media is implemented by every media element leaf.
type Media interface {
	Elem
	AsMediaElement() *MediaElement
}

// MediaElement is the level shared by audio and video elements. Playback
// itself is not modelled; the state here is what script observes.
type MediaElement struct {
	Element

	networkState NetworkState
	readyState   ReadyState
	paused       bool
	muted        bool
	volume       float64
	currentSrc   string
}

func newMediaElementInherited(tag TypeTag, localName LocalName, prefix Prefix, doc *Document) MediaElement {
	if !tag.IsMedia() {
		panic(fmt.Sprintf("dom: %v is not a media type", tag))
	}
	return MediaElement{
		Element: newElementInherited(tag, localName, prefix, doc),
		paused:  true,
		volume:  1,
	}
}

// NewMediaElement constructs a plain media element, one with no audio or
// video specialization.
func NewMediaElement(localName LocalName, prefix Prefix, doc *Document) *gc.Root[*MediaElement] {
	m := newMediaElementInherited(TagMedia, localName, prefix, doc)
	return reflectNode(&m, doc)
}

// AsMediaElement returns the MediaElement level of any media type.
func (m *MediaElement) AsMediaElement() *MediaElement {
	return m
}

// NetworkState returns the current network state.
func (m *MediaElement) NetworkState() NetworkState {
	return m.networkState
}

// ReadyState returns the current ready state.
func (m *MediaElement) ReadyState() ReadyState {
	return m.readyState
}

// Src returns the src content attribute.
func (m *MediaElement) Src() string {
	v, _ := m.GetAttribute("src")
	return v
}

// SetSrc sets the src content attribute and reruns the load algorithm.
func (m *MediaElement) SetSrc(src string) error {
	if err := m.SetAttribute("src", src); err != nil {
		return err
	}
	m.load()
	return nil
}

// CurrentSrc returns the source selected by the last load.
func (m *MediaElement) CurrentSrc() string {
	return m.currentSrc
}

// Paused reports whether playback is paused.
func (m *MediaElement) Paused() bool {
	return m.paused
}

// Play clears the paused flag, loading first if nothing was loaded yet.
func (m *MediaElement) Play() {
	if m.networkState == NetworkEmpty {
		m.load()
	}
	m.paused = false
}

// Pause sets the paused flag, loading first if nothing was loaded yet.
func (m *MediaElement) Pause() {
	if m.networkState == NetworkEmpty {
		m.load()
	}
	m.paused = true
}

// Muted reports whether the element is muted.
func (m *MediaElement) Muted() bool {
	return m.muted
}

// SetMuted sets the muted flag.
func (m *MediaElement) SetMuted(muted bool) {
	m.muted = muted
}

// Volume returns the volume in [0, 1].
func (m *MediaElement) Volume() float64 {
	return m.volume
}

// SetVolume sets the volume. Values outside [0, 1] are an IndexSizeError.
func (m *MediaElement) SetVolume(v float64) error {
	if v < 0 || v > 1 {
		return ErrIndexSize(fmt.Sprintf("The volume provided (%v) is outside the range [0, 1].", v))
	}
	m.volume = v
	return nil
}

// load resets the element to its freshly loaded state.
// https://html.spec.whatwg.org/multipage/media.html#media-element-load-algorithm
func (m *MediaElement) load() {
	m.paused = true
	m.readyState = HaveNothing
	m.currentSrc = m.Src()
	if m.currentSrc == "" {
		m.networkState = NetworkNoSource
		return
	}
	m.networkState = NetworkIdle
}
