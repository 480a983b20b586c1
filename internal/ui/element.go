// Package ui models the page the realtime services operate on: elements
// carrying attributes, rendered content, a disabled flag and a display
// style, collected in a Document that also owns the current location.
package ui

import (
	"sort"
	"sync"
)

// Attribute names shared by the services.
const (
	AttrRole            = "data-role"
	AttrSymbol          = "data-symbol"
	AttrTicker          = "data-ticker"
	AttrHref            = "href"
	AttrLoading         = "data-loading"
	AttrOriginalContent = "data-original-content"
	AttrPermanent       = "data-permanent"
	AttrFavoriteWired   = "data-favorite-wired"
	AttrFavoriteState   = "data-favorite-state"
	AttrClicked         = "data-clicked"
)

// Element roles.
const (
	RoleFavoriteButton = "favorite-button"
	RoleLoadingOverlay = "loading-overlay"
	RoleSpinner        = "spinner"
	RoleButton         = "button"
	RoleLink           = "link"
)

// SpinnerMarkup is rendered into an element while it is loading.
const SpinnerMarkup = `<span class="spinner-border spinner-border-sm" role="status"></span>`

// Element is a single page node. All methods are safe for concurrent use.
type Element struct {
	mu       sync.Mutex
	id       string
	attrs    map[string]string
	content  string
	disabled bool
	display  string
}

// NewElement creates an element with the given id, attributes and content.
func NewElement(id string, attrs map[string]string, content string) *Element {
	el := &Element{id: id, attrs: make(map[string]string), content: content}
	for k, v := range attrs {
		el.attrs[k] = v
	}
	return el
}

func (e *Element) ID() string { return e.id }

func (e *Element) Attr(name string) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.attrs[name]
}

func (e *Element) HasAttr(name string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.attrs[name]
	return ok
}

func (e *Element) SetAttr(name, value string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.attrs[name] = value
}

func (e *Element) RemoveAttr(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.attrs, name)
}

// SetAttrIfAbsent sets name and reports true only when it was not already set.
func (e *Element) SetAttrIfAbsent(name, value string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.attrs[name]; ok {
		return false
	}
	e.attrs[name] = value
	return true
}

// Attrs returns a copy of the attribute names in sorted order.
func (e *Element) Attrs() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	names := make([]string, 0, len(e.attrs))
	for k := range e.attrs {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func (e *Element) Content() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.content
}

func (e *Element) SetContent(content string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.content = content
}

func (e *Element) Disabled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.disabled
}

func (e *Element) SetDisabled(disabled bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.disabled = disabled
}

// Display returns the element's display style; empty means default.
func (e *Element) Display() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.display
}

func (e *Element) SetDisplay(display string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.display = display
}

// Visible reports whether the element is rendered.
func (e *Element) Visible() bool {
	return e.Display() != "none"
}

// Permanent elements are never touched by cleanup sweeps.
func (e *Element) Permanent() bool {
	return e.HasAttr(AttrPermanent)
}

// Symbol resolves the ticker symbol from data-symbol, then data-ticker.
func (e *Element) Symbol() string {
	if s := e.Attr(AttrSymbol); s != "" {
		return s
	}
	return e.Attr(AttrTicker)
}
