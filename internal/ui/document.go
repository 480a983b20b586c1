package ui

import "sync"

// Document is the set of elements on the current page plus its location.
type Document struct {
	mu       sync.RWMutex
	path     string
	elements []*Element
	byID     map[string]*Element
	visited  []string
	hidden   bool
}

// NewDocument returns an empty document located at path.
func NewDocument(path string) *Document {
	return &Document{path: path, byID: make(map[string]*Element)}
}

// Add appends elements to the page, replacing any element with the same id.
func (d *Document) Add(els ...*Element) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, el := range els {
		if old, ok := d.byID[el.id]; ok && el.id != "" {
			d.removeLocked(old)
		}
		d.elements = append(d.elements, el)
		if el.id != "" {
			d.byID[el.id] = el
		}
	}
}

// Remove drops el from the page.
func (d *Document) Remove(el *Element) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.removeLocked(el)
}

func (d *Document) removeLocked(el *Element) {
	for i, e := range d.elements {
		if e == el {
			d.elements = append(d.elements[:i], d.elements[i+1:]...)
			break
		}
	}
	if d.byID[el.id] == el {
		delete(d.byID, el.id)
	}
}

// Get returns the element with the given id, or nil.
func (d *Document) Get(id string) *Element {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.byID[id]
}

// Find returns every element matching pred in document order.
func (d *Document) Find(pred func(*Element) bool) []*Element {
	d.mu.RLock()
	els := append([]*Element(nil), d.elements...)
	d.mu.RUnlock()

	var out []*Element
	for _, el := range els {
		if pred(el) {
			out = append(out, el)
		}
	}
	return out
}

// ByRole returns the elements whose data-role equals role.
func (d *Document) ByRole(role string) []*Element {
	return d.Find(func(el *Element) bool { return el.Attr(AttrRole) == role })
}

// BySymbol returns the elements with the given role bound to symbol.
func (d *Document) BySymbol(role, symbol string) []*Element {
	return d.Find(func(el *Element) bool {
		return el.Attr(AttrRole) == role && el.Symbol() == symbol
	})
}

// Path is the current location path.
func (d *Document) Path() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.path
}

// Navigate moves the document to url and records it in the history.
func (d *Document) Navigate(url string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.path = url
	d.visited = append(d.visited, url)
}

// History returns every location navigated to, oldest first.
func (d *Document) History() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]string(nil), d.visited...)
}

func (d *Document) Hidden() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.hidden
}

func (d *Document) SetHidden(hidden bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.hidden = hidden
}
