package ui

// BeginLoading puts el in its loading state: the current content is cached
// in data-original-content, the element is disabled and shows the spinner.
// It reports false when el is already loading.
func BeginLoading(el *Element) bool {
	el.mu.Lock()
	defer el.mu.Unlock()
	if _, busy := el.attrs[AttrLoading]; busy {
		return false
	}
	el.attrs[AttrOriginalContent] = el.content
	el.attrs[AttrLoading] = "true"
	el.disabled = true
	el.content = SpinnerMarkup
	return true
}

// EndLoading restores the cached content and re-enables el.
func EndLoading(el *Element) {
	el.mu.Lock()
	defer el.mu.Unlock()
	if orig, ok := el.attrs[AttrOriginalContent]; ok {
		el.content = orig
	}
	clearLoadingLocked(el)
}

// FinishLoading leaves el showing content instead of the cached original.
func FinishLoading(el *Element, content string) {
	el.mu.Lock()
	defer el.mu.Unlock()
	el.content = content
	clearLoadingLocked(el)
}

// Loading reports whether el carries the loading flag.
func Loading(el *Element) bool {
	return el.HasAttr(AttrLoading)
}

func clearLoadingLocked(el *Element) {
	delete(el.attrs, AttrOriginalContent)
	delete(el.attrs, AttrLoading)
	el.disabled = false
}
