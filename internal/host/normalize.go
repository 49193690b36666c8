package host

// Normalize merges every run of adjacent text children into the run's first
// node, recursively. A static rendering pass emits merged text the same
// way, so attach-mode tests normalize a built tree to fabricate realistic
// pre-rendered markup. Normalize edits the tree directly and is not
// journaled.
func (d *MemoryDocument) Normalize() {
	normalizeElement(d.root)
}

func normalizeElement(e *memElement) {
	for i := 0; i < len(e.children); i++ {
		if el, ok := e.children[i].(*memElement); ok {
			normalizeElement(el)
			continue
		}
		first, ok := e.children[i].(*memText)
		if !ok {
			continue
		}
		j := i + 1
		merged := first.text
		for j < len(e.children) {
			t, ok := e.children[j].(*memText)
			if !ok {
				break
			}
			merged += t.text
			t.parent = nil
			j++
		}
		if j > i+1 {
			first.text = merged
			e.children = append(e.children[:i+1], e.children[j:]...)
		}
	}
}
