package eval

import "github.com/weftlabs/weft/internal/reactive"

// Scope is the two-slot binding record a keyed list pushes for each item:
// the item value and its index, each backed by a signal so that reads made
// under an effect subscribe to in-place updates when the item's key
// persists across a diff. Variable resolution consults scopes before the
// plain local bindings.
type Scope struct {
	ItemName  string
	IndexName string
	Item      *reactive.Signal
	Index     *reactive.Signal
}

// NewScope builds a scope record. indexName may be empty when the compiled
// list declares no index binding; the index signal is still tracked so the
// renderer can update it uniformly.
func NewScope(itemName, indexName string, item, index *reactive.Signal) *Scope {
	return &Scope{
		ItemName:  itemName,
		IndexName: indexName,
		Item:      item,
		Index:     index,
	}
}

func (s *Scope) lookup(name string) (any, bool) {
	if name == s.ItemName {
		return s.Item.Get(), true
	}
	if s.IndexName != "" && name == s.IndexName {
		return s.Index.Get(), true
	}
	return nil, false
}
