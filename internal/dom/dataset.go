package dom

import (
	"sort"
	"strings"

	"github.com/linsmod/webf/internal/gc"
)

// StringMap is the dataset of an element: data-* attributes addressed by
// their camel-cased suffix.
type StringMap struct {
	owner *Node
}

func (m *StringMap) Trace(gc.Visitor) {}

// Dataset returns the dataset of an element, created on first use.
func (n *Node) Dataset() *StringMap {
	if !n.isElement() {
		return nil
	}
	if n.dataset == nil {
		n.dataset = &StringMap{owner: n}
		n.track(n.dataset)
	}
	return n.dataset
}

func dataAttr(key string) (string, error) {
	for i := 0; i+1 < len(key); i++ {
		if key[i] == '-' && 'a' <= key[i+1] && key[i+1] <= 'z' {
			return "", exception(SyntaxError, "%q is not a valid dataset key", key)
		}
	}
	return "data-" + kebab(key), nil
}

func (m *StringMap) Get(key string) (string, bool) {
	name, err := dataAttr(key)
	if err != nil {
		return "", false
	}
	return m.owner.GetAttribute(name)
}

func (m *StringMap) Set(key, value string) error {
	name, err := dataAttr(key)
	if err != nil {
		return err
	}
	return m.owner.SetAttribute(name, value)
}

func (m *StringMap) Delete(key string) error {
	name, err := dataAttr(key)
	if err != nil {
		return err
	}
	return m.owner.RemoveAttribute(name)
}

// Keys returns the camel-cased keys of every data-* attribute, sorted.
func (m *StringMap) Keys() []string {
	var keys []string
	if m.owner.attrs == nil {
		return keys
	}
	for _, a := range m.owner.attrs.list {
		if suffix, ok := strings.CutPrefix(a.Name, "data-"); ok {
			keys = append(keys, camel(suffix))
		}
	}
	sort.Strings(keys)
	return keys
}
