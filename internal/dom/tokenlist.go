package dom

import (
	"slices"
	"strings"

	"github.com/linsmod/webf/internal/gc"
)

// TokenList is the classList of an element. It reads and writes the class
// attribute, so every change is one SetAttribute record.
type TokenList struct {
	owner  *Node
	tokens []string
	valid  bool
}

func (l *TokenList) Trace(gc.Visitor) {}

// ClassList returns the class list of an element, created on first use.
func (n *Node) ClassList() *TokenList {
	if !n.isElement() {
		return nil
	}
	if n.classList == nil {
		n.classList = &TokenList{owner: n}
		n.track(n.classList)
	}
	return n.classList
}

// Owner returns the element whose class attribute backs the list.
func (l *TokenList) Owner() *Node { return l.owner }

func (l *TokenList) invalidate() { l.valid = false }

func (l *TokenList) load() []string {
	if !l.valid {
		l.tokens = l.tokens[:0]
		for _, t := range strings.Fields(l.owner.ClassName()) {
			if !slices.Contains(l.tokens, t) {
				l.tokens = append(l.tokens, t)
			}
		}
		l.valid = true
	}
	return l.tokens
}

// Items returns the distinct tokens in order.
func (l *TokenList) Items() []string { return slices.Clone(l.load()) }

func (l *TokenList) Len() int { return len(l.load()) }

func (l *TokenList) Contains(token string) bool {
	return slices.Contains(l.load(), token)
}

func validToken(token string) error {
	if token == "" {
		return exception(SyntaxError, "the token must not be empty")
	}
	if strings.ContainsAny(token, " \t\n\r\f") {
		return exception(InvalidCharacterError, "the token %q contains whitespace", token)
	}
	return nil
}

// Add appends the tokens not already present.
func (l *TokenList) Add(tokens ...string) error {
	for _, t := range tokens {
		if err := validToken(t); err != nil {
			return err
		}
	}
	next := slices.Clone(l.load())
	for _, t := range tokens {
		if !slices.Contains(next, t) {
			next = append(next, t)
		}
	}
	return l.store(next)
}

// Remove drops the given tokens.
func (l *TokenList) Remove(tokens ...string) error {
	for _, t := range tokens {
		if err := validToken(t); err != nil {
			return err
		}
	}
	next := slices.DeleteFunc(slices.Clone(l.load()), func(t string) bool {
		return slices.Contains(tokens, t)
	})
	return l.store(next)
}

// Toggle removes token when present and adds it otherwise. It reports
// whether token is present afterwards.
func (l *TokenList) Toggle(token string) (bool, error) {
	if err := validToken(token); err != nil {
		return false, err
	}
	if l.Contains(token) {
		return false, l.Remove(token)
	}
	return true, l.Add(token)
}

// store writes tokens back. An absent class attribute stays absent when
// there is nothing to write.
func (l *TokenList) store(tokens []string) error {
	if len(tokens) == 0 && !l.owner.HasAttribute("class") {
		return nil
	}
	return l.owner.SetAttribute("class", strings.Join(tokens, " "))
}
