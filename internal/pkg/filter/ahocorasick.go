package filter

import (
	"sync"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Match represents a lexicon hit found by the automaton.
type Match struct {
	Word     string
	Position int
}

// node represents a node in the Aho-Corasick automaton.
type node struct {
	children    map[rune]*node
	failLink    *node
	output      []string
	isEndOfWord bool
}

// AhoCorasick is an Aho-Corasick automaton over a fixed word list. It
// answers substring-containment queries for every word at once, which is
// how the profanity lexicon is tested against transcript tokens.
type AhoCorasick struct {
	root *node
	mu   sync.RWMutex
}

// NewAhoCorasick creates a new Aho-Corasick automaton.
func NewAhoCorasick() *AhoCorasick {
	return &AhoCorasick{
		root: newNode(),
	}
}

func newNode() *node {
	return &node{
		children: make(map[rune]*node),
		output:   make([]string, 0),
	}
}

// Build builds the automaton from a list of words, replacing any previous
// contents.
func (ac *AhoCorasick) Build(words []string) {
	ac.mu.Lock()
	defer ac.mu.Unlock()

	ac.root = newNode()

	for _, w := range words {
		ac.addWord(w)
	}

	ac.buildFailLinks()
}

// addWord adds a single word to the trie.
func (ac *AhoCorasick) addWord(word string) {
	n := ac.root
	normalized := NormalizeText(word)

	for _, char := range normalized {
		if _, ok := n.children[char]; !ok {
			n.children[char] = newNode()
		}
		n = n.children[char]
	}

	n.isEndOfWord = true
	n.output = append(n.output, word)
}

// buildFailLinks builds the fail links for the automaton.
func (ac *AhoCorasick) buildFailLinks() {
	queue := make([]*node, 0)

	// Initialize fail links for depth 1 nodes
	for _, child := range ac.root.children {
		child.failLink = ac.root
		queue = append(queue, child)
	}

	// BFS to build fail links for deeper nodes
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for char, child := range current.children {
			queue = append(queue, child)

			// Find the longest proper suffix that is also a prefix
			failNode := current.failLink
			for failNode != nil && failNode.children[char] == nil {
				failNode = failNode.failLink
			}

			if failNode == nil {
				child.failLink = ac.root
			} else {
				child.failLink = failNode.children[char]
				// Merge output from fail link
				child.output = append(child.output, child.failLink.output...)
			}
		}
	}
}

// Search searches for all lexicon words contained in the given text.
func (ac *AhoCorasick) Search(text string) []Match {
	ac.mu.RLock()
	defer ac.mu.RUnlock()

	matches := make([]Match, 0)
	normalized := NormalizeText(text)
	n := ac.root
	position := 0

	for _, char := range normalized {
		for n != nil && n.children[char] == nil {
			n = n.failLink
		}

		if n == nil {
			n = ac.root
		} else {
			n = n.children[char]
		}

		for _, word := range n.output {
			matches = append(matches, Match{
				Word:     word,
				Position: position - len([]rune(word)) + 1,
			})
		}
		position++
	}

	return matches
}

// HasMatch checks if any lexicon word is contained in the text (faster
// than Search).
func (ac *AhoCorasick) HasMatch(text string) bool {
	ac.mu.RLock()
	defer ac.mu.RUnlock()

	normalized := NormalizeText(text)
	n := ac.root

	for _, char := range normalized {
		for n != nil && n.children[char] == nil {
			n = n.failLink
		}

		if n == nil {
			n = ac.root
		} else {
			n = n.children[char]
		}

		if len(n.output) > 0 {
			return true
		}
	}

	return false
}

// NormalizeText normalizes text for matching.
// - Converts to lowercase
// - Removes diacritics
// - Normalizes unicode
func NormalizeText(text string) string {
	t := transform.Chain(
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)), // Remove diacritics
		norm.NFC,
	)
	result, _, _ := transform.String(t, text)

	lowered := make([]rune, 0, len(result))
	for _, r := range result {
		lowered = append(lowered, unicode.ToLower(r))
	}

	return string(lowered)
}
