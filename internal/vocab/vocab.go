// Package vocab keeps the stopword and whitelist lists, coined terms, and the
// ban-list built from recent output.
package vocab

import (
	"fmt"
	"math/rand"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/tsawler/prose/v3"

	"github.com/rcliao/emergent-mind/internal/jsonfile"
	"github.com/rcliao/emergent-mind/internal/model"
)

// DefaultBanlistK is how many words a ban-list holds by default.
const DefaultBanlistK = 6

// Store owns the vocabulary file.
type Store struct {
	mu   sync.Mutex
	path string
	v    model.Vocabulary
	rng  *rand.Rand
}

// Open loads the vocabulary at path, seeding it on first use.
func Open(path string, seed model.Vocabulary, rng *rand.Rand) (*Store, error) {
	if seed.Invented == nil {
		seed.Invented = map[string]string{}
	}
	var v model.Vocabulary
	if _, err := jsonfile.ReadOrSeed(path, seed, &v); err != nil {
		return nil, err
	}
	if v.Invented == nil {
		v.Invented = map[string]string{}
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Store{path: path, v: v, rng: rng}, nil
}

// Path returns the backing file.
func (s *Store) Path() string { return s.path }

// BuildBanlist returns the k most frequent content words across texts.
func (s *Store) BuildBanlist(texts []string, k int) []string {
	s.mu.Lock()
	stop := toSet(s.v.Stopwords)
	white := toSet(s.v.Whitelist)
	s.mu.Unlock()
	return BuildBanlist(texts, k, stop, white)
}

// BuildBanlist lowercases and strips punctuation from every token, drops
// stopwords, whitelisted words and numbers, and returns the k most frequent
// words. Ties go to the word seen first.
func BuildBanlist(texts []string, k int, stop, white map[string]bool) []string {
	out := []string{}
	if k <= 0 {
		return out
	}

	counts := map[string]int{}
	var order []string
	for _, text := range texts {
		for _, w := range tokenize(text) {
			if stop[w] || white[w] || isNumber(w) {
				continue
			}
			if counts[w] == 0 {
				order = append(order, w)
			}
			counts[w]++
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if len(order) > k {
		order = order[:k]
	}
	return append(out, order...)
}

// tokenize splits text into lowercase words without punctuation. Clitics the
// tokenizer splits off ("n't", "'s") are joined back onto their word, so
// "don't" counts as "dont".
func tokenize(text string) []string {
	var raw []string
	if doc, err := prose.NewDocument(text); err == nil {
		for _, tok := range doc.Tokens() {
			raw = append(raw, tok.Text)
		}
	} else {
		raw = strings.Fields(text)
	}

	words := make([]string, 0, len(raw))
	joinable := false
	for _, r := range raw {
		w := strings.Map(func(c rune) rune {
			if unicode.IsPunct(c) || unicode.IsSymbol(c) {
				return -1
			}
			return unicode.ToLower(c)
		}, r)
		switch {
		case w == "":
			joinable = false
		case joinable && isClitic(r):
			words[len(words)-1] += w
		default:
			words = append(words, w)
			joinable = true
		}
	}
	return words
}

func isClitic(tok string) bool {
	t := strings.ToLower(strings.ReplaceAll(tok, "’", "'"))
	return t == "n't" || (len(t) > 1 && t[0] == '\'')
}

func isNumber(w string) bool {
	for _, c := range w {
		if !unicode.IsDigit(c) {
			return false
		}
	}
	return true
}

func toSet(words []string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[strings.ToLower(w)] = true
	}
	return m
}

// AddInventedTerm records a coined term and persists the vocabulary. An
// existing term's definition is replaced.
func (s *Store) AddInventedTerm(term, definition string) error {
	term = strings.TrimSpace(term)
	definition = strings.TrimSpace(definition)
	if term == "" || definition == "" {
		return fmt.Errorf("%w: term and definition are required", model.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.v
	next.Invented = make(map[string]string, len(s.v.Invented)+1)
	for k, v := range s.v.Invented {
		next.Invented[k] = v
	}
	next.Invented[term] = definition
	if err := jsonfile.Write(s.path, next); err != nil {
		return err
	}
	s.v = next
	return nil
}

// Terms returns a copy of the coined terms.
func (s *Store) Terms() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.v.Invented))
	for k, v := range s.v.Invented {
		out[k] = v
	}
	return out
}

// InventedSnippet returns up to max randomly chosen coined terms, one
// "• **term** – definition" line each. It is empty when nothing is coined.
func (s *Store) InventedSnippet(max int) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	terms := make([]string, 0, len(s.v.Invented))
	for t := range s.v.Invented {
		terms = append(terms, t)
	}
	sort.Strings(terms)
	if max > len(terms) {
		max = len(terms)
	}
	if max <= 0 {
		return ""
	}

	lines := make([]string, 0, max)
	for _, i := range s.rng.Perm(len(terms))[:max] {
		lines = append(lines, fmt.Sprintf("• **%s** – %s", terms[i], s.v.Invented[terms[i]]))
	}
	return strings.Join(lines, "\n")
}

var (
	conceptName = regexp.MustCompile(`\*\*Concept Name:\*\*\s*(.+)`)
	conceptDef  = regexp.MustCompile(`\*\*Definition:\*\*\s*(.+)`)
)

// ExtractConcept finds a coined term and its definition in generated text.
func ExtractConcept(text string) (term, definition string, ok bool) {
	n := conceptName.FindStringSubmatch(text)
	d := conceptDef.FindStringSubmatch(text)
	if n == nil || d == nil {
		return "", "", false
	}
	term = strings.TrimSpace(n[1])
	definition = strings.TrimSpace(d[1])
	return term, definition, term != "" && definition != ""
}
