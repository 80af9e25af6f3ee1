// Package classifier provides the in-process text classifiers used by the
// analysis engine, plus a Redis backed cache in front of them.
package classifier

import (
	"context"
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"
	"unicode"

	"psichat_server/core/port/out"

	"github.com/goccy/go-json"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

//go:embed lexicons/*.json
var lexiconFS embed.FS

// Built-in lexicon files.
const (
	BuiltinEmotion = "emotion.json"
	BuiltinStyle   = "style.json"
)

// Model is the on-disk lexicon format.
//
//	{"name": "...", "labels": [...], "keywords": {label: {term: weight}}, "bias": {label: w}}
//
// A term ending in "*" matches any word starting with the stem. Terms with
// spaces match the exact word sequence. Matching ignores case and accents.
type Model struct {
	Name     string                        `json:"name"`
	Labels   []string                      `json:"labels"`
	Keywords map[string]map[string]float64 `json:"keywords"`
	Bias     map[string]float64            `json:"bias"`
	Scale    float64                       `json:"scale,omitempty"`
}

type termKind int

const (
	termWord termKind = iota
	termPrefix
	termPhrase
)

type term struct {
	text   string
	kind   termKind
	label  int
	weight float64
}

// Lexicon scores text against weighted keyword lists and turns the scores
// into a probability for every label with a softmax. It is read-only after
// construction and safe for concurrent use.
type Lexicon struct {
	name    string
	version string
	labels  []string
	bias    []float64
	terms   []term
	scale   float64
}

var (
	_ out.TextClassifier = (*Lexicon)(nil)
	_ Versioned          = (*Lexicon)(nil)
)

// Load reads a lexicon from path, or the named built-in lexicon when path is empty.
func Load(path, builtin string) (*Lexicon, error) {
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read lexicon %s: %w", path, err)
		}
		return Parse(data)
	}

	data, err := lexiconFS.ReadFile("lexicons/" + builtin)
	if err != nil {
		return nil, fmt.Errorf("unknown built-in lexicon %q: %w", builtin, err)
	}
	return Parse(data)
}

// Parse decodes and compiles a lexicon model.
func Parse(data []byte) (*Lexicon, error) {
	var m Model
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to decode lexicon: %w", err)
	}
	return New(&m)
}

// New compiles a lexicon model.
func New(m *Model) (*Lexicon, error) {
	if len(m.Labels) == 0 {
		return nil, fmt.Errorf("lexicon %q has no labels", m.Name)
	}

	index := make(map[string]int, len(m.Labels))
	for i, label := range m.Labels {
		if label == "" {
			return nil, fmt.Errorf("lexicon %q has an empty label", m.Name)
		}
		if _, dup := index[label]; dup {
			return nil, fmt.Errorf("lexicon %q repeats label %q", m.Name, label)
		}
		index[label] = i
	}

	version, err := fingerprint(m)
	if err != nil {
		return nil, err
	}

	lx := &Lexicon{
		name:    m.Name,
		version: version,
		labels:  append([]string(nil), m.Labels...),
		bias:    make([]float64, len(m.Labels)),
		scale:   m.Scale,
	}
	if lx.name == "" {
		lx.name = "lexicon"
	}
	if lx.scale <= 0 {
		lx.scale = 1
	}

	for label, w := range m.Bias {
		i, ok := index[label]
		if !ok {
			return nil, fmt.Errorf("lexicon %q: bias for unknown label %q", m.Name, label)
		}
		lx.bias[i] = w
	}

	for label := range m.Keywords {
		if _, ok := index[label]; !ok {
			return nil, fmt.Errorf("lexicon %q: keywords for unknown label %q", m.Name, label)
		}
	}

	// Terms are compiled in a fixed order so score sums are reproducible.
	for i, label := range m.Labels {
		words := m.Keywords[label]
		raws := make([]string, 0, len(words))
		for raw := range words {
			raws = append(raws, raw)
		}
		sort.Strings(raws)

		for _, raw := range raws {
			t, err := compileTerm(raw)
			if err != nil {
				return nil, fmt.Errorf("lexicon %q label %q: %w", m.Name, label, err)
			}
			t.label, t.weight = i, words[raw]
			lx.terms = append(lx.terms, t)
		}
	}
	return lx, nil
}

// fingerprint hashes the model content. Map keys are encoded sorted, so equal
// models share a fingerprint.
func fingerprint(m *Model) (string, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("failed to encode lexicon %q: %w", m.Name, err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:6]), nil
}

func compileTerm(raw string) (term, error) {
	prefix := strings.HasSuffix(raw, "*")
	words := tokenize(strings.TrimSuffix(raw, "*"))
	switch {
	case len(words) == 0:
		return term{}, fmt.Errorf("empty term %q", raw)
	case len(words) > 1 && prefix:
		return term{}, fmt.Errorf("prefix term %q must be a single word", raw)
	case len(words) > 1:
		return term{text: " " + strings.Join(words, " ") + " ", kind: termPhrase}, nil
	case prefix:
		return term{text: words[0], kind: termPrefix}, nil
	default:
		return term{text: words[0], kind: termWord}, nil
	}
}

// Name returns the model name.
func (l *Lexicon) Name() string {
	return l.name
}

// Version identifies the model content, so an edited lexicon that keeps its
// name does not reuse cached results.
func (l *Lexicon) Version() string {
	return l.version
}

// Labels returns the label set in model order.
func (l *Lexicon) Labels() []string {
	return append([]string(nil), l.labels...)
}

// Classify returns one probability per label, in model order.
func (l *Lexicon) Classify(ctx context.Context, text string) ([]out.LabelProbability, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	scores := append([]float64(nil), l.bias...)

	words := tokenize(text)
	if len(words) > 0 {
		joined := " " + strings.Join(words, " ") + " "
		for _, t := range l.terms {
			if n := t.count(words, joined); n > 0 {
				scores[t.label] += t.weight * float64(n)
			}
		}
	}

	probs := softmax(scores, l.scale)
	res := make([]out.LabelProbability, len(l.labels))
	for i, label := range l.labels {
		res[i] = out.LabelProbability{Label: label, Probability: probs[i]}
	}
	return res, nil
}

func (t term) count(words []string, joined string) int {
	switch t.kind {
	case termPhrase:
		return strings.Count(joined, t.text)
	case termPrefix:
		n := 0
		for _, w := range words {
			if strings.HasPrefix(w, t.text) {
				n++
			}
		}
		return n
	default:
		n := 0
		for _, w := range words {
			if w == t.text {
				n++
			}
		}
		return n
	}
}

func softmax(scores []float64, scale float64) []float64 {
	maxScore := math.Inf(-1)
	for _, s := range scores {
		maxScore = math.Max(maxScore, s)
	}

	probs := make([]float64, len(scores))
	var sum float64
	for i, s := range scores {
		probs[i] = math.Exp(scale * (s - maxScore))
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs
}

// =============================================================================
// Text folding
// =============================================================================

// Fold lowercases text and strips accents, so "Frustración" and "frustracion" compare equal.
func Fold(text string) string {
	// Chained transformers keep state, so each call builds its own.
	folder := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(folder, strings.ToLower(text))
	if err != nil {
		return strings.ToLower(text)
	}
	return folded
}

// tokenize folds text and splits it into words of letters and digits.
func tokenize(text string) []string {
	return strings.FieldsFunc(Fold(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
