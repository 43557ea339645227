package extract

import (
	_ "embed"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/procurement-leads/internal/fold"
	"github.com/sells-group/procurement-leads/internal/model"
)

//go:embed vocabulary.yaml
var vocabularyYAML []byte

// Vocabulary maps free-text status phrases to model.Status values.
type Vocabulary struct {
	Rules []StatusRule `yaml:"rules"`
	// Negations are words that cancel a stem match when they directly
	// precede it ("não vencedora").
	Negations []string                `yaml:"negations"`
	Labels    map[model.Status]string `yaml:"labels"`
}

// StatusRule matches one status by exact phrase or by stem.
type StatusRule struct {
	Status  model.Status `yaml:"status"`
	Phrases []string     `yaml:"phrases"`
	Stems   []string     `yaml:"stems"`
}

// ParseVocabulary decodes a vocabulary document and folds its phrases.
func ParseVocabulary(data []byte) (*Vocabulary, error) {
	var v Vocabulary
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, eris.Wrap(err, "extract: parse vocabulary")
	}
	if len(v.Rules) == 0 {
		return nil, eris.New("extract: vocabulary has no rules")
	}
	for i := range v.Rules {
		r := &v.Rules[i]
		if r.Status == "" {
			return nil, eris.Errorf("extract: vocabulary rule %d has no status", i)
		}
		for j := range r.Phrases {
			r.Phrases[j] = fold.Key(r.Phrases[j])
		}
		for j := range r.Stems {
			r.Stems[j] = fold.Key(r.Stems[j])
		}
	}
	for i := range v.Negations {
		v.Negations[i] = fold.Key(v.Negations[i])
	}
	return &v, nil
}

var (
	defaultVocab     *Vocabulary
	defaultVocabOnce sync.Once
)

// DefaultVocabulary returns the embedded vocabulary. It panics if the
// embedded file is malformed, which the package tests guard against.
func DefaultVocabulary() *Vocabulary {
	defaultVocabOnce.Do(func() {
		v, err := ParseVocabulary(vocabularyYAML)
		if err != nil {
			panic(err)
		}
		defaultVocab = v
	})
	return defaultVocab
}

// Parse maps raw to a status. Matching ignores case and accents. Exact
// phrases are tried across every rule before stems, so "homologada" is never
// caught by a broader stem. Among stem matches a target status beats an
// excluded one, so "desclassificada após homologação" stays Disqualified, and
// a stem preceded by a negation does not match. Unrecognized text yields
// StatusUnknown.
func (v *Vocabulary) Parse(raw string) model.Status {
	key := fold.Key(raw)
	if key == "" {
		return model.StatusUnknown
	}
	compact := strings.ReplaceAll(key, " ", "")

	for _, r := range v.Rules {
		if compact == fold.Key(string(r.Status)) {
			return r.Status
		}
		for _, p := range r.Phrases {
			if key == p {
				return r.Status
			}
		}
	}

	excluded := model.StatusUnknown
	for _, r := range v.Rules {
		if !v.stemMatch(key, r.Stems) {
			continue
		}
		if !r.Status.Excluded() {
			return r.Status
		}
		if excluded == model.StatusUnknown {
			excluded = r.Status
		}
	}
	return excluded
}

// stemMatch reports whether any stem occurs in key starting inside a word
// that is not directly preceded by a negation.
func (v *Vocabulary) stemMatch(key string, stems []string) bool {
	words := strings.Fields(key)
	for i := range words {
		if i > 0 && v.negated(words[i-1]) {
			continue
		}
		rest := strings.Join(words[i:], " ")
		for _, s := range stems {
			idx := strings.Index(rest, s)
			if idx >= 0 && idx < len(words[i]) {
				return true
			}
		}
	}
	return false
}

func (v *Vocabulary) negated(word string) bool {
	for _, n := range v.Negations {
		if word == n {
			return true
		}
	}
	return false
}

// Label returns the instruction label for s, falling back to its name.
func (v *Vocabulary) Label(s model.Status) string {
	if l, ok := v.Labels[s]; ok && l != "" {
		return l
	}
	return string(s)
}

// ParseStatus maps raw using the embedded vocabulary.
func ParseStatus(raw string) model.Status {
	return DefaultVocabulary().Parse(raw)
}
