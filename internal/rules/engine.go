// Package rules cleans spoken transcripts with user-defined substitutions.
package rules

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// File is the YAML clean-up rules document.
//
//	fillers: [um, uh, "you know"]
//	substitutions:
//	  - from: deep gram
//	    to: Deepgram
//	  - pattern: '\bgonna\b'
//	    to: going to
type File struct {
	Fillers       []string       `yaml:"fillers"`
	Substitutions []Substitution `yaml:"substitutions"`
}

// Substitution is either a case-insensitive literal (From) or a Go regular
// expression (Pattern). Exactly one must be set.
type Substitution struct {
	From    string `yaml:"from"`
	Pattern string `yaml:"pattern"`
	To      string `yaml:"to"`
}

type rule interface {
	apply(input string) (string, bool)
}

// Engine applies rules repeatedly until the text stops changing or the
// iteration limit is hit.
type Engine struct {
	rules     []rule
	loopLimit int
}

var spaces = regexp.MustCompile(`[ \t]{2,}`)

// NewEngine loads rules from path. A blank path or missing file yields an
// engine that returns its input unchanged.
func NewEngine(path string, loopLimit int) (*Engine, error) {
	if loopLimit <= 0 {
		loopLimit = 30
	}
	if strings.TrimSpace(path) == "" {
		return &Engine{loopLimit: loopLimit}, nil
	}

	contents, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &Engine{loopLimit: loopLimit}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read rules file %q: %w", path, err)
	}

	var doc File
	if err := yaml.Unmarshal(contents, &doc); err != nil {
		return nil, fmt.Errorf("parse rules file %q: %w", path, err)
	}
	engine, err := Compile(doc, loopLimit)
	if err != nil {
		return nil, fmt.Errorf("rules file %q: %w", path, err)
	}
	return engine, nil
}

// Compile builds an engine from an in-memory rules document.
func Compile(doc File, loopLimit int) (*Engine, error) {
	if loopLimit <= 0 {
		loopLimit = 30
	}
	compiled := make([]rule, 0, len(doc.Substitutions)+1)

	if filler, err := compileFillers(doc.Fillers); err != nil {
		return nil, err
	} else if filler != nil {
		compiled = append(compiled, filler)
	}

	for i, sub := range doc.Substitutions {
		r, err := sub.compile()
		if err != nil {
			return nil, fmt.Errorf("substitution %d: %w", i+1, err)
		}
		compiled = append(compiled, r)
	}
	return &Engine{rules: compiled, loopLimit: loopLimit}, nil
}

// Apply transforms text deterministically.
func (e *Engine) Apply(text string) (string, error) {
	if e == nil || len(e.rules) == 0 {
		return text, nil
	}

	result := text
	for i := 0; i < e.loopLimit; i++ {
		changed := false
		for _, r := range e.rules {
			if next, ok := r.apply(result); ok {
				result = next
				changed = true
			}
		}
		if !changed {
			break
		}
	}
	return strings.TrimSpace(spaces.ReplaceAllString(result, " ")), nil
}

func (s Substitution) compile() (rule, error) {
	from := strings.TrimSpace(s.From)
	pattern := strings.TrimSpace(s.Pattern)

	switch {
	case from != "" && pattern != "":
		return nil, errors.New("set either from or pattern, not both")
	case from != "":
		re, err := regexp.Compile(`(?i)` + regexp.QuoteMeta(from))
		if err != nil {
			return nil, err
		}
		return replaceRule{re: re, to: s.To, literal: true}, nil
	case pattern != "":
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern: %w", err)
		}
		return replaceRule{re: re, to: s.To}, nil
	default:
		return nil, errors.New("from or pattern is required")
	}
}

type replaceRule struct {
	re      *regexp.Regexp
	to      string
	literal bool
}

func (r replaceRule) apply(input string) (string, bool) {
	var output string
	if r.literal {
		output = r.re.ReplaceAllLiteralString(input, r.to)
	} else {
		output = r.re.ReplaceAllString(input, r.to)
	}
	return output, output != input
}

// compileFillers matches whole filler words plus one trailing comma.
func compileFillers(fillers []string) (rule, error) {
	quoted := make([]string, 0, len(fillers))
	for _, f := range fillers {
		if f = strings.TrimSpace(f); f != "" {
			quoted = append(quoted, regexp.QuoteMeta(f))
		}
	}
	if len(quoted) == 0 {
		return nil, nil
	}
	re, err := regexp.Compile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b,?`)
	if err != nil {
		return nil, fmt.Errorf("invalid fillers: %w", err)
	}
	return replaceRule{re: re, literal: true}, nil
}
