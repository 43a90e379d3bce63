package relay

import "strings"

// answerPath locates a candidate answer inside a decoded prediction body.
// Keys are walked in order; every key but the last must name an object.
type answerPath []string

func (p answerPath) String() string { return strings.Join(p, ".") }

// lookup returns the string at the path, or "" when any segment is missing,
// has the wrong type, or the final value is not a string.
func (p answerPath) lookup(body map[string]any) string {
	node := body
	for i, key := range p {
		v, ok := node[key]
		if !ok || v == nil {
			return ""
		}
		if i == len(p)-1 {
			s, _ := v.(string)
			return s
		}
		next, ok := v.(map[string]any)
		if !ok {
			return ""
		}
		node = next
	}
	return ""
}

// answerPaths is the fixed precedence for locating the answer. Nested "data"
// fields win over top-level ones.
var answerPaths = []answerPath{
	{"data", "text"},
	{"data", "answer"},
	{"text"},
	{"answer"},
	{"response"},
}

// AnswerPaths returns the lookup order as dotted paths.
func AnswerPaths() []string {
	out := make([]string, len(answerPaths))
	for i, p := range answerPaths {
		out[i] = p.String()
	}
	return out
}

// ExtractAnswer returns the first non-empty string found along AnswerPaths.
func ExtractAnswer(body map[string]any) (string, bool) {
	for _, p := range answerPaths {
		if s := p.lookup(body); s != "" {
			return s, true
		}
	}
	return "", false
}
