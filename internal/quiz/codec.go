package quiz

import (
	"encoding/json"
	"fmt"
	"path"
	"strings"
)

// MaxMatchPairs bounds the term/definition lists of a match question.
const MaxMatchPairs = 8

// mrqSep joins and splits the stored key list of an mrq correct payload.
const mrqSep = ", "

// MatchItem is one entry of a match question's term or definition list.
type MatchItem struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Decoded is the canonical in-memory form of a question's payloads. Which
// fields are populated depends on Type; the scoring engine and the session
// machine operate on this form only and never on the raw columns.
type Decoded struct {
	ID   string
	Type QuestionType

	// mcq/mrq: option labels in authored order ("A. First option", ...).
	Options []string
	// mcq/tf: the single correct key.
	CorrectKey string
	// mrq: correct keys in submission order.
	CorrectSet []string

	// match only.
	Terms       []MatchItem
	Definitions []MatchItem
	// Mapping relates term id to definition id. Entries referencing ids
	// missing from the current lists are dropped during decode.
	Mapping map[string]string
}

// Warning codes surfaced by Decode. Decode repairs what it can and reports
// here instead of failing the read.
const (
	WarnMalformedOptions = "malformed_options"
	WarnMalformedCorrect = "malformed_correct"
	WarnDanglingMapping  = "dangling_mapping"
)

// Warning is a non-fatal note about a payload that needed repair on read.
type Warning struct {
	QuestionID string
	Code       string
	Detail     string
}

func (w Warning) String() string {
	return fmt.Sprintf("question %s: %s: %s", w.QuestionID, w.Code, w.Detail)
}

// ValidationError reports a write-time payload that violates its type's
// shape contract. Reads never produce it.
type ValidationError struct{ Msg string }

func (e *ValidationError) Error() string { return e.Msg }

func validationf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// Decode interprets q's stored options/correct payloads per q.Type. It is a
// pure function of q: empty payloads decode to zero-value structures and
// malformed ones fall back to the same with a warning, so a read never
// fails here.
func Decode(q Question) (Decoded, []Warning) {
	d := Decoded{ID: q.ID, Type: q.Type}
	var warns []Warning

	switch q.Type {
	case TypeMCQ, TypeMRQ, TypeTrueFalse:
		opts, ok := decodeStringList(q.Options)
		if !ok {
			warns = append(warns, Warning{q.ID, WarnMalformedOptions, "options is not a JSON string list"})
		}
		d.Options = opts
		if q.Type == TypeMRQ {
			d.CorrectSet = SplitKeys(q.Correct)
		} else {
			d.CorrectKey = strings.TrimSpace(q.Correct)
		}

	case TypeMatch:
		var mw []Warning
		d, mw = decodeMatch(q)
		warns = append(warns, mw...)

	case TypeFlashcard:
		// Text/explanation only; nothing to decode and nothing to score.
	}
	return d, warns
}

// SplitKeys parses an mrq correct payload into its key list, preserving the
// stored order. Empty input yields nil.
func SplitKeys(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	return strings.Split(raw, mrqSep)
}

// JoinKeys is the inverse of SplitKeys; keys keep their given order.
func JoinKeys(keys []string) string {
	return strings.Join(keys, mrqSep)
}

// Encode serializes d back into the stored payload form, validating the
// shape contract for d.Type. This is the write path; unlike Decode it
// rejects payloads that could not be scored later.
func Encode(d Decoded) (options, correct string, err error) {
	switch d.Type {
	case TypeMCQ:
		if d.CorrectKey == "" {
			return "", "", validationf("mcq: correct key required")
		}
		if !inKeySpace(d.Options, d.CorrectKey) {
			return "", "", validationf("mcq: correct key %q not among options", d.CorrectKey)
		}
		return encodeStringList(d.Options), d.CorrectKey, nil

	case TypeMRQ:
		if len(d.CorrectSet) == 0 {
			return "", "", validationf("mrq: at least one correct key required")
		}
		for _, k := range d.CorrectSet {
			if !inKeySpace(d.Options, k) {
				return "", "", validationf("mrq: correct key %q not among options", k)
			}
		}
		return encodeStringList(d.Options), JoinKeys(d.CorrectSet), nil

	case TypeTrueFalse:
		switch strings.ToLower(d.CorrectKey) {
		case "true", "false":
		default:
			return "", "", validationf("tf: correct must be true or false, got %q", d.CorrectKey)
		}
		return encodeStringList(d.Options), d.CorrectKey, nil

	case TypeFlashcard:
		return "", "", nil

	case TypeMatch:
		return encodeMatch(d)
	}
	return "", "", validationf("unknown question type %q", d.Type)
}

// OptionKey extracts the answer key from an option label: the text before
// the first "." ("A. First option" -> "A"), or the whole label when there
// is no such prefix.
func OptionKey(label string) string {
	if i := strings.Index(label, "."); i > 0 {
		return strings.TrimSpace(label[:i])
	}
	return strings.TrimSpace(label)
}

// inKeySpace accepts either the extracted key or the full label, matching
// how authored banks store the correct value. An empty option list skips
// the check so legacy questions without options remain writable.
func inKeySpace(options []string, key string) bool {
	if len(options) == 0 {
		return true
	}
	for _, label := range options {
		if key == label || key == OptionKey(label) {
			return true
		}
	}
	return false
}

// NormalizeImageRef reduces an image reference to its bare filename,
// stripping any directory prefix left over from older upload paths.
func NormalizeImageRef(ref string) string {
	ref = strings.TrimSpace(strings.ReplaceAll(ref, "\\", "/"))
	if ref == "" {
		return ""
	}
	base := path.Base(ref)
	if base == "." || base == "/" {
		return ""
	}
	return base
}

// --- match payloads ---

// flexID tolerates banks that stored match ids as JSON numbers.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexID(n.String())
	return nil
}

type matchItemJSON struct {
	ID   flexID `json:"id"`
	Text string `json:"text"`
}

type matchOptionsJSON struct {
	Terms       []matchItemJSON `json:"terms"`
	Definitions []matchItemJSON `json:"definitions"`
}

func decodeMatch(q Question) (Decoded, []Warning) {
	d := Decoded{ID: q.ID, Type: TypeMatch, Mapping: map[string]string{}}
	var warns []Warning

	if raw := strings.TrimSpace(q.Options); raw != "" {
		var mo matchOptionsJSON
		if err := json.Unmarshal([]byte(raw), &mo); err != nil {
			warns = append(warns, Warning{q.ID, WarnMalformedOptions, err.Error()})
		} else {
			for _, t := range mo.Terms {
				d.Terms = append(d.Terms, MatchItem{ID: string(t.ID), Text: t.Text})
			}
			for _, def := range mo.Definitions {
				d.Definitions = append(d.Definitions, MatchItem{ID: string(def.ID), Text: def.Text})
			}
		}
	}

	if raw := strings.TrimSpace(q.Correct); raw != "" {
		var m map[string]flexID
		if err := json.Unmarshal([]byte(raw), &m); err != nil {
			warns = append(warns, Warning{q.ID, WarnMalformedCorrect, err.Error()})
		} else {
			termIDs := itemIDSet(d.Terms)
			defIDs := itemIDSet(d.Definitions)
			for term, def := range m {
				// Stale entries from edited lists are repaired away, not
				// treated as errors.
				if _, ok := termIDs[term]; !ok {
					warns = append(warns, Warning{q.ID, WarnDanglingMapping,
						fmt.Sprintf("term id %q not in terms list", term)})
					continue
				}
				if _, ok := defIDs[string(def)]; !ok {
					warns = append(warns, Warning{q.ID, WarnDanglingMapping,
						fmt.Sprintf("definition id %q not in definitions list", def)})
					continue
				}
				d.Mapping[term] = string(def)
			}
		}
	}
	return d, warns
}

func encodeMatch(d Decoded) (options, correct string, err error) {
	if len(d.Terms) != len(d.Definitions) {
		return "", "", validationf("match: %d terms but %d definitions", len(d.Terms), len(d.Definitions))
	}
	if len(d.Terms) > MaxMatchPairs {
		return "", "", validationf("match: at most %d pairs, got %d", MaxMatchPairs, len(d.Terms))
	}
	termIDs := itemIDSet(d.Terms)
	if len(termIDs) != len(d.Terms) {
		return "", "", validationf("match: duplicate term ids")
	}
	defIDs := itemIDSet(d.Definitions)
	if len(defIDs) != len(d.Definitions) {
		return "", "", validationf("match: duplicate definition ids")
	}
	for _, t := range d.Terms {
		if _, ok := d.Mapping[t.ID]; !ok {
			return "", "", validationf("match: term %q has no mapping", t.ID)
		}
	}
	for term, def := range d.Mapping {
		if _, ok := termIDs[term]; !ok {
			return "", "", validationf("match: mapping references unknown term %q", term)
		}
		if _, ok := defIDs[def]; !ok {
			return "", "", validationf("match: mapping references unknown definition %q", def)
		}
	}

	mo := matchOptionsJSON{}
	for _, t := range d.Terms {
		mo.Terms = append(mo.Terms, matchItemJSON{ID: flexID(t.ID), Text: t.Text})
	}
	for _, def := range d.Definitions {
		mo.Definitions = append(mo.Definitions, matchItemJSON{ID: flexID(def.ID), Text: def.Text})
	}
	ob, err := json.Marshal(mo)
	if err != nil {
		return "", "", err
	}
	cb, err := json.Marshal(d.Mapping)
	if err != nil {
		return "", "", err
	}
	return string(ob), string(cb), nil
}

func itemIDSet(items []MatchItem) map[string]struct{} {
	s := make(map[string]struct{}, len(items))
	for _, it := range items {
		s[it.ID] = struct{}{}
	}
	return s
}

// --- shared list helpers ---

func decodeStringList(raw string) ([]string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, true
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, false
	}
	return out, true
}

func encodeStringList(list []string) string {
	if len(list) == 0 {
		return ""
	}
	b, _ := json.Marshal(list)
	return string(b)
}
