package quiz_test

import (
	"errors"
	"reflect"
	"testing"

	"github.com/quizforge/quizforge/internal/quiz"
)

func TestDecodeEmptyPayloads(t *testing.T) {
	for _, typ := range []quiz.QuestionType{
		quiz.TypeMCQ, quiz.TypeMRQ, quiz.TypeTrueFalse, quiz.TypeFlashcard, quiz.TypeMatch,
	} {
		t.Run(string(typ), func(t *testing.T) {
			d, warns := quiz.Decode(quiz.Question{ID: "q1", Type: typ})
			if len(warns) != 0 {
				t.Fatalf("empty payload produced warnings: %v", warns)
			}
			if len(d.Options) != 0 || d.CorrectKey != "" || len(d.CorrectSet) != 0 ||
				len(d.Terms) != 0 || len(d.Definitions) != 0 || len(d.Mapping) != 0 {
				t.Fatalf("empty payload did not decode to zero values: %+v", d)
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		in   quiz.Decoded
	}{
		{
			name: "mcq minimal",
			in:   quiz.Decoded{Type: quiz.TypeMCQ, CorrectKey: "A"},
		},
		{
			name: "mcq populated",
			in: quiz.Decoded{
				Type:       quiz.TypeMCQ,
				Options:    []string{"A. First", "B. Second", "C. Third"},
				CorrectKey: "B",
			},
		},
		{
			name: "mrq minimal",
			in:   quiz.Decoded{Type: quiz.TypeMRQ, CorrectSet: []string{"A"}},
		},
		{
			name: "mrq populated",
			in: quiz.Decoded{
				Type:       quiz.TypeMRQ,
				Options:    []string{"A. One", "B. Two", "C. Three"},
				CorrectSet: []string{"C", "A"}, // submission order survives
			},
		},
		{
			name: "tf minimal",
			in:   quiz.Decoded{Type: quiz.TypeTrueFalse, CorrectKey: "true"},
		},
		{
			name: "tf populated",
			in: quiz.Decoded{
				Type:       quiz.TypeTrueFalse,
				Options:    []string{"True", "False"},
				CorrectKey: "False",
			},
		},
		{
			name: "match minimal",
			in:   quiz.Decoded{Type: quiz.TypeMatch, Mapping: map[string]string{}},
		},
		{
			name: "match populated",
			in: quiz.Decoded{
				Type: quiz.TypeMatch,
				Terms: []quiz.MatchItem{
					{ID: "1", Text: "KEK"},
					{ID: "2", Text: "TEK"},
				},
				Definitions: []quiz.MatchItem{
					{ID: "1", Text: "Key Encryption Key"},
					{ID: "2", Text: "Traffic Encryption Key"},
				},
				Mapping: map[string]string{"1": "1", "2": "2"},
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			options, correct, err := quiz.Encode(tc.in)
			if err != nil {
				t.Fatalf("encode: %v", err)
			}
			got, warns := quiz.Decode(quiz.Question{
				ID:      "q1",
				Type:    tc.in.Type,
				Options: options,
				Correct: correct,
			})
			if len(warns) != 0 {
				t.Fatalf("round-trip produced warnings: %v", warns)
			}
			want := tc.in
			want.ID = "q1"
			if want.Type == quiz.TypeMatch && want.Mapping == nil {
				want.Mapping = map[string]string{}
			}
			if !reflect.DeepEqual(got, want) {
				t.Fatalf("round-trip mismatch:\n got %+v\nwant %+v", got, want)
			}
		})
	}
}

func TestDecodeMalformedOptionsFallsBack(t *testing.T) {
	d, warns := quiz.Decode(quiz.Question{
		ID:      "q1",
		Type:    quiz.TypeMCQ,
		Options: `{"not":"a list"}`,
		Correct: "A",
	})
	if len(d.Options) != 0 {
		t.Fatalf("expected empty options, got %v", d.Options)
	}
	if d.CorrectKey != "A" {
		t.Fatalf("correct key should survive an options failure, got %q", d.CorrectKey)
	}
	if len(warns) != 1 || warns[0].Code != quiz.WarnMalformedOptions {
		t.Fatalf("expected one malformed_options warning, got %v", warns)
	}
}

func TestDecodeMatchDropsDanglingMappings(t *testing.T) {
	d, warns := quiz.Decode(quiz.Question{
		ID:      "q1",
		Type:    quiz.TypeMatch,
		Options: `{"terms":[{"id":"1","text":"a"},{"id":"2","text":"b"}],"definitions":[{"id":"1","text":"x"}]}`,
		Correct: `{"1":"1","2":"9","7":"1"}`,
	})
	if want := map[string]string{"1": "1"}; !reflect.DeepEqual(d.Mapping, want) {
		t.Fatalf("mapping = %v, want %v", d.Mapping, want)
	}
	var dangling int
	for _, w := range warns {
		if w.Code == quiz.WarnDanglingMapping {
			dangling++
		}
	}
	if dangling != 2 {
		t.Fatalf("expected 2 dangling warnings, got %d (%v)", dangling, warns)
	}
}

func TestDecodeMatchNumericIDs(t *testing.T) {
	d, warns := quiz.Decode(quiz.Question{
		ID:      "q1",
		Type:    quiz.TypeMatch,
		Options: `{"terms":[{"id":1,"text":"a"}],"definitions":[{"id":1,"text":"x"}]}`,
		Correct: `{"1":1}`,
	})
	if len(warns) != 0 {
		t.Fatalf("unexpected warnings: %v", warns)
	}
	if d.Terms[0].ID != "1" || d.Mapping["1"] != "1" {
		t.Fatalf("numeric ids not normalized: %+v", d)
	}
}

func TestEncodeValidation(t *testing.T) {
	cases := []struct {
		name string
		in   quiz.Decoded
	}{
		{"mcq missing correct", quiz.Decoded{Type: quiz.TypeMCQ}},
		{"mcq correct outside options", quiz.Decoded{
			Type: quiz.TypeMCQ, Options: []string{"A. x", "B. y"}, CorrectKey: "C",
		}},
		{"mrq empty set", quiz.Decoded{Type: quiz.TypeMRQ, Options: []string{"A. x"}}},
		{"tf bad value", quiz.Decoded{Type: quiz.TypeTrueFalse, CorrectKey: "maybe"}},
		{"match uneven lists", quiz.Decoded{
			Type:  quiz.TypeMatch,
			Terms: []quiz.MatchItem{{ID: "1"}},
		}},
		{"match too many pairs", quiz.Decoded{
			Type:        quiz.TypeMatch,
			Terms:       nineItems(),
			Definitions: nineItems(),
			Mapping:     nineMapping(),
		}},
		{"match duplicate term ids", quiz.Decoded{
			Type:        quiz.TypeMatch,
			Terms:       []quiz.MatchItem{{ID: "1"}, {ID: "1"}},
			Definitions: []quiz.MatchItem{{ID: "1"}, {ID: "2"}},
			Mapping:     map[string]string{"1": "1"},
		}},
		{"match unmapped term", quiz.Decoded{
			Type:        quiz.TypeMatch,
			Terms:       []quiz.MatchItem{{ID: "1"}, {ID: "2"}},
			Definitions: []quiz.MatchItem{{ID: "1"}, {ID: "2"}},
			Mapping:     map[string]string{"1": "1"},
		}},
		{"unknown type", quiz.Decoded{Type: "essay"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := quiz.Encode(tc.in)
			var ve *quiz.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
		})
	}
}

func TestEncodeAcceptsFullLabelAsCorrect(t *testing.T) {
	// Older banks store the whole option text rather than the key.
	_, correct, err := quiz.Encode(quiz.Decoded{
		Type:       quiz.TypeMCQ,
		Options:    []string{"A. First", "B. Second"},
		CorrectKey: "B. Second",
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if correct != "B. Second" {
		t.Fatalf("correct = %q", correct)
	}
}

func TestOptionKey(t *testing.T) {
	cases := map[string]string{
		"A. First option": "A",
		"B.Second":        "B",
		"No dot here":     "No dot here",
		". leading dot":   ". leading dot",
	}
	for label, want := range cases {
		if got := quiz.OptionKey(label); got != want {
			t.Errorf("OptionKey(%q) = %q, want %q", label, got, want)
		}
	}
}

func TestSplitJoinKeys(t *testing.T) {
	if got := quiz.SplitKeys(""); got != nil {
		t.Fatalf("SplitKeys(\"\") = %v, want nil", got)
	}
	keys := []string{"C", "A", "B"}
	if got := quiz.SplitKeys(quiz.JoinKeys(keys)); !reflect.DeepEqual(got, keys) {
		t.Fatalf("split(join(%v)) = %v", keys, got)
	}
}

func TestNormalizeImageRef(t *testing.T) {
	cases := map[string]string{
		"":                      "",
		"topology.png":          "topology.png",
		"uploads/topology.png":  "topology.png",
		"a/b/c/diagram.jpg":     "diagram.jpg",
		`uploads\topology.png`:  "topology.png",
		"  uploads/spaced.gif ": "spaced.gif",
	}
	for in, want := range cases {
		if got := quiz.NormalizeImageRef(in); got != want {
			t.Errorf("NormalizeImageRef(%q) = %q, want %q", in, got, want)
		}
	}
}

func nineItems() []quiz.MatchItem {
	out := make([]quiz.MatchItem, 9)
	for i := range out {
		out[i] = quiz.MatchItem{ID: string(rune('1' + i))}
	}
	return out
}

func nineMapping() map[string]string {
	out := make(map[string]string, 9)
	for i := 0; i < 9; i++ {
		id := string(rune('1' + i))
		out[id] = id
	}
	return out
}
