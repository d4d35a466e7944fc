package contract

import (
	"errors"
	"testing"
)

type item struct {
	Name string `json:"name"`
}

var listExpect = Expect{Key: "problems"}

func TestDecode_Shapes(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		exp     Expect
		want    Shape
		payload string
	}{
		{
			name:    "wrapped mapping",
			raw:     `{"problems": [{"name": "a"}], "synthesis_notes": "n"}`,
			exp:     listExpect,
			want:    ShapeWrapped,
			payload: `[{"name": "a"}]`,
		},
		{
			name:    "bare sequence",
			raw:     `[{"name": "a"}]`,
			exp:     listExpect,
			want:    ShapeExpected,
			payload: `[{"name": "a"}]`,
		},
		{
			name:    "unknown mapping uses first value in document order",
			raw:     `{"zeta": [{"name": "z"}], "alpha": [{"name": "a"}]}`,
			exp:     listExpect,
			want:    ShapeUnknown,
			payload: `[{"name": "z"}]`,
		},
		{
			name:    "empty mapping",
			raw:     `{}`,
			exp:     listExpect,
			want:    ShapeUnknown,
			payload: `[]`,
		},
		{
			name: "scalar",
			raw:  `42`,
			exp:  listExpect,
			want: ShapeMalformed,
		},
		{
			name: "prose",
			raw:  `I could not find any problems.`,
			exp:  listExpect,
			want: ShapeMalformed,
		},
		{
			name:    "fenced",
			raw:     "```json\n{\"problems\": []}\n```",
			exp:     listExpect,
			want:    ShapeWrapped,
			payload: `[]`,
		},
		{
			name:    "prose around object",
			raw:     "Here is the analysis:\n{\"problems\": []}\nLet me know!",
			exp:     listExpect,
			want:    ShapeWrapped,
			payload: `[]`,
		},
		{
			name:    "object stage takes whole mapping",
			raw:     `{"problem_statement": "x"}`,
			exp:     Expect{Key: "specification", Object: true},
			want:    ShapeExpected,
			payload: `{"problem_statement": "x"}`,
		},
		{
			name:    "object stage unwraps key",
			raw:     `{"specification": {"problem_statement": "x"}}`,
			exp:     Expect{Key: "specification", Object: true},
			want:    ShapeWrapped,
			payload: `{"problem_statement": "x"}`,
		},
		{
			name: "object stage rejects array",
			raw:  `[1, 2]`,
			exp:  Expect{Key: "specification", Object: true},
			want: ShapeMalformed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Decode(tt.raw, tt.exp)
			if d.Shape != tt.want {
				t.Fatalf("Shape = %v, want %v (err: %v)", d.Shape, tt.want, d.Err)
			}
			if tt.want == ShapeMalformed {
				if d.Err == nil {
					t.Error("malformed decode should carry an error")
				}
				return
			}
			if string(d.Payload) != tt.payload {
				t.Errorf("Payload = %s, want %s", d.Payload, tt.payload)
			}
		})
	}
}

func TestParse_WellFormedNeverCallsFallback(t *testing.T) {
	inputs := []string{
		`{"problems": [{"name": "a"}, {"name": "b"}]}`,
		`[{"name": "a"}]`,
		`{"other": []}`,
	}

	for _, raw := range inputs {
		called := false
		res := Parse(raw, listExpect, func() []item {
			called = true
			return nil
		})
		if called {
			t.Errorf("Parse(%s) invoked the fallback", raw)
		}
		if res.Degraded {
			t.Errorf("Parse(%s) marked degraded", raw)
		}
	}
}

func TestParse_MalformedUsesFallback(t *testing.T) {
	res := Parse(`{"problems": [`, listExpect, func() []item {
		return []item{}
	})

	if !res.Degraded {
		t.Fatal("expected degraded result")
	}
	if res.Value == nil || len(res.Value) != 0 {
		t.Errorf("Value = %v, want empty fallback", res.Value)
	}
	if !errors.Is(res.Err, ErrNotStructured) {
		t.Errorf("Err = %v, want ErrNotStructured", res.Err)
	}
}

func TestParse_OuterShapeMismatchUsesFallback(t *testing.T) {
	res := Parse(`{"problems": "none found"}`, listExpect, func() []item {
		return []item{{Name: "fallback"}}
	})

	if !res.Degraded {
		t.Fatal("expected degraded result")
	}
	if res.Shape != ShapeWrapped {
		t.Errorf("Shape = %v, want wrapped", res.Shape)
	}
	if len(res.Value) != 1 || res.Value[0].Name != "fallback" {
		t.Errorf("Value = %v, want fallback value", res.Value)
	}
}

func TestResult_Note(t *testing.T) {
	res := Parse(`{"ranked_problems": [], "recommendation": "Fix sync first", "count": 3}`,
		Expect{Key: "ranked_problems"}, func() []item { return nil })

	if got := res.Note("recommendation"); got != "Fix sync first" {
		t.Errorf("Note(recommendation) = %q", got)
	}
	if got := res.Note("count"); got != "3" {
		t.Errorf("Note(count) = %q, want raw value", got)
	}
	if got := res.Note("missing"); got != "" {
		t.Errorf("Note(missing) = %q, want empty", got)
	}
}
