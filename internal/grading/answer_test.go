package grading

import (
	"encoding/json"
	"testing"
)

func q(w WidgetType, answer string) Question {
	return Question{ID: "q", AtomID: "a", WidgetType: w, CorrectAnswer: json.RawMessage(answer)}
}

func TestCheckAnswer_SingleChoice(t *testing.T) {
	tests := []struct {
		name   string
		q      Question
		answer string
		want   bool
	}{
		{"mcq exact", q(WidgetMCQ, `"Paris"`), `"Paris"`, true},
		{"mcq trimmed", q(WidgetMCQ, `"Paris"`), `"  Paris "`, true},
		{"mcq case sensitive", q(WidgetMCQ, `"Paris"`), `"paris"`, false},
		{"mcq wrong", q(WidgetMCQ, `"Paris"`), `"Rome"`, false},
		{"mcq numeric key", q(WidgetMCQ, `2`), `"2"`, true},
		{"true false bool", q(WidgetTrueFalse, `true`), `true`, true},
		{"true false string", q(WidgetTrueFalse, `true`), `"true"`, true},
		{"true false wrong", q(WidgetTrueFalse, `true`), `false`, false},
		{"yes no", q(WidgetYesNo, `"YES"`), `"YES"`, true},
		{"array is not scalar", q(WidgetMCQ, `"Paris"`), `["Paris"]`, false},
		{"malformed", q(WidgetMCQ, `"Paris"`), `"Paris`, false},
		{"empty", q(WidgetMCQ, `"Paris"`), ``, false},
		{"null", q(WidgetMCQ, `"Paris"`), `null`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CheckAnswer(tt.q, json.RawMessage(tt.answer)); got != tt.want {
				t.Errorf("CheckAnswer(%s) = %v, want %v", tt.answer, got, tt.want)
			}
		})
	}
}

func TestCheckAnswer_Sequences(t *testing.T) {
	tests := []struct {
		name   string
		q      Question
		answer string
		want   bool
	}{
		{"mcm any order", q(WidgetMCM, `["b","a","c"]`), `["c","a","b"]`, true},
		{"mcm missing item", q(WidgetMCM, `["a","b"]`), `["a"]`, false},
		{"mcm extra item", q(WidgetMCM, `["a","b"]`), `["a","b","c"]`, false},
		{"mcm duplicates count", q(WidgetMCM, `["a","b"]`), `["a","a"]`, false},
		{"ordering exact", q(WidgetOrdering, `["1","2","3"]`), `["1","2","3"]`, true},
		{"ordering swapped", q(WidgetOrdering, `["1","2","3"]`), `["2","1","3"]`, false},
		{"ordering numbers", q(WidgetOrdering, `[3,1,2]`), `[3,1,2]`, true},
		{"fill blanks", q(WidgetFillBlanks, `["x","y"]`), `["x","y"]`, true},
		{"fill blanks order matters", q(WidgetFillBlanks, `["x","y"]`), `["y","x"]`, false},
		{"fill blanks wrong shape", q(WidgetFillBlanks, `["x","y"]`), `"x y"`, false},
		{"nested arrays rejected", q(WidgetOrdering, `["a"]`), `[["a"]]`, false},
		{"padded blank is wrong", q(WidgetFillBlanks, `["cat","1"]`), `["  cat ","1"]`, false},
		{"number vs string is wrong", q(WidgetFillBlanks, `["cat","1"]`), `["cat",1]`, false},
		{"ordering number vs string is wrong", q(WidgetOrdering, `[1,2]`), `["1","2"]`, false},
		{"mcm padded item is wrong", q(WidgetMCM, `["a","b"]`), `["b"," a"]`, false},
		{"escaped string matches", q(WidgetFillBlanks, `["a"]`), `["\u0061"]`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CheckAnswer(tt.q, json.RawMessage(tt.answer)); got != tt.want {
				t.Errorf("CheckAnswer(%s) = %v, want %v", tt.answer, got, tt.want)
			}
		})
	}
}

func TestCheckAnswer_Matching(t *testing.T) {
	key := q(WidgetMatching, `{"dog":"bark","cat":"meow","nested":{"n":[1,2]}}`)
	tests := []struct {
		answer string
		want   bool
	}{
		{`{"cat":"meow","dog":"bark","nested":{"n":[1,2]}}`, true},
		{`{"cat":"bark","dog":"meow","nested":{"n":[1,2]}}`, false},
		{`{"cat":"meow","dog":"bark"}`, false},
		{`{"cat":"meow","dog":"bark","nested":{"n":[2,1]}}`, false},
		{`[]`, false},
	}
	for _, tt := range tests {
		if got := CheckAnswer(key, json.RawMessage(tt.answer)); got != tt.want {
			t.Errorf("CheckAnswer(%s) = %v, want %v", tt.answer, got, tt.want)
		}
	}
}

func TestCheckAnswer_UnknownWidget(t *testing.T) {
	if CheckAnswer(q("SLIDER", `5`), json.RawMessage(`5`)) {
		t.Error("unknown widget type must grade as incorrect")
	}
	if WidgetType("SLIDER").Known() {
		t.Error("SLIDER should not be a known widget")
	}
}

func TestCheckAnswer_Deterministic(t *testing.T) {
	key := q(WidgetMCM, `["a","b","c"]`)
	answer := json.RawMessage(`["c","b","a"]`)
	first := CheckAnswer(key, answer)
	for i := 0; i < 100; i++ {
		if CheckAnswer(key, answer) != first {
			t.Fatal("CheckAnswer returned different results for identical inputs")
		}
	}
	if string(key.CorrectAnswer) != `["a","b","c"]` || string(answer) != `["c","b","a"]` {
		t.Fatal("CheckAnswer mutated its inputs")
	}
}
