package textlayout

import (
	"strings"
	"testing"

	"github.com/genricoloni/versecast/internal/domain"
)

var (
	_ domain.TextMeasurer = Monospace{}
	_ domain.TextMeasurer = (*Faces)(nil)
)

func charWidth(s string) int { return len([]rune(s)) }

func TestWrap(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		maxWidth int
		want     []string
	}{
		{name: "Fits on one line", text: "hola mundo", maxWidth: 20, want: []string{"hola mundo"}},
		{name: "Greedy break", text: "aa bb cc dd", maxWidth: 5, want: []string{"aa bb", "cc dd"}},
		{name: "Long word alone", text: "a extraordinario b", maxWidth: 5, want: []string{"a", "extraordinario", "b"}},
		{name: "Explicit newlines kept", text: "uno\n\ndos", maxWidth: 50, want: []string{"uno", "", "dos"}},
		{name: "Trailing newline dropped", text: "uno\n", maxWidth: 50, want: []string{"uno"}},
		{name: "No width limit", text: "a b c d e f", maxWidth: 0, want: []string{"a b c d e f"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lines := Wrap(tt.text, tt.maxWidth, charWidth)
			var got []string
			for _, l := range lines {
				got = append(got, l.Text)
				if l.Width != charWidth(l.Text) {
					t.Errorf("line %q width %d", l.Text, l.Width)
				}
			}
			if strings.Join(got, "|") != strings.Join(tt.want, "|") {
				t.Errorf("Wrap = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMonospace_Measure(t *testing.T) {
	m := Monospace{Advance: 0.5, LineHeight: 1}

	w, h := m.Measure("abcd efgh", 10, 1000)
	if w != 45 || h != 10 {
		t.Errorf("single line = %dx%d, want 45x10", w, h)
	}
	w, h = m.Measure("abcd efgh", 10, 30)
	if w != 20 || h != 20 {
		t.Errorf("wrapped = %dx%d, want 20x20", w, h)
	}
}

func TestMonospace_Monotonic(t *testing.T) {
	m := NewMonospace()
	text := "Porque de tal manera amó Dios al mundo, que ha dado a su Hijo unigénito, para que todo aquel que en él cree, no se pierda, mas tenga vida eterna."
	const boxW, boxH = 800, 450

	fits := func(size int) bool {
		w, h := m.Measure(text, size, boxW)
		return w <= boxW && h <= boxH
	}
	seenMiss := false
	for size := 20; size <= 300; size++ {
		if !fits(size) {
			seenMiss = true
		} else if seenMiss {
			t.Fatalf("fits at %d after failing at a smaller size", size)
		}
	}
}

func TestFaces_Measure(t *testing.T) {
	faces, err := NewFaces("")
	if err != nil {
		t.Fatalf("NewFaces failed: %v", err)
	}

	w1, h1 := faces.Measure("Santo, santo, santo", 40, 2000)
	w2, h2 := faces.Measure("Santo, santo, santo", 80, 2000)
	if w1 <= 0 || h1 != faces.LineHeight(40) {
		t.Errorf("40px extent = %dx%d", w1, h1)
	}
	if w2 <= w1 || h2 <= h1 {
		t.Errorf("80px extent %dx%d not larger than 40px %dx%d", w2, h2, w1, h1)
	}

	_, wrapped := faces.Measure("Santo, santo, santo", 80, w2/2)
	if wrapped <= h2 {
		t.Errorf("narrow box should wrap, height %d", wrapped)
	}
}

func TestNewFaces_MissingFile(t *testing.T) {
	if _, err := NewFaces("/nonexistent/font.ttf"); err == nil {
		t.Error("expected error for missing font")
	}
}
