package script

import "testing"

func TestNew_SentenceStarts(t *testing.T) {
	t.Parallel()

	s := New("The quick brown fox.", "It jumps high.")
	if s.Len() != 7 {
		t.Fatalf("expected 7 words, got %d", s.Len())
	}
	if !s.Word(0).SentenceStart {
		t.Error("expected word 0 to be sentence-initial")
	}
	if !s.Word(4).SentenceStart {
		t.Error("expected word 4 ('It') to be sentence-initial")
	}
	if s.Word(1).SentenceStart {
		t.Error("expected word 1 to not be sentence-initial")
	}
}

func TestNew_LenientDetection(t *testing.T) {
	t.Parallel()

	s := New("Then Moses spoke to Israel.")
	tests := []struct {
		index   int
		lenient bool
	}{
		{0, false}, // sentence-initial capital, not lenient
		{1, true},  // Moses
		{2, false},
		{3, false},
		{4, true}, // Israel.
	}
	for _, tt := range tests {
		if got := s.Word(tt.index).Lenient; got != tt.lenient {
			t.Errorf("word %d (%q): lenient = %v, want %v", tt.index, s.Word(tt.index).Text, got, tt.lenient)
		}
	}
}

func TestNew_LeadingPunctuation(t *testing.T) {
	t.Parallel()

	s := New(`He said "Behold the day comes.`)
	if !s.Word(2).Lenient {
		t.Errorf("expected quoted capitalized word %q to be lenient", s.Word(2).Text)
	}
}

func TestNew_Empty(t *testing.T) {
	t.Parallel()

	s := New("")
	if s.Len() != 0 {
		t.Errorf("expected empty script, got %d words", s.Len())
	}
}

func TestTexts_Order(t *testing.T) {
	t.Parallel()

	s := New("one two", "three")
	want := []string{"one", "two", "three"}
	got := s.Texts()
	if len(got) != len(want) {
		t.Fatalf("expected %d words, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("word %d: got %q, want %q", i, got[i], want[i])
		}
	}
}
