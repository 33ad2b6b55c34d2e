package practice_test

import (
	"strings"
	"testing"
	"time"

	"github.com/Ebbbabebba/sermable-54cd6c15-sub000/internal/practice"
)

const unitsYAML = `
units:
  - id: daniel-3-1
    title: "Daniel 3, opening"
    deadline: 2026-06-01T00:00:00Z
    sentences:
      - "Nebuchadnezzar the king made an image of gold."
      - "He set it up in the plain of Dura."
  - id: psalm-23-1
    sentences:
      - "The Lord is my shepherd."
`

func TestLoadUnitsFromReader(t *testing.T) {
	t.Parallel()

	units, err := practice.LoadUnitsFromReader(strings.NewReader(unitsYAML))
	if err != nil {
		t.Fatalf("LoadUnitsFromReader: %v", err)
	}
	if len(units) != 2 {
		t.Fatalf("units = %d, want 2", len(units))
	}

	first := units[0]
	if first.ID != "daniel-3-1" || first.Title != "Daniel 3, opening" {
		t.Errorf("first unit = %q/%q", first.ID, first.Title)
	}
	if len(first.Sentences) != 2 {
		t.Errorf("sentences = %d, want 2", len(first.Sentences))
	}
	wantDeadline := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	if !first.Deadline.Equal(wantDeadline) {
		t.Errorf("deadline = %v, want %v", first.Deadline, wantDeadline)
	}

	// Title falls back to the id, position to file order.
	if units[1].Title != "psalm-23-1" {
		t.Errorf("fallback title = %q, want the id", units[1].Title)
	}
	if first.Position != 1 || units[1].Position != 2 {
		t.Errorf("positions = %d, %d, want file order 1, 2", first.Position, units[1].Position)
	}
}

func TestLoadUnitsExplicitPosition(t *testing.T) {
	t.Parallel()

	const yaml = `
units:
  - id: b
    position: 2
    sentences: ["later"]
  - id: a
    position: 1
    sentences: ["earlier"]
`
	units, err := practice.LoadUnitsFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("LoadUnitsFromReader: %v", err)
	}
	if units[0].Position != 2 || units[1].Position != 1 {
		t.Errorf("positions = %d, %d, want the explicit 2, 1", units[0].Position, units[1].Position)
	}
}

func TestLoadUnitsValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "missing id",
			yaml: "units:\n  - sentences: [\"a\"]\n",
			want: "missing id",
		},
		{
			name: "duplicate id",
			yaml: "units:\n  - id: u\n    sentences: [\"a\"]\n  - id: u\n    sentences: [\"b\"]\n",
			want: "duplicate id",
		},
		{
			name: "no sentences",
			yaml: "units:\n  - id: u\n",
			want: "no sentences",
		},
		{
			name: "blank sentence",
			yaml: "units:\n  - id: u\n    sentences: [\"a\", \"  \"]\n",
			want: "is blank",
		},
		{
			name: "unknown field",
			yaml: "units:\n  - id: u\n    sentences: [\"a\"]\n    colour: red\n",
			want: "colour",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := practice.LoadUnitsFromReader(strings.NewReader(tc.yaml))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error = %v, want mention of %q", err, tc.want)
			}
		})
	}
}
