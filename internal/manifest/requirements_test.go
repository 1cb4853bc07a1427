package manifest

import (
	"errors"
	"strings"
	"testing"
)

func TestParseRequirements(t *testing.T) {
	input := `
# runtime deps
requests==2.31.0
discord.py>=2.3,<3
python-dotenv
aiohttp[speedups]~=3.9  # extras pass through
`

	reqs, err := ParseRequirements(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseRequirements: %v", err)
	}

	want := []Requirement{
		{Name: "requests", Constraint: "==2.31.0"},
		{Name: "discord.py", Constraint: ">=2.3,<3"},
		{Name: "python-dotenv"},
		{Name: "aiohttp", Constraint: "~=3.9"},
	}

	if len(reqs) != len(want) {
		t.Fatalf("len(reqs) = %d, want %d", len(reqs), len(want))
	}
	for i, w := range want {
		if reqs[i] != w {
			t.Fatalf("reqs[%d] = %+v, want %+v", i, reqs[i], w)
		}
	}
}

func TestParseRequirementsEmpty(t *testing.T) {
	reqs, err := ParseRequirements(strings.NewReader("\n# nothing here\n"))
	if err != nil {
		t.Fatalf("ParseRequirements: %v", err)
	}
	if len(reqs) != 0 {
		t.Fatalf("reqs = %v, want empty", reqs)
	}
}

func TestParseRequirementsMalformed(t *testing.T) {
	tests := []struct {
		name  string
		entry string
	}{
		{name: "triple equals", entry: "not-a-real-package===bad"},
		{name: "bare operator", entry: "==1.0"},
		{name: "missing version", entry: "requests=="},
		{name: "invalid name", entry: "-leading-dash==1.0"},
		{name: "unterminated extras", entry: "aiohttp[speedups==1.0"},
		{name: "stray specifier", entry: "requests=1.0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRequirements(strings.NewReader(tt.entry))
			if err == nil {
				t.Fatalf("entry %q parsed, want error", tt.entry)
			}
			if !errors.Is(err, ErrRequirements) {
				t.Fatalf("error %v is not ErrRequirements", err)
			}
		})
	}
}

func TestParseRequirementsLineNumber(t *testing.T) {
	input := "requests==2.31.0\nbroken===x\n"

	_, err := ParseRequirements(strings.NewReader(input))
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "line 2") {
		t.Fatalf("error %q does not name the failing line", err)
	}
}
