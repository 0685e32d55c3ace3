package language

import "testing"

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want Language
	}{
		{"en", English},
		{"en-US", English},
		{"de_CH", German},
		{"", Unknown},
		{"unknown", Unknown},
		{"not a tag!", Unknown},
	}
	for _, tt := range tests {
		if got := Parse(tt.in); got != tt.want {
			t.Errorf("Parse(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLikelihoodCanSpeak(t *testing.T) {
	tests := []struct {
		from, to Language
		want     float64
	}{
		{English, English, 1.0},
		{Unknown, German, 1.0},
		{German, English, 0.9},
		{Finnish, Swedish, 0.9},
		{Swedish, Finnish, 0.9},
		{Language("fr"), English, 0.5},
		{English, German, 0},
		{Language("fr"), German, 0},
	}
	for _, tt := range tests {
		if got := tt.from.LikelihoodCanSpeak(tt.to); got != tt.want {
			t.Errorf("%s.LikelihoodCanSpeak(%s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestAffinityRange(t *testing.T) {
	if got := German.Affinity(English); got != 90 {
		t.Fatalf("expected 90, got %d", got)
	}
	if got := English.Affinity(English); got != 100 {
		t.Fatalf("expected 100, got %d", got)
	}
	if got := English.Affinity(German); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
}
