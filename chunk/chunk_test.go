package chunk

import (
	"strings"
	"testing"
)

// lineCost charges one token per byte. Predictable for line-sized tests.
type lineCost struct{}

func (lineCost) Count(text string) int { return len(text) }

func TestSplit_Empty(t *testing.T) {
	if got := Split("", 100, lineCost{}); got != nil {
		t.Errorf("Split(\"\") = %v, want nil", got)
	}
}

func TestSplit_SingleSegmentUnderBudget(t *testing.T) {
	text := "a\nb\nc\n"
	got := Split(text, 100, lineCost{})
	if len(got) != 1 || got[0] != text {
		t.Errorf("Split = %q, want one segment equal to input", got)
	}
}

func TestSplit_BreaksAtBudget(t *testing.T) {
	// Each line costs 4; budget 8 fits two lines per segment.
	text := "aaa\nbbb\nccc\nddd\n"
	got := Split(text, 8, lineCost{})
	want := []string{"aaa\nbbb\n", "ccc\nddd\n"}
	if len(got) != len(want) {
		t.Fatalf("got %d segments %q, want %d", len(got), got, len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("segment %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSplit_BudgetRespected(t *testing.T) {
	text := strings.Repeat("line of text\n", 50)
	for _, seg := range Split(text, 30, lineCost{}) {
		if (lineCost{}).Count(seg) > 30 {
			t.Errorf("segment cost %d exceeds budget 30: %q", len(seg), seg)
		}
	}
}

func TestSplit_OversizedLineEmittedAlone(t *testing.T) {
	long := strings.Repeat("x", 50) + "\n"
	text := "a\n" + long + "b\n"
	got := Split(text, 10, lineCost{})
	if len(got) != 3 {
		t.Fatalf("got %d segments %q, want 3", len(got), got)
	}
	if got[1] != long {
		t.Errorf("oversized line not alone: %q", got[1])
	}
}

func TestSplit_NoFinalNewline(t *testing.T) {
	got := Split("a\nb", 100, lineCost{})
	if len(got) != 1 || got[0] != "a\nb" {
		t.Errorf("Split = %q", got)
	}
}

func TestJoin_RoundTrip(t *testing.T) {
	texts := []string{
		"a\nb\nc\n",
		"a\n\n\nb\n", // blank lines must survive
		"solo",
		"trailing\n",
	}
	for _, text := range texts {
		for _, budget := range []int{1, 3, 8, 1000} {
			if got := Join(Split(text, budget, lineCost{})); got != text {
				t.Errorf("Join(Split(%q, %d)) = %q", text, budget, got)
			}
		}
	}
}

func TestJoin_InsertsSingleSeparatorForStrippedSegments(t *testing.T) {
	// Transformed segments come back without their trailing newline.
	got := Join([]string{"l_czech:", "  a:0 \"A\""})
	want := "l_czech:\n  a:0 \"A\""
	if got != want {
		t.Errorf("Join = %q, want %q", got, want)
	}
}

func TestJoin_NoDoubleSeparator(t *testing.T) {
	got := Join([]string{"a\n", "b"})
	if got != "a\nb" {
		t.Errorf("Join = %q, want %q", got, "a\nb")
	}
}
