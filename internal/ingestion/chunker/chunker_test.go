package chunker

import (
	"fmt"
	"strings"
	"testing"
)

func sampleText() string {
	var paras []string
	for p := 0; p < 6; p++ {
		var sents []string
		for s := 0; s < 30; s++ {
			sents = append(sents, fmt.Sprintf("Paragraph %d sentence %d talks about homes near the water.", p, s))
		}
		paras = append(paras, strings.Join(sents, " "))
	}
	paras = append(paras, "A short closing paragraph without punctuation")
	return strings.Join(paras, "\n\n")
}

func TestEstimateTokens(t *testing.T) {
	cases := map[string]int{"": 0, "a": 1, "abcd": 1, "abcde": 2, strings.Repeat("x", 2000): 500}
	for in, want := range cases {
		if got := EstimateTokens(in); got != want {
			t.Fatalf("EstimateTokens(len %d)=%d want %d", len(in), got, want)
		}
	}
}

func TestSplitRespectsMaxTokens(t *testing.T) {
	chunks := Split(sampleText(), Options{MaxTokens: 120, OverlapTokens: 15})
	if len(chunks) < 2 {
		t.Fatalf("expected several chunks, got %d", len(chunks))
	}
	for _, c := range chunks {
		if c.TokenCount > 120 {
			t.Fatalf("chunk %d has %d tokens", c.Index, c.TokenCount)
		}
		if c.TokenCount != EstimateTokens(c.Content) {
			t.Fatalf("chunk %d token count mismatch", c.Index)
		}
	}
}

func TestSplitOverlapAndReconstruction(t *testing.T) {
	text := sampleText()
	chunks := Split(text, Options{MaxTokens: 120, OverlapTokens: 15})

	var rebuilt strings.Builder
	for i, c := range chunks {
		if c.Index != i {
			t.Fatalf("index %d at position %d", c.Index, i)
		}
		if i == 0 {
			if c.Overlap != 0 {
				t.Fatalf("first chunk cannot overlap")
			}
			rebuilt.WriteString(c.Content)
			continue
		}
		if c.Overlap == 0 {
			t.Fatalf("chunk %d shares no overlap with its predecessor", i)
		}
		prefix := c.Content[:c.Overlap]
		if !strings.HasSuffix(chunks[i-1].Content, prefix) {
			t.Fatalf("chunk %d overlap %q is not the tail of chunk %d", i, prefix, i-1)
		}
		rebuilt.WriteString(c.Content[c.Overlap:])
	}
	norm := func(s string) string { return strings.Join(strings.Fields(s), " ") }
	if norm(rebuilt.String()) != norm(text) {
		t.Fatalf("reconstruction differs from source text")
	}
}

func TestSplitOversizedSentenceStandsAlone(t *testing.T) {
	long := strings.Repeat("word ", 200) + "end."
	text := "Short intro. " + long + " Short outro."
	chunks := Split(text, Options{MaxTokens: 50, OverlapTokens: 5})
	found := false
	for _, c := range chunks {
		if c.TokenCount > 50 {
			if !strings.Contains(c.Content, strings.TrimSpace(long)) {
				t.Fatalf("only a single oversized sentence may exceed the budget: %q", c.Content)
			}
			found = true
		}
	}
	if !found {
		t.Fatalf("expected the oversized sentence to produce an oversized chunk")
	}
}

func TestSplitSmallTextAndDefaults(t *testing.T) {
	if got := Split("   \n\n  ", Options{}); got != nil {
		t.Fatalf("expected no chunks for blank input, got %v", got)
	}
	got := Split("Hello there.\n\nSecond paragraph.", Options{})
	if len(got) != 1 || got[0].Content != "Hello there.\n\nSecond paragraph." {
		t.Fatalf("unexpected chunks %+v", got)
	}
}

func checkOverlapChain(t *testing.T, chunks []Chunk, maxTokens int) {
	t.Helper()
	for i, c := range chunks {
		if c.TokenCount > maxTokens {
			t.Fatalf("chunk %d has %d tokens, budget %d", i, c.TokenCount, maxTokens)
		}
		if i == 0 {
			continue
		}
		if c.Overlap == 0 {
			t.Fatalf("chunk %d shares no overlap with its predecessor", i)
		}
		if !strings.HasSuffix(chunks[i-1].Content, c.Content[:c.Overlap]) {
			t.Fatalf("chunk %d overlap is not the tail of chunk %d", i, i-1)
		}
	}
}

func TestSplitKeepsOverlapWhenParagraphFillsBudget(t *testing.T) {
	// 40 sentences of 49 bytes estimate to exactly the default budget.
	var sents []string
	for i := 0; i < 40; i++ {
		sents = append(sents, fmt.Sprintf("Lot %02d backs onto the greenbelt trail system now.", i))
	}
	p := strings.Join(sents, " ")
	if EstimateTokens(p) != DefaultMaxTokens {
		t.Fatalf("fixture paragraph is %d tokens", EstimateTokens(p))
	}
	text := p + "\n\n" + p
	chunks := Split(text, Options{})
	if len(chunks) < 2 {
		t.Fatalf("expected the text to span several chunks, got %d", len(chunks))
	}
	checkOverlapChain(t, chunks, DefaultMaxTokens)

	var rebuilt strings.Builder
	for i, c := range chunks {
		if i == 0 {
			rebuilt.WriteString(c.Content)
			continue
		}
		rebuilt.WriteString(" " + c.Content[c.Overlap:])
	}
	norm := func(s string) string { return strings.Join(strings.Fields(s), " ") }
	if norm(rebuilt.String()) != norm(text) {
		t.Fatalf("reconstruction differs from source text")
	}
}

func TestSplitKeepsOverlapForUnpunctuatedParagraphAtBudget(t *testing.T) {
	p := strings.TrimSpace(strings.Repeat("acre ", 400))
	p = p + strings.Repeat("x", 2000-len(p))
	chunks := Split(p+"\n\n"+p, Options{})
	if len(chunks) < 2 {
		t.Fatalf("expected several chunks, got %d", len(chunks))
	}
	checkOverlapChain(t, chunks, DefaultMaxTokens)
}
