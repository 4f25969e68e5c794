// Package scoring compares generated test files against reference tests with
// lexical (BLEU-style n-gram overlap) and semantic (embedding cosine)
// similarity, and flags likely hallucinations against fixed thresholds.
package scoring

import (
	"math"
	"strings"
)

// BLEU computes a sentence-level BLEU score over whitespace tokens with
// unigram and bigram precision weighted 0.5/0.5 and the standard brevity
// penalty. Identical texts score 1.0; texts with no overlap score 0.0.
func BLEU(reference, hypothesis string) float64 {
	ref := strings.Fields(reference)
	hyp := strings.Fields(hypothesis)
	if len(hyp) == 0 || len(ref) == 0 {
		return 0
	}

	p1 := modifiedPrecision(ref, hyp, 1)
	p2 := modifiedPrecision(ref, hyp, 2)
	if p1 == 0 || p2 == 0 {
		return 0
	}

	bp := 1.0
	if len(hyp) < len(ref) {
		bp = math.Exp(1 - float64(len(ref))/float64(len(hyp)))
	}
	return bp * math.Exp(0.5*math.Log(p1)+0.5*math.Log(p2))
}

// modifiedPrecision is the clipped n-gram precision: each hypothesis n-gram
// counts at most as often as it appears in the reference.
func modifiedPrecision(ref, hyp []string, n int) float64 {
	hypGrams := ngrams(hyp, n)
	if len(hypGrams) == 0 {
		return 0
	}
	refCounts := map[string]int{}
	for _, g := range ngrams(ref, n) {
		refCounts[g]++
	}
	matches := 0
	hypCounts := map[string]int{}
	for _, g := range hypGrams {
		hypCounts[g]++
	}
	for g, c := range hypCounts {
		if rc, ok := refCounts[g]; ok {
			if c < rc {
				matches += c
			} else {
				matches += rc
			}
		}
	}
	return float64(matches) / float64(len(hypGrams))
}

func ngrams(tokens []string, n int) []string {
	if len(tokens) < n {
		return nil
	}
	out := make([]string, 0, len(tokens)-n+1)
	for i := 0; i+n <= len(tokens); i++ {
		out = append(out, strings.Join(tokens[i:i+n], "\x1f"))
	}
	return out
}
