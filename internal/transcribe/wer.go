package transcribe

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// WERResult holds detailed token error rate results. For space-delimited
// languages tokens are words; CJK text is compared character by character.
type WERResult struct {
	WER           float64 // Error rate (0.0 = perfect, 1.0+ = very bad)
	Substitutions int     // Tokens replaced with different tokens
	Insertions    int     // Extra tokens in hypothesis
	Deletions     int     // Tokens missing from hypothesis
	RefTokens     int     // Total tokens in reference
}

// Accuracy returns 1 - WER, floored at zero.
func (r WERResult) Accuracy() float64 {
	return max(0, 1-r.WER)
}

// editCounts is one cell of the edit-distance table: the total cost and
// how it splits into operations.
type editCounts struct {
	cost, subs, ins, dels int
}

// ComputeWER calculates the token error rate between reference and hypothesis text.
// Both strings are normalized: NFKC, lowercased, punctuation stripped, whitespace collapsed.
// WER = (Substitutions + Insertions + Deletions) / ReferenceTokenCount.
//
// Only two rows of the edit-distance table are kept, so memory grows with
// the hypothesis length rather than the product of both lengths.
func ComputeWER(reference, hypothesis string) WERResult {
	refTokens := Tokenize(reference)
	hypTokens := Tokenize(hypothesis)

	n := len(refTokens)
	if n == 0 {
		return WERResult{}
	}

	m := len(hypTokens)
	prev := make([]editCounts, m+1)
	cur := make([]editCounts, m+1)
	for j := range prev {
		prev[j] = editCounts{cost: j, ins: j}
	}

	for i := 1; i <= n; i++ {
		cur[0] = editCounts{cost: i, dels: i}
		for j := 1; j <= m; j++ {
			best := prev[j-1]
			if refTokens[i-1] != hypTokens[j-1] {
				best.cost++
				best.subs++
			}
			if del := prev[j]; del.cost+1 < best.cost {
				best = del
				best.cost++
				best.dels++
			}
			if ins := cur[j-1]; ins.cost+1 < best.cost {
				best = ins
				best.cost++
				best.ins++
			}
			cur[j] = best
		}
		prev, cur = cur, prev
	}

	last := prev[m]
	return WERResult{
		WER:           float64(last.cost) / float64(n),
		Substitutions: last.subs,
		Insertions:    last.ins,
		Deletions:     last.dels,
		RefTokens:     n,
	}
}

// Tokenize normalizes s and splits it into comparison tokens. Runs of
// CJK characters yield one token per character.
func Tokenize(s string) []string {
	s = strings.ToLower(norm.NFKC.String(s))

	var tokens []string
	var word strings.Builder
	flush := func() {
		if word.Len() > 0 {
			tokens = append(tokens, word.String())
			word.Reset()
		}
	}
	for _, r := range s {
		switch {
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
		case unicode.IsSpace(r):
			flush()
		case isCJK(r):
			flush()
			tokens = append(tokens, string(r))
		default:
			word.WriteRune(r)
		}
	}
	flush()
	return tokens
}
