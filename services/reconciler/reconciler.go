// Package reconciler matches theater names as they appear on listing sites
// against the canonical theater directory.
//
// Listing sites decorate names with franchise branding ("AMC", "Cinemark",
// "Theatres") and drift over time, so matching is fuzzy: brand tokens are
// stripped from both sides, then candidates are scored by string
// similarity. A match is only accepted when it clears a confidence
// threshold AND is unambiguously ahead of the runner-up. Anything else is
// flagged for manual review, misattributing data to the wrong theater is
// worse than asking a human.
package reconciler

import (
	"slices"
	"strings"

	"cinescope-backend/lib/textutil"

	"github.com/antzucaro/matchr"
)

type Config struct {
	// brand/chain tokens stripped before scoring
	StripTokens []string `json:"strip_tokens"`
	// minimum similarity for the best candidate to be accepted
	MinConfidence float64 `json:"min_confidence"`
	// minimum lead over the runner-up, close scores go to review
	MinSeparation float64 `json:"min_separation"`
}

func DefaultConfig() Config {
	return Config{
		StripTokens: []string{
			"amc", "cinemark", "regal", "marcus", "harkins", "cineplex",
			"theatre", "theatres", "theater", "theaters", "cinema", "cinemas",
		},
		MinConfidence: 0.88,
		MinSeparation: 0.04,
	}
}

type Candidate struct {
	ID   int64
	Name string
}

type Result struct {
	// set when a confident match was found
	Matched    bool
	TheaterID  int64
	Similarity float64

	// best/runner-up details, populated either way so review entries carry
	// enough context for a human to resolve
	BestCandidate      string
	RunnerUp           string
	RunnerUpSimilarity float64
}

type Reconciler struct {
	cfg Config
}

func New(cfg Config) Reconciler {
	return Reconciler{cfg: cfg}
}

func (r Reconciler) strip(name string) string {
	tokens := textutil.Tokens(name)
	kept := tokens[:0]
	for _, tok := range tokens {
		if slices.Contains(r.cfg.StripTokens, tok) {
			continue
		}
		kept = append(kept, tok)
	}
	if len(kept) == 0 {
		// a name made entirely of brand tokens still has to score
		// against something
		return textutil.NormalizeName(name)
	}
	return strings.Join(kept, " ")
}

// similarity blends Jaro-Winkler over the stripped strings with token-set
// overlap, pure edit distance alone over-rewards long shared prefixes in
// franchise names.
func (r Reconciler) similarity(a, b string) float64 {
	jw := matchr.JaroWinkler(a, b, false)

	at := textutil.Tokens(a)
	bt := textutil.Tokens(b)
	if len(at) == 0 || len(bt) == 0 {
		return jw
	}
	var shared int
	for _, tok := range at {
		if slices.Contains(bt, tok) {
			shared++
		}
	}
	overlap := float64(2*shared) / float64(len(at)+len(bt))

	return 0.6*jw + 0.4*overlap
}

func (r Reconciler) Reconcile(scraped string, canon []Candidate) Result {
	stripped := r.strip(scraped)

	var best, runnerUp Result
	for _, c := range canon {
		score := r.similarity(stripped, r.strip(c.Name))
		if score > best.Similarity {
			runnerUp = best
			best = Result{TheaterID: c.ID, Similarity: score, BestCandidate: c.Name}
		} else if score > runnerUp.Similarity {
			runnerUp = Result{TheaterID: c.ID, Similarity: score, BestCandidate: c.Name}
		}
	}

	out := Result{
		BestCandidate:      best.BestCandidate,
		RunnerUp:           runnerUp.BestCandidate,
		RunnerUpSimilarity: runnerUp.Similarity,
		Similarity:         best.Similarity,
	}
	if best.BestCandidate == "" {
		return out
	}
	if best.Similarity < r.cfg.MinConfidence {
		return out
	}
	if runnerUp.BestCandidate != "" && best.Similarity-runnerUp.Similarity < r.cfg.MinSeparation {
		// two candidates this close must never be auto-merged
		return out
	}

	out.Matched = true
	out.TheaterID = best.TheaterID
	return out
}
