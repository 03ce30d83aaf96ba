package similarity

import (
	"math"
	"slices"
	"sort"

	"github.com/fixcry/fixcry/internal/model"
)

// DefaultFieldCutoff is the largest per-field distance that still counts as
// a field match. Fields further away than this contribute nothing to a
// record's score.
const DefaultFieldCutoff = 0.45

// DefaultWeights returns the field weights used when none are configured.
// Title carries the most weight so that a matching title dominates, while
// differing location detail does not hide an otherwise identical report.
func DefaultWeights() map[model.Field]float64 {
	return map[model.Field]float64{
		model.FieldTitle:       0.4,
		model.FieldDescription: 0.3,
		model.FieldCity:        0.2,
		model.FieldStreet:      0.1,
	}
}

// Options configures Build.
type Options struct {
	// Weights maps each field to its weight. Fields with a zero or negative
	// weight are not indexed. Empty means DefaultWeights.
	Weights map[model.Field]float64

	// FieldCutoff is the per-field match cutoff in (0,1].
	// Zero means DefaultFieldCutoff.
	FieldCutoff float64
}

// DefaultOptions returns the default index options.
func DefaultOptions() Options {
	return Options{
		Weights:     DefaultWeights(),
		FieldCutoff: DefaultFieldCutoff,
	}
}

type bigram [2]rune

// fieldEntry is the preprocessed text of one field of one record.
type fieldEntry struct {
	runes  []rune
	tokens map[string]struct{}
}

// fieldIndex holds one field of every record plus the inverted indexes used
// to narrow down candidates.
type fieldIndex struct {
	field  model.Field
	weight float64

	// entries is indexed by record position; nil when the field is absent.
	entries []*fieldEntry

	// present lists, in ascending order, the positions that have the field.
	present []int

	// grams and words map a character bigram or a token to the ascending
	// positions of the records whose field contains it.
	grams map[bigram][]int
	words map[string][]int
}

// Index is an approximate text index over a fixed set of issue records.
// Once built it is never modified; Query only reads from it.
type Index struct {
	records []*model.IssueRecord
	fields  []*fieldIndex
	cutoff  float64
}

var _ model.Matcher = (*Index)(nil)

// Build indexes records. Missing fields (no description, no location) are
// simply left out of the index for that record.
func Build(records []*model.IssueRecord, opts Options) *Index {
	cutoff := opts.FieldCutoff
	if cutoff <= 0 || cutoff > 1 {
		cutoff = DefaultFieldCutoff
	}
	weights := opts.Weights
	if len(weights) == 0 {
		weights = DefaultWeights()
	}

	ix := &Index{
		records: slices.Clone(records),
		cutoff:  cutoff,
	}

	for _, f := range model.AllFields {
		w := weights[f]
		if w <= 0 {
			continue
		}
		ix.fields = append(ix.fields, buildField(f, w, ix.records))
	}

	// Heavier fields first so matched field names come out in weight order.
	sort.SliceStable(ix.fields, func(a, b int) bool {
		return ix.fields[a].weight > ix.fields[b].weight
	})

	return ix
}

func buildField(f model.Field, weight float64, records []*model.IssueRecord) *fieldIndex {
	fi := &fieldIndex{
		field:   f,
		weight:  weight,
		entries: make([]*fieldEntry, len(records)),
		grams:   make(map[bigram][]int),
		words:   make(map[string][]int),
	}

	for i, r := range records {
		text := Normalize(r.FieldValue(f))
		if text == "" {
			continue
		}

		tokens := Tokens(text)
		e := &fieldEntry{
			runes:  []rune(text),
			tokens: make(map[string]struct{}, len(tokens)),
		}
		for _, t := range tokens {
			e.tokens[t] = struct{}{}
			fi.words[t] = append(fi.words[t], i)
		}

		seen := make(map[bigram]struct{}, len(e.runes))
		for k := 0; k+1 < len(e.runes); k++ {
			g := bigram{e.runes[k], e.runes[k+1]}
			if _, ok := seen[g]; ok {
				continue
			}
			seen[g] = struct{}{}
			fi.grams[g] = append(fi.grams[g], i)
		}

		fi.entries[i] = e
		fi.present = append(fi.present, i)
	}

	return fi
}

// Len returns the number of indexed records.
func (ix *Index) Len() int {
	return len(ix.records)
}

// Cutoff returns the per-field match cutoff in use.
func (ix *Index) Cutoff() float64 {
	return ix.cutoff
}

// Query returns the records similar to text, most similar first.
//
// Each indexed field of a record is compared with the query on its own.
// A record's score is the product of d^(w/wTop) over the fields that
// matched, where wTop is the heaviest indexed weight. A lone title match
// scores its plain distance, and every further matched field multiplies
// in a factor of at most one, so more matching evidence never raises the
// score. Records where no field matched are left out. Ties keep input
// order.
func (ix *Index) Query(text string) []model.Match {
	q := Normalize(text)
	if q == "" {
		return nil
	}
	qRunes := []rune(q)
	qTokens := Tokens(q)

	type accumulator struct {
		score  float64
		fields []model.Field
	}
	accs := make(map[int]*accumulator)

	for _, fi := range ix.fields {
		for _, i := range fi.candidates(qRunes, qTokens, ix.cutoff) {
			e := fi.entries[i]
			d := tokenDistance(qTokens, e.tokens)
			if d > 0 {
				d = min(d, charDistance(qRunes, e.runes))
			}
			if d > ix.cutoff {
				continue
			}

			a, ok := accs[i]
			if !ok {
				a = &accumulator{score: 1}
				accs[i] = a
			}
			a.score *= fieldFactor(d, fi.weight, ix.topWeight())
			a.fields = append(a.fields, fi.field)
		}
	}

	positions := make([]int, 0, len(accs))
	for i := range accs {
		positions = append(positions, i)
	}
	sort.Ints(positions)

	matches := make([]model.Match, 0, len(positions))
	for _, i := range positions {
		a := accs[i]
		matches = append(matches, model.Match{
			Record:        ix.records[i],
			Score:         min(max(a.score, 0), 1),
			MatchedFields: a.fields,
		})
	}

	sort.SliceStable(matches, func(a, b int) bool {
		return matches[a].Score < matches[b].Score
	})

	return matches
}

// topWeight is the heaviest indexed field weight.
func (ix *Index) topWeight() float64 {
	if len(ix.fields) == 0 {
		return 1
	}
	return ix.fields[0].weight
}

// fieldFactor is one matched field's contribution to a record score.
// Lighter fields are raised to a smaller power, so a match on them alone
// counts as weaker evidence than the same distance on the title.
func fieldFactor(d, weight, top float64) float64 {
	if d <= 0 {
		return 0
	}
	return math.Pow(d, weight/top)
}

// candidates returns, in ascending order, the positions whose field could
// be within cutoff of the query. Records left out provably cannot match:
//
//   - char path: k edits destroy at most 2k of the query's bigram
//     positions, so a field within k = cutoff*len(q) edits shares at least
//     (len(q)-1) - 2k of them (q-gram lemma);
//   - token path: a field within cutoff shares at least
//     (1-cutoff)*len(tokens) query tokens.
func (fi *fieldIndex) candidates(q []rune, qTokens []string, cutoff float64) []int {
	needGrams := (len(q) - 1) - 2*maxEdits(len(q), cutoff)
	needWords := minSharedTokens(len(qTokens), cutoff)
	if needGrams <= 0 || needWords <= 0 {
		return fi.present
	}

	hits := make(map[int]struct{})

	gramCounts := make(map[int]int)
	for k := 0; k+1 < len(q); k++ {
		for _, i := range fi.grams[bigram{q[k], q[k+1]}] {
			gramCounts[i]++
		}
	}
	for i, c := range gramCounts {
		if c >= needGrams {
			hits[i] = struct{}{}
		}
	}

	wordCounts := make(map[int]int)
	for _, t := range qTokens {
		for _, i := range fi.words[t] {
			wordCounts[i]++
		}
	}
	for i, c := range wordCounts {
		if c >= needWords {
			hits[i] = struct{}{}
		}
	}

	out := make([]int, 0, len(hits))
	for i := range hits {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

// maxEdits is the largest edit count whose normalized distance stays within
// cutoff for a pattern of m runes.
func maxEdits(m int, cutoff float64) int {
	return int(math.Floor(cutoff*float64(m) + 1e-9))
}

// minSharedTokens is the smallest number of shared tokens that keeps the
// token distance within cutoff for a query of n tokens.
func minSharedTokens(n int, cutoff float64) int {
	return int(math.Ceil((1-cutoff)*float64(n) - 1e-9))
}
