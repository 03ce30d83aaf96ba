// Package similarity implements the approximate text index used to find
// duplicate issue reports.
//
// An Index is built once over all records of a run. Every record contributes
// its title, description, city and street, each normalized (markup removed,
// diacritics stripped, case and Hebrew final letters folded) and weighted.
// A query compares its text against every indexed field and scores a record
// by the weighted mean distance of the fields that came close enough.
//
// Distances are in [0,1]: 0 is an exact match, larger is less similar.
// A field's distance is the smaller of
//   - the approximate substring edit distance of the query against the field,
//     divided by the query length, and
//   - the share of query words missing from the field.
//
// Character-bigram and word inverted indexes prune records that cannot reach
// the cutoff; pruning never drops a record that would have matched.
package similarity
