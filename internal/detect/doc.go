// Package detect clusters near-duplicate issue records and proposes which
// record of each cluster to keep.
//
// FindDuplicates makes a single pass over the records, querying a
// model.Matcher once per record that is not yet part of a group.
// SuggestMerges turns the resulting groups into advisory merge proposals.
// Neither function touches the files the records were loaded from.
package detect
