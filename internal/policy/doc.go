// Package policy holds retry policies and the rules for resolving the
// effective policy of one failed attempt.
//
// Resolution merges three layers, later layers winning field by field:
//
//  1. the default policy of the failure category,
//  2. an operation-name override chosen by case-insensitive keyword match
//     (navigation, then search, then booking, then payment; first hit wins),
//  3. the caller's explicit override.
//
// Policies are plain values. A Table is never mutated after construction,
// so it can be shared freely between goroutines.
package policy
