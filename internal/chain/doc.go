// Package chain builds the synthetic call chains behind every benchmark case.
//
// A chain is a strictly linear sequence of procedures: element i calls
// element i+1 and nothing else. Reachability questions about a chain are
// therefore answered by arithmetic on positions, never by search:
//
//   - a positive case at depth d picks source=chain[r], target=chain[r+d]
//   - a negative case at depth d picks source=chain[n-d] and a target
//     strictly before it, so no forward path exists
//
// The rendered snippet may list declarations in shuffled order while the
// call statements keep encoding the true chain.
package chain
