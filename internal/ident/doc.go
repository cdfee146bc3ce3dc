// Package ident produces the procedure names used in synthetic call chains.
//
// Two naming policies exist:
//
//   - natural: sequential mnemonic names m1, m2, m3, ...
//   - alphanumeric: random lowercase names of a fixed length
//
// A Source is owned by exactly one chain. The natural policy keeps its
// counter inside the Source, so every chain starts again at m1 and no
// process-wide state is shared between chains.
package ident
