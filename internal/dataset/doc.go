// Package dataset persists generated cases for one configuration.
//
// A dataset lives in <root>/<configID>/ and is written exactly once:
//
//	groundtruth.tsv              one row per case
//	manifest.json                configuration snapshot and fingerprint
//	prompts/<depth>/<yes|no>/    <i>.txt, <i>-chain-all.txt, <i>-chain.txt
//
// Runs add results/, results.tsv, batch.jsonl, batch-results.tsv and
// ledger.db next to those files but never modify them. Every path stored
// in a table is relative to the dataset directory.
//
// Generation writes into a temporary sibling directory and renames it into
// place, so a crashed or concurrent generator never leaves a partial
// dataset under the final id.
package dataset
