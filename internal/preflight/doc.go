// Package preflight checks that a machine and project can serve a corpus:
// the corpus folder, the data directory, the PDF tool and the embedding
// provider. `lexmind doctor` prints the results.
package preflight
