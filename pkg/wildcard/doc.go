/*
Package wildcard implements a small, seed-deterministic templating DSL for
free text: __name__ tokens draw random lines from wildcard files, {...}
bracket expressions select from weighted choice groups with optional
repetition counts and custom separators, and ^variable captures let resolved
values be recalled later in the same pass.

Resolution is a recursive fixed-point iteration: the resolver repeatedly
scans for the next bracket span or token, substitutes its result, and keeps
passing over the text until nothing changes, then runs one final sweep that
force-resolves or removes whatever is left. All randomness flows through a
counter-based seed sequence, so a given (template, seed, file set) triple
always produces the same output. Template-content problems never raise:
missing files, malformed counts, and unreadable directories all degrade to
empty draws.

For the full syntax reference, see the README.md file.
*/
package wildcard
