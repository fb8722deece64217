package compiler

// Program is the finished output of a compilation: the flat code buffer and
// the deduplicated data-section records. It is consumed directly by
// lang/machine for in-memory execution and serialized by lang/container for
// the `compile`/`runbytecode` subcommands; neither of those packages needs
// to import the parser or emitter.
type Program struct {
	Code []byte
	Data [][]byte
}
