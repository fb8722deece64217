// Package builtin holds the static registry of built-in function names, ids
// and arities shared between the compiler (which resolves a bare call's
// builtin_id at compile time) and the machine (which dispatches CALL by id
// at runtime). Built-ins are exposed as a registry populated at startup,
// never scattered through the dispatcher as `if name == "..."` checks: this
// table is the single source of truth for a name's existence, id and arity;
// only internal/builtins attaches actual Go implementations to these ids,
// keeping this package free of any dependency on the value or machine
// packages.
package builtin

// Spec describes one built-in function's call contract.
type Spec struct {
	ID       uint16
	Name     string
	MinArity int
	MaxArity int // -1 means unbounded
}

// Stable ids for every built-in. The compiler encodes these directly into
// CALL instructions; they must never be renumbered within a released
// container format version.
const (
	Abs uint16 = iota
	Min
	Max
	Len
	Upper
	Lower
	Trim
	StartsWith
	EndsWith
	Contains
	ParseInt
	Exists
	ReadFile
	WriteFile
	AppendFile
	Time
)

// Table lists every built-in in id order.
var Table = []Spec{
	{ID: Abs, Name: "abs", MinArity: 1, MaxArity: 1},
	{ID: Min, Name: "min", MinArity: 2, MaxArity: 2},
	{ID: Max, Name: "max", MinArity: 2, MaxArity: 2},
	{ID: Len, Name: "len", MinArity: 1, MaxArity: 1},
	{ID: Upper, Name: "upper", MinArity: 1, MaxArity: 1},
	{ID: Lower, Name: "lower", MinArity: 1, MaxArity: 1},
	{ID: Trim, Name: "trim", MinArity: 1, MaxArity: 1},
	{ID: StartsWith, Name: "startswith", MinArity: 2, MaxArity: 2},
	{ID: EndsWith, Name: "endswith", MinArity: 2, MaxArity: 2},
	{ID: Contains, Name: "contains", MinArity: 2, MaxArity: 2},
	{ID: ParseInt, Name: "parseint", MinArity: 1, MaxArity: 1},
	{ID: Exists, Name: "exists", MinArity: 1, MaxArity: 1},
	{ID: ReadFile, Name: "readfile", MinArity: 1, MaxArity: 1},
	{ID: WriteFile, Name: "writefile", MinArity: 2, MaxArity: 2},
	{ID: AppendFile, Name: "appendfile", MinArity: 2, MaxArity: 2},
	{ID: Time, Name: "time", MinArity: 0, MaxArity: 0},
}

var byName map[string]Spec

func init() {
	byName = make(map[string]Spec, len(Table))
	for _, s := range Table {
		byName[s.Name] = s
	}
}

// Lookup returns the Spec registered under name, if any. The parser calls
// this to decide whether a bare identifier-call is a built-in (CALL) or a
// user function (CALLUSER); print is a dedicated statement, not a built-in,
// so it is intentionally absent from this table.
func Lookup(name string) (Spec, bool) {
	s, ok := byName[name]
	return s, ok
}

// ByID returns the Spec registered under id, if any.
func ByID(id uint16) (Spec, bool) {
	if int(id) < len(Table) {
		return Table[id], true
	}
	return Spec{}, false
}
