package runtime

// Op identifies one language-level operator. Dispatch cells, handler
// tables and diagnostics all key on this identity rather than on the
// surface syntax.
type Op uint8

const (
	OpAdd Op = iota
	OpSub
	OpMul
	OpDiv      // true division: always yields a float for integer operands
	OpFloorDiv
	OpMod
	OpLt
	OpLe
	OpEq
	OpNe
	OpGt
	OpGe

	// Unary operators
	OpNeg
	OpPos
	OpAbs
	OpInvert

	opCount
)

// opInfo carries the display metadata for one operator: the symbol used
// in diagnostics and a short name for logs and profile records.
type opInfo struct {
	symbol string
	name   string
	arity  int
}

var opTable = [opCount]opInfo{
	OpAdd:      {"+", "add", 2},
	OpSub:      {"-", "sub", 2},
	OpMul:      {"*", "mul", 2},
	OpDiv:      {"/", "truediv", 2},
	OpFloorDiv: {"//", "floordiv", 2},
	OpMod:      {"%", "mod", 2},
	OpLt:       {"<", "lt", 2},
	OpLe:       {"<=", "le", 2},
	OpEq:       {"==", "eq", 2},
	OpNe:       {"!=", "ne", 2},
	OpGt:       {">", "gt", 2},
	OpGe:       {">=", "ge", 2},
	OpNeg:      {"-", "neg", 1},
	OpPos:      {"+", "pos", 1},
	OpAbs:      {"abs()", "abs", 1},
	OpInvert:   {"~", "invert", 1},
}

// Symbol returns the operator's surface symbol, e.g. "+" or "//".
func (op Op) Symbol() string { return opTable[op].symbol }

// Name returns the operator's short name, e.g. "add".
func (op Op) Name() string { return opTable[op].name }

// Arity returns 1 for unary operators and 2 for binary ones.
func (op Op) Arity() int { return opTable[op].arity }

func (op Op) String() string { return opTable[op].name }
