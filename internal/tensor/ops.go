package tensor

// UnaryOp enumerates element-wise single-input operations.
type UnaryOp int

// Unary operations.
const (
	Neg UnaryOp = iota
	Recip
	Exp
	Log
	Sqrt
	Sqr
	Abs
	Sin
	Cos
	Tanh
	Relu
	Silu
	Gelu
	Floor
	Ceil
	Round
)

var unaryNames = [...]string{
	Neg: "neg", Recip: "recip", Exp: "exp", Log: "log", Sqrt: "sqrt", Sqr: "sqr",
	Abs: "abs", Sin: "sin", Cos: "cos", Tanh: "tanh", Relu: "relu", Silu: "silu",
	Gelu: "gelu", Floor: "floor", Ceil: "ceil", Round: "round",
}

// AllUnaryOps lists every UnaryOp.
var AllUnaryOps = []UnaryOp{Neg, Recip, Exp, Log, Sqrt, Sqr, Abs, Sin, Cos, Tanh, Relu, Silu, Gelu, Floor, Ceil, Round}

func (op UnaryOp) String() string {
	if op < 0 || int(op) >= len(unaryNames) {
		return "unknown"
	}
	return unaryNames[op]
}

// BinaryOp enumerates element-wise two-input operations.
type BinaryOp int

// Binary operations.
const (
	Add BinaryOp = iota
	Sub
	Mul
	Div
	Maximum
	Minimum
)

var binaryNames = [...]string{Add: "add", Sub: "sub", Mul: "mul", Div: "div", Maximum: "maximum", Minimum: "minimum"}

func (op BinaryOp) String() string {
	if op < 0 || int(op) >= len(binaryNames) {
		return "unknown"
	}
	return binaryNames[op]
}

// CmpOp enumerates element-wise comparisons. Results are Uint8 (0 or 1).
type CmpOp int

// Comparison operations.
const (
	Eq CmpOp = iota
	Ne
	Lt
	Le
	Gt
	Ge
)

var cmpNames = [...]string{Eq: "eq", Ne: "ne", Lt: "lt", Le: "le", Gt: "gt", Ge: "ge"}

func (op CmpOp) String() string {
	if op < 0 || int(op) >= len(cmpNames) {
		return "unknown"
	}
	return cmpNames[op]
}

// ReduceOp enumerates reductions over a set of dimensions.
type ReduceOp int

// Reduce operations.
const (
	ReduceSum ReduceOp = iota
	ReduceMin
	ReduceMax
	ReduceArgMin
	ReduceArgMax
)

var reduceNames = [...]string{
	ReduceSum: "sum", ReduceMin: "min", ReduceMax: "max", ReduceArgMin: "argmin", ReduceArgMax: "argmax",
}

func (op ReduceOp) String() string {
	if op < 0 || int(op) >= len(reduceNames) {
		return "unknown"
	}
	return reduceNames[op]
}
