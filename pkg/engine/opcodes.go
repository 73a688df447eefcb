package engine

// Opcode is a single bytecode instruction of the script executor. The
// set is deliberately small: enough for interpreted callees to compute,
// read properties, call back into the engine and throw.
type Opcode byte

const (
	// Stack
	OP_CONST Opcode = iota // u16 constant index
	OP_UNDEFINED
	OP_POP
	OP_DUP

	// Frame access
	OP_THIS      // push the frame's receiver
	OP_GET_LOCAL // u8 slot: argument/local by window index

	// Operators
	OP_ADD // int/float addition, string concatenation

	// Properties
	OP_GET_PROP // [obj key] -> [value]

	// Calls (re-enter the call layer)
	OP_CALL // u8 nargs: [func this arg1..argN] -> [result]
	OP_NEW  // u8 nargs: [ctor arg1..argN] -> [instance]

	// Exits
	OP_RETURN       // return top of stack
	OP_RETURN_UNDEF // return undefined
	OP_THROW        // raise top of stack as a fault
)
