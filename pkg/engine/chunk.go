package engine

// Chunk is a sequence of bytecode instructions with a constant pool.
type Chunk struct {
	Code      []byte
	Constants []Value
	Name      string
}

// NewChunk creates an empty chunk.
func NewChunk(name string) *Chunk {
	return &Chunk{
		Code:      make([]byte, 0, 64),
		Constants: make([]Value, 0, 8),
		Name:      name,
	}
}

// Write appends a raw byte.
func (ch *Chunk) Write(b byte) {
	ch.Code = append(ch.Code, b)
}

// WriteOp appends an opcode.
func (ch *Chunk) WriteOp(op Opcode) {
	ch.Write(byte(op))
}

// WriteOpByte appends an opcode with a one-byte operand.
func (ch *Chunk) WriteOpByte(op Opcode, operand byte) {
	ch.Write(byte(op))
	ch.Write(operand)
}

// AddConstant adds a constant to the pool and returns its index.
func (ch *Chunk) AddConstant(v Value) int {
	ch.Constants = append(ch.Constants, v)
	return len(ch.Constants) - 1
}

// WriteConstant appends OP_CONST with a 2-byte pool index.
func (ch *Chunk) WriteConstant(v Value) {
	idx := ch.AddConstant(v)
	ch.WriteOp(OP_CONST)
	ch.Write(byte(idx >> 8))
	ch.Write(byte(idx))
}
