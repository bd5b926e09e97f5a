// Package compiler lowers a type-checked ferro program into a
// bytecode.Program. It trusts the checker's Result completely: by the
// time Compile runs, every expression already has a recorded type and
// every call site already has a valid target, so compilation itself
// never type-errors — only juju/errors-wrapped structural failures
// (an inconsistent Result, a lookup miss that would mean checker and
// compiler have drifted apart) are possible.
package compiler

import (
	"github.com/juju/errors"

	"github.com/ferrolang/ferro/pkg/ast"
	"github.com/ferrolang/ferro/pkg/bytecode"
	"github.com/ferrolang/ferro/pkg/checker"
	"github.com/ferrolang/ferro/pkg/value"
)

// Compiler lowers a checked program into bytecode.
type Compiler interface {
	Compile(prog *ast.Program, result *checker.Result) (*bytecode.Program, error)
}

// BasicCompiler is the reference Compiler implementation: a single
// linear pass over each function body, emitting into one shared
// instruction stream.
type BasicCompiler struct{}

// New constructs a BasicCompiler.
func New() *BasicCompiler { return &BasicCompiler{} }

// compiler is the per-call mutable state threaded through codegen.
type compiler struct {
	result    *checker.Result
	funcIndex map[string]int
	instrs    []bytecode.Instruction
	consts    []value.Value
	strIndex  map[string]int
}

// Compile implements Compiler.
func (bc *BasicCompiler) Compile(prog *ast.Program, result *checker.Result) (*bytecode.Program, error) {
	c := &compiler{
		result:    result,
		funcIndex: make(map[string]int),
		strIndex:  make(map[string]int),
	}

	// Function-table indices must match CALL's operand space, and
	// bytecode.FunctionTable.Add assigns indices in call order, so the
	// index map is built up front in the same declaration order the
	// functions will be compiled and added in below.
	for i, fn := range prog.Functions {
		c.funcIndex[fn.Name] = i
	}

	ft := bytecode.NewFunctionTable()
	for _, fn := range prog.Functions {
		entry, err := c.compileFunction(fn)
		if err != nil {
			return nil, errors.Annotatef(err, "function %q", fn.Name)
		}
		if _, err := ft.Add(entry); err != nil {
			return nil, errors.Trace(err)
		}
	}

	return &bytecode.Program{
		Instructions: c.instrs,
		Constants:    c.consts,
		Functions:    ft,
	}, nil
}

// addStrConstant interns a string value, returning its constant-pool
// index. Integers need no such pool: PUSH_I32 carries its i32
// directly in the operand word.
func (c *compiler) addStrConstant(s string) int {
	if idx, ok := c.strIndex[s]; ok {
		return idx
	}
	idx := len(c.consts)
	c.consts = append(c.consts, value.Str(s))
	c.strIndex[s] = idx
	return idx
}

func (c *compiler) emit(op bytecode.Opcode, operand uint64) int {
	idx := len(c.instrs)
	c.instrs = append(c.instrs, bytecode.New(op, operand))
	return idx
}

// patchJump rewrites a previously emitted jump instruction's operand
// to target the next instruction about to be emitted.
func (c *compiler) patchJump(idx int) {
	c.instrs[idx].Operand = uint64(len(c.instrs))
}

// funcState is per-function local-slot bookkeeping. Slots are
// allocated lexically flattened: every `let` in a function body,
// however deeply nested in if/while blocks, gets its own slot that is
// never reused, via a nextLocal counter that only ever increases.
// Popping a scope removes name bindings but never decrements it.
type funcState struct {
	scopes    []map[string]int
	nextLocal int
}

func (fs *funcState) pushScope() {
	fs.scopes = append(fs.scopes, make(map[string]int))
}

func (fs *funcState) popScope() {
	fs.scopes = fs.scopes[:len(fs.scopes)-1]
}

func (fs *funcState) declare(name string) int {
	slot := fs.nextLocal
	fs.nextLocal++
	fs.scopes[len(fs.scopes)-1][name] = slot
	return slot
}

func (fs *funcState) lookup(name string) (int, bool) {
	for i := len(fs.scopes) - 1; i >= 0; i-- {
		if slot, ok := fs.scopes[i][name]; ok {
			return slot, true
		}
	}
	return 0, false
}

func (c *compiler) compileFunction(fn *ast.FunctionDecl) (bytecode.FunctionEntry, error) {
	entryPC := len(c.instrs)
	fs := &funcState{}
	fs.pushScope()
	for _, p := range fn.Params {
		fs.declare(p.Name)
	}

	if err := c.compileBlockStmts(fn.Body, fs); err != nil {
		return bytecode.FunctionEntry{}, err
	}

	// Every function falls through to a trailing return: explicit
	// `return`s elsewhere in the body make this unreachable, but a
	// function returning nothing may simply run off the end of its
	// block without one.
	c.emit(bytecode.OpRet, 0)

	return bytecode.FunctionEntry{
		Name:      fn.Name,
		EntryPC:   entryPC,
		NumParams: len(fn.Params),
		NumLocals: fs.nextLocal,
	}, nil
}

func (c *compiler) compileBlock(b *ast.Block, fs *funcState) error {
	fs.pushScope()
	defer fs.popScope()
	return c.compileBlockStmts(b, fs)
}

func (c *compiler) compileBlockStmts(b *ast.Block, fs *funcState) error {
	for _, stmt := range b.Stmts {
		if err := c.compileStmt(stmt, fs); err != nil {
			return err
		}
	}
	return nil
}

func (c *compiler) compileStmt(stmt ast.Stmt, fs *funcState) error {
	switch s := stmt.(type) {
	case *ast.LetStmt:
		return c.compileLet(s, fs)
	case *ast.ExprStmt:
		return c.compileExprStmt(s, fs)
	case *ast.IfStmt:
		return c.compileIf(s, fs)
	case *ast.WhileStmt:
		return c.compileWhile(s, fs)
	case *ast.Block:
		return c.compileBlock(s, fs)
	case *ast.ReturnStmt:
		return c.compileReturn(s, fs)
	default:
		return errors.Errorf("unhandled statement kind %T", s)
	}
}

func (c *compiler) compileLet(s *ast.LetStmt, fs *funcState) error {
	if err := c.compileExpr(s.Init, fs); err != nil {
		return err
	}
	slot := fs.declare(s.Name)
	c.emit(bytecode.OpStore, uint64(slot))
	return nil
}

// compileExprStmt compiles an expression in statement position. Every
// expression leaves exactly one value on the stack except a bare call
// to a function returning nothing, which leaves none (the checker
// never records an ExprTypes entry for that case) — so the decision
// of whether to emit a trailing POP is a map-presence check, not a
// syntactic one.
func (c *compiler) compileExprStmt(s *ast.ExprStmt, fs *funcState) error {
	if err := c.compileExpr(s.Expr, fs); err != nil {
		return err
	}
	if _, hasValue := c.result.ExprTypes[s.Expr]; hasValue {
		c.emit(bytecode.OpPop, 0)
	}
	return nil
}

func (c *compiler) compileIf(s *ast.IfStmt, fs *funcState) error {
	if err := c.compileExpr(s.Cond, fs); err != nil {
		return err
	}
	jumpToElse := c.emit(bytecode.OpJmpIfNot, 0)
	if err := c.compileBlock(s.Then, fs); err != nil {
		return err
	}
	jumpToEnd := c.emit(bytecode.OpJmp, 0)
	c.patchJump(jumpToElse)
	switch e := s.Else.(type) {
	case nil:
	case *ast.Block:
		if err := c.compileBlock(e, fs); err != nil {
			return err
		}
	case *ast.IfStmt:
		if err := c.compileIf(e, fs); err != nil {
			return err
		}
	default:
		return errors.Errorf("unhandled else kind %T", e)
	}
	c.patchJump(jumpToEnd)
	return nil
}

func (c *compiler) compileWhile(s *ast.WhileStmt, fs *funcState) error {
	loopStart := len(c.instrs)
	if err := c.compileExpr(s.Cond, fs); err != nil {
		return err
	}
	jumpToEnd := c.emit(bytecode.OpJmpIfNot, 0)
	if err := c.compileBlock(s.Body, fs); err != nil {
		return err
	}
	c.emit(bytecode.OpJmp, uint64(loopStart))
	c.patchJump(jumpToEnd)
	return nil
}

func (c *compiler) compileReturn(s *ast.ReturnStmt, fs *funcState) error {
	if s.Value == nil {
		c.emit(bytecode.OpRet, 0)
		return nil
	}
	if err := c.compileExpr(s.Value, fs); err != nil {
		return err
	}
	c.emit(bytecode.OpRetVal, 0)
	return nil
}

func (c *compiler) compileExpr(e ast.Expr, fs *funcState) error {
	switch expr := e.(type) {
	case *ast.IntLit:
		c.emit(bytecode.OpPushI32, uint64(uint32(expr.Value)))
		return nil
	case *ast.BoolLit:
		if expr.Value {
			c.emit(bytecode.OpPushBool, 1)
		} else {
			c.emit(bytecode.OpPushBool, 0)
		}
		return nil
	case *ast.StrLit:
		idx := c.addStrConstant(expr.Value)
		c.emit(bytecode.OpPushStr, uint64(idx))
		return nil
	case *ast.Ident:
		slot, ok := fs.lookup(expr.Name)
		if !ok {
			return errors.Errorf("undefined local %q (checker should have rejected this)", expr.Name)
		}
		c.emit(bytecode.OpLoad, uint64(slot))
		return nil
	case *ast.BinaryExpr:
		return c.compileBinary(expr, fs)
	case *ast.UnaryExpr:
		return c.compileUnary(expr, fs)
	case *ast.CallExpr:
		return c.compileCall(expr, fs)
	default:
		return errors.Errorf("unhandled expression kind %T", expr)
	}
}

// binaryOpcodes maps every binary operator the checker accepts to its
// fixed i32 opcode. The checker restricts arithmetic, comparison, and
// equality to i32 operands (the bytecode ISA has no bool/str
// equivalents), so no runtime type dispatch is needed here: the
// operator alone determines the opcode. &&/|| are handled separately
// by compileLogical, since the ISA's AND/OR are eager and the
// language requires short-circuit evaluation.
var binaryOpcodes = map[ast.BinOp]bytecode.Opcode{
	ast.OpAdd: bytecode.OpAddI32,
	ast.OpSub: bytecode.OpSubI32,
	ast.OpMul: bytecode.OpMulI32,
	ast.OpDiv: bytecode.OpDivI32,
	ast.OpEq:  bytecode.OpEqI32,
	ast.OpNe:  bytecode.OpNeI32,
	ast.OpLt:  bytecode.OpLtI32,
	ast.OpGt:  bytecode.OpGtI32,
	ast.OpLe:  bytecode.OpLeI32,
	ast.OpGe:  bytecode.OpGeI32,
}

func (c *compiler) compileBinary(e *ast.BinaryExpr, fs *funcState) error {
	switch e.Op {
	case ast.OpAssign:
		return c.compileAssign(e, fs)
	case ast.OpAnd, ast.OpOr:
		return c.compileLogical(e, fs)
	}

	op, ok := binaryOpcodes[e.Op]
	if !ok {
		return errors.Errorf("unhandled binary operator %q", e.Op)
	}
	if err := c.compileExpr(e.Left, fs); err != nil {
		return err
	}
	if err := c.compileExpr(e.Right, fs); err != nil {
		return err
	}
	c.emit(op, 0)
	return nil
}

// compileLogical synthesizes short-circuit && and || from jumps: the
// ISA's AND/OR opcodes are eager and would evaluate both operands
// regardless, which is observably wrong once the right operand has
// side effects (a call). The left operand is DUP'd before the branch
// so its value survives as the expression's result on the
// short-circuiting path.
func (c *compiler) compileLogical(e *ast.BinaryExpr, fs *funcState) error {
	if err := c.compileExpr(e.Left, fs); err != nil {
		return err
	}
	c.emit(bytecode.OpDup, 0)
	var shortCircuit int
	if e.Op == ast.OpAnd {
		shortCircuit = c.emit(bytecode.OpJmpIfNot, 0)
	} else {
		shortCircuit = c.emit(bytecode.OpJmpIf, 0)
	}
	c.emit(bytecode.OpPop, 0)
	if err := c.compileExpr(e.Right, fs); err != nil {
		return err
	}
	end := c.emit(bytecode.OpJmp, 0)
	c.patchJump(shortCircuit)
	c.patchJump(end)
	return nil
}

func (c *compiler) compileAssign(e *ast.BinaryExpr, fs *funcState) error {
	switch target := e.Left.(type) {
	case *ast.Ident:
		return c.compileAssignToIdent(target, e.Right, fs)
	case *ast.UnaryExpr:
		return c.compileAssignThroughDeref(target, e.Right, fs)
	default:
		return errors.Errorf("unhandled assignment target %T", target)
	}
}

// compileAssignToIdent compiles `name = rhs`, leaving the assigned
// value on the stack so assignment remains usable as an expression.
func (c *compiler) compileAssignToIdent(target *ast.Ident, rhs ast.Expr, fs *funcState) error {
	if err := c.compileExpr(rhs, fs); err != nil {
		return err
	}
	slot, ok := fs.lookup(target.Name)
	if !ok {
		return errors.Errorf("undefined local %q (checker should have rejected this)", target.Name)
	}
	c.emit(bytecode.OpDup, 0)
	c.emit(bytecode.OpStore, uint64(slot))
	return nil
}

// compileAssignThroughDeref compiles `*r = rhs`. STORE_REF pops the
// reference first and the value second, so the value is pushed, then
// duplicated (to survive as the assignment's own expression value),
// then the reference is pushed on top.
func (c *compiler) compileAssignThroughDeref(target *ast.UnaryExpr, rhs ast.Expr, fs *funcState) error {
	if err := c.compileExpr(rhs, fs); err != nil {
		return err
	}
	c.emit(bytecode.OpDup, 0)
	if err := c.compileExpr(target.Operand, fs); err != nil {
		return err
	}
	c.emit(bytecode.OpStoreRef, 0)
	return nil
}

func (c *compiler) compileUnary(e *ast.UnaryExpr, fs *funcState) error {
	switch e.Op {
	case ast.OpNeg:
		if err := c.compileExpr(e.Operand, fs); err != nil {
			return err
		}
		c.emit(bytecode.OpNegI32, 0)
		return nil
	case ast.OpNot:
		if err := c.compileExpr(e.Operand, fs); err != nil {
			return err
		}
		c.emit(bytecode.OpNot, 0)
		return nil
	case ast.OpBorrow, ast.OpBorrowMut:
		return c.compileBorrow(e, fs)
	case ast.OpDeref:
		if err := c.compileExpr(e.Operand, fs); err != nil {
			return err
		}
		c.emit(bytecode.OpDeref, 0)
		return nil
	default:
		return errors.Errorf("unhandled unary operator %q", e.Op)
	}
}

// compileBorrow distinguishes two shapes. Borrowing a plain local
// aliases that local's own slot (LOAD_REF) so mutation through the
// reference is visible to every other reference to the same local;
// borrowing any other expression has no local slot to alias, so its
// value is computed and copied into a fresh one (BORROW/BORROW_MUT,
// which are otherwise identical at runtime and exist only so the
// checker can tell them apart).
func (c *compiler) compileBorrow(e *ast.UnaryExpr, fs *funcState) error {
	if ident, ok := e.Operand.(*ast.Ident); ok {
		slot, ok := fs.lookup(ident.Name)
		if !ok {
			return errors.Errorf("undefined local %q (checker should have rejected this)", ident.Name)
		}
		c.emit(bytecode.OpLoadRef, uint64(slot))
		return nil
	}
	if err := c.compileExpr(e.Operand, fs); err != nil {
		return err
	}
	if e.Op == ast.OpBorrowMut {
		c.emit(bytecode.OpBorrowMut, 0)
	} else {
		c.emit(bytecode.OpBorrow, 0)
	}
	return nil
}

func (c *compiler) compileCall(e *ast.CallExpr, fs *funcState) error {
	for _, arg := range e.Args {
		if err := c.compileExpr(arg, fs); err != nil {
			return err
		}
	}
	idx, ok := c.funcIndex[e.Callee]
	if !ok {
		return errors.Errorf("call to undefined function %q (checker should have rejected this)", e.Callee)
	}
	c.emit(bytecode.OpCall, uint64(idx))
	return nil
}
