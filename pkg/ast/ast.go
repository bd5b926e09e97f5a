// Package ast defines the abstract syntax tree produced by pkg/parser.
//
// Following the teacher corpus's convention (a tagged interface per
// node family plus marker methods, rather than a virtual base class
// with concrete subclasses), every node implements Node, and every
// statement/expression additionally implements Stmt/Expr.
package ast

// Node is implemented by every AST node.
type Node interface {
	node()
}

// Stmt is implemented by every statement node.
type Stmt interface {
	Node
	stmt()
}

// Expr is implemented by every expression node.
type Expr interface {
	Node
	expr()
}

// Type is implemented by every type annotation node.
type Type interface {
	Node
	typ()
	String() string
}

// ===== Program =====

// Program is an ordered sequence of function declarations.
type Program struct {
	Functions []*FunctionDecl
}

func (*Program) node() {}

// FunctionDecl declares one function.
type FunctionDecl struct {
	Name       string
	Params     []Param
	ReturnType Type // nil if the function returns nothing
	Body       *Block
}

func (*FunctionDecl) node() {}

// Param is one function parameter.
type Param struct {
	IsMut bool
	Name  string
	Type  Type
}

// ===== Types =====

// I32Type is the `i32` type.
type I32Type struct{}

func (*I32Type) node()          {}
func (*I32Type) typ()           {}
func (*I32Type) String() string { return "i32" }

// BoolType is the `bool` type.
type BoolType struct{}

func (*BoolType) node()          {}
func (*BoolType) typ()           {}
func (*BoolType) String() string { return "bool" }

// StrType is the `str` type.
type StrType struct{}

func (*StrType) node()          {}
func (*StrType) typ()           {}
func (*StrType) String() string { return "str" }

// RefType is `&Inner` (Mutable == false) or `&mut Inner` (Mutable == true).
type RefType struct {
	Inner   Type
	Mutable bool
}

func (*RefType) node() {}
func (*RefType) typ()  {}
func (r *RefType) String() string {
	if r.Mutable {
		return "&mut " + r.Inner.String()
	}
	return "&" + r.Inner.String()
}

// ===== Statements =====

// LetStmt binds a new local: `let [mut] name: type = init;`.
type LetStmt struct {
	IsMut bool
	Name  string
	Type  Type
	Init  Expr
}

func (*LetStmt) node() {}
func (*LetStmt) stmt() {}

// ExprStmt is an expression used as a statement (including assignment,
// which the parser represents as a BinaryExpr with Op OpAssign).
type ExprStmt struct {
	Expr Expr
}

func (*ExprStmt) node() {}
func (*ExprStmt) stmt() {}

// IfStmt is `if cond { then } [else (if | block)]`.
// Else is nil, a *Block, or a *IfStmt (for `else if`).
type IfStmt struct {
	Cond Expr
	Then *Block
	Else Stmt
}

func (*IfStmt) node() {}
func (*IfStmt) stmt() {}

// WhileStmt is `while cond { body }`.
type WhileStmt struct {
	Cond Expr
	Body *Block
}

func (*WhileStmt) node() {}
func (*WhileStmt) stmt() {}

// Block is `{ stmts }`; it is itself a statement per the grammar.
type Block struct {
	Stmts []Stmt
}

func (*Block) node() {}
func (*Block) stmt() {}

// ReturnStmt is `return [expr];`. Ferro supplements the distilled
// grammar's bare `return` inside expression position with an explicit
// statement, matching how every function body in practice ends.
type ReturnStmt struct {
	Value Expr // nil for a bare `return;`
}

func (*ReturnStmt) node() {}
func (*ReturnStmt) stmt() {}

// ===== Expressions =====

// Ident is a variable or function-name reference.
type Ident struct {
	Name string
}

func (*Ident) node() {}
func (*Ident) expr() {}

// IntLit is an integer literal (base-10 digit run).
type IntLit struct {
	Value int32
}

func (*IntLit) node() {}
func (*IntLit) expr() {}

// BoolLit is `true` or `false`.
type BoolLit struct {
	Value bool
}

func (*BoolLit) node() {}
func (*BoolLit) expr() {}

// StrLit is a double-quoted string literal with escapes already resolved.
type StrLit struct {
	Value string
}

func (*StrLit) node() {}
func (*StrLit) expr() {}

// BinOp enumerates binary operators, including assignment (parsed as
// an expression per the grammar).
type BinOp string

const (
	OpAdd    BinOp = "+"
	OpSub    BinOp = "-"
	OpMul    BinOp = "*"
	OpDiv    BinOp = "/"
	OpEq     BinOp = "=="
	OpNe     BinOp = "!="
	OpLt     BinOp = "<"
	OpGt     BinOp = ">"
	OpLe     BinOp = "<="
	OpGe     BinOp = ">="
	OpAnd    BinOp = "&&"
	OpOr     BinOp = "||"
	OpAssign BinOp = "="
)

// BinaryExpr is `left op right`.
type BinaryExpr struct {
	Left  Expr
	Op    BinOp
	Right Expr
}

func (*BinaryExpr) node() {}
func (*BinaryExpr) expr() {}

// UnOp enumerates unary/prefix operators.
type UnOp string

const (
	OpNeg       UnOp = "-"
	OpNot       UnOp = "!"
	OpBorrow    UnOp = "&"
	OpBorrowMut UnOp = "&mut"
	OpDeref     UnOp = "*"
)

// UnaryExpr is `op operand`.
type UnaryExpr struct {
	Op      UnOp
	Operand Expr
}

func (*UnaryExpr) node() {}
func (*UnaryExpr) expr() {}

// CallExpr is `callee(args...)`.
type CallExpr struct {
	Callee string
	Args   []Expr
}

func (*CallExpr) node() {}
func (*CallExpr) expr() {}
