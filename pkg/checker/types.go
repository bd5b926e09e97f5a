package checker

import "github.com/ferrolang/ferro/pkg/ast"

// typesEqual is structural equality over the small type grammar:
// I32/Bool/Str compare by kind, RefType compares mutability and inner
// type recursively.
func typesEqual(a, b ast.Type) bool {
	switch av := a.(type) {
	case *ast.I32Type:
		_, ok := b.(*ast.I32Type)
		return ok
	case *ast.BoolType:
		_, ok := b.(*ast.BoolType)
		return ok
	case *ast.StrType:
		_, ok := b.(*ast.StrType)
		return ok
	case *ast.RefType:
		bv, ok := b.(*ast.RefType)
		if !ok || av.Mutable != bv.Mutable {
			return false
		}
		return typesEqual(av.Inner, bv.Inner)
	default:
		return false
	}
}

func isI32(t ast.Type) bool {
	_, ok := t.(*ast.I32Type)
	return ok
}

func isBool(t ast.Type) bool {
	_, ok := t.(*ast.BoolType)
	return ok
}

func asRef(t ast.Type) (*ast.RefType, bool) {
	r, ok := t.(*ast.RefType)
	return r, ok
}

// FuncSig is a function's checked signature.
type FuncSig struct {
	Params     []ast.Type
	ReturnType ast.Type // nil for a function returning nothing
}
