package sema

import "github.com/Owen-Dechow/TermsLang-sub000/internal/token"

// newRootStructs builds the five built-in root structs (§3 "Built-in root
// structs") with their fixed special-method tables (§9 "Special-method
// dispatch"): a table keyed by (root-type, operator) resolving to
// built-in routines, rather than a dynamically extensible method set.
func newRootStructs() (map[string]*AStruct, []*AFunc) {
	intT := &AStruct{Name: "int", System: true, Root: true, Loc: token.NoLoc}
	floatT := &AStruct{Name: "float", System: true, Root: true, Loc: token.NoLoc}
	boolT := &AStruct{Name: "bool", System: true, Root: true, Loc: token.NoLoc}
	strT := &AStruct{Name: "str", System: true, Root: true, Loc: token.NoLoc}
	nullT := &AStruct{Name: "null", System: true, Root: true, Loc: token.NoLoc}

	roots := map[string]*AStruct{
		"int": intT, "float": floatT, "bool": boolT, "str": strT, "null": nullT,
	}

	var uid int
	nextUID := func() int { uid++; return uid }

	internalFunc := func(owner *AStruct, name string, ret *AType, argTypes ...*AType) *AFunc {
		f := &AFunc{Name: name, ReturnType: ret, Internal: true, IsMethod: true, Owner: owner, UID: nextUID(), Loc: token.NoLoc}
		for _, at := range argTypes {
			f.Args = append(f.Args, &AArg{Name: "x", Type: at})
		}
		if owner.Methods == nil {
			owner.Methods = map[string]*AFunc{}
		}
		owner.Methods[name] = f
		return f
	}

	ofStruct := func(s *AStruct) *AType { return &AType{Kind: AStructObject, Struct: s} }

	tInt, tFloat, tBool, tStr, tNull := ofStruct(intT), ofStruct(floatT), ofStruct(boolT), ofStruct(strT), ofStruct(nullT)

	// Arithmetic on int and float: @add/@sub/@mult/@div/@mod/@exp.
	for _, pair := range []struct {
		owner *AStruct
		self  *AType
	}{{intT, tInt}, {floatT, tFloat}} {
		internalFunc(pair.owner, "@add", pair.self, pair.self)
		internalFunc(pair.owner, "@sub", pair.self, pair.self)
		internalFunc(pair.owner, "@mult", pair.self, pair.self)
		internalFunc(pair.owner, "@div", pair.self, pair.self)
		internalFunc(pair.owner, "@exp", pair.self, pair.self)
	}
	internalFunc(intT, "@mod", tInt, tInt) // % is integer-only

	// Comparisons against the operand's own kind: @eq on every root type
	// but null, the ordering comparisons on int, float and str only.
	for _, pair := range []struct {
		owner *AStruct
		self  *AType
	}{{intT, tInt}, {floatT, tFloat}, {boolT, tBool}, {strT, tStr}} {
		internalFunc(pair.owner, "@eq", tBool, pair.self)
	}
	for _, pair := range []struct {
		owner *AStruct
		self  *AType
	}{{intT, tInt}, {floatT, tFloat}, {strT, tStr}} {
		internalFunc(pair.owner, "@gt", tBool, pair.self)
		internalFunc(pair.owner, "@gteq", tBool, pair.self)
		internalFunc(pair.owner, "@lt", tBool, pair.self)
		internalFunc(pair.owner, "@lteq", tBool, pair.self)
	}

	// Logical ops on bool.
	internalFunc(boolT, "@and", tBool, tBool)
	internalFunc(boolT, "@or", tBool, tBool)
	internalFunc(boolT, "@not", tBool)

	// String concatenation reuses @add so `"a" + "b"` type-checks the
	// same way arithmetic addition does.
	internalFunc(strT, "@add", tStr, tStr)

	// @str / @str-conversions on every root type.
	internalFunc(intT, "@str", tStr)
	internalFunc(floatT, "@str", tStr)
	internalFunc(boolT, "@str", tStr)
	internalFunc(strT, "@str", tStr)
	internalFunc(nullT, "@str", tStr)

	// Cross-type conversions (§6 reserved identifiers @int/@float/@bool).
	internalFunc(strT, "@int", tInt)
	internalFunc(strT, "@float", tFloat)
	internalFunc(floatT, "@int", tInt)
	internalFunc(intT, "@float", tFloat)
	internalFunc(strT, "@bool", tBool)

	// @new: the constructor special method. Per spec.md's worked example
	// (`@new(int)->int`) every primitive but `null` takes one argument of
	// its own type and hands it back, a copy-constructor reading; `null`
	// alone takes none, since there is no value to carry. User structs get
	// a default `@new` from synthesizeConstructors, after signatures are
	// resolved, if they do not declare their own.
	internalFunc(intT, "@new", tInt, tInt)
	internalFunc(floatT, "@new", tFloat, tFloat)
	internalFunc(boolT, "@new", tBool, tBool)
	internalFunc(strT, "@new", tStr, tStr)
	internalFunc(nullT, "@new", tNull)

	// @readln is a free (non-method) built-in function, not a special
	// method on a root type: it takes no receiver.
	readln := &AFunc{Name: "@readln", ReturnType: tStr, Internal: true, UID: nextUID(), Loc: token.NoLoc}

	return roots, []*AFunc{readln}
}

// arrayMethods builds the fixed special-method set for an array-of-T type,
// per §4.4.2's InternalOp array built-ins (@len/@idx/@append/@remove).
// Arrays are structurally typed (every Array(T) shares these four
// operations), so these are synthesized per concrete element type rather
// than looked up in a owner.Methods map.
func arrayMethods(elem, intT *AType) map[string]*AFunc {
	arr := &AType{Kind: AArray, Elem: elem}
	return map[string]*AFunc{
		"@len":    {Name: "@len", ReturnType: intT, Internal: true, InternalArray: true},
		"@idx":    {Name: "@idx", ReturnType: elem, Args: []*AArg{{Name: "i", Type: intT}}, Internal: true, InternalArray: true},
		"@append": {Name: "@append", ReturnType: arr, Args: []*AArg{{Name: "v", Type: elem}}, Internal: true, InternalArray: true},
		"@remove": {Name: "@remove", ReturnType: arr, Args: []*AArg{{Name: "i", Type: intT}}, Internal: true, InternalArray: true},
	}
}
