package syntax

import "fmt"

// NodeKind discriminates green and red syntax nodes.
//
// Nodes with fixed child layouts document their slots next to the kind;
// an absent optional slot is a nil green child of width zero. List kinds
// have variable arity.
type NodeKind uint8

const (
	KindUnknownNode NodeKind = iota

	// Root
	KindCompilationUnit // [declList, endOfInput]

	// Declarations
	KindImportDecl   // [importKw, path, semicolon]
	KindFuncDecl     // [visibility?, funcKw, name, genericParams?, openParen, paramList, closeParen, returnType?, body]
	KindModuleDecl   // [visibility?, moduleKw, name, openBrace, declList, closeBrace]
	KindVariableDecl // [visibility?, keyword, name, typeSpec?, valueSpec?, semicolon]
	KindLabelDecl    // [name, colon]

	// Declaration helpers
	KindDeclList             // [decl...]
	KindGenericParamList     // [lt, (param|comma)..., gt]
	KindGenericParam         // [name]
	KindParamList            // [(param|comma)...]
	KindParam                // [ellipsis?, name, colon, type]
	KindTypeSpecifier        // [colon, type]
	KindValueSpecifier       // [assign, expr]
	KindBlockFuncBody        // [blockExpr]
	KindInlineFuncBody       // [assign, expr, semicolon]

	// Statements
	KindDeclStmt // [decl]
	KindExprStmt // [expr, semicolon?]
	KindNoOpStmt // [semicolon]
	KindStmtList // [stmt...]

	// Expressions
	KindLiteralExpr            // [literal]
	KindNameExpr               // [name]
	KindMemberExpr             // [receiver, dot, name]
	KindCallExpr               // [callee, openParen, argList, closeParen]
	KindIndexExpr              // [receiver, openBracket, argList, closeBracket]
	KindGenericExpr            // [instantiated, lt, typeArgList, gt]
	KindUnaryExpr              // [op, operand]
	KindBinaryExpr             // [left, op, right]
	KindAssignExpr             // [target, op, value]
	KindRelationalExpr         // [left, comparisonList]
	KindComparison             // [op, right]
	KindComparisonList         // [comparison...]
	KindGroupingExpr           // [openParen, expr, closeParen]
	KindIfExpr                 // [ifKw, openParen, cond, closeParen, then, elseClause?]
	KindElseClause             // [elseKw, expr]
	KindWhileExpr              // [whileKw, openParen, cond, closeParen, body]
	KindBlockExpr              // [openBrace, stmtList, value?, closeBrace]
	KindReturnExpr             // [returnKw, value?]
	KindGotoExpr               // [gotoKw, target]
	KindNameLabel              // [name]
	KindStringExpr             // [open, partList, close]
	KindTextStringPart         // [content]
	KindInterpolationStringPart // [open, expr, close]
	KindStringPartList         // [part...]
	KindArgList                // [(expr|comma)...]

	// Types
	KindNameType        // [name]
	KindMemberType      // [receiver, dot, name]
	KindGenericType     // [instantiated, lt, typeArgList, gt]
	KindTypeArgList     // [(type|comma)...]

	// Recovery
	KindUnexpected // [token/node...]

	nodeKindCount
)

// nodeKindNames maps node kinds to their string representation.
var nodeKindNames = [nodeKindCount]string{
	KindUnknownNode: "UnknownNode",

	KindCompilationUnit: "CompilationUnit",

	KindImportDecl:   "ImportDecl",
	KindFuncDecl:     "FuncDecl",
	KindModuleDecl:   "ModuleDecl",
	KindVariableDecl: "VariableDecl",
	KindLabelDecl:    "LabelDecl",

	KindDeclList:         "DeclList",
	KindGenericParamList: "GenericParamList",
	KindGenericParam:     "GenericParam",
	KindParamList:        "ParamList",
	KindParam:            "Param",
	KindTypeSpecifier:    "TypeSpecifier",
	KindValueSpecifier:   "ValueSpecifier",
	KindBlockFuncBody:    "BlockFuncBody",
	KindInlineFuncBody:   "InlineFuncBody",

	KindDeclStmt: "DeclStmt",
	KindExprStmt: "ExprStmt",
	KindNoOpStmt: "NoOpStmt",
	KindStmtList: "StmtList",

	KindLiteralExpr:             "LiteralExpr",
	KindNameExpr:                "NameExpr",
	KindMemberExpr:              "MemberExpr",
	KindCallExpr:                "CallExpr",
	KindIndexExpr:               "IndexExpr",
	KindGenericExpr:             "GenericExpr",
	KindUnaryExpr:               "UnaryExpr",
	KindBinaryExpr:              "BinaryExpr",
	KindAssignExpr:              "AssignExpr",
	KindRelationalExpr:          "RelationalExpr",
	KindComparison:              "Comparison",
	KindComparisonList:          "ComparisonList",
	KindGroupingExpr:            "GroupingExpr",
	KindIfExpr:                  "IfExpr",
	KindElseClause:              "ElseClause",
	KindWhileExpr:               "WhileExpr",
	KindBlockExpr:               "BlockExpr",
	KindReturnExpr:              "ReturnExpr",
	KindGotoExpr:                "GotoExpr",
	KindNameLabel:               "NameLabel",
	KindStringExpr:              "StringExpr",
	KindTextStringPart:          "TextStringPart",
	KindInterpolationStringPart: "InterpolationStringPart",
	KindStringPartList:          "StringPartList",
	KindArgList:                 "ArgList",

	KindNameType:    "NameType",
	KindMemberType:  "MemberType",
	KindGenericType: "GenericType",
	KindTypeArgList: "TypeArgList",

	KindUnexpected: "Unexpected",
}

// String returns the string representation of the node kind.
func (k NodeKind) String() string {
	if k < nodeKindCount {
		return nodeKindNames[k]
	}
	return fmt.Sprintf("NodeKind(%d)", uint8(k))
}

// IsDecl reports whether k is a declaration kind.
func (k NodeKind) IsDecl() bool {
	switch k {
	case KindImportDecl, KindFuncDecl, KindModuleDecl, KindVariableDecl, KindLabelDecl:
		return true
	}
	return false
}

// IsExpr reports whether k is an expression kind.
func (k NodeKind) IsExpr() bool {
	switch k {
	case KindLiteralExpr, KindNameExpr, KindMemberExpr, KindCallExpr, KindIndexExpr,
		KindGenericExpr, KindUnaryExpr, KindBinaryExpr, KindAssignExpr,
		KindRelationalExpr, KindGroupingExpr, KindIfExpr, KindWhileExpr,
		KindBlockExpr, KindReturnExpr, KindGotoExpr, KindStringExpr:
		return true
	}
	return false
}

// IsType reports whether k is a type-expression kind.
func (k NodeKind) IsType() bool {
	switch k {
	case KindNameType, KindMemberType, KindGenericType:
		return true
	}
	return false
}
