package diag

// Syntax diagnostics.
var (
	UnexpectedInput = &Template{
		Code:     "DR0001",
		Severity: Error,
		Format:   "unexpected input while parsing %s",
	}
	ExpectedToken = &Template{
		Code:     "DR0002",
		Severity: Error,
		Format:   "expected %s",
	}
	IllegalElementInContext = &Template{
		Code:     "DR0003",
		Severity: Error,
		Format:   "%s is not allowed in this context",
	}
	IllegalCharacter = &Template{
		Code:     "DR0004",
		Severity: Error,
		Format:   "illegal character %q in input",
	}
	UnterminatedString = &Template{
		Code:     "DR0005",
		Severity: Error,
		Format:   "string literal is not terminated",
	}
	InsufficientIndentationInMultiLineString = &Template{
		Code:     "DR0006",
		Severity: Error,
		Format:   "insufficient indentation in multi-line string",
	}
	ClosingQuotesOfMultiLineStringNotOnNewLine = &Template{
		Code:     "DR0007",
		Severity: Error,
		Format:   "closing quotes of multi-line string must be on a new line",
	}
	ExtraTokensInlineWithOpenQuotesOfMultiLineString = &Template{
		Code:     "DR0008",
		Severity: Error,
		Format:   "extra tokens inline with opening quotes of multi-line string",
	}
)

// Symbol resolution diagnostics.
var (
	UndefinedReference = &Template{
		Code:     "DR0101",
		Severity: Error,
		Format:   "undefined reference to %s",
	}
	AmbiguousReference = &Template{
		Code:     "DR0102",
		Severity: Error,
		Format:   "reference to %s is ambiguous",
	}
	IllegalReferenceContext = &Template{
		Code:     "DR0103",
		Severity: Error,
		Format:   "%s cannot be referenced as a %s",
	}
)

// Type checking diagnostics.
var (
	TypeMismatch = &Template{
		Code:     "DR0201",
		Severity: Error,
		Format:   "type mismatch: expected %s, got %s",
	}
	CallNonFunction = &Template{
		Code:     "DR0202",
		Severity: Error,
		Format:   "%s is not callable",
	}
	AmbiguousOverload = &Template{
		Code:     "DR0203",
		Severity: Error,
		Format:   "call to %s is ambiguous between %s",
	}
	NoMatchingOverload = &Template{
		Code:     "DR0204",
		Severity: Error,
		Format:   "no overload of %s matches argument types (%s)",
	}
	GenericArityMismatch = &Template{
		Code:     "DR0205",
		Severity: Error,
		Format:   "%s expects %d type arguments, got %d",
	}
)

// Flow diagnostics.
var (
	UnreachableCode = &Template{
		Code:     "DR0301",
		Severity: Warning,
		Format:   "unreachable code",
	}
	NotAllPathsReturn = &Template{
		Code:     "DR0302",
		Severity: Error,
		Format:   "not all code paths of %s return a value",
	}
)
