package symbols

// Context carries the compilation's well-known types and intrinsic
// functions. It is created per compilation and threaded through every
// phase; there is no process-wide symbol state.
type Context struct {
	Int32   *Primitive
	Int64   *Primitive
	Float32 *Primitive
	Float64 *Primitive
	Bool    *Primitive
	Char    *Primitive
	String  *Primitive
	Unit    *Primitive

	operators map[string][]*FuncSymbol
	toString  []*FuncSymbol
	concat    *FuncSymbol
}

// NewContext creates the intrinsic context.
func NewContext() *Context {
	c := &Context{
		Int32:   NewPrimitive("int32"),
		Int64:   NewPrimitive("int64"),
		Float32: NewPrimitive("float32"),
		Float64: NewPrimitive("float64"),
		Bool:    NewPrimitive("bool"),
		Char:    NewPrimitive("char"),
		String:  NewPrimitive("string"),
		Unit:    NewPrimitive("unit"),

		operators: make(map[string][]*FuncSymbol),
	}

	numeric := []Type{c.Int32, c.Int64, c.Float32, c.Float64}

	binary := func(name string, tag Intrinsic, operand, result func(Type) Type) {
		for _, t := range numeric {
			fn := NewFunc(name, Public)
			fn.Intrinsic = tag
			fn.Params = []*ParamSymbol{
				NewParam("left", operand(t), false),
				NewParam("right", operand(t), false),
			}
			fn.Return = result(t)
			c.operators[name] = append(c.operators[name], fn)
		}
	}
	same := func(t Type) Type { return t }
	toBool := func(Type) Type { return c.Bool }

	binary("+", IntrinsicAdd, same, same)
	binary("-", IntrinsicSub, same, same)
	binary("*", IntrinsicMul, same, same)
	binary("/", IntrinsicDiv, same, same)
	binary("rem", IntrinsicRem, same, same)
	binary("mod", IntrinsicMod, same, same)
	binary("<", IntrinsicLess, same, toBool)
	binary("<=", IntrinsicLessEqual, same, toBool)
	binary(">", IntrinsicGreater, same, toBool)
	binary(">=", IntrinsicGreaterEqual, same, toBool)
	binary("==", IntrinsicEqual, same, toBool)
	binary("!=", IntrinsicNotEqual, same, toBool)

	unary := func(name string, tag Intrinsic, types []Type) {
		for _, t := range types {
			fn := NewFunc(name, Public)
			fn.Intrinsic = tag
			fn.Params = []*ParamSymbol{NewParam("value", t, false)}
			fn.Return = t
			c.operators[name] = append(c.operators[name], fn)
		}
	}
	unary("unary+", IntrinsicPlus, numeric)
	unary("unary-", IntrinsicNeg, numeric)
	unary("not", IntrinsicNot, []Type{c.Bool})

	// Equality on bool, char, and string participate in == and !=.
	equality := []struct {
		name string
		tag  Intrinsic
	}{{"==", IntrinsicEqual}, {"!=", IntrinsicNotEqual}}
	for _, eq := range equality {
		for _, t := range []Type{c.Bool, c.Char, c.String} {
			fn := NewFunc(eq.name, Public)
			fn.Intrinsic = eq.tag
			fn.Params = []*ParamSymbol{NewParam("left", t, false), NewParam("right", t, false)}
			fn.Return = c.Bool
			c.operators[eq.name] = append(c.operators[eq.name], fn)
		}
	}

	// Conversions to string, used by interpolation holes.
	for _, t := range []Type{c.Int32, c.Int64, c.Float32, c.Float64, c.Bool, c.Char, c.String} {
		fn := NewFunc("toString", Public)
		fn.Intrinsic = IntrinsicToString
		fn.Params = []*ParamSymbol{NewParam("value", t, false)}
		fn.Return = c.String
		c.toString = append(c.toString, fn)
	}

	c.concat = NewFunc("concat", Public)
	c.concat.Intrinsic = IntrinsicStringConcat
	c.concat.Params = []*ParamSymbol{
		NewParam("left", c.String, false),
		NewParam("right", c.String, false),
	}
	c.concat.Return = c.String

	return c
}

// Operators returns the intrinsic overload set for an operator name
// ("+", "rem", "unary-", ...).
func (c *Context) Operators(name string) []*FuncSymbol {
	return c.operators[name]
}

// ToStringGroup returns the intrinsic string-conversion overload set.
func (c *Context) ToStringGroup() []*FuncSymbol { return c.toString }

// Concat returns the intrinsic string concatenation function.
func (c *Context) Concat() *FuncSymbol { return c.concat }

// Primitives returns every primitive type keyed by source name, for the
// binder's root scope.
func (c *Context) Primitives() []*Primitive {
	return []*Primitive{c.Int32, c.Int64, c.Float32, c.Float64, c.Bool, c.Char, c.String, c.Unit}
}
