package internal

import (
	"bytes"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// String primitives. Strings are byte arrays; the case conversions treat
// them as UTF-8 and go through x/text so non-ASCII text folds correctly.

func stringRecv(in *Interp, rng SourceRange, recv *Tracked) (ByteArrayObject, Completion) {
	b, ok := ByteArrayAt(recv.Get())
	if !ok {
		return ByteArrayObject{}, Failf(rng, "string expected, got %s", in.vm.FormatValue(recv.Get()))
	}
	return b, Completion{Kind: NormalCompletion}
}

func caseFold(c cases.Caser) primitiveFn {
	return func(in *Interp, rng SourceRange, recv *Tracked, args []*Tracked) Completion {
		b, cc := stringRecv(in, rng, recv)
		if cc.IsError() {
			return cc
		}
		return in.stringResult(rng, c.String(b.String()))
	}
}

func addStringPrimitives(p map[string]primitiveFn) {
	p["_StringPrint"] = func(in *Interp, rng SourceRange, recv *Tracked, args []*Tracked) Completion {
		b, c := stringRecv(in, rng, recv)
		if c.IsError() {
			return c
		}
		in.vm.Out.Write(b.Bytes())
		return Normal(recv.Get())
	}
	p["_StringPrintString"] = func(in *Interp, rng SourceRange, recv *Tracked, args []*Tracked) Completion {
		if _, c := stringRecv(in, rng, recv); c.IsError() {
			return c
		}
		return Normal(recv.Get())
	}
	p["_StringConcat:"] = func(in *Interp, rng SourceRange, recv *Tracked, args []*Tracked) Completion {
		a, c := stringRecv(in, rng, recv)
		if c.IsError() {
			return c
		}
		b, ok := ByteArrayAt(args[0].Get())
		if !ok {
			return Failf(rng, "string expected, got %s", in.vm.FormatValue(args[0].Get()))
		}
		joined := make([]byte, 0, a.Length()+b.Length())
		joined = append(joined, a.Bytes()...)
		joined = append(joined, b.Bytes()...)
		return in.stringResult(rng, string(joined))
	}
	p["_StringEq:"] = func(in *Interp, rng SourceRange, recv *Tracked, args []*Tracked) Completion {
		a, c := stringRecv(in, rng, recv)
		if c.IsError() {
			return c
		}
		b, ok := ByteArrayAt(args[0].Get())
		if !ok {
			return Normal(in.vm.FalseObject)
		}
		return Normal(in.vm.boolValue(bytes.Equal(a.Bytes(), b.Bytes())))
	}
	p["_StringUpper"] = caseFold(cases.Upper(language.Und))
	p["_StringLower"] = caseFold(cases.Lower(language.Und))
	p["_StringTitle"] = caseFold(cases.Title(language.Und))
}
