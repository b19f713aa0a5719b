package codec

import (
	"fmt"
	"strconv"
	"strings"
)

// Repr renders the canonical form of a record: Type(name=value, ...).
// Arrays are summarized by dtype and shape; nested objects are rendered recursively.
func Repr(rec *Record) string {
	var b strings.Builder
	writeRepr(&b, rec)
	return b.String()
}

func writeRepr(b *strings.Builder, rec *Record) {
	b.WriteString(shortType(rec.Type))
	b.WriteByte('(')
	for i, f := range rec.Fields {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(f.Name)
		b.WriteByte('=')
		writeValue(b, f.Value)
	}
	b.WriteByte(')')
}

func writeValue(b *strings.Builder, v Value) {
	switch v.Kind {
	case KindNull:
		b.WriteString("null")
	case KindBool:
		b.WriteString(strconv.FormatBool(v.Bool))
	case KindInt:
		b.WriteString(strconv.FormatInt(v.Int, 10))
	case KindFloat:
		b.WriteString(strconv.FormatFloat(v.Float, 'g', -1, 64))
	case KindString:
		b.WriteString(strconv.Quote(v.Str))
	case KindStrings:
		fmt.Fprintf(b, "%q", v.Strs)
	case KindArray:
		b.WriteString(v.Array.String())
	case KindObject:
		writeRepr(b, v.Object)
	}
}

// shortType drops the package qualifier: "estimators.KMeans" -> "KMeans".
func shortType(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 && i < len(name)-1 {
		return name[i+1:]
	}
	return name
}

// Str renders obj the way it describes itself: its String method when it implements
// fmt.Stringer, otherwise the canonical form of rec.
func Str(obj Persistable, rec *Record) string {
	if s, ok := obj.(fmt.Stringer); ok {
		return s.String()
	}
	return Repr(rec)
}
