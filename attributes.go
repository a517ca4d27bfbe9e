package archivable

import (
	"fmt"
	"go/token"
	"reflect"
	"slices"

	"github.com/stoewer/go-strcase"
	"github.com/zoobzio/sentinel"
)

// tagName is the struct tag that renames an attribute or, with "-", marks
// a field as transient.
const tagName = "archive"

func init() {
	sentinel.Tag(tagName)
}

// attribute describes one persisted field of an archivable type.
type attribute struct {
	name       string       // attribute name used by policies, hooks and codecs
	field      string       // Go field path for error messages
	index      []int        // field index path from the root struct
	ptrIndices []int        // positions in index holding embedded struct pointers
	typ        reflect.Type // field type
}

// attributePlan is the scanned attribute layout of a type.
type attributePlan struct {
	typeName string
	attrs    []attribute
	byName   map[string]int
}

// buildAttributePlan scans T's exported fields. Fields of embedded structs,
// embedded struct pointers and unexported embedded structs are promoted the
// way Go promotes them: a shallower attribute shadows a deeper one with the
// same name, and two attributes sharing a name at the same depth are an
// error. Tag an embedded struct to persist it as a single attribute.
func buildAttributePlan[T any]() (*attributePlan, error) {
	typ := reflect.TypeFor[T]()
	if typ.Kind() != reflect.Struct {
		return nil, newConfigError(ErrInvalidDeclaration, typ.String(), "", "archivable types must be structs")
	}

	// sentinel skips unexported fields, embedded ones included
	meta := withEmbedded(typ, sentinel.Scan[T]())

	s := &attributeScan{typeName: typ.Name(), seen: map[reflect.Type]bool{typ: true}}
	if err := s.walk(typ, meta, nil, nil, ""); err != nil {
		return nil, err
	}
	return s.resolve()
}

// attributeScan collects attribute candidates across embedding levels.
type attributeScan struct {
	typeName   string
	candidates []attribute
	seen       map[reflect.Type]bool
}

// walk adds the fields of meta, descending into embedded structs.
func (s *attributeScan) walk(rt reflect.Type, meta sentinel.Metadata, parentIndex, ptrIndices []int, namePrefix string) error {
	for _, field := range meta.Fields {
		fullIndex := append(append([]int{}, parentIndex...), field.Index...)
		fullName := field.Name
		if namePrefix != "" {
			fullName = namePrefix + "." + field.Name
		}

		tag, tagged := field.Tags[tagName]
		if tag == "-" {
			continue
		}

		sf := rt.Field(field.Index[len(field.Index)-1])
		exported := token.IsExported(field.Name)

		if sf.Anonymous && !tagged {
			nested, isPtr := embeddedStruct(sf.Type)
			if nested != nil {
				if s.seen[nested] {
					continue
				}
				nestedPtrs := ptrIndices
				if isPtr {
					if !exported {
						return newConfigError(ErrInvalidDeclaration, s.typeName, fullName,
							"unexported embedded pointers cannot be allocated on load, embed the struct by value")
					}
					nestedPtrs = append(append([]int{}, ptrIndices...), len(fullIndex)-1)
				}

				s.seen[nested] = true
				err := s.walk(nested, structMeta(nested), fullIndex, nestedPtrs, fullName)
				delete(s.seen, nested)
				if err != nil {
					return err
				}
				continue
			}
		}

		if !exported {
			continue
		}

		name := tag
		if name == "" {
			name = strcase.SnakeCase(field.Name)
		}

		s.candidates = append(s.candidates, attribute{
			name:       name,
			field:      fullName,
			index:      fullIndex,
			ptrIndices: ptrIndices,
			typ:        field.ReflectType,
		})
	}

	return nil
}

// resolve applies the depth rule and builds the plan in field order.
func (s *attributeScan) resolve() (*attributePlan, error) {
	winner := make(map[string]int)
	for i, c := range s.candidates {
		prev, ok := winner[c.name]
		switch {
		case !ok || len(c.index) < len(s.candidates[prev].index):
			winner[c.name] = i
		case len(c.index) == len(s.candidates[prev].index):
			return nil, newConfigError(ErrInvalidDeclaration, s.typeName, c.name,
				fmt.Sprintf("fields %s and %s share the attribute name", s.candidates[prev].field, c.field))
		}
	}

	plan := &attributePlan{typeName: s.typeName, byName: make(map[string]int, len(winner))}
	for i, c := range s.candidates {
		if winner[c.name] != i {
			continue
		}
		plan.byName[c.name] = len(plan.attrs)
		plan.attrs = append(plan.attrs, c)
	}
	return plan, nil
}

// embeddedStruct returns the struct type behind an embedded field, if any.
func embeddedStruct(t reflect.Type) (reflect.Type, bool) {
	switch {
	case t.Kind() == reflect.Struct:
		return t, false
	case t.Kind() == reflect.Pointer && t.Elem().Kind() == reflect.Struct:
		return t.Elem(), true
	default:
		return nil, false
	}
}

// structMeta returns the metadata of a nested struct type, including its
// unexported embedded fields.
func structMeta(rt reflect.Type) sentinel.Metadata {
	if meta, ok := sentinel.Lookup(rt.String()); ok {
		return withEmbedded(rt, meta)
	}

	meta := sentinel.Metadata{
		TypeName:    rt.Name(),
		PackageName: rt.PkgPath(),
		Fields:      make([]sentinel.FieldMetadata, 0, rt.NumField()),
	}
	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		if !sf.IsExported() && !sf.Anonymous {
			continue
		}
		meta.Fields = append(meta.Fields, fieldMeta(sf))
	}
	return meta
}

// withEmbedded adds the unexported embedded fields of rt missing from meta
// and orders the fields by declaration.
func withEmbedded(rt reflect.Type, meta sentinel.Metadata) sentinel.Metadata {
	have := make(map[int]bool, len(meta.Fields))
	for _, f := range meta.Fields {
		have[f.Index[len(f.Index)-1]] = true
	}

	fields := slices.Clone(meta.Fields)
	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		if sf.Anonymous && !sf.IsExported() && !have[i] {
			fields = append(fields, fieldMeta(sf))
		}
	}
	slices.SortFunc(fields, func(a, b sentinel.FieldMetadata) int {
		return a.Index[len(a.Index)-1] - b.Index[len(b.Index)-1]
	})

	meta.Fields = fields
	return meta
}

// fieldMeta describes a struct field the way sentinel does.
func fieldMeta(sf reflect.StructField) sentinel.FieldMetadata {
	fm := sentinel.FieldMetadata{
		Name:        sf.Name,
		Type:        sf.Type.String(),
		ReflectType: sf.Type,
		Index:       sf.Index,
		Tags:        map[string]string{},
	}
	if val := sf.Tag.Get(tagName); val != "" {
		fm.Tags[tagName] = val
	}

	switch sf.Type.Kind() {
	case reflect.Struct:
		fm.Kind = sentinel.KindStruct
	case reflect.Ptr:
		fm.Kind = sentinel.KindPointer
	case reflect.Slice, reflect.Array:
		fm.Kind = sentinel.KindSlice
	case reflect.Map:
		fm.Kind = sentinel.KindMap
	case reflect.Interface:
		fm.Kind = sentinel.KindInterface
	default:
		fm.Kind = sentinel.KindScalar
	}
	return fm
}

// lookup returns the attribute with the given name.
func (p *attributePlan) lookup(name string) (attribute, bool) {
	i, ok := p.byName[name]
	if !ok {
		return attribute{}, false
	}
	return p.attrs[i], true
}

// allocate creates every nil embedded struct pointer on the way to an attribute.
func (p *attributePlan) allocate(obj reflect.Value) {
	for _, a := range p.attrs {
		if len(a.ptrIndices) > 0 {
			a.settable(obj)
		}
	}
}

// value returns the attribute's field on obj. It reports false when an
// embedded struct pointer on the way is nil.
func (a attribute) value(obj reflect.Value) (reflect.Value, bool) {
	v := obj
	for i, x := range a.index {
		v = v.Field(x)
		if slices.Contains(a.ptrIndices, i) {
			if v.IsNil() {
				return reflect.Value{}, false
			}
			v = v.Elem()
		}
	}
	return v, true
}

// settable returns the attribute's field on obj, allocating nil embedded
// struct pointers on the way.
func (a attribute) settable(obj reflect.Value) reflect.Value {
	v := obj
	for i, x := range a.index {
		v = v.Field(x)
		if slices.Contains(a.ptrIndices, i) {
			if v.IsNil() {
				v.Set(reflect.New(v.Type().Elem()))
			}
			v = v.Elem()
		}
	}
	return v
}

// present reports whether a field value counts as a set attribute.
// Nilable kinds are absent while nil; every other kind is always present.
func present(v reflect.Value) bool {
	if !v.IsValid() {
		return false
	}
	switch v.Kind() {
	case reflect.Pointer, reflect.Func, reflect.Map, reflect.Slice, reflect.Interface, reflect.Chan:
		return !v.IsNil()
	default:
		return true
	}
}

// payloadPlan maps the non-excluded attributes of a type onto a generated
// struct type that the object codec marshals in place of T. Excluded
// attributes are not part of that type, so the codec never sees them.
type payloadPlan struct {
	typ   reflect.Type
	attrs []attribute // attrs[i] backs payload field i
}

// buildPayloadPlan builds the payload struct type for plan under policy.
func buildPayloadPlan(plan *attributePlan, policy *Policy) *payloadPlan {
	pp := &payloadPlan{}
	fields := make([]reflect.StructField, 0, len(plan.attrs))

	for _, a := range plan.attrs {
		if policy.Excludes(a.name) {
			continue
		}
		fields = append(fields, reflect.StructField{
			Name: fmt.Sprintf("F%d", len(fields)),
			Type: a.typ,
			Tag: reflect.StructTag(fmt.Sprintf(`json:%q msgpack:%q yaml:%q bson:%q`,
				a.name, a.name, a.name, a.name)),
		})
		pp.attrs = append(pp.attrs, a)
	}

	pp.typ = reflect.StructOf(fields)
	return pp
}

// capture copies the payload attributes of obj into a new payload value.
// Attributes behind a nil embedded pointer keep their zero value.
func (pp *payloadPlan) capture(obj reflect.Value) reflect.Value {
	payload := reflect.New(pp.typ)
	pv := payload.Elem()
	for i, a := range pp.attrs {
		if v, ok := a.value(obj); ok {
			pv.Field(i).Set(v)
		}
	}
	return payload
}

// restore copies a decoded payload into obj field by field.
func (pp *payloadPlan) restore(payload, obj reflect.Value) {
	pv := payload.Elem()
	for i, a := range pp.attrs {
		a.settable(obj).Set(pv.Field(i))
	}
}
