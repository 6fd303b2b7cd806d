package schema

import (
	"fmt"
	"strconv"
	"strings"

	"google.golang.org/protobuf/types/descriptorpb"
)

// Source code info path components, from descriptor.proto.
const (
	pathFileMessage  = 4
	pathFileEnum     = 5
	pathMessageField = 2
	pathMessageMsg   = 3
	pathMessageEnum  = 4
	pathMessageOneOf = 8
	pathEnumValue    = 2
)

var scalarNames = map[descriptorpb.FieldDescriptorProto_Type]string{
	descriptorpb.FieldDescriptorProto_TYPE_DOUBLE:   "double",
	descriptorpb.FieldDescriptorProto_TYPE_FLOAT:    "float",
	descriptorpb.FieldDescriptorProto_TYPE_INT64:    "int64",
	descriptorpb.FieldDescriptorProto_TYPE_UINT64:   "uint64",
	descriptorpb.FieldDescriptorProto_TYPE_INT32:    "int32",
	descriptorpb.FieldDescriptorProto_TYPE_FIXED64:  "fixed64",
	descriptorpb.FieldDescriptorProto_TYPE_FIXED32:  "fixed32",
	descriptorpb.FieldDescriptorProto_TYPE_BOOL:     "bool",
	descriptorpb.FieldDescriptorProto_TYPE_STRING:   "string",
	descriptorpb.FieldDescriptorProto_TYPE_BYTES:    "bytes",
	descriptorpb.FieldDescriptorProto_TYPE_UINT32:   "uint32",
	descriptorpb.FieldDescriptorProto_TYPE_SFIXED32: "sfixed32",
	descriptorpb.FieldDescriptorProto_TYPE_SFIXED64: "sfixed64",
	descriptorpb.FieldDescriptorProto_TYPE_SINT32:   "sint32",
	descriptorpb.FieldDescriptorProto_TYPE_SINT64:   "sint64",
}

// FromDescriptor converts a FileDescriptorProto, as produced by protoc or protodesc, into
// a File. Map fields become MapField elements and their synthetic entry messages are
// dropped. Synthetic oneofs for proto3 optional fields become LabelOptional fields.
// Comments are carried over when fd has source code info.
func FromDescriptor(fd *descriptorpb.FileDescriptorProto) (*File, error) {
	if fd == nil {
		return nil, fmt.Errorf("schema: nil FileDescriptorProto")
	}
	c := converter{
		pkg:    fd.GetPackage(),
		proto2: fd.GetSyntax() != Proto3,
		docs:   docIndex(fd.GetSourceCodeInfo()),
	}

	f := &File{
		Name:    fd.GetName(),
		Syntax:  fd.GetSyntax(),
		Package: fd.GetPackage(),
		Imports: append([]string(nil), fd.GetDependency()...),
	}
	if f.Syntax == "" {
		f.Syntax = Proto2
	}
	if fd.GetOptions().GetDeprecated() {
		f.Options = append(f.Options, Option{Name: "deprecated", Value: "true"})
	}
	if gp := fd.GetOptions().GetGoPackage(); gp != "" {
		f.Options = append(f.Options, Option{Name: "go_package", Value: gp})
	}

	for i, md := range fd.GetMessageType() {
		m, err := c.message(md, []int32{pathFileMessage, int32(i)})
		if err != nil {
			return nil, err
		}
		f.Messages = append(f.Messages, m)
	}
	for i, ed := range fd.GetEnumType() {
		f.Enums = append(f.Enums, c.enum(ed, []int32{pathFileEnum, int32(i)}))
	}
	return f, nil
}

type converter struct {
	pkg string
	// proto2 is set for proto2 and editions files, where a singular field has explicit
	// presence.
	proto2 bool
	docs   map[string]string
}

func (c converter) doc(path []int32) string {
	return c.docs[pathKey(path)]
}

func (c converter) message(md *descriptorpb.DescriptorProto, path []int32) (*Message, error) {
	m := &Message{Name: md.GetName(), Doc: c.doc(path)}

	if md.GetOptions().GetDeprecated() {
		m.Elements = append(m.Elements, Element{Option: &Option{Name: "deprecated", Value: "true"}})
	}

	entries := map[string]*descriptorpb.DescriptorProto{}
	for i, nested := range md.GetNestedType() {
		if nested.GetOptions().GetMapEntry() {
			entries[nested.GetName()] = nested
			continue
		}
		nm, err := c.message(nested, child(path, pathMessageMsg, i))
		if err != nil {
			return nil, err
		}
		m.Elements = append(m.Elements, Element{Message: nm})
	}
	for i, ed := range md.GetEnumType() {
		m.Elements = append(m.Elements, Element{Enum: c.enum(ed, child(path, pathMessageEnum, i))})
	}

	oneofs := make([]*OneOf, len(md.GetOneofDecl()))
	for i, fd := range md.GetField() {
		fpath := child(path, pathMessageField, i)

		if fd.OneofIndex != nil && !fd.GetProto3Optional() {
			idx := int(fd.GetOneofIndex())
			if idx >= len(oneofs) {
				return nil, fmt.Errorf("schema: field %s.%s has oneof index %d out of range", m.Name, fd.GetName(), idx)
			}
			if oneofs[idx] == nil {
				od := md.GetOneofDecl()[idx]
				oneofs[idx] = &OneOf{Name: od.GetName(), Doc: c.doc(child(path, pathMessageOneOf, idx))}
				m.Elements = append(m.Elements, Element{OneOf: oneofs[idx]})
			}
			oneofs[idx].Fields = append(oneofs[idx].Fields, c.field(fd, fpath))
			continue
		}

		if entry, ok := c.mapEntry(fd, entries); ok {
			m.Elements = append(m.Elements, Element{Map: &MapField{
				Name:      fd.GetName(),
				Doc:       c.doc(fpath),
				KeyType:   c.typeName(entry.GetField()[0]),
				ValueType: c.typeName(entry.GetField()[1]),
				Number:    fd.GetNumber(),
			}})
			continue
		}
		m.Elements = append(m.Elements, Element{Field: c.field(fd, fpath)})
	}

	if len(md.GetReservedRange()) > 0 || len(md.GetReservedName()) > 0 {
		r := &Reserved{Names: append([]string(nil), md.GetReservedName()...)}
		for _, rr := range md.GetReservedRange() {
			// Descriptor ranges are end exclusive.
			r.Ranges = append(r.Ranges, Range{Start: rr.GetStart(), End: rr.GetEnd() - 1})
		}
		m.Elements = append(m.Elements, Element{Reserved: r})
	}
	return m, nil
}

func (c converter) mapEntry(fd *descriptorpb.FieldDescriptorProto, entries map[string]*descriptorpb.DescriptorProto) (*descriptorpb.DescriptorProto, bool) {
	if fd.GetLabel() != descriptorpb.FieldDescriptorProto_LABEL_REPEATED || fd.GetType() != descriptorpb.FieldDescriptorProto_TYPE_MESSAGE {
		return nil, false
	}
	name := fd.GetTypeName()
	entry, ok := entries[name[strings.LastIndex(name, ".")+1:]]
	if !ok || len(entry.GetField()) != 2 {
		return nil, false
	}
	return entry, true
}

func (c converter) field(fd *descriptorpb.FieldDescriptorProto, path []int32) *Field {
	f := &Field{
		Name:   fd.GetName(),
		Doc:    c.doc(path),
		Type:   c.typeName(fd),
		Number: fd.GetNumber(),
	}
	switch {
	case fd.GetLabel() == descriptorpb.FieldDescriptorProto_LABEL_REPEATED:
		f.Label = LabelRepeated
	case fd.GetLabel() == descriptorpb.FieldDescriptorProto_LABEL_REQUIRED:
		f.Label = LabelRequired
	case fd.GetProto3Optional():
		f.Label = LabelOptional
	case c.proto2 && fd.OneofIndex == nil:
		f.Label = LabelOptional
	}
	if fd.GetOptions().GetDeprecated() {
		f.Options = append(f.Options, Option{Name: "deprecated", Value: "true"})
	}
	if fd.GetOptions() != nil && fd.GetOptions().Packed != nil {
		f.Options = append(f.Options, Option{Name: "packed", Value: strconv.FormatBool(fd.GetOptions().GetPacked())})
	}
	if fd.DefaultValue != nil {
		f.Options = append(f.Options, Option{Name: "default", Value: fd.GetDefaultValue()})
	}
	return f
}

// typeName returns the scalar keyword, or the message or enum name relative to the file
// package.
func (c converter) typeName(fd *descriptorpb.FieldDescriptorProto) string {
	if s, ok := scalarNames[fd.GetType()]; ok {
		return s
	}
	name := strings.TrimPrefix(fd.GetTypeName(), ".")
	if c.pkg != "" && strings.HasPrefix(name, c.pkg+".") {
		return strings.TrimPrefix(name, c.pkg+".")
	}
	return "." + name
}

func (c converter) enum(ed *descriptorpb.EnumDescriptorProto, path []int32) *Enum {
	e := &Enum{Name: ed.GetName(), Doc: c.doc(path)}
	if ed.GetOptions().GetDeprecated() {
		e.Options = append(e.Options, Option{Name: "deprecated", Value: "true"})
	}
	for i, vd := range ed.GetValue() {
		v := &EnumValue{
			Name:   vd.GetName(),
			Doc:    c.doc(child(path, pathEnumValue, i)),
			Number: vd.GetNumber(),
		}
		if vd.GetOptions().GetDeprecated() {
			v.Options = append(v.Options, Option{Name: "deprecated", Value: "true"})
		}
		e.Values = append(e.Values, v)
	}
	return e
}

func child(path []int32, kind int32, i int) []int32 {
	out := make([]int32, len(path), len(path)+2)
	copy(out, path)
	return append(out, kind, int32(i))
}

func pathKey(path []int32) string {
	sb := strings.Builder{}
	for i, p := range path {
		if i > 0 {
			sb.WriteByte('.')
		}
		sb.WriteString(strconv.Itoa(int(p)))
	}
	return sb.String()
}

func docIndex(info *descriptorpb.SourceCodeInfo) map[string]string {
	docs := map[string]string{}
	for _, loc := range info.GetLocation() {
		if c := strings.TrimSpace(loc.GetLeadingComments()); c != "" {
			docs[pathKey(loc.GetPath())] = c
		}
	}
	return docs
}
