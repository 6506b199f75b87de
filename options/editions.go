package options

import (
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/descriptorpb"

	"github.com/protoglot/protoglot/internal/editions"
)

// featuresFieldName is the name of the "features" field every options
// message that supports editions carries.
const featuresFieldName = "features"

// applyEditionFeatures walks every options message in fd and fills in
// google.protobuf.FeatureSet fields left unset by the source with the
// default value for fd's edition, leaving anything the source did set
// (via option features.xxx = ...;, already applied by interpretOpts by
// the time this runs) untouched.
func applyEditionFeatures(fd *descriptorpb.FileDescriptorProto) {
	defaults := editions.GetEditionDefaults(fd.GetEdition())
	if defaults == nil {
		return
	}
	applyFeatures(fd.GetOptions(), defaults)
	for _, m := range fd.GetMessageType() {
		applyFeaturesMessage(m, defaults)
	}
	for _, e := range fd.GetEnumType() {
		applyFeaturesEnum(e, defaults)
	}
	for _, ext := range fd.GetExtension() {
		applyFeatures(ext.GetOptions(), defaults)
	}
	for _, s := range fd.GetService() {
		applyFeatures(s.GetOptions(), defaults)
		for _, mtd := range s.GetMethod() {
			applyFeatures(mtd.GetOptions(), defaults)
		}
	}
}

func applyFeaturesMessage(m *descriptorpb.DescriptorProto, defaults *descriptorpb.FeatureSet) {
	applyFeatures(m.GetOptions(), defaults)
	for _, f := range m.GetField() {
		applyFeatures(f.GetOptions(), defaults)
	}
	for _, oo := range m.GetOneofDecl() {
		applyFeatures(oo.GetOptions(), defaults)
	}
	for _, er := range m.GetExtensionRange() {
		applyFeatures(er.GetOptions(), defaults)
	}
	for _, ext := range m.GetExtension() {
		applyFeatures(ext.GetOptions(), defaults)
	}
	for _, nested := range m.GetNestedType() {
		applyFeaturesMessage(nested, defaults)
	}
	for _, e := range m.GetEnumType() {
		applyFeaturesEnum(e, defaults)
	}
}

func applyFeaturesEnum(e *descriptorpb.EnumDescriptorProto, defaults *descriptorpb.FeatureSet) {
	applyFeatures(e.GetOptions(), defaults)
	for _, v := range e.GetValue() {
		applyFeatures(v.GetOptions(), defaults)
	}
}

// applyFeatures fills in opts's features field, if it has one, with
// defaults merged underneath whatever the source already set.
func applyFeatures(opts proto.Message, defaults *descriptorpb.FeatureSet) {
	if opts == nil {
		return
	}
	m := opts.ProtoReflect()
	fld := m.Descriptor().Fields().ByName(featuresFieldName)
	if fld == nil || fld.Message() == nil || fld.Message().FullName() != editions.FeatureSetDescriptor.FullName() {
		return
	}
	merged := proto.Clone(defaults).(*descriptorpb.FeatureSet)
	if m.Has(fld) {
		proto.Merge(merged, m.Get(fld).Message().Interface())
	}
	m.Set(fld, protoreflect.ValueOfMessage(merged.ProtoReflect()))
}
