package internal

// Field numbers from descriptor.proto itself, used to build SourceCodeInfo
// paths. These mirror the wire-format field tags of FileDescriptorProto,
// DescriptorProto, EnumDescriptorProto, and ServiceDescriptorProto and are
// therefore fixed by the public protobuf schema, not by this repository.
const (
	File_packageTag    = 2
	File_dependencyTag  = 3
	File_messagesTag    = 4
	File_enumsTag       = 5
	File_servicesTag    = 6
	File_extensionsTag  = 7
	File_optionsTag     = 8
	File_syntaxTag      = 12

	Message_nameTag           = 1
	Message_fieldsTag         = 2
	Message_nestedMessagesTag = 3
	Message_enumsTag          = 4
	Message_extensionRangeTag = 5
	Message_extensionsTag     = 6
	Message_optionsTag        = 7
	Message_oneOfsTag         = 8
	Message_reservedRangeTag  = 9
	Message_reservedNameTag   = 10

	Enum_nameTag         = 1
	Enum_valuesTag       = 2
	Enum_optionsTag      = 3
	Enum_reservedRangeTag = 4

	EnumVal_nameTag    = 1
	EnumVal_numberTag  = 2
	EnumVal_optionsTag = 3

	Service_nameTag    = 1
	Service_methodsTag = 2
	Service_optionsTag = 3

	Field_nameTag     = 1
	Field_extendeeTag = 2
	Field_numberTag   = 3
	Field_labelTag    = 4
	Field_typeTag     = 5
	Field_typeNameTag = 6
	Field_defaultTag  = 7
	Field_optionsTag  = 8
	Field_jsonNameTag = 10

	File_publicDependencyTag = 10
	File_weakDependencyTag   = 11

	Range_startTag = 1
	Range_endTag   = 2

	ExtensionRange_optionsTag = 3

	Oneof_nameTag    = 1
	Oneof_optionsTag = 2

	Method_nameTag       = 1
	Method_inputTypeTag  = 2
	Method_outputTypeTag = 3
	Method_optionsTag    = 4

	// UninterpretedOptionTag is the field number of uninterpreted_option on
	// every *Options message in descriptor.proto.
	UninterpretedOptionTag = 999
)
