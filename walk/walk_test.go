package walk_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/descriptorpb"

	"github.com/protoglot/protoglot/walk"
)

func sampleFile() *descriptorpb.FileDescriptorProto {
	return &descriptorpb.FileDescriptorProto{
		Name:    proto.String("test.proto"),
		Package: proto.String("foo"),
		Syntax:  proto.String("proto3"),
		MessageType: []*descriptorpb.DescriptorProto{
			{
				Name: proto.String("Person"),
				Field: []*descriptorpb.FieldDescriptorProto{
					{
						Name:   proto.String("name"),
						Number: proto.Int32(1),
						Label:  descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
						Type:   descriptorpb.FieldDescriptorProto_TYPE_STRING.Enum(),
					},
				},
				NestedType: []*descriptorpb.DescriptorProto{
					{Name: proto.String("Nested")},
				},
			},
		},
		EnumType: []*descriptorpb.EnumDescriptorProto{
			{
				Name: proto.String("Status"),
				Value: []*descriptorpb.EnumValueDescriptorProto{
					{Name: proto.String("UNKNOWN"), Number: proto.Int32(0)},
				},
			},
		},
		Service: []*descriptorpb.ServiceDescriptorProto{
			{
				Name: proto.String("Greeter"),
				Method: []*descriptorpb.MethodDescriptorProto{
					{
						Name:       proto.String("Greet"),
						InputType:  proto.String(".foo.Person"),
						OutputType: proto.String(".foo.Person"),
					},
				},
			},
		},
	}
}

func TestDescriptorProtosVisitsEveryElement(t *testing.T) {
	fd := sampleFile()
	var names []string
	err := walk.DescriptorProtos(fd, func(fqn protoreflect.FullName, _ proto.Message) error {
		names = append(names, string(fqn))
		return nil
	})
	require.NoError(t, err)

	assert.Contains(t, names, "foo.Person")
	assert.Contains(t, names, "foo.Person.name")
	assert.Contains(t, names, "foo.Person.Nested")
	assert.Contains(t, names, "foo.Status")
	assert.Contains(t, names, "foo.Status.UNKNOWN")
	assert.Contains(t, names, "foo.Greeter")
	assert.Contains(t, names, "foo.Greeter.Greet")
}

func TestDescriptorProtosPassesConcreteDescriptorType(t *testing.T) {
	fd := sampleFile()
	var gotField *descriptorpb.FieldDescriptorProto
	err := walk.DescriptorProtos(fd, func(fqn protoreflect.FullName, m proto.Message) error {
		if fqn == "foo.Person.name" {
			gotField, _ = m.(*descriptorpb.FieldDescriptorProto)
		}
		return nil
	})
	require.NoError(t, err)
	require.NotNil(t, gotField)
	assert.Equal(t, "name", gotField.GetName())
}

func TestDescriptorProtosEnterAndExitBalanced(t *testing.T) {
	fd := sampleFile()
	var entries, exits int
	err := walk.DescriptorProtosEnterAndExit(fd,
		func(protoreflect.FullName, proto.Message) error { entries++; return nil },
		func(protoreflect.FullName, proto.Message) error { exits++; return nil },
	)
	require.NoError(t, err)
	assert.Equal(t, entries, exits)
	assert.Positive(t, entries)
}

func TestDescriptorProtosStopsOnError(t *testing.T) {
	fd := sampleFile()
	sentinel := assert.AnError
	visited := 0
	err := walk.DescriptorProtos(fd, func(protoreflect.FullName, proto.Message) error {
		visited++
		return sentinel
	})
	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, 1, visited)
}
