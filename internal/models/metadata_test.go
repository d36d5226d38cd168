package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadata_EncodeDecode(t *testing.T) {
	m := Metadata{
		"region":  String("eu-west-1"),
		"count":   Number(3),
		"managed": Bool(true),
		"tags":    List(String("prod"), String("web")),
		"owner":   Map(map[string]Value{"team": String("platform")}),
	}
	require.NoError(t, m.Validate())

	enc, err := m.Encode()
	require.NoError(t, err)
	dec, err := DecodeMetadata(enc)
	require.NoError(t, err)
	assert.True(t, m.Equal(dec), "decoded %v", dec)

	team, ok := dec["owner"].Fields()
	require.True(t, ok)
	s, _ := team["team"].Str()
	assert.Equal(t, "platform", s)

	managed, ok := dec["managed"].Boolean()
	assert.True(t, ok)
	assert.True(t, managed)
	_, ok = dec["region"].Boolean()
	assert.False(t, ok)
}

func TestMetadata_NilEncodesAsEmptyObject(t *testing.T) {
	var m Metadata
	enc, err := m.Encode()
	require.NoError(t, err)
	assert.Equal(t, "{}", enc)

	dec, err := DecodeMetadata("")
	require.NoError(t, err)
	assert.NotNil(t, dec)
	assert.Empty(t, dec)
}

func TestMetadata_RejectsNull(t *testing.T) {
	var m Metadata
	assert.Error(t, json.Unmarshal([]byte(`{"a": null}`), &m))

	_, err := MetadataFromAny(map[string]any{"a": []any{1, nil}})
	assert.Error(t, err)
}

func TestMetadata_ZeroValueInvalid(t *testing.T) {
	m := Metadata{"broken": Value{}}
	assert.Error(t, m.Validate())
	assert.Error(t, Metadata{"": String("x")}.Validate())
}

func TestMetadataFromAny(t *testing.T) {
	m, err := MetadataFromAny(map[string]any{
		"n":    float64(2),
		"i":    7,
		"list": []any{"a", true},
		"obj":  map[string]any{"k": "v"},
	})
	require.NoError(t, err)
	n, ok := m["i"].Num()
	assert.True(t, ok)
	assert.Equal(t, 7.0, n)
	items, ok := m["list"].Items()
	require.True(t, ok)
	assert.Len(t, items, 2)

	_, err = MetadataFromAny(map[string]any{"c": make(chan int)})
	assert.Error(t, err)
}

func TestMetadata_Merge(t *testing.T) {
	base := Metadata{"a": String("1"), "b": String("2")}
	merged := base.Merge(Metadata{"b": String("3"), "c": Bool(false)})

	assert.Len(t, merged, 3)
	b, _ := merged["b"].Str()
	assert.Equal(t, "3", b)
	orig, _ := base["b"].Str()
	assert.Equal(t, "2", orig, "merge must not modify the receiver")
}

func TestRefs(t *testing.T) {
	assert.Equal(t, "aws_instance", ProviderRef{ResourceType: "aws_instance"}.String())
	assert.Equal(t, "aws/aws_instance", ProviderRef{Provider: "aws", ResourceType: "aws_instance"}.String())
	assert.Equal(t, "amazon.aws.ec2_instance", ModuleRef{Namespace: "amazon", Name: "aws", ModuleName: "ec2_instance"}.String())

	r := Relationship{SourceID: "a", TargetID: "b"}
	assert.Equal(t, "b", r.Other("a"))
	assert.Equal(t, "a", r.Other("b"))
}
