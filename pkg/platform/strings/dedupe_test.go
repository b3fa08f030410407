package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeAndTrim(t *testing.T) {
	assert.Equal(t, []string{"foo", "bar"}, DedupeAndTrim([]string{"  foo ", "bar", "foo", "", "  "}))
	assert.Equal(t, []string{"foo", "bar"}, DedupeAndTrimLower([]string{"  FOO ", "bar", "Foo"}))
	assert.Empty(t, DedupeAndTrim(nil))
}

func TestSplitList(t *testing.T) {
	tests := []struct {
		name   string
		values []string
		want   []string
	}{
		{"single comma list", []string{"vip, retail,vip"}, []string{"vip", "retail"}},
		{"repeated form values", []string{"vip", "retail, wholesale"}, []string{"vip", "retail", "wholesale"}},
		{"only separators", []string{" , ,"}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitList(tt.values...))
		})
	}
}

func TestTrimSpacePtr(t *testing.T) {
	assert.Nil(t, TrimSpacePtr(nil))
	v := "  x "
	assert.Equal(t, "x", *TrimSpacePtr(&v))
}

func TestToSnakeCase(t *testing.T) {
	tests := map[string]string{
		"Name":          "name",
		"ClientID":      "client_id",
		"DueAt":         "due_at",
		"HTTPAddr":      "http_addr",
		"StorageLimit2": "storage_limit2",
		"already_snake": "already_snake",
	}
	for in, want := range tests {
		assert.Equal(t, want, ToSnakeCase(in), in)
	}
}
