package rediskey

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name        string
		key         string
		expectError bool
	}{
		{name: "Single fragment", key: "single"},
		{name: "Several fragments", key: "blob:reports:q1.csv"},
		{name: "Mixed case", key: "Resource:Report.CSV"},
		{name: "Path like", key: "blob:logs/2024/01/app.log"},
		{name: "Glob pattern", key: "blob:reports:*"},
		{name: "Empty", key: "", expectError: true},
		{name: "Leading delimiter", key: ":leading", expectError: true},
		{name: "Trailing delimiter", key: "trailing:", expectError: true},
		{name: "Invalid characters", key: "re#source!", expectError: true},
		{name: "Spaces", key: " resource", expectError: true},
		{name: "Too long", key: strings.Repeat("a", keyMaxLength+1), expectError: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.key)
			if tt.expectError {
				assert.ErrorIs(t, err, ErrInvalidKey)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestFragment(t *testing.T) {
	assert.NoError(t, Fragment("reports-2024"))
	assert.NoError(t, Fragment("2024/q1.csv"))
	assert.ErrorIs(t, Fragment("123:4"), ErrInvalidKey)
	assert.ErrorIs(t, Fragment(""), ErrInvalidKey)
}

func TestJoin(t *testing.T) {
	tests := []struct {
		fragments []string
		expect    string
	}{
		{[]string{"a", "b", "c"}, "a:b:c"},
		{[]string{"", "blob", "", "reports"}, "blob:reports"},
		{[]string{"single"}, "single"},
		{[]string{}, ""},
	}
	for _, tt := range tests {
		t.Run(strings.Join(tt.fragments, ","), func(t *testing.T) {
			assert.Equal(t, tt.expect, Join(tt.fragments...))
		})
	}
}

func TestSplit(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, Split("a:b:c", -1))
	assert.Equal(t, []string{"blob", "reports", "a:b"}, Split("blob:reports:a:b", 3))
	assert.Equal(t, []string{"single"}, Split("single", -1))
}

func TestPattern(t *testing.T) {
	assert.Equal(t, "blob:reports:*", Pattern("blob:reports", WildcardAnyString))
	assert.Equal(t, "object:settings:?", Pattern("object:settings", WildcardAnyChar))
}

func TestHasGlob(t *testing.T) {
	assert.True(t, HasGlob("a*"))
	assert.True(t, HasGlob("a[bc]"))
	assert.True(t, HasGlob("a?"))
	assert.False(t, HasGlob("logs/app.log"))
}
