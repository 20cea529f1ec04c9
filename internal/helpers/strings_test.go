package helpers_test

import (
	"testing"

	"github.com/collaby/collaby-bot/internal/helpers"
	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	testCases := []struct {
		Name     string
		Input    *string
		Expected string
	}{
		{
			Name:     "nil_string",
			Input:    nil,
			Expected: "",
		},
		{
			Name:     "value",
			Input:    helpers.Ptr("acme/widgets"),
			Expected: "acme/widgets",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			assert.Equal(t, tc.Expected, helpers.String(tc.Input))
		})
	}
}

func TestTruncate(t *testing.T) {
	testCases := []struct {
		Name     string
		Input    string
		Limit    int
		Expected string
	}{
		{
			Name:     "shorter_than_limit",
			Input:    "fix bug",
			Limit:    10,
			Expected: "fix bug",
		},
		{
			Name:     "truncated",
			Input:    "a long commit message",
			Limit:    9,
			Expected: "a long...",
		},
		{
			Name:     "multibyte_runes",
			Input:    "ééééééé",
			Limit:    5,
			Expected: "éé...",
		},
		{
			Name:     "tiny_limit",
			Input:    "abcdef",
			Limit:    2,
			Expected: "ab",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			assert.Equal(t, tc.Expected, helpers.Truncate(tc.Input, tc.Limit))
		})
	}
}

func TestCoalesce(t *testing.T) {
	assert.Equal(t, "b", helpers.Coalesce("", "b", "c"))
	assert.Equal(t, "", helpers.Coalesce())
}
