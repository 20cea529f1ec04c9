package helpers_test

import (
	"testing"

	"github.com/collaby/collaby-bot/internal/helpers"
	"github.com/stretchr/testify/assert"
)

func TestBranchFromRef(t *testing.T) {
	testCases := []struct {
		Name     string
		Input    string
		Expected string
	}{
		{
			Name:     "full_ref_format",
			Input:    "refs/heads/dev",
			Expected: "dev",
		},
		{
			Name:     "short_ref_format",
			Input:    "dev",
			Expected: "dev",
		},
		{
			Name:     "nested_branch_last_segment",
			Input:    "refs/heads/feature/login",
			Expected: "login",
		},
		{
			Name:     "tag_ref_last_segment",
			Input:    "refs/tags/v1.2.0",
			Expected: "v1.2.0",
		},
		{
			Name:     "empty_ref",
			Input:    "",
			Expected: "main",
		},
		{
			Name:     "trailing_slash",
			Input:    "refs/heads/",
			Expected: "main",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			assert.Equal(t, tc.Expected, helpers.BranchFromRef(tc.Input))
		})
	}
}

func TestBranchFromRefPointer(t *testing.T) {
	assert.Equal(t, "main", helpers.BranchFromRef((*string)(nil)))
	assert.Equal(t, "dev", helpers.BranchFromRef(helpers.Ptr("refs/heads/dev")))
}

func TestNormaliseRef(t *testing.T) {
	testCases := []struct {
		Name     string
		Input    string
		Expected string
	}{
		{
			Name:     "full_ref_format",
			Input:    "refs/heads/main",
			Expected: "main",
		},
		{
			Name:     "short_ref_format",
			Input:    "main",
			Expected: "main",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			assert.Equal(t, tc.Expected, helpers.NormaliseRef(tc.Input))
		})
	}
}
