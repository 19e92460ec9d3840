package textutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeName(t *testing.T) {
	require.Equal(t, "acmecorp", NormalizeName("  Acme Corp\n"))
}

func TestCleanReviewText(t *testing.T) {
	require.Equal(
		t,
		"Great benefits and good work life balance",
		CleanReviewText("Great benefits and\n good work life balance...Show more"),
	)
	require.Equal(
		t,
		"Management listens",
		CleanReviewText("Management listens…  "),
	)
}

func TestCollapseWhitespace(t *testing.T) {
	require.Equal(t, "a b c", CollapseWhitespace("  a\n\tb   c "))
}
