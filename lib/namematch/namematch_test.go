package namematch

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSimilarity(t *testing.T) {
	require.Greater(t, Similarity("Acme Corp", "acmecorp"), 0.9)
	require.Less(t, Similarity("Acme Corp", "zenith industries"), 0.6)
}

func TestBestURLPrefersMatchingHost(t *testing.T) {
	best := BestURL("Northwind Traders", []string{
		"https://www.jobsboard.example.com/northwind",
		"https://www.northwindtraders.com/",
		"https://northwind.fandom.com/wiki",
	})
	require.Equal(t, "https://www.northwindtraders.com/", best)
}

func TestBestURLEmptyCandidates(t *testing.T) {
	require.Equal(t, "", BestURL("Acme", nil))
}

func TestAlternativeNamesStripsLegalSuffixes(t *testing.T) {
	alts := AlternativeNames("Northwind Traders Private Ltd")
	require.Contains(t, alts, "Northwind Traders Private")
	require.NotContains(t, alts, "Northwind Traders Private Ltd")
}

func TestAlternativeNamesStripsAnnotations(t *testing.T) {
	alts := AlternativeNames("Acme Solutions (formerly Acme Widgets) - Bangalore")
	require.Contains(t, alts, "Acme Solutions (formerly Acme Widgets)")
	require.Contains(t, alts, "Acme Solutions")
	require.Contains(t, alts, "Acme")
}

func TestAlternativeNamesSingleWord(t *testing.T) {
	require.Empty(t, AlternativeNames("Acme"))
}
