package urlutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"https://eujobs.co/jobs/abc123":      "https://eujobs.co/jobs/abc123",
		"https://eujobs.co/jobs/abc123/":     "https://eujobs.co/jobs/abc123",
		"https://WWW.EUJOBS.CO/jobs/abc123":  "https://eujobs.co/jobs/abc123",
		"http://eujobs.co/jobs/abc#apply":    "http://eujobs.co/jobs/abc",
		"eujobs.co/jobs/abc123":              "https://eujobs.co/jobs/abc123",
		"//eujobs.co/jobs/abc123":            "https://eujobs.co/jobs/abc123",
		"https://eujobs.co/jobs/abc?ref=nav": "https://eujobs.co/jobs/abc?ref=nav",
	}
	for in, want := range cases {
		got, err := Normalize(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got, in)
	}
}

func TestNormalizeRejectsEmpty(t *testing.T) {
	_, err := Normalize("")
	require.Error(t, err)
	_, err = Normalize("   ")
	require.Error(t, err)
}

func TestIsAbsoluteHTTP(t *testing.T) {
	require.True(t, IsAbsoluteHTTP("https://eujobs.co/jobs/abc"))
	require.True(t, IsAbsoluteHTTP("http://eujobs.co"))

	require.False(t, IsAbsoluteHTTP("ftp://eujobs.co/file"))
	require.False(t, IsAbsoluteHTTP("/jobs/abc"))
	require.False(t, IsAbsoluteHTTP("eujobs.co/jobs/abc"))
	require.False(t, IsAbsoluteHTTP(""))
}
