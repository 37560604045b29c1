package session

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		seconds int
		want    string
	}{
		{0, "0s"},
		{-5, "0s"},
		{45, "45s"},
		{60, "1m"},
		{59 * 60, "59m"},
		{3600, "1h 00m"},
		{7500, "2h 05m"},
		{10*3600 + 59*60, "10h 59m"},
	}

	for _, tc := range cases {
		require.Equal(t, tc.want, FormatDuration(tc.seconds), "seconds=%d", tc.seconds)
	}
}
