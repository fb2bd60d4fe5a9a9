package normalize

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in     string
		want   float64
		wantOK bool
	}{
		{"1,234.50", 1234.50, true},
		{"100", 100, true},
		{" 99.99 ", 99.99, true},
		{"$1,000", 1000, true},
		{"₹ 12 500.75", 12500.75, true},
		{"€5", 5, true},
		{"-42.10", -42.10, true},
		{"abc", 0, false},
		{"", 0, false},
		{" , ", 0, false},
		{"NaN", 0, false},
		{"inf", 0, false},
		{"12.3.4", 0, false},
		{"12,50", 1250, true},
		{"(100.00)", 0, false},
	}
	for _, tc := range cases {
		got, ok := ParseAmount(tc.in)
		assert.Equal(t, tc.wantOK, ok, "ParseAmount(%q) ok", tc.in)
		if tc.wantOK {
			assert.InDelta(t, tc.want, got, 1e-9, "ParseAmount(%q)", tc.in)
		}
	}
}

func TestAmountOptional(t *testing.T) {
	assert.Nil(t, Amount(nil))

	bad := "abc"
	assert.Nil(t, Amount(&bad))

	good := "1,234.50"
	got := Amount(&good)
	require.NotNil(t, got)
	assert.Equal(t, 1234.50, *got)
}

func TestParseDate(t *testing.T) {
	cases := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"2024-01-15", "2024-01-15", true},
		{"15/01/2024", "2024-01-15", true},
		{"15-01-2024", "2024-01-15", true},
		{"01/15/2024", "2024-01-15", true},
		// day/month ambiguity resolves to DD/MM
		{"03/04/2024", "2024-04-03", true},
		{"5/1/2024", "2024-01-05", true},
		{" 2024-02-29 ", "2024-02-29", true},
		{"2023-02-29", "", false},
		{"31/31/2024", "", false},
		{"not-a-date", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := ParseDate(tc.in)
		assert.Equal(t, tc.wantOK, ok, "ParseDate(%q) ok", tc.in)
		if tc.wantOK {
			assert.Equal(t, tc.want, got.Format(ISODate), "ParseDate(%q)", tc.in)
		}
	}
}

func TestNormalizeDate(t *testing.T) {
	assert.Equal(t, "2024-01-15", NormalizeDate("2024-01-15"))
	assert.Equal(t, "2024-01-15", NormalizeDate("15/01/2024"))
	assert.Equal(t, "not-a-date", NormalizeDate("not-a-date"))
	assert.Equal(t, "", NormalizeDate(""))

	assert.Nil(t, Date(nil))
	in := "15-01-2024"
	require.NotNil(t, Date(&in))
	assert.Equal(t, "2024-01-15", *Date(&in))
}

func ExampleParseAmount() {
	value, ok := ParseAmount("1,234.50")
	fmt.Println(value, ok)
	_, ok = ParseAmount("abc")
	fmt.Println(ok)
	// Output:
	// 1234.5 true
	// false
}

func ExampleNormalizeDate() {
	fmt.Println(NormalizeDate("15/01/2024"))
	fmt.Println(NormalizeDate("not-a-date"))
	// Output:
	// 2024-01-15
	// not-a-date
}
