package healer

import (
	"strconv"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewComparator(t *testing.T) {
	c, err := NewComparator("", "")
	require.NoError(t, err)
	assert.Equal(t, "exact", c.String())

	c, err = NewComparator("normalized", "")
	require.NoError(t, err)
	assert.Equal(t, "normalized", c.String())

	c, err = NewComparator("expr", "FirstLine(Previous) == FirstLine(Current)")
	require.NoError(t, err)
	assert.True(t, c.Repeated("TypeError: x\n  at a", "TypeError: x\n  at b"))
	assert.False(t, c.Repeated("TypeError: x", "RangeError: y"))

	_, err = NewComparator("expr", "Previous +")
	assert.Error(t, err)

	_, err = NewComparator("expr", `len(Previous)`)
	assert.Error(t, err, "non-boolean expressions are rejected")

	_, err = NewComparator("fuzzy", "")
	assert.Error(t, err)
}

func TestExprComparator_Normalize(t *testing.T) {
	c, err := NewExprComparator(`Normalize(Previous) == Normalize(Current)`)
	require.NoError(t, err)
	assert.True(t, c.Repeated("app.js:3:5 boom", "app.js:9:1 boom"))
}

func TestExactComparator(t *testing.T) {
	c := ExactComparator{}
	assert.True(t, c.Repeated("a", "a"))
	assert.False(t, c.Repeated("a", "a "))
	assert.True(t, c.Repeated("", ""))
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"at /srv/app.js:12:7", "at /srv/app.js:N"},
		{"  Error:\tboom \n\n  again  ", "Error: boom again"},
		{"segfault at 0x7ffd5e8c", "segfault at 0x?"},
		{"[2026-10-15T20:14:04.123Z] crashed", "[<time>] crashed"},
		{"2026-10-15 20:14:04 crashed", "<time> crashed"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Normalize(tt.in), tt.in)
	}
}

func TestFirstLine(t *testing.T) {
	assert.Equal(t, "TypeError: x", FirstLine("\n\n  TypeError: x  \n at y"))
	assert.Equal(t, "", FirstLine("  \n "))
}

func TestProperty_Comparators(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("every comparator treats a signature as repeating itself", prop.ForAll(
		func(s string) bool {
			return ExactComparator{}.Repeated(s, s) && NormalizedComparator{}.Repeated(s, s)
		},
		gen.AnyString(),
	))

	properties.Property("normalize is idempotent", prop.ForAll(
		func(s string) bool {
			return Normalize(Normalize(s)) == Normalize(s)
		},
		gen.AnyString(),
	))

	properties.Property("line numbers never distinguish normalized signatures", prop.ForAll(
		func(msg string, a, b uint16) bool {
			prev := "/srv/app.js:" + strconv.Itoa(int(a)) + "\n" + msg
			cur := "/srv/app.js:" + strconv.Itoa(int(b)) + "\n" + msg
			return NormalizedComparator{}.Repeated(prev, cur)
		},
		gen.AlphaString(),
		gen.UInt16(),
		gen.UInt16(),
	))

	properties.TestingRun(t)
}
