package sortkey

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDigitsOnly(t *testing.T) {
	cases := []struct {
		name string
		opts Options
		want uint64
	}{
		{name: "img007", opts: Options{StripAlpha: true}, want: 7},
		{name: "Photo (12)", opts: Both, want: 12},
		{name: "img_003", opts: Both, want: 3},
		{name: "42", opts: Options{}, want: 42},
		{name: "000", opts: Both, want: 0},
		{name: "2021-05-06", opts: Options{StripSpecial: true}, want: 20210506},
		{name: "scan٣", opts: Both, want: 3},
		{name: "ｐ１０", opts: Both, want: 10},
		{name: "०९", opts: Both, want: 9},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			k := Parse(tc.name, tc.opts)
			require.False(t, k.IsNaN())
			v, ok := k.Uint64()
			require.True(t, ok)
			assert.Equal(t, tc.want, v)
		})
	}
}

func TestParseSentinel(t *testing.T) {
	cases := []struct {
		name string
		opts Options
	}{
		{name: "img007", opts: Options{}},
		{name: "img_007", opts: Options{StripAlpha: true}},
		{name: "abc", opts: Both},
		{name: "", opts: Both},
		{name: "--", opts: Both},
		{name: "½", opts: Both},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			k := Parse(tc.name, tc.opts)
			assert.True(t, k.IsNaN())
			_, ok := k.Uint64()
			assert.False(t, ok)
			assert.Nil(t, k.Big())
			assert.Equal(t, "NaN", k.String())
		})
	}
}

func TestParseHugeNumberIsExact(t *testing.T) {
	k := Parse("frame_123456789012345678901234567890", Both)
	require.False(t, k.IsNaN())
	_, ok := k.Uint64()
	assert.False(t, ok)
	assert.Equal(t, "123456789012345678901234567890", k.Big().String())

	smaller := Parse("frame_99999999999999999999999999999", Both)
	assert.Equal(t, -1, Compare(smaller, k))
}

func TestCompare(t *testing.T) {
	two := Parse("2", Both)
	ten := Parse("10", Both)
	paddedTen := Parse("0010", Both)

	assert.Equal(t, -1, Compare(two, ten))
	assert.Equal(t, 1, Compare(ten, two))
	assert.Equal(t, 0, Compare(ten, paddedTen))
	assert.Equal(t, 1, Compare(NaN(), two))
	assert.Equal(t, -1, Compare(two, NaN()))
	assert.Equal(t, 0, Compare(NaN(), NaN()))
}

func TestSortPathsFiles(t *testing.T) {
	dir := filepath.Join("src", "shoot")
	paths := []string{
		filepath.Join(dir, "cover.jpg"),
		filepath.Join(dir, "img_10.jpg"),
		filepath.Join(dir, "notes.txt"),
		filepath.Join(dir, "img_2.jpg"),
		filepath.Join(dir, "Photo (1).jpg"),
	}

	got := SortPaths(paths, Files)
	assert.Equal(t, []string{
		filepath.Join(dir, "Photo (1).jpg"),
		filepath.Join(dir, "img_2.jpg"),
		filepath.Join(dir, "img_10.jpg"),
		filepath.Join(dir, "cover.jpg"),
		filepath.Join(dir, "notes.txt"),
	}, got)

	// input untouched
	assert.Equal(t, filepath.Join(dir, "cover.jpg"), paths[0])
}

func TestSortPathsStableForEqualKeys(t *testing.T) {
	paths := []string{"b-01.png", "a-1.png", "c-001.png", "z.png", "y.png"}
	got := SortPaths(paths, Files)
	assert.Equal(t, []string{"b-01.png", "a-1.png", "c-001.png", "z.png", "y.png"}, got)
}

func TestSortPathsDirsUsesLastSegment(t *testing.T) {
	paths := []string{
		filepath.Join("bulk", "Day 3"),
		filepath.Join("bulk", "Day 1"),
		filepath.Join("bulk", "extras"),
		filepath.Join("bulk", "Day 2") + string(filepath.Separator),
	}
	got := SortPaths(paths, Dirs)
	assert.Equal(t, []string{
		filepath.Join("bulk", "Day 1"),
		filepath.Join("bulk", "Day 2") + string(filepath.Separator),
		filepath.Join("bulk", "Day 3"),
		filepath.Join("bulk", "extras"),
	}, got)
}

func TestSortPathsDirsKeepsDotsInName(t *testing.T) {
	// In directory mode "v1.2" is one segment, not name+extension.
	paths := []string{filepath.Join("bulk", "v1.3"), filepath.Join("bulk", "v1.2")}
	got := SortPaths(paths, Dirs)
	assert.Equal(t, []string{filepath.Join("bulk", "v1.2"), filepath.Join("bulk", "v1.3")}, got)
}
