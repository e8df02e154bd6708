package jurisdiction

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	testCases := []struct {
		label    string
		expected Bucket
	}{
		{label: "Dallas County Community College District", expected: College},
		{label: "Parkland Hospital", expected: Hospital},
		{label: "DALLAS ISD", expected: School},
		{label: "Richardson School District", expected: School},
		{label: "Dallas County", expected: County},
		{label: "Special District", expected: SpecialDistrict},
		{label: "City of Dallas", expected: City},
		{label: "Something Unknown", expected: City},
		{label: "", expected: City},
	}
	for _, test := range testCases {
		require.Equal(t, test.expected, Classify(test.label), "label %q", test.label)
	}
}

func TestBuckets(t *testing.T) {
	var b Buckets[string]
	for _, bucket := range All {
		*b.At(bucket) = string(bucket)
	}
	require.Equal(t, Buckets[string]{
		City:            "city",
		School:          "school",
		County:          "county",
		College:         "college",
		Hospital:        "hospital",
		SpecialDistrict: "special_district",
	}, b)
	require.Equal(t, "college", b.Get(College))
}

func TestColumns(t *testing.T) {
	cols := Columns([]string{"City", "ISD", "", "County", "College", "Hospital", "Special District", "Dallas County"})
	require.Equal(t, map[Bucket]int{
		City:            0,
		School:          1,
		County:          3,
		College:         4,
		Hospital:        5,
		SpecialDistrict: 6,
	}, cols)
}

func TestCanonical(t *testing.T) {
	testCases := []struct {
		header   string
		expected Bucket
		ok       bool
	}{
		{header: "ISD", expected: School, ok: true},
		{header: " Special   District ", expected: SpecialDistrict, ok: true},
		{header: "special dist", expected: SpecialDistrict, ok: true},
		{header: "City", expected: City, ok: true},
		{header: "Dallas County", ok: false},
		{header: "", ok: false},
	}
	for _, test := range testCases {
		t.Run(test.header, func(t *testing.T) {
			b, ok := Canonical(test.header)
			require.Equal(t, test.ok, ok)
			if ok {
				require.Equal(t, test.expected, b)
			}
		})
	}
}
