package jurisdiction

import "strings"

// Bucket is one of the six fixed taxing authority categories.
type Bucket string

const (
	City            Bucket = "city"
	School          Bucket = "school"
	County          Bucket = "county"
	College         Bucket = "college"
	Hospital        Bucket = "hospital"
	SpecialDistrict Bucket = "special_district"
)

// All lists the buckets in output order.
var All = []Bucket{City, School, County, College, Hospital, SpecialDistrict}

type rule struct {
	bucket   Bucket
	keywords []string
}

// order matters: "Dallas County Community College" is a college, not a
// county.
var rules = []rule{
	{bucket: School, keywords: []string{"school", "isd"}},
	{bucket: College, keywords: []string{"college"}},
	{bucket: Hospital, keywords: []string{"hospital"}},
	{bucket: County, keywords: []string{"county"}},
	{bucket: SpecialDistrict, keywords: []string{"special"}},
}

// Classify buckets a free-text taxing unit label, anything unrecognized is
// a city.
func Classify(label string) Bucket {
	lowered := strings.ToLower(label)
	for _, r := range rules {
		for _, k := range r.keywords {
			if strings.Contains(lowered, k) {
				return r.bucket
			}
		}
	}
	return City
}

// Buckets holds one value per jurisdiction bucket, every bucket is always
// serialized.
type Buckets[T any] struct {
	City            T `json:"city"`
	School          T `json:"school"`
	County          T `json:"county"`
	College         T `json:"college"`
	Hospital        T `json:"hospital"`
	SpecialDistrict T `json:"special_district"`
}

// At returns a pointer to the slot for bucket.
func (b *Buckets[T]) At(bucket Bucket) *T {
	switch bucket {
	case School:
		return &b.School
	case County:
		return &b.County
	case College:
		return &b.College
	case Hospital:
		return &b.Hospital
	case SpecialDistrict:
		return &b.SpecialDistrict
	}
	return &b.City
}

func (b Buckets[T]) Get(bucket Bucket) T {
	return *b.At(bucket)
}

// Columns assigns each column header to a bucket. When two headers land in
// the same bucket the first one keeps it and the later column index is
// omitted. Blank headers are skipped.
func Columns(headers []string) map[Bucket]int {
	out := make(map[Bucket]int, len(All))
	for i, h := range headers {
		if strings.TrimSpace(h) == "" {
			continue
		}
		bucket := Classify(h)
		if _, taken := out[bucket]; taken {
			continue
		}
		out[bucket] = i
	}
	return out
}

var aliases = map[string]Bucket{
	"city":             City,
	"isd":              School,
	"school":           School,
	"county":           County,
	"college":          College,
	"hospital":         Hospital,
	"special district": SpecialDistrict,
	"specialdistrict":  SpecialDistrict,
	"special dist":     SpecialDistrict,
}

// Canonical maps a short column header to its bucket by exact alias match.
// Unlike Classify it rejects anything it does not recognize.
func Canonical(header string) (Bucket, bool) {
	b, ok := aliases[strings.ToLower(strings.Join(strings.Fields(header), " "))]
	return b, ok
}
