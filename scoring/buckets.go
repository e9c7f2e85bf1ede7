package scoring

import "strings"

// Bucket is the store-level sub-score a signal's penalty lands in.
type Bucket int

const (
	BucketNone Bucket = iota
	BucketAttendance
	BucketExecution
	BucketIncident
	BucketCompliance
)

func (b Bucket) String() string {
	switch b {
	case BucketAttendance:
		return "attendance"
	case BucketExecution:
		return "execution"
	case BucketIncident:
		return "incident"
	case BucketCompliance:
		return "compliance"
	default:
		return "none"
	}
}

// bucketRoutes partitions rule codes into sub-score buckets. Order matters:
// the most specific prefix is checked first, so compliance codes (R25/R26)
// are claimed before the generic R2x incident group can swallow them.
var bucketRoutes = []struct {
	prefix string
	bucket Bucket
}{
	{"R25", BucketCompliance},
	{"R26", BucketCompliance},
	{"FS", BucketCompliance},
	{"R0", BucketAttendance},
	{"R1", BucketExecution},
	{"R2", BucketIncident},
}

// RouteBucket maps a rule code to its store sub-score bucket.
// Codes outside the known groups carry no store penalty.
func RouteBucket(ruleCode string) Bucket {
	for _, r := range bucketRoutes {
		if strings.HasPrefix(ruleCode, r.prefix) {
			return r.bucket
		}
	}
	return BucketNone
}
