package request

// Index names one of the four secondary indexes kept beside the primary records.
type Index string

const (
	IndexHospital  Index = "HOSPITAL~REQUESTS"
	IndexBloodType Index = "BLOODTYPE~REQUESTS"
	IndexStatus    Index = "STATUS~REQUESTS"
	IndexUrgency   Index = "URGENCY~REQUESTS"
)

// Indexes lists every secondary index.
var Indexes = []Index{IndexHospital, IndexBloodType, IndexStatus, IndexUrgency}

// IndexEntry places one request id in one bucket of one index.
type IndexEntry struct {
	Index Index
	Key   string
	ID    uint64
}

// IndexEntries returns the bucket r belongs to in every index.
func IndexEntries(r *BloodRequest) []IndexEntry {
	return []IndexEntry{
		{Index: IndexHospital, Key: r.HospitalID, ID: r.ID},
		{Index: IndexBloodType, Key: string(r.BloodType), ID: r.ID},
		{Index: IndexStatus, Key: string(r.Status), ID: r.ID},
		{Index: IndexUrgency, Key: string(r.Urgency), ID: r.ID},
	}
}

// IndexDiff is the set of index writes needed to move a request between buckets.
type IndexDiff struct {
	Remove []IndexEntry
	Add    []IndexEntry
}

// IsEmpty reports whether the diff changes nothing.
func (d IndexDiff) IsEmpty() bool {
	return len(d.Remove) == 0 && len(d.Add) == 0
}

// DiffIndexes computes the entries to drop and insert when old becomes next.
// old is nil for a freshly created request.
func DiffIndexes(old, next *BloodRequest) IndexDiff {
	var diff IndexDiff
	if old == nil {
		diff.Add = IndexEntries(next)
		return diff
	}

	before := IndexEntries(old)
	after := IndexEntries(next)
	for i := range after {
		if before[i] != after[i] {
			diff.Remove = append(diff.Remove, before[i])
			diff.Add = append(diff.Add, after[i])
		}
	}
	return diff
}

// BuildIndexes groups ids by bucket for every index, in the order the
// requests are given.
func BuildIndexes(requests []*BloodRequest) map[Index]map[string][]uint64 {
	out := make(map[Index]map[string][]uint64, len(Indexes))
	for _, idx := range Indexes {
		out[idx] = make(map[string][]uint64)
	}
	for _, r := range requests {
		for _, e := range IndexEntries(r) {
			out[e.Index][e.Key] = append(out[e.Index][e.Key], e.ID)
		}
	}
	return out
}
