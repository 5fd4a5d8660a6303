package model

// DuplicateEntry records one merge decision: the candidate MergedID was folded
// into KeptID because both shared IdentityKey.
type DuplicateEntry struct {
	IdentityKey string `json:"identity_key"`
	KeptID      string `json:"kept_id"`
	MergedID    string `json:"merged_id"`
	Kind        Kind   `json:"kind"`
}

// DuplicateReport is the audit trail of every merge decision, per kind.
type DuplicateReport struct {
	Events   []DuplicateEntry `json:"events"`
	Places   []DuplicateEntry `json:"places"`
	Services []DuplicateEntry `json:"services"`
}

// Total returns the number of merged-away candidates across kinds.
func (r DuplicateReport) Total() int {
	return len(r.Events) + len(r.Places) + len(r.Services)
}
