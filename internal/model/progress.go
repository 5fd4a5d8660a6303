package model

import "sort"

// ExtractStats counts committed candidates per kind plus failed batches.
type ExtractStats struct {
	Events   int `json:"events"`
	Places   int `json:"places"`
	Services int `json:"services"`
	Errors   int `json:"errors"`
}

// Count returns the committed count for a kind.
func (s ExtractStats) Count(k Kind) int {
	switch k {
	case KindEvent:
		return s.Events
	case KindPlace:
		return s.Places
	case KindService:
		return s.Services
	}
	return 0
}

// ProgressState is the extraction checkpoint. LastProcessedIndex is the index
// (into the filtered message list) of the last message of the last committed
// batch; -1 means nothing has been processed.
type ProgressState struct {
	LastProcessedIndex  int          `json:"last_processed_index"`
	ProcessedMessageIDs []string     `json:"processed_message_ids"`
	FailedMessageIDs    []string     `json:"failed_message_ids,omitempty"`
	Stats               ExtractStats `json:"stats"`
}

// NewProgressState returns a checkpoint for a fresh run.
func NewProgressState() *ProgressState {
	return &ProgressState{LastProcessedIndex: -1, ProcessedMessageIDs: []string{}}
}

// NextIndex is the first message index that still needs processing.
func (p *ProgressState) NextIndex() int {
	return p.LastProcessedIndex + 1
}

// MarkProcessed adds ids to the processed set and removes them from the
// failed set.
func (p *ProgressState) MarkProcessed(ids []string) {
	p.ProcessedMessageIDs = mergeSet(p.ProcessedMessageIDs, ids)
	p.FailedMessageIDs = removeFromSet(p.FailedMessageIDs, ids)
}

// MarkFailed adds ids to the failed set.
func (p *ProgressState) MarkFailed(ids []string) {
	p.FailedMessageIDs = mergeSet(p.FailedMessageIDs, ids)
}

// Normalize sorts and dedupes the id sets. Checkpoints read from disk may
// have been edited by hand.
func (p *ProgressState) Normalize() {
	p.ProcessedMessageIDs = mergeSet(p.ProcessedMessageIDs, nil)
	if len(p.FailedMessageIDs) > 0 {
		p.FailedMessageIDs = mergeSet(p.FailedMessageIDs, nil)
	}
}

// IsProcessed reports whether the message id was committed by a prior batch.
// ProcessedMessageIDs must be sorted; see Normalize.
func (p *ProgressState) IsProcessed(id string) bool {
	i := sort.SearchStrings(p.ProcessedMessageIDs, id)
	return i < len(p.ProcessedMessageIDs) && p.ProcessedMessageIDs[i] == id
}

func mergeSet(set, add []string) []string {
	seen := make(map[string]bool, len(set)+len(add))
	out := make([]string, 0, len(set)+len(add))
	for _, s := range append(append([]string{}, set...), add...) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}

func removeFromSet(set, drop []string) []string {
	if len(set) == 0 {
		return set
	}
	rm := make(map[string]bool, len(drop))
	for _, d := range drop {
		rm[d] = true
	}
	out := set[:0:0]
	for _, s := range set {
		if !rm[s] {
			out = append(out, s)
		}
	}
	return out
}
