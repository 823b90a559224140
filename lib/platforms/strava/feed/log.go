package feed

import (
	"context"
	"iter"
	"slices"
	"sync"
)

// Log is the ordered set of activities seen this run, newest first. Records
// are keyed by id and only ever replaced while dirty.
type Log struct {
	mu         sync.Mutex
	activities []Activity
	index      map[string]int
}

func NewLog() *Log {
	return &Log{index: map[string]int{}}
}

func (l *Log) reindex() {
	clear(l.index)
	for i, a := range l.activities {
		l.index[a.Id] = i
	}
}

// Merge adds every candidate whose id is unknown and replaces every dirty
// record a candidate has the same id as. Clean records are never replaced.
// It returns how many candidates were taken in.
func (l *Log) Merge(candidates iter.Seq[Activity]) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	merged := 0
	for candidate := range candidates {
		candidate.Dirty = false
		idx, exists := l.index[candidate.Id]
		switch {
		case !exists:
			l.index[candidate.Id] = len(l.activities)
			l.activities = append(l.activities, candidate)
		case l.activities[idx].Dirty:
			l.activities[idx] = candidate
		default:
			continue
		}
		merged++
	}

	if merged > 0 {
		slices.SortStableFunc(l.activities, func(a, b Activity) int {
			return b.Datetime.Compare(a.Datetime)
		})
		l.reindex()
		activitiesMerged.Add(context.Background(), int64(merged))
	}
	return merged
}

// MarkKudoed flags the record as kudoed and dirty, it returns false when no
// record has that id.
func (l *Log) MarkKudoed(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	idx, ok := l.index[id]
	if !ok {
		return false
	}
	l.activities[idx].Kudoed = true
	l.activities[idx].Dirty = true
	return true
}

func (l *Log) Get(id string) (Activity, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	idx, ok := l.index[id]
	if !ok {
		return Activity{}, false
	}
	return l.activities[idx], true
}

func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.activities)
}

// Activities returns a copy of the log.
func (l *Log) Activities() []Activity {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.activities)
}

// Select returns the records matching `pred`, in log order.
func (l *Log) Select(pred Predicate) []Activity {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []Activity
	for _, a := range l.activities {
		if pred(a) {
			out = append(out, a)
		}
	}
	return out
}
