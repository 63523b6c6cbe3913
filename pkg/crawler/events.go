package crawler

import "time"

// EventKind identifies a driver transition reported to an Observer
type EventKind int

const (
	EventPageFetched EventKind = iota
	EventFetchFailed
	EventRotated
	EventBatchDone
	EventQueryAdvanced
	EventDone
)

func (k EventKind) String() string {
	switch k {
	case EventPageFetched:
		return "page_fetched"
	case EventFetchFailed:
		return "fetch_failed"
	case EventRotated:
		return "rotated"
	case EventBatchDone:
		return "batch_done"
	case EventQueryAdvanced:
		return "query_advanced"
	case EventDone:
		return "done"
	default:
		return "unknown"
	}
}

// Event describes one step of the crawl
type Event struct {
	Kind       EventKind
	Time       time.Time
	QueryIndex int
	Queries    int
	Query      string
	Page       int
	Items      int
	Attempt    int
	Stats      Stats
	Err        error
}

// Observer receives driver events. OnEvent is called from the driver
// goroutine and must not block.
type Observer interface {
	OnEvent(Event)
}

// ObserverFunc adapts a function to Observer
type ObserverFunc func(Event)

func (f ObserverFunc) OnEvent(e Event) { f(e) }
