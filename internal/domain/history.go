package domain

// HistoryPage is one remotely fetched page, newest first.
type HistoryPage struct {
	Records    []*TransactionRecord
	EndReached bool
}

// HistoryEvent is one display entry of the merged stream: either a
// transaction or a synthetic day separator. The set is closed.
type HistoryEvent interface {
	isHistoryEvent()
}

// DaySeparator is a derived header between records of different calendar
// days. It carries only the localized label.
type DaySeparator struct {
	Label string
}

func (DaySeparator) isHistoryEvent() {}

// RecordEvent wraps one transaction record for display.
type RecordEvent struct {
	Record *TransactionRecord
}

func (RecordEvent) isHistoryEvent() {}

// HistoryStateKind distinguishes the reconciler's observable states.
type HistoryStateKind int

const (
	HistoryLoading HistoryStateKind = iota
	HistoryReady
)

// HistoryState is the externally observed output of the reconciler.
type HistoryState struct {
	Kind               HistoryStateKind
	Events             []HistoryEvent
	EndReached         bool
	PullToRefresh      bool
	HasErrorLoadingNew bool
}
