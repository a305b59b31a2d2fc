// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package event implements the EventManager: a restart-capable broker that
// workers report to over the wire, grounded on syzkaller's
// syz-manager/rpc.go (net/rpc wrapping a gob codec) rather than a newer
// flatbuffers-based successor that isn't available here.
package event

import "time"

// Kind identifies which field of Event is populated.
type Kind int

const (
	KindNewTestcase Kind = iota
	KindUpdateStats
	KindObjective
	KindLog
	KindCustomBuf
)

func (k Kind) String() string {
	switch k {
	case KindNewTestcase:
		return "new_testcase"
	case KindUpdateStats:
		return "update_stats"
	case KindObjective:
		return "objective"
	case KindLog:
		return "log"
	case KindCustomBuf:
		return "custom_buf"
	default:
		return "unknown"
	}
}

// Event is the single wire message every worker reports to the broker.
// Exactly one of the Kind-specific fields is meaningful, mirroring LibAFL's
// tagged Event enum (original_source/libafl/src/events/mod.rs) rather than
// a sum of separate RPC methods, so the broker can log/replay a uniform
// sequence regardless of payload shape.
type Event struct {
	Kind     Kind
	Worker   string // UUID string, generated by Dial
	Seq      uint64 // broker-assigned sequence number, filled on receipt
	Time     time.Time

	// KindNewTestcase
	InputBytes []byte
	ExitKind   string
	CorpusSize int

	// KindUpdateStats
	Executions uint64

	// KindObjective
	SolutionsSize int

	// KindLog
	Level   int
	Message string

	// KindCustomBuf
	BufName string
	Buf     []byte
}

func NewTestcaseEvent(worker string, in []byte, exitKind string, corpusSize int) Event {
	return Event{Kind: KindNewTestcase, Worker: worker, InputBytes: in, ExitKind: exitKind, CorpusSize: corpusSize}
}

func UpdateStatsEvent(worker string, executions uint64) Event {
	return Event{Kind: KindUpdateStats, Worker: worker, Executions: executions}
}

func ObjectiveEvent(worker string, solutionsSize int) Event {
	return Event{Kind: KindObjective, Worker: worker, SolutionsSize: solutionsSize}
}

func LogEvent(worker string, level int, msg string) Event {
	return Event{Kind: KindLog, Worker: worker, Level: level, Message: msg}
}

func CustomBufEvent(worker, name string, buf []byte) Event {
	return Event{Kind: KindCustomBuf, Worker: worker, BufName: name, Buf: buf}
}
