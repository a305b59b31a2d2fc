// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package feedback implements the interestingness predicates that drive
// corpus growth: a Feedback decides whether an execution's observers are
// novel enough to keep the input, and attaches derived metadata to the
// kept Testcase.
package feedback

import (
	"github.com/google/goafl/pkg/executor"
	"github.com/google/goafl/pkg/observer"
	"github.com/google/goafl/pkg/testcase"
)

// Feedback decides whether an execution's observers make the input worth
// keeping, and records derived metadata on the testcase once it is kept.
type Feedback interface {
	Name() string
	// IsInteresting inspects the just-finished execution's observers and
	// reports whether in is worth adding to the corpus.
	IsInteresting(obs *observer.Set, exitKind executor.ExitKind) (bool, error)
	// AppendMetadata attaches whatever this feedback computed during
	// IsInteresting onto the testcase being inserted.
	AppendMetadata(tc *testcase.Testcase)
}

// Or runs both sides unconditionally (so both get a chance to update their
// state/metadata) and is interesting if either is.
type Or struct {
	A, B Feedback
}

func (f *Or) Name() string { return "or(" + f.A.Name() + "," + f.B.Name() + ")" }

func (f *Or) IsInteresting(obs *observer.Set, exitKind executor.ExitKind) (bool, error) {
	a, err := f.A.IsInteresting(obs, exitKind)
	if err != nil {
		return false, err
	}
	b, err := f.B.IsInteresting(obs, exitKind)
	if err != nil {
		return false, err
	}
	return a || b, nil
}

func (f *Or) AppendMetadata(tc *testcase.Testcase) {
	f.A.AppendMetadata(tc)
	f.B.AppendMetadata(tc)
}

// OrFast short-circuits: if A is interesting, B never runs.
type OrFast struct {
	A, B Feedback
}

func (f *OrFast) Name() string { return "orfast(" + f.A.Name() + "," + f.B.Name() + ")" }

func (f *OrFast) IsInteresting(obs *observer.Set, exitKind executor.ExitKind) (bool, error) {
	a, err := f.A.IsInteresting(obs, exitKind)
	if err != nil {
		return false, err
	}
	if a {
		return true, nil
	}
	return f.B.IsInteresting(obs, exitKind)
}

func (f *OrFast) AppendMetadata(tc *testcase.Testcase) {
	f.A.AppendMetadata(tc)
	f.B.AppendMetadata(tc)
}

// And is interesting only if both sides are; both always run.
type And struct {
	A, B Feedback
}

func (f *And) Name() string { return "and(" + f.A.Name() + "," + f.B.Name() + ")" }

func (f *And) IsInteresting(obs *observer.Set, exitKind executor.ExitKind) (bool, error) {
	a, err := f.A.IsInteresting(obs, exitKind)
	if err != nil {
		return false, err
	}
	b, err := f.B.IsInteresting(obs, exitKind)
	if err != nil {
		return false, err
	}
	return a && b, nil
}

func (f *And) AppendMetadata(tc *testcase.Testcase) {
	f.A.AppendMetadata(tc)
	f.B.AppendMetadata(tc)
}

// Not inverts the wrapped feedback's verdict; it forwards metadata as-is.
type Not struct {
	Inner Feedback
}

func (f *Not) Name() string { return "not(" + f.Inner.Name() + ")" }

func (f *Not) IsInteresting(obs *observer.Set, exitKind executor.ExitKind) (bool, error) {
	v, err := f.Inner.IsInteresting(obs, exitKind)
	if err != nil {
		return false, err
	}
	return !v, nil
}

func (f *Not) AppendMetadata(tc *testcase.Testcase) { f.Inner.AppendMetadata(tc) }
