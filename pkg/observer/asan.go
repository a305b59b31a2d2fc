// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package observer

// AsanErrors tracks pending sanitizer reports a harness may have written to
// its stderr/log sink during the last execution; a CrashFeedback objective
// treats a nonempty report as a solution even when the process exited
// cleanly (e.g. ASan's continue-after-error mode).
type AsanErrors struct {
	name   string
	report string
}

func NewAsanErrors(name string) *AsanErrors { return &AsanErrors{name: name} }

func (a *AsanErrors) Name() string { return a.name }

func (a *AsanErrors) PreExec() { a.report = "" }

func (a *AsanErrors) PostExec() {}

// SetReport records a sanitizer report for the current execution. The
// executors in pkg/executor do not call it themselves.
func (a *AsanErrors) SetReport(report string) { a.report = report }

func (a *AsanErrors) HasError() bool { return a.report != "" }

func (a *AsanErrors) Report() string { return a.report }
