// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package supervisor

import (
	"bytes"
	"os"
	"testing"
)

func TestInputSlotWriteReadRoundTrip(t *testing.T) {
	slot, err := NewInputSlot(64)
	if err != nil {
		t.Fatalf("NewInputSlot: %v", err)
	}
	defer slot.Close()

	want := []byte("hello fuzzing world")
	slot.Write(want)
	if got := slot.Read(); !bytes.Equal(got, want) {
		t.Fatalf("Read() = %q, want %q", got, want)
	}
}

func TestInputSlotWriteTruncatesOversizedInput(t *testing.T) {
	slot, err := NewInputSlot(8)
	if err != nil {
		t.Fatalf("NewInputSlot: %v", err)
	}
	defer slot.Close()

	slot.Write([]byte("this is way more than eight bytes"))
	got := slot.Read()
	if len(got) != 8 {
		t.Fatalf("Read() len = %d, want 8", len(got))
	}
}

func TestInputSlotReadEmptyBeforeAnyWrite(t *testing.T) {
	slot, err := NewInputSlot(32)
	if err != nil {
		t.Fatalf("NewInputSlot: %v", err)
	}
	defer slot.Close()

	if got := slot.Read(); len(got) != 0 {
		t.Fatalf("Read() before any Write = %q, want empty", got)
	}
}

func TestAttachInheritedSlotWithoutEnvReturnsNil(t *testing.T) {
	os.Unsetenv(lastInputEnv)
	slot, err := AttachInheritedSlot(64)
	if err != nil {
		t.Fatalf("AttachInheritedSlot: %v", err)
	}
	if slot != nil {
		t.Fatalf("AttachInheritedSlot() = %v, want nil when env unset", slot)
	}
}

func TestAttachInheritedSlotRejectsMalformedFd(t *testing.T) {
	t.Setenv(lastInputEnv, "not-a-number")
	if _, err := AttachInheritedSlot(64); err == nil {
		t.Fatal("AttachInheritedSlot() with malformed fd env var = nil error, want error")
	}
}
