// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package observer

// hitcountLUT maps a raw edge-map byte counter to its AFL log-bucket class:
// 0, 1, 2, 3, 4-7, 8-15, 16-31, 32-127, 128+ collapse to 0..8.
var hitcountLUT = buildHitcountLUT()

func buildHitcountLUT() [256]uint8 {
	var lut [256]uint8
	for i := range lut {
		switch {
		case i == 0:
			lut[i] = 0
		case i == 1:
			lut[i] = 1
		case i == 2:
			lut[i] = 2
		case i == 3:
			lut[i] = 3
		case i >= 4 && i <= 7:
			lut[i] = 4
		case i >= 8 && i <= 15:
			lut[i] = 5
		case i >= 16 && i <= 31:
			lut[i] = 6
		case i >= 32 && i <= 127:
			lut[i] = 7
		default:
			lut[i] = 8
		}
	}
	return lut
}

// HitcountsMap wraps a raw EdgeMap, converting the instrumentation's raw
// per-edge counters into the standard AFL bucket classes on PostExec so
// MaxMapFeedback compares bucket identity rather than exact hit counts.
type HitcountsMap struct {
	name   string
	raw    *EdgeMap
	bucket []uint8
}

func NewHitcountsMap(name string, raw *EdgeMap) *HitcountsMap {
	return &HitcountsMap{
		name:   name,
		raw:    raw,
		bucket: make([]uint8, raw.Size()),
	}
}

func (h *HitcountsMap) Name() string { return h.name }

func (h *HitcountsMap) PreExec() {}

func (h *HitcountsMap) PostExec() {
	raw := h.raw.Raw()
	for i, v := range raw {
		h.bucket[i] = hitcountLUT[v]
	}
}

// Buckets returns the bucketed edge map computed by the last PostExec.
func (h *HitcountsMap) Buckets() []uint8 { return h.bucket }
