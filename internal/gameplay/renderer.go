// Package gameplay defines the contract with the slot-machine engine.
// The canvas never looks inside it: a slot element is an opaque rectangle
// the renderer mounts into, and the editor only needs enough of a stub to
// preview spins without the real engine.
package gameplay

import (
	"context"
	"errors"
	"math/rand"
	"sync"
)

var ErrNoSymbols = errors.New("gameplay: no symbols loaded")

// Symbol is one reel face.
type Symbol struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Src  string `json:"src,omitempty"`
}

// SpinResult is the outcome of one spin: the settled reel grid
// (reels[column][row]) and any payout.
type SpinResult struct {
	Reels  [][]string `json:"reels"`
	Win    bool       `json:"win"`
	Payout int        `json:"payout"`
}

// Renderer is the gameplay engine as the editor sees it.
type Renderer interface {
	LoadSymbols(ctx context.Context, symbols []Symbol) error
	Spin(ctx context.Context) (SpinResult, error)
}

// StaticRenderer is the in-process stand-in: it settles spins from a
// seeded generator so previews and tests are reproducible, and pays out
// on a uniform middle row.
type StaticRenderer struct {
	mu      sync.Mutex
	rng     *rand.Rand
	symbols []Symbol
}

// NewStaticRenderer seeds the stand-in renderer.
func NewStaticRenderer(seed int64) *StaticRenderer {
	return &StaticRenderer{rng: rand.New(rand.NewSource(seed))}
}

func (r *StaticRenderer) LoadSymbols(_ context.Context, symbols []Symbol) error {
	if len(symbols) == 0 {
		return ErrNoSymbols
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.symbols = append([]Symbol(nil), symbols...)
	return nil
}

func (r *StaticRenderer) Spin(_ context.Context) (SpinResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.symbols) == 0 {
		return SpinResult{}, ErrNoSymbols
	}

	const reels, rows = 3, 3
	res := SpinResult{Reels: make([][]string, reels)}
	for c := 0; c < reels; c++ {
		res.Reels[c] = make([]string, rows)
		for w := 0; w < rows; w++ {
			res.Reels[c][w] = r.symbols[r.rng.Intn(len(r.symbols))].ID
		}
	}

	mid := res.Reels[0][1]
	res.Win = true
	for c := 1; c < reels; c++ {
		if res.Reels[c][1] != mid {
			res.Win = false
			break
		}
	}
	if res.Win {
		res.Payout = 10
	}
	return res, nil
}
