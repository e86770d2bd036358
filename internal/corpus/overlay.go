package corpus

import (
	"context"

	"github.com/abhisek/mcqgen/internal/vector"
)

// Overlay reads through to a base corpus but keeps appends in memory, so a
// dry run sees its own accepted questions without writing anything.
type Overlay struct {
	base  Corpus
	added *Memory
}

func NewOverlay(base Corpus, model string, dim int) *Overlay {
	return &Overlay{base: base, added: NewMemory(model, dim)}
}

func (o *Overlay) LoadAll(ctx context.Context) ([]Entry, error) {
	entries, err := o.base.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	added, err := o.added.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	return append(entries, added...), nil
}

func (o *Overlay) Append(ctx context.Context, v vector.Vector, questionID string) error {
	return o.added.Append(ctx, v, questionID)
}

// Pending returns how many entries were appended to the overlay.
func (o *Overlay) Pending() int { return o.added.Len() }
