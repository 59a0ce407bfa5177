package track

import (
	"context"
	"fmt"
	"io"
	"strconv"
)

// Replay writes the call count and recorded calls of op to w:
//
//	Cache.store was called 2 times:
//	Cache.store(('foo',)) -> 5c1e...
//	Cache.store((42,)) -> 9b0d...
//
// It does nothing when op is not Traced or has no backend.
func Replay(ctx context.Context, w io.Writer, op any) error {
	t, ok := op.(Traced)
	if !ok || t.Backend() == nil {
		return nil
	}
	kv, name := t.Backend(), t.Name()

	var count int64
	if exists, err := kv.Exists(ctx, name); err != nil {
		return err
	} else if exists {
		raw, err := kv.Get(ctx, name)
		if err != nil {
			return err
		}
		if count, err = strconv.ParseInt(string(raw), 10, 64); err != nil {
			return fmt.Errorf("call count %s: %w", name, err)
		}
	}
	inputs, err := kv.LRange(ctx, InputsKey(name), 0, -1)
	if err != nil {
		return err
	}
	outputs, err := kv.LRange(ctx, OutputsKey(name), 0, -1)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "%s was called %d times:\n", name, count); err != nil {
		return err
	}
	for i := 0; i < len(inputs) && i < len(outputs); i++ {
		if _, err := fmt.Fprintf(w, "%s(%s) -> %s\n", name, inputs[i], outputs[i]); err != nil {
			return err
		}
	}
	return nil
}
