package gateway

import (
	"context"

	"github.com/twmb/flowgate/pkg/storage"
)

// PreProcessor is one ordered stage of the publish-side processor
// chain (spec §4.7): it consumes an envelope and asynchronously yields
// an envelope, possibly the same one.
type PreProcessor interface {
	// Identity names the stage for error wrapping (spec §4.1, §9).
	Identity() string
	Process(ctx context.Context, env storage.Envelope) (storage.Envelope, error)
}

// PostProcessor is one ordered stage of the receive-side processor
// chain (spec §4.7): it takes a record stream and yields a record
// stream.
type PostProcessor interface {
	Identity() string
	Process(ctx context.Context, in <-chan storage.Record) <-chan storage.Record
}

// runPreProcessors threads env through chain in declared order,
// wrapping any failure (returned error or panic) with the offending
// stage's identity (spec §4.1, §4.7).
func runPreProcessors(ctx context.Context, chain []PreProcessor, env storage.Envelope) (out storage.Envelope, err error) {
	out = env
	for _, stage := range chain {
		out, err = callPreProcessor(ctx, stage, out)
		if err != nil {
			return storage.Envelope{}, err
		}
	}
	return out, nil
}

func callPreProcessor(ctx context.Context, stage PreProcessor, env storage.Envelope) (out storage.Envelope, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = preProcessorErr(stage.Identity(), panicError{r})
		}
	}()
	out, procErr := stage.Process(ctx, env)
	if procErr != nil {
		return storage.Envelope{}, preProcessorErr(stage.Identity(), procErr)
	}
	return out, nil
}

// runPostProcessors threads a record stream through chain in declared
// order (spec §4.3, §4.7).
func runPostProcessors(ctx context.Context, chain []PostProcessor, in <-chan storage.Record) <-chan storage.Record {
	out := in
	for _, stage := range chain {
		out = stage.Process(ctx, out)
	}
	return out
}

type panicError struct{ v interface{} }

func (p panicError) Error() string {
	if err, ok := p.v.(error); ok {
		return err.Error()
	}
	return "panic: " + toString(p.v)
}

func toString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return "non-string panic value"
}
