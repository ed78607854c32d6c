package probe

import "context"

// FakeAdapter is a deterministic, in-memory Adapter used by analyzer and
// orchestrator tests so the pipeline can be exercised without a real
// ffprobe/ffmpeg binary, matching spec §9's "no wall-clock or randomness"
// determinism requirement for tests.
type FakeAdapter struct {
	Readings map[Kind]*Reading
	Errors   map[Kind]error
}

func NewFakeAdapter() *FakeAdapter {
	return &FakeAdapter{
		Readings: make(map[Kind]*Reading),
		Errors:   make(map[Kind]error),
	}
}

func (f *FakeAdapter) With(kind Kind, r *Reading) *FakeAdapter {
	f.Readings[kind] = r
	return f
}

func (f *FakeAdapter) WithError(kind Kind, err error) *FakeAdapter {
	f.Errors[kind] = err
	return f
}

func (f *FakeAdapter) Probe(ctx context.Context, filePath string, req Request) (*Reading, error) {
	if err, ok := f.Errors[req.Kind]; ok {
		return nil, &Error{Kind: req.Kind, Cause: err}
	}
	if r, ok := f.Readings[req.Kind]; ok {
		cp := *r
		cp.Kind = req.Kind
		return &cp, nil
	}
	return &Reading{Kind: req.Kind}, nil
}
