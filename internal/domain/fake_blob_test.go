package domain_test

import (
	"context"
)

type fakeBlobs struct {
	values   map[string]string
	getErr   error
	setErr   error
	clearErr error
	sets     int
	clears   int
}

func newFakeBlobs() *fakeBlobs {
	return &fakeBlobs{values: make(map[string]string)}
}

func (f *fakeBlobs) Get(_ context.Context, key string) (string, bool, error) {
	if f.getErr != nil {
		return "", false, f.getErr
	}
	v, ok := f.values[key]
	return v, ok, nil
}

func (f *fakeBlobs) Set(_ context.Context, key, value string) error {
	f.sets++
	if f.setErr != nil {
		return f.setErr
	}
	f.values[key] = value
	return nil
}

func (f *fakeBlobs) Clear(context.Context) error {
	f.clears++
	if f.clearErr != nil {
		return f.clearErr
	}
	f.values = make(map[string]string)
	return nil
}
