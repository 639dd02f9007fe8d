// Package multi fans one payload out to several named backends, e.g. when
// the service setting is "logship,endpoint".
package multi

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/strongdm/faultline/pkg/faultline/telemetry"
)

// Backend is a sink with the service name used to label its errors.
type Backend struct {
	Name string
	Sink telemetry.Sink
}

type multiSink struct {
	backends []Backend
}

// NewMultiSink creates a sink that writes to every backend concurrently.
// A failing or panicking backend does not stop the others; errors are
// joined and prefixed with the backend name.
func NewMultiSink(backends ...Backend) telemetry.Sink {
	kept := make([]Backend, 0, len(backends))
	for _, b := range backends {
		if b.Sink != nil {
			kept = append(kept, b)
		}
	}
	return &multiSink{backends: kept}
}

func (s *multiSink) Write(ctx context.Context, payload telemetry.Payload) error {
	return s.each(func(sink telemetry.Sink) error {
		return sink.Write(ctx, payload)
	})
}

func (s *multiSink) Flush(ctx context.Context) error {
	return s.each(func(sink telemetry.Sink) error {
		return sink.Flush(ctx)
	})
}

func (s *multiSink) Close() error {
	return s.each(func(sink telemetry.Sink) error {
		return sink.Close()
	})
}

func (s *multiSink) each(fn func(telemetry.Sink) error) error {
	errs := make([]error, len(s.backends))
	var wg sync.WaitGroup
	for i, b := range s.backends {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if p := recover(); p != nil {
					errs[i] = fmt.Errorf("%s: panic: %v", b.Name, p)
				}
			}()
			if err := fn(b.Sink); err != nil {
				errs[i] = fmt.Errorf("%s: %w", b.Name, err)
			}
		}()
	}
	wg.Wait()
	return errors.Join(errs...)
}
