package auth

import (
	goerrors "github.com/goliatone/go-errors"
)

// DecoyMode selects how decoy credentials are produced.
type DecoyMode int

const (
	// DecoyModeCached generates one decoy record at construction and reuses
	// it. Cheap per request; an adversary would need to correlate decoys
	// across requests to notice, which the protocol does not expose.
	DecoyModeCached DecoyMode = iota
	// DecoyModePerRequest generates a fresh decoy for every call.
	DecoyModePerRequest
)

// DecoyProvider hands the login flow a stand-in registration record when no
// real credential exists. Construction fails closed: in cached mode a
// provider that could not generate its decoy is never returned, so a request
// can never observe an uninitialized decoy and fall through to real
// credential logic.
type DecoyProvider struct {
	engine Engine
	mode   DecoyMode
	cached []byte
}

type DecoyOption func(*DecoyProvider)

// WithDecoyMode selects the generation policy.
func WithDecoyMode(mode DecoyMode) DecoyOption {
	return func(d *DecoyProvider) {
		d.mode = mode
	}
}

func NewDecoyProvider(engine Engine, opts ...DecoyOption) (*DecoyProvider, error) {
	if engine == nil {
		return nil, goerrors.New("decoy provider requires an engine", goerrors.CategoryBadInput)
	}

	d := &DecoyProvider{
		engine: engine,
		mode:   DecoyModeCached,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}

	if d.mode == DecoyModeCached {
		record, err := engine.CreateDecoyRecord()
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate decoy credential")
		}
		d.cached = record
	}

	return d, nil
}

// DecoyRecord returns a registration record bound to no real account.
func (d *DecoyProvider) DecoyRecord() ([]byte, error) {
	if d.mode == DecoyModeCached {
		record := make([]byte, len(d.cached))
		copy(record, d.cached)
		return record, nil
	}

	record, err := d.engine.CreateDecoyRecord()
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate decoy credential")
	}

	return record, nil
}
