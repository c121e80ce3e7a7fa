// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package appmodel

import "github.com/petenewcomb/appmodel-go/internal/cerr"

// ErrConfig reports parameters that cannot be simulated. It is returned
// before any simulated time elapses.
const ErrConfig = cerr.Error("invalid configuration")

// ErrAccounting reports a completed run whose books do not balance.
const ErrAccounting = cerr.Error("simulation accounting mismatch")

// invalidConfig classifies err as ErrConfig while keeping err's own chain
// reachable through errors.Is and errors.As.
func invalidConfig(err error) error {
	return &configError{err: err}
}

type configError struct {
	err error
}

func (e *configError) Error() string {
	return ErrConfig.Error() + ": " + e.err.Error()
}

func (e *configError) Unwrap() error {
	return e.err
}

func (e *configError) Is(target error) bool {
	return target == ErrConfig
}
