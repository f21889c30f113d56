// Package testutil provides deterministic synthetic OMA datasets for tests.
//
// This package is intended for use in tests and benchmarks only.
//
// # Random Modes
//
//	rng := testutil.NewRNG(seed)
//	modes := rng.Modes([]testutil.ModeGroup{
//	    {Count: 300, Frequency: 2, Damping: 1, Size: 10},
//	}, testutil.ScatteredNoise(400))
//
// # Reference Scenario
//
//	modes := testutil.Scenario(seed) // groups A, B and scattered noise
package testutil
