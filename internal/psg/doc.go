// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

// Package psg launches (scatters) tasks into bounded pools and aggregates
// (gathers) their results. Tasks run concurrently in their own goroutines
// while gathering stays on the goroutine that owns the [Job], so gather
// functions may mutate local state without synchronization.
//
// A [Pool] models a limited set of execution slots. When a pool is full,
// [Gather.Scatter] gathers completed tasks until a slot frees up, which
// bounds both the number of running tasks and the number of results waiting
// to be gathered.
package psg
