// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

// Package appmodel simulates a tightly coupled parallel application that
// protects its progress with periodic checkpoints while the nodes it runs on
// fail at random.
//
// Each active node may be paired with a redundant partner. An application
// interrupt happens when every member of some bundle is down at once. After
// an interrupt the application restarts from its last checkpoint, redoes the
// work it lost, and continues computing and checkpointing until the next
// interrupt. Failed nodes may come back on their own after a soft reboot,
// which lets their partner carry the bundle in the meantime.
//
// Simulate runs one application to completion and returns a Result that
// breaks the elapsed time down into restart, rework, work, checkpoint and RAS
// delay. RunTrials repeats the run with successive seeds and Summarize
// reduces the trials to ranges. Interrupts can also be replayed from a log of
// a real machine with WithReplay.
//
// All times are in minutes.
package appmodel
