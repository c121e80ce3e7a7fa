// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

// Package replay reads recorded fault times from a log of a real machine.
//
// The input is a sequence of whitespace-separated records of three fields:
// a time in seconds, a node rank, and a one-word error tag. The first record
// fixes the time origin and is otherwise ignored. Records for ranks at or
// beyond the simulated node count are skipped, since the recorded machine may
// be larger than the simulated application.
package replay

import (
	"bufio"
	"io"
	"strconv"

	"github.com/petenewcomb/appmodel-go/internal/cerr"
	"github.com/pkg/errors"
)

const ErrUnparsable = cerr.Error("fault input unparsable")

type Reader struct {
	words    *bufio.Scanner
	maxNodes int
	started  bool
	origin   float64
	records  int
	read     int
	accepted int
}

func NewReader(r io.Reader, maxNodes int) *Reader {
	words := bufio.NewScanner(r)
	words.Split(bufio.ScanWords)
	return &Reader{words: words, maxNodes: maxNodes}
}

// Next returns the next accepted fault time in minutes relative to the
// origin, or io.EOF when the input is exhausted.
func (r *Reader) Next() (float64, error) {
	if !r.started {
		r.started = true
		t, _, err := r.record()
		if err != nil {
			return 0, err
		}
		r.origin = t
	}
	for {
		t, node, err := r.record()
		if err != nil {
			return 0, err
		}
		r.read++
		if node < r.maxNodes {
			r.accepted++
			return (t - r.origin) / 60, nil
		}
	}
}

// Counts reports how many records past the origin were read and accepted.
func (r *Reader) Counts() (read, accepted int) {
	return r.read, r.accepted
}

func (r *Reader) record() (float64, int, error) {
	var fields [3]string
	for i := range fields {
		if !r.words.Scan() {
			if err := r.words.Err(); err != nil {
				return 0, 0, errors.Wrap(err, "reading fault input")
			}
			if i == 0 {
				return 0, 0, io.EOF
			}
			return 0, 0, errors.Wrapf(ErrUnparsable, "record %d is truncated", r.records+1)
		}
		fields[i] = r.words.Text()
	}
	r.records++
	t, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, 0, errors.Wrapf(ErrUnparsable, "record %d: bad time %q", r.records, fields[0])
	}
	node, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0, 0, errors.Wrapf(ErrUnparsable, "record %d: bad node %q", r.records, fields[1])
	}
	return t, node, nil
}
