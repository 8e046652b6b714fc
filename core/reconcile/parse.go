package reconcile

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/kilianp07/evslot/core/ledger"
	"github.com/kilianp07/evslot/core/model"
)

// DefaultMaxLineBytes bounds the length of a single import line.
const DefaultMaxLineBytes = 4096

var errLineTooLong = fmt.Errorf("%w: line too long", ErrMalformedLine)

// ParseLine parses "plate,current_charge,total_charge,desired_percentage".
func ParseLine(line string) (model.Params, error) {
	fields := strings.Split(strings.TrimRight(line, "\r\n"), ",")
	if len(fields) != 4 {
		return model.Params{}, fmt.Errorf("%w: expected 4 fields, got %d", ErrMalformedLine, len(fields))
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	p := model.Params{Plate: fields[0]}
	var err error
	if p.CurrentCharge, err = atoi("current_charge", fields[1]); err != nil {
		return model.Params{}, err
	}
	if p.TotalCharge, err = atoi("total_charge", fields[2]); err != nil {
		return model.Params{}, err
	}
	if p.DesiredPercentage, err = atoi("desired_percentage", fields[3]); err != nil {
		return model.Params{}, err
	}
	if p.Plate == "" {
		return model.Params{}, fmt.Errorf("%w: empty plate", ErrMalformedLine)
	}
	if err := p.Validate(); err != nil {
		return model.Params{}, fmt.Errorf("%w: %v", ledger.ErrConstraintViolation, err)
	}
	if p.TotalCharge == 0 {
		return model.Params{}, fmt.Errorf("%w: total charge must be positive", ledger.ErrConstraintViolation)
	}
	return p, nil
}

func atoi(field, s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q is not an integer", ErrMalformedLine, field, s)
	}
	return n, nil
}

// scanLines calls fn for every line of r. Lines longer than max are reported
// to fn with errLineTooLong and skipped. Only read errors of r end the scan.
func scanLines(r io.Reader, max int, fn func(line string, err error)) error {
	if max <= 0 {
		max = DefaultMaxLineBytes
	}
	br := bufio.NewReader(r)
	for {
		var buf []byte
		tooLong := false
		for {
			chunk, err := br.ReadSlice('\n')
			if !tooLong {
				if len(buf)+len(chunk) > max+2 {
					tooLong, buf = true, nil
				} else {
					buf = append(buf, chunk...)
				}
			}
			if errors.Is(err, bufio.ErrBufferFull) {
				continue
			}
			if err != nil && !errors.Is(err, io.EOF) {
				return err
			}
			switch {
			case tooLong:
				fn("", errLineTooLong)
			case len(buf) > 0:
				fn(string(buf), nil)
			}
			if err != nil {
				return nil
			}
			break
		}
	}
}
