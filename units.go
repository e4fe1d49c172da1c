package burnindex

import (
	"strconv"
	"strings"

	"github.com/cockroachdb/apd/v3"
	"github.com/cockroachdb/errors"
)

// UnitDecimals is the number of decimal places between the display unit and
// the smallest unit amounts are stored in (1 display unit = 10^9 units).
const UnitDecimals = 9

// maxUint64Digits bounds the exponent of anything that could still fit.
const maxUint64Digits = 20

// ErrInvalidAmount rejects a display amount that has no exact smallest-unit
// representation.
var ErrInvalidAmount = errors.New("invalid amount")

// ParseAmount converts a decimal display amount such as "1.5" into smallest
// units. Negative values, precision finer than one unit and values that do
// not fit a uint64 are rejected.
func ParseAmount(s string) (uint64, error) {
	d, _, err := apd.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, errors.Wrapf(ErrInvalidAmount, "%q: %v", s, err)
	}
	if d.Form != apd.Finite {
		return 0, errors.Wrapf(ErrInvalidAmount, "%q is not a finite number", s)
	}
	if d.Negative && !d.IsZero() {
		return 0, errors.Wrapf(ErrInvalidAmount, "%q is negative", s)
	}
	d.Negative = false
	d.Exponent += UnitDecimals

	var units apd.Decimal
	units.Reduce(d)
	if units.Exponent < 0 {
		return 0, errors.Wrapf(ErrInvalidAmount, "%q is finer than 10^-%d", s, UnitDecimals)
	}
	if units.Exponent > maxUint64Digits {
		return 0, errors.Wrapf(ErrInvalidAmount, "%q overflows", s)
	}
	v, err := strconv.ParseUint(units.Text('f'), 10, 64)
	if err != nil {
		return 0, errors.Wrapf(ErrInvalidAmount, "%q overflows", s)
	}
	return v, nil
}

// FormatAmount renders smallest units in display units with no trailing
// zeros, e.g. 1500000000 as "1.5".
func FormatAmount(units uint64) string {
	d, _, err := new(apd.Decimal).SetString(strconv.FormatUint(units, 10))
	if err != nil {
		// a base-10 uint64 always parses
		panic(err)
	}
	d.Exponent -= UnitDecimals
	var out apd.Decimal
	out.Reduce(d)
	return out.Text('f')
}
