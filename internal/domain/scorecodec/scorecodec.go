// Package scorecodec encodes float64 scores into fixed-width hex tokens whose
// lexicographic order matches numeric order.
//
// Positive values (sign bit clear) get their sign bit flipped so they sort
// above every negative value. Negative values get every bit flipped so that
// larger magnitudes sort lower. The result is printed as 16 lowercase hex
// digits, which keeps byte-wise string comparison equal to numeric comparison
// for all finite inputs. -0 and +0 keep distinct tokens, -0 sorting first.
package scorecodec

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Width is the length of every encoded token.
const Width = 16

const (
	signBit uint64 = 0x8000_0000_0000_0000
	allBits uint64 = 0xFFFF_FFFF_FFFF_FFFF
)

// Encode returns the order-preserving token for v.
func Encode(v float64) string {
	u := math.Float64bits(v)
	if u&signBit == 0 {
		u ^= signBit
	} else {
		u ^= allBits
	}
	return fmt.Sprintf("%016x", u)
}

// Decimal formats v as the shortest decimal that parses back to v.
func Decimal(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Token is the value segment stored in keys: the sortable token followed by
// the human-readable decimal. Only the first Width characters carry order.
func Token(v float64) string {
	return Encode(v) + "#" + Decimal(v)
}

// Decode recovers the float from a token produced by Encode. It also accepts
// the longer Token form and ignores everything after the hex prefix.
func Decode(token string) (float64, error) {
	if i := strings.IndexByte(token, '#'); i >= 0 {
		token = token[:i]
	}
	if len(token) != Width {
		return 0, fmt.Errorf("%w: token %q has length %d", ErrInvalidToken, token, len(token))
	}
	u, err := strconv.ParseUint(token, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if u&signBit != 0 {
		u ^= signBit
	} else {
		u ^= allBits
	}
	return math.Float64frombits(u), nil
}

// Finite reports whether v can be encoded and stored.
func Finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
