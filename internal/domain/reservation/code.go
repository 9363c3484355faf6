package reservation

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
)

const (
	// CodePrefix starts every reservation code.
	CodePrefix = "MD-"
	// CodeLength is the number of random characters after the prefix.
	CodeLength = 8
	// codeAlphabet omits I, O, 0 and 1.
	codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

// CodePattern matches a well-formed reservation code.
var CodePattern = regexp.MustCompile(`^MD-[ABCDEFGHJKLMNPQRSTUVWXYZ23456789]{8}$`)

// GenerateCode creates a reservation code in the format "MD-XXXXXXXX".
func GenerateCode() (string, error) {
	max := big.NewInt(int64(len(codeAlphabet)))
	result := make([]byte, CodeLength)
	for i := range result {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate reservation code: %w", err)
		}
		result[i] = codeAlphabet[n.Int64()]
	}
	return CodePrefix + string(result), nil
}
