package contract

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"time"
)

const numberPrefix = "RNT"

// newContractNumber returns RNT<unix millis><3 random digits>.
func newContractNumber(now time.Time) (string, error) {
	suffix, err := randomDigits(3)
	if err != nil {
		return "", err
	}
	return numberPrefix + strconv.FormatInt(now.UnixMilli(), 10) + suffix, nil
}

func newAccessCode() (string, error) {
	return randomDigits(6)
}

func randomDigits(n int) (string, error) {
	limit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
	v, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", fmt.Errorf("generating random digits: %w", err)
	}
	return fmt.Sprintf("%0*d", n, v.Int64()), nil
}
