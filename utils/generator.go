package utils

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/sony/sonyflake"
)

const keyCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// KeyCodeLength is the length of generated subscription key codes.
const KeyCodeLength = 16

const maxCodeAttempts = 20

var ErrCodeSpaceExhausted = errors.New("could not generate an unused code")

// TransactionIDs issues time-ordered references such as WD-4733923372105729.
type TransactionIDs struct {
	flake *sonyflake.Sonyflake
}

// NewTransactionIDs needs an explicit machine id: the sonyflake default reads
// a private IPv4 address, which containers often do not have.
func NewTransactionIDs(machineID uint16) (*TransactionIDs, error) {
	flake := sonyflake.NewSonyflake(sonyflake.Settings{
		StartTime: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		MachineID: func() (uint16, error) { return machineID, nil },
	})
	if flake == nil {
		return nil, errors.New("sonyflake init error")
	}
	return &TransactionIDs{flake: flake}, nil
}

func (g *TransactionIDs) Next(prefix string) (string, error) {
	id, err := g.flake.NextID()
	if err != nil {
		return "", err
	}
	return prefix + "-" + strconv.FormatUint(id, 10), nil
}

// GenerateUniqueCode draws random codes until exists reports one as unused.
func GenerateUniqueCode(length int, exists func(code string) (bool, error)) (string, error) {
	max := big.NewInt(int64(len(keyCodeAlphabet)))
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		b := make([]byte, length)
		for i := range b {
			n, err := rand.Int(rand.Reader, max)
			if err != nil {
				return "", fmt.Errorf("read random: %w", err)
			}
			b[i] = keyCodeAlphabet[n.Int64()]
		}
		code := string(b)

		taken, err := exists(code)
		if err != nil {
			return "", err
		}
		if !taken {
			return code, nil
		}
	}
	return "", ErrCodeSpaceExhausted
}
