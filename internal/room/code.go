package room

import (
	"context"
	"fmt"
	"math/rand"
)

const codeLength = 6

// codeCharset excludes the ambiguous 0, O, 1 and I.
const codeCharset = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const maxCodeAttempts = 50

func generateCode() string {
	code := make([]byte, codeLength)
	for i := range code {
		code[i] = codeCharset[rand.Intn(len(codeCharset))]
	}
	return string(code)
}

// generateUniqueCode retries until the code is free in the store.
func (s *Service) generateUniqueCode(ctx context.Context) (string, error) {
	for attempts := 0; attempts < maxCodeAttempts; attempts++ {
		code := generateCode()
		exists, err := s.db.RoomCodeExists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("check room code: %w", err)
		}
		if !exists {
			return code, nil
		}
	}
	return "", fmt.Errorf("could not generate unique room code")
}
