package main

import (
	"crypto/rand"
)

// scoreGuess compares a guess against the shared secret.
//
// positionMatches counts indices where the digits are equal. exactMatches
// counts every guess digit present anywhere in the secret, consuming each
// secret digit at most once, and includes the position matches. If the
// lengths differ only the overlapping prefix is scored.
func scoreGuess(secret, guess []int) (exactMatches, positionMatches int) {
	length := min(len(secret), len(guess))

	secretLeft := make([]int, length)
	guessLeft := make([]int, length)

	for i := 0; i < length; i++ {
		if guess[i] == secret[i] {
			positionMatches++
			secretLeft[i] = -1
			guessLeft[i] = -2
		} else {
			secretLeft[i] = secret[i]
			guessLeft[i] = guess[i]
		}
	}

	for i := 0; i < length; i++ {
		if guessLeft[i] == -2 {
			continue
		}
		for j := 0; j < length; j++ {
			if secretLeft[j] == guessLeft[i] {
				exactMatches++
				secretLeft[j] = -1
				break
			}
		}
	}

	exactMatches += positionMatches

	return exactMatches, positionMatches
}

// newSecret generates a shared secret of numDigits digits (0-9) via crypto/rand.
func newSecret(numDigits int) []int {
	buf := make([]byte, numDigits)
	if _, err := rand.Read(buf); err != nil {
		panic("crypto/rand failure: " + err.Error())
	}

	secret := make([]int, numDigits)
	for i := range secret {
		secret[i] = int(buf[i]) % 10
	}

	return secret
}
