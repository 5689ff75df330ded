package words

import "strings"

// Letter feedback colors.
const (
	ColorGreen  = "green"
	ColorYellow = "yellow"
	ColorGray   = "gray"
)

// Evaluation is the feedback for one guess.
type Evaluation struct {
	Colors []string `json:"colors"`
	Solved bool     `json:"solved"`
}

// Evaluate scores a guess against the secret. Exact positions go green
// first; remaining letters go yellow while unconsumed copies exist in the
// secret, so duplicate letters are never over-reported.
func Evaluate(secret, guess string) Evaluation {
	secret = strings.ToUpper(secret)
	guess = strings.ToUpper(guess)

	if len(guess) != len(secret) {
		return Evaluation{Colors: []string{}, Solved: false}
	}

	colors := make([]string, len(guess))
	remaining := make(map[byte]int)

	for i := 0; i < len(guess); i++ {
		if guess[i] == secret[i] {
			colors[i] = ColorGreen
		} else {
			remaining[secret[i]]++
		}
	}

	for i := 0; i < len(guess); i++ {
		if colors[i] == ColorGreen {
			continue
		}
		if remaining[guess[i]] > 0 {
			colors[i] = ColorYellow
			remaining[guess[i]]--
		} else {
			colors[i] = ColorGray
		}
	}

	return Evaluation{Colors: colors, Solved: guess == secret}
}
