// Package words holds the duel's pure word logic: the dictionary, random
// target selection and guess evaluation. It has no knowledge of rooms,
// players or the store.
package words

import (
	_ "embed"
	"math/rand"
	"strings"
)

// Length is the fixed word length for the game.
const Length = 5

//go:embed data/words.txt
var rawWords string

var (
	wordList []string
	wordSet  map[string]struct{}
)

func init() {
	for _, line := range strings.Split(rawWords, "\n") {
		word := strings.ToUpper(strings.TrimSpace(line))
		if len(word) != Length {
			continue
		}
		wordList = append(wordList, word)
	}

	wordSet = make(map[string]struct{}, len(wordList))
	for _, word := range wordList {
		wordSet[word] = struct{}{}
	}
}

// Random draws a target word from the dictionary.
func Random() string {
	return wordList[rand.Intn(len(wordList))]
}

// Valid reports whether the guess is a dictionary word.
func Valid(word string) bool {
	_, ok := wordSet[strings.ToUpper(word)]
	return ok
}

// Count returns the dictionary size.
func Count() int {
	return len(wordList)
}
