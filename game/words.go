/*
 * Copyright (c) Joseph Prichard 2024
 */

package game

import (
	"math/rand"
	"strings"
	"time"
)

// the number of candidates the drawer chooses between
const WordOptionCount = 2

// a read-only word corpus, an unavailable corpus answers with an empty result
type WordSource interface {
	RandomWords(n int) []string
}

// an in memory corpus made of the shared word bank and a room's custom words
type WordBank struct {
	words []string
	rng   *rand.Rand
}

func NewWordBank(shared []string, custom []string) *WordBank {
	words := make([]string, 0, len(shared)+len(custom))
	words = append(words, shared...)
	words = append(words, custom...)
	return &WordBank{
		words: ParseWords(strings.Join(words, "\n")),
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// RandomWords draws n words independently, so the same word may appear more than once
func (bank *WordBank) RandomWords(n int) []string {
	if len(bank.words) == 0 || n <= 0 {
		return []string{}
	}
	words := make([]string, n)
	for i := range words {
		words[i] = bank.words[bank.rng.Intn(len(bank.words))]
	}
	return words
}

func (bank *WordBank) Len() int {
	return len(bank.words)
}

// ParseWords splits a newline separated word list, skipping blanks and # comments
func ParseWords(text string) []string {
	words := make([]string, 0)
	for _, line := range strings.Split(text, "\n") {
		word := strings.TrimSpace(line)
		if word == "" || strings.HasPrefix(word, "#") || len(word) > MaxWordLen {
			continue
		}
		words = append(words, word)
	}
	return words
}

type WordSelector struct {
	source WordSource
}

func NewWordSelector(source WordSource) WordSelector {
	return WordSelector{source: source}
}

func (selector WordSelector) DrawOptions(count int) ([]string, error) {
	words := selector.source.RandomWords(count)
	if len(words) == 0 {
		return nil, ErrEmptyCorpus
	}
	return words, nil
}

func (selector WordSelector) DrawOne() (string, error) {
	words, err := selector.DrawOptions(1)
	if err != nil {
		return "", err
	}
	return words[0], nil
}

// MatchesWord compares a guess against the active word ignoring case and surrounding whitespace
func MatchesWord(guess string, word string) bool {
	word = strings.TrimSpace(word)
	if word == "" {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(guess), word)
}
