package badwords

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/joy095/academy/logger"
)

// CheckRequest is the body of the admin "check this text" call.
type CheckRequest struct {
	Text string `json:"text" binding:"required"`
}

// CheckResponse reports whether a text contains a blocked word.
type CheckResponse struct {
	ContainsBadWords bool `json:"containsBadWords"`
}

// Filter is a case-insensitive word list used to moderate public submissions.
type Filter struct {
	mu    sync.RWMutex
	words map[string]struct{}
}

func NewFilter(words ...string) *Filter {
	f := &Filter{words: make(map[string]struct{})}
	for _, w := range words {
		_ = f.Add(w)
	}
	return f
}

// Load replaces the list with the words in filename, one per line. Lines starting
// with # are comments.
func (f *Filter) Load(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read bad words file: %w", err)
	}

	next := make(map[string]struct{})
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		next[strings.ToLower(line)] = struct{}{}
	}

	f.mu.Lock()
	f.words = next
	f.mu.Unlock()

	logger.InfoLogger.Infof("Loaded %d bad words from %s", len(next), filename)
	return nil
}

// Contains reports whether any word of text is on the list.
func (f *Filter) Contains(text string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if len(f.words) == 0 {
		return false
	}

	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, word := range words {
		if _, found := f.words[word]; found {
			logger.WarnLogger.Warnf("Blocked word detected in submission")
			return true
		}
	}
	return false
}

// Check wraps Contains in the response shape.
func (f *Filter) Check(text string) CheckResponse {
	return CheckResponse{ContainsBadWords: f.Contains(text)}
}

func (f *Filter) Add(word string) error {
	word = strings.ToLower(strings.TrimSpace(word))
	if word == "" {
		return errors.New("bad word must not be empty")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.words[word] = struct{}{}
	logger.InfoLogger.Infof("Added bad word: %s", word)
	return nil
}

func (f *Filter) Remove(word string) bool {
	word = strings.ToLower(strings.TrimSpace(word))

	f.mu.Lock()
	defer f.mu.Unlock()
	if _, found := f.words[word]; !found {
		return false
	}
	delete(f.words, word)
	logger.InfoLogger.Infof("Removed bad word: %s", word)
	return true
}

// List returns the words in sorted order.
func (f *Filter) List() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	words := make([]string, 0, len(f.words))
	for w := range f.words {
		words = append(words, w)
	}
	sort.Strings(words)
	return words
}
