package keyderiv

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/tyler-smith/go-bip39"
)

// Word counts this module accepts, mapped to their entropy size in bits.
const (
	WordCount12 = 12
	WordCount24 = 24

	entropyBits12 = 128
	entropyBits24 = 256
)

// MaxTypoDistance is the maximum Levenshtein distance considered a
// plausible typo when suggesting corrections.
const MaxTypoDistance = 2

var (
	// ErrInvalidWordCount indicates an unsupported mnemonic length.
	ErrInvalidWordCount = errors.New("keyderiv: mnemonic must be 12 or 24 words")

	// ErrInvalidMnemonic indicates the mnemonic failed checksum validation.
	ErrInvalidMnemonic = errors.New("keyderiv: invalid mnemonic checksum")
)

var listPrefixRegex = regexp.MustCompile(`^\s*\d+[.)]\s*|^\s*[-*]\s*`)

// GenerateMnemonic creates a new BIP-39 mnemonic with the given word count
// (12 or 24).
func GenerateMnemonic(wordCount int) (string, error) {
	var bits int
	switch wordCount {
	case WordCount12:
		bits = entropyBits12
	case WordCount24:
		bits = entropyBits24
	default:
		return "", ErrInvalidWordCount
	}

	entropy, err := bip39.NewEntropy(bits)
	if err != nil {
		return "", fmt.Errorf("keyderiv: generating entropy: %w", err)
	}

	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", fmt.Errorf("keyderiv: building mnemonic: %w", err)
	}

	return mnemonic, nil
}

// ValidateMnemonic checks word count and BIP-39 checksum.
func ValidateMnemonic(mnemonic string) error {
	words := strings.Fields(mnemonic)
	if len(words) != WordCount12 && len(words) != WordCount24 {
		return ErrInvalidWordCount
	}

	if _, err := bip39.MnemonicToByteArray(mnemonic); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidMnemonic, err)
	}

	return nil
}

// NormalizeMnemonicInput lowercases, strips numbered-list/bullet prefixes
// from each line, converts commas to spaces, and collapses whitespace —
// tolerating the common ways users paste a mnemonic out of a note-taking
// app or password manager.
func NormalizeMnemonicInput(input string) string {
	lines := strings.Split(input, "\n")
	words := make([]string, 0, len(lines))

	for _, line := range lines {
		line = listPrefixRegex.ReplaceAllString(line, "")
		line = strings.ReplaceAll(line, ",", " ")
		for _, w := range strings.Fields(line) {
			words = append(words, strings.ToLower(strings.TrimSpace(w)))
		}
	}

	return strings.Join(words, " ")
}

// MnemonicToSeed derives the 64-byte BIP-39 seed from a mnemonic and
// optional passphrase.
func MnemonicToSeed(mnemonic, passphrase string) []byte {
	return bip39.NewSeed(mnemonic, passphrase)
}

// GetWordList returns the full BIP-39 English wordlist.
func GetWordList() []string {
	return bip39.GetWordList()
}

// IsValidWord reports whether w is a member of the BIP-39 English wordlist.
func IsValidWord(w string) bool {
	for _, candidate := range bip39.GetWordList() {
		if candidate == w {
			return true
		}
	}
	return false
}

// TypoInfo describes a single mistyped word and its candidate corrections.
type TypoInfo struct {
	Index       int      `json:"index"`
	Word        string   `json:"word"`
	Suggestions []string `json:"suggestions"`
}

// SuggestWord returns BIP-39 words within MaxTypoDistance of word, closest
// first.
func SuggestWord(word string) []string {
	type scored struct {
		word     string
		distance int
	}

	var candidates []scored
	for _, w := range bip39.GetWordList() {
		d := levenshtein.ComputeDistance(word, w)
		if d <= MaxTypoDistance {
			candidates = append(candidates, scored{word: w, distance: d})
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].distance != candidates[j].distance {
			return candidates[i].distance < candidates[j].distance
		}
		return candidates[i].word < candidates[j].word
	})

	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, c.word)
	}
	return out
}

// DetectTypos scans a normalized mnemonic for words not in the wordlist
// and returns suggestions for each.
func DetectTypos(mnemonic string) []TypoInfo {
	words := strings.Fields(mnemonic)
	var typos []TypoInfo

	for i, w := range words {
		if IsValidWord(w) {
			continue
		}
		typos = append(typos, TypoInfo{
			Index:       i,
			Word:        w,
			Suggestions: SuggestWord(w),
		})
	}

	return typos
}

// FormatTypoSuggestions renders DetectTypos output as human-readable lines.
func FormatTypoSuggestions(typos []TypoInfo) string {
	if len(typos) == 0 {
		return ""
	}

	var b strings.Builder
	for _, t := range typos {
		b.WriteString("word " + strconv.Itoa(t.Index+1) + " (\"" + t.Word + "\"): ")
		if len(t.Suggestions) == 0 {
			b.WriteString("no close match found\n")
			continue
		}
		b.WriteString("did you mean " + strings.Join(t.Suggestions, ", ") + "?\n")
	}
	return b.String()
}
