package security

import (
	"strings"
	"unicode"
)

// CharacterClass is a bit set of the character classes found in a password.
type CharacterClass uint8

const (
	ClassUpper CharacterClass = 1 << iota
	ClassLower
	ClassDigit
	ClassSpecial
)

const specialChars = "!@#$%^&*()_+-=[]{}|;':\",./<>?`~\\"

// Strength score cut points. A score below a cut point falls in the level
// before it: <20 VeryLow, <40 Low, <60 Medium, <80 High, otherwise VeryHigh.
var StrengthCutPoints = [4]int{20, 40, 60, 80}

const (
	lengthPoints    = 3
	maxScoredLength = 20
	classPoints     = 10
)

// Classes returns the set of character classes present in password.
func Classes(password string) CharacterClass {
	var set CharacterClass
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			set |= ClassUpper
		case unicode.IsLower(r):
			set |= ClassLower
		case unicode.IsDigit(r):
			set |= ClassDigit
		case isSpecialChar(r):
			set |= ClassSpecial
		}
	}
	return set
}

// Has reports whether every class in want is present.
func (c CharacterClass) Has(want CharacterClass) bool {
	return c&want == want
}

// Count returns the number of distinct classes in the set.
func (c CharacterClass) Count() int {
	n := 0
	for _, class := range []CharacterClass{ClassUpper, ClassLower, ClassDigit, ClassSpecial} {
		if c&class != 0 {
			n++
		}
	}
	return n
}

// StrengthScore scores a password from 0 to 100. Length contributes up to
// 60 points and each character class 10 more.
func StrengthScore(password string) int {
	length := min(len([]rune(password)), maxScoredLength)
	return length*lengthPoints + Classes(password).Count()*classPoints
}

// StrengthLevel maps a score to its qualitative level index, 0 (VeryLow)
// through 4 (VeryHigh).
func StrengthLevel(score int) int {
	for i, cut := range StrengthCutPoints {
		if score < cut {
			return i
		}
	}
	return len(StrengthCutPoints)
}

// isSpecialChar treats any printable punctuation or symbol as special,
// not only ASCII ones.
func isSpecialChar(r rune) bool {
	return strings.ContainsRune(specialChars, r) || unicode.IsPunct(r) || unicode.IsSymbol(r)
}
