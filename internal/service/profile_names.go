package service

import (
	"crypto/rand"
	"math/big"
	"strings"
)

// Word lists for generating kid-friendly profile names
var adjectives = []string{
	"happy", "sunny", "brave", "bright", "swift", "clever", "jolly", "mighty",
	"lucky", "magic", "bouncy", "cheerful", "daring", "gentle", "jazzy", "lively",
	"merry", "perky", "snappy", "zippy", "cosmic", "groovy", "sparkly", "curious",
}

var nouns = []string{
	"dragon", "tiger", "eagle", "dolphin", "panda", "lion", "owl", "bear",
	"fox", "otter", "penguin", "unicorn", "rocket", "wizard", "robot", "explorer",
	"ranger", "captain", "comet", "puzzler", "koala", "turtle", "bunny", "parrot",
}

// GenerateProfileName returns a random name such as "Happy Dragon"
func GenerateProfileName() (string, error) {
	adjective, err := randomElement(adjectives)
	if err != nil {
		return "", err
	}

	noun, err := randomElement(nouns)
	if err != nil {
		return "", err
	}

	return titleCase(adjective) + " " + titleCase(noun), nil
}

// randomElement picks a random element from a string slice
func randomElement(slice []string) (string, error) {
	if len(slice) == 0 {
		return "", nil
	}

	num, err := rand.Int(rand.Reader, big.NewInt(int64(len(slice))))
	if err != nil {
		return "", err
	}

	return slice[num.Int64()], nil
}

func titleCase(word string) string {
	if word == "" {
		return word
	}
	return strings.ToUpper(word[:1]) + word[1:]
}
