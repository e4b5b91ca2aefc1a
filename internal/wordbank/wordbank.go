// Package wordbank holds the categorized word lists a game draws from.
package wordbank

import (
	"fmt"
	rand "math/rand/v2"
	"sort"
	"strings"
)

// ImpostorWord is the sentinel dealt to the impostor instead of the secret
// word. It must never appear in any category's word list.
const ImpostorWord = "IMPOSTOR"

// Category is a named word list.
type Category struct {
	Name  string
	Words []string
}

// Bank is an immutable collection of categories. Lookups are case-sensitive
// on the category name as shown to players.
type Bank struct {
	categories []Category
	index      map[string]int
}

// New builds a bank from the given categories. Every category needs a name
// and at least one word, names must be unique, and no word may collide with
// the impostor sentinel.
func New(categories []Category) (*Bank, error) {
	if len(categories) == 0 {
		return nil, fmt.Errorf("word bank needs at least one category")
	}

	index := make(map[string]int, len(categories))
	for i, cat := range categories {
		if cat.Name == "" {
			return nil, fmt.Errorf("category %d has no name", i)
		}
		if _, dup := index[cat.Name]; dup {
			return nil, fmt.Errorf("duplicate category %q", cat.Name)
		}
		if len(cat.Words) == 0 {
			return nil, fmt.Errorf("category %q has no words", cat.Name)
		}
		for _, w := range cat.Words {
			if strings.EqualFold(w, ImpostorWord) {
				return nil, fmt.Errorf("category %q contains the reserved word %q", cat.Name, ImpostorWord)
			}
		}
		index[cat.Name] = i
	}

	return &Bank{categories: categories, index: index}, nil
}

// Default returns the built-in bank used when no categories are configured.
func Default() *Bank {
	bank, err := New([]Category{
		{Name: "Places", Words: []string{
			"Hospital", "School", "Beach", "Airplane", "Supermarket",
			"Bank", "Cinema", "Restaurant", "Circus", "Space Station",
		}},
		{Name: "Food", Words: []string{
			"Pizza", "Burger", "Sushi", "Tacos", "Ice Cream",
			"Chocolate", "Salad", "Paella",
		}},
		{Name: "Animals", Words: []string{
			"Dog", "Cat", "Elephant", "Lion", "Shark",
			"Eagle", "Penguin", "Snake",
		}},
	})
	if err != nil {
		panic("built-in word bank invalid: " + err.Error())
	}
	return bank
}

// Categories returns the category names in stable sorted order.
func (b *Bank) Categories() []string {
	names := make([]string, 0, len(b.categories))
	for _, cat := range b.categories {
		names = append(names, cat.Name)
	}
	sort.Strings(names)
	return names
}

// Words returns the word list for a category.
func (b *Bank) Words(name string) ([]string, bool) {
	i, ok := b.index[name]
	if !ok {
		return nil, false
	}
	return b.categories[i].Words, true
}

// Pick selects a category and word for a new game. If requested names a
// known category it is used, otherwise a category is chosen uniformly at
// random. The word is always chosen uniformly within the category.
func (b *Bank) Pick(requested string, rng *rand.Rand) (category, word string) {
	i, ok := b.index[requested]
	if !ok {
		i = rng.IntN(len(b.categories))
	}
	cat := b.categories[i]
	return cat.Name, cat.Words[rng.IntN(len(cat.Words))]
}
