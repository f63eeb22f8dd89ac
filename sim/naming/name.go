package naming

import (
	"strconv"
	"strings"
)

// A Name is a hierarchical name that includes a series of tokens separated
// by dots.
type Name struct {
	Tokens []Token
}

// Token is an element of a name, such as PagingUnit[1].
type Token struct {
	ElemName string
	Index    []int
}

// Parse parses a name string and returns a Name object.
func Parse(sname string) Name {
	tokens := strings.Split(sname, ".")

	name := Name{Tokens: make([]Token, len(tokens))}
	for i, token := range tokens {
		name.Tokens[i] = parseToken(token)
	}

	return name
}

func parseToken(token string) Token {
	bracketMustMatch(token)

	ts := strings.Split(token, "[")
	elemName := ts[0]

	indices := make([]int, len(ts)-1)
	for i := 1; i < len(ts); i++ {
		index, err := strconv.Atoi(strings.TrimSuffix(ts[i], "]"))
		if err != nil {
			panic("name index must be integer")
		}

		indices[i-1] = index
	}

	return Token{ElemName: elemName, Index: indices}
}

func bracketMustMatch(name string) {
	open := 0

	for _, c := range name {
		switch c {
		case '[':
			open++
		case ']':
			open--
			if open < 0 {
				panic("name bracket must match")
			}
		}
	}

	if open != 0 {
		panic("name bracket must match")
	}
}

// MustBeValid panics if the name does not follow the naming convention:
//  1. Elements are separated by dots, as in "Machine.PagingUnit".
//  2. Elements are not empty.
//  3. Elements start with a capital letter and contain no _, -, / or quotes.
//  4. Elements in a series use square-bracket indices, as in "PagingUnit[0]".
func MustBeValid(name string) {
	defer func() {
		if r := recover(); r != nil {
			panic("name " + name + " is not valid: " + r.(string))
		}
	}()

	n := Parse(name)
	for _, token := range n.Tokens {
		tokenMustBeValid(token)
	}
}

func tokenMustBeValid(token Token) {
	if token.ElemName == "" {
		panic("name element must not be empty")
	}

	for _, c := range []string{"_", "\"", "'", "-", "/"} {
		if strings.Contains(token.ElemName, c) {
			panic("name element must not contain " + c)
		}
	}

	if token.ElemName[0] < 'A' || token.ElemName[0] > 'Z' {
		panic("name element must start with a capital letter")
	}
}

// Build builds a name from a parent name and an element name.
func Build(parentName, elementName string) string {
	if parentName == "" {
		return elementName
	}

	return parentName + "." + elementName
}

// BuildWithIndex builds a name from a parent name, an element name and an
// index.
func BuildWithIndex(parentName, elementName string, index int) string {
	return Build(parentName, elementName+"["+strconv.Itoa(index)+"]")
}
