package tapn

import (
	"sort"
	"strconv"
	"strings"
)

// Token stands for Count identical tokens of the same Age.
type Token struct {
	Age   int
	Count int
}

// TokenList is kept strictly increasing by age.
type TokenList []Token

// Size is the number of tokens in the list.
func (l TokenList) Size() int {
	n := 0
	for _, t := range l {
		n += t.Count
	}
	return n
}

func (l TokenList) search(age int) (int, bool) {
	i := sort.Search(len(l), func(i int) bool { return l[i].Age >= age })
	return i, i < len(l) && l[i].Age == age
}

// Add merges count tokens of the given age into the list.
func (l TokenList) Add(age, count int) TokenList {
	if count <= 0 {
		return l
	}
	i, found := l.search(age)
	if found {
		l[i].Count += count
		return l
	}
	l = append(l, Token{})
	copy(l[i+1:], l[i:])
	l[i] = Token{Age: age, Count: count}
	return l
}

// Remove takes count tokens of the given age out of the list.
func (l TokenList) Remove(age, count int) (TokenList, bool) {
	i, found := l.search(age)
	if !found || l[i].Count < count {
		return l, false
	}
	l[i].Count -= count
	if l[i].Count == 0 {
		l = append(l[:i], l[i+1:]...)
	}
	return l, true
}

// CountIn counts tokens whose age lies in the interval.
func (l TokenList) CountIn(iv TimeInterval) int {
	n := 0
	for _, t := range l {
		if iv.Contains(t.Age) {
			n += t.Count
		}
	}
	return n
}

func (l TokenList) Oldest() int {
	return l[len(l)-1].Age
}

func (l TokenList) String() string {
	var b strings.Builder
	for i, t := range l {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteByte('(')
		b.WriteString(strconv.Itoa(t.Age))
		b.WriteByte(',')
		b.WriteString(strconv.Itoa(t.Count))
		b.WriteByte(')')
	}
	return b.String()
}

// PlaceTokens is the non-empty token list of one place.
type PlaceTokens struct {
	Place  *Place
	Tokens TokenList
}
