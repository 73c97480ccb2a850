package sql

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/pkg/errors"
)

const (
	// Literal
	TkTrue = iota
	TkFalse
	TkInt
	TkReal
	TkNull
	TkStr
	TkId

	// Keywords
	TkSelect
	TkFrom
	TkAs
	TkJoin
	TkOuter // LEFT/RIGHT/FULL/OUTER/CROSS qualifier of a join
	TkOn
	TkWhere
	TkGroupBy
	TkOrderBy
	TkLimit
	TkHaving
	TkDistinct
	TkIn
	TkBetween
	TkAsc
	TkDesc

	// Punctuation
	TkComma
	TkSemicolon
	TkDot

	TkLPar
	TkRPar

	TkAdd
	TkSub
	TkMul
	TkDiv
	TkMod

	TkLt
	TkLe
	TkGt
	TkGe
	TkEq
	TkNe

	TkAnd
	TkOr
	TkNot

	TkError
	TkEof

	// never produced by the lexer, used by the parser when desugaring
	tkNotBetween
	tkNotIn
)

// IsKeyword reports whether the token is a reserved word of the grammar.
func IsKeyword(tk int) bool {
	switch tk {
	case TkSelect, TkFrom, TkAs, TkJoin, TkOuter, TkOn, TkWhere, TkGroupBy,
		TkOrderBy, TkLimit, TkHaving, TkDistinct, TkIn, TkBetween, TkAsc,
		TkDesc, TkAnd, TkOr, TkNot, TkTrue, TkFalse, TkNull:
		return true
	default:
		return false
	}
}

type Lexeme struct {
	Text string
	Int  int64
	Real float64
}

// Token is one lexed element with its byte offset in the source.
type Token struct {
	Kind   int
	Lexeme Lexeme
	Start  int
	End    int
}

// Is reports whether the token is an identifier spelled as name.
func (self Token) Is(name string) bool {
	return self.Kind == TkId && self.Lexeme.Text == name
}

type Lexer struct {
	Source string
	Cursor int
	Start  int // offset of the current token
	Token  int
	Lexeme Lexeme
}

func (self *Lexer) nextRune() (rune, int) {
	if self.Cursor >= len(self.Source) {
		return utf8.RuneError, 0
	}
	return utf8.DecodeRuneInString(self.Source[self.Cursor:])
}

func (self *Lexer) nextRune2() rune {
	if self.Cursor+1 >= len(self.Source) {
		return utf8.RuneError
	}
	r, _ := utf8.DecodeRuneInString(self.Source[self.Cursor+1:])
	return r
}

func (self *Lexer) yield(tk int, sz int) int {
	self.Token = tk
	self.Cursor += sz
	return tk
}

func (self *Lexer) eof() int {
	self.Token = TkEof
	return TkEof
}

// line and column of a byte offset, for diagnostics
func (self *Lexer) pos(where int) (int, int) {
	line := 1
	col := 1

	for idx, r := range self.Source {
		if idx >= where {
			break
		}
		if r == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}

	return line, col
}

func (self *Lexer) dinfo() string {
	line, col := self.pos(self.Start)
	return fmt.Sprintf("around position(%d: %d)", line, col)
}

func (self *Lexer) err(msg string) int {
	self.Lexeme.Text = fmt.Sprintf("%s: %s", self.dinfo(), msg)
	self.Token = TkError
	return TkError
}

func (self *Lexer) errE(err error) int {
	return self.err(err.Error())
}

func (self *Lexer) errUtf8() int {
	return self.err("invalid utf8 character")
}

func (self *Lexer) lexLineComment() {
	for {
		r, sz := self.nextRune()
		if sz == 0 {
			return
		}
		self.Cursor += sz
		if r == '\n' {
			return
		}
	}
}

func (self *Lexer) lexBlockComment() bool {
	for {
		r, sz := self.nextRune()
		if sz == 0 {
			self.err("block comment is not closed properly")
			return false
		}
		if r == '*' && self.nextRune2() == '/' {
			self.Cursor += 2
			return true
		}
		self.Cursor += sz
	}
}

// a dot or an exponent makes a real number, everything else is a 64 bits
// integer
func (self *Lexer) lexNum() int {
	hasDot := false
	hasE := false

	buf := &bytes.Buffer{}

loop:
	for {
		r, sz := self.nextRune()
		if sz == 0 {
			break
		}

		switch r {
		case '.':
			if hasDot || hasE {
				break loop
			}
			hasDot = true

		case 'e', 'E':
			if hasE {
				break loop
			}
			hasE = true
			buf.WriteRune(r)
			self.Cursor += sz
			if sign, _ := self.nextRune(); (sign == '+' || sign == '-') && unicode.IsDigit(self.nextRune2()) {
				buf.WriteRune(sign)
				self.Cursor++
			}
			continue

		case '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
			break

		default:
			break loop
		}

		buf.WriteRune(r)
		self.Cursor += sz
	}

	if hasDot || hasE {
		f, err := strconv.ParseFloat(buf.String(), 64)
		if err != nil {
			return self.errE(err)
		}
		self.Lexeme.Real = f
		self.Lexeme.Text = buf.String()
		self.Token = TkReal
		return TkReal
	}

	i, err := strconv.ParseInt(buf.String(), 10, 64)
	if err != nil {
		return self.errE(err)
	}
	self.Lexeme.Int = i
	self.Lexeme.Text = buf.String()
	self.Token = TkInt
	return TkInt
}

// single quoted text is a string literal, double quoted text is a quoted
// identifier. A doubled quote inside of the literal stands for the quote
// itself, backslash escapes are accepted as well.
func (self *Lexer) lexQuoted(quote rune) int {
	buf := &bytes.Buffer{}
	self.Cursor++

	for {
		c, sz := self.nextRune()
		if sz == 0 {
			return self.err("string literal is not closed by quote properly")
		}
		if c == utf8.RuneError && sz == 1 {
			return self.errUtf8()
		}

		if c == quote {
			if self.nextRune2() == quote {
				buf.WriteRune(quote)
				self.Cursor += 2
				continue
			}
			self.Cursor += sz
			break
		}

		if c == '\\' {
			switch self.nextRune2() {
			case 't':
				buf.WriteRune('\t')
			case 'n':
				buf.WriteRune('\n')
			case 'r':
				buf.WriteRune('\r')
			case '\'':
				buf.WriteRune('\'')
			case '"':
				buf.WriteRune('"')
			case '\\':
				buf.WriteRune('\\')
			default:
				return self.err("unknown escape sequences inside of string literal")
			}
			self.Cursor += 2
			continue
		}

		buf.WriteRune(c)
		self.Cursor += sz
	}

	self.Lexeme.Text = buf.String()
	if quote == '"' {
		self.Lexeme.Text = strings.ToLower(self.Lexeme.Text)
		self.Token = TkId
	} else {
		self.Token = TkStr
	}
	return self.Token
}

// matchkeyword checks, case insensitively, that str follows the cursor at the
// given offset and is not the prefix of a longer identifier
func (self *Lexer) matchkeyword(str string, offset int) bool {
	c := self.Cursor + offset

	for _, want := range str {
		if c >= len(self.Source) {
			return false
		}
		r, sz := utf8.DecodeRuneInString(self.Source[c:])
		if unicode.ToLower(r) != want {
			return false
		}
		c += sz
	}

	if c >= len(self.Source) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(self.Source[c:])
	return !self.isIdChar(r)
}

func (self *Lexer) matchKeyword(w string) bool {
	return self.matchkeyword(w, 1)
}

// matchKeyword2 matches a two word keyword, ie GROUP BY, with any amount of
// whitespace in between. Returns the total length on success.
func (self *Lexer) matchKeyword2(w1, w2 string) (bool, int) {
	if !self.matchKeyword(w1) {
		return false, -1
	}

	off := 1 + len(w1)
	for self.Cursor+off < len(self.Source) {
		r, _ := utf8.DecodeRuneInString(self.Source[self.Cursor+off:])
		if !self.isWS(r) {
			break
		}
		off++
	}

	if self.Cursor+off >= len(self.Source) {
		return false, -1
	}

	if self.matchkeyword(w2, off) {
		return true, off + len(w2)
	}
	return false, -1
}

func (self *Lexer) isWS(r rune) bool {
	switch r {
	case ' ', '\r', '\t', '\n', '\b', '\v', '\f':
		return true
	default:
		return false
	}
}

func (self *Lexer) isIdChar(r rune) bool {
	return r == '_' || r == '$' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func (self *Lexer) isIdLeadingChar(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func (self *Lexer) tryKeyword(c rune) (bool, int) {
	switch unicode.ToLower(c) {
	case 'a':
		if self.matchKeyword("nd") {
			return true, self.yield(TkAnd, 3)
		}
		if self.matchKeyword("sc") {
			return true, self.yield(TkAsc, 3)
		}
		if self.matchKeyword("s") {
			return true, self.yield(TkAs, 2)
		}

	case 'b':
		if self.matchKeyword("etween") {
			return true, self.yield(TkBetween, 7)
		}

	case 'c':
		if self.matchKeyword("ross") {
			return true, self.yield(TkOuter, 5)
		}

	case 'd':
		if self.matchKeyword("istinct") {
			return true, self.yield(TkDistinct, 8)
		}
		if self.matchKeyword("esc") {
			return true, self.yield(TkDesc, 4)
		}

	case 'f':
		if self.matchKeyword("alse") {
			return true, self.yield(TkFalse, 5)
		}
		if self.matchKeyword("rom") {
			return true, self.yield(TkFrom, 4)
		}
		if self.matchKeyword("ull") {
			return true, self.yield(TkOuter, 4)
		}

	case 'g':
		if yes, length := self.matchKeyword2("roup", "by"); yes {
			return true, self.yield(TkGroupBy, length)
		}

	case 'h':
		if self.matchKeyword("aving") {
			return true, self.yield(TkHaving, 6)
		}

	case 'i':
		if yes, length := self.matchKeyword2("nner", "join"); yes {
			return true, self.yield(TkJoin, length)
		}
		if self.matchKeyword("n") {
			return true, self.yield(TkIn, 2)
		}

	case 'j':
		if self.matchKeyword("oin") {
			return true, self.yield(TkJoin, 4)
		}

	case 'l':
		if self.matchKeyword("imit") {
			return true, self.yield(TkLimit, 5)
		}
		if self.matchKeyword("eft") {
			return true, self.yield(TkOuter, 4)
		}

	case 'n':
		if self.matchKeyword("ull") {
			return true, self.yield(TkNull, 4)
		}
		if self.matchKeyword("ot") {
			return true, self.yield(TkNot, 3)
		}

	case 'o':
		if self.matchKeyword("r") {
			return true, self.yield(TkOr, 2)
		}
		if self.matchKeyword("n") {
			return true, self.yield(TkOn, 2)
		}
		if self.matchKeyword("uter") {
			return true, self.yield(TkOuter, 5)
		}
		if yes, l := self.matchKeyword2("rder", "by"); yes {
			return true, self.yield(TkOrderBy, l)
		}

	case 'r':
		if self.matchKeyword("ight") {
			return true, self.yield(TkOuter, 5)
		}

	case 's':
		if self.matchKeyword("elect") {
			return true, self.yield(TkSelect, 6)
		}

	case 't':
		if self.matchKeyword("rue") {
			return true, self.yield(TkTrue, 4)
		}

	case 'w':
		if self.matchKeyword("here") {
			return true, self.yield(TkWhere, 5)
		}
	}

	return false, 0
}

func (self *Lexer) lexId(c rune) int {
	if !self.isIdLeadingChar(c) {
		return self.err(fmt.Sprintf("unexpected character %q", c))
	}

	buf := &bytes.Buffer{}
	for {
		c, sz := self.nextRune()
		if sz == 0 || !self.isIdChar(c) {
			break
		}
		self.Cursor += sz
		buf.WriteRune(unicode.ToLower(c))
	}

	self.Lexeme.Text = buf.String()
	self.Token = TkId
	return TkId
}

func (self *Lexer) lexKeywordOrId(c rune) int {
	if yes, tk := self.tryKeyword(c); yes {
		return tk
	}
	return self.lexId(c)
}

func (self *Lexer) Next() int {
	if self.Token == TkEof {
		return TkEof
	}
	self.Lexeme = Lexeme{}
	return self.next()
}

func (self *Lexer) next() int {
	for {
		self.Start = self.Cursor
		c, sz := self.nextRune()
		if sz == 0 {
			return self.eof()
		}
		if c == utf8.RuneError && sz == 1 {
			return self.errUtf8()
		}

		switch c {
		case ',':
			return self.yield(TkComma, 1)
		case ';':
			return self.yield(TkSemicolon, 1)
		case '.':
			if unicode.IsDigit(self.nextRune2()) {
				return self.lexNum()
			}
			return self.yield(TkDot, 1)
		case '(':
			return self.yield(TkLPar, 1)
		case ')':
			return self.yield(TkRPar, 1)
		case '+':
			return self.yield(TkAdd, 1)
		case '*':
			return self.yield(TkMul, 1)
		case '%':
			return self.yield(TkMod, 1)

		case '-':
			if self.nextRune2() == '-' {
				self.lexLineComment()
				continue
			}
			return self.yield(TkSub, 1)

		case '/':
			if self.nextRune2() == '*' {
				self.Cursor += 2
				if !self.lexBlockComment() {
					return self.Token
				}
				continue
			}
			return self.yield(TkDiv, 1)

		case '#':
			self.lexLineComment()
			continue

		case '=':
			if self.nextRune2() == '=' {
				return self.yield(TkEq, 2)
			}
			return self.yield(TkEq, 1)

		case '>':
			if self.nextRune2() == '=' {
				return self.yield(TkGe, 2)
			}
			return self.yield(TkGt, 1)

		case '<':
			switch self.nextRune2() {
			case '=':
				return self.yield(TkLe, 2)
			case '>':
				return self.yield(TkNe, 2)
			default:
				return self.yield(TkLt, 1)
			}

		case '!':
			if self.nextRune2() == '=' {
				return self.yield(TkNe, 2)
			}
			return self.err("expect '=' after '!'")

		case '&':
			if self.nextRune2() == '&' {
				return self.yield(TkAnd, 2)
			}
			return self.err("are you missing '&' for and operator?")

		case '|':
			if self.nextRune2() == '|' {
				return self.yield(TkOr, 2)
			}
			return self.err("are you missing '|' for or operator?")

		case '\'', '"':
			return self.lexQuoted(c)

		case '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
			return self.lexNum()

		default:
			if self.isWS(c) {
				self.Cursor += sz
				continue
			}
			return self.lexKeywordOrId(c)
		}
	}
}

// current returns the token the lexer is sitting on
func (self *Lexer) current() Token {
	return Token{
		Kind:   self.Token,
		Lexeme: self.Lexeme,
		Start:  self.Start,
		End:    self.Cursor,
	}
}

func newLexer(source string) *Lexer {
	return &Lexer{
		Source: source,
		Token:  TkError,
	}
}

// Tokenize lexes the whole source. The returned slice does not contain the
// trailing end of file token.
func Tokenize(source string) ([]Token, error) {
	l := newLexer(source)
	out := []Token{}

	for {
		switch l.Next() {
		case TkEof:
			return out, nil
		case TkError:
			return nil, errors.New(l.Lexeme.Text)
		default:
			out = append(out, l.current())
		}
	}
}
