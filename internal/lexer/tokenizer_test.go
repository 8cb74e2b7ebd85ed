package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize_CamelCase(t *testing.T) {
	got := Tokenize("getUserName")
	assert.Contains(t, got, "get")
	assert.Contains(t, got, "user")
	assert.Contains(t, got, "name")
	assert.Contains(t, got, "getUserName")
}

func TestTokenize_AcronymBoundary(t *testing.T) {
	got := Tokenize("HTTPSConnection")
	assert.Contains(t, got, "https")
	assert.Contains(t, got, "connection")
}

func TestTokenize_SnakeCase(t *testing.T) {
	got := Tokenize("authenticate_user")
	assert.Contains(t, got, "authenticate")
	assert.Contains(t, got, "user")
}

func TestTokenize_RemovesStopWordsCaseInsensitively(t *testing.T) {
	got := Tokenize("def Return None")
	assert.NotContains(t, got, "def")
	assert.NotContains(t, got, "return")
	assert.NotContains(t, got, "none")
}

func TestTokenize_RetainsDuplicates(t *testing.T) {
	got := Tokenize("retry retry retry")
	count := 0
	for _, tok := range got {
		if tok == "retry" {
			count++
		}
	}
	assert.Equal(t, 3, count)
}

func TestTokenize_PathSeparators(t *testing.T) {
	got := Tokenize("src/auth/login.py")
	assert.Contains(t, got, "src")
	assert.Contains(t, got, "auth")
	assert.Contains(t, got, "login")
}

func TestRejoin(t *testing.T) {
	assert.Equal(t, "get user name", Rejoin([]string{"get", "user", "name"}))
}
