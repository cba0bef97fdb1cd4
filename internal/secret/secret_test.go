package secret

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAPIKey_Precedence(t *testing.T) {
	t.Setenv("AUTOHEAL_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "gem-key")
	t.Setenv("OPENAI_API_KEY", "oa-key")

	assert.Equal(t, "configured", APIKey(" configured ", "gemini"))
	assert.Equal(t, "gem-key", APIKey("", "gemini"))
	assert.Equal(t, "oa-key", APIKey("", "openai"))

	t.Setenv("AUTOHEAL_API_KEY", "shared")
	assert.Equal(t, "shared", APIKey("", "openai"))
}

func TestMask(t *testing.T) {
	assert.Equal(t, "****", Mask("abcd"))
	assert.Equal(t, "sk-1...abcd", Mask("sk-1234567890abcd"))
}
