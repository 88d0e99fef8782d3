package secrets

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	key, err := Resolve("  sk-test  ")
	require.NoError(t, err)
	assert.Equal(t, "sk-test", key)

	_, err = Resolve(" ")
	var ce *ConfigurationError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, APIKeyEnv, ce.Key)
	assert.Contains(t, err.Error(), "missing OPENAI_API_KEY")
}

func TestAPIKeyFromEnv(t *testing.T) {
	t.Setenv(APIKeyEnv, "sk-from-env")
	key, err := APIKeyFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "sk-from-env", key)

	t.Setenv(APIKeyEnv, "")
	_, err = APIKeyFromEnv()
	assert.Error(t, err)
}

func TestMaskKey(t *testing.T) {
	assert.Equal(t, "••••••", MaskKey(""))
	assert.Equal(t, "••••••", MaskKey("short"))
	assert.Equal(t, "sk-a••••••wxyz", MaskKey("sk-abcdefghijklmnopqrstuvwxyz"))
	assert.Equal(t, "1234••••••5678", MaskKey("12345678"))
}
