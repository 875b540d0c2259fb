package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWebhookSecretToken(t *testing.T) {
	assert.Equal(t, "secure_webhook_token_ABCDEF", webhookSecretToken("123456789:xyzABCDEF"))

	// Short tokens must not panic and use the whole token
	assert.Equal(t, "secure_webhook_token_abc", webhookSecretToken("abc"))
	assert.Equal(t, "secure_webhook_token_", webhookSecretToken(""))
	assert.Equal(t, "secure_webhook_token_sixsix", webhookSecretToken("sixsix"))
}
