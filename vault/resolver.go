package vault

import (
	"context"
	"errors"
	"fmt"

	"seqassist/provider"
)

// NewResolver bridges a vault and its unlock prompt into the lazy
// credential resolution the provider layer expects: read from the
// unlocked cache, or prompt once for a password and retry. A wrong
// password is returned to the caller to re-prompt; a dismissed prompt
// surfaces as ErrCancelled.
func NewResolver(v *Vault, prompt *Prompt) provider.CredentialResolver {
	return func(ctx context.Context, id provider.ID) (string, error) {
		key := string(id)

		secret, err := v.Get(key)
		if err == nil {
			if secret == "" {
				return "", fmt.Errorf("%w: no key stored for %s", ErrMissingCredential, id)
			}
			return secret, nil
		}
		if !errors.Is(err, ErrMissingCredential) {
			return "", err
		}

		password, err := prompt.Request(ctx)
		if err != nil {
			return "", err
		}
		secret, err = v.GetWithPassword(key, password)
		if err != nil {
			return "", err
		}
		if secret == "" {
			return "", fmt.Errorf("%w: no key stored for %s", ErrMissingCredential, id)
		}
		return secret, nil
	}
}
